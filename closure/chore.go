// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package closure

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/sync2"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/repository"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

// Config configures the closure chore.
type Config struct {
	Interval  time.Duration `help:"how often to scan partitions for closure triplets" default:"24h"`
	ReportDir string        `help:"directory where per-partition closure reports are written, empty logs only" default:""`
}

// Report is the persisted result of one partition scan.
type Report struct {
	Partition   string    `json:"partition"`
	GeneratedAt time.Time `json:"generated_at"`
	Triplets    []Triplet `json:"triplets"`
}

// Chore periodically scans every partition and reports the usable closure
// triplets for the external quality control step.
type Chore struct {
	log    *zap.Logger
	store  *repository.Store
	config Config

	Loop *sync2.Cycle
}

// NewChore creates a closure chore.
func NewChore(log *zap.Logger, store *repository.Store, config Config) *Chore {
	return &Chore{
		log:    log,
		store:  store,
		config: config,
		Loop:   sync2.NewCycle(config.Interval),
	}
}

// Run starts the scan loop. Scan failures are logged and the loop keeps
// going; only context cancellation stops it.
func (chore *Chore) Run(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)
	return chore.Loop.Run(ctx, func(ctx context.Context) error {
		if err := chore.RunOnce(ctx); err != nil {
			chore.log.Error("Closure scan failed", zap.Error(err))
		}
		return nil
	})
}

// RunOnce scans all partitions a single time.
func (chore *Chore) RunOnce(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	parts, err := chore.store.Partitions(ctx)
	if err != nil {
		return err
	}

	for _, part := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := chore.scanPartition(ctx, part); err != nil {
			chore.log.Error("Partition closure scan failed",
				zap.String("Partition", part.ID()),
				zap.Error(err))
		}
	}
	return nil
}

func (chore *Chore) scanPartition(ctx context.Context, part sar.Partition) error {
	md, err := chore.store.Load(ctx, part)
	if err != nil {
		return err
	}

	triplets := Find(md)
	mon.IntVal("closure_triplets").Observe(int64(len(triplets)))
	chore.log.Info("Closure triplets found",
		zap.String("Partition", part.ID()),
		zap.Int("Triplets", len(triplets)))

	if chore.config.ReportDir == "" {
		return nil
	}

	report := Report{
		Partition:   part.ID(),
		GeneratedAt: time.Now().UTC(),
		Triplets:    triplets,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return Error.Wrap(err)
	}
	if err := os.MkdirAll(chore.config.ReportDir, 0o755); err != nil {
		return Error.Wrap(err)
	}
	path := filepath.Join(chore.config.ReportDir, "closures_"+part.ID()+".json")
	return Error.Wrap(os.WriteFile(path, data, 0o644))
}

// Close stops the loop.
func (chore *Chore) Close() error {
	chore.Loop.Close()
	return nil
}
