// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package series drives incremental interferometric processing. For each
// partition it plans the expected pair set from the raw acquisition list,
// subtracts what is already registered or terminally skipped, and runs the
// worker for the remainder, registering each success as soon as the worker
// reports it.
package series

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/pairplan"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/repository"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/worker"
)

var (
	// Error is the default error class for the series package.
	Error = errs.Class("series")

	mon = monkit.Package()
)

// Config configures the series driver.
type Config struct {
	WorkspaceDir string `help:"scratch directory for processing jobs" default:"$CONFDIR/workspace"`
	Parallelism  int    `help:"maximum partitions processed concurrently" default:"2"`
}

// Input is one raw acquisition available to a partition series.
type Input struct {
	Date sar.Date
	Path string
}

// Series is the work order for one partition: the partition plus the raw
// acquisitions its pairs are planned from. Assembling the series, including
// deciding which acquisitions belong to which orbit direction, is the
// caller's job.
type Series struct {
	Partition sar.Partition
	Inputs    []Input
}

// Result summarizes one partition run.
type Result struct {
	Partition  sar.Partition
	Planned    int
	Missing    int
	Succeeded  int
	Failed     int
	NoCoverage int
	Gaps       []pairplan.Gap
}

// Driver plans, diffs and processes partition series.
type Driver struct {
	log       *zap.Logger
	store     *repository.Store
	processor worker.Processor
	config    Config
	limits    pairplan.Limits
}

// New creates a Driver.
func New(log *zap.Logger, store *repository.Store, processor worker.Processor, config Config, limits pairplan.Limits) *Driver {
	return &Driver{
		log:       log,
		store:     store,
		processor: processor,
		config:    config,
		limits:    limits,
	}
}

// Run processes the given series, at most Parallelism partitions at a time.
// Partitions own disjoint trees, so they never contend beyond the store's
// per-partition locks. The first partition level failure cancels the rest.
func (driver *Driver) Run(ctx context.Context, series []Series) (_ []Result, err error) {
	defer mon.Task()(&ctx)(&err)

	limit := driver.config.Parallelism
	if limit <= 0 {
		limit = 1
	}

	results := make([]Result, len(series))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for i, one := range series {
		i, one := i, one
		group.Go(func() error {
			result, err := driver.RunPartition(gctx, one)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunPartition plans the expected pair set from the series inputs, diffs it
// against the recorded and skipped pairs, and runs the worker per missing
// pair. Successes are registered immediately, so an interrupted run keeps
// everything finished before the interruption.
func (driver *Driver) RunPartition(ctx context.Context, series Series) (_ Result, err error) {
	defer mon.Task()(&ctx)(&err)

	part := series.Partition
	log := driver.log.With(zap.String("Partition", part.ID()))

	byDate := make(map[sar.Date]Input, len(series.Inputs))
	dateList := make([]sar.Date, 0, len(series.Inputs))
	for _, input := range series.Inputs {
		byDate[input.Date] = input
		dateList = append(dateList, input.Date)
	}
	dateList = sar.SortedUniqueDates(dateList)

	md, err := driver.store.Load(ctx, part)
	if err != nil {
		return Result{}, err
	}
	skips, err := driver.store.LoadSkips(ctx, part)
	if err != nil {
		return Result{}, err
	}

	plan, err := pairplan.Expected(dateList, driver.limits)
	if err != nil {
		return Result{}, err
	}
	for _, gap := range plan.Gaps {
		log.Warn("Temporal gap in series",
			zap.Stringer("Kind", gap.Kind),
			zap.Stringer("From", gap.From),
			zap.Stringer("To", gap.To),
			zap.Int("Days", gap.Days))
	}

	done := append(md.PairKeys(), repository.SkipKeys(skips)...)
	missing := pairplan.Diff(plan.Pairs, done)

	result := Result{
		Partition: part,
		Planned:   len(plan.Pairs),
		Missing:   len(missing.Pairs),
		Gaps:      plan.Gaps,
	}
	mon.IntVal("series_missing_pairs").Observe(int64(len(missing.Pairs)))

	if missing.Empty() {
		log.Info("Partition up to date", zap.Int("Planned", result.Planned))
		return result, nil
	}
	log.Info("Processing missing pairs",
		zap.Int("Missing", result.Missing),
		zap.Int("Planned", result.Planned))

	if _, err := driver.store.EnsurePartition(ctx, part); err != nil {
		return Result{}, err
	}

	for _, key := range missing.Pairs {
		if err := ctx.Err(); err != nil {
			return result, Error.Wrap(err)
		}
		outcome, err := driver.processPair(ctx, log, part, byDate, key)
		if err != nil {
			return result, err
		}
		switch outcome {
		case worker.Success:
			result.Succeeded++
		case worker.NoCoverage:
			result.NoCoverage++
		default:
			result.Failed++
		}
	}

	log.Info("Partition series done",
		zap.Int("Succeeded", result.Succeeded),
		zap.Int("Failed", result.Failed),
		zap.Int("NoCoverage", result.NoCoverage))
	return result, nil
}

// processPair runs one worker job. It returns an error only for conditions
// that must abort the partition: cancellation, broken inputs, or a store
// that stopped accepting writes. A failing job is an outcome, not an error.
func (driver *Driver) processPair(ctx context.Context, log *zap.Logger, part sar.Partition, byDate map[sar.Date]Input, key sar.PairKey) (worker.Outcome, error) {
	master, ok := byDate[key.Master]
	if !ok {
		return worker.InvalidOutcome, Error.New("no input for date %s of pair %s", key.Master, key)
	}
	slave, ok := byDate[key.Slave]
	if !ok {
		return worker.InvalidOutcome, Error.New("no input for date %s of pair %s", key.Slave, key)
	}

	workspace := filepath.Join(driver.config.WorkspaceDir, part.ID(),
		key.Master.String()+"_"+key.Slave.String()+"_"+key.Kind.String())
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return worker.InvalidOutcome, Error.Wrap(err)
	}

	job := worker.Job{
		Partition: part,
		Pair:      &key,
		Inputs:    []string{master.Path, slave.Path},
		Workspace: workspace,
	}

	processed, err := driver.processor.Process(ctx, job)
	if err != nil {
		if ctx.Err() != nil {
			return worker.InvalidOutcome, Error.Wrap(err)
		}
		log.Error("Processing failed", zap.Stringer("Pair", key), zap.Error(err))
		return worker.Failed, nil
	}

	switch processed.Outcome {
	case worker.Success:
		artifact, ok := findArtifact(processed.Outputs, key)
		if !ok {
			log.Error("Worker reported success without the expected artifact",
				zap.Stringer("Pair", key),
				zap.Strings("Outputs", processed.Outputs))
			return worker.Failed, nil
		}
		registered, err := driver.store.RegisterPair(ctx, part, key, artifact)
		if err != nil {
			return worker.InvalidOutcome, err
		}
		if !registered {
			log.Debug("Pair was already registered", zap.Stringer("Pair", key))
		}
		driver.cleanupWorkspace(log, workspace)
		return worker.Success, nil

	case worker.NoCoverage:
		skip := repository.Skip{Key: key, Reason: "no coverage", Recorded: time.Now().UTC()}
		if err := driver.store.AddSkip(ctx, part, skip); err != nil {
			return worker.InvalidOutcome, err
		}
		driver.cleanupWorkspace(log, workspace)
		return worker.NoCoverage, nil

	default:
		// the workspace stays behind for inspection
		return worker.Failed, nil
	}
}

// findArtifact locates the output whose name matches the pair's canonical
// artifact name.
func findArtifact(outputs []string, key sar.PairKey) (string, bool) {
	want := key.ArtifactName()
	for _, output := range outputs {
		if filepath.Base(output) == want {
			return output, true
		}
	}
	return "", false
}

func (driver *Driver) cleanupWorkspace(log *zap.Logger, workspace string) {
	if err := os.RemoveAll(workspace); err != nil {
		log.Warn("Failed to clean workspace",
			zap.String("Workspace", workspace), zap.Error(err))
	}
}
