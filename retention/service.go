// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package retention

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/pairplan"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/sync2"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/repository"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

// Config defines parameters for the retention sweep.
type Config struct {
	Status         Status        `help:"how far the retention sweep may go. Options: (disabled/report-only/enabled)" default:"disabled"`
	Interval       time.Duration `help:"how often to run the retention sweep" default:"168h0m0s"`
	AcquisitionDir string        `help:"directory holding the raw .SAFE acquisitions" default:""`
	ReportDir      string        `help:"directory where per-track sweep reports are written, empty logs only" default:""`

	Policy Policy
}

// Acquisition is one raw scene on disk.
type Acquisition struct {
	Scene sar.Scene
	Path  string
}

// SweepReport merges the family analyses of one track and records what the
// sweep actually removed.
type SweepReport struct {
	Track       string      `json:"track"`
	GeneratedAt time.Time   `json:"generated_at"`
	Policy      Policy      `json:"policy"`
	Families    []string    `json:"families"`
	Deletable   []Candidate `json:"deletable"`
	Blocked     []Candidate `json:"blocked"`
	Deleted     []string    `json:"deleted,omitempty"`
	ReclaimedGB float64     `json:"reclaimed_gb,omitempty"`
}

// Service runs the offline retention sweep: scan raw acquisitions, analyze
// them per track across every family that shares the track, report, and
// when enabled delete the fully verified ones.
//
// A track can host partitions of both orbit directions, and a scene name
// does not say which direction it was acquired on. The sweep therefore
// requires a date to be deletable in every family of its track.
type Service struct {
	log      *zap.Logger
	store    *repository.Store
	analyzer *Analyzer
	config   Config

	Loop *sync2.Cycle
}

// NewService creates a retention sweep service.
func NewService(log *zap.Logger, store *repository.Store, config Config, limits pairplan.Limits) *Service {
	return &Service{
		log:      log,
		store:    store,
		analyzer: NewAnalyzer(log, store, config.Policy, limits),
		config:   config,
		Loop:     sync2.NewCycle(config.Interval),
	}
}

// Run starts the periodic sweep. Sweep failures are logged and the loop
// keeps going.
func (service *Service) Run(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)
	return service.Loop.Run(ctx, func(ctx context.Context) error {
		if _, err := service.RunOnce(ctx); err != nil {
			service.log.Error("Retention sweep failed", zap.Error(err))
		}
		return nil
	})
}

// RunOnce performs a single sweep and returns the per-track reports.
func (service *Service) RunOnce(ctx context.Context) (_ []SweepReport, err error) {
	defer mon.Task()(&ctx)(&err)

	if service.config.Status == Disabled || service.config.Status == 0 {
		service.log.Debug("Retention sweep disabled")
		return nil, nil
	}
	if service.config.AcquisitionDir == "" {
		return nil, Error.New("acquisition directory not configured")
	}

	acquisitions, err := service.scanAcquisitions(ctx)
	if err != nil {
		return nil, err
	}
	byTrack := groupByTrack(acquisitions)

	families, err := service.familiesByTrack(ctx)
	if err != nil {
		return nil, err
	}

	tracks := make([]sar.Track, 0, len(byTrack))
	for track := range byTrack {
		tracks = append(tracks, track)
	}
	sort.Slice(tracks, func(i, k int) bool { return tracks[i] < tracks[k] })

	var reports []SweepReport
	for _, track := range tracks {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := service.sweepTrack(ctx, track, byTrack[track], families[track])
		if err != nil {
			service.log.Error("Track sweep failed",
				zap.Stringer("Track", track), zap.Error(err))
			continue
		}
		service.log.Info("Track swept",
			zap.Stringer("Track", track),
			zap.Int("Deletable", len(report.Deletable)),
			zap.Int("Blocked", len(report.Blocked)),
			zap.Int("Deleted", len(report.Deleted)))
		if err := service.writeReport(report); err != nil {
			service.log.Error("Failed to write sweep report",
				zap.Stringer("Track", track), zap.Error(err))
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// scanAcquisitions parses every .SAFE entry in the acquisition dir.
func (service *Service) scanAcquisitions(ctx context.Context) (_ []Acquisition, err error) {
	defer mon.Task()(&ctx)(&err)

	entries, err := os.ReadDir(service.config.AcquisitionDir)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	var acquisitions []Acquisition
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".SAFE") {
			continue
		}
		scene, err := sar.ParseScene(name)
		if err != nil {
			service.log.Warn("Skipping unrecognized acquisition",
				zap.String("Name", name), zap.Error(err))
			continue
		}
		acquisitions = append(acquisitions, Acquisition{
			Scene: scene,
			Path:  filepath.Join(service.config.AcquisitionDir, name),
		})
	}
	return acquisitions, nil
}

func groupByTrack(acquisitions []Acquisition) map[sar.Track]map[sar.Date][]Acquisition {
	byTrack := make(map[sar.Track]map[sar.Date][]Acquisition)
	for _, acq := range acquisitions {
		byDate, ok := byTrack[acq.Scene.Track]
		if !ok {
			byDate = make(map[sar.Date][]Acquisition)
			byTrack[acq.Scene.Track] = byDate
		}
		byDate[acq.Scene.Date] = append(byDate[acq.Scene.Date], acq)
	}
	return byTrack
}

func (service *Service) familiesByTrack(ctx context.Context) (map[sar.Track][]sar.Family, error) {
	parts, err := service.store.Partitions(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[sar.Family]bool)
	families := make(map[sar.Track][]sar.Family)
	for _, part := range parts {
		family := part.Family()
		if seen[family] {
			continue
		}
		seen[family] = true
		families[family.Track] = append(families[family.Track], family)
	}
	return families, nil
}

// sweepTrack analyzes one track's acquisitions against every family sharing
// the track, merges the verdicts and, when enabled, deletes.
func (service *Service) sweepTrack(ctx context.Context, track sar.Track, byDate map[sar.Date][]Acquisition, families []sar.Family) (_ SweepReport, err error) {
	defer mon.Task()(&ctx)(&err)

	dates := make([]sar.Date, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	dates = sar.SortedUniqueDates(dates)

	report := SweepReport{
		Track:       track.String(),
		GeneratedAt: time.Now().UTC(),
		Policy:      service.config.Policy,
	}
	for _, family := range families {
		report.Families = append(report.Families, family.String())
	}
	sort.Strings(report.Families)

	if len(families) == 0 {
		for _, date := range dates {
			report.Blocked = append(report.Blocked, Candidate{
				Date: date, Reason: "no partitions on disk for track",
			})
		}
		return report, nil
	}

	analyses := make([]Report, 0, len(families))
	for _, family := range families {
		analysis, err := service.analyzer.Analyze(ctx, family, dates)
		if err != nil {
			return SweepReport{}, err
		}
		analyses = append(analyses, analysis)
	}

	for _, date := range dates {
		candidate, deletable := mergeVerdicts(analyses, date)
		if deletable {
			report.Deletable = append(report.Deletable, candidate)
		} else {
			report.Blocked = append(report.Blocked, candidate)
		}
	}

	if service.config.Status == Enabled {
		service.deleteVerified(ctx, &report, dates, byDate, families)
	}
	return report, nil
}

// mergeVerdicts requires a date to be deletable in every family analysis.
func mergeVerdicts(analyses []Report, date sar.Date) (Candidate, bool) {
	for _, analysis := range analyses {
		for _, blocked := range analysis.Blocked {
			if blocked.Date == date {
				return Candidate{
					Date:   date,
					Reason: analysis.Family + ": " + blocked.Reason,
				}, false
			}
		}
	}
	for _, analysis := range analyses {
		for _, deletable := range analysis.Deletable {
			if deletable.Date == date {
				return Candidate{Date: date, Reason: deletable.Reason}, true
			}
		}
	}
	// date absent from every analysis; never proven, never deleted
	return Candidate{Date: date, Reason: "not analyzed"}, false
}

// deleteVerified removes the deletable acquisitions, re-verifying each date
// immediately before removal to close the race between analysis and delete.
func (service *Service) deleteVerified(ctx context.Context, report *SweepReport, dates []sar.Date, byDate map[sar.Date][]Acquisition, families []sar.Family) {
	for _, candidate := range report.Deletable {
		if ctx.Err() != nil {
			return
		}

		verified := true
		for _, family := range families {
			fresh, err := service.analyzer.Analyze(ctx, family, dates)
			if err != nil || !fresh.IsDeletable(candidate.Date) {
				verified = false
				break
			}
		}
		if !verified {
			service.log.Warn("Acquisition failed re-verification, keeping",
				zap.Stringer("Date", candidate.Date))
			continue
		}

		for _, acq := range byDate[candidate.Date] {
			size := dirSizeGB(acq.Path)
			if err := os.RemoveAll(acq.Path); err != nil {
				service.log.Error("Failed to delete acquisition",
					zap.String("Path", acq.Path), zap.Error(err))
				continue
			}
			mon.Counter("acquisitions_deleted").Inc(1)
			report.Deleted = append(report.Deleted, acq.Path)
			report.ReclaimedGB += size
			service.log.Info("Acquisition deleted",
				zap.String("Path", acq.Path),
				zap.Float64("SizeGB", size))
		}
	}
}

func (service *Service) writeReport(report SweepReport) error {
	if service.config.ReportDir == "" {
		return nil
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return Error.Wrap(err)
	}
	if err := os.MkdirAll(service.config.ReportDir, 0o755); err != nil {
		return Error.Wrap(err)
	}
	path := filepath.Join(service.config.ReportDir, "retention_"+report.Track+".json")
	return Error.Wrap(os.WriteFile(path, data, 0o644))
}

// Close stops the loop.
func (service *Service) Close() error {
	service.Loop.Close()
	return nil
}

func dirSizeGB(path string) float64 {
	var total int64
	_ = filepath.WalkDir(path, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.Type().IsRegular() {
			if info, err := entry.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return float64(total) / (1 << 30)
}
