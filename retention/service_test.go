// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package retention_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/pairplan"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/testcontext"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/repository"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/retention"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

// track 42 scenes for S1A: absolute orbit 114 + n*175
var sceneNames = map[string]string{
	"20240101": "S1A_IW_SLC__1SDV_20240101T060102_20240101T060129_000114_001AB0_11AA.SAFE",
	"20240113": "S1A_IW_SLC__1SDV_20240113T060102_20240113T060129_000289_001AB1_22BB.SAFE",
	"20240125": "S1A_IW_SLC__1SDV_20240125T060102_20240125T060129_000464_001AB2_33CC.SAFE",
	"20240206": "S1A_IW_SLC__1SDV_20240206T060102_20240206T060129_000639_001AB3_44DD.SAFE",
}

func seedAcquisitions(t *testing.T, dir string) map[string]string {
	paths := make(map[string]string)
	for day, name := range sceneNames {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Join(path, "measurement"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(path, "measurement", "iw1.tiff"), []byte("slc-bytes"), 0o644))
		paths[day] = path
	}
	return paths
}

func newService(t *testing.T, ctx *testcontext.Context, store *repository.Store, config retention.Config) *retention.Service {
	if config.Interval == 0 {
		config.Interval = time.Hour
	}
	return retention.NewService(zaptest.NewLogger(t), store, config, pairplan.DefaultLimits())
}

func TestSweepReportOnly(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := repository.New(zaptest.NewLogger(t), repository.Config{RootDir: ctx.Dir("repo")}, nil)
	part := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW1, Track: 42}
	seedFullPartition(t, ctx, store, part)

	acqDir := ctx.Dir("acquisitions")
	paths := seedAcquisitions(t, acqDir)

	service := newService(t, ctx, store, retention.Config{
		Status:         retention.ReportOnly,
		AcquisitionDir: acqDir,
		ReportDir:      ctx.Dir("reports"),
		Policy:         retention.Policy{KeepFirst: 1, KeepLast: 1},
	})
	defer ctx.Check(service.Close)

	reports, err := service.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	report := reports[0]
	assert.Equal(t, "t042", report.Track)
	assert.Equal(t, []string{"asce_t042"}, report.Families)
	require.Len(t, report.Deletable, 2)
	assert.Equal(t, date("20240113"), report.Deletable[0].Date)
	assert.Equal(t, date("20240125"), report.Deletable[1].Date)
	assert.Empty(t, report.Deleted)

	// nothing was removed in report-only mode
	for _, path := range paths {
		_, err := os.Stat(path)
		require.NoError(t, err)
	}

	// the report landed on disk
	data, err := os.ReadFile(filepath.Join(ctx.Dir("reports"), "retention_t042.json"))
	require.NoError(t, err)
	var persisted retention.SweepReport
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, report.Track, persisted.Track)
	assert.Len(t, persisted.Deletable, 2)
}

func TestSweepEnabledDeletes(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := repository.New(zaptest.NewLogger(t), repository.Config{RootDir: ctx.Dir("repo")}, nil)
	part := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW1, Track: 42}
	seedFullPartition(t, ctx, store, part)

	acqDir := ctx.Dir("acquisitions")
	paths := seedAcquisitions(t, acqDir)

	service := newService(t, ctx, store, retention.Config{
		Status:         retention.Enabled,
		AcquisitionDir: acqDir,
		Policy:         retention.Policy{KeepFirst: 1, KeepLast: 1},
	})
	defer ctx.Check(service.Close)

	reports, err := service.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Len(t, reports[0].Deleted, 2)
	assert.Greater(t, reports[0].ReclaimedGB, 0.0)

	// the verified middle dates are gone, the window edges survive
	_, err = os.Stat(paths["20240113"])
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(paths["20240125"])
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(paths["20240101"])
	assert.NoError(t, err)
	_, err = os.Stat(paths["20240206"])
	assert.NoError(t, err)
}

func TestSweepDisabledDoesNothing(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := repository.New(zaptest.NewLogger(t), repository.Config{RootDir: ctx.Dir("repo")}, nil)

	service := newService(t, ctx, store, retention.Config{
		Status:         retention.Disabled,
		AcquisitionDir: ctx.Dir("acquisitions"),
	})
	defer ctx.Check(service.Close)

	reports, err := service.RunOnce(ctx)
	require.NoError(t, err)
	assert.Nil(t, reports)
}

func TestSweepUnknownTrackKeepsEverything(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := repository.New(zaptest.NewLogger(t), repository.Config{RootDir: ctx.Dir("repo")}, nil)

	acqDir := ctx.Dir("acquisitions")
	paths := seedAcquisitions(t, acqDir)

	service := newService(t, ctx, store, retention.Config{
		Status:         retention.Enabled,
		AcquisitionDir: acqDir,
	})
	defer ctx.Check(service.Close)

	reports, err := service.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].Deletable)
	assert.Len(t, reports[0].Blocked, 4)
	for _, candidate := range reports[0].Blocked {
		assert.Equal(t, "no partitions on disk for track", candidate.Reason)
	}
	for _, path := range paths {
		_, err := os.Stat(path)
		require.NoError(t, err)
	}
}

func TestSweepLaggingFamilyBlocksTrack(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := repository.New(zaptest.NewLogger(t), repository.Config{RootDir: ctx.Dir("repo")}, nil)

	complete := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW1, Track: 42}
	seedFullPartition(t, ctx, store, complete)

	// A descending partition of the same track knows about 0125 through its
	// polarimetry output but has not interfered it against 0113 yet.
	lagging := sar.Partition{Orbit: sar.Descending, Subswath: sar.IW1, Track: 42}
	md := repository.NewMetadata(lagging)
	addVerifiedPair(t, store, lagging, md, "20240101", "20240113", sar.ShortPair)
	single := repository.SingleRecord{
		Date:          date("20240125"),
		File:          "polarimetry/20240125/S1A_IW_SLC_20240125_HAAlpha.dim",
		Decomposition: repository.DecompositionHAlpha,
	}
	md.AddSingle(single)
	path := store.ArtifactPath(lagging, single.File)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("dim"), 0o644))
	require.NoError(t, store.Save(ctx, lagging, md))

	acqDir := ctx.Dir("acquisitions")
	paths := seedAcquisitions(t, acqDir)

	service := newService(t, ctx, store, retention.Config{
		Status:         retention.Enabled,
		AcquisitionDir: acqDir,
		Policy:         retention.Policy{KeepFirst: 1, KeepLast: 1},
	})
	defer ctx.Check(service.Close)

	reports, err := service.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	report := reports[0]
	assert.Equal(t, []string{"asce_t042", "desc_t042"}, report.Families)
	assert.Empty(t, report.Deletable)
	assert.Empty(t, report.Deleted)

	// the unprocessed short(0113, 0125) gap in the descending family blocks
	found := false
	for _, candidate := range report.Blocked {
		if candidate.Date == date("20240113") {
			assert.Contains(t, candidate.Reason, "desc_t042")
			assert.Contains(t, candidate.Reason, "not registered")
			found = true
		}
	}
	assert.True(t, found)
	for _, path := range paths {
		_, err := os.Stat(path)
		require.NoError(t, err)
	}
}
