// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package retention_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/pairplan"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/testcontext"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/repository"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/retention"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

func date(s string) sar.Date {
	d, err := sar.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dates(ss ...string) []sar.Date {
	out := make([]sar.Date, len(ss))
	for i, s := range ss {
		out[i] = date(s)
	}
	return out
}

// addVerifiedPair records a pair in md and creates its artifact on disk.
func addVerifiedPair(t *testing.T, store *repository.Store, part sar.Partition, md *repository.Metadata, master, slave string, kind sar.PairKind) {
	key := sar.NewPairKey(date(master), date(slave), kind)
	file := "insar/" + kind.String() + "/" + key.ArtifactName()
	md.AddPair(repository.PairRecord{Key: key, File: file, SizeGB: 0.1})

	path := store.ArtifactPath(part, file)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("dim"), 0o644))
}

// seedFullPartition registers the complete verified pair set of the 12-day
// series 0101, 0113, 0125, 0206.
func seedFullPartition(t *testing.T, ctx *testcontext.Context, store *repository.Store, part sar.Partition) {
	md := repository.NewMetadata(part)
	addVerifiedPair(t, store, part, md, "20240101", "20240113", sar.ShortPair)
	addVerifiedPair(t, store, part, md, "20240113", "20240125", sar.ShortPair)
	addVerifiedPair(t, store, part, md, "20240125", "20240206", sar.ShortPair)
	addVerifiedPair(t, store, part, md, "20240101", "20240125", sar.LongPair)
	addVerifiedPair(t, store, part, md, "20240113", "20240206", sar.LongPair)
	require.NoError(t, store.Save(ctx, part, md))
}

func newAnalyzer(t *testing.T, store *repository.Store, policy retention.Policy) *retention.Analyzer {
	return retention.NewAnalyzer(zaptest.NewLogger(t), store, policy, pairplan.DefaultLimits())
}

func reasonOf(report retention.Report, d sar.Date) string {
	for _, candidate := range report.Blocked {
		if candidate.Date == d {
			return candidate.Reason
		}
	}
	return ""
}

func TestAnalyzeFullyVerified(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := repository.New(zaptest.NewLogger(t), repository.Config{RootDir: ctx.Dir("repo")}, nil)
	part := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW1, Track: 42}
	seedFullPartition(t, ctx, store, part)

	analyzer := newAnalyzer(t, store, retention.Policy{KeepFirst: 1, KeepLast: 1})
	report, err := analyzer.Analyze(ctx, part.Family(), dates("20240101", "20240113", "20240125", "20240206"))
	require.NoError(t, err)

	// edges stay, fully verified middle dates go
	assert.True(t, report.IsDeletable(date("20240113")))
	assert.True(t, report.IsDeletable(date("20240125")))
	assert.False(t, report.IsDeletable(date("20240101")))
	assert.False(t, report.IsDeletable(date("20240206")))
	assert.Equal(t, "retention window", reasonOf(report, date("20240101")))
	assert.Equal(t, "retention window", reasonOf(report, date("20240206")))
}

func TestAnalyzeWindowBeatsCompleteness(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := repository.New(zaptest.NewLogger(t), repository.Config{RootDir: ctx.Dir("repo")}, nil)
	part := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW1, Track: 42}
	seedFullPartition(t, ctx, store, part)

	// 3+3 window swallows the whole four date series
	analyzer := newAnalyzer(t, store, retention.DefaultPolicy())
	report, err := analyzer.Analyze(ctx, part.Family(), dates("20240101", "20240113", "20240125", "20240206"))
	require.NoError(t, err)

	assert.Empty(t, report.Deletable)
	require.Len(t, report.Blocked, 4)
	for _, candidate := range report.Blocked {
		assert.Equal(t, "retention window", candidate.Reason)
	}
}

func TestAnalyzeBlocksOnMissingFile(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := repository.New(zaptest.NewLogger(t), repository.Config{RootDir: ctx.Dir("repo")}, nil)
	part := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW1, Track: 42}
	seedFullPartition(t, ctx, store, part)

	// metadata still lists the pair, only the file disappears
	gone := store.ArtifactPath(part, "insar/short/Ifg_20240113_20240125.dim")
	require.NoError(t, os.Remove(gone))

	analyzer := newAnalyzer(t, store, retention.Policy{KeepFirst: 1, KeepLast: 1})
	report, err := analyzer.Analyze(ctx, part.Family(), dates("20240101", "20240113", "20240125", "20240206"))
	require.NoError(t, err)

	assert.False(t, report.IsDeletable(date("20240113")))
	assert.False(t, report.IsDeletable(date("20240125")))
	assert.Contains(t, reasonOf(report, date("20240113")), "missing on disk")
}

func TestAnalyzeBlocksOnUnregisteredPair(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := repository.New(zaptest.NewLogger(t), repository.Config{RootDir: ctx.Dir("repo")}, nil)
	part := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW1, Track: 42}

	// only one of the expected short pairs is registered
	md := repository.NewMetadata(part)
	addVerifiedPair(t, store, part, md, "20240101", "20240113", sar.ShortPair)
	addVerifiedPair(t, store, part, md, "20240125", "20240206", sar.ShortPair)
	require.NoError(t, store.Save(ctx, part, md))

	analyzer := newAnalyzer(t, store, retention.Policy{})
	report, err := analyzer.Analyze(ctx, part.Family(), dates("20240101", "20240113", "20240125", "20240206"))
	require.NoError(t, err)

	// short(0113, 0125) is expected over the union date list but missing
	assert.False(t, report.IsDeletable(date("20240113")))
	assert.Contains(t, reasonOf(report, date("20240113")), "not registered")
}

func TestAnalyzeBlocksAcrossFamilyMembers(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := repository.New(zaptest.NewLogger(t), repository.Config{RootDir: ctx.Dir("repo")}, nil)
	complete := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW1, Track: 42}
	lagging := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW2, Track: 42}

	seedFullPartition(t, ctx, store, complete)

	// the second subswath only processed the first short pair
	md := repository.NewMetadata(lagging)
	addVerifiedPair(t, store, lagging, md, "20240101", "20240113", sar.ShortPair)
	require.NoError(t, store.Save(ctx, lagging, md))

	analyzer := newAnalyzer(t, store, retention.Policy{KeepFirst: 1, KeepLast: 1})
	report, err := analyzer.Analyze(ctx, complete.Family(), dates("20240101", "20240113", "20240125", "20240206"))
	require.NoError(t, err)

	// one lagging member blocks the whole family
	assert.Empty(t, report.Deletable)
	assert.Contains(t, reasonOf(report, date("20240113")), lagging.ID())
}

func TestAnalyzeBlocksOnCorruptMetadata(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := repository.New(zaptest.NewLogger(t), repository.Config{RootDir: ctx.Dir("repo")}, nil)
	part := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW1, Track: 42}
	seedFullPartition(t, ctx, store, part)

	broken := part.Family().Partition(sar.IW2)
	path := filepath.Join(store.PartitionDir(broken), repository.MetadataFilename)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	analyzer := newAnalyzer(t, store, retention.Policy{KeepFirst: 1, KeepLast: 1})
	report, err := analyzer.Analyze(ctx, part.Family(), dates("20240101", "20240113", "20240125", "20240206"))
	require.NoError(t, err)

	assert.Empty(t, report.Deletable)
	assert.Contains(t, reasonOf(report, date("20240113")), "unverifiable")
}

func TestAnalyzeBlocksUnreferencedAndUnplanned(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := repository.New(zaptest.NewLogger(t), repository.Config{RootDir: ctx.Dir("repo")}, nil)
	part := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW1, Track: 42}
	seedFullPartition(t, ctx, store, part)

	analyzer := newAnalyzer(t, store, retention.Policy{})

	// a raw date no partition has processed yet
	report, err := analyzer.Analyze(ctx, part.Family(),
		dates("20240101", "20240113", "20240125", "20240206", "20241201"))
	require.NoError(t, err)
	assert.False(t, report.IsDeletable(date("20241201")))
	assert.Equal(t, "not referenced by any partition", reasonOf(report, date("20241201")))

	// a family with no partitions at all
	other := sar.Family{Orbit: sar.Descending, Track: 99}
	report, err = analyzer.Analyze(ctx, other, dates("20240101"))
	require.NoError(t, err)
	assert.Empty(t, report.Deletable)
	assert.Equal(t, "no partitions on disk for family", reasonOf(report, date("20240101")))
}

func TestAnalyzeChecksSingles(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := repository.New(zaptest.NewLogger(t), repository.Config{RootDir: ctx.Dir("repo")}, nil)
	part := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW1, Track: 42}
	seedFullPartition(t, ctx, store, part)

	// record a per-date artifact without its file
	md, err := store.Load(ctx, part)
	require.NoError(t, err)
	md.AddSingle(repository.SingleRecord{
		Date:          date("20240113"),
		File:          "polarimetry/20240113/S1A_IW_SLC_20240113_HAAlpha.dim",
		Decomposition: repository.DecompositionHAlpha,
	})
	require.NoError(t, store.Save(ctx, part, md))

	analyzer := newAnalyzer(t, store, retention.Policy{KeepFirst: 1, KeepLast: 1})
	report, err := analyzer.Analyze(ctx, part.Family(), dates("20240101", "20240113", "20240125", "20240206"))
	require.NoError(t, err)
	assert.False(t, report.IsDeletable(date("20240113")))
	assert.Contains(t, reasonOf(report, date("20240113")), "per-date artifact missing")

	// with the file present the date verifies again
	path := store.ArtifactPath(part, "polarimetry/20240113/S1A_IW_SLC_20240113_HAAlpha.dim")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("dim"), 0o644))

	report, err = analyzer.Analyze(ctx, part.Family(), dates("20240101", "20240113", "20240125", "20240206"))
	require.NoError(t, err)
	assert.True(t, report.IsDeletable(date("20240113")))
}

func TestStatusFlag(t *testing.T) {
	var status retention.Status

	require.NoError(t, status.Set("report-only"))
	assert.Equal(t, retention.ReportOnly, status)
	assert.Equal(t, "report-only", status.String())

	require.NoError(t, status.Set("enabled"))
	assert.Equal(t, retention.Enabled, status)

	require.NoError(t, status.Set("disabled"))
	assert.Equal(t, retention.Disabled, status)

	require.Error(t, status.Set("yolo"))
}
