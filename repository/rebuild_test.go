// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package repository_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/testcontext"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/repository"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

func TestRebuildFromDisk(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := newStore(t, ctx)
	part := testPartition()
	dir := store.PartitionDir(part)

	writeArtifact(t, filepath.Join(dir, "insar", "short", "Ifg_20240101_20240113.dim"))
	writeArtifact(t, filepath.Join(dir, "insar", "short", "Ifg_20240113_20240125.dim"))
	writeArtifact(t, filepath.Join(dir, "insar", "long", "Ifg_20240101_20240125_LONG.dim"))
	writeArtifact(t, filepath.Join(dir, "polarimetry", "20240113", "S1A_IW_SLC_20240113_HAAlpha.dim"))
	// a short artifact misfiled under long is not trusted
	writeArtifact(t, filepath.Join(dir, "insar", "long", "Ifg_20240113_20240125.dim"))

	md, err := store.Rebuild(ctx, part)
	require.NoError(t, err)

	require.Len(t, md.Pairs, 3)
	assert.Equal(t, 2, md.Stats.ShortPairs)
	assert.Equal(t, 1, md.Stats.LongPairs)
	require.Len(t, md.Singles, 1)
	assert.Equal(t, date("20240113"), md.Singles[0].Date)
	assert.Equal(t, repository.DecompositionHAlpha, md.Singles[0].Decomposition)

	require.NotNil(t, md.Temporal)
	assert.Equal(t, date("20240101"), md.Temporal.Start)
	assert.Equal(t, date("20240125"), md.Temporal.End)

	// the rebuilt document is persisted
	loaded, err := store.Load(ctx, part)
	require.NoError(t, err)
	assert.Equal(t, md.PairKeys(), loaded.PairKeys())
}

func TestRebuildReplacesCorruptMetadata(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := newStore(t, ctx)
	part := testPartition()
	dir := store.PartitionDir(part)

	writeArtifact(t, filepath.Join(dir, "insar", "short", "Ifg_20240101_20240113.dim"))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, repository.MetadataFilename), []byte("{broken"), 0o644))

	md, err := store.Rebuild(ctx, part)
	require.NoError(t, err)
	require.Len(t, md.Pairs, 1)
	assert.Equal(t,
		sar.NewPairKey(date("20240101"), date("20240113"), sar.ShortPair),
		md.Pairs[0].Key)

	loaded, err := store.Load(ctx, part)
	require.NoError(t, err)
	assert.Len(t, loaded.Pairs, 1)
}

func TestRebuildAll(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	store := newStore(t, ctx)

	first := sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW1, Track: 42}
	second := sar.Partition{Orbit: sar.Descending, Subswath: sar.IW2, Track: 117}
	writeArtifact(t, filepath.Join(store.PartitionDir(first), "insar", "short", "Ifg_20240101_20240113.dim"))
	writeArtifact(t, filepath.Join(store.PartitionDir(second), "insar", "short", "Ifg_20240207_20240219.dim"))

	require.NoError(t, store.RebuildAll(ctx))

	for _, part := range []sar.Partition{first, second} {
		md, err := store.Load(ctx, part)
		require.NoError(t, err)
		assert.Len(t, md.Pairs, 1, "partition %s", part)
	}
}
