// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package repository

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

// Rebuild reconstructs partition metadata by rescanning canonical storage
// and persists the result. It is the recovery path for a lost or corrupt
// metadata file; the artifact tree alone carries enough information.
func (store *Store) Rebuild(ctx context.Context, part sar.Partition) (_ *Metadata, err error) {
	defer mon.Task()(&ctx)(&err)

	defer store.lockPartition(part)()

	md := NewMetadata(part)
	if previous, err := store.Load(ctx, part); err == nil {
		md.Info.Created = previous.Info.Created
	} else {
		store.log.Warn("Previous metadata unreadable, starting over",
			zap.String("Partition", part.ID()), zap.Error(err))
		md.Info.Created = time.Now().UTC()
	}

	for _, kind := range sar.PairKinds {
		dir := filepath.Join(store.PartitionDir(part), "insar", kind.String())
		for _, name := range listDim(dir) {
			key, err := sar.ParsePairArtifact(name)
			if err != nil {
				store.log.Warn("Skipping unrecognized pair artifact",
					zap.String("Partition", part.ID()),
					zap.String("Name", name), zap.Error(err))
				continue
			}
			if key.Kind != kind {
				store.log.Warn("Artifact filed under wrong pair directory",
					zap.String("Partition", part.ID()),
					zap.Stringer("Pair", key),
					zap.String("Directory", kind.String()))
				continue
			}
			size, err := artifactSizeGB(filepath.Join(dir, name))
			if err != nil {
				return nil, Error.Wrap(err)
			}
			md.AddPair(PairRecord{
				Key:    key,
				File:   path.Join("insar", kind.String(), name),
				SizeGB: size,
			})
		}
	}

	polRoot := filepath.Join(store.PartitionDir(part), "polarimetry")
	dateDirs, err := os.ReadDir(polRoot)
	if err != nil && !os.IsNotExist(err) {
		return nil, Error.Wrap(err)
	}
	for _, dateDir := range dateDirs {
		if !dateDir.IsDir() {
			continue
		}
		date, err := sar.ParseDate(dateDir.Name())
		if err != nil {
			store.log.Warn("Skipping unrecognized date directory",
				zap.String("Partition", part.ID()),
				zap.String("Name", dateDir.Name()))
			continue
		}
		for _, name := range listDim(filepath.Join(polRoot, dateDir.Name())) {
			if md.HasSingle(date) {
				store.log.Warn("Duplicate per-date artifact",
					zap.String("Partition", part.ID()),
					zap.Stringer("Date", date),
					zap.String("Name", name))
				continue
			}
			size, err := artifactSizeGB(filepath.Join(polRoot, dateDir.Name(), name))
			if err != nil {
				return nil, Error.Wrap(err)
			}
			md.AddSingle(SingleRecord{
				Date:          date,
				File:          path.Join("polarimetry", dateDir.Name(), name),
				Decomposition: DecompositionHAlpha,
				SizeGB:        size,
			})
		}
	}

	if err := store.saveLocked(ctx, part, md); err != nil {
		return nil, err
	}

	store.log.Info("Metadata rebuilt",
		zap.String("Partition", part.ID()),
		zap.Int("Pairs", len(md.Pairs)),
		zap.Int("Singles", len(md.Singles)))
	return md, nil
}

// RebuildAll rebuilds every partition under the repository root.
func (store *Store) RebuildAll(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	parts, err := store.Partitions(ctx)
	if err != nil {
		return err
	}
	for _, part := range parts {
		if _, err := store.Rebuild(ctx, part); err != nil {
			return Error.New("rebuilding %s: %w", part, err)
		}
	}
	return nil
}
