// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package repository

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

// RegisterPair copies a completed pair artifact into canonical storage and
// records it in the partition metadata. source is the workspace .dim file;
// its companion .data directory travels with it.
//
// Registration is idempotent: a key already present in metadata is skipped
// rather than treated as an error, so an interrupted run can be repeated.
// The canonical copy is durable before the metadata that references it is
// written; a failed copy records nothing.
func (store *Store) RegisterPair(ctx context.Context, part sar.Partition, key sar.PairKey, source string) (registered bool, err error) {
	defer mon.Task()(&ctx)(&err)

	defer store.lockPartition(part)()

	md, err := store.Load(ctx, part)
	if err != nil {
		return false, err
	}
	if md.HasPair(key) {
		mon.Counter("registration_skipped").Inc(1)
		store.log.Debug("Pair already registered",
			zap.String("Partition", part.ID()),
			zap.Stringer("Pair", key))
		return false, nil
	}

	file := path.Join("insar", key.Kind.String(), key.ArtifactName())
	dest := store.ArtifactPath(part, file)
	if err := copyArtifact(source, dest); err != nil {
		return false, Error.New("copying %s into %s: %w", key, part, err)
	}

	size, err := artifactSizeGB(dest)
	if err != nil {
		return false, Error.Wrap(err)
	}

	md.AddPair(PairRecord{Key: key, File: file, SizeGB: size})
	if err := store.saveLocked(ctx, part, md); err != nil {
		return false, err
	}

	mon.Counter("registered_pairs").Inc(1)
	store.log.Info("Pair registered",
		zap.String("Partition", part.ID()),
		zap.Stringer("Pair", key),
		zap.Float64("SizeGB", size))

	store.linkBack(source, dest)
	return true, nil
}

// RegisterSingle copies a completed per-date artifact into canonical
// storage and records it. Idempotent on the acquisition date.
func (store *Store) RegisterSingle(ctx context.Context, part sar.Partition, date sar.Date, decomposition, source string) (registered bool, err error) {
	defer mon.Task()(&ctx)(&err)

	defer store.lockPartition(part)()

	md, err := store.Load(ctx, part)
	if err != nil {
		return false, err
	}
	if md.HasSingle(date) {
		mon.Counter("registration_skipped").Inc(1)
		store.log.Debug("Date already registered",
			zap.String("Partition", part.ID()),
			zap.Stringer("Date", date))
		return false, nil
	}

	file := path.Join("polarimetry", date.String(), filepath.Base(source))
	dest := store.ArtifactPath(part, file)
	if err := copyArtifact(source, dest); err != nil {
		return false, Error.New("copying %s into %s: %w", date, part, err)
	}

	size, err := artifactSizeGB(dest)
	if err != nil {
		return false, Error.Wrap(err)
	}

	md.AddSingle(SingleRecord{Date: date, File: file, Decomposition: decomposition, SizeGB: size})
	if err := store.saveLocked(ctx, part, md); err != nil {
		return false, err
	}

	mon.Counter("registered_singles").Inc(1)
	store.log.Info("Date registered",
		zap.String("Partition", part.ID()),
		zap.Stringer("Date", date),
		zap.Float64("SizeGB", size))

	store.linkBack(source, dest)
	return true, nil
}

// WorkspaceSummary counts the outcomes of one workspace scan.
type WorkspaceSummary struct {
	PairsRegistered   int
	PairsSkipped      int
	SinglesRegistered int
	SinglesSkipped    int
	Failures          int
}

// RegisterWorkspace scans a processing workspace for completed artifacts
// and registers every one of them. Individual copy failures are logged and
// counted, never fatal to the rest of the scan.
func (store *Store) RegisterWorkspace(ctx context.Context, part sar.Partition, workspace string) (sum WorkspaceSummary, err error) {
	defer mon.Task()(&ctx)(&err)

	insarDir := filepath.Join(workspace, "fusion", "insar")
	for _, name := range listDim(insarDir) {
		key, err := sar.ParsePairArtifact(name)
		if err != nil {
			store.log.Warn("Unrecognized pair artifact",
				zap.String("Name", name), zap.Error(err))
			continue
		}
		registered, err := store.RegisterPair(ctx, part, key, filepath.Join(insarDir, name))
		switch {
		case err != nil:
			sum.Failures++
			store.log.Error("Pair registration failed",
				zap.String("Partition", part.ID()),
				zap.Stringer("Pair", key),
				zap.Error(err))
		case registered:
			sum.PairsRegistered++
		default:
			sum.PairsSkipped++
		}
	}

	polDir := filepath.Join(workspace, "fusion", "polarimetry")
	for _, name := range listDim(polDir) {
		date, err := sar.ParseSingleArtifact(name)
		if err != nil {
			store.log.Warn("Unrecognized per-date artifact",
				zap.String("Name", name), zap.Error(err))
			continue
		}
		registered, err := store.RegisterSingle(ctx, part, date, DecompositionHAlpha, filepath.Join(polDir, name))
		switch {
		case err != nil:
			sum.Failures++
			store.log.Error("Per-date registration failed",
				zap.String("Partition", part.ID()),
				zap.Stringer("Date", date),
				zap.Error(err))
		case registered:
			sum.SinglesRegistered++
		default:
			sum.SinglesSkipped++
		}
	}

	return sum, nil
}

// listDim returns the .dim file names in dir, sorted. A missing dir yields
// nothing.
func listDim(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".dim") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names
}

// linkBack replaces the workspace copy of an already canonical artifact by
// a symlink. Best effort: the canonical copy is durable by now, so a
// failure here only costs disk space.
func (store *Store) linkBack(source, dest string) {
	for _, p := range [][2]string{
		{source, dest},
		{dataDirOf(source), dataDirOf(dest)},
	} {
		src, dst := p[0], p[1]
		info, err := os.Lstat(src)
		if err != nil || info.Mode()&os.ModeSymlink != 0 {
			continue
		}
		abs, err := filepath.Abs(dst)
		if err != nil {
			continue
		}
		if err := os.RemoveAll(src); err != nil {
			store.log.Warn("Workspace copy not replaced by link",
				zap.String("Path", src), zap.Error(err))
			continue
		}
		if err := os.Symlink(abs, src); err != nil {
			store.log.Warn("Workspace link failed",
				zap.String("Path", src), zap.Error(err))
		}
	}
}

// copyArtifact copies a .dim file and its companion .data directory. The
// .data tree is copied first and the .dim renamed into place last, so a
// visible .dim implies a complete artifact.
func copyArtifact(sourceDim, destDim string) error {
	if err := os.MkdirAll(filepath.Dir(destDim), 0o755); err != nil {
		return err
	}

	sourceData := dataDirOf(sourceDim)
	if _, err := os.Stat(sourceData); err == nil {
		if err := copyTree(sourceData, dataDirOf(destDim)); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	return copyFile(sourceDim, destDim)
}

// copyTree copies a directory into place atomically: everything lands in a
// temp dir that is renamed to dst at the end. An existing dst is therefore
// always a complete earlier copy and is kept as is.
func copyTree(src, dst string) (err error) {
	if _, err := os.Stat(dst); err == nil {
		return nil
	}

	tmp, err := os.MkdirTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errs.Combine(err, os.RemoveAll(tmp))
		}
	}()

	err = filepath.WalkDir(src, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(tmp, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(p, target)
	})
	if err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

// copyFile copies src to dst via a temp file, syncing before the rename.
func copyFile(src, dst string) (err error) {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, source.Close()) }()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errs.Combine(err, os.Remove(tmp.Name()))
		}
	}()

	if _, err = io.Copy(tmp, source); err != nil {
		return errs.Combine(err, tmp.Close())
	}
	if err = tmp.Sync(); err != nil {
		return errs.Combine(err, tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// dataDirOf returns the companion raster directory of a .dim path.
func dataDirOf(dimPath string) string {
	return strings.TrimSuffix(dimPath, ".dim") + ".data"
}

// artifactSizeGB totals the .dim file and its .data tree.
func artifactSizeGB(dimPath string) (float64, error) {
	info, err := os.Stat(dimPath)
	if err != nil {
		return 0, err
	}
	total := info.Size()

	err = filepath.WalkDir(dataDirOf(dimPath), func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.Type().IsRegular() {
			info, err := entry.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return 0, err
	}

	return float64(total) / (1 << 30), nil
}
