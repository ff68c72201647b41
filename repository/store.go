// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

// Config configures the metadata store.
type Config struct {
	RootDir string `help:"base directory of canonical partition storage" default:"$CONFDIR/repository"`
}

// Publisher receives a copy of every successfully persisted metadata
// document. Implementations are advisory: a failing Publisher must swallow
// its own errors and never fail a save.
type Publisher interface {
	Publish(ctx context.Context, part sar.Partition, data []byte)
}

// Store reads and writes per-partition metadata and artifacts rooted at a
// repository base directory.
//
// Within one partition all metadata writes are serialized through an
// in-process mutex. Partitions own disjoint directory trees and are
// independent of each other.
type Store struct {
	log       *zap.Logger
	root      string
	publisher Publisher

	mu    sync.Mutex
	locks map[sar.Partition]*sync.Mutex
}

// New creates a metadata store. publisher may be nil.
func New(log *zap.Logger, config Config, publisher Publisher) *Store {
	return &Store{
		log:       log,
		root:      config.RootDir,
		publisher: publisher,
		locks:     map[sar.Partition]*sync.Mutex{},
	}
}

// Root returns the repository base directory.
func (store *Store) Root() string { return store.root }

// PartitionDir returns the absolute directory of a partition.
func (store *Store) PartitionDir(part sar.Partition) string {
	return filepath.Join(store.root, part.Dir())
}

// ArtifactPath resolves a metadata-relative artifact file to its absolute
// path under the partition dir.
func (store *Store) ArtifactPath(part sar.Partition, file string) string {
	return filepath.Join(store.PartitionDir(part), filepath.FromSlash(file))
}

func (store *Store) metadataPath(part sar.Partition) string {
	return filepath.Join(store.PartitionDir(part), MetadataFilename)
}

// lockPartition acquires the single-writer lock of a partition and returns
// the release func.
func (store *Store) lockPartition(part sar.Partition) (unlock func()) {
	store.mu.Lock()
	lock, ok := store.locks[part]
	if !ok {
		lock = new(sync.Mutex)
		store.locks[part] = lock
	}
	store.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// EnsurePartition creates the partition directory skeleton and returns the
// partition dir.
func (store *Store) EnsurePartition(ctx context.Context, part sar.Partition) (_ string, err error) {
	defer mon.Task()(&ctx)(&err)

	dir := store.PartitionDir(part)
	for _, sub := range []string{
		filepath.Join("insar", sar.ShortPair.String()),
		filepath.Join("insar", sar.LongPair.String()),
		"polarimetry",
	} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return "", Error.Wrap(err)
		}
	}
	return dir, nil
}

// Load reads the metadata of a partition. An absent metadata file yields
// fresh empty metadata; an unreadable or corrupt file is an error, so that
// callers can stay fail-closed.
func (store *Store) Load(ctx context.Context, part sar.Partition) (_ *Metadata, err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := os.ReadFile(store.metadataPath(part))
	if err != nil {
		if os.IsNotExist(err) {
			return NewMetadata(part), nil
		}
		return nil, Error.Wrap(err)
	}

	md := &Metadata{}
	if err := json.Unmarshal(data, md); err != nil {
		return nil, Error.New("corrupt metadata for %s: %w", part, err)
	}
	return md, nil
}

// Save recomputes derived fields and persists metadata atomically.
func (store *Store) Save(ctx context.Context, part sar.Partition, md *Metadata) (err error) {
	defer mon.Task()(&ctx)(&err)
	defer store.lockPartition(part)()
	return store.saveLocked(ctx, part, md)
}

// saveLocked must be called with the partition lock held.
func (store *Store) saveLocked(ctx context.Context, part sar.Partition, md *Metadata) error {
	md.recompute(time.Now().UTC())

	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return Error.Wrap(err)
	}

	path := store.metadataPath(part)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Error.Wrap(err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return Error.Wrap(err)
	}

	store.log.Debug("Metadata saved",
		zap.String("Partition", part.ID()),
		zap.Int("Pairs", len(md.Pairs)),
		zap.Int("Singles", len(md.Singles)))

	if store.publisher != nil {
		store.publisher.Publish(ctx, part, data)
	}
	return nil
}

// Verify reports whether the artifact file recorded in metadata actually
// exists on disk. A metadata record is never proof of existence by itself.
func (store *Store) Verify(ctx context.Context, part sar.Partition, file string) bool {
	_, err := os.Stat(store.ArtifactPath(part, file))
	return err == nil
}

// Partitions enumerates the partition directories under the repository
// root. Unrelated entries are skipped.
func (store *Store) Partitions(ctx context.Context) (_ []sar.Partition, err error) {
	defer mon.Task()(&ctx)(&err)

	groups, err := os.ReadDir(store.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, Error.Wrap(err)
	}

	var parts []sar.Partition
	for _, group := range groups {
		if !group.IsDir() {
			continue
		}
		tracks, err := os.ReadDir(filepath.Join(store.root, group.Name()))
		if err != nil {
			return nil, Error.Wrap(err)
		}
		for _, track := range tracks {
			if !track.IsDir() {
				continue
			}
			part, err := sar.ParsePartitionDir(filepath.Join(group.Name(), track.Name()))
			if err != nil {
				store.log.Debug("Skipping unrecognized directory",
					zap.String("Group", group.Name()),
					zap.String("Name", track.Name()))
				continue
			}
			parts = append(parts, part)
		}
	}

	sort.Slice(parts, func(i, k int) bool { return parts[i].ID() < parts[k].ID() })
	return parts, nil
}

// writeFileAtomic writes data via a temp file and rename, syncing before
// the rename so readers never observe a partial document.
func writeFileAtomic(path string, data []byte, mode os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errs.Combine(err, os.Remove(tmp.Name()))
		}
	}()

	if err = tmp.Chmod(mode); err != nil {
		return errs.Combine(err, tmp.Close())
	}
	if _, err = tmp.Write(data); err != nil {
		return errs.Combine(err, tmp.Close())
	}
	if err = tmp.Sync(); err != nil {
		return errs.Combine(err, tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
