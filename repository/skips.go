// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

// SkipsFilename is the per-partition sidecar recording work the processing
// worker declared terminally unprocessable.
const SkipsFilename = "skips.json"

// Skip marks a planned pair that must not be attempted again, typically
// because the partition's subswath has no coverage for those acquisitions.
// Skips never relax retention checks; they only stop the series driver from
// re-running a job that cannot succeed.
type Skip struct {
	Key      sar.PairKey
	Reason   string
	Recorded time.Time
}

type skipJSON struct {
	Pair       string    `json:"pair"`
	Reason     string    `json:"reason"`
	RecordedAt time.Time `json:"recorded_at"`
}

// MarshalJSON implements json.Marshaler.
func (skip Skip) MarshalJSON() ([]byte, error) {
	return json.Marshal(skipJSON{
		Pair:       skip.Key.String(),
		Reason:     skip.Reason,
		RecordedAt: skip.Recorded,
	})
}

// UnmarshalJSON implements json.Unmarshaler, rejecting records whose pair
// key does not parse.
func (skip *Skip) UnmarshalJSON(data []byte) error {
	var raw skipJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Error.Wrap(err)
	}
	key, err := sar.ParsePairKey(raw.Pair)
	if err != nil {
		return Error.Wrap(err)
	}
	skip.Key = key
	skip.Reason = raw.Reason
	skip.Recorded = raw.RecordedAt
	return nil
}

func (store *Store) skipsPath(part sar.Partition) string {
	return filepath.Join(store.PartitionDir(part), SkipsFilename)
}

// LoadSkips reads the partition's skip records. An absent file is an empty
// set, a corrupt file is an error.
func (store *Store) LoadSkips(ctx context.Context, part sar.Partition) (_ []Skip, err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := os.ReadFile(store.skipsPath(part))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, Error.Wrap(err)
	}

	var skips []Skip
	if err := json.Unmarshal(data, &skips); err != nil {
		return nil, Error.New("corrupt skip records for %s: %w", part, err)
	}
	return skips, nil
}

// AddSkip persists a skip record, deduplicating on the pair key.
func (store *Store) AddSkip(ctx context.Context, part sar.Partition, skip Skip) (err error) {
	defer mon.Task()(&ctx)(&err)
	defer store.lockPartition(part)()

	skips, err := store.LoadSkips(ctx, part)
	if err != nil {
		return err
	}
	for _, existing := range skips {
		if existing.Key == skip.Key {
			return nil
		}
	}
	skips = append(skips, skip)
	sort.Slice(skips, func(i, k int) bool { return skips[i].Key.Less(skips[k].Key) })

	data, err := json.MarshalIndent(skips, "", "  ")
	if err != nil {
		return Error.Wrap(err)
	}
	path := store.skipsPath(part)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Error.Wrap(err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return Error.Wrap(err)
	}

	store.log.Info("Pair marked unprocessable",
		zap.String("Partition", part.ID()),
		zap.Stringer("Pair", skip.Key),
		zap.String("Reason", skip.Reason))
	return nil
}

// SkipKeys extracts the pair keys of the given skip records.
func SkipKeys(skips []Skip) []sar.PairKey {
	keys := make([]sar.PairKey, len(skips))
	for i, skip := range skips {
		keys[i] = skip.Key
	}
	return keys
}
