// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package repository persists per-partition artifact metadata and owns the
// canonical on-disk layout of processed interferometric products.
package repository

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

var (
	// Error is a repository error.
	Error = errs.Class("repository")

	mon = monkit.Package()
)

// MetadataFilename is the per-partition metadata file name.
const MetadataFilename = "metadata.json"

// DecompositionHAlpha is the decomposition label of the dual-pol
// per-date products.
const DecompositionHAlpha = "H-Alpha Dual Pol"

// OrbitInfo describes the orbit a partition belongs to.
type OrbitInfo struct {
	Direction     sar.OrbitDirection `json:"direction"`
	RelativeOrbit int                `json:"relative_orbit"`
}

// PairRecord is one registered interferometric pair artifact. File is the
// artifact path relative to the partition dir, always forward slashed.
type PairRecord struct {
	Key    sar.PairKey
	File   string
	SizeGB float64
}

type pairRecordJSON struct {
	File             string       `json:"file"`
	MasterDate       sar.Date     `json:"master_date"`
	SlaveDate        sar.Date     `json:"slave_date"`
	PairType         sar.PairKind `json:"pair_type"`
	TemporalBaseline int          `json:"temporal_baseline_days"`
	SizeGB           float64      `json:"size_gb"`
}

// MarshalJSON implements json.Marshaler. The temporal baseline is derived
// from the pair key, never stored independently.
func (rec PairRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(pairRecordJSON{
		File:             rec.File,
		MasterDate:       rec.Key.Master,
		SlaveDate:        rec.Key.Slave,
		PairType:         rec.Key.Kind,
		TemporalBaseline: rec.Key.Baseline(),
		SizeGB:           rec.SizeGB,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (rec *PairRecord) UnmarshalJSON(data []byte) error {
	var raw pairRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Error.Wrap(err)
	}
	if raw.PairType != sar.ShortPair && raw.PairType != sar.LongPair {
		return Error.New("pair record %q has invalid type", raw.File)
	}
	if !raw.SlaveDate.After(raw.MasterDate) {
		return Error.New("pair record %q has non-increasing dates", raw.File)
	}
	rec.Key = sar.PairKey{Master: raw.MasterDate, Slave: raw.SlaveDate, Kind: raw.PairType}
	rec.File = raw.File
	rec.SizeGB = raw.SizeGB
	return nil
}

// SingleRecord is one registered per-date artifact.
type SingleRecord struct {
	File          string   `json:"file"`
	Date          sar.Date `json:"date"`
	Decomposition string   `json:"decomposition"`
	SizeGB        float64  `json:"size_gb"`
}

// Stats are derived counts, recomputed from the artifact lists on every
// save and never maintained by hand.
type Stats struct {
	ShortPairs  int     `json:"total_insar_short"`
	LongPairs   int     `json:"total_insar_long"`
	Singles     int     `json:"total_polarimetry"`
	TotalSizeGB float64 `json:"total_size_gb"`
}

// TemporalRange spans the acquisition dates referenced by a partition's
// artifacts.
type TemporalRange struct {
	Start    sar.Date `json:"start"`
	End      sar.Date `json:"end"`
	NumDates int      `json:"num_dates"`
}

// ProcessingInfo records when the partition metadata was created and last
// written.
type ProcessingInfo struct {
	Created     time.Time `json:"created"`
	LastUpdated time.Time `json:"last_updated"`
}

// Metadata is the persisted aggregate for one partition.
type Metadata struct {
	TrackID  string         `json:"track_id"`
	Orbit    OrbitInfo      `json:"orbit"`
	Subswath string         `json:"subswath"`
	Pairs    []PairRecord   `json:"insar_products"`
	Singles  []SingleRecord `json:"polarimetry_products"`
	Stats    Stats          `json:"statistics"`
	Temporal *TemporalRange `json:"temporal_range,omitempty"`
	Info     ProcessingInfo `json:"processing_info"`
}

// NewMetadata returns empty metadata for a partition.
func NewMetadata(part sar.Partition) *Metadata {
	now := time.Now().UTC()
	return &Metadata{
		TrackID: part.ID(),
		Orbit: OrbitInfo{
			Direction:     part.Orbit,
			RelativeOrbit: int(part.Track),
		},
		Subswath: part.Subswath.String(),
		Pairs:    []PairRecord{},
		Singles:  []SingleRecord{},
		Info:     ProcessingInfo{Created: now, LastUpdated: now},
	}
}

// FindPair returns the record for key, if registered.
func (md *Metadata) FindPair(key sar.PairKey) (PairRecord, bool) {
	for _, rec := range md.Pairs {
		if rec.Key == key {
			return rec, true
		}
	}
	return PairRecord{}, false
}

// HasPair reports whether key is registered.
func (md *Metadata) HasPair(key sar.PairKey) bool {
	_, ok := md.FindPair(key)
	return ok
}

// FindSingle returns the per-date record for date, if registered.
func (md *Metadata) FindSingle(date sar.Date) (SingleRecord, bool) {
	for _, rec := range md.Singles {
		if rec.Date == date {
			return rec, true
		}
	}
	return SingleRecord{}, false
}

// HasSingle reports whether a per-date artifact is registered for date.
func (md *Metadata) HasSingle(date sar.Date) bool {
	_, ok := md.FindSingle(date)
	return ok
}

// AddPair appends a pair record.
func (md *Metadata) AddPair(rec PairRecord) { md.Pairs = append(md.Pairs, rec) }

// AddSingle appends a per-date record.
func (md *Metadata) AddSingle(rec SingleRecord) { md.Singles = append(md.Singles, rec) }

// PairKeys returns the keys of all registered pairs.
func (md *Metadata) PairKeys() []sar.PairKey {
	keys := make([]sar.PairKey, len(md.Pairs))
	for i, rec := range md.Pairs {
		keys[i] = rec.Key
	}
	return keys
}

// Dates returns the sorted distinct acquisition dates referenced by any
// registered artifact.
func (md *Metadata) Dates() []sar.Date {
	dates := make([]sar.Date, 0, 2*len(md.Pairs)+len(md.Singles))
	for _, rec := range md.Pairs {
		dates = append(dates, rec.Key.Master, rec.Key.Slave)
	}
	for _, rec := range md.Singles {
		dates = append(dates, rec.Date)
	}
	return sar.SortedUniqueDates(dates)
}

// recompute refreshes the derived fields before persisting.
func (md *Metadata) recompute(now time.Time) {
	sort.Slice(md.Pairs, func(i, k int) bool {
		return md.Pairs[i].Key.Less(md.Pairs[k].Key)
	})
	sort.Slice(md.Singles, func(i, k int) bool {
		if md.Singles[i].Date != md.Singles[k].Date {
			return md.Singles[i].Date.Before(md.Singles[k].Date)
		}
		return md.Singles[i].File < md.Singles[k].File
	})

	var stats Stats
	for _, rec := range md.Pairs {
		switch rec.Key.Kind {
		case sar.ShortPair:
			stats.ShortPairs++
		case sar.LongPair:
			stats.LongPairs++
		}
		stats.TotalSizeGB += rec.SizeGB
	}
	stats.Singles = len(md.Singles)
	for _, rec := range md.Singles {
		stats.TotalSizeGB += rec.SizeGB
	}
	md.Stats = stats

	if dates := md.Dates(); len(dates) > 0 {
		md.Temporal = &TemporalRange{
			Start:    dates[0],
			End:      dates[len(dates)-1],
			NumDates: len(dates),
		}
	}
	md.Info.LastUpdated = now
}
