// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package repository_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/repository"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

func testPartition() sar.Partition {
	return sar.Partition{Orbit: sar.Ascending, Subswath: sar.IW1, Track: 42}
}

func date(s string) sar.Date {
	d, err := sar.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNewMetadata(t *testing.T) {
	md := repository.NewMetadata(testPartition())

	assert.Equal(t, "asce_iw1_t042", md.TrackID)
	assert.Equal(t, sar.Ascending, md.Orbit.Direction)
	assert.Equal(t, 42, md.Orbit.RelativeOrbit)
	assert.Equal(t, "IW1", md.Subswath)
	assert.NotNil(t, md.Pairs)
	assert.NotNil(t, md.Singles)
	assert.False(t, md.Info.Created.IsZero())
}

func TestPairRecordJSON(t *testing.T) {
	rec := repository.PairRecord{
		Key:    sar.NewPairKey(date("20240101"), date("20240113"), sar.ShortPair),
		File:   "insar/short/Ifg_20240101_20240113.dim",
		SizeGB: 1.25,
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "insar/short/Ifg_20240101_20240113.dim", raw["file"])
	assert.Equal(t, "20240101", raw["master_date"])
	assert.Equal(t, "20240113", raw["slave_date"])
	assert.Equal(t, "short", raw["pair_type"])
	assert.Equal(t, float64(12), raw["temporal_baseline_days"])
	assert.Equal(t, 1.25, raw["size_gb"])

	var back repository.PairRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec, back)
}

func TestPairRecordJSONRejectsCorrupt(t *testing.T) {
	var rec repository.PairRecord

	// slave before master
	err := json.Unmarshal([]byte(`{
		"file": "insar/short/x.dim",
		"master_date": "20240113", "slave_date": "20240101",
		"pair_type": "short"
	}`), &rec)
	require.Error(t, err)

	// unknown pair type
	err = json.Unmarshal([]byte(`{
		"file": "insar/short/x.dim",
		"master_date": "20240101", "slave_date": "20240113",
		"pair_type": "medium"
	}`), &rec)
	require.Error(t, err)

	// missing pair type
	err = json.Unmarshal([]byte(`{
		"file": "insar/short/x.dim",
		"master_date": "20240101", "slave_date": "20240113"
	}`), &rec)
	require.Error(t, err)
}

func TestMetadataLookups(t *testing.T) {
	md := repository.NewMetadata(testPartition())
	short := sar.NewPairKey(date("20240101"), date("20240113"), sar.ShortPair)
	long := sar.NewPairKey(date("20240101"), date("20240125"), sar.LongPair)

	md.AddPair(repository.PairRecord{Key: short, File: "insar/short/a.dim"})
	md.AddPair(repository.PairRecord{Key: long, File: "insar/long/b.dim"})
	md.AddSingle(repository.SingleRecord{
		Date: date("20240113"), File: "polarimetry/20240113/c.dim",
		Decomposition: repository.DecompositionHAlpha,
	})

	assert.True(t, md.HasPair(short))
	assert.True(t, md.HasPair(long))
	assert.False(t, md.HasPair(sar.NewPairKey(date("20240113"), date("20240125"), sar.ShortPair)))

	rec, ok := md.FindPair(long)
	require.True(t, ok)
	assert.Equal(t, "insar/long/b.dim", rec.File)

	assert.True(t, md.HasSingle(date("20240113")))
	assert.False(t, md.HasSingle(date("20240101")))

	assert.Equal(t, []sar.PairKey{short, long}, md.PairKeys())
	assert.Equal(t,
		[]sar.Date{date("20240101"), date("20240113"), date("20240125")},
		md.Dates())
}
