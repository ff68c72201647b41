// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package sar_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

func TestDateParseString(t *testing.T) {
	date, err := sar.ParseDate("20240315")
	require.NoError(t, err)
	assert.Equal(t, "20240315", date.String())
	assert.Equal(t, sar.NewDate(2024, time.March, 15), date)

	_, err = sar.ParseDate("2024-03-15")
	assert.Error(t, err)
	_, err = sar.ParseDate("20241315")
	assert.Error(t, err)
	_, err = sar.ParseDate("")
	assert.Error(t, err)
}

func TestDateOrdering(t *testing.T) {
	a := sar.NewDate(2024, time.January, 1)
	b := sar.NewDate(2024, time.January, 13)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.After(b))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))

	assert.Equal(t, 12, a.DaysTo(b))
	assert.Equal(t, -12, b.DaysTo(a))
	assert.Equal(t, b, a.AddDays(12))
}

func TestDateDaysAcrossBoundaries(t *testing.T) {
	// month and leap year boundaries
	assert.Equal(t, 12, sar.NewDate(2024, time.February, 25).DaysTo(sar.NewDate(2024, time.March, 8)))
	assert.Equal(t, 366, sar.NewDate(2024, time.January, 1).DaysTo(sar.NewDate(2025, time.January, 1)))
	assert.Equal(t, 365, sar.NewDate(2025, time.January, 1).DaysTo(sar.NewDate(2026, time.January, 1)))
}

func TestDateJSON(t *testing.T) {
	date := sar.NewDate(2024, time.March, 15)

	data, err := json.Marshal(date)
	require.NoError(t, err)
	assert.Equal(t, `"20240315"`, string(data))

	var decoded sar.Date
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, date, decoded)

	assert.Error(t, json.Unmarshal([]byte(`"not-a-date"`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`20240315`), &decoded))
}

func TestSortedUniqueDates(t *testing.T) {
	d1 := sar.NewDate(2024, time.January, 1)
	d2 := sar.NewDate(2024, time.January, 13)
	d3 := sar.NewDate(2024, time.January, 25)

	out := sar.SortedUniqueDates([]sar.Date{d3, d1, d2, d1, d3})
	assert.Equal(t, []sar.Date{d1, d2, d3}, out)

	assert.Empty(t, sar.SortedUniqueDates(nil))
}
