// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package pairplan_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/pairplan"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

// series returns dates offset by the given day counts from a fixed origin.
func series(offsets ...int) []sar.Date {
	origin := sar.NewDate(2024, time.January, 1)
	dates := make([]sar.Date, len(offsets))
	for i, off := range offsets {
		dates[i] = origin.AddDays(off)
	}
	return dates
}

func TestExpectedSmallLists(t *testing.T) {
	limits := pairplan.DefaultLimits()

	plan, err := pairplan.Expected(nil, limits)
	require.NoError(t, err)
	assert.Empty(t, plan.Pairs)
	assert.Empty(t, plan.Gaps)

	plan, err = pairplan.Expected(series(0), limits)
	require.NoError(t, err)
	assert.Empty(t, plan.Pairs)

	plan, err = pairplan.Expected(series(0, 12), limits)
	require.NoError(t, err)
	require.Len(t, plan.Pairs, 1)
	assert.Equal(t, sar.ShortPair, plan.Pairs[0].Kind)
	assert.Empty(t, plan.Gaps)
}

func TestExpectedRegularSeries(t *testing.T) {
	dates := series(0, 12, 24, 36, 48)

	plan, err := pairplan.Expected(dates, pairplan.DefaultLimits())
	require.NoError(t, err)

	var short, long int
	for _, key := range plan.Pairs {
		switch key.Kind {
		case sar.ShortPair:
			short++
			assert.LessOrEqual(t, key.Baseline(), 12)
		case sar.LongPair:
			long++
			assert.LessOrEqual(t, key.Baseline(), 24)
		}
	}
	assert.Equal(t, len(dates)-1, short, "every consecutive pair within limits")
	assert.Equal(t, len(dates)-2, long)
	assert.Empty(t, plan.Gaps)
}

func TestExpectedSkipsGaps(t *testing.T) {
	// 14 days between the first two dates: the short pair and the long
	// pair over it are skipped, the rest of the series is unaffected.
	plan, err := pairplan.Expected(series(0, 14, 26, 38), pairplan.DefaultLimits())
	require.NoError(t, err)

	for _, key := range plan.Pairs {
		limit := 12
		if key.Kind == sar.LongPair {
			limit = 24
		}
		assert.LessOrEqual(t, key.Baseline(), limit, key.String())
	}

	require.Len(t, plan.Gaps, 2)
	assert.Equal(t, sar.ShortPair, plan.Gaps[0].Kind)
	assert.Equal(t, 14, plan.Gaps[0].Days)
	assert.Equal(t, sar.LongPair, plan.Gaps[1].Kind)
	assert.Equal(t, 26, plan.Gaps[1].Days)
}

func TestExpectedLongIndependentOfShort(t *testing.T) {
	// short(0,14) exceeds its limit but long(0,24) does not
	plan, err := pairplan.Expected(series(0, 14, 24), pairplan.DefaultLimits())
	require.NoError(t, err)

	var kinds []sar.PairKind
	for _, key := range plan.Pairs {
		kinds = append(kinds, key.Kind)
	}
	assert.Contains(t, kinds, sar.LongPair)
	require.Len(t, plan.Gaps, 1)
	assert.Equal(t, sar.ShortPair, plan.Gaps[0].Kind)
}

func TestExpectedRejectsBadInput(t *testing.T) {
	limits := pairplan.DefaultLimits()

	_, err := pairplan.Expected(series(12, 0), limits)
	assert.Error(t, err, "descending")

	_, err = pairplan.Expected(series(0, 12, 12), limits)
	assert.Error(t, err, "duplicate")
}

func TestInvolving(t *testing.T) {
	dates := series(0, 12, 24)
	plan, err := pairplan.Expected(dates, pairplan.DefaultLimits())
	require.NoError(t, err)

	involving := plan.Involving(dates[1])
	require.Len(t, involving, 2, "middle date joins both short pairs")
	for _, key := range involving {
		assert.True(t, key.Involves(dates[1]))
	}

	assert.Len(t, plan.Involving(dates[0]), 2, "first date: one short, one long")
	assert.Empty(t, plan.Involving(dates[0].AddDays(1)))
}

func TestDiff(t *testing.T) {
	plan, err := pairplan.Expected(series(0, 12, 24, 36, 48), pairplan.DefaultLimits())
	require.NoError(t, err)
	require.Len(t, plan.Pairs, 7, "4 short and 3 long")

	// everything missing
	missing := pairplan.Diff(plan.Pairs, nil)
	assert.Equal(t, plan.Pairs, missing.Pairs)
	assert.Len(t, missing.Dates, 5)

	// register all but one long pair
	var existing []sar.PairKey
	var lastLong sar.PairKey
	for _, key := range plan.Pairs {
		if key.Kind == sar.LongPair {
			lastLong = key
		}
	}
	for _, key := range plan.Pairs {
		if key != lastLong {
			existing = append(existing, key)
		}
	}

	missing = pairplan.Diff(plan.Pairs, existing)
	require.Len(t, missing.Pairs, 1)
	assert.Equal(t, lastLong, missing.Pairs[0])
	assert.Equal(t, []sar.Date{lastLong.Master, lastLong.Slave}, missing.Dates,
		"only the dates of the missing pair are required")
	assert.False(t, missing.Empty())

	// fully processed
	missing = pairplan.Diff(plan.Pairs, plan.Pairs)
	assert.True(t, missing.Empty())
	assert.Empty(t, missing.Dates)

	// missing and existing stay disjoint, their union covers expected
	missing = pairplan.Diff(plan.Pairs, existing)
	seen := make(map[sar.PairKey]bool)
	for _, key := range existing {
		seen[key] = true
	}
	for _, key := range missing.Pairs {
		assert.False(t, seen[key], "missing overlaps existing")
		seen[key] = true
	}
	for _, key := range plan.Pairs {
		assert.True(t, seen[key], "expected pair in neither set")
	}
}
