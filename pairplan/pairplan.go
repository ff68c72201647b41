// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package pairplan computes the expected interferometric pair set of a
// partition from its acquisition date list, and the minimal missing work
// against the pairs already recorded.
package pairplan

import (
	"github.com/zeebo/errs"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

// Error is the default error class for the pairplan package.
var Error = errs.Class("pairplan")

// Limits bounds the temporal baseline per pair kind, in days.
type Limits struct {
	Short int `help:"maximum short pair baseline in days" default:"12"`
	Long  int `help:"maximum long pair baseline in days" default:"24"`
}

// DefaultLimits returns the limits matching one and two orbital repeat
// cycles.
func DefaultLimits() Limits { return Limits{Short: 12, Long: 24} }

// Gap is a skipped pair whose baseline exceeds the configured limit. A gap
// means acquisitions are missing from the series, not that planning failed.
type Gap struct {
	Kind sar.PairKind
	From sar.Date
	To   sar.Date
	Days int
}

// Plan is the expected pair set of a partition for one date list. Pairs are
// ordered by master date, short before long on equal dates.
type Plan struct {
	Pairs []sar.PairKey
	Gaps  []Gap
}

// Expected computes the expected pair set for a strictly ascending date
// list. Short pairs join consecutive dates, long pairs skip one date; long
// pairs are planned independently of whether the covering short pairs made
// the cut. Out of order or duplicated dates are rejected.
func Expected(dates []sar.Date, limits Limits) (Plan, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i-1].Before(dates[i]) {
			return Plan{}, Error.New("dates not strictly ascending at index %d: %s then %s",
				i, dates[i-1], dates[i])
		}
	}

	var plan Plan
	for i := range dates {
		if i+1 < len(dates) {
			days := dates[i].DaysTo(dates[i+1])
			if days > limits.Short {
				plan.Gaps = append(plan.Gaps, Gap{Kind: sar.ShortPair, From: dates[i], To: dates[i+1], Days: days})
			} else {
				plan.Pairs = append(plan.Pairs, sar.PairKey{Master: dates[i], Slave: dates[i+1], Kind: sar.ShortPair})
			}
		}
		if i+2 < len(dates) {
			days := dates[i].DaysTo(dates[i+2])
			if days > limits.Long {
				plan.Gaps = append(plan.Gaps, Gap{Kind: sar.LongPair, From: dates[i], To: dates[i+2], Days: days})
			} else {
				plan.Pairs = append(plan.Pairs, sar.PairKey{Master: dates[i], Slave: dates[i+2], Kind: sar.LongPair})
			}
		}
	}
	return plan, nil
}

// Involving returns the planned pairs that reference the given date.
func (plan Plan) Involving(date sar.Date) []sar.PairKey {
	var keys []sar.PairKey
	for _, key := range plan.Pairs {
		if key.Involves(date) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Missing is the outstanding work for a partition: the pairs not yet
// recorded and the distinct dates they reference. The dates are the minimal
// raw inputs that must be materialized before invoking the worker.
type Missing struct {
	Pairs []sar.PairKey
	Dates []sar.Date
}

// Empty reports whether the partition is fully processed for its current
// date list. Callers must skip all downstream work when true.
func (missing Missing) Empty() bool { return len(missing.Pairs) == 0 }

// Diff subtracts the recorded pairs from the expected set, matching on the
// full (master, slave, kind) key.
func Diff(expected, existing []sar.PairKey) Missing {
	have := make(map[sar.PairKey]struct{}, len(existing))
	for _, key := range existing {
		have[key] = struct{}{}
	}

	var missing Missing
	var dates []sar.Date
	for _, key := range expected {
		if _, ok := have[key]; ok {
			continue
		}
		missing.Pairs = append(missing.Pairs, key)
		dates = append(dates, key.Master, key.Slave)
	}
	missing.Dates = sar.SortedUniqueDates(dates)
	return missing
}
