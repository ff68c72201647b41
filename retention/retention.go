// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package retention decides which raw acquisitions are safe to delete.
//
// Deletion is the only irreversible operation in the repository, so every
// decision here is fail-closed: a date is deletable only on positive proof
// that every artifact depending on it is durably present, in every
// partition that references it. Any ambiguity blocks.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/pairplan"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/repository"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

var (
	// Error is a retention error.
	Error = errs.Class("retention")

	mon = monkit.Package()
)

// Policy exempts the edges of an extending time series from deletion,
// regardless of artifact completeness.
type Policy struct {
	KeepFirst int `json:"keep_first" help:"never delete the N earliest acquisition dates of a track" default:"3"`
	KeepLast  int `json:"keep_last" help:"never delete the N latest acquisition dates of a track" default:"3"`
}

// DefaultPolicy returns the standard 3/3 window.
func DefaultPolicy() Policy { return Policy{KeepFirst: 3, KeepLast: 3} }

// windowed reports whether position idx of total falls inside the
// protected window.
func (policy Policy) windowed(idx, total int) bool {
	return idx < policy.KeepFirst || idx >= total-policy.KeepLast
}

// Candidate is the decision for one acquisition date.
type Candidate struct {
	Date   sar.Date `json:"date"`
	Reason string   `json:"reason"`
}

// Report is the outcome of analyzing one partition family.
type Report struct {
	Family      string      `json:"family"`
	GeneratedAt time.Time   `json:"generated_at"`
	Policy      Policy      `json:"policy"`
	Deletable   []Candidate `json:"deletable"`
	Blocked     []Candidate `json:"blocked"`
}

// IsDeletable reports whether date ended up in the deletable set.
func (report *Report) IsDeletable(date sar.Date) bool {
	for _, candidate := range report.Deletable {
		if candidate.Date == date {
			return true
		}
	}
	return false
}

// Analyzer applies the retention policy to a partition family.
type Analyzer struct {
	log    *zap.Logger
	store  *repository.Store
	policy Policy
	limits pairplan.Limits
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(log *zap.Logger, store *repository.Store, policy Policy, limits pairplan.Limits) *Analyzer {
	return &Analyzer{
		log:    log,
		store:  store,
		policy: policy,
		limits: limits,
	}
}

// partitionState is one family member's loaded metadata. A load error taints
// the member: every artifact in it counts as unverifiable.
type partitionState struct {
	part sar.Partition
	md   *repository.Metadata
	err  error
}

// Analyze decides deletability for every date of a family's raw acquisition
// date list. The returned report is complete: each input date appears in
// exactly one of Deletable and Blocked.
//
// Expected pairs are planned over the union of dates recorded across the
// whole family and must be registered and on disk in every member
// partition. An error is returned only when the repository itself cannot be
// enumerated; everything else degrades to blocked candidates.
func (analyzer *Analyzer) Analyze(ctx context.Context, family sar.Family, dates []sar.Date) (_ Report, err error) {
	defer mon.Task()(&ctx)(&err)

	dates = sar.SortedUniqueDates(dates)
	report := Report{
		Family:      family.String(),
		GeneratedAt: time.Now().UTC(),
		Policy:      analyzer.policy,
	}

	all, err := analyzer.store.Partitions(ctx)
	if err != nil {
		return Report{}, err
	}
	var states []partitionState
	for _, part := range all {
		if part.Family() != family {
			continue
		}
		md, err := analyzer.store.Load(ctx, part)
		states = append(states, partitionState{part: part, md: md, err: err})
	}

	// dates processed anywhere in the family
	processed := make(map[sar.Date]bool)
	var union []sar.Date
	for _, state := range states {
		if state.err != nil {
			continue
		}
		for _, date := range state.md.Dates() {
			if !processed[date] {
				processed[date] = true
				union = append(union, date)
			}
		}
	}
	union = sar.SortedUniqueDates(union)

	var plan pairplan.Plan
	if len(union) > 0 {
		plan, err = pairplan.Expected(union, analyzer.limits)
		if err != nil {
			return Report{}, err
		}
	}

	for idx, date := range dates {
		candidate := Candidate{Date: date}
		reason, deletable := analyzer.decide(ctx, states, processed, plan, idx, len(dates), date)
		candidate.Reason = reason
		if deletable {
			report.Deletable = append(report.Deletable, candidate)
		} else {
			report.Blocked = append(report.Blocked, candidate)
		}
	}

	mon.IntVal("retention_deletable").Observe(int64(len(report.Deletable)))
	mon.IntVal("retention_blocked").Observe(int64(len(report.Blocked)))
	return report, nil
}

// decide returns the reason and deletability for one date. Every early
// return that is not positive proof blocks.
func (analyzer *Analyzer) decide(ctx context.Context, states []partitionState, processed map[sar.Date]bool, plan pairplan.Plan, idx, total int, date sar.Date) (reason string, deletable bool) {
	if analyzer.policy.windowed(idx, total) {
		return "retention window", false
	}
	if len(states) == 0 {
		return "no partitions on disk for family", false
	}
	if !processed[date] {
		return "not referenced by any partition", false
	}

	involved := plan.Involving(date)
	if len(involved) == 0 {
		return "no expected artifacts involve this date", false
	}

	verified := 0
	for _, state := range states {
		if state.err != nil {
			return fmt.Sprintf("unverifiable: metadata unreadable for %s", state.part), false
		}
		for _, key := range involved {
			rec, ok := state.md.FindPair(key)
			if !ok {
				return fmt.Sprintf("pair %s not registered in %s", key, state.part), false
			}
			if !analyzer.store.Verify(ctx, state.part, rec.File) {
				return fmt.Sprintf("artifact missing on disk: %s/%s", state.part, rec.File), false
			}
			verified++
		}
		if rec, ok := state.md.FindSingle(date); ok {
			if !analyzer.store.Verify(ctx, state.part, rec.File) {
				return fmt.Sprintf("per-date artifact missing on disk: %s/%s", state.part, rec.File), false
			}
			verified++
		}
	}

	return fmt.Sprintf("verified %d artifacts across %d partitions", verified, len(states)), true
}
