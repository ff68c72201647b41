// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package worker defines the boundary to the out-of-process SAR processor.
// The processor owns everything about how an artifact gets computed,
// including fallback between subswaths; this side only hands it a job and
// consumes its three valued outcome.
package worker

import (
	"context"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

var (
	// Error is the default error class for the worker package.
	Error = errs.Class("worker")

	mon = monkit.Package()
)

// Outcome is the result of one processing job.
type Outcome byte

const (
	// InvalidOutcome is the zero value.
	InvalidOutcome = Outcome(iota)
	// Success means the job produced its artifacts.
	Success
	// Failed means the job did not complete. It may be retried later.
	Failed
	// NoCoverage means the partition's subswath does not cover the area of
	// interest for these inputs. It is terminal, retrying cannot succeed.
	NoCoverage
)

// String returns the lowercase outcome name.
func (outcome Outcome) String() string {
	switch outcome {
	case Success:
		return "success"
	case Failed:
		return "failed"
	case NoCoverage:
		return "no coverage"
	}
	return "invalid"
}

// Job is one unit of processing: an interferometric pair or a single
// acquisition date within a partition. Inputs are the raw acquisition paths
// the processor reads; Workspace is a scratch directory owned by the job.
type Job struct {
	Partition sar.Partition
	Pair      *sar.PairKey
	Date      *sar.Date
	Inputs    []string
	Workspace string
}

// Validate checks that the job names exactly one unit of work.
func (job Job) Validate() error {
	if !job.Partition.Valid() {
		return Error.New("job has invalid partition %q", job.Partition.ID())
	}
	if (job.Pair == nil) == (job.Date == nil) {
		return Error.New("job must carry exactly one of pair or date")
	}
	if job.Workspace == "" {
		return Error.New("job has no workspace")
	}
	return nil
}

// Task returns the processing task name, "insar" for pair jobs and
// "polarimetry" for single date jobs.
func (job Job) Task() string {
	if job.Pair != nil {
		return "insar"
	}
	return "polarimetry"
}

// String returns a log friendly job identifier.
func (job Job) String() string {
	switch {
	case job.Pair != nil:
		return job.Partition.ID() + "/" + job.Pair.String()
	case job.Date != nil:
		return job.Partition.ID() + "/" + job.Date.String()
	}
	return job.Partition.ID()
}

// Result is what a processor reports back for one job. Outputs lists the
// produced artifact paths and is only meaningful on Success.
type Result struct {
	Outcome Outcome
	Outputs []string
}

// Processor runs one job to completion. Implementations must not leave
// partial artifacts behind when ctx is canceled.
type Processor interface {
	Process(ctx context.Context, job Job) (Result, error)
}
