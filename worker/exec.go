// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package worker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config configures the external processing command.
type Config struct {
	Command        string        `help:"processing command invoked once per job" default:"goshawk-gpt"`
	NoCoverageCode int           `help:"exit code the command uses to signal missing subswath coverage" default:"10"`
	Timeout        time.Duration `help:"maximum wall clock time per job, 0 disables" default:"2h0m0s"`
}

// ExecProcessor shells out to the configured command once per job. The
// command is invoked as
//
//	<command> insar --partition <id> --pair <master_slave/kind> --workspace <dir> <input>...
//	<command> polarimetry --partition <id> --date <yyyymmdd> --workspace <dir> <input>...
//
// and must write the produced artifact paths to stdout, one per line. Exit
// code 0 is Success, the configured no-coverage code is NoCoverage, any
// other exit code is Failed.
type ExecProcessor struct {
	log    *zap.Logger
	config Config
}

// NewExecProcessor creates an ExecProcessor.
func NewExecProcessor(log *zap.Logger, config Config) *ExecProcessor {
	return &ExecProcessor{
		log:    log,
		config: config,
	}
}

// Process implements Processor. Cancellation kills the subprocess and
// returns the context error; the job's results must not be registered.
func (proc *ExecProcessor) Process(ctx context.Context, job Job) (_ Result, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := job.Validate(); err != nil {
		return Result{}, err
	}

	if proc.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, proc.config.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, proc.config.Command, commandArgs(job)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	proc.log.Debug("Invoking processor",
		zap.String("Command", proc.config.Command),
		zap.Stringer("Job", job))

	runErr := cmd.Run()

	if ctx.Err() != nil {
		return Result{}, Error.Wrap(ctx.Err())
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return Result{}, Error.Wrap(runErr)
		}

		code := exitErr.ExitCode()
		if code == proc.config.NoCoverageCode {
			mon.Counter("jobs_no_coverage").Inc(1)
			proc.log.Info("No subswath coverage", zap.Stringer("Job", job))
			return Result{Outcome: NoCoverage}, nil
		}
		mon.Counter("jobs_failed").Inc(1)
		proc.log.Warn("Processor failed",
			zap.Stringer("Job", job),
			zap.Int("ExitCode", code),
			zap.String("Stderr", tail(stderr.Bytes(), 4096)))
		return Result{Outcome: Failed}, nil
	}

	result := Result{Outcome: Success, Outputs: outputLines(stdout.Bytes())}
	mon.Counter("jobs_succeeded").Inc(1)
	proc.log.Debug("Processor succeeded",
		zap.Stringer("Job", job),
		zap.Int("Outputs", len(result.Outputs)))
	return result, nil
}

func commandArgs(job Job) []string {
	args := []string{job.Task(), "--partition", job.Partition.ID()}
	switch {
	case job.Pair != nil:
		args = append(args, "--pair", job.Pair.String())
	case job.Date != nil:
		args = append(args, "--date", job.Date.String())
	}
	args = append(args, "--workspace", job.Workspace)
	return append(args, job.Inputs...)
}

func outputLines(buf []byte) []string {
	var outputs []string
	scanner := bufio.NewScanner(bytes.NewReader(buf))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			outputs = append(outputs, line)
		}
	}
	return outputs
}

// tail returns at most n bytes from the end of buf.
func tail(buf []byte, n int) string {
	if len(buf) <= n {
		return string(buf)
	}
	return string(buf[len(buf)-n:])
}
