// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package process wires cobra commands to layered configuration, signal
// aware contexts and flag configured logging.
package process

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/cfgstruct"
)

// Error is the default error class for the process package.
var Error = errs.Class("process")

// DefaultCfgFilename is the name of the config file inside the config
// directory.
const DefaultCfgFilename = "config.yaml"

// Bind registers the config struct's flags on the command.
func Bind(cmd *cobra.Command, config interface{}, opts ...cfgstruct.BindOpt) {
	cfgstruct.Bind(cmd.Flags(), config, opts...)
}

// Exec runs a cobra command. Every leaf command's configuration is layered
// from flag defaults, the config file in the config directory, environment
// variables prefixed with GOSHAWK_, and explicit flags, in rising priority.
func Exec(cmd *cobra.Command) {
	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	cleanup(cmd)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// cleanup wraps RunE of every command to apply the configuration layering
// and install the configured logger before the command body runs.
func cleanup(cmd *cobra.Command) {
	for _, ccmd := range cmd.Commands() {
		cleanup(ccmd)
	}
	if cmd.RunE == nil {
		return
	}
	internalRun := cmd.RunE

	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		_, cancel := Ctx(cmd)
		defer cancel()

		vip, err := Viper(cmd)
		if err != nil {
			return err
		}

		// apply layered values to flags the user did not set explicitly
		var applyErr error
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed || f.Name == "config-dir" {
				return
			}
			if !vip.IsSet(f.Name) {
				return
			}
			value := vip.GetString(f.Name)
			if value == f.Value.String() {
				return
			}
			if setErr := f.Value.Set(value); setErr != nil {
				applyErr = errs.Combine(applyErr,
					Error.New("invalid configuration value for %s: %v", f.Name, setErr))
			}
		})
		if applyErr != nil {
			return applyErr
		}

		logger, _, err := NewLogger(cmd.Root().Name())
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		zap.ReplaceGlobals(logger)

		return internalRun(cmd, args)
	}
}

var (
	contextMtx sync.Mutex
	contexts   = map[*cobra.Command]context.Context{}
	cancels    = map[*cobra.Command]context.CancelFunc{}
)

// Ctx returns the signal aware context for the command. The context is
// canceled on SIGINT or SIGTERM.
func Ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	contextMtx.Lock()
	defer contextMtx.Unlock()

	if ctx, ok := contexts[cmd]; ok {
		return ctx, cancels[cmd]
	}

	ctx, cancel := context.WithCancel(context.Background())
	contexts[cmd] = ctx
	cancels[cmd] = cancel

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(c)
		select {
		case sig := <-c:
			zap.L().Info("Got a signal from the OS", zap.Stringer("Signal", sig))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
