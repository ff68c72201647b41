// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// goshawk manages a repository of derived Sentinel-1 interferometric
// artifacts: it plans the expected pair set per partition, drives the
// external processing command for the missing pairs, registers completed
// artifacts into canonical storage, and sweeps raw acquisitions that no
// pending artifact needs anymore.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/closure"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/mirror"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/pairplan"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/cfgstruct"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/fpath"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/process"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/repository"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/retention"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/series"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/worker"
)

// Config is the full process configuration.
type Config struct {
	Repository repository.Config
	Limits     pairplan.Limits
	Series     series.Config
	Worker     worker.Config
	Closure    closure.Config
	Retention  retention.Config
	Mirror     mirror.Config
}

var (
	rootCmd = &cobra.Command{
		Use:   "goshawk",
		Short: "InSAR artifact repository manager",
	}
	setupCmd = &cobra.Command{
		Use:         "setup",
		Short:       "Create config files",
		RunE:        cmdSetup,
		Annotations: map[string]string{"type": "setup"},
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the periodic closure scan and retention sweep",
		RunE:  cmdRun,
	}

	confDir string

	runCfg Config

	defaultConfDir = fpath.ApplicationDir("goshawk")
)

func init() {
	cfgstruct.SetupFlag(zap.L(), rootCmd, &confDir, "config-dir", defaultConfDir,
		"main directory for goshawk configuration")
	defaults := cfgstruct.ConfDir(defaultConfDir)

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(runCmd)
	process.Bind(setupCmd, &runCfg, defaults, cfgstruct.SetupMode())
	process.Bind(runCmd, &runCfg, defaults)
}

func cmdSetup(cmd *cobra.Command, args []string) (err error) {
	setupDir, err := filepath.Abs(confDir)
	if err != nil {
		return err
	}

	valid, err := fpath.IsValidSetupDir(setupDir)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("configuration already exists (%v)", setupDir)
	}

	if err := os.MkdirAll(setupDir, 0700); err != nil {
		return err
	}
	return process.SaveConfig(cmd, filepath.Join(setupDir, process.DefaultCfgFilename))
}

func cmdRun(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := process.Ctx(cmd)
	defer cancel()
	log := zap.L()

	store, metaMirror, err := openStore(ctx, log, runCfg)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, metaMirror.Close()) }()

	closures := closure.NewChore(log.Named("closure"), store, runCfg.Closure)
	sweeper := retention.NewService(log.Named("retention"), store, runCfg.Retention, runCfg.Limits)
	defer func() { err = errs.Combine(err, closures.Close(), sweeper.Close()) }()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return closures.Run(gctx) })
	group.Go(func() error { return sweeper.Run(gctx) })

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// openStore opens the metadata mirror, when configured, and the repository
// store publishing into it.
func openStore(ctx context.Context, log *zap.Logger, config Config) (*repository.Store, *mirror.Mirror, error) {
	metaMirror, err := mirror.Open(ctx, log.Named("mirror"), config.Mirror)
	if err != nil {
		return nil, nil, err
	}
	store := repository.New(log.Named("repository"), config.Repository, metaMirror)
	return store, metaMirror, nil
}

func main() {
	process.Exec(rootCmd)
}
