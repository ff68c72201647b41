// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/cfgstruct"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/process"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/series"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/worker"
)

var (
	processCmd = &cobra.Command{
		Use:   "process",
		Short: "Process the missing pairs of the selected partitions",
		RunE:  cmdProcess,
	}
	registerCmd = &cobra.Command{
		Use:   "register",
		Short: "Register a completed artifact into canonical storage",
		RunE:  cmdRegister,
	}

	processCfg struct {
		Orbit    sar.OrbitDirection `help:"orbit direction of the scenes (ascending or descending)"`
		Subswath sar.Subswath       `help:"restrict processing to one subswath, all three when unset"`
		Track    int                `help:"restrict processing to one track, all tracks when 0" default:"0"`
		SceneDir string             `help:"directory of raw .SAFE acquisitions" default:""`
	}

	registerSel selection
	registerCfg struct {
		Master        string       `help:"master date (YYYYMMDD) of a pair artifact" default:""`
		Slave         string       `help:"slave date (YYYYMMDD) of a pair artifact" default:""`
		Kind          sar.PairKind `help:"pair kind (short or long)"`
		Date          string       `help:"acquisition date (YYYYMMDD) of a per-date artifact" default:""`
		Decomposition string       `help:"decomposition label of a per-date artifact" default:"H-Alpha Dual Pol"`
		Source        string       `help:"path of the completed .dim artifact" default:""`
	}
)

func init() {
	defaults := cfgstruct.ConfDir(defaultConfDir)

	rootCmd.AddCommand(processCmd)
	process.Bind(processCmd, &runCfg, defaults)
	process.Bind(processCmd, &processCfg)

	rootCmd.AddCommand(registerCmd)
	process.Bind(registerCmd, &runCfg, defaults)
	process.Bind(registerCmd, &registerSel)
	process.Bind(registerCmd, &registerCfg)
}

func cmdProcess(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := process.Ctx(cmd)
	defer cancel()
	log := zap.L()

	if processCfg.Orbit == sar.InvalidOrbitDirection {
		return errs.New("--orbit is required, scene names do not carry the pass direction")
	}
	if processCfg.SceneDir == "" {
		return errs.New("--scene-dir is required")
	}

	scenes, err := scanScenes(processCfg.SceneDir)
	if err != nil {
		return err
	}
	work := assembleSeries(scenes)
	if len(work) == 0 {
		fmt.Println("no matching acquisitions found")
		return nil
	}

	store, metaMirror, err := openStore(ctx, log, runCfg)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, metaMirror.Close()) }()

	processor := worker.NewExecProcessor(log.Named("worker"), runCfg.Worker)
	driver := series.New(log.Named("series"), store, processor, runCfg.Series, runCfg.Limits)

	results, err := driver.Run(ctx, work)
	if err != nil {
		return err
	}
	for _, result := range results {
		fmt.Printf("%s: planned %d, missing %d, succeeded %d, failed %d, no coverage %d\n",
			result.Partition, result.Planned, result.Missing,
			result.Succeeded, result.Failed, result.NoCoverage)
	}
	return nil
}

// assembleSeries groups the scanned scenes into per-partition work orders,
// honoring the track and subswath restrictions.
func assembleSeries(scenes []sar.Scene) []series.Series {
	byTrack := make(map[sar.Track]map[sar.Date]string)
	for _, scene := range scenes {
		if processCfg.Track != 0 && scene.Track != sar.Track(processCfg.Track) {
			continue
		}
		byDate, ok := byTrack[scene.Track]
		if !ok {
			byDate = make(map[sar.Date]string)
			byTrack[scene.Track] = byDate
		}
		if _, ok := byDate[scene.Date]; !ok {
			byDate[scene.Date] = scenePath(processCfg.SceneDir, scene)
		}
	}

	subswaths := sar.Subswaths
	if processCfg.Subswath != sar.InvalidSubswath {
		subswaths = []sar.Subswath{processCfg.Subswath}
	}

	var work []series.Series
	for track, byDate := range byTrack {
		var inputs []series.Input
		for date, path := range byDate {
			inputs = append(inputs, series.Input{Date: date, Path: path})
		}
		for _, sw := range subswaths {
			work = append(work, series.Series{
				Partition: sar.Partition{Orbit: processCfg.Orbit, Subswath: sw, Track: track},
				Inputs:    inputs,
			})
		}
	}
	return work
}

func cmdRegister(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := process.Ctx(cmd)
	defer cancel()

	part, err := registerSel.Partition()
	if err != nil {
		return err
	}
	if registerCfg.Source == "" {
		return errs.New("--source is required")
	}

	store, metaMirror, err := openStore(ctx, zap.L(), runCfg)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, metaMirror.Close()) }()

	if _, err := store.EnsurePartition(ctx, part); err != nil {
		return err
	}

	switch {
	case registerCfg.Date != "":
		date, err := sar.ParseDate(registerCfg.Date)
		if err != nil {
			return err
		}
		registered, err := store.RegisterSingle(ctx, part, date, registerCfg.Decomposition, registerCfg.Source)
		if err != nil {
			return err
		}
		printRegistered(registered, part.ID()+"/"+date.String())
		return nil

	case registerCfg.Master != "" && registerCfg.Slave != "":
		master, err := sar.ParseDate(registerCfg.Master)
		if err != nil {
			return err
		}
		slave, err := sar.ParseDate(registerCfg.Slave)
		if err != nil {
			return err
		}
		if registerCfg.Kind != sar.ShortPair && registerCfg.Kind != sar.LongPair {
			return errs.New("--kind is required for pair artifacts")
		}
		key := sar.NewPairKey(master, slave, registerCfg.Kind)
		registered, err := store.RegisterPair(ctx, part, key, registerCfg.Source)
		if err != nil {
			return err
		}
		printRegistered(registered, part.ID()+"/"+key.String())
		return nil
	}

	return errs.New("either --date or both --master and --slave are required")
}

func printRegistered(registered bool, what string) {
	if registered {
		fmt.Printf("registered %s\n", what)
	} else {
		fmt.Printf("%s was already registered, skipped\n", what)
	}
}
