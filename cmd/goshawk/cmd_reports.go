// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/closure"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/cfgstruct"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/process"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/retention"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

var (
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List the repository inventory with derived statistics",
		RunE:  cmdList,
	}
	closuresCmd = &cobra.Command{
		Use:   "closures",
		Short: "Report the closure triplets of every partition",
		RunE:  cmdClosures,
	}
	retentionCmd = &cobra.Command{
		Use:   "retention",
		Short: "Report which raw acquisitions are safe to delete",
		RunE:  cmdRetention,
	}
	rebuildCmd = &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild partition metadata by rescanning canonical storage",
		RunE:  cmdRebuild,
	}

	retentionCfg struct {
		Delete bool `help:"physically delete fully verified acquisitions" default:"false"`
	}

	rebuildSel selection
)

func init() {
	defaults := cfgstruct.ConfDir(defaultConfDir)

	rootCmd.AddCommand(listCmd)
	process.Bind(listCmd, &runCfg, defaults)

	rootCmd.AddCommand(closuresCmd)
	process.Bind(closuresCmd, &runCfg, defaults)

	rootCmd.AddCommand(retentionCmd)
	process.Bind(retentionCmd, &runCfg, defaults)
	process.Bind(retentionCmd, &retentionCfg)

	rootCmd.AddCommand(rebuildCmd)
	process.Bind(rebuildCmd, &runCfg, defaults)
	process.Bind(rebuildCmd, &rebuildSel)
}

func cmdList(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := process.Ctx(cmd)
	defer cancel()

	store, metaMirror, err := openStore(ctx, zap.L(), runCfg)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, metaMirror.Close()) }()

	parts, err := store.Partitions(ctx)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		fmt.Println("repository is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARTITION\tSHORT\tLONG\tSINGLES\tSIZE GB\tFROM\tTO")
	for _, part := range parts {
		md, err := store.Load(ctx, part)
		if err != nil {
			fmt.Fprintf(w, "%s\tunreadable: %v\n", part, err)
			continue
		}
		from, to := "-", "-"
		if md.Temporal != nil {
			from, to = md.Temporal.Start.String(), md.Temporal.End.String()
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2f\t%s\t%s\n",
			part, md.Stats.ShortPairs, md.Stats.LongPairs, md.Stats.Singles,
			md.Stats.TotalSizeGB, from, to)
	}
	return w.Flush()
}

func cmdClosures(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := process.Ctx(cmd)
	defer cancel()

	store, metaMirror, err := openStore(ctx, zap.L(), runCfg)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, metaMirror.Close()) }()

	parts, err := store.Partitions(ctx)
	if err != nil {
		return err
	}
	for _, part := range parts {
		md, err := store.Load(ctx, part)
		if err != nil {
			return err
		}
		triplets := closure.Find(md)
		fmt.Printf("%s: %d triplets\n", part, len(triplets))
		for _, triplet := range triplets {
			fmt.Printf("  %s %s %s\n", triplet.A, triplet.B, triplet.C)
		}
	}
	return nil
}

func cmdRetention(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := process.Ctx(cmd)
	defer cancel()
	log := zap.L()

	store, metaMirror, err := openStore(ctx, log, runCfg)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, metaMirror.Close()) }()

	// the explicit command always at least reports
	config := runCfg.Retention
	config.Status = retention.ReportOnly
	if retentionCfg.Delete {
		config.Status = retention.Enabled
	}

	sweeper := retention.NewService(log.Named("retention"), store, config, runCfg.Limits)
	defer func() { err = errs.Combine(err, sweeper.Close()) }()

	reports, err := sweeper.RunOnce(ctx)
	if err != nil {
		return err
	}
	for _, report := range reports {
		fmt.Printf("track %s (%d families)\n", report.Track, len(report.Families))
		for _, candidate := range report.Deletable {
			fmt.Printf("  deletable %s: %s\n", candidate.Date, candidate.Reason)
		}
		for _, candidate := range report.Blocked {
			fmt.Printf("  blocked   %s: %s\n", candidate.Date, candidate.Reason)
		}
		for _, path := range report.Deleted {
			fmt.Printf("  deleted   %s\n", path)
		}
		if report.ReclaimedGB > 0 {
			fmt.Printf("  reclaimed %.2f GB\n", report.ReclaimedGB)
		}
	}
	return nil
}

func cmdRebuild(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := process.Ctx(cmd)
	defer cancel()

	store, metaMirror, err := openStore(ctx, zap.L(), runCfg)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, metaMirror.Close()) }()

	if rebuildSel.Track == 0 {
		return store.RebuildAll(ctx)
	}

	part := sar.Partition{
		Orbit:    rebuildSel.Orbit,
		Subswath: rebuildSel.Subswath,
		Track:    sar.Track(rebuildSel.Track),
	}
	if !part.Valid() {
		return errs.New("--orbit, --subswath and --track are required, or no --track to rebuild everything")
	}
	md, err := store.Rebuild(ctx, part)
	if err != nil {
		return err
	}
	fmt.Printf("rebuilt %s: %d short, %d long, %d singles\n",
		part, md.Stats.ShortPairs, md.Stats.LongPairs, md.Stats.Singles)
	return nil
}
