// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/pairplan"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/cfgstruct"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/private/process"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/repository"
)

var (
	planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Print the expected pair set of a partition's date list",
		RunE:  cmdPlan,
	}
	diffCmd = &cobra.Command{
		Use:   "diff",
		Short: "Print the missing pairs of a partition and the dates they need",
		RunE:  cmdDiff,
	}

	planSel    selection
	planSource dateSource
	diffSel    selection
	diffSource dateSource
)

func init() {
	defaults := cfgstruct.ConfDir(defaultConfDir)

	rootCmd.AddCommand(planCmd)
	process.Bind(planCmd, &runCfg, defaults)
	process.Bind(planCmd, &planSel)
	process.Bind(planCmd, &planSource)

	rootCmd.AddCommand(diffCmd)
	process.Bind(diffCmd, &runCfg, defaults)
	process.Bind(diffCmd, &diffSel)
	process.Bind(diffCmd, &diffSource)
}

func cmdPlan(cmd *cobra.Command, args []string) (err error) {
	part, err := planSel.Partition()
	if err != nil {
		return err
	}
	dates, err := planSource.dates(part.Track)
	if err != nil {
		return err
	}

	plan, err := pairplan.Expected(dates, runCfg.Limits)
	if err != nil {
		return err
	}

	fmt.Printf("partition %s: %d dates, %d expected pairs\n", part, len(dates), len(plan.Pairs))
	for _, key := range plan.Pairs {
		fmt.Printf("  %-30s %3d days\n", key, key.Baseline())
	}
	printGaps(plan.Gaps)
	return nil
}

func cmdDiff(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := process.Ctx(cmd)
	defer cancel()

	part, err := diffSel.Partition()
	if err != nil {
		return err
	}
	dates, err := diffSource.dates(part.Track)
	if err != nil {
		return err
	}

	store, metaMirror, err := openStore(ctx, zap.L(), runCfg)
	if err != nil {
		return err
	}
	defer func() { _ = metaMirror.Close() }()

	md, err := store.Load(ctx, part)
	if err != nil {
		return err
	}
	skips, err := store.LoadSkips(ctx, part)
	if err != nil {
		return err
	}

	plan, err := pairplan.Expected(dates, runCfg.Limits)
	if err != nil {
		return err
	}
	done := append(md.PairKeys(), repository.SkipKeys(skips)...)
	missing := pairplan.Diff(plan.Pairs, done)

	if missing.Empty() {
		fmt.Printf("partition %s is up to date (%d pairs planned)\n", part, len(plan.Pairs))
		printGaps(plan.Gaps)
		return nil
	}

	fmt.Printf("partition %s: %d of %d pairs missing\n", part, len(missing.Pairs), len(plan.Pairs))
	for _, key := range missing.Pairs {
		fmt.Printf("  %-30s %3d days\n", key, key.Baseline())
	}
	fmt.Printf("required acquisitions (%d):\n", len(missing.Dates))
	for _, date := range missing.Dates {
		fmt.Printf("  %s\n", date)
	}
	printGaps(plan.Gaps)
	return nil
}

func printGaps(gaps []pairplan.Gap) {
	for _, gap := range gaps {
		fmt.Printf("  gap: no %s pair %s..%s (%d days)\n",
			gap.Kind, gap.From, gap.To, gap.Days)
	}
}
