package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/squadlab/posrating/internal/service"
	"github.com/squadlab/posrating/pkg/core"
)

func newRateCmd() *cobra.Command {
	var (
		output string
		noSave bool
	)

	cmd := &cobra.Command{
		Use:   "rate <player-id>...",
		Short: "Fetch players from the squad API and rate them at every position",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			ids, err := parsePlayerIDs(args)
			if err != nil {
				return err
			}

			opts := serviceOptions{storage: !noSave, metrics: !noSave}
			return withService(cmd, opts, func(ctx context.Context, a *app) error {
				reports, rateErr := a.svc.RatePlayers(ctx, ids)
				if err := writeReports(cmd.OutOrStdout(), output, reports); err != nil {
					return err
				}
				return rateErr
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the reports")
	return cmd
}

// attributeFlags maps flag names to attributes. Unset flags stay missing.
var attributeFlags = []struct {
	name string
	attr core.Attribute
}{
	{"pac", core.Pace},
	{"sho", core.Shooting},
	{"pas", core.Passing},
	{"dri", core.Dribbling},
	{"def", core.Defense},
	{"phy", core.Physical},
	{"gk", core.Goalkeeping},
}

func newRateAttrsCmd() *cobra.Command {
	var (
		output    string
		positions []string
		name      string
		overall   int
		values    = make([]int, len(attributeFlags))
	)

	cmd := &cobra.Command{
		Use:     "rate-attrs",
		Short:   "Rate a player described by attribute flags",
		Example: "  posrating rate-attrs --positions CB,CDM --pac 70 --sho 45 --pas 65 --dri 60 --def 85 --phy 80 --overall 82",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			req := service.AttributesRequest{
				Name:       name,
				Attributes: make(map[string]int),
				Positions:  positions,
			}
			for i, f := range attributeFlags {
				if cmd.Flags().Changed(f.name) {
					req.Attributes[string(f.attr)] = values[i]
				}
			}
			if cmd.Flags().Changed("overall") {
				req.Overall = &overall
			}

			return withService(cmd, serviceOptions{}, func(ctx context.Context, a *app) error {
				report, err := a.svc.RateAttributes(ctx, req)
				if err != nil {
					return err
				}
				return writeReports(cmd.OutOrStdout(), output, []*core.RatingReport{report})
			})
		},
	}

	flags := cmd.Flags()
	for i, f := range attributeFlags {
		flags.IntVar(&values[i], f.name, 0, fmt.Sprintf("%s attribute (%d-%d)", strings.ToLower(string(f.attr)), core.MinAttribute, core.MaxAttribute))
	}
	flags.StringSliceVar(&positions, "positions", nil, "position codes, primary first (e.g. CB,CDM)")
	flags.StringVar(&name, "name", "", "player name shown in the report")
	flags.IntVar(&overall, "overall", 0, "reported overall rating at the primary position")
	flags.StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	_ = cmd.MarkFlagRequired("positions")
	return cmd
}
