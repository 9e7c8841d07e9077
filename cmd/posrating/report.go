package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/squadlab/posrating/pkg/core"
)

func newReportCmd() *cobra.Command {
	var (
		output  string
		history int
	)

	cmd := &cobra.Command{
		Use:   "report <player-id>",
		Short: "Show stored rating reports for a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			ids, err := parsePlayerIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]

			return withService(cmd, serviceOptions{storage: true}, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if history <= 0 {
					report, err := a.svc.LatestReport(ctx, id)
					if err != nil {
						return fmt.Errorf("player %d: %w", id, err)
					}
					return writeReports(out, output, []*core.RatingReport{report})
				}

				reports, err := a.svc.History(ctx, id, history)
				if err != nil {
					return fmt.Errorf("player %d: %w", id, err)
				}
				if output == outputJSON {
					return writeJSON(out, reports)
				}
				return writeHistoryTable(out, reports)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	cmd.Flags().IntVar(&history, "history", 0, "list up to n stored reports, newest first, instead of the latest one")
	return cmd
}
