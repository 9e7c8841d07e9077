package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/squadlab/posrating/pkg/core"
)

func newTablesCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Validate and print the rating tables in use",
		Long: "Loads the tables file given by --tables or the config (the built-in tables when none is set),\n" +
			"validates it and prints the result. Use -o json to get a document that can be edited and loaded back.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := shutdownContext()
				defer cancel()
				_ = a.Close(ctx)
			}()

			if err := a.initEngine(); err != nil {
				return err
			}
			return writeTables(cmd, a, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func writeTables(cmd *cobra.Command, a *app, output string) error {
	tables := a.engine.Tables()
	out := cmd.OutOrStdout()
	if output == outputJSON {
		return writeJSON(out, tables.Document())
	}

	fmt.Fprintf(out, "Tables %s\n\n", tables.Version)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "POS\t")
	for _, attr := range core.AllAttributes {
		fmt.Fprintf(tw, "%s\t", attr)
	}
	fmt.Fprintln(tw)
	for _, p := range core.AllPositions() {
		fmt.Fprintf(tw, "%s\t", p)
		for _, attr := range core.AllAttributes {
			fmt.Fprintf(tw, "%d\t", tables.Weight(p, attr))
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	for _, lvl := range []core.Familiarity{core.Primary, core.Secondary, core.Somewhat, core.Unfamiliar} {
		fmt.Fprintf(out, "%-10s %+d\n", lvl, tables.Penalty(lvl))
	}
	return nil
}
