package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/squadlab/posrating/pkg/core"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func validateOutput(format string) error {
	switch format {
	case outputTable, outputJSON:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want %s or %s)", format, outputTable, outputJSON)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeReports prints reports in the requested format. Nil entries, left by
// players that failed to rate, are skipped.
func writeReports(w io.Writer, format string, reports []*core.RatingReport) error {
	var ok []*core.RatingReport
	for _, r := range reports {
		if r != nil {
			ok = append(ok, r)
		}
	}
	if format == outputJSON {
		if len(ok) == 1 {
			return writeJSON(w, ok[0])
		}
		return writeJSON(w, ok)
	}
	for i, r := range ok {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := writeReportTable(w, r); err != nil {
			return err
		}
	}
	return nil
}

func writeReportTable(w io.Writer, r *core.RatingReport) error {
	title := fmt.Sprintf("Player %d", r.PlayerID)
	if r.Name != "" {
		title += " " + r.Name
	}
	fmt.Fprintf(w, "%s  primary=%s", title, r.Primary)
	if r.Overall != nil {
		fmt.Fprintf(w, "  overall=%d", *r.Overall)
		if r.OverallDiscrepancy != 0 {
			fmt.Fprintf(w, " (formula %+d)", r.OverallDiscrepancy)
		}
	}
	fmt.Fprintf(w, "  tables=%s\n", r.TablesVersion)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tRATING\tFAMILIARITY\tDIFF")
	for _, pr := range r.Ratings {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%+d\n", pr.Position, pr.Rating, pr.Familiarity, pr.Difference)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "Best: %s  Top 3: %s\n", r.Best, joinPositions(r.Top3))
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	return nil
}

func writeHistoryTable(w io.Writer, reports []*core.RatingReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RATED AT\tBEST\tTOP 3\tTABLES")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.RatedAt.Format("2006-01-02 15:04:05"), r.Best, joinPositions(r.Top3), r.TablesVersion)
	}
	return tw.Flush()
}

func joinPositions(ps []core.Position) string {
	codes := make([]string, len(ps))
	for i, p := range ps {
		codes[i] = p.String()
	}
	return strings.Join(codes, ", ")
}

func parsePlayerIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseUint(a, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid player id %q", a)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
