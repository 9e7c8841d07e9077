package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/squadlab/posrating/internal/mcpserver"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the rating tools over MCP on stdin/stdout",
		Long:  "Runs a Model Context Protocol server on stdio. Logs go to the session log file or stderr, never stdout.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, serviceOptions{storage: true, metrics: true}, func(ctx context.Context, a *app) error {
				a.Logger.Info("MCP server running on stdio")
				return mcpserver.RunStdio(ctx, mcpserver.New(a.svc, CurrentVersion))
			})
		},
	}
}
