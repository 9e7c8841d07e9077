package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/squadlab/posrating/internal/config"
)

func newRootCmd() *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:           ServiceName,
		Short:         "Rate football players at every field position",
		Version:       fmt.Sprintf("%s (built %s)", CurrentVersion, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(configDir)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configDir, "config-dir", "", "directory containing "+config.FileName+" (defaults to the working directory)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("logs-dir", "", "directory for session log files (default from config, ./logs); --logs-dir= logs to stderr")
	flags.String("tables", "", "rating tables file (JSON or YAML)")
	flags.String("storage", "", "report storage backend: memory, sqlite, postgres")

	_ = viper.BindPFlag("logLevel", flags.Lookup("log-level"))
	_ = viper.BindPFlag("logsDir", flags.Lookup("logs-dir"))
	_ = viper.BindPFlag("rating.tablesFile", flags.Lookup("tables"))
	_ = viper.BindPFlag("storage.type", flags.Lookup("storage"))

	root.AddCommand(
		newRateCmd(),
		newRateAttrsCmd(),
		newReportCmd(),
		newTablesCmd(),
		newServeCmd(),
		newMCPCmd(),
	)

	root.SetErr(os.Stderr)
	return root
}

// loadConfig reads the config file, falling back to defaults when none exists.
func loadConfig(dir string) error {
	if dir == "" {
		dir = "."
	}
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); os.IsNotExist(err) {
		config.UseDefaults()
		return nil
	}
	return config.Load(dir)
}
