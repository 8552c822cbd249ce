// Package main is the entry point for the modgate CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flemzord/modgate/internal/core"
	"github.com/flemzord/modgate/pkg/app"

	// Compiled-in components.
	_ "github.com/flemzord/modgate/internal/engine"
	_ "github.com/flemzord/modgate/internal/gateway"
	_ "github.com/flemzord/modgate/internal/journal"
	_ "github.com/flemzord/modgate/internal/metrics"
	_ "github.com/flemzord/modgate/internal/recheck"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "modgate",
		Short:         "Gate feature modules behind player progress and server switches",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), startCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled components",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "modgate %s (commit: %s, built: %s)\n", version, commit, date)
			fmt.Fprintln(out, "\nCompiled components:")
			for _, c := range core.GetComponents() {
				fmt.Fprintf(out, "  %s\n", c.ID)
			}
		},
	}
}

func startCmd() *cobra.Command {
	var params app.RunParams
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start modgate with all configured components",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params.Version = version
			params.Commit = commit
			params.Date = date
			return app.RunContext(cmd.Context(), params)
		},
	}
	cmd.Flags().StringVarP(&params.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&params.DataDir, "data-dir", "", "Directory for persistent data")
	cmd.Flags().DurationVar(&params.PollInterval, "watch-interval", 5*time.Second, "Config file poll interval")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration and provision every component",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := app.NewLogger(os.Stderr, slog.LevelWarn, false, nil)
			ids, err := app.Check(args[0], logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK (%d components)\n", len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	})
	return cmd
}
