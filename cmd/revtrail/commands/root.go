// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Revtrail - Revtrail evaluates whether the commits of a release underwent
never-alone code review, based on the attestation records a compliance
service holds for them, and reports the verdicts back as a custom
attestation on a trail.

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/revtrail/revtrail/internal/config"
)

// NewRootCmd constructs the revtrail root Cobra command.
func NewRootCmd() *cobra.Command {
	version := os.Getenv("REVTRAIL_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	var (
		cfgFile string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:           "revtrail",
		Short:         "Revtrail - never-alone code review evaluation for releases",
		Long:          "Revtrail resolves a release's commit range, evaluates the pull-request attestations recorded for it, and reports the results to a compliance trail.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of revtrail",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "revtrail version %s\n", version)
		},
	})

	cmd.AddCommand(NewReportCommand(&cfgFile))
	cmd.AddCommand(NewEvaluateCommand())

	return cmd
}
