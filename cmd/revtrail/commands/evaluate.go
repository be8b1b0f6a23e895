// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/revtrail/revtrail/cmd/revtrail/internal/clierr"
	"github.com/revtrail/revtrail/internal/attestation"
	"github.com/revtrail/revtrail/internal/config"
	"github.com/revtrail/revtrail/internal/evidence"
)

// NewEvaluateCommand constructs the evaluate command: offline evaluation of
// an attestations file, with no git and no network. Useful for inspecting a
// previously captured evidence artifact.
func NewEvaluateCommand() *cobra.Command {
	var (
		inputFile  string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate attestations from a local JSON file",
		Long: `Read a commit-to-attestations JSON object (the shape returned by the
compliance service, and the shape of the evidence artifact), evaluate each
commit against the never-alone review policy, and write the results.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(inputFile)
			if err != nil {
				return clierr.Wrap(1, "evaluate: reading input file", err)
			}

			entries, err := attestation.ParseCriteria(raw)
			if err != nil {
				return clierr.Wrap(1, "evaluate", err)
			}
			results := attestation.EvaluateAll(entries)

			if err := evidence.WriteResults(outputFile, results); err != nil {
				return clierr.Wrap(1, "evaluate: writing results artifact", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Evaluation results saved to: %s\n", outputFile)
			if err := evidence.EncodeResults(out, results); err != nil {
				return clierr.Wrap(1, "evaluate", err)
			}
			evidence.RenderSummary(cmd.ErrOrStderr(), results)

			return nil
		},
	}

	cmd.Flags().StringVar(&inputFile, "input-file", "", "attestations JSON file to evaluate")
	cmd.Flags().StringVar(&outputFile, "output-file", config.DefaultOutputFile, "path for the results artifact")
	_ = cmd.MarkFlagRequired("input-file")

	return cmd
}
