// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/revtrail/revtrail/cmd/revtrail/internal/clierr"
	"github.com/revtrail/revtrail/internal/attestation"
	"github.com/revtrail/revtrail/internal/config"
	"github.com/revtrail/revtrail/internal/evidence"
	"github.com/revtrail/revtrail/internal/gitrange"
	"github.com/revtrail/revtrail/internal/trailapi"
)

// NewReportCommand constructs the report command: the full pipeline from
// commit range resolution to the trail report. cfgFile points at the root
// command's --config value.
func NewReportCommand(cfgFile *string) *cobra.Command {
	var (
		host         string
		org          string
		searchFlow   string
		baseRef      string
		releaseRef   string
		flow         string
		trail        string
		apiToken     string
		outputFile   string
		evidenceFile string
		repoDir      string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Evaluate a release's code review attestations and report them to a trail",
		Long: `Resolve the commits between --base-ref and --release-ref, fetch their
pull-request attestations from the compliance service, evaluate each commit's
attestation against the never-alone review policy, and report the results
(plus the raw evidence) as a custom attestation on the given trail.

The raw fetched data and the evaluation results are also written to local
artifact files and echoed to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return clierr.Wrap(2, "report: loading config", err)
			}

			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Host = host
			}
			if flags.Changed("org") {
				cfg.Org = org
			}
			if flags.Changed("search-flow") {
				cfg.SearchFlow = searchFlow
			}
			if flags.Changed("flow") {
				cfg.Flow = flow
			}
			if flags.Changed("trail") {
				cfg.Trail = trail
			}
			if flags.Changed("api-token") {
				cfg.APIToken = apiToken
			}
			if flags.Changed("output-file") {
				cfg.OutputFile = outputFile
			}
			if flags.Changed("evidence-file") {
				cfg.EvidenceFile = evidenceFile
			}

			for _, req := range []struct{ name, value string }{
				{"org", cfg.Org},
				{"flow", cfg.Flow},
				{"trail", cfg.Trail},
				{"api-token", cfg.APIToken},
			} {
				if req.value == "" {
					return clierr.Newf(2, "report: --%s is required (flag, config file, or %s for the token)", req.name, config.EnvAPIToken)
				}
			}

			ctx := cmd.Context()

			commits, err := gitrange.New(repoDir).Commits(ctx, baseRef, releaseRef)
			if err != nil {
				return clierr.Wrap(1, "report: resolving commit range", err)
			}

			client := trailapi.NewClient(cfg.Host, cfg.Org, cfg.APIToken)

			raw, err := client.ListAttestationsForCriteria(ctx, cfg.SearchFlow, commits)
			if err != nil {
				return clierr.Wrap(1, "report", err)
			}
			if err := evidence.WriteRaw(cfg.EvidenceFile, raw); err != nil {
				return clierr.Wrap(1, "report: writing evidence artifact", err)
			}

			entries, err := attestation.ParseCriteria(raw)
			if err != nil {
				return clierr.Wrap(1, "report", err)
			}
			results := attestation.EvaluateAll(entries)

			if err := evidence.WriteResults(cfg.OutputFile, results); err != nil {
				return clierr.Wrap(1, "report: writing results artifact", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Evaluation results saved to: %s\n", cfg.OutputFile)
			if err := evidence.EncodeResults(out, results); err != nil {
				return clierr.Wrap(1, "report", err)
			}
			evidence.RenderSummary(cmd.ErrOrStderr(), results)

			ack, err := client.ReportCustomAttestation(ctx, cfg.Flow, cfg.Trail, results, cfg.EvidenceFile)
			if err != nil {
				return clierr.Wrap(1, "report", err)
			}

			fmt.Fprintln(out, "Code review attestations reported successfully")
			fmt.Fprintf(out, "%s\n", ack)
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", config.DefaultHost, "compliance API host URL")
	cmd.Flags().StringVar(&org, "org", "", "organization name")
	cmd.Flags().StringVar(&searchFlow, "search-flow", "", "flow to search for attestations in (optional)")
	cmd.Flags().StringVar(&baseRef, "base-ref", "", "base git ref (e.g. the previous release tag)")
	cmd.Flags().StringVar(&releaseRef, "release-ref", "", "release git ref (e.g. HEAD or the release tag)")
	cmd.Flags().StringVar(&flow, "flow", "", "flow to report the evaluation to")
	cmd.Flags().StringVar(&trail, "trail", "", "trail to report the evaluation to")
	cmd.Flags().StringVar(&apiToken, "api-token", "", "API token (overrides "+config.EnvAPIToken+")")
	cmd.Flags().StringVar(&outputFile, "output-file", config.DefaultOutputFile, "path for the results artifact")
	cmd.Flags().StringVar(&evidenceFile, "evidence-file", config.DefaultEvidenceFile, "path for the raw evidence artifact")
	cmd.Flags().StringVar(&repoDir, "repo-dir", "", "git repository directory (default: current directory)")

	_ = cmd.MarkFlagRequired("base-ref")
	_ = cmd.MarkFlagRequired("release-ref")

	return cmd
}
