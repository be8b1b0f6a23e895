// SPDX-License-Identifier: AGPL-3.0-or-later

package attestation

import (
	"fmt"
	"strings"
)

// Fixed evaluation reasons. The compliance trail treats these strings as
// stable identifiers, so they must not be reworded.
const (
	ReasonOverriddenCompliant    = "Overridden as compliant"
	ReasonOverriddenNonCompliant = "Overridden as non-compliant"
	ReasonNoPullRequests         = "No pull requests in attestation"
	ReasonNoApprovers            = "Pull request has no approvers"
	ReasonApproverIsCommitter    = "The only approver of the PR is also a committer"
	ReasonNeverAlone             = "Pull request demonstrates never-alone code review"
	ReasonNoAttestations         = "No attestations found"
)

// Result is the per-commit evaluation outcome. It is serialized into the
// results artifact and reported to the compliance trail unchanged.
// AttestationURL is null only for commits with no attestations at all.
type Result struct {
	Commit         string  `json:"commit"`
	Pass           bool    `json:"pass"`
	Reason         string  `json:"reason"`
	AttestationURL *string `json:"attestation_url"`
	PRURL          string  `json:"pr_url,omitempty"`
}

// Evaluate classifies a single attestation record for the given commit.
// Pure function: no I/O, deterministic for identical input.
func Evaluate(commit string, att Attestation) Result {
	attURL := att.HTMLURL
	res := Result{
		Commit:         commit,
		AttestationURL: &attURL,
	}

	// The first pull request's URL is surfaced whenever one exists, whatever
	// branch decides the outcome. A later pull request never replaces it,
	// even when it is the one that fails.
	if len(att.PullRequests) > 0 {
		res.PRURL = att.PullRequests[0].URL
	}

	switch att.AttestationType {
	case TypeOverride:
		if att.IsCompliant {
			res.Pass = true
			res.Reason = ReasonOverriddenCompliant
		} else {
			res.Reason = ReasonOverriddenNonCompliant
		}
		return res

	case TypePullRequest:
		if len(att.PullRequests) == 0 {
			res.Reason = ReasonNoPullRequests
			return res
		}

		// Pull requests are checked in input order and the first failing one
		// decides the outcome.
		for _, pr := range att.PullRequests {
			approvers := approverSet(pr.Approvers)

			if len(approvers) == 0 {
				res.Reason = ReasonNoApprovers
				return res
			}
			if len(approvers) >= 2 {
				// Two distinct approvers satisfy never-alone structurally,
				// regardless of committer overlap.
				continue
			}
			if isCommitter(pr.Commits, approvers[0]) {
				res.Reason = ReasonApproverIsCommitter
				return res
			}
		}

		res.Pass = true
		res.Reason = ReasonNeverAlone
		return res
	}

	res.Reason = fmt.Sprintf("Attestation is %s, not a pull request or pull-request override", att.AttestationType)
	return res
}

// EvaluateAll maps Evaluate over an ordered commit-to-attestations collection,
// producing one result per commit in input order. Only the first attestation
// of each commit is authoritative; any others are deliberately ignored.
// Commits with no attestations fail with a synthesized result carrying a null
// attestation URL.
func EvaluateAll(entries []CommitAttestations) []Result {
	results := make([]Result, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Attestations) == 0 {
			results = append(results, Result{
				Commit: entry.Commit,
				Reason: ReasonNoAttestations,
			})
			continue
		}
		results = append(results, Evaluate(entry.Commit, entry.Attestations[0]))
	}
	return results
}

// approverSet builds the distinct approver usernames: entries without a
// username field are dropped, the rest are whitespace-trimmed and
// deduplicated. First-appearance order is kept for determinism.
func approverSet(approvers []Approver) []string {
	seen := make(map[string]struct{}, len(approvers))
	var names []string
	for _, a := range approvers {
		if a.Username == nil {
			continue
		}
		name := strings.TrimSpace(*a.Username)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// isCommitter reports whether name matches any commit author exactly.
// No case folding: the service records usernames verbatim.
func isCommitter(commits []Commit, name string) bool {
	for _, c := range commits {
		if c.AuthorUsername == name {
			return true
		}
	}
	return false
}
