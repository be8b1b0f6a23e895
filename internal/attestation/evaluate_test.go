// SPDX-License-Identifier: AGPL-3.0-or-later

package attestation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func approvers(names ...string) []Approver {
	out := make([]Approver, 0, len(names))
	for _, n := range names {
		out = append(out, Approver{Username: strptr(n)})
	}
	return out
}

func authors(names ...string) []Commit {
	out := make([]Commit, 0, len(names))
	for _, n := range names {
		out = append(out, Commit{AuthorUsername: n})
	}
	return out
}

func TestEvaluate_Override(t *testing.T) {
	tests := []struct {
		name       string
		compliant  bool
		wantPass   bool
		wantReason string
	}{
		{"compliant override passes", true, true, ReasonOverriddenCompliant},
		{"non-compliant override fails", false, false, ReasonOverriddenNonCompliant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att := Attestation{
				AttestationType: TypeOverride,
				IsCompliant:     tt.compliant,
				HTMLURL:         "https://app.example.com/att/1",
			}
			res := Evaluate("abc123", att)

			assert.Equal(t, "abc123", res.Commit)
			assert.Equal(t, tt.wantPass, res.Pass)
			assert.Equal(t, tt.wantReason, res.Reason)
			require.NotNil(t, res.AttestationURL)
			assert.Equal(t, "https://app.example.com/att/1", *res.AttestationURL)
			assert.Empty(t, res.PRURL)
		})
	}
}

func TestEvaluate_OverrideWithPullRequestsCarriesPRURL(t *testing.T) {
	// pr_url is attached whenever the record carries pull requests, even on
	// the override branch.
	att := Attestation{
		AttestationType: TypeOverride,
		IsCompliant:     true,
		PullRequests:    []PullRequest{{URL: "https://github.com/o/r/pull/7"}},
	}
	res := Evaluate("abc123", att)

	assert.True(t, res.Pass)
	assert.Equal(t, "https://github.com/o/r/pull/7", res.PRURL)
}

func TestEvaluate_PullRequestEmptySequence(t *testing.T) {
	att := Attestation{AttestationType: TypePullRequest}
	res := Evaluate("abc123", att)

	assert.False(t, res.Pass)
	assert.Equal(t, ReasonNoPullRequests, res.Reason)
	assert.Empty(t, res.PRURL)
}

func TestEvaluate_PullRequest(t *testing.T) {
	tests := []struct {
		name       string
		prs        []PullRequest
		wantPass   bool
		wantReason string
	}{
		{
			name: "two distinct approvers pass",
			prs: []PullRequest{{
				URL:       "https://github.com/o/r/pull/1",
				Approvers: approvers("alice", "bob"),
				Commits:   authors("alice"),
			}},
			wantPass:   true,
			wantReason: ReasonNeverAlone,
		},
		{
			name: "two approvers pass even when both committed",
			prs: []PullRequest{{
				URL:       "https://github.com/o/r/pull/1",
				Approvers: approvers("alice", "bob"),
				Commits:   authors("alice", "bob"),
			}},
			wantPass:   true,
			wantReason: ReasonNeverAlone,
		},
		{
			name: "sole approver not a committer passes",
			prs: []PullRequest{{
				URL:       "https://github.com/o/r/pull/1",
				Approvers: approvers("carol"),
				Commits:   authors("alice", "bob"),
			}},
			wantPass:   true,
			wantReason: ReasonNeverAlone,
		},
		{
			name: "sole approver is a committer fails",
			prs: []PullRequest{{
				URL:       "https://github.com/o/r/pull/1",
				Approvers: approvers("alice"),
				Commits:   authors("alice"),
			}},
			wantPass:   false,
			wantReason: ReasonApproverIsCommitter,
		},
		{
			name: "whitespace around sole approver is trimmed before comparing",
			prs: []PullRequest{{
				URL:       "https://github.com/o/r/pull/1",
				Approvers: approvers("  a  "),
				Commits:   authors("a"),
			}},
			wantPass:   false,
			wantReason: ReasonApproverIsCommitter,
		},
		{
			name: "username comparison is case sensitive",
			prs: []PullRequest{{
				URL:       "https://github.com/o/r/pull/1",
				Approvers: approvers("Alice"),
				Commits:   authors("alice"),
			}},
			wantPass:   true,
			wantReason: ReasonNeverAlone,
		},
		{
			name: "duplicate approver entries collapse to one",
			prs: []PullRequest{{
				URL:       "https://github.com/o/r/pull/1",
				Approvers: approvers("alice", " alice ", "alice"),
				Commits:   authors("alice"),
			}},
			wantPass:   false,
			wantReason: ReasonApproverIsCommitter,
		},
		{
			name: "no approver entries fails",
			prs: []PullRequest{{
				URL:     "https://github.com/o/r/pull/1",
				Commits: authors("alice"),
			}},
			wantPass:   false,
			wantReason: ReasonNoApprovers,
		},
		{
			name: "entries without username field are dropped",
			prs: []PullRequest{{
				URL:       "https://github.com/o/r/pull/1",
				Approvers: []Approver{{Username: nil}, {Username: nil}},
				Commits:   authors("alice"),
			}},
			wantPass:   false,
			wantReason: ReasonNoApprovers,
		},
		{
			name: "later failing pull request fails the attestation",
			prs: []PullRequest{
				{
					URL:       "https://github.com/o/r/pull/1",
					Approvers: approvers("alice", "bob"),
				},
				{
					URL:       "https://github.com/o/r/pull/2",
					Approvers: approvers("carol"),
					Commits:   authors("carol"),
				},
			},
			wantPass:   false,
			wantReason: ReasonApproverIsCommitter,
		},
		{
			name: "all pull requests pass",
			prs: []PullRequest{
				{
					URL:       "https://github.com/o/r/pull/1",
					Approvers: approvers("alice", "bob"),
				},
				{
					URL:       "https://github.com/o/r/pull/2",
					Approvers: approvers("carol"),
					Commits:   authors("dave"),
				},
			},
			wantPass:   true,
			wantReason: ReasonNeverAlone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att := Attestation{
				AttestationType: TypePullRequest,
				HTMLURL:         "https://app.example.com/att/9",
				PullRequests:    tt.prs,
			}
			res := Evaluate("abc123", att)

			assert.Equal(t, tt.wantPass, res.Pass)
			assert.Equal(t, tt.wantReason, res.Reason)
			// The first PR's URL is surfaced regardless of which PR decided
			// the outcome.
			assert.Equal(t, tt.prs[0].URL, res.PRURL)
		})
	}
}

func TestEvaluate_ShortCircuitsAtFirstFailingPR(t *testing.T) {
	// The second PR fails with no approvers; the third would fail with the
	// committer rule. The earliest failure's reason wins.
	att := Attestation{
		AttestationType: TypePullRequest,
		PullRequests: []PullRequest{
			{URL: "https://github.com/o/r/pull/1", Approvers: approvers("alice", "bob")},
			{URL: "https://github.com/o/r/pull/2"},
			{URL: "https://github.com/o/r/pull/3", Approvers: approvers("carol"), Commits: authors("carol")},
		},
	}
	res := Evaluate("abc123", att)

	assert.False(t, res.Pass)
	assert.Equal(t, ReasonNoApprovers, res.Reason)
	assert.Equal(t, "https://github.com/o/r/pull/1", res.PRURL)
}

func TestEvaluate_UnknownType(t *testing.T) {
	att := Attestation{AttestationType: "audit"}
	res := Evaluate("abc123", att)

	assert.False(t, res.Pass)
	assert.Equal(t, "Attestation is audit, not a pull request or pull-request override", res.Reason)
	assert.Empty(t, res.PRURL)
}

func TestEvaluate_MissingTypeTakesUnknownBranch(t *testing.T) {
	res := Evaluate("abc123", Attestation{})

	assert.False(t, res.Pass)
	assert.Equal(t, "Attestation is , not a pull request or pull-request override", res.Reason)
}

func TestEvaluate_Deterministic(t *testing.T) {
	att := Attestation{
		AttestationType: TypePullRequest,
		HTMLURL:         "https://app.example.com/att/2",
		PullRequests: []PullRequest{{
			URL:       "https://github.com/o/r/pull/5",
			Approvers: approvers("alice"),
			Commits:   authors("alice"),
		}},
	}

	first := Evaluate("abc123", att)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate("abc123", att))
	}
}

func TestEvaluateAll(t *testing.T) {
	entries := []CommitAttestations{
		{Commit: "aaa"},
		{Commit: "bbb", Attestations: []Attestation{
			{AttestationType: TypeOverride, IsCompliant: false, HTMLURL: "https://app.example.com/att/3"},
		}},
	}

	results := EvaluateAll(entries)
	require.Len(t, results, 2)

	assert.Equal(t, "aaa", results[0].Commit)
	assert.False(t, results[0].Pass)
	assert.Equal(t, ReasonNoAttestations, results[0].Reason)
	assert.Nil(t, results[0].AttestationURL)
	assert.Empty(t, results[0].PRURL)

	assert.Equal(t, "bbb", results[1].Commit)
	assert.False(t, results[1].Pass)
	assert.Equal(t, ReasonOverriddenNonCompliant, results[1].Reason)
	require.NotNil(t, results[1].AttestationURL)
	assert.Equal(t, "https://app.example.com/att/3", *results[1].AttestationURL)
}

func TestEvaluateAll_OnlyFirstAttestationCounts(t *testing.T) {
	entries := []CommitAttestations{
		{Commit: "ccc", Attestations: []Attestation{
			{AttestationType: TypeOverride, IsCompliant: false},
			{AttestationType: TypeOverride, IsCompliant: true},
		}},
	}

	results := EvaluateAll(entries)
	require.Len(t, results, 1)
	assert.False(t, results[0].Pass)
	assert.Equal(t, ReasonOverriddenNonCompliant, results[0].Reason)
}

func TestEvaluateAll_PreservesInputOrder(t *testing.T) {
	entries := []CommitAttestations{
		{Commit: "c3"},
		{Commit: "c1"},
		{Commit: "c2"},
	}

	results := EvaluateAll(entries)
	require.Len(t, results, 3)
	assert.Equal(t, "c3", results[0].Commit)
	assert.Equal(t, "c1", results[1].Commit)
	assert.Equal(t, "c2", results[2].Commit)
}

func TestEvaluateAll_Empty(t *testing.T) {
	assert.Empty(t, EvaluateAll(nil))
}
