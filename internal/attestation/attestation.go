// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attestation defines the compliance attestation data model and the
// never-alone code review classifier.
package attestation

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Attestation types the classifier understands. Any other value fails
// evaluation with a reason naming the unexpected type.
const (
	TypeOverride    = "override"
	TypePullRequest = "pull_request"
)

// Attestation is one compliance-service record describing how a commit's
// change was approved. Absent optional fields decode to their zero values;
// malformed entries never abort a run.
type Attestation struct {
	AttestationType string        `json:"attestation_type"`
	IsCompliant     bool          `json:"is_compliant"`
	HTMLURL         string        `json:"html_url"`
	PullRequests    []PullRequest `json:"pull_requests"`
}

// PullRequest is one pull request recorded on an attestation.
type PullRequest struct {
	URL       string     `json:"url"`
	Approvers []Approver `json:"approvers"`
	Commits   []Commit   `json:"commits"`
}

// Approver is a raw approver entry. Username is a pointer so entries lacking
// the field entirely can be told apart from an explicit value; entries without
// a username are dropped when the approver set is built.
type Approver struct {
	Username *string `json:"username"`
}

// Commit is one commit recorded on a pull request.
type Commit struct {
	AuthorUsername string `json:"author_username"`
}

// CommitAttestations pairs a commit SHA with its attestation records, in the
// order the compliance service returned them.
type CommitAttestations struct {
	Commit       string
	Attestations []Attestation
}

// ParseCriteria decodes a list_attestations_for_criteria response body.
// The payload is a JSON object keyed by commit SHA; object key order is
// preserved so evaluation output follows the service's ordering end-to-end.
func ParseCriteria(data []byte) ([]CommitAttestations, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decoding attestations payload: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decoding attestations payload: expected object, got %v", tok)
	}

	var entries []CommitAttestations
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decoding attestations payload: %w", err)
		}
		commit, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decoding attestations payload: non-string key %v", keyTok)
		}

		var atts []Attestation
		if err := dec.Decode(&atts); err != nil {
			return nil, fmt.Errorf("decoding attestations for commit %s: %w", commit, err)
		}
		entries = append(entries, CommitAttestations{Commit: commit, Attestations: atts})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decoding attestations payload: %w", err)
	}

	return entries, nil
}
