// SPDX-License-Identifier: AGPL-3.0-or-later

// Package trailapi is a client for the compliance service's attestation API.
//
// The service groups evidence into flows and trails; this client covers the
// two endpoints the evaluator needs: searching attestations for a set of
// commits, and reporting a custom attestation onto a trail. Every call is a
// single attempt with no retry; any failure is fatal to the run.
package trailapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/revtrail/revtrail/internal/attestation"
)

// defaultHTTPClient enforces a timeout as a safety net alongside context
// cancellation.
var defaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

// Client talks to a Kosli-compatible attestation API on behalf of one
// organization.
type Client struct {
	httpClient *http.Client
	host       string
	org        string
	token      string
}

// NewClient creates a Client for the given API host and organization,
// authenticating with the bearer token.
func NewClient(host, org, token string) *Client {
	return &Client{
		httpClient: defaultHTTPClient,
		host:       strings.TrimRight(host, "/"),
		org:        org,
		token:      token,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing against httptest servers.
func NewClientWithHTTPClient(httpClient *http.Client, host, org, token string) *Client {
	c := NewClient(host, org, token)
	c.httpClient = httpClient
	return c
}

// ListAttestationsForCriteria fetches the pull_request attestations recorded
// for the given commits. flowName narrows the search when non-empty.
//
// The raw response body is returned rather than a decoded value so callers
// can persist it byte-verbatim as the evidence artifact.
func (c *Client) ListAttestationsForCriteria(ctx context.Context, flowName string, commits []string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/api/v2/attestations/%s/list_attestations_for_criteria", c.host, url.PathEscape(c.org))

	params := url.Values{}
	params.Set("attestation_type", "pull_request")
	if flowName != "" {
		params.Set("flow_name", flowName)
	}
	for _, sha := range commits {
		params.Add("commit_list", sha)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building attestations request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("listing attestations: %w", err)
	}

	slog.Debug("fetched attestations",
		"org", c.org,
		"flow", flowName,
		"commits", len(commits),
		"bytes", len(body),
	)
	return body, nil
}

// ReportCustomAttestation uploads the evaluation results together with the
// raw evidence file as a multipart custom attestation on the given trail.
// The evidence file handle is closed on every exit path.
func (c *Client) ReportCustomAttestation(ctx context.Context, flowName, trailName string, results []attestation.Result, evidencePath string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/api/v2/attestations/%s/%s/trail/%s/custom",
		c.host, url.PathEscape(c.org), url.PathEscape(flowName), url.PathEscape(trailName))

	f, err := os.Open(evidencePath)
	if err != nil {
		return nil, fmt.Errorf("opening evidence file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	dataPart, err := form.CreatePart(jsonPartHeader(`form-data; name="data_json"`))
	if err != nil {
		return nil, fmt.Errorf("building report payload: %w", err)
	}
	payload := struct {
		AttestationData []attestation.Result `json:"attestation_data"`
	}{AttestationData: results}
	if err := json.NewEncoder(dataPart).Encode(payload); err != nil {
		return nil, fmt.Errorf("encoding attestation data: %w", err)
	}

	disposition := fmt.Sprintf(`form-data; name="attachment_file"; filename=%q`, filepath.Base(evidencePath))
	filePart, err := form.CreatePart(jsonPartHeader(disposition))
	if err != nil {
		return nil, fmt.Errorf("building report payload: %w", err)
	}
	if _, err := io.Copy(filePart, f); err != nil {
		return nil, fmt.Errorf("reading evidence file: %w", err)
	}

	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("finalizing report payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("building report request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("reporting custom attestation: %w", err)
	}

	slog.Debug("reported custom attestation",
		"org", c.org,
		"flow", flowName,
		"trail", trailName,
		"results", len(results),
	)
	return body, nil
}

func jsonPartHeader(disposition string) textproto.MIMEHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", disposition)
	h.Set("Content-Type", "application/json")
	return h
}

// do executes the request and reads the full body. Any non-2xx status is an
// error carrying the status and a snippet of the response body.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: %s: %s", req.Method, req.URL.Path, resp.Status, bodySnippet(body))
	}
	return body, nil
}

func bodySnippet(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "(empty body)"
	}
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
