// SPDX-License-Identifier: AGPL-3.0-or-later

// Package evidence writes the run's output artifacts: the raw attestation
// payload and the evaluation results, plus a human summary for the terminal.
package evidence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/revtrail/revtrail/internal/attestation"
)

// WriteRaw persists the fetched attestation payload byte-verbatim. The
// reported attachment must match what the service returned, so the payload
// is never re-marshaled.
func WriteRaw(path string, data []byte) error {
	return atomicWrite(path, data)
}

// WriteResults persists the evaluation results as an indented JSON artifact.
func WriteResults(path string, results []attestation.Result) error {
	var buf bytes.Buffer
	if err := EncodeResults(&buf, results); err != nil {
		return err
	}
	return atomicWrite(path, buf.Bytes())
}

// EncodeResults writes the results as two-space-indented JSON, the same
// encoding used for the results artifact and the stdout echo.
func EncodeResults(w io.Writer, results []attestation.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	return nil
}

var (
	passLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
)

// RenderSummary prints one PASS/FAIL line per commit for human inspection,
// with the pull request link when one was recorded.
func RenderSummary(w io.Writer, results []attestation.Result) {
	for _, r := range results {
		label := failLabel("FAIL")
		if r.Pass {
			label = passLabel("PASS")
		}
		fmt.Fprintf(w, "%s  %s  %s\n", label, shortSHA(r.Commit), r.Reason)
		if r.PRURL != "" {
			fmt.Fprintf(w, "      pr: %s\n", r.PRURL)
		}
	}
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}

// atomicWrite writes content to path atomically by writing a temp file in
// the target directory and renaming it, creating the directory as needed.
func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, "evidence-tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(content); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing content: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), path); err != nil {
		return fmt.Errorf("moving temp file to %s: %w", path, err)
	}

	return nil
}
