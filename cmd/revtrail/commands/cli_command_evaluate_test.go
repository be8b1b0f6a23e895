// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revtrail/revtrail/cmd/revtrail/internal/clierr"
	"github.com/revtrail/revtrail/internal/attestation"
)

func TestEvaluateCommand(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "attestations.json")
	outputPath := filepath.Join(dir, "results.json")

	input := `{
		"aaa": [],
		"bbb": [{"attestation_type": "override", "is_compliant": false, "html_url": "https://app.example.com/att/1"}]
	}`
	require.NoError(t, os.WriteFile(inputPath, []byte(input), 0o600))

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"evaluate", "--input-file", inputPath, "--output-file", outputPath})

	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	var results []attestation.Result
	require.NoError(t, json.Unmarshal(data, &results))
	require.Len(t, results, 2)

	assert.Equal(t, "aaa", results[0].Commit)
	assert.False(t, results[0].Pass)
	assert.Equal(t, attestation.ReasonNoAttestations, results[0].Reason)
	assert.Nil(t, results[0].AttestationURL)

	assert.Equal(t, "bbb", results[1].Commit)
	assert.False(t, results[1].Pass)
	assert.Equal(t, attestation.ReasonOverriddenNonCompliant, results[1].Reason)

	assert.Contains(t, stdout.String(), "Evaluation results saved to: "+outputPath)
	assert.Contains(t, stdout.String(), attestation.ReasonNoAttestations)
	assert.Contains(t, stderr.String(), "FAIL")
}

func TestEvaluateCommand_MissingInputFile(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"evaluate", "--input-file", filepath.Join(t.TempDir(), "absent.json")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, 1, clierr.ExitCodeOf(err))
	assert.Contains(t, err.Error(), "reading input file")
}

func TestEvaluateCommand_MalformedInput(t *testing.T) {
	inputPath := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(inputPath, []byte("[]"), 0o600))

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"evaluate", "--input-file", inputPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, 1, clierr.ExitCodeOf(err))
}
