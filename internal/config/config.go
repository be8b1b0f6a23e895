// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads evaluator configuration from an optional YAML file
// and the environment. Flags override everything loaded here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Built-in defaults and the token environment variable.
const (
	DefaultHost         = "https://api.kosli.com"
	DefaultOutputFile   = "evaluation_results.json"
	DefaultEvidenceFile = "attestations_evidence.json"
	DefaultConfigFile   = ".revtrail.yaml"

	EnvAPIToken = "REVTRAIL_API_TOKEN"
)

// Config holds the settings shared by the report pipeline. The API token is
// never read from the file; it comes from the environment or a flag.
type Config struct {
	Host         string `yaml:"host"`
	Org          string `yaml:"org"`
	SearchFlow   string `yaml:"search_flow"`
	Flow         string `yaml:"flow"`
	Trail        string `yaml:"trail"`
	OutputFile   string `yaml:"output_file"`
	EvidenceFile string `yaml:"evidence_file"`

	APIToken string `yaml:"-"`
}

// Load reads the config file at path, falling back to built-in defaults for
// anything unset. A missing file is fine (defaults apply); unreadable or
// invalid YAML is a fatal config error. The API token is taken from
// REVTRAIL_API_TOKEN when present.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Host:         DefaultHost,
		OutputFile:   DefaultOutputFile,
		EvidenceFile: DefaultEvidenceFile,
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if token, ok := os.LookupEnv(EnvAPIToken); ok {
		cfg.APIToken = token
	}

	// Re-apply defaults the file may have blanked.
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.OutputFile == "" {
		cfg.OutputFile = DefaultOutputFile
	}
	if cfg.EvidenceFile == "" {
		cfg.EvidenceFile = DefaultEvidenceFile
	}

	return cfg, nil
}
