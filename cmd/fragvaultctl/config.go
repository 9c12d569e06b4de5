package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ryanuber/go-glob"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML configuration fragvaultctl accepts via
// --config, entirely separate from the core pipeline: the pipeline
// package itself consumes no environment variables or config files.
type fileConfig struct {
	Nodes             []string `yaml:"nodes"`
	ReplicationFactor int      `yaml:"replication_factor"`
	FragmentSize      int      `yaml:"fragment_size"`
	Concurrency       int      `yaml:"concurrency"`

	S3 *s3FileConfig `yaml:"s3,omitempty"`

	Audit struct {
		Enabled  bool   `yaml:"enabled"`
		SinkType string `yaml:"sink_type"`
		Endpoint string `yaml:"endpoint"`
		FilePath string `yaml:"file_path"`
	} `yaml:"audit"`

	Telemetry struct {
		Exporter string `yaml:"exporter"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"telemetry"`

	Guard struct {
		RedisAddr string `yaml:"redis_addr"`
	} `yaml:"guard"`
}

type s3FileConfig struct {
	// Provider names one of storageio.KnownProviders (aws, minio,
	// wasabi, backblaze, ...) to fill in Endpoint/Region defaults;
	// leave empty to specify Endpoint/Region explicitly.
	Provider  string `yaml:"provider"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// expandNodeGlobs expands any glob pattern in nodes against the
// candidates list (the set of directories actually present under a
// parent node root), preserving nodes that are not glob patterns
// unchanged. Used so a config can say "nodes: [/data/node-*]" instead of
// enumerating every node directory by hand.
func expandNodeGlobs(patterns []string, candidates []string) []string {
	seen := make(map[string]bool, len(patterns))
	var expanded []string

	for _, pattern := range patterns {
		if !strings.Contains(pattern, "*") {
			if !seen[pattern] {
				seen[pattern] = true
				expanded = append(expanded, pattern)
			}
			continue
		}

		matched := false
		for _, candidate := range candidates {
			if glob.Glob(pattern, candidate) {
				matched = true
				if !seen[candidate] {
					seen[candidate] = true
					expanded = append(expanded, candidate)
				}
			}
		}
		if !matched && !seen[pattern] {
			seen[pattern] = true
			expanded = append(expanded, pattern)
		}
	}

	return expanded
}
