package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// serverConfig is the YAML configuration cmd/server accepts via --config.
// It mirrors cmd/fragvaultctl's fileConfig for the pipeline-facing fields
// and adds the HTTP listener settings the CLI has no use for.
type serverConfig struct {
	Nodes             []string `yaml:"nodes"`
	ReplicationFactor int      `yaml:"replication_factor"`
	FragmentSize      int      `yaml:"fragment_size"`
	Concurrency       int      `yaml:"concurrency"`

	Listen struct {
		Addr         string        `yaml:"addr"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"listen"`

	Telemetry struct {
		Exporter string `yaml:"exporter"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"telemetry"`

	Guard struct {
		RedisAddr string `yaml:"redis_addr"`
	} `yaml:"guard"`

	Audit struct {
		Enabled  bool   `yaml:"enabled"`
		SinkType string `yaml:"sink_type"`
		Endpoint string `yaml:"endpoint"`
		FilePath string `yaml:"file_path"`
	} `yaml:"audit"`

	// WatchNodes enables an advisory fsnotify watcher on every node
	// directory, logging externally-caused blob changes. Only meaningful
	// when nodes are local filesystem paths.
	WatchNodes bool `yaml:"watch_nodes"`
}

func loadServerConfig(path string) (*serverConfig, error) {
	cfg := &serverConfig{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
