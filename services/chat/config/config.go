// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the chat service configuration.
//
// Configuration comes from an optional YAML file with environment
// variable overrides on top, so container deployments can run with no
// file at all. Precedence: defaults < file < environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized as overrides.
const (
	EnvPort        = "CHATD_PORT"
	EnvMetricsPort = "CHATD_METRICS_PORT"
	EnvDataDir     = "CHATD_DATA_DIR"
	EnvModels      = "CHATD_MODELS"
	EnvOTLP        = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Config is the chat service configuration.
type Config struct {
	// Port serves the chat API.
	Port int `yaml:"port"`

	// MetricsPort serves /metrics and /healthz separately from the API
	// when non-zero; zero keeps them on the API port.
	MetricsPort int `yaml:"metrics_port"`

	// DataDir is the Badger database directory.
	DataDir string `yaml:"data_dir"`

	// Models is the fallback chain, tried in order.
	Models []string `yaml:"models"`

	// CandidateTimeout bounds each model attempt.
	CandidateTimeout time.Duration `yaml:"candidate_timeout"`

	// OTLPEndpoint enables trace export when set (host:port).
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		Port:             8080,
		DataDir:          "/data/chat",
		Models:           []string{"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.5-flash-lite"},
		CandidateTimeout: 60 * time.Second,
	}
}

// Load builds the configuration from the optional file at path plus
// environment overrides. An empty path skips the file; a missing file at
// an explicit path is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv(EnvMetricsPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMetricsPort, err)
		}
		cfg.MetricsPort = port
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvModels); v != "" {
		models := make([]string, 0)
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		cfg.Models = models
	}
	if v := os.Getenv(EnvOTLP); v != "" {
		cfg.OTLPEndpoint = v
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.MetricsPort != 0 && (c.MetricsPort < 1 || c.MetricsPort > 65535) {
		return fmt.Errorf("metrics port %d out of range", c.MetricsPort)
	}
	if c.MetricsPort == c.Port && c.MetricsPort != 0 {
		return fmt.Errorf("metrics port %d collides with api port", c.MetricsPort)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}
	if c.CandidateTimeout <= 0 {
		return fmt.Errorf("candidate_timeout must be positive")
	}
	return nil
}
