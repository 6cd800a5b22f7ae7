// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads and validates .shipwright.yaml, the per-project
// release configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tombee/shipwright/internal/secrets"
	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultConfigName is the configuration file shipwright looks for in the
// project directory.
const DefaultConfigName = ".shipwright.yaml"

// Backport policies.
const (
	// PolicyFailFast stops backporting at the first failed target.
	PolicyFailFast = "fail_fast"

	// PolicyContinue attempts every target and reports the failures at
	// the end.
	PolicyContinue = "continue"
)

// ErrInvalidConfig is returned when configuration validation fails.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the complete shipwright configuration for one project.
type Config struct {
	// Project is the package name. Required; everything else has a
	// default derived from it.
	Project string `yaml:"project"`

	// Docs is the documentation file that must mention the version being
	// released. Default: README.md
	Docs string `yaml:"docs,omitempty"`

	// Changelog configures the debian changelog location and the
	// distribution stamped on finalized entries.
	Changelog ChangelogConfig `yaml:"changelog,omitempty"`

	// MetadataGlobs name the paths ignored when deciding whether the
	// source changed since the last release tag. Default: <changelog dir>/**
	MetadataGlobs []string `yaml:"metadata_globs,omitempty"`

	// RequiredPaths must exist in a staged source tree before it is
	// archived. Defaults: bin/<project>, scripts/init.d/<project>, <project>/
	RequiredPaths []string `yaml:"required_paths,omitempty"`

	// Signing configures release tag and package signing.
	Signing SigningConfig `yaml:"signing,omitempty"`

	// Channel configures where built packages are uploaded.
	Channel ChannelConfig `yaml:"channel,omitempty"`

	// Targets are the distribution series backports are built for.
	Targets []string `yaml:"targets,omitempty"`

	// BackportPolicy is fail_fast or continue. Default: fail_fast
	BackportPolicy string `yaml:"backport_policy,omitempty"`

	// Staging configures the scratch directory for source trees and
	// archives.
	Staging StagingConfig `yaml:"staging,omitempty"`

	// CleanGlobs are the patterns removed by the clean stage. Default:
	// <staging dir>/**, *.upload, version.txt, deb_dist/**
	CleanGlobs []string `yaml:"clean_globs,omitempty"`

	// History configures the release journal.
	History HistoryConfig `yaml:"history,omitempty"`
}

// ChangelogConfig configures the debian changelog.
type ChangelogConfig struct {
	// Dir is the metadata directory holding the changelog. Default: debian
	Dir string `yaml:"dir,omitempty"`

	// Distribution is stamped on entries when they are finalized for
	// release. Default: unstable
	Distribution string `yaml:"distribution,omitempty"`
}

// SigningConfig configures gpg signing.
type SigningConfig struct {
	// Key is the gpg key id used for tag and package signatures. Empty
	// means gpg's default key.
	// Environment: SHIPWRIGHT_SIGNING_KEY
	Key string `yaml:"key,omitempty"`
}

// ChannelConfig configures upload destinations.
type ChannelConfig struct {
	// Host is the dput target source packages are uploaded to.
	// Environment: SHIPWRIGHT_CHANNEL_HOST
	Host string `yaml:"host,omitempty"`

	// Index is an optional archive index the source tarball is published
	// to by sdist --publish. Empty disables index publishing.
	Index string `yaml:"index,omitempty"`

	// Token is an optional secret reference (env:NAME or keychain:NAME)
	// resolved when the index requires authentication.
	// Environment: SHIPWRIGHT_CHANNEL_TOKEN
	Token string `yaml:"token,omitempty"`

	// UploadsPerMinute throttles uploads. Zero disables throttling.
	// Default: 6
	UploadsPerMinute int `yaml:"uploads_per_minute,omitempty"`
}

// StagingConfig configures the scratch directory.
type StagingConfig struct {
	// Dir is where staged trees and archives are assembled, relative to
	// the project directory. Default: build
	Dir string `yaml:"dir,omitempty"`
}

// HistoryConfig configures the release journal.
type HistoryConfig struct {
	// Path is the journal database file, relative to the project
	// directory. Default: <staging dir>/shipwright.db
	Path string `yaml:"path,omitempty"`
}

// Default returns the built-in configuration before any file or
// environment overrides.
func Default() *Config {
	return &Config{
		Docs: "README.md",
		Changelog: ChangelogConfig{
			Dir:          "debian",
			Distribution: "unstable",
		},
		Channel: ChannelConfig{
			UploadsPerMinute: 6,
		},
		BackportPolicy: PolicyFailFast,
		Staging: StagingConfig{
			Dir: "build",
		},
	}
}

// Load reads the configuration file at path, applies defaults and
// environment overrides, and validates the result.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFromFile(configPath); err != nil {
		return nil, &shipwrighterrors.ConfigError{
			Key:    "config_file",
			Reason: fmt.Sprintf("failed to load from %s", configPath),
			Cause:  err,
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &shipwrighterrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load, except a missing file yields the
// default configuration without validation. Version resolution works in
// repositories that carry no .shipwright.yaml; anything that releases
// must use Load.
func LoadOrDefault(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		cfg.applyDefaults()
		cfg.loadFromEnv()
		return cfg, nil
	}
	return Load(configPath)
}

func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// applyDefaults fills zero values the file left unset. Defaults derived
// from the project name are only computed once a project is known.
func (c *Config) applyDefaults() {
	if c.Docs == "" {
		c.Docs = "README.md"
	}
	if c.Changelog.Dir == "" {
		c.Changelog.Dir = "debian"
	}
	if c.Changelog.Distribution == "" {
		c.Changelog.Distribution = "unstable"
	}
	if len(c.MetadataGlobs) == 0 {
		c.MetadataGlobs = []string{path.Join(c.Changelog.Dir, "**")}
	}
	if c.BackportPolicy == "" {
		c.BackportPolicy = PolicyFailFast
	}
	if c.Staging.Dir == "" {
		c.Staging.Dir = "build"
	}
	if len(c.CleanGlobs) == 0 {
		c.CleanGlobs = []string{
			path.Join(c.Staging.Dir, "**"),
			"*.upload",
			"version.txt",
			"deb_dist/**",
		}
	}
	if c.History.Path == "" {
		c.History.Path = filepath.Join(c.Staging.Dir, "shipwright.db")
	}
	if len(c.RequiredPaths) == 0 && c.Project != "" {
		c.RequiredPaths = []string{
			path.Join("bin", c.Project),
			path.Join("scripts", "init.d", c.Project),
			c.Project + "/",
		}
	}
}

// loadFromEnv overrides settings from SHIPWRIGHT_* environment variables.
// Environment variables take precedence over file values.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("SHIPWRIGHT_SIGNING_KEY"); val != "" {
		c.Signing.Key = val
	}
	if val := os.Getenv("SHIPWRIGHT_CHANNEL_HOST"); val != "" {
		c.Channel.Host = val
	}
	if val := os.Getenv("SHIPWRIGHT_CHANNEL_TOKEN"); val != "" {
		c.Channel.Token = val
	}
	if val := os.Getenv("SHIPWRIGHT_UPLOADS_PER_MINUTE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Channel.UploadsPerMinute = n
		}
	}
}

// Validate checks the configuration and returns an error describing every
// problem found.
func (c *Config) Validate() error {
	var errs []string

	if c.Project == "" {
		errs = append(errs, "project is required")
	}

	if c.BackportPolicy != PolicyFailFast && c.BackportPolicy != PolicyContinue {
		errs = append(errs, fmt.Sprintf("backport_policy must be one of [fail_fast, continue], got %q", c.BackportPolicy))
	}

	if c.Channel.Token != "" {
		if _, err := secrets.ParseRef(c.Channel.Token); err != nil {
			errs = append(errs, fmt.Sprintf("channel.token: %v", err))
		}
	}

	if c.Channel.UploadsPerMinute < 0 {
		errs = append(errs, fmt.Sprintf("channel.uploads_per_minute must be non-negative, got %d", c.Channel.UploadsPerMinute))
	}

	for i, target := range c.Targets {
		if strings.TrimSpace(target) == "" {
			errs = append(errs, fmt.Sprintf("targets[%d] must not be empty", i))
		}
	}

	for i, glob := range c.MetadataGlobs {
		if strings.TrimSpace(glob) == "" {
			errs = append(errs, fmt.Sprintf("metadata_globs[%d] must not be empty", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}

	return nil
}
