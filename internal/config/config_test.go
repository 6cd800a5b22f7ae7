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

package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
)

// writeConfig writes content to a .shipwright.yaml in a temp dir and
// returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
project: twitcher
docs: docs/README.rst
changelog:
  dir: packaging
  distribution: stable
metadata_globs: ["packaging/**", "*.md"]
required_paths: ["bin/twitcher"]
signing:
  key: "269B0DDE"
channel:
  host: "ppa:liquidgecka/twitcher"
  index: "https://archive.example.com/upload"
  token: "keychain:shipwright-upload"
  uploads_per_minute: 2
targets: [focal, jammy]
backport_policy: continue
staging:
  dir: out
clean_globs: ["out/**"]
history:
  path: out/journal.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Project != "twitcher" {
		t.Errorf("Project = %q, want twitcher", cfg.Project)
	}
	if cfg.Docs != "docs/README.rst" {
		t.Errorf("Docs = %q, want docs/README.rst", cfg.Docs)
	}
	if cfg.Changelog.Dir != "packaging" || cfg.Changelog.Distribution != "stable" {
		t.Errorf("Changelog = %+v, want packaging/stable", cfg.Changelog)
	}
	if want := []string{"packaging/**", "*.md"}; !reflect.DeepEqual(cfg.MetadataGlobs, want) {
		t.Errorf("MetadataGlobs = %v, want %v", cfg.MetadataGlobs, want)
	}
	if want := []string{"bin/twitcher"}; !reflect.DeepEqual(cfg.RequiredPaths, want) {
		t.Errorf("RequiredPaths = %v, want %v", cfg.RequiredPaths, want)
	}
	if cfg.Signing.Key != "269B0DDE" {
		t.Errorf("Signing.Key = %q, want 269B0DDE", cfg.Signing.Key)
	}
	if cfg.Channel.Host != "ppa:liquidgecka/twitcher" {
		t.Errorf("Channel.Host = %q", cfg.Channel.Host)
	}
	if cfg.Channel.Index != "https://archive.example.com/upload" {
		t.Errorf("Channel.Index = %q", cfg.Channel.Index)
	}
	if cfg.Channel.Token != "keychain:shipwright-upload" {
		t.Errorf("Channel.Token = %q", cfg.Channel.Token)
	}
	if cfg.Channel.UploadsPerMinute != 2 {
		t.Errorf("Channel.UploadsPerMinute = %d, want 2", cfg.Channel.UploadsPerMinute)
	}
	if want := []string{"focal", "jammy"}; !reflect.DeepEqual(cfg.Targets, want) {
		t.Errorf("Targets = %v, want %v", cfg.Targets, want)
	}
	if cfg.BackportPolicy != PolicyContinue {
		t.Errorf("BackportPolicy = %q, want continue", cfg.BackportPolicy)
	}
	if cfg.Staging.Dir != "out" {
		t.Errorf("Staging.Dir = %q, want out", cfg.Staging.Dir)
	}
	if cfg.History.Path != "out/journal.db" {
		t.Errorf("History.Path = %q, want out/journal.db", cfg.History.Path)
	}
}

func TestLoad_MinimalFile(t *testing.T) {
	path := writeConfig(t, "project: twitcher\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Docs != "README.md" {
		t.Errorf("Docs = %q, want README.md", cfg.Docs)
	}
	if cfg.Changelog.Dir != "debian" {
		t.Errorf("Changelog.Dir = %q, want debian", cfg.Changelog.Dir)
	}
	if cfg.Changelog.Distribution != "unstable" {
		t.Errorf("Changelog.Distribution = %q, want unstable", cfg.Changelog.Distribution)
	}
	if want := []string{"debian/**"}; !reflect.DeepEqual(cfg.MetadataGlobs, want) {
		t.Errorf("MetadataGlobs = %v, want %v", cfg.MetadataGlobs, want)
	}
	if want := []string{"bin/twitcher", "scripts/init.d/twitcher", "twitcher/"}; !reflect.DeepEqual(cfg.RequiredPaths, want) {
		t.Errorf("RequiredPaths = %v, want %v", cfg.RequiredPaths, want)
	}
	if cfg.BackportPolicy != PolicyFailFast {
		t.Errorf("BackportPolicy = %q, want fail_fast", cfg.BackportPolicy)
	}
	if cfg.Staging.Dir != "build" {
		t.Errorf("Staging.Dir = %q, want build", cfg.Staging.Dir)
	}
	if cfg.Channel.UploadsPerMinute != 6 {
		t.Errorf("Channel.UploadsPerMinute = %d, want 6", cfg.Channel.UploadsPerMinute)
	}
	wantClean := []string{"build/**", "*.upload", "version.txt", "deb_dist/**"}
	if !reflect.DeepEqual(cfg.CleanGlobs, wantClean) {
		t.Errorf("CleanGlobs = %v, want %v", cfg.CleanGlobs, wantClean)
	}
	if cfg.History.Path != filepath.Join("build", "shipwright.db") {
		t.Errorf("History.Path = %q, want build/shipwright.db", cfg.History.Path)
	}
}

func TestLoad_DerivedDefaultsFollowOverrides(t *testing.T) {
	path := writeConfig(t, `
project: twitcher
changelog:
  dir: packaging
staging:
  dir: out
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if want := []string{"packaging/**"}; !reflect.DeepEqual(cfg.MetadataGlobs, want) {
		t.Errorf("MetadataGlobs = %v, want %v", cfg.MetadataGlobs, want)
	}
	if cfg.History.Path != filepath.Join("out", "shipwright.db") {
		t.Errorf("History.Path = %q, want out/shipwright.db", cfg.History.Path)
	}
	wantClean := []string{"out/**", "*.upload", "version.txt", "deb_dist/**"}
	if !reflect.DeepEqual(cfg.CleanGlobs, wantClean) {
		t.Errorf("CleanGlobs = %v, want %v", cfg.CleanGlobs, wantClean)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), DefaultConfigName))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}

	var cfgErr *shipwrighterrors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T: %v", err, err)
	}
	if cfgErr.Key != "config_file" {
		t.Errorf("ConfigError.Key = %q, want config_file", cfgErr.Key)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "project: [unclosed\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for malformed YAML, got nil")
	}

	var cfgErr *shipwrighterrors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T: %v", err, err)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, "docs: README.md\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig in chain", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SHIPWRIGHT_SIGNING_KEY", "DEADBEEF")
	t.Setenv("SHIPWRIGHT_CHANNEL_HOST", "ppa:override/twitcher")
	t.Setenv("SHIPWRIGHT_CHANNEL_TOKEN", "env:OVERRIDE_TOKEN")
	t.Setenv("SHIPWRIGHT_UPLOADS_PER_MINUTE", "12")

	path := writeConfig(t, `
project: twitcher
signing:
  key: "269B0DDE"
channel:
  host: "ppa:liquidgecka/twitcher"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Signing.Key != "DEADBEEF" {
		t.Errorf("Signing.Key = %q, want env override DEADBEEF", cfg.Signing.Key)
	}
	if cfg.Channel.Host != "ppa:override/twitcher" {
		t.Errorf("Channel.Host = %q, want env override", cfg.Channel.Host)
	}
	if cfg.Channel.Token != "env:OVERRIDE_TOKEN" {
		t.Errorf("Channel.Token = %q, want env override", cfg.Channel.Token)
	}
	if cfg.Channel.UploadsPerMinute != 12 {
		t.Errorf("Channel.UploadsPerMinute = %d, want 12", cfg.Channel.UploadsPerMinute)
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), DefaultConfigName))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}

	if cfg.Project != "" {
		t.Errorf("Project = %q, want empty", cfg.Project)
	}
	if want := []string{"debian/**"}; !reflect.DeepEqual(cfg.MetadataGlobs, want) {
		t.Errorf("MetadataGlobs = %v, want %v", cfg.MetadataGlobs, want)
	}
}

func TestLoadOrDefault_ExistingFileStillValidated(t *testing.T) {
	path := writeConfig(t, "backport_policy: sometimes\n")

	_, err := LoadOrDefault(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig in chain", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty project",
			mutate:  func(c *Config) { c.Project = "" },
			wantErr: "project is required",
		},
		{
			name:    "unknown backport policy",
			mutate:  func(c *Config) { c.BackportPolicy = "sometimes" },
			wantErr: "backport_policy",
		},
		{
			name:    "malformed token reference",
			mutate:  func(c *Config) { c.Channel.Token = "not-a-ref" },
			wantErr: "channel.token",
		},
		{
			name:    "unknown token scheme",
			mutate:  func(c *Config) { c.Channel.Token = "vault:upload" },
			wantErr: "channel.token",
		},
		{
			name:    "negative uploads per minute",
			mutate:  func(c *Config) { c.Channel.UploadsPerMinute = -1 },
			wantErr: "uploads_per_minute",
		},
		{
			name:    "blank target",
			mutate:  func(c *Config) { c.Targets = []string{"focal", " "} },
			wantErr: "targets[1]",
		},
		{
			name:    "blank metadata glob",
			mutate:  func(c *Config) { c.MetadataGlobs = []string{""} },
			wantErr: "metadata_globs[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Project = "twitcher"
			cfg.applyDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig in chain", err)
			}
			if got := err.Error(); !strings.Contains(got, tt.wantErr) {
				t.Errorf("error %q does not mention %q", got, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.applyDefaults()
	cfg.BackportPolicy = "sometimes"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "project is required") || !strings.Contains(msg, "backport_policy") {
		t.Errorf("error %q should report both problems", msg)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigName)

	cfg := Default()
	cfg.Project = "twitcher"
	cfg.Signing.Key = "269B0DDE"
	cfg.Channel.Host = "ppa:liquidgecka/twitcher"
	cfg.Targets = []string{"focal", "jammy"}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() after Save error = %v", err)
	}
	if loaded.Project != "twitcher" || loaded.Signing.Key != "269B0DDE" {
		t.Errorf("round trip lost data: %+v", loaded)
	}
	if !reflect.DeepEqual(loaded.Targets, cfg.Targets) {
		t.Errorf("Targets = %v, want %v", loaded.Targets, cfg.Targets)
	}

	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

