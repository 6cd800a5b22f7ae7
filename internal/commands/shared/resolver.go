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

package shared

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/tombee/shipwright/internal/archive"
	"github.com/tombee/shipwright/internal/config"
	"github.com/tombee/shipwright/internal/gitrepo"
	"github.com/tombee/shipwright/internal/history"
	"github.com/tombee/shipwright/internal/log"
	"github.com/tombee/shipwright/internal/pipeline"
	"github.com/tombee/shipwright/internal/secrets"
	"github.com/tombee/shipwright/internal/toolexec"
	"github.com/tombee/shipwright/internal/tools"
	shipwrightversion "github.com/tombee/shipwright/pkg/version"
)

// Toolchain is the wired set of collaborators release commands run
// against: the project configuration, the repository, and the pipeline.
type Toolchain struct {
	Config   *config.Config
	Workdir  string
	Repo     *gitrepo.Repo
	Pipeline *pipeline.Pipeline
	Journal  *history.Store
	Logger   *slog.Logger
}

// Close releases the toolchain's resources.
func (t *Toolchain) Close() {
	if t.Journal != nil {
		if err := t.Journal.Close(); err != nil {
			t.Logger.Warn("failed to close release journal", log.Error(err))
		}
	}
}

// BuildToolchain wires a Toolchain from the global flags. Release
// commands require a valid .shipwright.yaml; a missing or invalid file
// is a configuration error.
func BuildToolchain(ctx context.Context, logger *slog.Logger) (*Toolchain, error) {
	workdir := GetRepoPath()

	cfg, err := config.Load(GetConfigPath())
	if err != nil {
		return nil, err
	}

	repo, err := gitrepo.Open(ctx, workdir)
	if err != nil {
		return nil, err
	}

	runner := toolexec.NewExecRunner(logger)
	throttle := tools.NewThrottle(cfg.Channel.UploadsPerMinute)

	// A broken journal is logged, never fatal: releases go out with or
	// without history rows.
	var journal *history.Store
	journalPath := filepath.Join(workdir, cfg.History.Path)
	if store, err := history.Open(journalPath); err != nil {
		logger.Warn("release journal unavailable", "path", journalPath, log.Error(err))
	} else {
		journal = store
	}

	deps := pipeline.Deps{
		Config:  cfg,
		Workdir: workdir,
		Repo: &pipeline.GitRepository{
			Repo:   repo,
			Runner: runner,
			KeyID:  cfg.Signing.Key,
		},
		Stager:     archive.NewAssembler(repo, logger),
		Signer:     tools.NewSigner(runner, cfg.Signing.Key),
		Builder:    tools.NewBuilder(runner),
		Uploader:   tools.NewUploader(runner, throttle),
		Backporter: tools.NewBackporter(runner, throttle),
		Secrets:    secrets.DefaultResolver(),
		Logger:     logger,
	}
	if journal != nil {
		deps.Journal = journal
	}

	return &Toolchain{
		Config:   cfg,
		Workdir:  workdir,
		Repo:     repo,
		Pipeline: pipeline.New(deps),
		Journal:  journal,
		Logger:   logger,
	}, nil
}

// ResolveVersion derives the current project version from repository
// state. Works without a .shipwright.yaml; the defaults cover the
// metadata globs.
func ResolveVersion(ctx context.Context) (shipwrightversion.Version, error) {
	cfg, err := config.LoadOrDefault(GetConfigPath())
	if err != nil {
		return shipwrightversion.Version{}, err
	}

	repo, err := gitrepo.Open(ctx, GetRepoPath())
	if err != nil {
		return shipwrightversion.Version{}, err
	}

	resolver := shipwrightversion.NewResolver(repo, cfg.MetadataGlobs)
	return resolver.Resolve(ctx)
}

// NewLogger builds the command logger from the environment, adjusted by
// the --verbose and --quiet flags.
func NewLogger() *slog.Logger {
	cfg := log.FromEnv()
	if GetVerbose() {
		cfg.Level = "debug"
	}
	if GetQuiet() {
		cfg.Level = "error"
	}
	return log.New(cfg)
}
