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

// Package pipeline orchestrates release runs as a linear, forward-only
// sequence of stages.
//
// A run stops at the first failing stage. Mutating stages (tag,
// changelog commit, upload) are externally visible and are never rolled
// back on a later failure; preconditions and the signing capability are
// checked before the first mutation so the common failures happen while
// the repository is still untouched. The cleanup stage runs at the end
// of every release flow, on downstream failure paths included.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tombee/shipwright/internal/archive"
	"github.com/tombee/shipwright/internal/config"
	"github.com/tombee/shipwright/internal/gitrepo"
	"github.com/tombee/shipwright/internal/history"
	"github.com/tombee/shipwright/internal/log"
	"github.com/tombee/shipwright/internal/toolexec"
	"github.com/tombee/shipwright/internal/tools"
)

// Stage names, in execution order. Recorded in the release journal and
// attached to every stage log line.
const (
	StageValidate     = "validate"
	StageCapabilities = "capabilities"
	StageTag          = "tag"
	StageChangelog    = "changelog"
	StageSdist        = "sdist"
	StageBuild        = "build"
	StageUpload       = "upload"
	StageBackport     = "backport"
	StageClean        = "clean"
)

// Repository is the version-control surface the pipeline mutates.
type Repository interface {
	// IsClean reports whether the working tree has no uncommitted changes.
	IsClean(ctx context.Context) (bool, error)

	// TagExists reports whether a tag with the given name exists.
	TagExists(ctx context.Context, name string) (bool, error)

	// CreateSignedTag creates a signed annotated tag at HEAD.
	CreateSignedTag(ctx context.Context, name, message string) error

	// CommitPaths stages the given paths and commits them.
	CommitPaths(ctx context.Context, paths []string, message string) (string, error)
}

// Stager assembles the staged source tree and archive.
type Stager interface {
	Assemble(ctx context.Context, spec archive.Spec) (*archive.Result, error)
}

// Signer proves the release-signing credential is usable.
type Signer interface {
	HealthCheck(ctx context.Context) error
}

// Builder produces the source package from a staged tree.
type Builder interface {
	Build(ctx context.Context, treeDir, keyID string) error
}

// Uploader pushes an artifact to a distribution channel.
type Uploader interface {
	Upload(ctx context.Context, host, path string) error
}

// Backporter rebuilds the source package for a distribution target and
// uploads the result.
type Backporter interface {
	Backport(ctx context.Context, req tools.BackportRequest) error
}

// SecretResolver resolves credential references from the configuration.
type SecretResolver interface {
	Resolve(ctx context.Context, reference string) (string, error)
}

// Journal records runs and stage outcomes. *history.Store satisfies it.
type Journal interface {
	BeginRun(ctx context.Context, run history.Run) error
	FinishRun(ctx context.Context, runID string, runErr error) error
	RecordStage(ctx context.Context, event history.StageEvent) error
}

// Deps carries everything a Pipeline needs. Config, Workdir, and Repo
// are required; Journal and Secrets are optional.
type Deps struct {
	Config     *config.Config
	Workdir    string
	Repo       Repository
	Stager     Stager
	Signer     Signer
	Builder    Builder
	Uploader   Uploader
	Backporter Backporter
	Secrets    SecretResolver
	Journal    Journal
	Logger     *slog.Logger

	// Now and NewRunID are overridable for tests.
	Now      func() time.Time
	NewRunID func() string
}

// Pipeline drives release runs against one project working tree.
// Concurrent runs against the same tree are not supported; callers must
// serialize externally.
type Pipeline struct {
	cfg        *config.Config
	workdir    string
	repo       Repository
	stager     Stager
	signer     Signer
	builder    Builder
	uploader   Uploader
	backporter Backporter
	secrets    SecretResolver
	journal    Journal
	logger     *slog.Logger
	now        func() time.Time
	newRunID   func() string
}

// New creates a Pipeline from deps, filling defaults for the optional
// fields.
func New(deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	newRunID := deps.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}
	return &Pipeline{
		cfg:        deps.Config,
		workdir:    deps.Workdir,
		repo:       deps.Repo,
		stager:     deps.Stager,
		signer:     deps.Signer,
		builder:    deps.Builder,
		uploader:   deps.Uploader,
		backporter: deps.Backporter,
		secrets:    deps.Secrets,
		journal:    deps.Journal,
		logger:     logger,
		now:        now,
		newRunID:   newRunID,
	}
}

// changelogPath is the on-disk changelog location.
func (p *Pipeline) changelogPath() string {
	return filepath.Join(p.workdir, p.cfg.Changelog.Dir, "changelog")
}

// changelogRelPath is the changelog path relative to the repository
// root, as CommitPaths expects.
func (p *Pipeline) changelogRelPath() string {
	return filepath.ToSlash(filepath.Join(p.cfg.Changelog.Dir, "changelog"))
}

// stagingDir is the absolute staging directory.
func (p *Pipeline) stagingDir() string {
	return filepath.Join(p.workdir, p.cfg.Staging.Dir)
}

// GitRepository adapts *gitrepo.Repo to the Repository interface,
// binding the tool runner and signing key tag creation needs.
type GitRepository struct {
	Repo   *gitrepo.Repo
	Runner toolexec.Runner
	KeyID  string
}

var _ Repository = (*GitRepository)(nil)

// IsClean reports whether the working tree has no uncommitted changes.
func (g *GitRepository) IsClean(ctx context.Context) (bool, error) {
	return g.Repo.IsClean(ctx)
}

// TagExists reports whether a tag with the given name exists.
func (g *GitRepository) TagExists(ctx context.Context, name string) (bool, error) {
	return g.Repo.TagExists(ctx, name)
}

// CreateSignedTag creates a signed annotated tag at HEAD.
func (g *GitRepository) CreateSignedTag(ctx context.Context, name, message string) error {
	return g.Repo.CreateSignedTag(ctx, g.Runner, name, g.KeyID, message)
}

// CommitPaths stages the given paths and commits them.
func (g *GitRepository) CommitPaths(ctx context.Context, paths []string, message string) (string, error) {
	return g.Repo.CommitPaths(ctx, paths, message, gitrepo.Signature{})
}

// stageOutcome is what a stage function reports on success.
type stageOutcome struct {
	detail  string
	skipped bool
}

// beginRun opens a journal row for the run. Journal failures are logged
// and never fail a release.
func (p *Pipeline) beginRun(ctx context.Context, kind, version string) string {
	runID := p.newRunID()
	if p.journal == nil {
		return runID
	}
	err := p.journal.BeginRun(ctx, history.Run{
		ID:        runID,
		Kind:      kind,
		Version:   version,
		Status:    history.StatusRunning,
		StartedAt: p.now(),
	})
	if err != nil {
		p.logger.Warn("failed to record run start",
			log.RunIDKey, runID, log.Error(err))
	}
	return runID
}

// finishRun closes the journal row for the run.
func (p *Pipeline) finishRun(ctx context.Context, runID string, runErr error) {
	if p.journal == nil {
		return
	}
	if err := p.journal.FinishRun(ctx, runID, runErr); err != nil {
		p.logger.Warn("failed to record run outcome",
			log.RunIDKey, runID, log.Error(err))
	}
}

// recordStage writes one stage event to the journal.
func (p *Pipeline) recordStage(ctx context.Context, event history.StageEvent) {
	if p.journal == nil {
		return
	}
	if err := p.journal.RecordStage(ctx, event); err != nil {
		p.logger.Warn("failed to record stage outcome",
			log.RunIDKey, event.RunID, log.StageKey, event.Stage, log.Error(err))
	}
}

// runStage executes one stage, logging and journaling its outcome. The
// stage's error is returned unchanged.
func (p *Pipeline) runStage(ctx context.Context, runID, stage string, fn func(ctx context.Context) (stageOutcome, error)) error {
	logger := log.WithStageContext(p.logger, runID, stage)
	started := p.now()
	logger.Debug("stage started")

	outcome, err := fn(ctx)

	event := history.StageEvent{
		RunID:      runID,
		Stage:      stage,
		StartedAt:  started,
		FinishedAt: p.now(),
		Detail:     outcome.detail,
	}
	switch {
	case err != nil:
		event.Status = history.StatusFailed
		event.Error = err.Error()
		logger.Error("stage failed", log.Error(err))
	case outcome.skipped:
		event.Status = history.StatusSkipped
		logger.Info("stage skipped", "detail", outcome.detail)
	default:
		event.Status = history.StatusSucceeded
		logger.Info("stage succeeded", "detail", outcome.detail)
	}
	p.recordStage(ctx, event)

	return err
}
