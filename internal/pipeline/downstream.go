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

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/tombee/shipwright/internal/archive"
	"github.com/tombee/shipwright/internal/changelog"
	"github.com/tombee/shipwright/internal/config"
	"github.com/tombee/shipwright/internal/history"
	"github.com/tombee/shipwright/internal/log"
	"github.com/tombee/shipwright/internal/tools"
	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
	"github.com/tombee/shipwright/pkg/version"
)

// downstream runs stages 6-9 and then cleans the workspace. The clean
// stage runs even when a downstream stage failed; a cleanup failure
// never masks the stage error.
func (p *Pipeline) downstream(ctx context.Context, runID string, ver version.Version, revision string) error {
	stageErr := p.downstreamStages(ctx, runID, ver, revision)

	cleanErr := p.runStage(ctx, runID, StageClean, p.cleanStage)

	if stageErr != nil {
		return stageErr
	}
	return cleanErr
}

func (p *Pipeline) downstreamStages(ctx context.Context, runID string, ver version.Version, revision string) error {
	var result *archive.Result

	err := p.runStage(ctx, runID, StageSdist, func(ctx context.Context) (stageOutcome, error) {
		r, err := p.assemble(ctx, ver)
		if err != nil {
			return stageOutcome{}, err
		}
		result = r
		return stageOutcome{detail: r.ArchivePath, skipped: r.Skipped}, nil
	})
	if err != nil {
		return err
	}

	err = p.runStage(ctx, runID, StageBuild, func(ctx context.Context) (stageOutcome, error) {
		if err := p.builder.Build(ctx, result.TreeDir, p.cfg.Signing.Key); err != nil {
			return stageOutcome{}, err
		}
		return stageOutcome{detail: result.TreeDir}, nil
	})
	if err != nil {
		return err
	}

	pkg := p.sourcePackage(ver, revision)

	err = p.runStage(ctx, runID, StageUpload, func(ctx context.Context) (stageOutcome, error) {
		if err := p.requireChannelHost(); err != nil {
			return stageOutcome{}, err
		}
		if err := p.uploader.Upload(ctx, p.cfg.Channel.Host, pkg.ChangesFile()); err != nil {
			return stageOutcome{}, err
		}
		return stageOutcome{detail: p.cfg.Channel.Host}, nil
	})
	if err != nil {
		return err
	}

	return p.backportAll(ctx, runID, pkg)
}

// assemble stages the tagged tree for ver and produces the source
// archive. An archive that already exists is a logged no-op.
func (p *Pipeline) assemble(ctx context.Context, ver version.Version) (*archive.Result, error) {
	return p.stager.Assemble(ctx, archive.Spec{
		Project:       p.cfg.Project,
		Version:       ver.String(),
		Rev:           ver.TagName(),
		StagingDir:    p.stagingDir(),
		RequiredPaths: p.cfg.RequiredPaths,
	})
}

// sourcePackage names the artifacts the build stage leaves in the
// staging directory.
func (p *Pipeline) sourcePackage(ver version.Version, revision string) tools.SourcePackage {
	return tools.SourcePackage{
		Project:  p.cfg.Project,
		Version:  ver.String(),
		Revision: revision,
		Dir:      p.stagingDir(),
	}
}

func (p *Pipeline) requireChannelHost() error {
	if p.cfg.Channel.Host == "" {
		return &shipwrighterrors.ConfigError{
			Key:    "channel.host",
			Reason: "uploads require a channel host",
		}
	}
	return nil
}

// backportAll processes every configured distribution target. Each
// target gets its own journal event. The configured policy decides
// whether the first failure aborts the remaining targets or every
// target is attempted and the failures reported together.
func (p *Pipeline) backportAll(ctx context.Context, runID string, pkg tools.SourcePackage) error {
	if len(p.cfg.Targets) == 0 {
		p.logger.Info("no backport targets configured, skipping backports",
			log.RunIDKey, runID)
		return nil
	}

	var errs []error
	for _, target := range p.cfg.Targets {
		logger := log.WithTarget(log.WithStageContext(p.logger, runID, StageBackport), target)
		started := p.now()

		err := p.backporter.Backport(ctx, tools.BackportRequest{
			DSCFile: pkg.DSCFile(),
			Target:  target,
			Host:    p.cfg.Channel.Host,
			Workdir: p.stagingDir(),
			KeyID:   p.cfg.Signing.Key,
		})

		event := history.StageEvent{
			RunID:      runID,
			Stage:      StageBackport,
			StartedAt:  started,
			FinishedAt: p.now(),
			Detail:     target,
		}
		if err != nil {
			event.Status = history.StatusFailed
			event.Error = err.Error()
			p.recordStage(ctx, event)
			logger.Error("backport failed", log.Error(err))

			wrapped := fmt.Errorf("backport to %s: %w", target, err)
			if p.cfg.BackportPolicy == config.PolicyFailFast {
				return wrapped
			}
			errs = append(errs, wrapped)
			continue
		}

		event.Status = history.StatusSucceeded
		p.recordStage(ctx, event)
		logger.Info("backport uploaded")
	}

	return errors.Join(errs...)
}

// RunSdist runs the archive-assembly stage standalone. When publish is
// set the archive is also uploaded to the configured index channel.
func (p *Pipeline) RunSdist(ctx context.Context, ver version.Version, publish bool) error {
	runID := p.beginRun(ctx, history.KindSdist, ver.String())

	var result *archive.Result
	err := p.runStage(ctx, runID, StageSdist, func(ctx context.Context) (stageOutcome, error) {
		r, err := p.assemble(ctx, ver)
		if err != nil {
			return stageOutcome{}, err
		}
		result = r
		return stageOutcome{detail: r.ArchivePath, skipped: r.Skipped}, nil
	})

	if err == nil && publish {
		err = p.runStage(ctx, runID, StageUpload, func(ctx context.Context) (stageOutcome, error) {
			if p.cfg.Channel.Index == "" {
				return stageOutcome{}, &shipwrighterrors.ConfigError{
					Key:    "channel.index",
					Reason: "publishing a source archive requires an index channel",
				}
			}
			if err := p.uploader.Upload(ctx, p.cfg.Channel.Index, result.ArchivePath); err != nil {
				return stageOutcome{}, err
			}
			return stageOutcome{detail: p.cfg.Channel.Index}, nil
		})
	}

	p.finishRun(ctx, runID, err)
	return err
}

// RunBuild runs the package-build stage standalone against an already
// staged tree.
func (p *Pipeline) RunBuild(ctx context.Context, ver version.Version) error {
	runID := p.beginRun(ctx, history.KindBuild, ver.String())

	err := p.runStage(ctx, runID, StageBuild, func(ctx context.Context) (stageOutcome, error) {
		result, err := p.assemble(ctx, ver)
		if err != nil {
			return stageOutcome{}, err
		}
		if err := p.builder.Build(ctx, result.TreeDir, p.cfg.Signing.Key); err != nil {
			return stageOutcome{}, err
		}
		return stageOutcome{detail: result.TreeDir}, nil
	})

	p.finishRun(ctx, runID, err)
	return err
}

// RunPublish runs the upload and backport stages standalone. The
// packaging revision comes from the newest changelog entry, which must
// belong to ver.
func (p *Pipeline) RunPublish(ctx context.Context, ver version.Version) error {
	runID := p.beginRun(ctx, history.KindPublish, ver.String())
	err := p.publish(ctx, runID, ver)
	p.finishRun(ctx, runID, err)
	return err
}

func (p *Pipeline) publish(ctx context.Context, runID string, ver version.Version) error {
	revision, err := p.changelogRevisionFor(ver)
	if err != nil {
		return err
	}
	pkg := p.sourcePackage(ver, revision)

	err = p.runStage(ctx, runID, StageUpload, func(ctx context.Context) (stageOutcome, error) {
		if err := p.requireChannelHost(); err != nil {
			return stageOutcome{}, err
		}
		if err := p.uploader.Upload(ctx, p.cfg.Channel.Host, pkg.ChangesFile()); err != nil {
			return stageOutcome{}, err
		}
		return stageOutcome{detail: p.cfg.Channel.Host}, nil
	})
	if err != nil {
		return err
	}

	return p.backportAll(ctx, runID, pkg)
}

// changelogRevisionFor reads the packaging revision from the newest
// changelog entry and checks the entry belongs to ver.
func (p *Pipeline) changelogRevisionFor(ver version.Version) (string, error) {
	file, err := changelog.Load(p.changelogPath())
	if err != nil {
		return "", err
	}
	entry := file.First()

	upstream, err := entry.UpstreamVersion()
	if err != nil {
		return "", err
	}
	if upstream != ver.String() {
		return "", &shipwrighterrors.ValidationError{
			Field:      "version",
			Message:    fmt.Sprintf("newest changelog entry is for %s, not %s", entry.Version, ver),
			Suggestion: "Release the version first, or publish the version the changelog names",
		}
	}

	return entry.PackagingRevision()
}

// RunClean runs the cleanup stage standalone.
func (p *Pipeline) RunClean(ctx context.Context) error {
	runID := p.beginRun(ctx, history.KindClean, "")
	err := p.runStage(ctx, runID, StageClean, p.cleanStage)
	p.finishRun(ctx, runID, err)
	return err
}
