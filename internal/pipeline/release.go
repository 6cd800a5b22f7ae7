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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tombee/shipwright/internal/changelog"
	"github.com/tombee/shipwright/internal/history"
	"github.com/tombee/shipwright/internal/log"
	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
	"github.com/tombee/shipwright/pkg/version"
)

// Release runs the full new-version flow: validate, check capabilities,
// tag, update the changelog, then build, upload, backport, and clean.
// rawVersion is the operator-supplied version argument.
func (p *Pipeline) Release(ctx context.Context, rawVersion string) error {
	runID := p.beginRun(ctx, history.KindRelease, rawVersion)
	err := p.release(ctx, runID, rawVersion)
	p.finishRun(ctx, runID, err)
	return err
}

func (p *Pipeline) release(ctx context.Context, runID, rawVersion string) error {
	var ver version.Version

	err := p.runStage(ctx, runID, StageValidate, func(ctx context.Context) (stageOutcome, error) {
		v, err := p.validateRelease(ctx, rawVersion)
		if err != nil {
			return stageOutcome{}, err
		}
		ver = v
		return stageOutcome{detail: ver.String()}, nil
	})
	if err != nil {
		return err
	}

	if err := p.runStage(ctx, runID, StageCapabilities, p.checkCapabilities); err != nil {
		return err
	}

	// First mutation. Nothing from here on is rolled back on failure.
	err = p.runStage(ctx, runID, StageTag, func(ctx context.Context) (stageOutcome, error) {
		tag := ver.TagName()
		if err := p.repo.CreateSignedTag(ctx, tag, "Release "+ver.String()); err != nil {
			return stageOutcome{}, err
		}
		return stageOutcome{detail: tag}, nil
	})
	if err != nil {
		return err
	}

	err = p.runStage(ctx, runID, StageChangelog, func(ctx context.Context) (stageOutcome, error) {
		return p.releaseChangelog(ctx, ver)
	})
	if err != nil {
		return err
	}

	return p.downstream(ctx, runID, ver, "1")
}

// validateRelease checks every release precondition. No side effects
// occur before all of them pass; each violation carries its own
// diagnostic.
func (p *Pipeline) validateRelease(ctx context.Context, rawVersion string) (version.Version, error) {
	if rawVersion == "" {
		return version.Version{}, &shipwrighterrors.ValidationError{
			Field:      "version",
			Message:    "a release requires a version argument",
			Suggestion: "Run: shipwright release new <major.minor.revision>",
		}
	}

	ver, err := version.Parse(rawVersion)
	if err != nil {
		return version.Version{}, err
	}

	tag := ver.TagName()
	exists, err := p.repo.TagExists(ctx, tag)
	if err != nil {
		return version.Version{}, err
	}
	if exists {
		return version.Version{}, &shipwrighterrors.ValidationError{
			Field:      "version",
			Message:    fmt.Sprintf("version %s has already been released (tag %s exists)", ver, tag),
			Suggestion: "Pick a version that has not been tagged yet",
		}
	}

	if err := p.checkDocumented(ver); err != nil {
		return version.Version{}, err
	}

	clean, err := p.repo.IsClean(ctx)
	if err != nil {
		return version.Version{}, err
	}
	if !clean {
		return version.Version{}, &shipwrighterrors.ValidationError{
			Field:      "worktree",
			Message:    "the working tree has uncommitted changes",
			Suggestion: "Commit or stash your changes before releasing",
		}
	}

	return ver, nil
}

// checkDocumented requires the version to be mentioned in the project's
// documentation file before it can be released.
func (p *Pipeline) checkDocumented(ver version.Version) error {
	docsPath := filepath.Join(p.workdir, p.cfg.Docs)
	data, err := os.ReadFile(docsPath)
	if err != nil {
		return &shipwrighterrors.ValidationError{
			Field:      "docs",
			Message:    fmt.Sprintf("cannot read %s: %v", p.cfg.Docs, err),
			Suggestion: "Check the docs setting in .shipwright.yaml",
		}
	}
	if !strings.Contains(string(data), ver.String()) {
		return &shipwrighterrors.ValidationError{
			Field:      "version",
			Message:    fmt.Sprintf("version %s is not documented in %s", ver, p.cfg.Docs),
			Suggestion: fmt.Sprintf("Add release notes for %s to %s before releasing", ver, p.cfg.Docs),
		}
	}
	return nil
}

// checkCapabilities proves the signing key and, when configured, the
// channel token are usable. Runs before the first mutation so a broken
// credential never strands a half-finished release.
func (p *Pipeline) checkCapabilities(ctx context.Context) (stageOutcome, error) {
	if err := p.signer.HealthCheck(ctx); err != nil {
		return stageOutcome{}, err
	}

	if p.cfg.Channel.Token != "" && p.secrets != nil {
		if _, err := p.secrets.Resolve(ctx, p.cfg.Channel.Token); err != nil {
			return stageOutcome{}, &shipwrighterrors.CapabilityError{
				Capability: "upload token",
				Message:    fmt.Sprintf("cannot resolve %s", p.cfg.Channel.Token),
				Suggestion: "Check the channel.token reference in .shipwright.yaml",
				Cause:      err,
			}
		}
	}

	return stageOutcome{}, nil
}

// releaseChangelog appends the <version>-1 entry, finalizes it, and
// commits the changelog.
func (p *Pipeline) releaseChangelog(ctx context.Context, ver version.Version) (stageOutcome, error) {
	file, err := changelog.Load(p.changelogPath())
	if err != nil {
		return stageOutcome{}, err
	}

	now := p.now()
	if err := file.NewUpstream(ver.String(), "Upstream release "+ver.String()+".", now); err != nil {
		return stageOutcome{}, err
	}
	if err := file.Finalize(p.cfg.Changelog.Distribution, now); err != nil {
		return stageOutcome{}, err
	}
	if err := file.Save(); err != nil {
		return stageOutcome{}, err
	}

	debVersion := file.First().Version
	message := "Update changelog for " + debVersion
	if _, err := p.repo.CommitPaths(ctx, []string{p.changelogRelPath()}, message); err != nil {
		return stageOutcome{}, err
	}

	return stageOutcome{detail: debVersion}, nil
}

// DebianRelease runs the reduced flow for a packaging-only change: the
// upstream version stays, only the packaging revision is bumped.
func (p *Pipeline) DebianRelease(ctx context.Context) error {
	runID := p.beginRun(ctx, history.KindDebianRelease, "")
	err := p.debianRelease(ctx, runID)
	p.finishRun(ctx, runID, err)
	return err
}

func (p *Pipeline) debianRelease(ctx context.Context, runID string) error {
	err := p.runStage(ctx, runID, StageValidate, func(ctx context.Context) (stageOutcome, error) {
		clean, err := p.repo.IsClean(ctx)
		if err != nil {
			return stageOutcome{}, err
		}
		if !clean {
			return stageOutcome{}, &shipwrighterrors.ValidationError{
				Field:      "worktree",
				Message:    "the working tree has uncommitted changes",
				Suggestion: "Commit or stash your changes before releasing",
			}
		}
		return stageOutcome{}, nil
	})
	if err != nil {
		return err
	}

	if err := p.runStage(ctx, runID, StageCapabilities, p.checkCapabilities); err != nil {
		return err
	}

	var ver version.Version
	var revision string

	err = p.runStage(ctx, runID, StageChangelog, func(ctx context.Context) (stageOutcome, error) {
		file, err := changelog.Load(p.changelogPath())
		if err != nil {
			return stageOutcome{}, err
		}

		now := p.now()
		if err := file.BumpPackaging("New package build.", now); err != nil {
			return stageOutcome{}, err
		}
		if err := file.Finalize(p.cfg.Changelog.Distribution, now); err != nil {
			return stageOutcome{}, err
		}

		entry := file.First()
		upstream, err := entry.UpstreamVersion()
		if err != nil {
			return stageOutcome{}, err
		}
		ver, err = version.Parse(upstream)
		if err != nil {
			return stageOutcome{}, err
		}
		revision, err = entry.PackagingRevision()
		if err != nil {
			return stageOutcome{}, err
		}

		// The bumped packaging revision rebuilds the tagged upstream
		// tree, so the release tag must already exist.
		exists, err := p.repo.TagExists(ctx, ver.TagName())
		if err != nil {
			return stageOutcome{}, err
		}
		if !exists {
			return stageOutcome{}, &shipwrighterrors.ValidationError{
				Field:      "version",
				Message:    fmt.Sprintf("upstream version %s has no release tag %s", ver, ver.TagName()),
				Suggestion: "Run: shipwright release new " + ver.String(),
			}
		}

		if err := file.Save(); err != nil {
			return stageOutcome{}, err
		}

		message := "Update changelog for " + entry.Version
		if _, err := p.repo.CommitPaths(ctx, []string{p.changelogRelPath()}, message); err != nil {
			return stageOutcome{}, err
		}

		p.logger.Info("packaging revision bumped",
			log.VersionKey, entry.Version)
		return stageOutcome{detail: entry.Version}, nil
	})
	if err != nil {
		return err
	}

	return p.downstream(ctx, runID, ver, revision)
}
