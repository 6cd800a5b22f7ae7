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

// Package history keeps the release journal: one row per pipeline run and
// one per stage outcome, in a project-local SQLite database. The journal
// is append-only; re-releasing a version adds a new run rather than
// rewriting an old one.
package history

import (
	"time"
)

// Run kinds.
const (
	KindRelease       = "release"        // full new-version release
	KindDebianRelease = "debian_release" // packaging-revision-only release
	KindSdist         = "sdist"          // standalone archive assembly
	KindBuild         = "build"          // standalone package build
	KindPublish       = "publish"        // standalone upload + backport
	KindClean         = "clean"          // standalone workspace cleanup
)

// Run and stage statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Run is one pipeline invocation.
type Run struct {
	// ID is the uuid assigned when the run begins.
	ID string

	// Kind is one of the Kind constants.
	Kind string

	// Version is the version being released, when the run has one.
	Version string

	// Status is running until FinishRun records the outcome.
	Status string

	StartedAt  time.Time
	FinishedAt time.Time

	// Error is the failure message for failed runs.
	Error string

	// Stages are the recorded stage outcomes in execution order. Only
	// populated by Get.
	Stages []StageEvent
}

// StageEvent is one stage outcome within a run.
type StageEvent struct {
	RunID string

	// Stage is the pipeline stage name, e.g. "tag" or "backport".
	Stage string

	// Status is succeeded, failed, or skipped.
	Status string

	StartedAt  time.Time
	FinishedAt time.Time

	// Detail carries stage-specific context, e.g. the backport target or
	// the archive path.
	Detail string

	// Error is the failure message for failed stages.
	Error string
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	// Kind matches runs of one kind.
	Kind string

	// Version matches runs for one version.
	Version string

	// Status matches runs with one outcome.
	Status string

	// Limit caps the number of runs returned, newest first. Zero means
	// no cap.
	Limit int
}
