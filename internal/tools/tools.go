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

// Package tools wraps the external packaging tools the release pipeline
// drives: gpg for the signing capability check, debuild for source-only
// package builds, dput for channel uploads, and backportpackage for
// distribution-target backports. Every adapter runs through a
// toolexec.Runner so tests substitute a fake.
package tools

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/time/rate"
)

// SourcePackage names the artifacts a source-only build leaves next to
// the staged tree.
type SourcePackage struct {
	// Project is the package name.
	Project string

	// Version is the upstream version, e.g. 1.2.3.
	Version string

	// Revision is the packaging revision from the changelog, e.g. 1.
	Revision string

	// Dir is the directory the build writes artifacts into, normally the
	// staging directory holding the source tree.
	Dir string
}

func (p SourcePackage) baseName() string {
	return fmt.Sprintf("%s_%s-%s", p.Project, p.Version, p.Revision)
}

// ChangesFile is the upload manifest dput consumes.
func (p SourcePackage) ChangesFile() string {
	return filepath.Join(p.Dir, p.baseName()+"_source.changes")
}

// DSCFile is the source package descriptor backportpackage consumes.
func (p SourcePackage) DSCFile() string {
	return filepath.Join(p.Dir, p.baseName()+".dsc")
}

// Throttle paces channel uploads so a run across many backport targets
// does not flood the archive. One Throttle is shared by the uploader and
// the backporter.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle allows uploadsPerMinute uploads per minute, with the first
// upload admitted immediately. Zero or negative disables pacing.
func NewThrottle(uploadsPerMinute int) *Throttle {
	if uploadsPerMinute <= 0 {
		return &Throttle{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	perSecond := rate.Limit(float64(uploadsPerMinute) / 60.0)
	return &Throttle{limiter: rate.NewLimiter(perSecond, 1)}
}

// Wait blocks until the next upload may proceed or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}
