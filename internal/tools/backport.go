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

package tools

import (
	"context"

	"github.com/tombee/shipwright/internal/toolexec"
)

// Backporter rebuilds an uploaded source package for a distribution
// target and uploads the result to the same channel.
type Backporter struct {
	runner   toolexec.Runner
	throttle *Throttle
}

// NewBackporter creates a Backporter paced by throttle.
func NewBackporter(runner toolexec.Runner, throttle *Throttle) *Backporter {
	return &Backporter{runner: runner, throttle: throttle}
}

// BackportRequest describes one backport build.
type BackportRequest struct {
	// DSCFile is the source package descriptor from the primary build.
	DSCFile string

	// Target is the distribution series to backport to, e.g. focal.
	Target string

	// Host is the upload target, the same channel as the primary upload.
	Host string

	// Workdir is the scratch directory for the re-targeted build.
	Workdir string

	// KeyID signs the re-targeted package; empty uses gpg's default key.
	KeyID string
}

// Backport re-targets the source package at req.Target with version
// suffix ~<target>1 and uploads it. The suffix sorts the backport below
// the archive's own build of the same revision.
func (b *Backporter) Backport(ctx context.Context, req BackportRequest) error {
	if err := b.throttle.Wait(ctx); err != nil {
		return err
	}

	args := []string{
		"-d", req.Target,
		"-u", req.Host,
		"-S", "~" + req.Target + "1",
		"-y",
	}
	if req.Workdir != "" {
		args = append(args, "-w", req.Workdir)
	}
	if req.KeyID != "" {
		args = append(args, "-k", req.KeyID)
	}
	args = append(args, req.DSCFile)

	_, err := b.runner.Run(ctx, toolexec.Spec{
		Program: "backportpackage",
		Args:    args,
		Console: true,
	})
	return err
}
