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

// Uploader pushes source packages to the distribution channel with dput.
type Uploader struct {
	runner   toolexec.Runner
	throttle *Throttle
}

// NewUploader creates an Uploader paced by throttle.
func NewUploader(runner toolexec.Runner, throttle *Throttle) *Uploader {
	return &Uploader{runner: runner, throttle: throttle}
}

// Upload sends a .changes manifest and the files it references to host.
// Uploads are externally visible and cannot be withdrawn.
func (u *Uploader) Upload(ctx context.Context, host, changesFile string) error {
	if err := u.throttle.Wait(ctx); err != nil {
		return err
	}

	_, err := u.runner.Run(ctx, toolexec.Spec{
		Program: "dput",
		Args:    []string{host, changesFile},
		Console: true,
	})
	return err
}
