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

// Builder produces source-only signed packages with debuild.
type Builder struct {
	runner toolexec.Runner
}

// NewBuilder creates a Builder.
func NewBuilder(runner toolexec.Runner) *Builder {
	return &Builder{runner: runner}
}

// Build runs a source-only signed build in the staged tree. debuild
// writes the .dsc, .changes, and tarball artifacts into the tree's parent
// directory; SourcePackage names them for the upload stages.
func (b *Builder) Build(ctx context.Context, treeDir, keyID string) error {
	args := []string{"-S", "-sa"}
	if keyID != "" {
		args = append(args, "-k"+keyID)
	}

	_, err := b.runner.Run(ctx, toolexec.Spec{
		Program: "debuild",
		Args:    args,
		Dir:     treeDir,
		Console: true,
	})
	return err
}
