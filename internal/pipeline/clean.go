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

	"github.com/bmatcuk/doublestar/v4"
)

// cleanStage removes the build byproducts named by the configured clean
// globs, restoring the workspace to its pre-release state. The release
// journal and its sqlite sidecar files survive even when a glob matches
// them: the journal is append-only across runs.
func (p *Pipeline) cleanStage(ctx context.Context) (stageOutcome, error) {
	removed := 0
	fsys := os.DirFS(p.workdir)

	for _, pattern := range p.cfg.CleanGlobs {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			// Invalid pattern - skip it
			continue
		}
		for _, match := range matches {
			if p.isJournalFile(match) {
				continue
			}
			target := filepath.Join(p.workdir, filepath.FromSlash(match))
			if err := os.RemoveAll(target); err != nil {
				return stageOutcome{}, fmt.Errorf("removing %s: %w", match, err)
			}
			removed++
		}
	}

	return stageOutcome{detail: fmt.Sprintf("removed %d entries", removed)}, nil
}

// isJournalFile reports whether a slash-separated workspace-relative
// path is the history database or one of its sqlite sidecars.
func (p *Pipeline) isJournalFile(rel string) bool {
	journal := filepath.ToSlash(p.cfg.History.Path)
	if journal == "" {
		return false
	}
	if rel == journal {
		return true
	}
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		if rel == journal+suffix {
			return true
		}
	}
	// Keep the directory holding the journal from being removed whole.
	dir := filepath.ToSlash(filepath.Dir(journal))
	return rel == dir || strings.HasPrefix(journal, rel+"/")
}
