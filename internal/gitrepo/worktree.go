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

package gitrepo

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5"
)

// CommitPaths stages the given paths and commits them with the given
// message. Paths are relative to the repository root. The returned string
// is the new commit's hash.
func (r *Repo) CommitPaths(ctx context.Context, paths []string, message string, sig Signature) (string, error) {
	for _, path := range paths {
		if _, err := r.worktree.Add(path); err != nil {
			return "", WrapErrorf(err, "staging %s", path)
		}
	}

	hash, err := r.worktree.Commit(message, &git.CommitOptions{
		Author: sig.toObject(),
	})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			return "", WrapError(ErrEmptyCommit, "committing")
		}
		return "", WrapError(err, "creating commit")
	}

	return hash.String(), nil
}
