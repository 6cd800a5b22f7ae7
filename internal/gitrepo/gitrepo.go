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

// Package gitrepo provides repository access for version resolution and
// the release pipeline. Reads go through go-git; tag signing shells out
// to git so the operator's gpg agent holds the key.
package gitrepo

import (
	"context"
	"errors"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo wraps a git repository rooted at a project directory.
type Repo struct {
	repo     *git.Repository
	worktree *git.Worktree
	dir      string
}

// Open opens the repository rooted at dir. The directory must be the
// repository root, not a subdirectory of it.
func Open(ctx context.Context, dir string) (*Repo, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, WrapErrorf(ErrNotRepository, "opening %s", dir)
		}
		return nil, WrapErrorf(err, "opening repository at %s", dir)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, WrapError(err, "reading worktree")
	}

	return &Repo{
		repo:     repo,
		worktree: worktree,
		dir:      dir,
	}, nil
}

// Dir returns the on-disk root of the repository, or "" when the
// repository is not backed by a directory.
func (r *Repo) Dir() string {
	return r.dir
}

// Signature identifies the author of a commit. The zero value defers to
// the repository's configured user.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

func (s Signature) toObject() *object.Signature {
	if s.Name == "" && s.Email == "" {
		return nil
	}
	when := s.When
	if when.IsZero() {
		when = time.Now()
	}
	return &object.Signature{
		Name:  s.Name,
		Email: s.Email,
		When:  when,
	}
}
