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
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

// testRepo holds an in-memory repository plus its backing filesystem.
// clock hands out strictly increasing committer times so history walks
// ordered by committer time stay deterministic.
type testRepo struct {
	repo  *Repo
	fs    billy.Filesystem
	ctx   context.Context
	clock time.Time
}

// newTestRepo builds an empty in-memory repository. The dir field is set
// so operations that only pass it along (tag signing through a fake
// runner) still work.
func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err, "failed to initialize test repository")

	worktree, err := repo.Worktree()
	require.NoError(t, err, "failed to get worktree")

	return &testRepo{
		repo:  &Repo{repo: repo, worktree: worktree, dir: "/work/project"},
		fs:    fs,
		ctx:   context.Background(),
		clock: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (tr *testRepo) writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(tr.fs, path, []byte(content), 0o644),
		"failed to write %s", path)
}

func (tr *testRepo) removeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, tr.fs.Remove(path), "failed to remove %s", path)
}

func (tr *testRepo) nextSignature() *object.Signature {
	tr.clock = tr.clock.Add(time.Minute)
	return &object.Signature{
		Name:  "Release Bot",
		Email: "release@example.com",
		When:  tr.clock,
	}
}

// commit stages the given paths and commits them.
func (tr *testRepo) commit(t *testing.T, message string, paths ...string) plumbing.Hash {
	t.Helper()

	for _, path := range paths {
		_, err := tr.repo.worktree.Add(path)
		require.NoError(t, err, "failed to stage %s", path)
	}

	hash, err := tr.repo.worktree.Commit(message, &git.CommitOptions{
		Author: tr.nextSignature(),
	})
	require.NoError(t, err, "failed to commit %q", message)
	return hash
}

func (tr *testRepo) lightweightTag(t *testing.T, name string, hash plumbing.Hash) {
	t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewTagReferenceName(name), hash)
	require.NoError(t, tr.repo.repo.Storer.SetReference(ref),
		"failed to create lightweight tag %s", name)
}

func (tr *testRepo) annotatedTag(t *testing.T, name string, hash plumbing.Hash, message string) {
	t.Helper()
	_, err := tr.repo.repo.CreateTag(name, hash, &git.CreateTagOptions{
		Tagger:  tr.nextSignature(),
		Message: message,
	})
	require.NoError(t, err, "failed to create annotated tag %s", name)
}

func releaseTagMatch(name string) bool {
	return len(name) > 1 && name[0] == 'v' && name[1] >= '0' && name[1] <= '9'
}
