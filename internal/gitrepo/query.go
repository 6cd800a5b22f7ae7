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
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/tombee/shipwright/pkg/version"
)

// Repo implements the resolver's read-only query surface.
var _ version.Query = (*Repo)(nil)

// shortHashLen is the abbreviated commit id length used in pre-release
// version suffixes.
const shortHashLen = 7

// TagsAtHead returns the names of all tags whose target commit is HEAD,
// sorted alphabetically. Annotated tags are resolved to the commit they
// point at.
func (r *Repo) TagsAtHead(ctx context.Context) ([]string, error) {
	head, err := r.headHash()
	if err != nil {
		return nil, err
	}

	byCommit, err := r.tagsByCommit()
	if err != nil {
		return nil, err
	}

	names := append([]string(nil), byCommit[head]...)
	sort.Strings(names)
	return names, nil
}

// NearestTag walks history backwards from HEAD, most recent committer
// time first, and returns the first tag accepted by match. When a commit
// carries several matching tags the lexicographically greatest name wins.
// ok is false when no matching tag is reachable.
func (r *Repo) NearestTag(ctx context.Context, match func(string) bool) (string, bool, error) {
	head, err := r.headHash()
	if err != nil {
		return "", false, err
	}

	byCommit, err := r.tagsByCommit()
	if err != nil {
		return "", false, err
	}
	if len(byCommit) == 0 {
		return "", false, nil
	}

	iter, err := r.repo.Log(&git.LogOptions{From: head, Order: git.LogOrderCommitterTime})
	if err != nil {
		return "", false, WrapError(err, "walking commit history")
	}
	defer iter.Close()

	var found string
	var ok bool
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if name, matched := pickTag(byCommit[c.Hash], match); matched {
			found, ok = name, true
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return "", false, WrapError(err, "walking commit history")
	}

	return found, ok, nil
}

// ChangedPaths returns every path that changed between fromRef and HEAD,
// together with any path carrying uncommitted changes in the working
// tree. The result is sorted and free of duplicates.
func (r *Repo) ChangedPaths(ctx context.Context, fromRef string) ([]string, error) {
	fromTree, err := r.treeAt(fromRef)
	if err != nil {
		return nil, err
	}
	headTree, err := r.treeAt("HEAD")
	if err != nil {
		return nil, err
	}

	changes, err := fromTree.DiffContext(ctx, headTree)
	if err != nil {
		return nil, WrapErrorf(err, "diffing %s against HEAD", fromRef)
	}

	seen := make(map[string]struct{})
	for _, change := range changes {
		name := change.To.Name
		if name == "" {
			name = change.From.Name
		}
		seen[name] = struct{}{}
	}

	status, err := r.worktree.Status()
	if err != nil {
		return nil, WrapError(err, "reading worktree status")
	}
	for path, st := range status {
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		seen[path] = struct{}{}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// ShortHash returns the abbreviated commit id of HEAD.
func (r *Repo) ShortHash(ctx context.Context) (string, error) {
	head, err := r.headHash()
	if err != nil {
		return "", err
	}
	return head.String()[:shortHashLen], nil
}

// IsClean reports whether the working tree has no uncommitted changes.
// Untracked files count as changes, matching git status semantics.
func (r *Repo) IsClean(ctx context.Context) (bool, error) {
	status, err := r.worktree.Status()
	if err != nil {
		return false, WrapError(err, "reading worktree status")
	}
	return status.IsClean(), nil
}

func (r *Repo) headHash() (plumbing.Hash, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, WrapError(ErrNoCommits, "reading HEAD")
		}
		return plumbing.ZeroHash, WrapError(err, "reading HEAD")
	}
	return head.Hash(), nil
}

// tagsByCommit maps each commit hash to the tag names pointing at it,
// resolving annotated tags to their target commits.
func (r *Repo) tagsByCommit() (map[plumbing.Hash][]string, error) {
	refs, err := r.repo.Tags()
	if err != nil {
		return nil, WrapError(err, "listing tags")
	}
	defer refs.Close()

	byCommit := make(map[plumbing.Hash][]string)
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		hash := ref.Hash()

		tag, err := r.repo.TagObject(hash)
		switch {
		case err == nil:
			hash = tag.Target
		case errors.Is(err, plumbing.ErrObjectNotFound):
			// Lightweight tag: the ref already points at the commit.
		default:
			return WrapErrorf(err, "reading tag object %s", name)
		}

		byCommit[hash] = append(byCommit[hash], name)
		return nil
	})
	if err != nil {
		return nil, WrapError(err, "iterating tags")
	}

	return byCommit, nil
}

func (r *Repo) treeAt(rev string) (*object.Tree, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, WrapErrorf(ErrResolveFailed, "resolving %q", rev)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, WrapErrorf(err, "reading commit %s", hash)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, WrapErrorf(err, "reading tree of commit %s", hash)
	}
	return tree, nil
}

func pickTag(names []string, match func(string) bool) (string, bool) {
	var best string
	var ok bool
	for _, name := range names {
		if !match(name) {
			continue
		}
		if !ok || name > best {
			best, ok = name, true
		}
	}
	return best, ok
}
