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

package version

import (
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
)

// Query is the narrow version-control surface the resolver reads.
// Implementations must not mutate repository state.
type Query interface {
	// TagsAtHead returns every tag whose target commit is HEAD.
	TagsAtHead(ctx context.Context) ([]string, error)

	// NearestTag walks history backwards from HEAD (HEAD included) and
	// returns the first tag for which match returns true. ok is false
	// when no matching tag is reachable.
	NearestTag(ctx context.Context, match func(string) bool) (tag string, ok bool, err error)

	// ChangedPaths returns the paths that differ between fromRef and the
	// current working tree, uncommitted modifications included.
	ChangedPaths(ctx context.Context, fromRef string) ([]string, error)

	// ShortHash returns the abbreviated commit identifier of HEAD.
	ShortHash(ctx context.Context) (string, error)

	// IsClean reports whether the working tree has no uncommitted changes.
	IsClean(ctx context.Context) (bool, error)
}

// DefaultMetadataGlobs matches the packaging metadata directory. Changes
// confined to these paths never bump the resolved version.
var DefaultMetadataGlobs = []string{"debian/**"}

// Resolver derives a Version from repository state.
type Resolver struct {
	query         Query
	metadataGlobs []string
}

// NewResolver creates a resolver over the given version-control query.
// metadataGlobs are doublestar patterns for paths whose changes do not
// bump the version; when empty, DefaultMetadataGlobs applies.
func NewResolver(query Query, metadataGlobs []string) *Resolver {
	if len(metadataGlobs) == 0 {
		metadataGlobs = DefaultMetadataGlobs
	}
	return &Resolver{
		query:         query,
		metadataGlobs: metadataGlobs,
	}
}

// Resolve derives the current Version. Priority order, first match wins:
//
//  1. A release tag at HEAD with a clean working tree yields that exact
//     version.
//  2. Otherwise the nearest reachable release tag yields the version:
//     unchanged when only metadata paths differ from that tag, suffixed
//     with the abbreviated HEAD commit id when real code changed.
//  3. With no reachable release tag, resolution fails.
func (r *Resolver) Resolve(ctx context.Context) (Version, error) {
	tags, err := r.query.TagsAtHead(ctx)
	if err != nil {
		return Version{}, &shipwrighterrors.ResolutionError{
			Message: "listing tags at HEAD",
			Cause:   err,
		}
	}

	if exact, ok := highestRelease(tags); ok {
		clean, err := r.query.IsClean(ctx)
		if err != nil {
			return Version{}, &shipwrighterrors.ResolutionError{
				Message: "reading working tree status",
				Cause:   err,
			}
		}
		if clean {
			return exact, nil
		}
	}

	prevTag, ok, err := r.query.NearestTag(ctx, IsReleaseTag)
	if err != nil {
		return Version{}, &shipwrighterrors.ResolutionError{
			Message: "walking tag history",
			Cause:   err,
		}
	}
	if !ok {
		return Version{}, &shipwrighterrors.ResolutionError{
			Message: "no release tag reachable from HEAD",
		}
	}

	prev, err := ParseTag(prevTag)
	if err != nil {
		return Version{}, &shipwrighterrors.ResolutionError{
			Message: "parsing nearest release tag",
			Cause:   err,
		}
	}

	paths, err := r.query.ChangedPaths(ctx, prevTag)
	if err != nil {
		return Version{}, &shipwrighterrors.ResolutionError{
			Message: "diffing against nearest release tag",
			Cause:   err,
		}
	}

	if !r.hasCodeChanges(paths) {
		// Metadata-only changes keep the previous version unchanged.
		return prev, nil
	}

	short, err := r.query.ShortHash(ctx)
	if err != nil {
		return Version{}, &shipwrighterrors.ResolutionError{
			Message: "reading HEAD commit identifier",
			Cause:   err,
		}
	}

	prev.Build = short
	return prev, nil
}

// hasCodeChanges reports whether any changed path falls outside the
// configured metadata globs.
func (r *Resolver) hasCodeChanges(paths []string) bool {
	for _, p := range paths {
		if !r.isMetadata(p) {
			return true
		}
	}
	return false
}

func (r *Resolver) isMetadata(path string) bool {
	normalized := normalizePath(path)
	for _, pattern := range r.metadataGlobs {
		matched, err := doublestar.Match(normalizePath(pattern), normalized)
		if err != nil {
			// Invalid pattern - skip it
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// normalizePath normalizes a file path for consistent glob matching.
func normalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimPrefix(path, "./")
	return path
}

// highestRelease picks the highest release version among tags, ignoring
// tags that do not name a release. Several release tags on one commit
// resolve to the highest version.
func highestRelease(tags []string) (Version, bool) {
	var best Version
	found := false
	for _, t := range tags {
		v, err := ParseTag(t)
		if err != nil {
			continue
		}
		if !found || v.Compare(best) > 0 {
			best = v
			found = true
		}
	}
	return best, found
}
