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

// Package version derives a project version from version-control state.
//
// A version is resolved in priority order:
//   - Exact release: HEAD carries a release tag (vX.Y.Z) and the working
//     tree is clean.
//   - Pre-release: the nearest ancestor release tag, suffixed with the
//     abbreviated HEAD commit id when real code changed since that tag.
//     Changes confined to packaging metadata do not bump the version.
//
// Resolution is read-only: the same repository state always yields the
// same version. When no release tag is reachable, resolution fails; there
// is no fallback version.
package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
)

// Version represents a resolved project version.
type Version struct {
	// Major, Minor, Revision are the dotted numeric components.
	Major    int
	Minor    int
	Revision int

	// Build is the abbreviated commit identifier of HEAD. Non-empty
	// marks a pre-release build derived from untagged changes.
	Build string
}

// IsPreRelease reports whether the version carries a pre-release build suffix.
func (v Version) IsPreRelease() bool {
	return v.Build != ""
}

// String renders the full version: "1.2.3" or "1.2.3-abc1234".
func (v Version) String() string {
	if v.IsPreRelease() {
		return fmt.Sprintf("%d.%d.%d-%s", v.Major, v.Minor, v.Revision, v.Build)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
}

// RevisionString renders the revision component, including the pre-release
// suffix when present: "3" or "3-abc1234".
func (v Version) RevisionString() string {
	if v.IsPreRelease() {
		return fmt.Sprintf("%d-%s", v.Revision, v.Build)
	}
	return fmt.Sprintf("%d", v.Revision)
}

// Compare orders two versions by their numeric components.
// The build suffix does not participate in ordering.
func (v Version) Compare(o Version) int {
	if v.Major != o.Major {
		return cmp(v.Major, o.Major)
	}
	if v.Minor != o.Minor {
		return cmp(v.Minor, o.Minor)
	}
	return cmp(v.Revision, o.Revision)
}

func cmp(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Mode selects which component of a version an invocation renders.
type Mode int

const (
	// ModeFull renders the full dotted string.
	ModeFull Mode = iota
	// ModeMajor renders the major component only.
	ModeMajor
	// ModeMinor renders the minor component only.
	ModeMinor
	// ModeRevision renders the revision component, pre-release suffix included.
	ModeRevision
)

// Format renders the component selected by mode.
// An unknown mode is an input error.
func (v Version) Format(mode Mode) (string, error) {
	switch mode {
	case ModeFull:
		return v.String(), nil
	case ModeMajor:
		return fmt.Sprintf("%d", v.Major), nil
	case ModeMinor:
		return fmt.Sprintf("%d", v.Minor), nil
	case ModeRevision:
		return v.RevisionString(), nil
	default:
		return "", &shipwrighterrors.ValidationError{
			Field:   "mode",
			Message: fmt.Sprintf("unknown query mode %d", mode),
		}
	}
}

// Parse parses a plain release version string of exactly the form
// "major.minor.revision". Pre-release and build-metadata suffixes are
// rejected: release arguments and release tags name exact versions only.
func Parse(s string) (Version, error) {
	sv, err := semver.StrictNewVersion(s)
	if err != nil {
		return Version{}, &shipwrighterrors.ValidationError{
			Field:      "version",
			Message:    fmt.Sprintf("%q is not a major.minor.revision version", s),
			Suggestion: "Use a plain dotted version such as 1.2.3",
		}
	}
	if sv.Prerelease() != "" || sv.Metadata() != "" {
		return Version{}, &shipwrighterrors.ValidationError{
			Field:      "version",
			Message:    fmt.Sprintf("%q carries a suffix; release versions are plain major.minor.revision", s),
			Suggestion: "Use a plain dotted version such as 1.2.3",
		}
	}
	return Version{
		Major:    int(sv.Major()),
		Minor:    int(sv.Minor()),
		Revision: int(sv.Patch()),
	}, nil
}

// ParseTag parses a release tag of the form "v<major>.<minor>.<revision>".
func ParseTag(tag string) (Version, error) {
	name, ok := strings.CutPrefix(tag, "v")
	if !ok {
		return Version{}, &shipwrighterrors.ValidationError{
			Field:   "tag",
			Message: fmt.Sprintf("%q does not start with the release tag prefix v", tag),
		}
	}
	v, err := Parse(name)
	if err != nil {
		return Version{}, &shipwrighterrors.ValidationError{
			Field:   "tag",
			Message: fmt.Sprintf("%q is not a v<major>.<minor>.<revision> release tag", tag),
		}
	}
	return v, nil
}

// IsReleaseTag reports whether tag names an exact release (vX.Y.Z).
func IsReleaseTag(tag string) bool {
	_, err := ParseTag(tag)
	return err == nil
}

// TagName renders the release tag for a version: "v1.2.3".
func (v Version) TagName() string {
	return "v" + v.String()
}
