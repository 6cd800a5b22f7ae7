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

package changelog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// File is a changelog on disk: the newest entry parsed, everything below
// it untouched.
type File struct {
	path  string
	first *Entry
	rest  string
}

// Load reads and parses the changelog at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading changelog: %w", err)
	}

	entry, consumed, err := parseFirst(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if consumed > len(data) {
		consumed = len(data)
	}

	return &File{
		path:  path,
		first: entry,
		rest:  string(data[consumed:]),
	}, nil
}

// Path returns the file's location on disk.
func (f *File) Path() string {
	return f.path
}

// First returns a copy of the newest entry.
func (f *File) First() Entry {
	return *f.first
}

// NewUpstream prepends a draft entry for a new upstream version, with
// the packaging revision reset to 1. The package name and maintainer are
// carried over from the previous entry.
func (f *File) NewUpstream(upstream, change string, now time.Time) error {
	if f.first.IsDraft() {
		return fmt.Errorf("%w: %s", ErrDraftExists, f.first.Version)
	}
	f.push(&Entry{
		Package:      f.first.Package,
		Version:      upstream + "-1",
		Distribution: DraftDistribution,
		Urgency:      defaultUrgency,
		Changes:      []string{"  * " + change},
		Maintainer:   f.first.Maintainer,
		Date:         debDate(now),
	})
	return nil
}

// BumpPackaging prepends a draft entry that keeps the upstream version
// and increments the packaging revision of the newest entry.
func (f *File) BumpPackaging(change string, now time.Time) error {
	if f.first.IsDraft() {
		return fmt.Errorf("%w: %s", ErrDraftExists, f.first.Version)
	}

	upstream, err := f.first.UpstreamVersion()
	if err != nil {
		return err
	}
	revision, err := f.first.PackagingRevision()
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(revision)
	if err != nil {
		return fmt.Errorf("packaging revision %q of %s is not numeric", revision, f.first.Version)
	}

	f.push(&Entry{
		Package:      f.first.Package,
		Version:      fmt.Sprintf("%s-%d", upstream, n+1),
		Distribution: DraftDistribution,
		Urgency:      defaultUrgency,
		Changes:      []string{"  * " + change},
		Maintainer:   f.first.Maintainer,
		Date:         debDate(now),
	})
	return nil
}

// Finalize releases the newest entry: the draft distribution is replaced
// and the date is refreshed.
func (f *File) Finalize(distribution string, now time.Time) error {
	if !f.first.IsDraft() {
		return fmt.Errorf("%w: %s is %s", ErrNotDraft, f.first.Version, f.first.Distribution)
	}
	f.first.Distribution = distribution
	f.first.Date = debDate(now)
	return nil
}

func (f *File) push(entry *Entry) {
	f.rest = "\n" + f.first.render() + f.rest
	f.first = entry
}

func (f *File) content() string {
	return f.first.render() + f.rest
}

// Save rewrites the changelog atomically: the new content goes to a temp
// file in the same directory, then replaces the original by rename. The
// original file mode is preserved.
func (f *File) Save() error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(f.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".changelog-*")
	if err != nil {
		return fmt.Errorf("creating temp changelog: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(f.content()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp changelog: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("setting changelog mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing temp changelog: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing changelog: %w", err)
	}
	return nil
}
