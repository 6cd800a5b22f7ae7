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

// Package changelog reads and writes debian-format changelogs. Only the
// newest entry is ever parsed or rewritten; the remainder of the file is
// carried through byte for byte.
package changelog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

// DraftDistribution marks an entry that has not been released yet.
const DraftDistribution = "UNRELEASED"

// defaultUrgency is stamped on entries this tool creates.
const defaultUrgency = "low"

// ErrEmptyChangelog is returned when the changelog contains no entries.
var ErrEmptyChangelog = errors.New("changelog has no entries")

// ErrNoPackagingRevision is returned when a version string carries no
// packaging revision after the upstream version.
var ErrNoPackagingRevision = errors.New("version has no packaging revision")

// ErrDraftExists is returned when a new entry is requested while the
// newest entry is still an unreleased draft.
var ErrDraftExists = errors.New("changelog already has an unreleased entry")

// ErrNotDraft is returned when finalize is requested but the newest
// entry was already released.
var ErrNotDraft = errors.New("newest changelog entry is not an unreleased draft")

// Entry is one changelog stanza.
//
//	twitcher (1.2.3-1) unstable; urgency=low
//
//	  * Upstream release 1.2.3.
//
//	 -- Brady Catherman <github@gecka.us>  Tue, 14 Jun 2011 12:00:00 -0700
type Entry struct {
	Package      string
	Version      string // debian version: "<upstream>-<packaging>"
	Distribution string
	Urgency      string
	Changes      []string // verbatim change lines, indentation included
	Maintainer   string   // "Name <email>"
	Date         string   // RFC 2822, as written
}

// IsDraft reports whether the entry has not been released yet.
func (e *Entry) IsDraft() bool {
	return e.Distribution == DraftDistribution
}

// UpstreamVersion returns the part of the version before the packaging
// revision.
func (e *Entry) UpstreamVersion() (string, error) {
	upstream, _, ok := strings.Cut(e.Version, "-")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoPackagingRevision, e.Version)
	}
	return upstream, nil
}

// PackagingRevision returns the part of the version after the upstream
// version, stripped of everything up to and including the first hyphen.
func (e *Entry) PackagingRevision() (string, error) {
	return PackagingRevision(e.Version)
}

// PackagingRevision extracts the packaging revision from a debian
// version string: "1.2.3-1" yields "1".
func PackagingRevision(version string) (string, error) {
	_, revision, ok := strings.Cut(version, "-")
	if !ok || revision == "" {
		return "", fmt.Errorf("%w: %q", ErrNoPackagingRevision, version)
	}
	return revision, nil
}

var (
	headerPattern  = regexp.MustCompile(`^(\S+) \(([^()]+)\) ([^;]+); urgency=(\S+)\s*$`)
	trailerPattern = regexp.MustCompile(`^ -- (.*?)  (.*\S)\s*$`)
)

// ParseFirst reads the newest entry from a changelog.
func ParseFirst(r io.Reader) (*Entry, error) {
	entry, _, err := parseFirst(r)
	return entry, err
}

// parseFirst reads the newest entry and reports how many bytes of input
// it consumed, trailing newline included.
func parseFirst(r io.Reader) (*Entry, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	consumed := 0
	entry := &Entry{}
	inEntry := false
	var body []string

	for scanner.Scan() {
		line := scanner.Text()

		if !inEntry {
			consumed += len(line) + 1
			if strings.TrimSpace(line) == "" {
				continue
			}
			m := headerPattern.FindStringSubmatch(line)
			if m == nil {
				return nil, 0, fmt.Errorf("malformed changelog header %q", line)
			}
			entry.Package = m[1]
			entry.Version = m[2]
			entry.Distribution = strings.TrimSpace(m[3])
			entry.Urgency = m[4]
			inEntry = true
			continue
		}

		consumed += len(line) + 1
		if m := trailerPattern.FindStringSubmatch(line); m != nil {
			entry.Maintainer = m[1]
			entry.Date = m[2]
			entry.Changes = trimBlankEdges(body)
			return entry, consumed, nil
		}
		body = append(body, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading changelog: %w", err)
	}

	if !inEntry {
		return nil, 0, ErrEmptyChangelog
	}
	return nil, 0, fmt.Errorf("changelog entry for %q has no maintainer trailer", entry.Version)
}

// render writes the entry back out in standard dch layout: header, blank
// line, change lines, blank line, maintainer trailer.
func (e *Entry) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) %s; urgency=%s\n", e.Package, e.Version, e.Distribution, e.Urgency)
	b.WriteString("\n")
	for _, line := range e.Changes {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, " -- %s  %s\n", e.Maintainer, e.Date)
	return b.String()
}

func trimBlankEdges(lines []string) []string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

// debDate formats a timestamp the way dch does.
func debDate(t time.Time) string {
	return t.Format(time.RFC1123Z)
}
