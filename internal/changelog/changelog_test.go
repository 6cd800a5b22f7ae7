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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleChangelog = `twitcher (1.2.3-1) unstable; urgency=low

  * Upstream release 1.2.3.

 -- Brady Catherman <github@gecka.us>  Tue, 14 Jun 2011 12:00:00 -0700

twitcher (1.2.2-1) unstable; urgency=low

  * Upstream release 1.2.2.
  * Fix init script permissions.

 -- Brady Catherman <github@gecka.us>  Mon, 02 May 2011 09:30:00 -0700
`

func TestParseFirst(t *testing.T) {
	entry, err := ParseFirst(strings.NewReader(sampleChangelog))
	require.NoError(t, err)

	assert.Equal(t, "twitcher", entry.Package)
	assert.Equal(t, "1.2.3-1", entry.Version)
	assert.Equal(t, "unstable", entry.Distribution)
	assert.Equal(t, "low", entry.Urgency)
	assert.Equal(t, []string{"  * Upstream release 1.2.3."}, entry.Changes)
	assert.Equal(t, "Brady Catherman <github@gecka.us>", entry.Maintainer)
	assert.Equal(t, "Tue, 14 Jun 2011 12:00:00 -0700", entry.Date)
	assert.False(t, entry.IsDraft())
}

func TestParseFirst_MultipleChangeLines(t *testing.T) {
	input := `twitcher (1.2.2-1) unstable; urgency=low

  * Upstream release 1.2.2.
  * Fix init script permissions.

 -- Brady Catherman <github@gecka.us>  Mon, 02 May 2011 09:30:00 -0700
`
	entry, err := ParseFirst(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"  * Upstream release 1.2.2.",
		"  * Fix init script permissions.",
	}, entry.Changes)
}

func TestParseFirst_LeadingBlankLines(t *testing.T) {
	entry, err := ParseFirst(strings.NewReader("\n\n" + sampleChangelog))
	require.NoError(t, err)
	assert.Equal(t, "1.2.3-1", entry.Version)
}

func TestParseFirst_DraftEntry(t *testing.T) {
	input := `twitcher (1.3.0-1) UNRELEASED; urgency=low

  * Upstream release 1.3.0.

 -- Brady Catherman <github@gecka.us>  Tue, 14 Jun 2011 12:00:00 -0700
`
	entry, err := ParseFirst(strings.NewReader(input))
	require.NoError(t, err)
	assert.True(t, entry.IsDraft())
}

func TestParseFirst_Empty(t *testing.T) {
	_, err := ParseFirst(strings.NewReader(""))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyChangelog)

	_, err = ParseFirst(strings.NewReader("\n\n\n"))
	assert.ErrorIs(t, err, ErrEmptyChangelog)
}

func TestParseFirst_MalformedHeader(t *testing.T) {
	_, err := ParseFirst(strings.NewReader("not a changelog header\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed changelog header")
}

func TestParseFirst_MissingTrailer(t *testing.T) {
	input := `twitcher (1.2.3-1) unstable; urgency=low

  * Upstream release 1.2.3.
`
	_, err := ParseFirst(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no maintainer trailer")
}

func TestPackagingRevision(t *testing.T) {
	tests := []struct {
		version string
		want    string
		wantErr bool
	}{
		{version: "1.2.3-1", want: "1"},
		{version: "1.2.3-12", want: "12"},
		{version: "1.2.3-2ubuntu1", want: "2ubuntu1"},
		{version: "1.2.3", wantErr: true},
		{version: "1.2.3-", wantErr: true},
		{version: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got, err := PackagingRevision(tt.version)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNoPackagingRevision)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntry_UpstreamVersion(t *testing.T) {
	entry := &Entry{Version: "1.2.3-1"}
	upstream, err := entry.UpstreamVersion()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", upstream)

	entry = &Entry{Version: "1.2.3"}
	_, err = entry.UpstreamVersion()
	assert.ErrorIs(t, err, ErrNoPackagingRevision)
}
