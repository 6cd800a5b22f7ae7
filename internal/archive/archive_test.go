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

package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
)

// fakeExporter writes a fixed file set into the destination directory.
type fakeExporter struct {
	files map[string]string // relative path -> content; trailing / means directory
	links map[string]string // relative path -> symlink target
	err   error
	revs  []string
}

func (f *fakeExporter) ExportTree(ctx context.Context, rev, dest string) error {
	f.revs = append(f.revs, rev)
	if f.err != nil {
		return f.err
	}
	for rel, content := range f.files {
		path := filepath.Join(dest, filepath.FromSlash(strings.TrimSuffix(rel, "/")))
		if strings.HasSuffix(rel, "/") {
			if err := os.MkdirAll(path, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return err
		}
	}
	for rel, target := range f.links {
		if err := os.Symlink(target, filepath.Join(dest, filepath.FromSlash(rel))); err != nil {
			return err
		}
	}
	return nil
}

func projectTree() map[string]string {
	return map[string]string{
		"bin/twitcher":            "#!/usr/bin/python\n",
		"scripts/init.d/twitcher": "#!/bin/sh\n",
		"twitcher/":               "",
		"twitcher/__init__.py":    "",
		"README.md":               "twitcher 1.2.3\n",
	}
}

func defaultSpec(staging string) Spec {
	return Spec{
		Project:       "twitcher",
		Version:       "1.2.3",
		Rev:           "v1.2.3",
		StagingDir:    staging,
		RequiredPaths: []string{"bin/twitcher", "scripts/init.d/twitcher", "twitcher/"},
	}
}

// readTarball returns the archive's entry names in order and the contents
// of its regular files.
func readTarball(t *testing.T, path string) ([]string, map[string]string) {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	var names []string
	contents := map[string]string{}
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, header.Name)
		if header.Typeflag == tar.TypeReg {
			data, err := io.ReadAll(tr)
			require.NoError(t, err)
			contents[header.Name] = string(data)
		}
	}
	return names, contents
}

func TestAssemble(t *testing.T) {
	staging := t.TempDir()
	exporter := &fakeExporter{files: projectTree()}
	assembler := NewAssembler(exporter, nil)

	result, err := assembler.Assemble(context.Background(), defaultSpec(staging))
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Equal(t, filepath.Join(staging, "twitcher-1.2.3"), result.TreeDir)
	assert.Equal(t, filepath.Join(staging, "twitcher-1.2.3.tar.gz"), result.ArchivePath)
	assert.Equal(t, []string{"v1.2.3"}, exporter.revs)

	data, err := os.ReadFile(filepath.Join(result.TreeDir, VersionFileName))
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", string(data), "version.txt carries exactly the numeric version")

	names, contents := readTarball(t, result.ArchivePath)
	for _, name := range names {
		assert.True(t, strings.HasPrefix(name, "twitcher-1.2.3/"),
			"entry %s should be rooted in the versioned directory", name)
	}
	assert.Equal(t, "1.2.3", contents["twitcher-1.2.3/version.txt"])
	assert.Equal(t, "#!/usr/bin/python\n", contents["twitcher-1.2.3/bin/twitcher"])
	assert.Contains(t, names, "twitcher-1.2.3/twitcher/")
}

func TestAssemble_SkipsExistingArchive(t *testing.T) {
	staging := t.TempDir()
	archivePath := filepath.Join(staging, "twitcher-1.2.3.tar.gz")
	require.NoError(t, os.WriteFile(archivePath, []byte("already built"), 0644))

	exporter := &fakeExporter{files: projectTree()}
	assembler := NewAssembler(exporter, nil)

	result, err := assembler.Assemble(context.Background(), defaultSpec(staging))
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Empty(t, exporter.revs, "nothing should be exported when the archive exists")

	data, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	assert.Equal(t, "already built", string(data), "existing archive must not be rebuilt")
}

func TestAssemble_SecondRunIsNoOp(t *testing.T) {
	staging := t.TempDir()
	exporter := &fakeExporter{files: projectTree()}
	assembler := NewAssembler(exporter, nil)
	spec := defaultSpec(staging)

	first, err := assembler.Assemble(context.Background(), spec)
	require.NoError(t, err)
	require.False(t, first.Skipped)

	second, err := assembler.Assemble(context.Background(), spec)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, []string{"v1.2.3"}, exporter.revs, "export runs once")
}

func TestAssemble_MissingRequiredPath(t *testing.T) {
	staging := t.TempDir()
	tree := projectTree()
	delete(tree, "scripts/init.d/twitcher")
	assembler := NewAssembler(&fakeExporter{files: tree}, nil)

	_, err := assembler.Assemble(context.Background(), defaultSpec(staging))
	require.Error(t, err)

	var verr *shipwrighterrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required_paths", verr.Field)
	assert.Contains(t, verr.Message, "scripts/init.d/twitcher")

	_, statErr := os.Stat(filepath.Join(staging, "twitcher-1.2.3.tar.gz"))
	assert.True(t, os.IsNotExist(statErr), "no archive for a tree failing the layout check")
}

func TestAssemble_RequiredDirectoryIsFile(t *testing.T) {
	staging := t.TempDir()
	tree := projectTree()
	delete(tree, "twitcher/")
	delete(tree, "twitcher/__init__.py")
	tree["twitcher"] = "not a directory"
	assembler := NewAssembler(&fakeExporter{files: tree}, nil)

	_, err := assembler.Assemble(context.Background(), defaultSpec(staging))
	require.Error(t, err)

	var verr *shipwrighterrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "twitcher/ (not a directory)")
}

func TestAssemble_ReplacesStaleTree(t *testing.T) {
	staging := t.TempDir()
	stale := filepath.Join(staging, "twitcher-1.2.3", "leftover.pyc")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("junk"), 0644))

	assembler := NewAssembler(&fakeExporter{files: projectTree()}, nil)

	result, err := assembler.Assemble(context.Background(), defaultSpec(staging))
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(result.TreeDir, "leftover.pyc"))
	assert.True(t, os.IsNotExist(statErr), "stale staging content must not survive")

	names, _ := readTarball(t, result.ArchivePath)
	assert.NotContains(t, names, "twitcher-1.2.3/leftover.pyc")
}

func TestAssemble_ExporterError(t *testing.T) {
	staging := t.TempDir()
	assembler := NewAssembler(&fakeExporter{err: errors.New("unknown revision")}, nil)

	_, err := assembler.Assemble(context.Background(), defaultSpec(staging))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exporting v1.2.3")
}

func TestAssemble_SpecValidation(t *testing.T) {
	assembler := NewAssembler(&fakeExporter{}, nil)

	tests := []struct {
		name   string
		mutate func(*Spec)
		field  string
	}{
		{"missing project", func(s *Spec) { s.Project = "" }, "project"},
		{"missing version", func(s *Spec) { s.Version = "" }, "version"},
		{"missing rev", func(s *Spec) { s.Rev = "" }, "rev"},
		{"missing staging dir", func(s *Spec) { s.StagingDir = "" }, "staging.dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := defaultSpec(t.TempDir())
			tt.mutate(&spec)

			_, err := assembler.Assemble(context.Background(), spec)
			var verr *shipwrighterrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestWriteTarball_PreservesSymlinks(t *testing.T) {
	staging := t.TempDir()
	exporter := &fakeExporter{
		files: projectTree(),
		links: map[string]string{"twitcher-link": "bin/twitcher"},
	}
	assembler := NewAssembler(exporter, nil)

	result, err := assembler.Assemble(context.Background(), defaultSpec(staging))
	require.NoError(t, err)

	f, err := os.Open(result.ArchivePath)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	found := false
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if header.Name == "twitcher-1.2.3/twitcher-link" {
			found = true
			assert.Equal(t, byte(tar.TypeSymlink), header.Typeflag)
			assert.Equal(t, "bin/twitcher", header.Linkname)
		}
	}
	assert.True(t, found, "symlink entry should be archived")
}
