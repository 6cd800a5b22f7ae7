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

// Package archive stages tagged source trees and produces release
// tarballs.
//
// A staged tree lives at <staging>/<project>-<version>/ and carries a
// version.txt snapshot; the tarball next to it is the source archive the
// build and publish stages consume. Assembly is idempotent: an archive
// that already exists for the requested version is left untouched.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tombee/shipwright/internal/log"
	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
)

// VersionFileName is the snapshot file written into every staged tree.
// It contains exactly the numeric version string, nothing else.
const VersionFileName = "version.txt"

// Exporter writes the committed tree at a revision into a directory.
type Exporter interface {
	ExportTree(ctx context.Context, rev, dest string) error
}

// Spec describes one staging request.
type Spec struct {
	// Project is the package name; it prefixes the staged directory and
	// the archive.
	Project string

	// Version is the numeric version string being released.
	Version string

	// Rev is the revision whose tree is exported, normally the release
	// tag.
	Rev string

	// StagingDir is the directory trees and archives are assembled in.
	StagingDir string

	// RequiredPaths must exist inside the staged tree. Entries ending in
	// "/" must be directories, everything else a regular file.
	RequiredPaths []string
}

// Result reports what Assemble produced.
type Result struct {
	// TreeDir is the staged source tree.
	TreeDir string

	// ArchivePath is the compressed source archive.
	ArchivePath string

	// Skipped is true when the archive already existed and nothing was
	// rebuilt.
	Skipped bool
}

// Assembler stages source trees through an Exporter.
type Assembler struct {
	exporter Exporter
	logger   *slog.Logger
}

// NewAssembler creates an Assembler. A nil logger discards output.
func NewAssembler(exporter Exporter, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Assembler{exporter: exporter, logger: logger}
}

// Assemble exports the tagged tree, writes version.txt, verifies the
// layout contract, and produces the tarball. When the archive for this
// version already exists the whole operation is a logged no-op.
func (a *Assembler) Assemble(ctx context.Context, spec Spec) (*Result, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	name := spec.Project + "-" + spec.Version
	treeDir := filepath.Join(spec.StagingDir, name)
	archivePath := filepath.Join(spec.StagingDir, name+".tar.gz")

	if _, err := os.Stat(archivePath); err == nil {
		a.logger.Info("source archive already exists, skipping assembly",
			log.VersionKey, spec.Version,
			"archive", archivePath)
		return &Result{TreeDir: treeDir, ArchivePath: archivePath, Skipped: true}, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("checking for existing archive: %w", err)
	}

	// The staged tree must hold exactly the tagged content, so a
	// leftover tree from an earlier failed run is replaced.
	if err := os.RemoveAll(treeDir); err != nil {
		return nil, fmt.Errorf("clearing staging tree: %w", err)
	}

	if err := a.exporter.ExportTree(ctx, spec.Rev, treeDir); err != nil {
		return nil, fmt.Errorf("exporting %s: %w", spec.Rev, err)
	}

	versionFile := filepath.Join(treeDir, VersionFileName)
	if err := os.WriteFile(versionFile, []byte(spec.Version), 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", VersionFileName, err)
	}

	if err := verifyLayout(treeDir, spec.RequiredPaths); err != nil {
		return nil, err
	}

	if err := writeTarball(ctx, treeDir, name, archivePath); err != nil {
		return nil, err
	}

	a.logger.Info("source archive assembled",
		log.VersionKey, spec.Version,
		"archive", archivePath)

	return &Result{TreeDir: treeDir, ArchivePath: archivePath}, nil
}

func (s Spec) validate() error {
	if s.Project == "" {
		return &shipwrighterrors.ValidationError{
			Field:   "project",
			Message: "staging requires a project name",
		}
	}
	if s.Version == "" {
		return &shipwrighterrors.ValidationError{
			Field:   "version",
			Message: "staging requires a version",
		}
	}
	if s.Rev == "" {
		return &shipwrighterrors.ValidationError{
			Field:   "rev",
			Message: "staging requires a revision to export",
		}
	}
	if s.StagingDir == "" {
		return &shipwrighterrors.ValidationError{
			Field:   "staging.dir",
			Message: "staging requires a staging directory",
		}
	}
	return nil
}

// verifyLayout checks the staged tree against the packaging layout
// contract. The installed-file descriptors downstream expect these paths
// verbatim, so a tree missing one can never produce a usable package.
func verifyLayout(treeDir string, required []string) error {
	var missing []string
	for _, rel := range required {
		wantDir := strings.HasSuffix(rel, "/")
		info, err := os.Stat(filepath.Join(treeDir, filepath.FromSlash(strings.TrimSuffix(rel, "/"))))
		switch {
		case err != nil:
			missing = append(missing, rel)
		case wantDir && !info.IsDir():
			missing = append(missing, rel+" (not a directory)")
		case !wantDir && info.IsDir():
			missing = append(missing, rel+" (is a directory)")
		}
	}
	if len(missing) > 0 {
		return &shipwrighterrors.ValidationError{
			Field:      "required_paths",
			Message:    fmt.Sprintf("staged tree is missing %s", strings.Join(missing, ", ")),
			Suggestion: "check that the tagged tree contains the packaging layout, or adjust required_paths",
		}
	}
	return nil
}
