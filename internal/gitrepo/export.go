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
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ExportTree writes the committed tree of rev into the dest directory,
// preserving file modes. Uncommitted working tree changes never appear
// in the export.
func (r *Repo) ExportTree(ctx context.Context, rev, dest string) error {
	tree, err := r.treeAt(rev)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return WrapErrorf(err, "creating %s", dest)
	}

	iter := tree.Files()
	defer iter.Close()

	return iter.ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return exportFile(f, dest)
	})
}

func exportFile(f *object.File, dest string) error {
	target := filepath.Join(dest, filepath.FromSlash(f.Name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return WrapErrorf(err, "creating directory for %s", f.Name)
	}

	if f.Mode == filemode.Symlink {
		link, err := f.Contents()
		if err != nil {
			return WrapErrorf(err, "reading symlink %s", f.Name)
		}
		return WrapErrorf(os.Symlink(link, target), "writing symlink %s", f.Name)
	}

	mode, err := f.Mode.ToOSFileMode()
	if err != nil {
		return WrapErrorf(err, "reading mode of %s", f.Name)
	}

	reader, err := f.Reader()
	if err != nil {
		return WrapErrorf(err, "opening %s", f.Name)
	}
	defer reader.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return WrapErrorf(err, "creating %s", f.Name)
	}
	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		return WrapErrorf(err, "writing %s", f.Name)
	}
	return WrapErrorf(out.Close(), "writing %s", f.Name)
}
