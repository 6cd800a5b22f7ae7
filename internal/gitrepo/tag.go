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

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/tombee/shipwright/internal/toolexec"
)

// TagExists reports whether a tag with the given name exists.
func (r *Repo) TagExists(ctx context.Context, name string) (bool, error) {
	_, err := r.repo.Reference(plumbing.NewTagReferenceName(name), false)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		return false, nil
	default:
		return false, WrapErrorf(err, "checking tag %s", name)
	}
}

// CreateSignedTag creates an annotated, gpg-signed tag at HEAD. Signing
// goes through the git binary because the signature needs the operator's
// gpg agent; go-git serves every read path.
func (r *Repo) CreateSignedTag(ctx context.Context, runner toolexec.Runner, name, keyID, message string) error {
	if r.dir == "" {
		return WrapError(ErrNoWorkdir, "signing tags")
	}

	exists, err := r.TagExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return WrapErrorf(ErrTagExists, "tag %s", name)
	}

	args := []string{"tag"}
	if keyID != "" {
		args = append(args, "-u", keyID)
	} else {
		args = append(args, "-s")
	}
	args = append(args, "-m", message, name)

	_, err = runner.Run(ctx, toolexec.Spec{
		Program: "git",
		Args:    args,
		Dir:     r.dir,
	})
	return err
}
