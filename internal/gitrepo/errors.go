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
	"errors"
	"fmt"
)

// Sentinel errors for repository operations. All of them can be checked
// with errors.Is even after wrapping.

// ErrNotRepository is returned when the given directory is not the root
// of a git repository.
var ErrNotRepository = errors.New("not a git repository")

// ErrNoCommits is returned when an operation needs HEAD but the
// repository has no commits yet.
var ErrNoCommits = errors.New("repository has no commits")

// ErrNoWorkdir is returned when an operation needs an on-disk working
// directory but the repository was opened without one.
var ErrNoWorkdir = errors.New("repository has no on-disk working directory")

// ErrTagExists is returned when attempting to create a tag that already exists.
var ErrTagExists = errors.New("tag already exists")

// ErrResolveFailed is returned when a revision specification cannot be
// resolved to a commit.
var ErrResolveFailed = errors.New("cannot resolve revision")

// ErrEmptyCommit is returned when a commit is requested but nothing is staged.
var ErrEmptyCommit = errors.New("no changes to commit")

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while
// preserving the ability to check against sentinel errors using errors.Is.
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
