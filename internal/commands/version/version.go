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

// Package version implements the version command: print the project
// version resolved from repository state.
package version

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tombee/shipwright/internal/changelog"
	"github.com/tombee/shipwright/internal/commands/shared"
	"github.com/tombee/shipwright/internal/config"
	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
	shipwrightversion "github.com/tombee/shipwright/pkg/version"
)

// unresolvableMessage is printed verbatim when no version can be
// resolved from repository state.
const unresolvableMessage = "Can not find current version."

// NewCommand creates the version command.
func NewCommand() *cobra.Command {
	var major, minor, revision, packaging bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the project version resolved from repository state",
		Long: `Print the project version derived from tags, commits, and working tree
state.

A release tag at HEAD with a clean working tree yields that exact
version. Otherwise the nearest ancestor release tag is used: unchanged
when only packaging metadata differs, suffixed with the abbreviated
HEAD commit id when real code changed.`,
		Example: `  # Full version string
  shipwright version

  # Single components
  shipwright version -m
  shipwright version -n
  shipwright version -r

  # Packaging revision from the newest changelog entry
  shipwright version -u`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := shipwrightversion.ModeFull
			switch {
			case major:
				mode = shipwrightversion.ModeMajor
			case minor:
				mode = shipwrightversion.ModeMinor
			case revision:
				mode = shipwrightversion.ModeRevision
			case packaging:
				return printPackagingRevision(cmd.OutOrStdout())
			}
			return printVersion(cmd, mode)
		},
	}

	cmd.Flags().BoolVarP(&major, "major", "m", false, "Print the major component only")
	cmd.Flags().BoolVarP(&minor, "minor", "n", false, "Print the minor component only")
	cmd.Flags().BoolVarP(&revision, "revision", "r", false, "Print the revision component only (pre-release suffix included)")
	cmd.Flags().BoolVarP(&packaging, "packaging-revision", "u", false, "Print the packaging revision from the newest changelog entry")
	cmd.MarkFlagsMutuallyExclusive("major", "minor", "revision", "packaging-revision")

	return cmd
}

func printVersion(cmd *cobra.Command, mode shipwrightversion.Mode) error {
	ver, err := shared.ResolveVersion(cmd.Context())
	if err != nil {
		var rerr *shipwrighterrors.ResolutionError
		if errors.As(err, &rerr) {
			fmt.Fprintln(cmd.ErrOrStderr(), unresolvableMessage)
			return &shared.ExitError{Code: shared.ExitResolution, Silent: true, Cause: err}
		}
		return err
	}

	out, err := ver.Format(mode)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// printPackagingRevision reads the packaging revision from the first
// changelog entry. This query is changelog-derived, independent of git
// state.
func printPackagingRevision(w io.Writer) error {
	cfg, err := config.LoadOrDefault(shared.GetConfigPath())
	if err != nil {
		return err
	}

	path := filepath.Join(shared.GetRepoPath(), cfg.Changelog.Dir, "changelog")
	file, err := changelog.Load(path)
	if err != nil {
		return err
	}

	entry := file.First()
	revision, err := entry.PackagingRevision()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, revision)
	return nil
}
