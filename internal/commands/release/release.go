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

// Package release implements the release command group: the full
// new-version flow and the packaging-revision-only flow.
package release

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/tombee/shipwright/internal/commands/shared"
)

// NewCommand creates the release command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Tag, build, and publish a release",
		Long: `Commands for releasing the project: tag a new upstream version and drive
it through changelog, build, upload, and backports, or re-release the
current version with a bumped packaging revision.`,
	}

	cmd.AddCommand(newReleaseNewCommand())
	cmd.AddCommand(newReleaseDebianCommand())

	return cmd
}

func newReleaseNewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "new <version>",
		Short: "Release a new upstream version",
		Long: `Run the full release flow for a new upstream version.

The version must be documented in the project's release notes and must
not have been released before. The flow validates every precondition
and proves the signing key usable before the first repository mutation;
the tag, changelog commit, and uploads are never rolled back once made.`,
		Example: `  # Release version 1.2.3
  shipwright release new 1.2.3

  # Non-interactive (CI)
  shipwright release new 1.2.3 --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := shared.NewLogger()
			tc, err := shared.BuildToolchain(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer tc.Close()

			rawVersion := args[0]
			if err := confirmRelease(cmd, fmt.Sprintf("Release %s of %s to %s?",
				rawVersion, tc.Config.Project, tc.Config.Channel.Host)); err != nil {
				return err
			}

			if err := tc.Pipeline.Release(cmd.Context(), rawVersion); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK(fmt.Sprintf("released %s %s", tc.Config.Project, rawVersion)))
			return nil
		},
	}
}

func newReleaseDebianCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "debian",
		Short: "Re-release the current version with a bumped packaging revision",
		Long: `Run the reduced release flow for a packaging-only change: the upstream
version stays as tagged, only the changelog's packaging revision is
incremented before building and uploading.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := shared.NewLogger()
			tc, err := shared.BuildToolchain(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer tc.Close()

			if err := confirmRelease(cmd, fmt.Sprintf("Re-release %s with a bumped packaging revision to %s?",
				tc.Config.Project, tc.Config.Channel.Host)); err != nil {
				return err
			}

			if err := tc.Pipeline.DebianRelease(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("packaging revision released"))
			return nil
		},
	}
}

// confirmRelease prompts the operator before anything irreversible
// happens. --yes and non-interactive contexts skip the prompt.
func confirmRelease(cmd *cobra.Command, message string) error {
	if shared.GetYes() || shared.IsNonInteractive() {
		return nil
	}

	confirmed := false
	prompt := &survey.Confirm{Message: message, Default: false}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(cmd.OutOrStdout(), "Release cancelled.")
		return &shared.ExitError{Code: shared.ExitFailure, Silent: true}
	}
	return nil
}
