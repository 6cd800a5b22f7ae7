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

// Package sdist implements the sdist command: assemble the source
// archive for the current release version.
package sdist

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/shipwright/internal/commands/shared"
	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
	shipwrightversion "github.com/tombee/shipwright/pkg/version"
)

// NewCommand creates the sdist command.
func NewCommand() *cobra.Command {
	var publish bool

	cmd := &cobra.Command{
		Use:   "sdist",
		Short: "Assemble the source archive for the current version",
		Long: `Export the tagged source tree into the staging directory, write the
version.txt snapshot, and produce the compressed source archive.

Re-running is a no-op when the archive for the current version already
exists.`,
		Example: `  # Assemble the archive
  shipwright sdist

  # Assemble and upload to the configured index channel
  shipwright sdist --publish`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := shared.NewLogger()
			tc, err := shared.BuildToolchain(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer tc.Close()

			ver, err := ExactVersion(cmd)
			if err != nil {
				return err
			}

			if err := tc.Pipeline.RunSdist(cmd.Context(), ver, publish); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("source archive ready for "+ver.String()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&publish, "publish", false, "Upload the archive to the configured index channel")

	return cmd
}

// ExactVersion resolves the current version and requires it to be an
// exact release: archives are built from tagged trees only.
func ExactVersion(cmd *cobra.Command) (shipwrightversion.Version, error) {
	ver, err := shared.ResolveVersion(cmd.Context())
	if err != nil {
		return shipwrightversion.Version{}, err
	}
	if ver.IsPreRelease() {
		return shipwrightversion.Version{}, &shipwrighterrors.ValidationError{
			Field:      "version",
			Message:    fmt.Sprintf("current version %s is a pre-release build", ver),
			Suggestion: "Tag and release the version first: shipwright release new <version>",
		}
	}
	return ver, nil
}
