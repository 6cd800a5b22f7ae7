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

// Package publish implements the publish command: upload the built
// source package and run the distribution-target backports.
package publish

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/shipwright/internal/commands/sdist"
	"github.com/tombee/shipwright/internal/commands/shared"
)

// NewCommand creates the publish command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Upload the built package and backport it to every target",
		Long: `Upload the built source package to the distribution channel, then
request a backport build for every configured distribution target.

Uploads are externally visible and cannot be withdrawn; the backport
policy decides whether one failing target aborts the rest.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := shared.NewLogger()
			tc, err := shared.BuildToolchain(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer tc.Close()

			ver, err := sdist.ExactVersion(cmd)
			if err != nil {
				return err
			}

			if err := tc.Pipeline.RunPublish(cmd.Context(), ver); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("published "+ver.String()))
			return nil
		},
	}
}
