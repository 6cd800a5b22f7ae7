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

// Package clean implements the clean command: remove release build
// byproducts from the workspace.
package clean

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/shipwright/internal/commands/shared"
)

// NewCommand creates the clean command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove release build byproducts",
		Long: `Remove the staging directory, packaging byproducts, and the generated
version file, restoring the workspace to its pre-release state. The
release journal is preserved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := shared.NewLogger()
			tc, err := shared.BuildToolchain(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer tc.Close()

			if err := tc.Pipeline.RunClean(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("workspace clean"))
			return nil
		},
	}
}
