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

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tombee/shipwright/internal/commands/shared"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for Shipwright
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shipwright",
		Short: "Shipwright - version resolution and release automation",
		Long: `Shipwright resolves the current version of a project from its git
history and drives the debian source-package release pipeline: tagging,
changelog maintenance, source archive assembly, signed builds, channel
uploads, and distribution-target backports.

Run 'shipwright init' to create a project configuration.
Run 'shipwright version' to see what version the working tree is at.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	// `shipwright version` reports the project version, so the tool's
	// own build information hangs off --version instead.
	v, c, b := shared.GetVersion()
	cmd.Version = fmt.Sprintf("%s (commit %s, built %s)", v, c, b)

	// Get flag pointers from shared package
	verbose, quiet, json, yes, repo, config := shared.RegisterFlagPointers()

	// Add global flags
	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")
	cmd.PersistentFlags().BoolVarP(yes, "yes", "y", false, "Answer yes to confirmation prompts")
	cmd.PersistentFlags().StringVarP(repo, "repo", "C", "", "Path to the project repository (default: current directory)")
	cmd.PersistentFlags().StringVar(config, "config", "", "Path to config file (default: <repo>/.shipwright.yaml)")

	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
