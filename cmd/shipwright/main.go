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

package main

import (
	"github.com/tombee/shipwright/internal/cli"
	"github.com/tombee/shipwright/internal/commands/build"
	"github.com/tombee/shipwright/internal/commands/clean"
	"github.com/tombee/shipwright/internal/commands/completion"
	historycmd "github.com/tombee/shipwright/internal/commands/history"
	"github.com/tombee/shipwright/internal/commands/initcmd"
	"github.com/tombee/shipwright/internal/commands/publish"
	"github.com/tombee/shipwright/internal/commands/release"
	"github.com/tombee/shipwright/internal/commands/sdist"
	versioncmd "github.com/tombee/shipwright/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Set version information from build-time ldflags
	cli.SetVersion(version, commit, buildDate)

	// Create root command and add subcommands
	rootCmd := cli.NewRootCommand()

	// Version resolution
	rootCmd.AddCommand(versioncmd.NewCommand())

	// Release pipeline commands
	rootCmd.AddCommand(release.NewCommand())
	rootCmd.AddCommand(sdist.NewCommand())
	rootCmd.AddCommand(build.NewCommand())
	rootCmd.AddCommand(publish.NewCommand())
	rootCmd.AddCommand(clean.NewCommand())

	// Journal and project setup
	rootCmd.AddCommand(historycmd.NewCommand())
	rootCmd.AddCommand(initcmd.NewCommand())

	// Diagnostics
	rootCmd.AddCommand(completion.NewCommand())

	// Custom help command with JSON support
	rootCmd.SetHelpCommand(cli.NewHelpCommand(rootCmd))

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
