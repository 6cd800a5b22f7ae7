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

package shared

import "path/filepath"

// Global flag values - set by root command
var (
	verboseFlag bool
	quietFlag   bool
	jsonFlag    bool
	yesFlag     bool
	repoFlag    string
	configFlag  string

	// Build-time version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// RegisterFlagPointers returns pointers to flag variables for binding.
// Called by root command to register flags.
func RegisterFlagPointers() (verbose, quiet, json, yes *bool, repo, config *string) {
	return &verboseFlag, &quietFlag, &jsonFlag, &yesFlag, &repoFlag, &configFlag
}

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verboseFlag
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quietFlag
}

// GetJSON returns the JSON output flag value
func GetJSON() bool {
	return jsonFlag
}

// GetYes reports whether confirmation prompts are pre-approved.
func GetYes() bool {
	return yesFlag
}

// GetRepoPath returns the project directory the command runs against.
// Defaults to the current directory.
func GetRepoPath() string {
	if repoFlag == "" {
		return "."
	}
	return repoFlag
}

// GetConfigPath returns the configuration file path, honoring --config
// and falling back to .shipwright.yaml in the project directory.
func GetConfigPath() string {
	if configFlag != "" {
		return configFlag
	}
	return filepath.Join(GetRepoPath(), ".shipwright.yaml")
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// SetFlagsForTest overrides the repo and config paths for testing.
func SetFlagsForTest(repo, config string) {
	repoFlag = repo
	configFlag = config
}
