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

package completion

import (
	"github.com/spf13/cobra"
)

// SafeCompletionWrapper runs a completion function with panic recovery.
// Completion must never crash the shell; errors degrade to an empty list.
func SafeCompletionWrapper(fn func() ([]string, cobra.ShellCompDirective)) (results []string, directive cobra.ShellCompDirective) {
	results = []string{}
	directive = cobra.ShellCompDirectiveNoFileComp

	defer func() {
		if r := recover(); r != nil {
			results = []string{}
			directive = cobra.ShellCompDirectiveNoFileComp
		}
	}()

	results, directive = fn()
	if results == nil {
		results = []string{}
	}
	return results, directive
}

// CompleteRunKinds provides completion for the history --kind flag.
func CompleteRunKinds(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		kinds := []string{
			"release\tFull release of a new upstream version",
			"debian_release\tPackaging-only release",
			"sdist\tSource archive assembly",
			"build\tSource package build",
			"publish\tChannel upload and backports",
			"clean\tWorkspace cleanup",
		}
		return kinds, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteRunStatus provides completion for the history --status flag.
func CompleteRunStatus(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		statuses := []string{
			"running\tRun is currently executing",
			"succeeded\tRun finished successfully",
			"failed\tRun failed with an error",
		}
		return statuses, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteBackportPolicies provides completion for the init --policy flag values.
func CompleteBackportPolicies(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		policies := []string{
			"fail_fast\tStop at the first failing backport target",
			"continue\tAttempt every target, report failures at the end",
		}
		return policies, cobra.ShellCompDirectiveNoFileComp
	})
}
