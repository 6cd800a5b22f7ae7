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
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestCompleteRunKinds(t *testing.T) {
	completions, directive := CompleteRunKinds(nil, nil, "")

	if len(completions) != 6 {
		t.Errorf("expected 6 run kinds, got %d", len(completions))
	}

	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("expected ShellCompDirectiveNoFileComp, got %v", directive)
	}

	expectedKinds := map[string]bool{
		"release":        false,
		"debian_release": false,
		"sdist":          false,
		"build":          false,
		"publish":        false,
		"clean":          false,
	}

	for _, comp := range completions {
		parts := strings.Split(comp, "\t")
		if len(parts) < 1 {
			continue
		}
		kind := parts[0]
		if _, ok := expectedKinds[kind]; ok {
			expectedKinds[kind] = true
		}
	}

	for kind, found := range expectedKinds {
		if !found {
			t.Errorf("expected run kind %q not found", kind)
		}
	}
}

func TestCompleteRunStatus(t *testing.T) {
	completions, directive := CompleteRunStatus(nil, nil, "")

	if len(completions) != 3 {
		t.Errorf("expected 3 run statuses, got %d", len(completions))
	}

	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("expected ShellCompDirectiveNoFileComp, got %v", directive)
	}

	expectedStatuses := map[string]bool{
		"running":   false,
		"succeeded": false,
		"failed":    false,
	}

	for _, comp := range completions {
		parts := strings.Split(comp, "\t")
		if len(parts) < 1 {
			continue
		}
		status := parts[0]
		if _, ok := expectedStatuses[status]; ok {
			expectedStatuses[status] = true
		}
	}

	for status, found := range expectedStatuses {
		if !found {
			t.Errorf("expected run status %q not found", status)
		}
	}
}

func TestCompleteBackportPolicies(t *testing.T) {
	completions, directive := CompleteBackportPolicies(nil, nil, "")

	if len(completions) != 2 {
		t.Errorf("expected 2 backport policies, got %d", len(completions))
	}

	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("expected ShellCompDirectiveNoFileComp, got %v", directive)
	}

	expectedPolicies := map[string]bool{
		"fail_fast": false,
		"continue":  false,
	}

	for _, comp := range completions {
		parts := strings.Split(comp, "\t")
		if len(parts) < 1 {
			continue
		}
		policy := parts[0]
		if _, ok := expectedPolicies[policy]; ok {
			expectedPolicies[policy] = true
		}
	}

	for policy, found := range expectedPolicies {
		if !found {
			t.Errorf("expected backport policy %q not found", policy)
		}
	}
}

func TestSafeCompletionWrapper_RecoversPanic(t *testing.T) {
	completions, directive := SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		panic("completion exploded")
	})

	if len(completions) != 0 {
		t.Errorf("expected empty completions after panic, got %v", completions)
	}
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("expected ShellCompDirectiveNoFileComp, got %v", directive)
	}
}

func TestFlagCompletions_HaveDescriptions(t *testing.T) {
	testCases := []struct {
		name string
		fn   func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective)
	}{
		{"RunKinds", CompleteRunKinds},
		{"RunStatus", CompleteRunStatus},
		{"BackportPolicies", CompleteBackportPolicies},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			completions, _ := tc.fn(nil, nil, "")

			for _, comp := range completions {
				if !strings.Contains(comp, "\t") {
					t.Errorf("%s completion %q should have a description separated by tab", tc.name, comp)
				}
			}
		})
	}
}
