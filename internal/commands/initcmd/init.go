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

// Package initcmd implements the init command: bootstrap a
// .shipwright.yaml for the project.
package initcmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tombee/shipwright/internal/commands/completion"
	"github.com/tombee/shipwright/internal/commands/shared"
	"github.com/tombee/shipwright/internal/config"
	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
)

// NewCommand creates the init command.
func NewCommand() *cobra.Command {
	var force bool
	var project, host, key, targets, policy string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .shipwright.yaml for this project",
		Long: `Create the project release configuration. Interactive by default; in
non-interactive contexts the settings come from flags.

An existing configuration is never overwritten without --force.`,
		Example: `  # Interactive setup
  shipwright init

  # Non-interactive (CI, scripts)
  shipwright init --project twitcher --channel ppa:example/twitcher --targets focal,jammy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := shared.GetConfigPath()
			if _, err := os.Stat(path); err == nil && !force {
				return &shipwrighterrors.ValidationError{
					Field:      "config",
					Message:    fmt.Sprintf("%s already exists", path),
					Suggestion: "Pass --force to overwrite it",
				}
			}

			cfg := config.Default()
			cfg.Project = project
			cfg.Channel.Host = host
			cfg.Signing.Key = key
			cfg.Targets = splitTargets(targets)
			if policy != "" {
				if policy != config.PolicyFailFast && policy != config.PolicyContinue {
					return &shipwrighterrors.ValidationError{
						Field:      "policy",
						Message:    fmt.Sprintf("unknown backport policy %q", policy),
						Suggestion: "Use fail_fast or continue",
					}
				}
				cfg.BackportPolicy = policy
			}

			if !shared.GetYes() && !shared.IsNonInteractive() {
				if err := runForm(cfg); err != nil {
					return err
				}
			}

			if cfg.Project == "" {
				return &shipwrighterrors.ValidationError{
					Field:      "project",
					Message:    "a project name is required",
					Suggestion: "Pass --project or run interactively",
				}
			}

			if err := config.Save(path, cfg); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("wrote "+path))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration")
	cmd.Flags().StringVar(&project, "project", "", "Project (package) name")
	cmd.Flags().StringVar(&host, "channel", "", "dput host source packages are uploaded to")
	cmd.Flags().StringVar(&key, "signing-key", "", "gpg key id for tag and package signatures")
	cmd.Flags().StringVar(&targets, "targets", "", "Comma-separated distribution targets for backports")
	cmd.Flags().StringVar(&policy, "policy", "", "Backport failure policy (fail_fast, continue)")
	_ = cmd.RegisterFlagCompletionFunc("policy", completion.CompleteBackportPolicies)

	return cmd
}

// runForm collects the settings interactively. Flag values pre-fill the
// form fields.
func runForm(cfg *config.Config) error {
	targets := strings.Join(cfg.Targets, ",")
	policy := cfg.BackportPolicy

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Description("The package name; artifact names derive from it.").
				Value(&cfg.Project).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("project name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Upload channel").
				Description("dput host for source packages, e.g. ppa:owner/project.").
				Value(&cfg.Channel.Host),
			huh.NewInput().
				Title("Signing key").
				Description("gpg key id; leave empty for the default key.").
				Value(&cfg.Signing.Key),
			huh.NewInput().
				Title("Backport targets").
				Description("Comma-separated distribution series, e.g. focal,jammy.").
				Value(&targets),
			huh.NewSelect[string]().
				Title("Backport policy").
				Description("What to do when a backport target fails.").
				Options(
					huh.NewOption("Stop at the first failing target", config.PolicyFailFast),
					huh.NewOption("Attempt every target, report failures at the end", config.PolicyContinue),
				).
				Value(&policy),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Targets = splitTargets(targets)
	cfg.BackportPolicy = policy
	return nil
}

func splitTargets(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	targets := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			targets = append(targets, t)
		}
	}
	return targets
}
