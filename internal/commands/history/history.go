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

// Package history implements the history command group: inspect the
// release journal.
package history

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/shipwright/internal/commands/completion"
	"github.com/tombee/shipwright/internal/commands/shared"
	"github.com/tombee/shipwright/internal/config"
	"github.com/tombee/shipwright/internal/history"
	"github.com/tombee/shipwright/internal/jq"
)

// NewCommand creates the history command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "View past release runs",
		Long: `Commands for listing and inspecting past release runs recorded in the
project's release journal.`,
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newShowCommand())

	return cmd
}

func newListCommand() *cobra.Command {
	var kind, versionFilter, status, jqExpr string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List past release runs",
		Example: `  # All runs, newest first
  shipwright history list

  # Failed full releases only
  shipwright history list --kind release --status failed

  # Versions of every failed run
  shipwright history list --json --jq '.runs[] | select(.status == "failed") | .version'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), history.Filter{
				Kind:    kind,
				Version: versionFilter,
				Status:  status,
				Limit:   limit,
			})
			if err != nil {
				return err
			}

			if shared.GetJSON() || jqExpr != "" {
				return writeJSON(cmd, map[string]interface{}{"runs": runsToJSON(runs)}, jqExpr)
			}

			renderRunList(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Filter by run kind (release, debian_release, sdist, build, publish, clean)")
	cmd.Flags().StringVar(&versionFilter, "version", "", "Filter by released version")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (running, succeeded, failed)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of runs to list (0 = all)")
	cmd.Flags().StringVar(&jqExpr, "jq", "", "Filter JSON output through a jq expression")
	_ = cmd.RegisterFlagCompletionFunc("kind", completion.CompleteRunKinds)
	_ = cmd.RegisterFlagCompletionFunc("status", completion.CompleteRunStatus)

	return cmd
}

func newShowCommand() *cobra.Command {
	var jqExpr string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one release run with its stage outcomes",
		Example: `  # Full run details
  shipwright history show 2f1c9c6e-...

  # Status only
  shipwright history show 2f1c9c6e-... --json --jq '.status'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if shared.GetJSON() || jqExpr != "" {
				return writeJSON(cmd, runToJSON(run), jqExpr)
			}

			renderRun(cmd.OutOrStdout(), run)
			return nil
		},
	}

	cmd.Flags().StringVar(&jqExpr, "jq", "", "Filter JSON output through a jq expression")

	return cmd
}

func openJournal() (*history.Store, error) {
	cfg, err := config.LoadOrDefault(shared.GetConfigPath())
	if err != nil {
		return nil, err
	}
	return history.Open(filepath.Join(shared.GetRepoPath(), cfg.History.Path))
}

// writeJSON marshals data, optionally filtered through a jq expression.
func writeJSON(cmd *cobra.Command, data interface{}, jqExpr string) error {
	executor := jq.NewExecutor(0)
	if err := executor.Validate(jqExpr); err != nil {
		return err
	}

	if jqExpr != "" {
		// gojq operates on generic JSON values.
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		if data, err = executor.Execute(cmd.Context(), jqExpr, generic); err != nil {
			return err
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func runsToJSON(runs []*history.Run) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		out = append(out, runToJSON(run))
	}
	return out
}

func runToJSON(run *history.Run) map[string]interface{} {
	m := map[string]interface{}{
		"id":         run.ID,
		"kind":       run.Kind,
		"version":    run.Version,
		"status":     run.Status,
		"started_at": run.StartedAt.Format(time.RFC3339),
	}
	if !run.FinishedAt.IsZero() {
		m["finished_at"] = run.FinishedAt.Format(time.RFC3339)
	}
	if run.Error != "" {
		m["error"] = run.Error
	}
	if len(run.Stages) > 0 {
		stages := make([]map[string]interface{}, 0, len(run.Stages))
		for _, s := range run.Stages {
			stage := map[string]interface{}{
				"stage":  s.Stage,
				"status": s.Status,
			}
			if s.Detail != "" {
				stage["detail"] = s.Detail
			}
			if s.Error != "" {
				stage["error"] = s.Error
			}
			stages = append(stages, stage)
		}
		m["stages"] = stages
	}
	return m
}

func renderRunList(w io.Writer, runs []*history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No release runs recorded.")
		return
	}

	for _, run := range runs {
		version := run.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(w, "%s  %s  %-15s %-10s %s\n",
			statusSymbol(run.Status),
			shared.Muted.Render(shortID(run.ID)),
			run.Kind,
			version,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
		)
	}
}

func renderRun(w io.Writer, run *history.Run) {
	fmt.Fprintf(w, "%s %s\n", shared.Header.Render("Run"), run.ID)
	fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("Kind:"), run.Kind)
	if run.Version != "" {
		fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("Version:"), run.Version)
	}
	fmt.Fprintf(w, "%s %s %s\n", shared.RenderLabel("Status:"), statusSymbol(run.Status), run.Status)
	fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("Started:"), run.StartedAt.Local().Format(time.RFC1123))
	if run.Error != "" {
		fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("Error:"), run.Error)
	}

	if len(run.Stages) > 0 {
		fmt.Fprintf(w, "\n%s\n", shared.Header.Render("Stages"))
		for _, s := range run.Stages {
			line := fmt.Sprintf("%s %s", statusSymbol(s.Status), s.Stage)
			if s.Detail != "" {
				line += " " + shared.Muted.Render("("+s.Detail+")")
			}
			fmt.Fprintln(w, line)
			if s.Error != "" {
				fmt.Fprintf(w, "    %s\n", shared.StatusError.Render(s.Error))
			}
		}
	}
}

func statusSymbol(status string) string {
	switch status {
	case history.StatusSucceeded:
		return shared.StatusOK.Render(shared.SymbolOK)
	case history.StatusFailed:
		return shared.StatusError.Render(shared.SymbolError)
	case history.StatusSkipped:
		return shared.StatusWarn.Render(shared.SymbolWarn)
	default:
		return shared.StatusInfo.Render(shared.SymbolInfo)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
