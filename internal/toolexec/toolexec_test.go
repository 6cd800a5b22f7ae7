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

package toolexec_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"testing"

	"github.com/tombee/shipwright/internal/toolexec"
	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecRunner_CapturesStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell environment")
	}

	r := toolexec.NewExecRunner(discardLogger())

	result, err := r.Run(context.Background(), toolexec.Spec{
		Program: "echo",
		Args:    []string{"hello", "world"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Stdout, "hello world") {
		t.Errorf("expected stdout to contain 'hello world', got: %s", result.Stdout)
	}

	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got: %d", result.ExitCode)
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell environment")
	}

	r := toolexec.NewExecRunner(discardLogger())

	result, err := r.Run(context.Background(), toolexec.Spec{
		Program: "sh",
		Args:    []string{"-c", "echo broken >&2; exit 3"},
	})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}

	var toolErr *shipwrighterrors.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *ToolError, got %T", err)
	}

	if toolErr.ExitCode != 3 {
		t.Errorf("expected ToolError exit code 3, got %d", toolErr.ExitCode)
	}

	if result.ExitCode != 3 {
		t.Errorf("expected result exit code 3, got %d", result.ExitCode)
	}

	if !strings.Contains(result.Stderr, "broken") {
		t.Errorf("expected stderr captured, got: %q", result.Stderr)
	}
}

func TestExecRunner_MissingProgram(t *testing.T) {
	r := toolexec.NewExecRunner(discardLogger())

	result, err := r.Run(context.Background(), toolexec.Spec{
		Program: "definitely-not-a-real-tool-xyz",
	})
	if err == nil {
		t.Fatal("expected error for missing program")
	}

	var toolErr *shipwrighterrors.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *ToolError, got %T", err)
	}

	if result.ExitCode != -1 {
		t.Errorf("expected exit code -1 for unstarted program, got %d", result.ExitCode)
	}
}

func TestExecRunner_Stdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell environment")
	}

	r := toolexec.NewExecRunner(discardLogger())

	result, err := r.Run(context.Background(), toolexec.Spec{
		Program: "cat",
		Stdin:   "piped input",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Stdout != "piped input" {
		t.Errorf("expected stdin to round-trip, got: %q", result.Stdout)
	}
}

func TestExecRunner_Env(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell environment")
	}

	r := toolexec.NewExecRunner(discardLogger())

	result, err := r.Run(context.Background(), toolexec.Spec{
		Program: "sh",
		Args:    []string{"-c", "echo $RELEASE_CHECK"},
		Env:     map[string]string{"RELEASE_CHECK": "enabled"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Stdout, "enabled") {
		t.Errorf("expected env var to reach child, got: %q", result.Stdout)
	}
}

func TestExecRunner_Dir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell environment")
	}

	dir := t.TempDir()
	r := toolexec.NewExecRunner(discardLogger())

	result, err := r.Run(context.Background(), toolexec.Spec{
		Program: "pwd",
		Dir:     dir,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Stdout, dir) {
		t.Errorf("expected working directory %q, got: %q", dir, result.Stdout)
	}
}

func TestExecRunner_ContextCancellation(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell environment")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := toolexec.NewExecRunner(discardLogger())

	_, err := r.Run(ctx, toolexec.Spec{
		Program: "sleep",
		Args:    []string{"10"},
	})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestFakeRunner_RecordsCalls(t *testing.T) {
	f := toolexec.NewFakeRunner()

	_, err := f.Run(context.Background(), toolexec.Spec{Program: "dput", Args: []string{"ppa", "pkg.changes"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _ = f.Run(context.Background(), toolexec.Spec{Program: "gpg", Args: []string{"--clearsign"}})

	if len(f.Calls) != 2 {
		t.Fatalf("expected 2 recorded calls, got %d", len(f.Calls))
	}

	dputCalls := f.CallsTo("dput")
	if len(dputCalls) != 1 {
		t.Fatalf("expected 1 dput call, got %d", len(dputCalls))
	}
	if dputCalls[0].Args[1] != "pkg.changes" {
		t.Errorf("expected recorded args, got %v", dputCalls[0].Args)
	}
}

func TestFakeRunner_CannedResponse(t *testing.T) {
	f := toolexec.NewFakeRunner()
	f.Respond("debuild", toolexec.FakeResponse{Stdout: "built", ExitCode: 0})

	result, err := f.Run(context.Background(), toolexec.Spec{Program: "debuild"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Stdout != "built" {
		t.Errorf("expected canned stdout, got: %q", result.Stdout)
	}
}

func TestFakeRunner_NonZeroExitBuildsToolError(t *testing.T) {
	f := toolexec.NewFakeRunner()
	f.Respond("dput", toolexec.FakeResponse{Stderr: "rejected", ExitCode: 1})

	_, err := f.Run(context.Background(), toolexec.Spec{Program: "dput"})
	if err == nil {
		t.Fatal("expected error")
	}

	var toolErr *shipwrighterrors.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *ToolError, got %T", err)
	}
	if toolErr.Stderr != "rejected" {
		t.Errorf("expected stderr in ToolError, got %q", toolErr.Stderr)
	}
}

func TestFakeRunner_Hook(t *testing.T) {
	f := toolexec.NewFakeRunner()
	f.Hook = func(spec toolexec.Spec) (*toolexec.Result, error) {
		return &toolexec.Result{Stdout: "hooked " + spec.Program}, nil
	}

	result, err := f.Run(context.Background(), toolexec.Spec{Program: "git"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Stdout != "hooked git" {
		t.Errorf("expected hook to control response, got: %q", result.Stdout)
	}
}
