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

// Package toolexec runs the external tools the release pipeline drives
// (git tag signing, gpg, debuild, dput, backportpackage) with output
// capture and context cancellation.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/tombee/shipwright/internal/log"
	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
)

// Spec describes a single tool invocation.
type Spec struct {
	// Program is the executable to run.
	Program string

	// Args are the program arguments.
	Args []string

	// Dir is the working directory; empty means the current directory.
	Dir string

	// Env holds environment variables appended to the current environment.
	Env map[string]string

	// Stdin is piped to the program when non-empty.
	Stdin string

	// Console streams output to the operator console in addition to
	// capturing it. Used for long-running builds.
	Console bool
}

// Result holds the captured output and exit status of a tool invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external tools.
type Runner interface {
	Run(ctx context.Context, spec Spec) (*Result, error)
}

// ExecRunner runs tools with os/exec, logging each invocation.
type ExecRunner struct {
	middleware *log.ToolMiddleware
}

// NewExecRunner creates a runner that logs invocations through logger.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	return &ExecRunner{
		middleware: log.NewToolMiddleware(logger),
	}
}

// Run executes the tool described by spec. A non-zero exit or a failure
// to start returns the captured Result together with a ToolError.
func (r *ExecRunner) Run(ctx context.Context, spec Spec) (*Result, error) {
	call := &log.ToolCall{
		Tool: spec.Program,
		Args: spec.Args,
		Dir:  spec.Dir,
	}

	var result *Result
	var runErr error

	r.middleware.Invoke(call, func() (int, error) {
		result, runErr = runOnce(ctx, spec)
		return result.ExitCode, runErr
	})

	return result, runErr
}

func runOnce(ctx context.Context, spec Spec) (*Result, error) {
	cmd := exec.CommandContext(ctx, spec.Program, spec.Args...)

	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}

	if len(spec.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range spec.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	if spec.Stdin != "" {
		cmd.Stdin = strings.NewReader(spec.Stdin)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutWriters := []io.Writer{&stdoutBuf}
	stderrWriters := []io.Writer{&stderrBuf}
	if spec.Console {
		stdoutWriters = append(stdoutWriters, os.Stdout)
		stderrWriters = append(stderrWriters, os.Stderr)
	}
	cmd.Stdout = io.MultiWriter(stdoutWriters...)
	cmd.Stderr = io.MultiWriter(stderrWriters...)

	err := cmd.Run()

	result := &Result{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err != nil && errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	case err == nil:
		result.ExitCode = 0
	default:
		result.ExitCode = -1
	}

	if err != nil {
		return result, &shipwrighterrors.ToolError{
			Tool:     spec.Program,
			Args:     spec.Args,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
			Cause:    err,
		}
	}

	return result, nil
}
