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

package log

import (
	"log/slog"
	"strings"
	"time"
)

// ToolCall represents an external tool invocation for logging purposes.
type ToolCall struct {
	// Tool is the program being invoked (e.g., "gpg", "debuild", "dput").
	Tool string

	// Args are the arguments passed to the tool.
	Args []string

	// Dir is the working directory for the invocation.
	Dir string
}

// ToolOutcome represents the result of an external tool invocation.
type ToolOutcome struct {
	// ExitCode is the tool's exit status.
	ExitCode int

	// Error is the error message if the invocation failed.
	Error string

	// DurationMs is the duration of the invocation in milliseconds.
	DurationMs int64
}

// LogToolStart logs the start of an external tool invocation.
func LogToolStart(logger *slog.Logger, call *ToolCall) {
	attrs := []any{
		EventKey, "tool_start",
		ToolKey, call.Tool,
		"args", strings.Join(call.Args, " "),
	}

	if call.Dir != "" {
		attrs = append(attrs, "dir", call.Dir)
	}

	logger.Debug("tool started", attrs...)
}

// LogToolEnd logs the completion of an external tool invocation.
// Successful invocations log at debug level, failures at error level.
func LogToolEnd(logger *slog.Logger, call *ToolCall, outcome *ToolOutcome) {
	attrs := []any{
		EventKey, "tool_end",
		ToolKey, call.Tool,
		"exit_code", outcome.ExitCode,
		DurationKey, outcome.DurationMs,
	}

	if outcome.Error != "" {
		attrs = append(attrs, "error", outcome.Error)
	}

	level := slog.LevelDebug
	message := "tool completed"

	if outcome.ExitCode != 0 || outcome.Error != "" {
		level = slog.LevelError
		message = "tool failed"
	}

	logger.Log(nil, level, message, attrs...)
}

// ToolMiddleware wraps external tool invocations with logging.
// It logs the invocation when it starts and the outcome when it completes.
type ToolMiddleware struct {
	logger *slog.Logger
}

// NewToolMiddleware creates a new tool logging middleware.
func NewToolMiddleware(logger *slog.Logger) *ToolMiddleware {
	return &ToolMiddleware{
		logger: logger,
	}
}

// Invoke wraps a function that runs an external tool.
// The function returns the tool's exit code and any invocation error; both
// are logged together with the invocation duration.
func (m *ToolMiddleware) Invoke(call *ToolCall, invoke func() (int, error)) (int, error) {
	start := time.Now()

	LogToolStart(m.logger, call)

	exitCode, err := invoke()

	outcome := &ToolOutcome{
		ExitCode:   exitCode,
		DurationMs: time.Since(start).Milliseconds(),
	}

	if err != nil {
		outcome.Error = err.Error()
	}

	LogToolEnd(m.logger, call, outcome)

	return exitCode, err
}
