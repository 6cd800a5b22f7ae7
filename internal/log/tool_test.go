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
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLogToolStart(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{
		Level:  "debug",
		Format: FormatJSON,
		Output: &buf,
	}

	logger := New(cfg)

	call := &ToolCall{
		Tool: "gpg",
		Args: []string{"--clearsign", "--default-key", "ABC123"},
		Dir:  "/tmp/work",
	}

	LogToolStart(logger, call)

	output := buf.String()

	var logEntry map[string]interface{}
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}

	if logEntry["event"] != "tool_start" {
		t.Errorf("expected event to be 'tool_start', got: %v", logEntry["event"])
	}

	if logEntry["tool"] != "gpg" {
		t.Errorf("expected tool to be 'gpg', got: %v", logEntry["tool"])
	}

	if logEntry["args"] != "--clearsign --default-key ABC123" {
		t.Errorf("expected joined args, got: %v", logEntry["args"])
	}

	if logEntry["dir"] != "/tmp/work" {
		t.Errorf("expected dir to be '/tmp/work', got: %v", logEntry["dir"])
	}
}

func TestLogToolEnd_Success(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{
		Level:  "debug",
		Format: FormatJSON,
		Output: &buf,
	}

	logger := New(cfg)

	call := &ToolCall{Tool: "debuild", Args: []string{"-S", "-sa"}}
	outcome := &ToolOutcome{ExitCode: 0, DurationMs: 1234}

	LogToolEnd(logger, call, outcome)

	output := buf.String()

	var logEntry map[string]interface{}
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}

	if logEntry["msg"] != "tool completed" {
		t.Errorf("expected msg 'tool completed', got: %v", logEntry["msg"])
	}

	if logEntry["level"] != "DEBUG" {
		t.Errorf("expected level DEBUG for success, got: %v", logEntry["level"])
	}

	if logEntry["exit_code"] != float64(0) {
		t.Errorf("expected exit_code 0, got: %v", logEntry["exit_code"])
	}

	if logEntry["duration_ms"] != float64(1234) {
		t.Errorf("expected duration_ms 1234, got: %v", logEntry["duration_ms"])
	}
}

func TestLogToolEnd_Failure(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{
		Level:  "debug",
		Format: FormatJSON,
		Output: &buf,
	}

	logger := New(cfg)

	call := &ToolCall{Tool: "dput"}
	outcome := &ToolOutcome{ExitCode: 1, Error: "upload rejected", DurationMs: 42}

	LogToolEnd(logger, call, outcome)

	output := buf.String()

	var logEntry map[string]interface{}
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}

	if logEntry["msg"] != "tool failed" {
		t.Errorf("expected msg 'tool failed', got: %v", logEntry["msg"])
	}

	if logEntry["level"] != "ERROR" {
		t.Errorf("expected level ERROR for failure, got: %v", logEntry["level"])
	}

	if logEntry["error"] != "upload rejected" {
		t.Errorf("expected error 'upload rejected', got: %v", logEntry["error"])
	}
}

func TestToolMiddleware_Invoke(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{
		Level:  "debug",
		Format: FormatJSON,
		Output: &buf,
	}

	logger := New(cfg)
	middleware := NewToolMiddleware(logger)

	call := &ToolCall{Tool: "git", Args: []string{"tag", "-u", "ABC123", "1.2.3"}}

	exitCode, err := middleware.Invoke(call, func() (int, error) {
		return 0, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines (start + end), got %d: %s", len(lines), buf.String())
	}

	var startEntry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &startEntry); err != nil {
		t.Fatalf("expected valid JSON for start entry: %v", err)
	}
	if startEntry["event"] != "tool_start" {
		t.Errorf("expected first entry event 'tool_start', got: %v", startEntry["event"])
	}

	var endEntry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &endEntry); err != nil {
		t.Fatalf("expected valid JSON for end entry: %v", err)
	}
	if endEntry["event"] != "tool_end" {
		t.Errorf("expected second entry event 'tool_end', got: %v", endEntry["event"])
	}
	if _, ok := endEntry["duration_ms"]; !ok {
		t.Errorf("expected duration_ms in end entry")
	}
}

func TestToolMiddleware_Invoke_Error(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{
		Level:  "debug",
		Format: FormatJSON,
		Output: &buf,
	}

	logger := New(cfg)
	middleware := NewToolMiddleware(logger)

	call := &ToolCall{Tool: "backportpackage"}
	wantErr := errors.New("exit status 2")

	exitCode, err := middleware.Invoke(call, func() (int, error) {
		return 2, wantErr
	})

	if err != wantErr {
		t.Errorf("expected error to pass through, got: %v", err)
	}

	if exitCode != 2 {
		t.Errorf("expected exit code 2, got %d", exitCode)
	}

	if !strings.Contains(buf.String(), "tool failed") {
		t.Errorf("expected 'tool failed' log entry, got: %s", buf.String())
	}

	if !strings.Contains(buf.String(), "exit status 2") {
		t.Errorf("expected error message in log, got: %s", buf.String())
	}
}
