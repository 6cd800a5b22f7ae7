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

package errors

import (
	"fmt"
	"strings"
)

// ValidationError represents user input validation failures.
// Use this for invalid user input, malformed data, or constraint violations.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// ErrorType implements ErrorClassifier.
func (e *ValidationError) ErrorType() string { return "validation" }

// NotFoundError represents a resource not found error.
// Use this when a requested resource does not exist.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "run", "config", "changelog entry")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrorType implements ErrorClassifier.
func (e *NotFoundError) ErrorType() string { return "not_found" }

// ResolutionError represents a failure to derive a version from repository
// state. There is no fallback version: resolution failure is fatal to any
// caller.
type ResolutionError struct {
	// Message describes why no version could be resolved
	Message string

	// Cause is the underlying error, if any
	Cause error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("version resolution failed: %s", e.Message)
	}
	return "version resolution failed"
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ResolutionError) Unwrap() error { return e.Cause }

// ErrorType implements ErrorClassifier.
func (e *ResolutionError) ErrorType() string { return "resolution" }

// CapabilityError represents an unusable external capability, such as a
// signing credential that cannot produce signatures or an upload token that
// cannot be resolved. Capability checks run before any repository mutation.
type CapabilityError struct {
	// Capability names the capability that failed (e.g., "signing", "upload token")
	Capability string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for resolution
	Suggestion string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s capability check failed: %s", e.Capability, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CapabilityError) Unwrap() error { return e.Cause }

// ErrorType implements ErrorClassifier.
func (e *CapabilityError) ErrorType() string { return "capability" }

// ToolError represents a failure of an external tool invocation
// (git, gpg, debuild, dput, backportpackage).
type ToolError struct {
	// Tool is the program that failed
	Tool string

	// Args are the arguments the tool was invoked with
	Args []string

	// ExitCode is the tool's exit status (-1 when the tool did not run)
	ExitCode int

	// Stderr holds captured error output
	Stderr string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Tool)
	if len(e.Args) > 0 {
		msg = fmt.Sprintf("%s %s failed", e.Tool, strings.Join(e.Args, " "))
	}
	if e.ExitCode > 0 {
		msg = fmt.Sprintf("%s (exit %d)", msg, e.ExitCode)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg = fmt.Sprintf("%s: %s", msg, firstLine(s))
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ToolError) Unwrap() error { return e.Cause }

// ErrorType implements ErrorClassifier.
func (e *ToolError) ErrorType() string { return "tool" }

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "project", "channel.host")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error { return e.Cause }

// ErrorType implements ErrorClassifier.
func (e *ConfigError) ErrorType() string { return "config" }

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
