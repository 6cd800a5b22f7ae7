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

import (
	"errors"
	"fmt"
	"os"

	pkgerrors "github.com/tombee/shipwright/pkg/errors"
)

// Exit codes for the shipwright CLI.
const (
	ExitSuccess    = 0
	ExitFailure    = 1 // pipeline or external tool failure
	ExitValidation = 2 // input validation failure
	ExitResolution = 3 // no resolvable version
	ExitCapability = 4 // signing or upload credential unusable
	ExitConfig     = 5 // configuration problem
)

// ExitError is an error that carries an exit code.
type ExitError struct {
	Code    int
	Message string
	Cause   error

	// Silent suppresses the error line; set when the command already
	// printed its own diagnostic.
	Silent bool
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		if e.Message == "" {
			return e.Cause.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// ExitCodeFor maps an error to its exit code through the closed set of
// error kinds in pkg/errors. Unclassified errors exit 1.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var classifier pkgerrors.ErrorClassifier
	if errors.As(err, &classifier) {
		switch classifier.ErrorType() {
		case "validation", "not_found":
			return ExitValidation
		case "resolution":
			return ExitResolution
		case "capability":
			return ExitCapability
		case "config":
			return ExitConfig
		}
	}

	return ExitFailure
}

// HandleExitError prints the error and its suggestion, then exits with
// the mapped code.
func HandleExitError(err error) {
	if err == nil {
		return
	}

	var exitErr *ExitError
	silent := errors.As(err, &exitErr) && exitErr.Silent

	if !silent {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		if suggestion := pkgerrors.SuggestionFor(err); suggestion != "" {
			fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", suggestion)
		}
	}

	os.Exit(ExitCodeFor(err))
}
