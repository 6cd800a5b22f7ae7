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

package toolexec

import (
	"context"
	"fmt"
	"sync"

	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
)

// FakeResponse is a canned outcome for a FakeRunner invocation.
type FakeResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int

	// Err overrides the default error construction when set.
	Err error
}

// FakeRunner is an in-memory Runner for tests. Responses are keyed by
// program name; unmatched programs succeed with empty output. Hook, when
// set, takes full control of every invocation.
type FakeRunner struct {
	mu sync.Mutex

	// Calls records every invocation in order.
	Calls []Spec

	// Responses maps program names to canned outcomes.
	Responses map[string]FakeResponse

	// Hook overrides response lookup entirely when non-nil.
	Hook func(spec Spec) (*Result, error)
}

// NewFakeRunner creates an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Responses: make(map[string]FakeResponse),
	}
}

// Respond sets the canned outcome for a program.
func (f *FakeRunner) Respond(program string, resp FakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Responses == nil {
		f.Responses = make(map[string]FakeResponse)
	}
	f.Responses[program] = resp
}

// Run implements Runner.
func (f *FakeRunner) Run(ctx context.Context, spec Spec) (*Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, spec)
	hook := f.Hook
	resp, ok := f.Responses[spec.Program]
	f.mu.Unlock()

	if hook != nil {
		return hook(spec)
	}

	if !ok {
		return &Result{}, nil
	}

	result := &Result{
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
		ExitCode: resp.ExitCode,
	}

	if resp.Err != nil {
		return result, resp.Err
	}

	if resp.ExitCode != 0 {
		return result, &shipwrighterrors.ToolError{
			Tool:     spec.Program,
			Args:     spec.Args,
			ExitCode: resp.ExitCode,
			Stderr:   resp.Stderr,
			Cause:    fmt.Errorf("exit status %d", resp.ExitCode),
		}
	}

	return result, nil
}

// CallsTo returns the recorded invocations of a program, in order.
func (f *FakeRunner) CallsTo(program string) []Spec {
	f.mu.Lock()
	defer f.mu.Unlock()

	var calls []Spec
	for _, c := range f.Calls {
		if c.Program == program {
			calls = append(calls, c)
		}
	}
	return calls
}
