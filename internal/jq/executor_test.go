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

package jq

import (
	"context"
	"testing"
)

func TestExecuteEmptyExpression(t *testing.T) {
	e := NewExecutor(0)
	data := map[string]interface{}{"version": "1.2.3"}

	result, err := e.Execute(context.Background(), "", data)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	m, ok := result.(map[string]interface{})
	if !ok || m["version"] != "1.2.3" {
		t.Errorf("Execute() = %v, want input unchanged", result)
	}
}

func TestExecuteSelectsField(t *testing.T) {
	e := NewExecutor(0)
	data := map[string]interface{}{
		"runs": []interface{}{
			map[string]interface{}{"version": "1.2.3", "status": "succeeded"},
			map[string]interface{}{"version": "1.2.4", "status": "failed"},
		},
	}

	result, err := e.Execute(context.Background(), `.runs[] | select(.status == "failed") | .version`, data)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result != "1.2.4" {
		t.Errorf("Execute() = %v, want 1.2.4", result)
	}
}

func TestExecuteMultipleResults(t *testing.T) {
	e := NewExecutor(0)
	data := []interface{}{1.0, 2.0, 3.0}

	result, err := e.Execute(context.Background(), ".[]", data)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	slice, ok := result.([]interface{})
	if !ok || len(slice) != 3 {
		t.Errorf("Execute() = %v, want 3-element slice", result)
	}
}

func TestExecuteParseError(t *testing.T) {
	e := NewExecutor(0)

	if _, err := e.Execute(context.Background(), ".runs[", nil); err == nil {
		t.Error("Execute() with malformed expression should fail")
	}
}

func TestValidate(t *testing.T) {
	e := NewExecutor(0)

	tests := []struct {
		expression string
		wantErr    bool
	}{
		{"", false},
		{".status", false},
		{`.runs[] | select(.status == "failed")`, false},
		{".runs[", true},
	}

	for _, tt := range tests {
		err := e.Validate(tt.expression)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", tt.expression, err, tt.wantErr)
		}
	}
}
