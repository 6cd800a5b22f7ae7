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

package tools

import (
	"context"
	"fmt"
	"os"

	"github.com/tombee/shipwright/internal/toolexec"
	shipwrighterrors "github.com/tombee/shipwright/pkg/errors"
)

// Signer checks gpg signing capability. Tag and package signatures are
// produced by git and debuild themselves; Signer only proves the key is
// usable before the pipeline mutates anything.
type Signer struct {
	runner toolexec.Runner
	keyID  string
}

// NewSigner creates a Signer for the configured key. An empty keyID means
// gpg's default key.
func NewSigner(runner toolexec.Runner, keyID string) *Signer {
	return &Signer{runner: runner, keyID: keyID}
}

// KeyID returns the configured signing key, empty meaning gpg's default.
func (s *Signer) KeyID() string {
	return s.keyID
}

// HealthCheck signs empty input and discards the signature. A failure
// here means tagging or building would fail after mutations had already
// landed, so callers must refuse to proceed.
func (s *Signer) HealthCheck(ctx context.Context) error {
	args := []string{"--batch", "--no-tty"}
	if s.keyID != "" {
		args = append(args, "--local-user", s.keyID)
	}
	args = append(args, "--output", os.DevNull, "--sign")

	if _, err := s.runner.Run(ctx, toolexec.Spec{Program: "gpg", Args: args}); err != nil {
		return &shipwrighterrors.CapabilityError{
			Capability: "signing",
			Message:    fmt.Sprintf("gpg cannot sign with %s", s.describeKey()),
			Suggestion: "check that the key exists and the gpg agent is unlocked",
			Cause:      err,
		}
	}
	return nil
}

func (s *Signer) describeKey() string {
	if s.keyID == "" {
		return "the default key"
	}
	return "key " + s.keyID
}
