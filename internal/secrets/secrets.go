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

// Package secrets resolves credential references. A reference names a
// scheme and a key, separated by a colon:
//
//   - env:UPLOAD_TOKEN       -> the UPLOAD_TOKEN environment variable
//   - keychain:upload-token  -> the "upload-token" entry in the system keychain
//
// Secret values never land in the configuration file.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedRef is returned when a reference does not parse.
var ErrMalformedRef = errors.New("malformed secret reference")

// ErrNotFound is returned when the backend has no value for the key.
var ErrNotFound = errors.New("secret not found")

// ErrUnavailable is returned when the backend cannot be reached at all.
var ErrUnavailable = errors.New("secret backend unavailable")

// Ref is a parsed secret reference.
type Ref struct {
	Scheme string
	Key    string
}

// String reassembles the reference.
func (r Ref) String() string {
	return r.Scheme + ":" + r.Key
}

// ParseRef parses and validates a secret reference.
func ParseRef(reference string) (Ref, error) {
	scheme, key, ok := strings.Cut(reference, ":")
	if !ok {
		return Ref{}, fmt.Errorf("%w: %q must look like env:NAME or keychain:NAME",
			ErrMalformedRef, reference)
	}
	switch scheme {
	case "env", "keychain":
	default:
		return Ref{}, fmt.Errorf("%w: unknown scheme %q (supported: env, keychain)",
			ErrMalformedRef, scheme)
	}
	if key == "" {
		return Ref{}, fmt.Errorf("%w: %q has an empty key", ErrMalformedRef, reference)
	}
	return Ref{Scheme: scheme, Key: key}, nil
}

// Provider resolves keys for a single reference scheme.
type Provider interface {
	// Scheme returns the reference scheme this provider serves.
	Scheme() string

	// Resolve returns the secret value for key.
	Resolve(ctx context.Context, key string) (string, error)
}

// Resolver dispatches references to scheme providers.
type Resolver struct {
	providers map[string]Provider
}

// NewResolver creates a resolver over the given providers.
func NewResolver(providers ...Provider) *Resolver {
	byScheme := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byScheme[p.Scheme()] = p
	}
	return &Resolver{providers: byScheme}
}

// DefaultResolver creates a resolver with the env and keychain providers.
func DefaultResolver() *Resolver {
	return NewResolver(NewEnvProvider(), NewKeychainProvider(ServiceName))
}

// Resolve parses the reference and resolves it through the matching
// provider.
func (r *Resolver) Resolve(ctx context.Context, reference string) (string, error) {
	ref, err := ParseRef(reference)
	if err != nil {
		return "", err
	}

	provider, ok := r.providers[ref.Scheme]
	if !ok {
		return "", fmt.Errorf("%w: no provider for scheme %q", ErrUnavailable, ref.Scheme)
	}

	value, err := provider.Resolve(ctx, ref.Key)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", ref, err)
	}
	return value, nil
}
