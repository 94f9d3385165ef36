// Package registry defines the client abstraction for the upstream package
// registry and an HTTP implementation of it.
//
// The registry is the authority for turning a (name, version specifier) pair
// into a concrete manifest. Callers treat the manifest body as opaque beyond
// the resolved name and exact version.
package registry

import (
	"context"
)

// Manifest is the registry's answer for one concrete package version.
//
// Name and Version are authoritative: the registry may normalize casing or
// aliasing, so they can differ from what was requested. Raw carries the full
// manifest document unmodified for downstream consumers (the generator).
type Manifest struct {
	Name    string
	Version string
	Raw     map[string]any
}

// Client resolves a package name and version specifier to a concrete manifest.
//
// Implementations must be safe for concurrent use.
type Client interface {
	// Resolve returns the manifest for the best match of spec.
	// Returns ErrPackageNotFound if the name or specifier cannot be resolved.
	Resolve(ctx context.Context, name, spec string) (*Manifest, error)
}
