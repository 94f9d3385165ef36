package registry

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry operations.
var (
	// ErrPackageNotFound indicates the name or version specifier cannot be
	// resolved by the registry.
	ErrPackageNotFound = errors.New("package not found")

	// ErrRegistryUnavailable indicates the registry service could not be reached.
	ErrRegistryUnavailable = errors.New("registry unavailable")
)

// ResolutionError wraps registry failures with the request that caused them.
type ResolutionError struct {
	// Name is the requested package name.
	Name string

	// Spec is the requested version specifier.
	Spec string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if e.Spec != "" {
		return fmt.Sprintf("resolve %s@%s: %v", e.Name, e.Spec, e.Err)
	}
	return fmt.Sprintf("resolve %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates the package or specifier
// does not resolve to any version.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPackageNotFound)
}
