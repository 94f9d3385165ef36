package handlers

import (
	"errors"
	"net/url"
	"strings"
)

// Sentinel parse errors, mapped to the NO_PACKAGE_SPECIFIED and
// PACKAGE_NOT_FOUND response codes at the handler boundary.
var (
	ErrNoPackage      = errors.New("no package specified")
	ErrBadPackagePath = errors.New("cannot parse package path")
)

// parsePackagePath splits a request path into (name, version specifier,
// fragment). Accepted shapes:
//
//	name
//	name@spec
//	name@spec/fragment/path.html
//	@scope/name@spec/fragment
//
// A missing specifier defaults to "latest"; the fragment may be empty.
func parsePackagePath(path string) (name, spec, fragment string, err error) {
	// The router matches on the escaped path, so range specifiers arrive
	// percent-encoded ("%5E1.2").
	if unescaped, uerr := url.PathUnescape(path); uerr == nil {
		path = unescaped
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return "", "", "", ErrNoPackage
	}

	ref := path
	if strings.HasPrefix(path, "@") {
		// Scoped: the first segment is the scope, the second the package.
		i := strings.Index(path, "/")
		if i < 0 || i == len(path)-1 {
			return "", "", "", ErrBadPackagePath
		}
		j := strings.Index(path[i+1:], "/")
		if j < 0 {
			ref, fragment = path, ""
		} else {
			ref, fragment = path[:i+1+j], path[i+1+j+1:]
		}
		name, spec, err = splitRef(ref)
		if err != nil {
			return "", "", "", err
		}
		return name, spec, fragment, nil
	}

	if i := strings.Index(path, "/"); i >= 0 {
		ref, fragment = path[:i], path[i+1:]
	}
	name, spec, err = splitRef(ref)
	if err != nil {
		return "", "", "", err
	}
	return name, spec, fragment, nil
}

// splitRef splits "name[@spec]" on the last "@"; a leading "@" belongs to
// the scope, not the version separator.
func splitRef(ref string) (string, string, error) {
	if ref == "" || ref == "@" {
		return "", "", ErrBadPackagePath
	}
	i := strings.LastIndex(ref, "@")
	if i <= 0 {
		// No version separator; a leading "@" is the scope marker.
		return ref, "latest", nil
	}
	name, spec := ref[:i], ref[i+1:]
	if strings.HasSuffix(name, "/") {
		return "", "", ErrBadPackagePath
	}
	if spec == "" {
		spec = "latest"
	}
	return name, spec, nil
}
