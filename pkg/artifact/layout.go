// Package artifact maps concrete package versions to their generated
// documentation trees on disk and answers whether a tree is complete.
//
// The layout is one directory per (name, exact version) under a single root:
//
//	<root>/<name>@<version>/index.html
//	<root>/<name>@<version>/...
//
// Presence of index.html is the completed-artifact marker: the generator
// writes it last, so a directory without it is in-progress or aborted.
package artifact

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// DefaultEntryDocument is the completed-artifact marker and the fragment
// served when a request names no fragment.
const DefaultEntryDocument = "index.html"

// Layout computes canonical paths for artifacts. All methods are pure
// functions of (name, version); two calls with the same inputs always
// produce the same path.
type Layout struct {
	root string
}

// NewLayout creates a layout rooted at dir.
func NewLayout(dir string) (*Layout, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("artifact root dir is required")
	}
	return &Layout{root: filepath.Clean(dir)}, nil
}

// Root returns the artifact root directory.
func (l *Layout) Root() string {
	return l.root
}

// Key returns the canonical identity string for a concrete version.
// The same string keys generation jobs and artifact directories.
func Key(name, version string) string {
	return name + "@" + version
}

// Dir returns the artifact directory for a concrete version.
// Scoped names ("@scope/pkg") nest one level deeper.
func (l *Layout) Dir(name, version string) string {
	return filepath.Join(l.root, filepath.FromSlash(Key(name, version)))
}

// MarkerPath returns the path of the completed-artifact marker file.
func (l *Layout) MarkerPath(name, version string) string {
	return filepath.Join(l.Dir(name, version), DefaultEntryDocument)
}

// FragmentPath resolves a request fragment to an absolute file path inside
// the artifact directory. Fragments that would escape the directory are
// rejected.
func (l *Layout) FragmentPath(name, version, fragment string) (string, error) {
	if fragment == "" {
		fragment = DefaultEntryDocument
	}
	cleaned := path.Clean("/" + fragment)
	if cleaned == "/" {
		cleaned = "/" + DefaultEntryDocument
	}
	full := filepath.Join(l.Dir(name, version), filepath.FromSlash(cleaned))
	if !strings.HasPrefix(full, l.Dir(name, version)+string(filepath.Separator)) {
		return "", fmt.Errorf("fragment escapes artifact dir: %s", fragment)
	}
	return full, nil
}

// RequestPath returns the canonical URL path that serves the given fragment
// of a concrete version. Resolution always normalizes toward this path.
func RequestPath(name, version, fragment string) string {
	if fragment == "" {
		fragment = DefaultEntryDocument
	}
	return "/docs/" + Key(name, version) + "/" + strings.TrimPrefix(path.Clean("/"+fragment), "/")
}
