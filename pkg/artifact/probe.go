package artifact

import (
	"os"
)

// Probe answers whether a completed artifact exists for a concrete version.
//
// The check is a single stat of the marker file and is never cached: the
// result must reflect current disk state so a just-finished generation is
// visible immediately.
type Probe struct {
	layout *Layout
}

// NewProbe creates a probe over the given layout.
func NewProbe(layout *Layout) *Probe {
	return &Probe{layout: layout}
}

// Exists reports whether the completed-artifact marker is present for the
// exact (name, version) pair.
func (p *Probe) Exists(name, version string) bool {
	st, err := os.Stat(p.layout.MarkerPath(name, version))
	return err == nil && !st.IsDir()
}
