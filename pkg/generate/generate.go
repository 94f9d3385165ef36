// Package generate defines the documentation-generator collaborator.
//
// The generation algorithm itself is external: given a job manifest it
// produces an HTML bundle on disk, writing the entry document last so the
// artifact layout's completed marker only appears for finished trees.
package generate

import (
	"context"
)

// Generator produces the documentation tree for one concrete package
// version into outDir.
//
// Implementations must be safe for concurrent use; the job queue runs
// several generations at once.
type Generator interface {
	Generate(ctx context.Context, name, version string, manifest map[string]any, outDir string) error
}

// Func adapts a function to the Generator interface.
type Func func(ctx context.Context, name, version string, manifest map[string]any, outDir string) error

func (f Func) Generate(ctx context.Context, name, version string, manifest map[string]any, outDir string) error {
	return f(ctx, name, version, manifest, outDir)
}
