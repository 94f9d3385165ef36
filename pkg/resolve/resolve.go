// Package resolve decides whether a requested package version already has a
// ready documentation artifact or needs a generation job.
//
// Resolution is two-stage: an optimistic fast path that trusts an exact
// version specifier when its artifact is already on disk, then an
// authoritative registry resolution followed by a disk re-check. The fast
// path skips the registry round trip for the common case of a caller pinned
// to an already-generated exact version; the re-check keeps range specifiers
// correct when they resolve to an existing version.
package resolve

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/3leaps/docshed/pkg/artifact"
	"github.com/3leaps/docshed/pkg/registry"
)

// Request is one inbound resolution request.
type Request struct {
	// Name is the package name, possibly scoped ("@scope/pkg").
	Name string

	// Spec is the version specifier: exact ("1.2.3") or a range ("^1.2").
	Spec string

	// Force bypasses the disk checks so an existing artifact is regenerated.
	// Forced requests still deduplicate through the job queue.
	Force bool
}

// ResolvedPackage is the concrete version a request resolved to.
// Manifest is nil when the exact-version fast path skipped the registry.
type ResolvedPackage struct {
	Name     string
	Version  string
	Manifest map[string]any
}

// Key returns the canonical identity string for the resolved version.
func (p ResolvedPackage) Key() string {
	return artifact.Key(p.Name, p.Version)
}

// Outcome is the result of resolving a request.
//
// ArtifactDir is a deterministic function of (Name, Version): two
// resolutions of the same concrete version always yield the same path.
type Outcome struct {
	// Hit is true when a completed artifact already exists.
	Hit bool

	Package     ResolvedPackage
	ArtifactDir string
}

// Resolver composes the registry client and the disk probe into a single
// hit-or-miss decision.
type Resolver struct {
	registry registry.Client
	probe    *artifact.Probe
	layout   *artifact.Layout
	mirror   artifact.Mirror
	logger   *zap.Logger

	// group collapses concurrent registry resolutions of one specifier.
	group singleflight.Group
}

// Option configures optional Resolver collaborators.
type Option func(*Resolver)

// WithMirror makes the resolver consult shared object storage before
// declaring a miss, pulling a hit into the local artifact tree.
func WithMirror(m artifact.Mirror) Option {
	return func(r *Resolver) { r.mirror = m }
}

// WithLogger sets the resolver logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a resolver.
func New(reg registry.Client, layout *artifact.Layout, opts ...Option) (*Resolver, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry client is required")
	}
	if layout == nil {
		return nil, fmt.Errorf("artifact layout is required")
	}
	r := &Resolver{
		registry: reg,
		probe:    artifact.NewProbe(layout),
		layout:   layout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve decides Hit or Miss for one request.
//
// Once the probe reports an artifact present, repeated resolution without
// Force contacts neither the registry nor the queue.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Outcome, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("package name is required")
	}

	// Fast path: exact specifier whose artifact is already on disk.
	if !req.Force && IsExactVersion(req.Spec) && r.probe.Exists(req.Name, req.Spec) {
		return &Outcome{
			Hit:         true,
			Package:     ResolvedPackage{Name: req.Name, Version: req.Spec},
			ArtifactDir: r.layout.Dir(req.Name, req.Spec),
		}, nil
	}

	resolved, err := r.resolveVersion(ctx, req.Name, req.Spec)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Package:     *resolved,
		ArtifactDir: r.layout.Dir(resolved.Name, resolved.Version),
	}

	if req.Force {
		return out, nil
	}

	// Authoritative re-check against the resolved exact version.
	if r.probe.Exists(resolved.Name, resolved.Version) {
		out.Hit = true
		return out, nil
	}

	if r.pullFromMirror(ctx, resolved) {
		out.Hit = true
	}
	return out, nil
}

// resolveVersion consults the registry, collapsing concurrent resolutions of
// the same (name, spec) into one upstream call.
func (r *Resolver) resolveVersion(ctx context.Context, name, spec string) (*ResolvedPackage, error) {
	key := name + "@" + spec
	v, err, shared := r.group.Do(key, func() (any, error) {
		m, err := r.registry.Resolve(ctx, name, spec)
		if err != nil {
			return nil, err
		}
		// The registry's stated name and version are authoritative; they may
		// normalize casing or aliasing relative to the request.
		return &ResolvedPackage{Name: m.Name, Version: m.Version, Manifest: m.Raw}, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("registry resolution shared", zap.String("request", key))
	}
	return v.(*ResolvedPackage), nil
}

// pullFromMirror tries to satisfy a miss from shared object storage.
// Mirror failures degrade to a miss, never to a request failure.
func (r *Resolver) pullFromMirror(ctx context.Context, pkg *ResolvedPackage) bool {
	if r.mirror == nil {
		return false
	}
	key := pkg.Key()
	ok, err := r.mirror.Has(ctx, key)
	if err != nil {
		r.logger.Warn("mirror check failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := r.mirror.Pull(ctx, key, r.layout.Dir(pkg.Name, pkg.Version)); err != nil {
		r.logger.Warn("mirror pull failed", zap.String("key", key), zap.Error(err))
		return false
	}
	r.logger.Info("artifact pulled from mirror", zap.String("key", key))
	return r.probe.Exists(pkg.Name, pkg.Version)
}
