package resolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/docshed/pkg/artifact"
)

// fakeMirror serves a fixed set of completed artifact keys.
type fakeMirror struct {
	keys  map[string]bool
	pulls int
}

func (f *fakeMirror) Has(ctx context.Context, key string) (bool, error) {
	return f.keys[key], nil
}

func (f *fakeMirror) Pull(ctx context.Context, key, destDir string) error {
	f.pulls++
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(destDir, artifact.DefaultEntryDocument), []byte("<html></html>"), 0644)
}

func (f *fakeMirror) Push(ctx context.Context, key, srcDir string) error { return nil }

func (f *fakeMirror) Close() error { return nil }

func TestResolvePullsMissFromMirror(t *testing.T) {
	reg := &fakeRegistry{versions: map[string]string{"pkgA@^2": "2.3.1"}}
	layout, err := artifact.NewLayout(t.TempDir())
	require.NoError(t, err)

	mirror := &fakeMirror{keys: map[string]bool{"pkgA@2.3.1": true}}
	r, err := New(reg, layout, WithMirror(mirror))
	require.NoError(t, err)

	out, err := r.Resolve(context.Background(), Request{Name: "pkgA", Spec: "^2"})
	require.NoError(t, err)
	assert.True(t, out.Hit)
	assert.Equal(t, 1, mirror.pulls)

	// The pulled tree satisfies the fast path next time; no second pull.
	out, err = r.Resolve(context.Background(), Request{Name: "pkgA", Spec: "2.3.1"})
	require.NoError(t, err)
	assert.True(t, out.Hit)
	assert.Equal(t, 1, mirror.pulls)
}

func TestResolveMirrorMissFallsThrough(t *testing.T) {
	reg := &fakeRegistry{versions: map[string]string{"pkgA@^2": "2.3.1"}}
	layout, err := artifact.NewLayout(t.TempDir())
	require.NoError(t, err)

	mirror := &fakeMirror{keys: map[string]bool{}}
	r, err := New(reg, layout, WithMirror(mirror))
	require.NoError(t, err)

	out, err := r.Resolve(context.Background(), Request{Name: "pkgA", Spec: "^2"})
	require.NoError(t, err)
	assert.False(t, out.Hit)
	assert.Equal(t, 0, mirror.pulls)
}
