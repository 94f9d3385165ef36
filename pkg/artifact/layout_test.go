package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutPaths(t *testing.T) {
	layout, err := NewLayout("/data/docs")
	require.NoError(t, err)

	assert.Equal(t, "/data/docs", layout.Root())
	assert.Equal(t, "lodash@4.17.21", Key("lodash", "4.17.21"))
	assert.Equal(t, filepath.Join("/data/docs", "lodash@4.17.21"), layout.Dir("lodash", "4.17.21"))
	assert.Equal(t, filepath.Join("/data/docs", "lodash@4.17.21", "index.html"), layout.MarkerPath("lodash", "4.17.21"))

	// Scoped names nest under the scope directory.
	assert.Equal(t, filepath.Join("/data/docs", "@types", "node@20.1.0"), layout.Dir("@types/node", "20.1.0"))
}

func TestLayoutDeterministic(t *testing.T) {
	layout, err := NewLayout("/data/docs")
	require.NoError(t, err)

	// Same concrete version always yields the same path.
	a := layout.Dir("pkg", "1.2.3")
	b := layout.Dir("pkg", "1.2.3")
	assert.Equal(t, a, b)
}

func TestNewLayoutRequiresRoot(t *testing.T) {
	_, err := NewLayout("  ")
	assert.Error(t, err)
}

func TestFragmentPath(t *testing.T) {
	layout, err := NewLayout("/data/docs")
	require.NoError(t, err)

	t.Run("default fragment", func(t *testing.T) {
		p, err := layout.FragmentPath("pkg", "1.0.0", "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/data/docs", "pkg@1.0.0", "index.html"), p)
	})

	t.Run("nested fragment", func(t *testing.T) {
		p, err := layout.FragmentPath("pkg", "1.0.0", "api/types.html")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/data/docs", "pkg@1.0.0", "api", "types.html"), p)
	})

	t.Run("traversal is cleaned inside the artifact dir", func(t *testing.T) {
		p, err := layout.FragmentPath("pkg", "1.0.0", "../../etc/passwd")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/data/docs", "pkg@1.0.0", "etc", "passwd"), p)
	})
}

func TestRequestPath(t *testing.T) {
	assert.Equal(t, "/docs/pkg@1.0.0/index.html", RequestPath("pkg", "1.0.0", ""))
	assert.Equal(t, "/docs/pkg@1.0.0/api.html", RequestPath("pkg", "1.0.0", "api.html"))
	assert.Equal(t, "/docs/@types/node@20.1.0/index.html", RequestPath("@types/node", "20.1.0", "index.html"))

	// Idempotent: canonicalizing the canonical path changes nothing.
	canonical := RequestPath("pkg", "1.0.0", "api.html")
	assert.Equal(t, canonical, RequestPath("pkg", "1.0.0", "api.html"))
}

func TestProbe(t *testing.T) {
	root := t.TempDir()
	layout, err := NewLayout(root)
	require.NoError(t, err)
	probe := NewProbe(layout)

	assert.False(t, probe.Exists("pkg", "1.0.0"))

	// A directory without the marker is not a completed artifact.
	require.NoError(t, os.MkdirAll(layout.Dir("pkg", "1.0.0"), 0755))
	assert.False(t, probe.Exists("pkg", "1.0.0"))

	require.NoError(t, os.WriteFile(layout.MarkerPath("pkg", "1.0.0"), []byte("<html></html>"), 0644))
	assert.True(t, probe.Exists("pkg", "1.0.0"))
}
