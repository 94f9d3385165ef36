package generate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecConfigValidate(t *testing.T) {
	assert.Error(t, ExecConfig{}.Validate())
	assert.NoError(t, ExecConfig{Command: "docgen"}.Validate())
}

func TestExecGeneratorRunsCommand(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "pkg@1.0.0")

	// The "generator" copies its job manifest into the out dir so the test
	// can verify both the flag plumbing and the manifest contents.
	script := filepath.Join(t.TempDir(), "gen.sh")
	require.NoError(t, os.WriteFile(script, []byte(`#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    --job) job="$2"; shift 2 ;;
    --out) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
cp "$job" "$out/job.yaml"
`), 0755))

	g, err := NewExec(ExecConfig{Command: script})
	require.NoError(t, err)

	err = g.Generate(context.Background(), "pkg", "1.0.0", map[string]any{"dist": "x"}, outDir)
	require.NoError(t, err)

	m, err := LoadJobManifest(filepath.Join(outDir, "job.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "pkg", m.Name)
	assert.Equal(t, "1.0.0", m.Version)
	assert.Equal(t, outDir, m.OutDir)
	assert.Equal(t, "x", m.Manifest["dist"])
}

func TestExecGeneratorFailureCarriesDiagnostics(t *testing.T) {
	script := filepath.Join(t.TempDir(), "gen.sh")
	require.NoError(t, os.WriteFile(script, []byte(`#!/bin/sh
echo "resolving dependencies"
echo "build timeout" >&2
exit 1
`), 0755))

	g, err := NewExec(ExecConfig{Command: script})
	require.NoError(t, err)

	err = g.Generate(context.Background(), "pkgC", "0.1.0", nil, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build timeout")
}

func TestLoadJobManifestErrors(t *testing.T) {
	_, err := LoadJobManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("version: 1.0.0\n"), 0644))
	_, err = LoadJobManifest(bad)
	assert.Error(t, err)
}
