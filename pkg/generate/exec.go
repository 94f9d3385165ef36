package generate

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// JobManifest is the document handed to the generator command.
//
// The registry manifest is passed through unmodified; the generator owns its
// interpretation.
type JobManifest struct {
	Name     string         `yaml:"name"`
	Version  string         `yaml:"version"`
	OutDir   string         `yaml:"out_dir"`
	Manifest map[string]any `yaml:"manifest,omitempty"`
}

// ExecConfig configures an exec-based generator.
type ExecConfig struct {
	// Command is the generator binary. Required.
	Command string

	// Args precede the generated flags. Optional.
	Args []string
}

func (c ExecConfig) Validate() error {
	if strings.TrimSpace(c.Command) == "" {
		return fmt.Errorf("generator command is required")
	}
	return nil
}

// ExecGenerator runs an external generator command per job:
//
//	<command> [args...] --job <manifest.yaml> --out <dir>
//
// The job manifest is written to a temp file that lives for the duration of
// the run. Stderr is captured into the returned error on failure so the job
// record's failure reason carries the tool's diagnostics.
type ExecGenerator struct {
	command string
	args    []string
}

var _ Generator = (*ExecGenerator)(nil)

// NewExec creates an exec-based generator.
func NewExec(cfg ExecConfig) (*ExecGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ExecGenerator{command: cfg.Command, args: cfg.Args}, nil
}

// Generate implements Generator.
func (g *ExecGenerator) Generate(ctx context.Context, name, version string, manifest map[string]any, outDir string) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	jobPath, cleanup, err := writeJobManifest(JobManifest{
		Name:     name,
		Version:  version,
		OutDir:   outDir,
		Manifest: manifest,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	args := append(append([]string{}, g.args...), "--job", jobPath, "--out", outDir)
	cmd := exec.CommandContext(ctx, g.command, args...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("generator %s: %w", g.command, err)
		}
		return fmt.Errorf("generator %s: %s", g.command, lastLine(msg))
	}
	return nil
}

func writeJobManifest(m JobManifest) (string, func(), error) {
	f, err := os.CreateTemp("", "docshed-job-*.yaml")
	if err != nil {
		return "", nil, fmt.Errorf("create job manifest: %w", err)
	}
	name := f.Name()
	cleanup := func() { _ = os.Remove(name) }

	enc := yaml.NewEncoder(f)
	if err := enc.Encode(m); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write job manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("finalize job manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close job manifest: %w", err)
	}
	return name, cleanup, nil
}

// lastLine keeps failure reasons short: generator tools tend to print the
// decisive message last.
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed
		}
	}
	return s
}

// LoadJobManifest reads a job manifest file. Generator implementations use
// this to recover the job parameters from the --job flag.
func LoadJobManifest(path string) (*JobManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("job manifest not found: %s", path)
		}
		return nil, fmt.Errorf("read job manifest: %w", err)
	}
	var m JobManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse job manifest: %w", err)
	}
	if m.Name == "" || m.Version == "" {
		return nil, fmt.Errorf("job manifest missing name or version")
	}
	m.OutDir = filepath.Clean(m.OutDir)
	return &m, nil
}
