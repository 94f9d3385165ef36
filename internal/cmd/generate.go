package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/docshed/internal/config"
	"github.com/3leaps/docshed/internal/observability"
	"github.com/3leaps/docshed/pkg/jobqueue"
	"github.com/3leaps/docshed/pkg/resolve"
)

var (
	generateForce  bool
	generateNoWait bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <package[@specifier]>",
	Short: "Generate documentation for a package version",
	Long: `Resolve a package reference and generate its documentation artifact,
reusing an existing artifact unless --force is given.

Example:
  docshed generate lodash@4.17.21
  docshed generate lodash@^4.17
  docshed generate @types/node --force
  docshed generate lodash@latest --no-wait`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().BoolVar(&generateForce, "force", false, "Regenerate even if the artifact exists")
	generateCmd.Flags().BoolVar(&generateNoWait, "no-wait", false, "Queue the job without waiting for completion")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	name, spec := splitPackageArg(args[0])
	if name == "" {
		return exitError(foundry.ExitInvalidArgument, "Invalid package reference",
			fmt.Errorf("cannot parse %q", args[0]))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, observability.CLILogger)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Failed to assemble service", err)
	}
	defer a.Close()

	out, err := a.resolver.Resolve(ctx, resolve.Request{Name: name, Spec: spec, Force: generateForce})
	if err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Resolution failed", err)
	}

	if out.Hit {
		observability.CLILogger.Info("Artifact already exists",
			zap.String("package", out.Package.Key()),
			zap.String("dir", out.ArtifactDir))
		return nil
	}

	record, created, err := a.queue.Submit(jobqueue.Submission{
		Name:     out.Package.Name,
		Version:  out.Package.Version,
		Manifest: out.Package.Manifest,
	})
	if err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Submission failed", err)
	}

	observability.CLILogger.Info("Generation queued",
		zap.String("job_id", record.ID),
		zap.Bool("created", created))

	if generateNoWait {
		fmt.Println(record.ID)
		return nil
	}

	final, err := a.queue.Wait(ctx, record.ID)
	if err != nil {
		return exitError(foundry.ExitSignalInt, "Interrupted while waiting", err)
	}
	if final.State == jobqueue.StateFailed {
		return exitError(foundry.ExitExternalServiceUnavailable, "Generation failed",
			fmt.Errorf("%s", final.FailureReason))
	}

	observability.CLILogger.Info("Generation complete",
		zap.String("package", out.Package.Key()),
		zap.String("dir", out.ArtifactDir))
	return nil
}

// splitPackageArg splits "name[@spec]" the same way the HTTP path parser
// does, defaulting the specifier to latest.
func splitPackageArg(arg string) (string, string) {
	arg = strings.TrimSpace(arg)
	if arg == "" || arg == "@" {
		return "", ""
	}
	i := strings.LastIndex(arg, "@")
	if i <= 0 {
		return arg, "latest"
	}
	name, spec := arg[:i], arg[i+1:]
	if spec == "" {
		spec = "latest"
	}
	return name, spec
}
