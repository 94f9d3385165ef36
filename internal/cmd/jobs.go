package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/3leaps/docshed/internal/config"
	"github.com/3leaps/docshed/pkg/jobqueue"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect generation job records",
	Long: `Inspect the persistent records of generation jobs.

Job ids are stable ("{name}@{version}") and records live under the
configured queue directory, so the output is safe to parse and script
against.`,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List generation jobs",
	RunE:  runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job_id>",
	Short: "Show one job record",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)

	jobsListCmd.Flags().Bool("json", false, "Output as JSON")
	jobsShowCmd.Flags().Bool("json", false, "Output as JSON")
}

func jobsStore() (*jobqueue.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	return jobqueue.NewStore(cfg.Queue.Dir), nil
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := jobsStore()
	if err != nil {
		return err
	}

	jobs, err := store.List()
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to read job records", err)
	}
	if len(jobs) == 0 {
		_, _ = fmt.Fprintln(os.Stdout, "No jobs found")
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "JOB ID\tSTATE\tCREATED\tSTARTED\tENDED\tFAILURE")
	for _, j := range jobs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			j.ID,
			j.State,
			j.CreatedAt.Format(time.RFC3339),
			formatOptionalTime(j.StartedAt),
			formatOptionalTime(j.EndedAt),
			j.FailureReason)
	}
	return nil
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := jobsStore()
	if err != nil {
		return err
	}

	record, err := store.Get(args[0])
	if err != nil {
		if errors.Is(err, jobqueue.ErrJobNotFound) {
			return exitError(foundry.ExitFileNotFound, "Job not found", err)
		}
		return exitError(foundry.ExitFileReadError, "Failed to read job record", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}

	fmt.Printf("Job:      %s\n", record.ID)
	fmt.Printf("Package:  %s\n", record.Name)
	fmt.Printf("Version:  %s\n", record.Version)
	fmt.Printf("State:    %s\n", record.State)
	fmt.Printf("Run:      %s\n", record.RunID)
	fmt.Printf("Created:  %s\n", record.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Started:  %s\n", formatOptionalTime(record.StartedAt))
	fmt.Printf("Ended:    %s\n", formatOptionalTime(record.EndedAt))
	if record.FailureReason != "" {
		fmt.Printf("Failure:  %s\n", record.FailureReason)
	}
	return nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
