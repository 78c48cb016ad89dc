// Command schedulerctl is the operator CLI for the scheduler: list
// enabled jobs, inspect, enable/disable, delete, and show execution
// history. Grounded on the teacher's cmd/cron_cmd.go command tree (cron
// list/delete/toggle), extended with show, history and a trigger command
// that only reports that manual triggering needs a running schedulerd.
// Jobs are not created here. Like the teacher's non-managed mode
// (cron_cmd.go's loadCronStore path), schedulerctl talks to the store
// directly rather than through a running daemon process — a running
// schedulerd picks up store changes the next time it re-arms a job
// (OnJob* calls) or at its next restart; a live push-reconcile channel
// between CLI and daemon is out of scope (see DESIGN.md).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cronforge/scheduler/internal/config"
	"github.com/cronforge/scheduler/internal/domain"
	"github.com/cronforge/scheduler/internal/store"
	"github.com/cronforge/scheduler/internal/store/pg"
)

func main() {
	root := &cobra.Command{
		Use:   "schedulerctl",
		Short: "Manage recurring HTTP-invoked jobs",
	}
	root.AddCommand(jobsCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage scheduled jobs",
	}
	cmd.AddCommand(jobsListCmd())
	cmd.AddCommand(jobsShowCmd())
	cmd.AddCommand(jobsDeleteCmd())
	cmd.AddCommand(jobsToggleCmd())
	cmd.AddCommand(jobsTriggerCmd())
	cmd.AddCommand(jobsHistoryCmd())
	return cmd
}

func jobsListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List enabled jobs",
		Run: func(cmd *cobra.Command, args []string) {
			st := openStore()
			jobs, err := st.ListEnabledJobs(context.Background())
			mustOK(err)
			if jsonOutput {
				printJSON(jobs)
				return
			}
			printJobTable(jobs)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func jobsShowCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show [jobId]",
		Short: "Show a single job",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			st := openStore()
			job, err := st.GetJob(context.Background(), args[0])
			mustOK(err)
			if jsonOutput {
				printJSON(job)
				return
			}
			printJobTable([]domain.Job{job})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func jobsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [jobId]",
		Short: "Delete a job",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			st := openStore()
			mustOK(st.DeleteJob(context.Background(), args[0]))
			fmt.Printf("Deleted job %s\n", args[0])
		},
	}
}

func jobsToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle [jobId] [true|false]",
		Short: "Enable or disable a job",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			enabled := args[1] == "true" || args[1] == "1" || args[1] == "on"
			st := openStore()
			ctx := context.Background()
			job, err := st.GetJob(ctx, args[0])
			mustOK(err)
			job.Enabled = enabled
			job.UpdatedAt = time.Now()
			mustOK(st.UpdateJob(ctx, job))
			fmt.Printf("Job %s enabled=%v\n", args[0], enabled)
		},
	}
}

func jobsTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger [jobId]",
		Short: "Manually trigger a job (not available from this CLI: prints an error and exits 1, since manual triggering needs a running schedulerd)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(os.Stderr, "Error: manual trigger requires a running schedulerd; this CLI binary only reads/writes the store directly.")
			os.Exit(1)
		},
	}
}

func jobsHistoryCmd() *cobra.Command {
	var limit int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "history [jobId]",
		Short: "Show recent executions for a job",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			st := openStore()
			execs, err := st.RecentExecutions(context.Background(), args[0], store.ClampRecentLimit(limit))
			mustOK(err)
			if jsonOutput {
				printJSON(execs)
				return
			}
			printExecutionTable(execs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max executions to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func openStore() store.ExecutionStore {
	cfg, err := config.Load()
	mustOK(err)
	db, err := pg.OpenDB(cfg.PostgresDSN)
	mustOK(err)
	return pg.NewStore(db)
}

func mustOK(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printJobTable(jobs []domain.Job) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCRON\tENABLED\tSTATUS\tNEXT FIRE")
	for _, j := range jobs {
		next := "-"
		if j.NextFireAt != nil {
			next = j.NextFireAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%s\n", j.ID, j.Name, j.CronExpression, j.Enabled, j.LifecycleStatus, next)
	}
	w.Flush()
}

func printExecutionTable(execs []domain.Execution) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tATTEMPT\tDURATION(ms)\tHTTP STATUS")
	for _, e := range execs {
		status := "-"
		if e.ResponseStatusCode != nil {
			status = fmt.Sprintf("%d", *e.ResponseStatusCode)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", e.ID, e.StartedAt.Format(time.RFC3339), e.Status, e.AttemptNumber, e.DurationMs, status)
	}
	w.Flush()
}
