package main

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rg/sedbot/internal/config"
	"github.com/rg/sedbot/internal/storage"
)

func newRunsCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
		window time.Duration
	)

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recent dispatch runs from the journal, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			if window <= 0 {
				return fmt.Errorf("--window must be positive, got %s", window)
			}

			store, err := storage.NewStorage(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			var runs []*storage.Run
			if len(args) == 1 {
				run, err := store.GetRun(args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run not found: %s", args[0])
				}
				runs = append(runs, run)
			} else {
				runs, err = store.RecentRuns(limit)
				if err != nil {
					return err
				}
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Run ID", "Started", "Duration", "Status", "Error"})
			table.SetAutoWrapText(false)
			table.SetAutoFormatHeaders(true)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetCenterSeparator("")
			table.SetColumnSeparator("")
			table.SetRowSeparator("")
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetTablePadding("\t")

			for _, run := range runs {
				table.Append([]string{
					run.ID,
					run.StartedAt.Local().Format(time.DateTime),
					formatDuration(run),
					string(run.Status),
					run.Error,
				})
			}
			table.Render()

			failures, err := store.CountFailuresSince(time.Now().Add(-window))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d run(s), %d failure(s) in the last %s\n", len(runs), failures, window)
			return err
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", config.Default().Storage.DBPath, "Run journal database path.")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list.")
	cmd.Flags().DurationVar(&window, "window", time.Hour, "Window for the recent failure count.")

	return cmd
}

func formatDuration(run *storage.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.Duration().Round(time.Second).String()
}
