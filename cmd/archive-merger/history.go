package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"go-archive-merger/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [job-id]",
	Short: "Show jobs recorded in the journal",
	Long: `Without arguments lists the most recent journaled jobs.
With a job id prints that job and every log line it produced.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if cfg.DBPath == "" {
			return errors.New("--db-path is required")
		}

		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			rec, err := st.GetJob(ctx, args[0])
			if err != nil {
				return fmt.Errorf("job %s: %w", args[0], err)
			}
			fmt.Fprintf(out, "Job:     %s\nArchive: %s\nStatus:  %s\nCreated: %s\nUpdated: %s\n",
				rec.ID, rec.ArchiveName, rec.Status, rec.CreatedAt.Local().Format(time.DateTime), rec.UpdatedAt.Local().Format(time.DateTime))
			if rec.Error != "" {
				fmt.Fprintf(out, "Error:   %s\n", rec.Error)
			}

			messages, err := st.GetJobMessages(ctx, rec.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			for _, m := range messages {
				fmt.Fprintf(out, "[%s] %s\n", m.CreatedAt.Local().Format(time.TimeOnly), m.Message)
			}
			return nil
		}

		jobs, err := st.ListJobs(ctx, historyLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tARCHIVE\tSTATUS\tCREATED\tERROR")
		for _, j := range jobs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", j.ID, j.ArchiveName, j.Status, j.CreatedAt.Local().Format(time.DateTime), j.Error)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "Number of jobs listed (0 for all)")
}
