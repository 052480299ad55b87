package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/company-sift/internal/model"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or reset batch checkpoints",
}

var checkpointStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show processing progress and the resume position",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.ProcessingStats(ctx)
		if err != nil {
			return eris.Wrap(err, "checkpoint status")
		}
		pos, err := st.ResumePosition(ctx)
		if err != nil {
			return eris.Wrap(err, "checkpoint status")
		}

		formatCheckpointStatus(os.Stdout, stats, pos)

		if verbose, _ := cmd.Flags().GetBool("list"); verbose {
			cps, err := st.ListCheckpoints(ctx)
			if err != nil {
				return eris.Wrap(err, "checkpoint list")
			}
			formatCheckpoints(os.Stdout, cps)
		}
		return nil
	},
}

var checkpointResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all checkpoints so the next run starts from the beginning",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.ClearCheckpoints(ctx); err != nil {
			return eris.Wrap(err, "checkpoint reset")
		}
		if withDomains, _ := cmd.Flags().GetBool("domains"); withDomains {
			if err := st.ClearDomainState(ctx); err != nil {
				return eris.Wrap(err, "checkpoint reset")
			}
		}
		fmt.Fprintln(os.Stdout, "Checkpoints cleared.")
		return nil
	},
}

func init() {
	checkpointStatusCmd.Flags().Bool("list", false, "also list every checkpoint")
	checkpointResetCmd.Flags().Bool("domains", false, "also clear learned domain frequencies")

	checkpointCmd.AddCommand(checkpointStatusCmd)
	checkpointCmd.AddCommand(checkpointResetCmd)
	rootCmd.AddCommand(checkpointCmd)
}

func formatCheckpointStatus(out io.Writer, stats model.ProcessingStats, pos model.ResumePosition) {
	_, _ = fmt.Fprintf(out, "Batches:        %d total, %d completed, %d failed\n", stats.TotalBatches, stats.CompletedBatches, stats.FailedBatches)
	_, _ = fmt.Fprintf(out, "Companies:      %d processed\n", stats.TotalCompanies)
	if stats.TotalBatches > 0 {
		rate := float64(stats.CompletedBatches) / float64(stats.TotalBatches) * 100
		_, _ = fmt.Fprintf(out, "Completion:     %.1f%%\n", rate)
	}
	if stats.LastCheckpoint != nil {
		_, _ = fmt.Fprintf(out, "Last update:    %s\n", stats.LastCheckpoint.Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintf(out, "Resume from:    batch %d (after %d companies)\n", pos.NextBatch, pos.CompaniesProcessed)
}

func formatCheckpoints(out io.Writer, cps []model.Checkpoint) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "BATCH\tCOMPANIES\tSTATUS\tSESSION\tCOMPLETED")
	for _, cp := range cps {
		session := cp.SessionID
		if len(session) > 8 {
			session = session[:8]
		}
		_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n",
			cp.BatchNumber, cp.CompaniesProcessed, cp.Status, session, cp.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	_ = w.Flush()
}
