package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/company-sift/internal/domain"
	"github.com/sells-group/company-sift/internal/filter"
	"github.com/sells-group/company-sift/internal/store"
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Inspect learned domain frequencies",
	Long:  "Reports on the domain frequency state persisted by process runs, which drives dynamic aggregator detection.",
}

var domainsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show tracker totals and detected aggregators",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		f, err := loadFilterState(ctx, st)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, f.Report())
	},
}

var domainsSuspectedCmd = &cobra.Command{
	Use:   "suspected",
	Short: "List domains approaching the aggregator threshold",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		f, err := loadFilterState(ctx, st)
		if err != nil {
			return err
		}
		minSuspicion := cfg.Filtering.MinSuspicion
		if cmd.Flags().Changed("min") {
			minSuspicion, _ = cmd.Flags().GetFloat64("min")
		}
		suspects := f.SuspectedAggregators(minSuspicion)
		if len(suspects) == 0 {
			fmt.Fprintln(os.Stderr, "No suspected aggregators.")
			return nil
		}
		formatSuspects(os.Stdout, suspects)
		return nil
	},
}

var domainsStatsCmd = &cobra.Command{
	Use:   "stats <domain>",
	Short: "Show frequency statistics for one domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		state, err := st.LoadDomainState(ctx)
		if err != nil {
			return eris.Wrap(err, "domains stats")
		}
		tr := filter.NewTracker()
		tr.Restore(*state)
		return writeJSON(os.Stdout, tr.DomainStats(domain.Host(args[0])))
	},
}

var domainsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget all learned domain frequencies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.ClearDomainState(ctx); err != nil {
			return eris.Wrap(err, "domains reset")
		}
		fmt.Fprintln(os.Stdout, "Domain frequency state cleared.")
		return nil
	},
}

func init() {
	domainsSuspectedCmd.Flags().Float64("min", filter.DefaultMinSuspicion, "minimum frequency to report (overrides config)")

	domainsCmd.AddCommand(domainsSummaryCmd)
	domainsCmd.AddCommand(domainsSuspectedCmd)
	domainsCmd.AddCommand(domainsStatsCmd)
	domainsCmd.AddCommand(domainsResetCmd)
	rootCmd.AddCommand(domainsCmd)
}

// loadFilterState builds the configured filter and restores the persisted
// tracker state into it.
func loadFilterState(ctx context.Context, st store.Store) (*filter.EnhancedFilter, error) {
	f, err := initFilter(cfg)
	if err != nil {
		return nil, err
	}
	state, err := st.LoadDomainState(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "load domain state")
	}
	f.Restore(*state)
	return f, nil
}

func formatSuspects(out io.Writer, suspects []filter.SuspectedAggregator) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DOMAIN\tCOUNT\tFREQUENCY\tCOMPANIES")
	for _, s := range suspects {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%d\n", s.Domain, s.Count, s.Frequency*100, len(s.Companies))
	}
	_ = w.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
