package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/company-sift/internal/filter"
)

var blocklistCmd = &cobra.Command{
	Use:   "blocklist",
	Short: "Manage the aggregator domain blocklist file",
	Long:  "Edits the YAML blocklist named by filtering.blocklist_file. Its domains are blocked in addition to the built-in list and filtering.blocklist.",
}

var blocklistAddCmd = &cobra.Command{
	Use:   "add <domain>...",
	Short: "Add domains to the blocklist file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Filtering.BlocklistFile
		added, err := blocklistAdd(path, args)
		if err != nil {
			return err
		}
		zap.L().Info("blocklist: domains added", zap.String("file", path), zap.Strings("domains", added))
		fmt.Fprintf(os.Stdout, "Added %d domain(s) to %s\n", len(added), path)
		return nil
	},
}

var blocklistRemoveCmd = &cobra.Command{
	Use:   "remove <domain>...",
	Short: "Remove domains from the blocklist file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Filtering.BlocklistFile
		removed, err := blocklistRemove(path, args)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Removed %d domain(s) from %s\n", len(removed), path)
		return nil
	},
}

var blocklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blocked domains",
	RunE: func(cmd *cobra.Command, _ []string) error {
		all, _ := cmd.Flags().GetBool("all")
		return blocklistList(os.Stdout, cfg.Filtering.Blocklist, cfg.Filtering.BlocklistFile, all)
	},
}

var blocklistClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every domain from the blocklist file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := cfg.Filtering.BlocklistFile
		if err := filter.SaveBlocklistFile(path, nil); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Cleared %s\n", path)
		return nil
	},
}

func init() {
	blocklistListCmd.Flags().Bool("all", false, "include built-in and configured domains")

	blocklistCmd.AddCommand(blocklistAddCmd)
	blocklistCmd.AddCommand(blocklistRemoveCmd)
	blocklistCmd.AddCommand(blocklistListCmd)
	blocklistCmd.AddCommand(blocklistClearCmd)
	rootCmd.AddCommand(blocklistCmd)
}

// blocklistAdd stores domains in the file at path and returns the ones that
// were not already present.
func blocklistAdd(path string, domains []string) ([]string, error) {
	current, err := filter.LoadBlocklistFile(path)
	if err != nil {
		return nil, err
	}
	existing := filter.NewBlocklist(current).Domains()

	var added []string
	for _, d := range filter.NewBlocklist(domains).Domains() {
		if !slices.Contains(existing, d) {
			added = append(added, d)
		}
	}
	if err := filter.SaveBlocklistFile(path, append(current, added...)); err != nil {
		return nil, err
	}
	return added, nil
}

// blocklistRemove drops domains from the file at path and returns the ones
// that were present.
func blocklistRemove(path string, domains []string) ([]string, error) {
	current, err := filter.LoadBlocklistFile(path)
	if err != nil {
		return nil, err
	}
	drop := filter.NewBlocklist(domains).Domains()

	var kept, removed []string
	for _, d := range current {
		if slices.Contains(drop, d) {
			removed = append(removed, d)
			continue
		}
		kept = append(kept, d)
	}
	if err := filter.SaveBlocklistFile(path, kept); err != nil {
		return nil, err
	}
	return removed, nil
}

func blocklistList(out io.Writer, configured []string, path string, all bool) error {
	var domains []string
	var err error
	if all {
		domains, err = filter.ResolveBlocklist(configured, path)
	} else {
		domains, err = filter.LoadBlocklistFile(path)
	}
	if err != nil {
		return err
	}
	domains = filter.NewBlocklist(domains).Domains()

	if len(domains) == 0 {
		_, _ = fmt.Fprintln(out, "No blocked domains.")
		return nil
	}
	for _, d := range domains {
		_, _ = fmt.Fprintln(out, d)
	}
	return nil
}
