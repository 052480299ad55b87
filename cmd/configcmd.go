package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/company-sift/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeConfigYAML(os.Stdout, redact(*cfg))
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for errors",
	RunE: func(cmd *cobra.Command, _ []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		if err := cfg.Validate(mode); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "Configuration is valid.")
		return nil
	},
}

var configExampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print an example config.yaml with the built-in defaults",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeConfigYAML(os.Stdout, *config.Default())
	},
}

func init() {
	configValidateCmd.Flags().String("mode", "process", "what to validate for: process or offline")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configExampleCmd)
	rootCmd.AddCommand(configCmd)
}

func writeConfigYAML(out io.Writer, c config.Config) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return eris.Wrap(err, "config: encode yaml")
	}
	return eris.Wrap(enc.Close(), "config: flush yaml")
}

// redact masks secrets, keeping the last four characters of the API key.
func redact(c config.Config) config.Config {
	if k := c.Search.APIKey; k != "" {
		if len(k) > 4 {
			c.Search.APIKey = strings.Repeat("*", len(k)-4) + k[len(k)-4:]
		} else {
			c.Search.APIKey = "****"
		}
	}
	if u := c.Store.DatabaseURL; strings.Contains(u, "@") {
		c.Store.DatabaseURL = "****" + u[strings.LastIndex(u, "@"):]
	}
	return c
}
