package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/eventboard/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an EventBoard configuration file without starting the server.

The YAML is parsed, environment variables are expanded and every field is
validated.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  eventboard validate -c eventboard.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	categories := make([]string, len(cfg.Events))
	for i, ev := range cfg.Events {
		categories[i] = ev.Category
	}

	interval := cfg.PollInterval.Duration()
	perHour := int64(time.Hour/interval) * int64(1+len(cfg.Events))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:          %d\n", cfg.Port)
	fmt.Fprintf(out, "  Poll interval: %s\n", interval)
	fmt.Fprintf(out, "  Event index:   0-%d\n", cfg.MaxIndex-1)
	fmt.Fprintf(out, "  Stats:         %s\n", cfg.Stats.URL)
	fmt.Fprintf(out, "  Categories:    %s\n", strings.Join(categories, ", "))
	fmt.Fprintf(out, "  Requests/hour: %s\n", humanize.Comma(perHour))

	return nil
}
