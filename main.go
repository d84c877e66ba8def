// Command oci-exadata-inventory collects Exadata Cloud@Customer inventory
// across an OCI tenancy and writes a hierarchical JSON report.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "oci-exadata-inventory",
	Short: "Collect Exadata infrastructure inventory from an OCI tenancy",
	Long: `oci-exadata-inventory scans every accessible compartment of an OCI
tenancy, enumerates the Exadata infrastructures and their VM clusters, and
writes a hierarchical JSON report with capacity and patch details.

Authentication uses the standard OCI configuration file (~/.oci/config by
default). Settings may come from oci-exadata-inventory.yaml; command line
flags override the file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}
		mergeFlags(cmd, cfg)

		if err := validateConfig(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		level, err := ParseLogLevel(cfg.General.LogLevel)
		if err != nil {
			return err
		}
		logger = NewLogger(level)

		return run(cfg)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringP("profile", "p", "", "OCI config profile to use")
	flags.String("config-file", "", "path to the OCI config file")
	flags.StringP("output", "o", "", "JSON report file path")
	flags.StringP("log-level", "l", "", "log level: silent, normal, verbose, debug")
	flags.IntP("timeout", "t", 0, "overall timeout in seconds")
	flags.Int("max-workers", 0, "concurrent compartment scans")
	flags.Bool("no-progress", false, "disable the progress bar")
	flags.String("compartments", "", "comma-separated compartment names or OCIDs to include")
	flags.String("exclude-compartments", "", "comma-separated compartment names or OCIDs to exclude")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "generate-config",
		Short: "Write a default configuration file to the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := "oci-exadata-inventory.yaml"
			if err := GenerateDefaultConfigFile(filename); err != nil {
				return err
			}
			fmt.Printf("Configuration written to %s\n", filename)
			return nil
		},
	})
}

// mergeFlags applies explicitly set command line flags over the loaded
// configuration.
func mergeFlags(cmd *cobra.Command, cfg *AppConfig) {
	flags := cmd.Flags()

	if flags.Changed("profile") {
		cfg.Auth.Profile, _ = flags.GetString("profile")
	}
	if flags.Changed("config-file") {
		cfg.Auth.ConfigFile, _ = flags.GetString("config-file")
	}
	if flags.Changed("output") {
		cfg.Output.File, _ = flags.GetString("output")
	}
	if flags.Changed("log-level") {
		cfg.General.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("timeout") {
		cfg.General.Timeout, _ = flags.GetInt("timeout")
	}
	if flags.Changed("max-workers") {
		cfg.General.MaxWorkers, _ = flags.GetInt("max-workers")
	}
	if flags.Changed("no-progress") {
		noProgress, _ := flags.GetBool("no-progress")
		cfg.General.Progress = !noProgress
	}
	if flags.Changed("compartments") {
		list, _ := flags.GetString("compartments")
		cfg.Filters.IncludeCompartments = ParseCompartmentList(list)
	}
	if flags.Changed("exclude-compartments") {
		list, _ := flags.GetString("exclude-compartments")
		cfg.Filters.ExcludeCompartments = ParseCompartmentList(list)
	}
}

func run(cfg *AppConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.General.Timeout)*time.Second)
	defer cancel()

	clients, err := initClients(ctx, cfg.Auth)
	if err != nil {
		return err
	}
	logger.Verbose("Authenticated against tenancy %s", clients.TenancyID)

	var observer ProgressObserver
	var bar *barObserver
	if cfg.General.Progress && logger.GetLevel() != LogLevelSilent {
		bar = newBarObserver()
		observer = bar
	} else {
		observer = loggerObserver{}
	}

	aggregator := NewAggregator(clients, cfg.General.MaxWorkers, observer, cfg.Filters)
	report, totals, err := aggregator.Run(ctx)
	if bar != nil {
		bar.Stop()
	}
	if err != nil {
		return err
	}

	if logger.GetLevel() != LogLevelSilent {
		renderReport(os.Stdout, report, totals)
	}

	return writeReportFile(report, cfg.Output.File)
}

// errorChain flattens an error's wrap chain, outermost first.
func errorChain(err error) []string {
	var chain []string
	for ; err != nil; err = errors.Unwrap(err) {
		chain = append(chain, err.Error())
	}
	return chain
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, cause := range errorChain(err)[1:] {
			logger.Debug("caused by: %s", cause)
		}
		os.Exit(1)
	}
}
