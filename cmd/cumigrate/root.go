package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/noumanmanan-msft/cumigrate/internal/config"
	"github.com/noumanmanan-msft/cumigrate/internal/cu"
	"github.com/noumanmanan-msft/cumigrate/internal/output"
	"github.com/noumanmanan-msft/cumigrate/version"
)

var (
	cfgFile      string
	outputFormat string
	verbose      bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cumigrate",
	Short: "Migrate Document Intelligence datasets and analyzers to Content Understanding",
	Long: `cumigrate moves labeled Document Intelligence datasets to the Azure AI
Content Understanding service.

It converts fields.json and labels.json files into the Content Understanding
schema and label formats, copies documents, regenerates layout results,
manages analyzers built from the converted datasets, and runs analysis
against them.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.cumigrate/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		output.SetFormat(outputFormat)

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		var err error
		cfg, err = config.Load(cfgFile)
		return err
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(analyzerCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// newCUClient builds a service client from the loaded config, validating
// that the service settings are present.
func newCUClient() (*cu.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cu.NewClient(cu.Config{
		Endpoint:        cfg.Endpoint,
		APIVersion:      cfg.APIVersion,
		SubscriptionKey: cfg.SubscriptionKey,
		UserAgent:       cfg.UserAgent,
		PollInterval:    cfg.Poll.Interval(),
		PollMaxAttempts: cfg.Poll.MaxAttempts,
		Logger:          logger,
	})
}
