package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/spf13/cobra"

	"github.com/noumanmanan-msft/cumigrate/internal/cu"
	"github.com/noumanmanan-msft/cumigrate/internal/output"
)

var analyzerCmd = &cobra.Command{
	Use:   "analyzer",
	Short: "Manage Content Understanding analyzers",
}

var createFlags struct {
	analyzerSASURL     string
	analyzerJSONPath   string
	targetContainerSAS string
	targetBlobFolder   string
}

var analyzerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an analyzer from a converted analyzer.json",
	Long: `Create loads an analyzer.json produced by the convert command, points its
training data at the converted dataset in the target container, and builds
the analyzer, waiting for the operation to finish.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := loadAnalyzerJSON(cmd.Context())
		if err != nil {
			return err
		}
		var analyzer cu.Analyzer
		if err := json.Unmarshal(data, &analyzer); err != nil {
			return fmt.Errorf("invalid analyzer.json: %w", err)
		}

		client, err := newCUClient()
		if err != nil {
			return err
		}
		training := cu.NewTrainingData(createFlags.targetContainerSAS, createFlags.targetBlobFolder)
		if err := client.CreateAnalyzer(cmd.Context(), &analyzer, training); err != nil {
			return serviceErrHint(err)
		}
		fmt.Printf("Created analyzer %s\n", analyzer.AnalyzerID)
		return nil
	},
}

// loadAnalyzerJSON reads the analyzer definition from a blob SAS URL or a
// local file, whichever was given.
func loadAnalyzerJSON(ctx context.Context) ([]byte, error) {
	switch {
	case createFlags.analyzerSASURL != "" && createFlags.analyzerJSONPath != "":
		return nil, errors.New("specify either --analyzer-sas-url or --analyzer-json, not both")
	case createFlags.analyzerSASURL != "":
		client, err := blob.NewClientWithNoCredential(createFlags.analyzerSASURL, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid analyzer SAS URL: %w", err)
		}
		resp, err := client.DownloadStream(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to download analyzer.json: %w", err)
		}
		defer resp.Body.Close()
		return io.ReadAll(resp.Body)
	case createFlags.analyzerJSONPath != "":
		return os.ReadFile(createFlags.analyzerJSONPath)
	default:
		return nil, errors.New("an analyzer definition is required: --analyzer-sas-url or --analyzer-json")
	}
}

var analyzerGetCmd = &cobra.Command{
	Use:   "get <analyzer-id>",
	Short: "Show an analyzer's definition and status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newCUClient()
		if err != nil {
			return err
		}
		raw, err := client.GetAnalyzer(cmd.Context(), args[0])
		if err != nil {
			return serviceErrHint(err)
		}
		var analyzer map[string]any
		if err := json.Unmarshal(raw, &analyzer); err != nil {
			return fmt.Errorf("failed to decode analyzer: %w", err)
		}
		return output.Print(analyzer)
	},
}

var analyzerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the analyzers on the resource",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newCUClient()
		if err != nil {
			return err
		}
		analyzers, err := client.ListAnalyzers(cmd.Context())
		if err != nil {
			return serviceErrHint(err)
		}
		return output.Print(analyzers)
	},
}

var analyzerDeleteCmd = &cobra.Command{
	Use:   "delete <analyzer-id>",
	Short: "Delete an analyzer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newCUClient()
		if err != nil {
			return err
		}
		if err := client.DeleteAnalyzer(cmd.Context(), args[0]); err != nil {
			return serviceErrHint(err)
		}
		fmt.Printf("Deleted analyzer %s\n", args[0])
		return nil
	},
}

// serviceErrHint appends the per-status guidance to service errors so CLI
// users see the likely cause next to the failure.
func serviceErrHint(err error) error {
	var se *cu.ServiceError
	if errors.As(err, &se) && se.Guidance() != "" {
		return fmt.Errorf("%w\n  hint: %s", err, se.Guidance())
	}
	return err
}

func init() {
	f := analyzerCreateCmd.Flags()
	f.StringVar(&createFlags.analyzerSASURL, "analyzer-sas-url", "", "SAS URL of the converted analyzer.json blob")
	f.StringVar(&createFlags.analyzerJSONPath, "analyzer-json", "", "local path to the converted analyzer.json")
	f.StringVar(&createFlags.targetContainerSAS, "target-container-sas-url", "", "SAS URL of the container holding the converted dataset (required)")
	f.StringVar(&createFlags.targetBlobFolder, "target-blob-folder", "", "dataset folder inside the target container (required)")
	_ = analyzerCreateCmd.MarkFlagRequired("target-container-sas-url")
	_ = analyzerCreateCmd.MarkFlagRequired("target-blob-folder")

	analyzerCmd.AddCommand(analyzerCreateCmd)
	analyzerCmd.AddCommand(analyzerGetCmd)
	analyzerCmd.AddCommand(analyzerListCmd)
	analyzerCmd.AddCommand(analyzerDeleteCmd)
}
