package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/spf13/cobra"

	"github.com/noumanmanan-msft/cumigrate/internal/cu"
)

var analyzeFlags struct {
	analyzerID     string
	documentSASURL string
	outputJSON     string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [document]",
	Short: "Analyze a document with an analyzer and save the result",
	Long: `Analyze runs one document through an analyzer and writes the full result
document to a JSON file. The document is either a local file argument or a
blob reached through --document-sas-url.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, data, err := loadDocument(cmd.Context(), args)
		if err != nil {
			return err
		}
		if !cu.IsSupportedFileType(name) {
			return fmt.Errorf("unsupported file type %q", filepath.Ext(name))
		}

		client, err := newCUClient()
		if err != nil {
			return err
		}
		logger.Info("analyzing document", "document", name, "analyzer_id", analyzeFlags.analyzerID)
		result, err := client.AnalyzeData(cmd.Context(), analyzeFlags.analyzerID, data, cu.ContentTypeForFile(name))
		if err != nil {
			return serviceErrHint(err)
		}

		var indented bytes.Buffer
		if err := json.Indent(&indented, result, "", "    "); err != nil {
			return fmt.Errorf("malformed analyze result: %w", err)
		}
		if dir := filepath.Dir(analyzeFlags.outputJSON); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		if err := os.WriteFile(analyzeFlags.outputJSON, indented.Bytes(), 0o644); err != nil {
			return err
		}
		fmt.Printf("Analyze result saved to %s\n", analyzeFlags.outputJSON)
		return nil
	},
}

// loadDocument returns the document name and bytes from either the local
// file argument or the blob SAS URL flag.
func loadDocument(ctx context.Context, args []string) (string, []byte, error) {
	switch {
	case len(args) == 1 && analyzeFlags.documentSASURL != "":
		return "", nil, errors.New("specify either a local document or --document-sas-url, not both")
	case len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", nil, err
		}
		return filepath.Base(args[0]), data, nil
	case analyzeFlags.documentSASURL != "":
		parsed, err := url.Parse(analyzeFlags.documentSASURL)
		if err != nil {
			return "", nil, fmt.Errorf("invalid document SAS URL: %w", err)
		}
		client, err := blob.NewClientWithNoCredential(analyzeFlags.documentSASURL, nil)
		if err != nil {
			return "", nil, fmt.Errorf("invalid document SAS URL: %w", err)
		}
		resp, err := client.DownloadStream(ctx, nil)
		if err != nil {
			return "", nil, fmt.Errorf("failed to download document: %w", err)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", nil, err
		}
		return path.Base(parsed.Path), data, nil
	default:
		return "", nil, errors.New("a document is required: pass a local file or --document-sas-url")
	}
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.analyzerID, "analyzer-id", "", "analyzer to run (required)")
	f.StringVar(&analyzeFlags.documentSASURL, "document-sas-url", "", "SAS URL of the document blob to analyze")
	f.StringVar(&analyzeFlags.outputJSON, "output-json", "./sample_documents/analyzer_result.json", "where to write the analyze result")
	_ = analyzeCmd.MarkFlagRequired("analyzer-id")
}
