package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noumanmanan-msft/cumigrate/internal/dataset"
	"github.com/noumanmanan-msft/cumigrate/internal/mapper"
	"github.com/noumanmanan-msft/cumigrate/internal/ocr"
	"github.com/noumanmanan-msft/cumigrate/internal/output"
)

var convertFlags struct {
	diVersion      string
	analyzerPrefix string

	sourceDir          string
	sourceContainerSAS string
	sourceBlobFolder   string

	targetDir          string
	targetContainerSAS string
	targetBlobFolder   string

	skipOCR bool
}

// convertReport is what the convert command prints.
type convertReport struct {
	AnalyzerID      string   `json:"analyzerId" yaml:"analyzer_id"`
	LabelsConverted int      `json:"labelsConverted" yaml:"labels_converted"`
	DocumentsCopied int      `json:"documentsCopied" yaml:"documents_copied"`
	LayoutResults   int      `json:"layoutResults" yaml:"layout_results"`
	Skipped         []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Failed          []string `json:"failed,omitempty" yaml:"failed,omitempty"`
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a Document Intelligence dataset to Content Understanding format",
	Long: `Convert reads a labeled Document Intelligence dataset, rewrites fields.json
into analyzer.json and every labels.json into the Content Understanding label
format, copies the documents, and regenerates layout results through the
service. Source and target are either local directories or blob container
folders reached through SAS URLs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dialect, err := mapper.ParseDialect(convertFlags.diVersion)
		if err != nil {
			return err
		}
		m, err := mapper.New(mapper.Options{
			Dialect:        dialect,
			AnalyzerPrefix: convertFlags.analyzerPrefix,
			APIVersion:     cfg.APIVersion,
			Logger:         logger,
		})
		if err != nil {
			return err
		}

		source, err := openSource(convertFlags.sourceDir, convertFlags.sourceContainerSAS, convertFlags.sourceBlobFolder)
		if err != nil {
			return err
		}
		sink, err := openSink(convertFlags.targetDir, convertFlags.targetContainerSAS, convertFlags.targetBlobFolder)
		if err != nil {
			return err
		}

		conv := &dataset.Converter{Mapper: m, Source: source, Sink: sink, Logger: logger}
		summary, err := conv.Run(cmd.Context())
		if err != nil {
			return err
		}

		report := convertReport{
			AnalyzerID:      summary.AnalyzerID,
			LabelsConverted: summary.Converted,
			DocumentsCopied: len(summary.Documents),
			Skipped:         summary.Skipped,
		}
		for _, f := range summary.Failed {
			report.Failed = append(report.Failed, f.Error())
		}

		if !convertFlags.skipOCR && len(summary.Documents) > 0 {
			client, err := newCUClient()
			if err != nil {
				return err
			}
			runner := &ocr.Runner{Client: client, Source: source, Sink: sink, Logger: logger}
			layout, err := runner.Run(cmd.Context(), summary.Documents)
			if err != nil {
				return err
			}
			report.LayoutResults = layout.Processed
			for _, f := range layout.Failed {
				report.Failed = append(report.Failed, f.Error())
			}
		}

		if err := output.Print(report); err != nil {
			return err
		}
		if len(report.Failed) > 0 {
			return fmt.Errorf("%d record(s) failed to convert", len(report.Failed))
		}
		return nil
	},
}

func init() {
	f := convertCmd.Flags()
	f.StringVar(&convertFlags.diVersion, "di-version", "", "DI dataset format: generative or neural (required)")
	f.StringVar(&convertFlags.analyzerPrefix, "analyzer-prefix", "", "analyzer ID prefix (required for neural)")
	f.StringVar(&convertFlags.sourceDir, "source-dir", "", "local source dataset directory")
	f.StringVar(&convertFlags.sourceContainerSAS, "source-container-sas-url", "", "SAS URL of the source blob container")
	f.StringVar(&convertFlags.sourceBlobFolder, "source-blob-folder", "", "dataset folder inside the source container")
	f.StringVar(&convertFlags.targetDir, "target-dir", "", "local target directory")
	f.StringVar(&convertFlags.targetContainerSAS, "target-container-sas-url", "", "SAS URL of the target blob container")
	f.StringVar(&convertFlags.targetBlobFolder, "target-blob-folder", "", "dataset folder inside the target container")
	f.BoolVar(&convertFlags.skipOCR, "skip-ocr", false, "do not regenerate layout results")
	_ = convertCmd.MarkFlagRequired("di-version")
}

// openSource resolves the source flags to a dataset source. Exactly one of
// the local and blob forms must be given.
func openSource(dir, sasURL, folder string) (dataset.Source, error) {
	switch {
	case dir != "" && sasURL != "":
		return nil, errors.New("specify either a local directory or a container SAS URL, not both")
	case dir != "":
		return dataset.NewDirSource(dir)
	case sasURL != "":
		return dataset.NewBlobStore(sasURL, folder)
	default:
		return nil, errors.New("a source is required: --source-dir or --source-container-sas-url")
	}
}

func openSink(dir, sasURL, folder string) (dataset.Sink, error) {
	switch {
	case dir != "" && sasURL != "":
		return nil, errors.New("specify either a local directory or a container SAS URL, not both")
	case dir != "":
		return dataset.NewDirSink(dir), nil
	case sasURL != "":
		return dataset.NewBlobStore(sasURL, folder)
	default:
		return nil, errors.New("a target is required: --target-dir or --target-container-sas-url")
	}
}
