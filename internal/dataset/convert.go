package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/noumanmanan-msft/cumigrate/internal/cu"
	"github.com/noumanmanan-msft/cumigrate/internal/mapper"
)

// Converter rewrites one dataset from the DI layout to the CU layout.
type Converter struct {
	Mapper *mapper.Mapper
	Source Source
	Sink   Sink
	Logger *slog.Logger
}

// Run converts the dataset: fields.json becomes analyzer.json, each
// labels.json is rewritten, documents are copied, and OCR sidecars are
// dropped. A missing or unconvertible fields.json is fatal because every
// label conversion depends on the schema it yields; label failures are
// recorded per document and conversion continues.
func (c *Converter) Run(ctx context.Context) (*Summary, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	names, err := c.Source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dataset: %w", err)
	}
	sort.Strings(names)

	schema, err := c.convertSchema(ctx, names)
	if err != nil {
		return nil, err
	}
	summary := &Summary{AnalyzerID: schema.Analyzer.AnalyzerID}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch {
		case name == FieldsFile:
			// Already converted.

		case IsLabelFile(name):
			if err := c.convertLabels(ctx, name, schema); err != nil {
				logger.Warn("label conversion failed", "file", name, "error", err)
				summary.Failed = append(summary.Failed, &RecordError{Name: name, Err: err})
				continue
			}
			summary.Converted++

		case IsOCRFile(name), name == ValidationFile:
			logger.Debug("dropping DI sidecar", "file", name)
			summary.Skipped = append(summary.Skipped, name)

		case cu.IsSupportedFileType(name):
			if err := c.copy(ctx, name); err != nil {
				logger.Warn("document copy failed", "file", name, "error", err)
				summary.Failed = append(summary.Failed, &RecordError{Name: name, Err: err})
				continue
			}
			summary.Documents = append(summary.Documents, name)

		default:
			logger.Debug("skipping unrecognized file", "file", name)
			summary.Skipped = append(summary.Skipped, name)
		}
	}

	logger.Info("dataset converted",
		"analyzer_id", summary.AnalyzerID,
		"labels", summary.Converted,
		"documents", len(summary.Documents),
		"failed", len(summary.Failed))
	return summary, nil
}

func (c *Converter) convertSchema(ctx context.Context, names []string) (*mapper.Schema, error) {
	found := false
	for _, name := range names {
		if name == FieldsFile {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("dataset has no %s", FieldsFile)
	}

	data, err := c.Source.Read(ctx, FieldsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FieldsFile, err)
	}
	schema, err := c.Mapper.ConvertFields(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s: %w", FieldsFile, err)
	}

	analyzer, err := schema.MarshalAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", AnalyzerFile, err)
	}
	if err := c.Sink.Write(ctx, AnalyzerFile, analyzer); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", AnalyzerFile, err)
	}
	return schema, nil
}

func (c *Converter) convertLabels(ctx context.Context, name string, schema *mapper.Schema) error {
	data, err := c.Source.Read(ctx, name)
	if err != nil {
		return err
	}
	converted, err := c.Mapper.ConvertLabels(data, schema)
	if err != nil {
		return err
	}
	return c.Sink.Write(ctx, name, converted)
}

func (c *Converter) copy(ctx context.Context, name string) error {
	data, err := c.Source.Read(ctx, name)
	if err != nil {
		return err
	}
	return c.Sink.Write(ctx, name, data)
}
