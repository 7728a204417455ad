// Package ocr regenerates layout results for migrated documents. DI OCR
// sidecars are not portable, so a temporary fieldless analyzer runs each
// document through the target service's layout pipeline instead.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/noumanmanan-msft/cumigrate/internal/cu"
	"github.com/noumanmanan-msft/cumigrate/internal/dataset"
)

// Runner analyzes documents with a throwaway fieldless analyzer and writes
// each result next to the document as {name}.result.json.
type Runner struct {
	Client *cu.Client
	Source dataset.Source
	Sink   dataset.Sink
	Logger *slog.Logger
}

// Summary reports what one layout run did.
type Summary struct {
	AnalyzerID string
	Processed  int
	Failed     []*dataset.RecordError
}

// Ok reports whether every document produced a layout result.
func (s *Summary) Ok() bool { return len(s.Failed) == 0 }

// Run creates the temporary analyzer, processes every document, and deletes
// the analyzer again. Per-document failures are collected; only analyzer
// lifecycle problems abort the run.
func (r *Runner) Run(ctx context.Context, documents []string) (*Summary, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	summary := &Summary{}
	if len(documents) == 0 {
		return summary, nil
	}

	analyzerID := "layout-" + uuid.NewString()
	summary.AnalyzerID = analyzerID
	logger.Info("creating temporary layout analyzer", "analyzer_id", analyzerID)
	if err := r.Client.CreateAnalyzer(ctx, layoutAnalyzer(analyzerID), nil); err != nil {
		return nil, fmt.Errorf("failed to create layout analyzer: %w", err)
	}
	defer func() {
		// Best effort; a leaked analyzer is harmless but noisy.
		if err := r.Client.DeleteAnalyzer(context.WithoutCancel(ctx), analyzerID); err != nil {
			logger.Warn("failed to delete layout analyzer", "analyzer_id", analyzerID, "error", err)
		}
	}()

	for _, doc := range documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.process(ctx, analyzerID, doc); err != nil {
			logger.Warn("layout run failed", "document", doc, "error", err)
			summary.Failed = append(summary.Failed, &dataset.RecordError{Name: doc, Err: err})
			continue
		}
		summary.Processed++
	}

	logger.Info("layout results regenerated",
		"documents", summary.Processed, "failed", len(summary.Failed))
	return summary, nil
}

func (r *Runner) process(ctx context.Context, analyzerID, doc string) error {
	data, err := r.Source.Read(ctx, doc)
	if err != nil {
		return err
	}
	if err := checkDocument(doc, data); err != nil {
		return err
	}

	result, err := r.Client.AnalyzeData(ctx, analyzerID, data, cu.ContentTypeForFile(doc))
	if err != nil {
		return err
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, result, "", "    "); err != nil {
		return fmt.Errorf("malformed layout result: %w", err)
	}
	return r.Sink.Write(ctx, dataset.ResultFileFor(doc), indented.Bytes())
}

// checkDocument rejects obviously broken inputs before they cost a service
// round trip. PDFs must parse and contain at least one page.
func checkDocument(name string, data []byte) error {
	if !cu.IsSupportedFileType(name) {
		return fmt.Errorf("unsupported file type %q", filepath.Ext(name))
	}
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		pages, err := pdfapi.PageCount(bytes.NewReader(data), nil)
		if err != nil {
			return fmt.Errorf("unreadable PDF: %w", err)
		}
		if pages == 0 {
			return fmt.Errorf("PDF has no pages")
		}
	}
	return nil
}

// layoutAnalyzer is the fieldless analyzer definition used for layout runs:
// OCR and layout on, extraction schema empty.
func layoutAnalyzer(analyzerID string) *cu.Analyzer {
	return &cu.Analyzer{
		AnalyzerID:     analyzerID,
		Description:    "Temporary analyzer for layout results",
		BaseAnalyzerID: cu.PrebuiltDocumentAnalyzerID,
		Config: &cu.AnalyzerConfig{
			ReturnDetails:           true,
			EnableOcr:               cu.BoolPtr(true),
			EnableLayout:            true,
			DisableContentFiltering: cu.BoolPtr(false),
		},
		FieldSchema:        &cu.FieldSchema{},
		Warnings:           []any{},
		Status:             "ready",
		ProcessingLocation: "geography",
		Mode:               "standard",
	}
}
