// Package dataset walks a labeled document dataset, converting its schema
// and label files and copying the documents, from any source store to any
// target store.
package dataset

import (
	"context"
	"fmt"
	"strings"
)

// Source lists and reads the files of one dataset.
type Source interface {
	// List returns the names of every file in the dataset, using forward
	// slashes regardless of the backing store.
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
}

// Sink writes converted dataset files.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) error
}

// Well-known dataset file names.
const (
	FieldsFile     = "fields.json"
	AnalyzerFile   = "analyzer.json"
	ValidationFile = "validation.txt"

	labelSuffix  = ".labels.json"
	ocrSuffix    = ".ocr.json"
	resultSuffix = ".result.json"
)

// IsLabelFile reports whether name is a per-document label file.
func IsLabelFile(name string) bool {
	return strings.HasSuffix(name, labelSuffix)
}

// IsOCRFile reports whether name is a DI OCR sidecar. These are never
// copied; layout results are regenerated against the target service instead.
func IsOCRFile(name string) bool {
	return strings.HasSuffix(name, ocrSuffix)
}

// ResultFileFor returns the layout result name for a document.
func ResultFileFor(docName string) string {
	return docName + resultSuffix
}

// RecordError is one failed dataset record. Record failures are collected,
// not fatal: the rest of the dataset still converts.
type RecordError struct {
	Name string
	Err  error
}

func (e *RecordError) Error() string { return fmt.Sprintf("%s: %v", e.Name, e.Err) }

func (e *RecordError) Unwrap() error { return e.Err }

// Summary reports what one conversion run did.
type Summary struct {
	AnalyzerID string

	// Converted counts label files successfully rewritten.
	Converted int

	// Documents lists the document files copied to the target, in the
	// order encountered. Layout regeneration runs over this list.
	Documents []string

	// Skipped lists files that were neither converted nor copied.
	Skipped []string

	// Failed collects per-record conversion failures.
	Failed []*RecordError
}

// Ok reports whether every record converted cleanly.
func (s *Summary) Ok() bool { return len(s.Failed) == 0 }
