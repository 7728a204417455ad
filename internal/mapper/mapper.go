// Package mapper translates Document Intelligence label datasets into the
// Content Understanding dataset format: fields.json becomes analyzer.json
// and per-document labels.json files are rewritten field by field.
package mapper

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/noumanmanan-msft/cumigrate/internal/cu"
)

// Dialect selects which DI schema variant a dataset uses.
type Dialect string

const (
	// DialectGenerative is the DI 4.0 preview Custom Document format
	// (fieldSchema keyed by field name, docType discriminator).
	DialectGenerative Dialect = "generative"

	// DialectNeural is the DI 3.1/4.0 GA Custom Neural format
	// (FOTT-style fields list plus definitions).
	DialectNeural Dialect = "neural"
)

// ParseDialect validates a dialect string from the CLI.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case DialectGenerative, DialectNeural:
		return Dialect(s), nil
	default:
		return "", fmt.Errorf("unknown DI version %q (expected generative or neural)", s)
	}
}

// MaxFieldCount is the service limit on fields per analyzer, counting table
// rows and columns the way the service does.
const MaxFieldCount = 100

// analyzerDescription seeds the converted schema's description field.
const analyzerDescription = "1. Define your schema by specifying the fields you want to extract from the input files. " +
	"Choose clear and simple `field names`. Use `field descriptions` to provide explanations, exceptions, " +
	"rules of thumb, and other details to clarify the desired behavior.\n\n" +
	"2. For each field, indicate the `value type` of the desired output. Besides basic types like strings, " +
	"dates, and numbers, you can define more complex structures such as `tables` (repeated items with subfields) " +
	"and `fixed tables` (groups of fields with common subfields)."

// SchemaError reports a dataset schema that cannot be converted. Records
// failing with a SchemaError are skipped, not fatal to a batch.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string { return e.Reason }

// Options configures a Mapper.
type Options struct {
	Dialect Dialect

	// AnalyzerPrefix seeds the derived analyzer ID. Required for the
	// neural dialect, optional for generative.
	AnalyzerPrefix string

	// APIVersion is used for the labels.json $schema URL.
	APIVersion string

	Logger *slog.Logger
}

// Mapper converts one dataset's schema and labels.
type Mapper struct {
	dialect    Dialect
	prefix     string
	apiVersion string
	logger     *slog.Logger
}

// New builds a Mapper for the given dialect.
func New(opts Options) (*Mapper, error) {
	if _, err := ParseDialect(string(opts.Dialect)); err != nil {
		return nil, err
	}
	if opts.Dialect == DialectNeural && opts.AnalyzerPrefix == "" {
		return nil, fmt.Errorf("analyzer prefix is required for the neural dialect")
	}
	if opts.APIVersion == "" {
		return nil, fmt.Errorf("api version is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{
		dialect:    opts.Dialect,
		prefix:     opts.AnalyzerPrefix,
		apiVersion: opts.APIVersion,
		logger:     logger,
	}, nil
}

// Schema is the converted dataset-wide schema plus the lookup state needed
// to convert each document's labels.
type Schema struct {
	Analyzer *cu.Analyzer

	// FieldTypes maps top-level field names to their converted types.
	FieldTypes map[string]string

	// ColumnTypes maps table name → column name → converted column type.
	ColumnTypes map[string]map[string]string

	// Removed lists signature field names dropped from the schema; their
	// labels are dropped as well.
	Removed []string
}

func (s *Schema) isRemoved(name string) bool {
	for _, r := range s.Removed {
		if r == name {
			return true
		}
	}
	return false
}

// MarshalAnalyzer renders the converted analyzer.json document.
func (s *Schema) MarshalAnalyzer() ([]byte, error) {
	return json.MarshalIndent(s.Analyzer, "", "    ")
}

// ConvertFields translates a DI fields.json document into the CU analyzer
// schema. The same fields.json applies to every document in a dataset, so
// this runs once per conversion.
func (m *Mapper) ConvertFields(data []byte) (*Schema, error) {
	switch m.dialect {
	case DialectNeural:
		return m.convertFieldsNeural(data)
	default:
		return m.convertFieldsGenerative(data)
	}
}

// ConvertLabels translates one document's DI labels.json into the CU label
// format, guided by the converted schema. The result is validated against
// the CU label schema before being returned.
func (m *Mapper) ConvertLabels(data []byte, schema *Schema) ([]byte, error) {
	var (
		labels map[string]any
		err    error
	)
	switch m.dialect {
	case DialectNeural:
		labels, err = m.convertLabelsNeural(data, schema)
	default:
		labels, err = m.convertLabelsGenerative(data, schema)
	}
	if err != nil {
		return nil, err
	}
	if err := validateLabelFile(labels); err != nil {
		return nil, err
	}
	return json.MarshalIndent(labels, "", "    ")
}

// labelSchemaURL is the $schema header for converted label files.
func (m *Mapper) labelSchemaURL() string {
	return fmt.Sprintf("https://schema.ai.azure.com/mmi/%s/labels.json", m.apiVersion)
}

// newAnalyzer builds the analyzer envelope shared by both dialects.
func (m *Mapper) newAnalyzer(analyzerID, schemaName string, warnings []any, status, templateID string) *cu.Analyzer {
	if warnings == nil {
		warnings = []any{}
	}
	if status == "" {
		status = "undefined"
	}
	if templateID == "" {
		templateID = "document-2024-12-01"
	}
	return &cu.Analyzer{
		AnalyzerID:     analyzerID,
		BaseAnalyzerID: cu.PrebuiltDocumentAnalyzerID,
		Config: &cu.AnalyzerConfig{
			ReturnDetails:                    true,
			EnableLayout:                     true,
			EnableBarcode:                    cu.BoolPtr(false),
			EnableFormula:                    false,
			EstimateFieldSourceAndConfidence: true,
		},
		FieldSchema: &cu.FieldSchema{
			Name:        schemaName,
			Description: analyzerDescription,
			Fields:      map[string]*cu.Field{},
			Definitions: map[string]*cu.Field{},
		},
		Warnings:   warnings,
		Status:     status,
		TemplateID: templateID,
	}
}

// addDefinition registers a fixed-table row definition, enforcing the name
// length limit on the derived key.
func addDefinition(defs map[string]*cu.Field, key string, def *cu.Field) error {
	if len(key) > cu.MaxFieldNameLength {
		return &SchemaError{Reason: fmt.Sprintf(
			"fixed table definition name %q is %d characters, exceeding the limit of %d; shorten the table or row name",
			key, len(key), cu.MaxFieldNameLength)}
	}
	defs[key] = def
	return nil
}
