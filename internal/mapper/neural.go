package mapper

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/noumanmanan-msft/cumigrate/internal/cu"
)

// neuralFields is the DI 3.1/4.0 GA Custom Neural (FOTT) fields.json shape:
// a flat field list plus a definitions table for rows and items.
type neuralFields struct {
	Fields      []neuralField           `json:"fields"`
	Definitions map[string]*neuralItems `json:"definitions"`
	Warnings    []any                   `json:"warnings"`
	Status      string                  `json:"status"`
	TemplateID  string                  `json:"templateId"`
}

type neuralField struct {
	FieldKey    string        `json:"fieldKey"`
	FieldType   string        `json:"fieldType"`
	FieldFormat string        `json:"fieldFormat"`
	ItemType    string        `json:"itemType"`
	Method      string        `json:"method"`
	Description string        `json:"description"`
	Fields      []neuralField `json:"fields"`
}

type neuralItems struct {
	FieldKey  string        `json:"fieldKey"`
	FieldType string        `json:"fieldType"`
	Method    string        `json:"method"`
	Fields    []neuralField `json:"fields"`
}

func (m *Mapper) convertFieldsNeural(data []byte) (*Schema, error) {
	var fields neuralFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("invalid JSON in fields.json: %w", err)
	}
	if len(fields.Fields) == 0 {
		return nil, &SchemaError{Reason: "fields.json must define at least one field"}
	}
	if err := validateNeuralFieldCount(&fields); err != nil {
		return nil, err
	}
	if err := cu.ValidateAnalyzerID(m.prefix); err != nil {
		return nil, err
	}

	analyzer := m.newAnalyzer(m.prefix, m.prefix, fields.Warnings, fields.Status, fields.TemplateID)
	schema := &Schema{
		Analyzer:    analyzer,
		FieldTypes:  map[string]string{},
		ColumnTypes: map[string]map[string]string{},
	}

	for _, field := range fields.Fields {
		if field.FieldType == fieldTypeSignature {
			schema.Removed = append(schema.Removed, field.FieldKey)
			m.logger.Warn("dropping signature field", "field", field.FieldKey)
			continue
		}
		if err := cu.ValidateFieldName(field.FieldKey); err != nil {
			return nil, err
		}

		var (
			converted *cu.Field
			err       error
		)
		switch field.FieldType {
		case "array":
			converted, err = m.convertNeuralArray(field, fields.Definitions, schema)
		case "object":
			converted, err = m.convertNeuralObject(field, fields.Definitions, schema)
		default:
			converted = &cu.Field{
				Type:        normalizeFieldType(field.FieldType),
				Method:      defaultString(field.Method, "extract"),
				Description: cu.StringPtr(field.Description),
			}
			if field.FieldFormat != "" && field.FieldFormat != "not-specified" {
				converted.Format = field.FieldFormat
			}
		}
		if err != nil {
			return nil, err
		}
		analyzer.FieldSchema.Fields[field.FieldKey] = converted
		schema.FieldTypes[field.FieldKey] = converted.Type
	}

	return schema, nil
}

// validateNeuralFieldCount applies the service's 100-field ceiling, counting
// dynamic tables as columns+1 and fixed tables as rows+columns+2.
func validateNeuralFieldCount(fields *neuralFields) error {
	count := 0
	for _, field := range fields.Fields {
		switch field.FieldType {
		case "array":
			if def, ok := fields.Definitions[field.ItemType]; ok {
				count += len(def.Fields) + 1
			}
		case "object":
			rows := len(field.Fields)
			cols := 0
			if rows > 0 {
				if def, ok := fields.Definitions[field.Fields[0].FieldType]; ok {
					cols = len(def.Fields)
				}
			}
			count += rows + cols + 2
		case fieldTypeSignature:
			// Dropped during conversion; does not count.
		default:
			count++
		}
	}
	if count > MaxFieldCount {
		return &SchemaError{Reason: fmt.Sprintf(
			"fields.json defines %d fields; the service supports at most %d", count, MaxFieldCount)}
	}
	return nil
}

// convertNeuralArray converts a dynamic table: the field's itemType names a
// definition whose fields become inline item properties.
func (m *Mapper) convertNeuralArray(field neuralField, definitions map[string]*neuralItems, schema *Schema) (*cu.Field, error) {
	itemDef, ok := definitions[field.ItemType]
	if !ok {
		return nil, &SchemaError{Reason: fmt.Sprintf(
			"dynamic table %q references missing definition %q", field.FieldKey, field.ItemType)}
	}

	items := &cu.Field{
		Type:       defaultString(itemDef.FieldType, "object"),
		Method:     defaultString(itemDef.Method, "extract"),
		Properties: map[string]*cu.Field{},
	}
	columns, err := m.convertNeuralColumns(field.FieldKey, itemDef.Fields, items.Properties, schema)
	if err != nil {
		return nil, err
	}
	schema.ColumnTypes[field.FieldKey] = columns

	return &cu.Field{
		Type:        "array",
		Method:      "generate",
		Description: cu.StringPtr(field.Description),
		Items:       items,
	}, nil
}

// convertNeuralObject converts a fixed table: the rows are the field's own
// subfields, each referencing a shared row definition derived from the first
// row's layout.
func (m *Mapper) convertNeuralObject(field neuralField, definitions map[string]*neuralItems, schema *Schema) (*cu.Field, error) {
	if len(field.Fields) == 0 {
		return nil, &SchemaError{Reason: fmt.Sprintf("fixed table %q has no rows", field.FieldKey)}
	}
	firstRow := field.Fields[0]
	rowDef, ok := definitions[firstRow.FieldType]
	if !ok {
		return nil, &SchemaError{Reason: fmt.Sprintf(
			"fixed table %q references missing definition %q", field.FieldKey, firstRow.FieldType)}
	}

	def := &cu.Field{Type: "object", Properties: map[string]*cu.Field{}}
	columns, err := m.convertNeuralColumns(field.FieldKey, rowDef.Fields, def.Properties, schema)
	if err != nil {
		return nil, err
	}
	schema.ColumnTypes[field.FieldKey] = columns

	defKey := field.FieldKey + "_" + firstRow.FieldKey
	if err := addDefinition(schema.Analyzer.FieldSchema.Definitions, defKey, def); err != nil {
		return nil, err
	}

	out := &cu.Field{
		Type:        "object",
		Method:      "generate",
		Description: cu.StringPtr(field.Description),
		Properties:  map[string]*cu.Field{},
	}
	for _, row := range field.Fields {
		out.Properties[row.FieldKey] = &cu.Field{Ref: "#/$defs/" + defKey}
	}
	return out, nil
}

// convertNeuralColumns converts a definition's column list into CU
// properties, recording the converted column types for label conversion.
// Signature columns are dropped and remembered so their labels are skipped.
func (m *Mapper) convertNeuralColumns(tableName string, columns []neuralField, out map[string]*cu.Field, schema *Schema) (map[string]string, error) {
	types := map[string]string{}
	for _, column := range columns {
		if column.FieldType == fieldTypeSignature {
			schema.Removed = append(schema.Removed, tableName+"/"+column.FieldKey)
			m.logger.Warn("dropping signature column", "table", tableName, "column", column.FieldKey)
			continue
		}
		if err := cu.ValidateFieldName(column.FieldKey); err != nil {
			return nil, err
		}
		converted := &cu.Field{
			Type:        normalizeFieldType(column.FieldType),
			Method:      defaultString(column.Method, "extract"),
			Description: cu.StringPtr(column.Description),
		}
		if column.FieldFormat != "" && column.FieldFormat != "not-specified" {
			converted.Format = column.FieldFormat
		}
		out[column.FieldKey] = converted
		types[column.FieldKey] = converted.Type
	}
	return types, nil
}

// neuralLabel is one entry in a FOTT labels.json label list.
type neuralLabel struct {
	Label      string             `json:"label"`
	Kind       string             `json:"kind"`
	Confidence any                `json:"confidence"`
	Spans      []any              `json:"spans"`
	Metadata   map[string]any     `json:"metadata"`
	Value      []neuralLabelValue `json:"value"`
}

type neuralLabelValue struct {
	Page          int         `json:"page"`
	Text          string      `json:"text"`
	BoundingBoxes [][]float64 `json:"boundingBoxes"`
}

func (l *neuralLabel) kind() string {
	return defaultString(l.Kind, "confirmed")
}

func (m *Mapper) convertLabelsNeural(data []byte, schema *Schema) (map[string]any, error) {
	var doc struct {
		FileID   string         `json:"fileId"`
		Labels   []neuralLabel  `json:"labels"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON in labels.json: %w", err)
	}

	out := map[string]any{
		"$schema":     m.labelSchemaURL(),
		"fileId":      doc.FileID,
		"fieldLabels": map[string]any{},
		"metadata":    mapOrEmpty(doc.Metadata),
	}
	fieldLabels := out["fieldLabels"].(map[string]any)

	for i := range doc.Labels {
		label := &doc.Labels[i]
		name := unescapeLabelName(label.Label)
		if schema.isRemoved(label.Label) || schema.isRemoved(name) {
			continue
		}

		// Field names containing a slash address a table cell; anything
		// else must be a top-level field from the converted schema.
		if labelType, ok := schema.FieldTypes[name]; ok {
			converted, err := m.neuralCULabel(label, labelType)
			if err != nil {
				return nil, fmt.Errorf("label %q: %w", name, err)
			}
			fieldLabels[name] = converted
			continue
		}
		if !strings.Contains(label.Label, "/") {
			return nil, &SchemaError{Reason: fmt.Sprintf("label %q does not match any schema field", name)}
		}
		if err := m.convertNeuralTableLabel(label, schema, fieldLabels); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// convertNeuralTableLabel folds one table-cell label into its table's entry.
// Dynamic table cells are named table/rowNumber/column; fixed table cells are
// named table/rowName/column.
func (m *Mapper) convertNeuralTableLabel(label *neuralLabel, schema *Schema, fieldLabels map[string]any) error {
	parts := strings.SplitN(label.Label, "/", 3)
	if len(parts) != 3 {
		return &SchemaError{Reason: fmt.Sprintf("label %q does not match any schema field", label.Label)}
	}
	table := unescapeLabelName(parts[0])
	row := unescapeLabelName(parts[1])
	column := unescapeLabelName(parts[2])

	if schema.isRemoved(table + "/" + column) {
		return nil
	}
	columnType, ok := schema.ColumnTypes[table][column]
	if !ok {
		return &SchemaError{Reason: fmt.Sprintf("label %q does not match any column of table %q", label.Label, table)}
	}
	cell, err := m.neuralCULabel(label, columnType)
	if err != nil {
		return fmt.Errorf("label %q: %w", label.Label, err)
	}

	switch schema.FieldTypes[table] {
	case "array":
		entry, ok := fieldLabels[table].(map[string]any)
		if !ok {
			entry = map[string]any{
				"type":       "array",
				"kind":       label.kind(),
				"valueArray": []any{},
			}
		}
		rowIndex, err := strconv.Atoi(row)
		if err != nil || rowIndex < 0 {
			return &SchemaError{Reason: fmt.Sprintf("label %q has a non-numeric row for dynamic table %q", label.Label, table)}
		}
		rows := entry["valueArray"].([]any)
		for len(rows) <= rowIndex {
			rows = append(rows, map[string]any{
				"type":        "object",
				"kind":        label.kind(),
				"valueObject": map[string]any{},
			})
		}
		rows[rowIndex].(map[string]any)["valueObject"].(map[string]any)[column] = cell
		entry["valueArray"] = rows
		fieldLabels[table] = entry
		return nil

	case "object":
		entry, ok := fieldLabels[table].(map[string]any)
		if !ok {
			entry = map[string]any{
				"type":        "object",
				"kind":        label.kind(),
				"valueObject": map[string]any{},
			}
			fieldLabels[table] = entry
		}
		rowsMap := entry["valueObject"].(map[string]any)
		rowEntry, ok := rowsMap[row].(map[string]any)
		if !ok {
			rowEntry = map[string]any{
				"type":        "object",
				"kind":        label.kind(),
				"valueObject": map[string]any{},
			}
			rowsMap[row] = rowEntry
		}
		rowEntry["valueObject"].(map[string]any)[column] = cell
		return nil

	default:
		return &SchemaError{Reason: fmt.Sprintf("label %q references %q, which is not a table", label.Label, table)}
	}
}

// neuralCULabel converts one FOTT label value list into a CU label of the
// given converted type. Content is the space-joined text runs; the typed
// value is derived from it.
func (m *Mapper) neuralCULabel(label *neuralLabel, labelType string) (map[string]any, error) {
	var (
		texts   []string
		sources []string
	)
	for _, value := range label.Value {
		texts = append(texts, value.Text)
		if len(value.BoundingBoxes) == 0 {
			continue
		}
		polygon := make([]float64, len(value.BoundingBoxes[0]))
		for i, coord := range value.BoundingBoxes[0] {
			polygon[i] = roundCoord(coord)
		}
		sources = append(sources, sourceFromRegion(value.Page, polygon))
	}
	content := strings.TrimSpace(strings.Join(texts, " "))

	out := map[string]any{"type": labelType}
	switch labelType {
	case "number":
		v, err := parseNumber(content)
		if err != nil {
			return nil, err
		}
		out["valueNumber"] = v
	case "integer":
		v, err := parseInteger(content)
		if err != nil {
			return nil, err
		}
		out["valueInteger"] = v
	case "date":
		out["valueDate"] = normalizeDate(content)
	case "boolean":
		out["valueBoolean"] = isSelectedContent(content)
	default:
		out[valueKeyByType[labelType]] = content
	}

	if label.Spans != nil {
		out["spans"] = label.Spans
	} else {
		out["spans"] = []any{}
	}
	if label.Confidence != nil {
		out["confidence"] = label.Confidence
	}
	if source := joinSources(sources); source != "" {
		out["source"] = source
	}
	out["kind"] = label.kind()
	out["metadata"] = mapOrEmpty(label.Metadata)
	return out, nil
}

// unescapeLabelName reverses FOTT label-name escaping: ~1 encodes a slash
// and ~0 encodes a tilde.
func unescapeLabelName(name string) string {
	name = strings.ReplaceAll(name, "~1", "/")
	return strings.ReplaceAll(name, "~0", "~")
}

func mapOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
