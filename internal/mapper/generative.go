package mapper

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/noumanmanan-msft/cumigrate/internal/cu"
)

// generativeFields is the DI 4.0 preview Custom Document fields.json shape.
type generativeFields struct {
	DocType     string                      `json:"docType"`
	FieldSchema map[string]*generativeField `json:"fieldSchema"`
	Warnings    []any                       `json:"warnings"`
	Status      string                      `json:"status"`
	TemplateID  string                      `json:"templateId"`
}

type generativeField struct {
	Type        string                      `json:"type"`
	Method      string                      `json:"method"`
	Description string                      `json:"description"`
	Items       *generativeField            `json:"items"`
	Properties  map[string]*generativeField `json:"properties"`
}

func (m *Mapper) convertFieldsGenerative(data []byte) (*Schema, error) {
	var fields generativeFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("invalid JSON in fields.json: %w", err)
	}
	if len(fields.FieldSchema) == 0 {
		return nil, &SchemaError{Reason: "fields.json must define at least one field"}
	}
	if err := validateGenerativeFieldCount(&fields); err != nil {
		return nil, err
	}

	// Neural schemas carry no docType, generative ones do; the prefix is
	// optional here and prepended when supplied.
	analyzerID := fields.DocType
	if m.prefix != "" {
		analyzerID = m.prefix + "_" + fields.DocType
	}
	if err := cu.ValidateAnalyzerID(analyzerID); err != nil {
		return nil, err
	}

	analyzer := m.newAnalyzer(analyzerID, fields.DocType, fields.Warnings, fields.Status, fields.TemplateID)
	schema := &Schema{
		Analyzer:    analyzer,
		FieldTypes:  map[string]string{},
		ColumnTypes: map[string]map[string]string{},
	}

	for _, name := range sortedKeys(fields.FieldSchema) {
		field := fields.FieldSchema[name]
		if field.Type == fieldTypeSignature {
			schema.Removed = append(schema.Removed, name)
			m.logger.Warn("dropping signature field", "field", name)
			continue
		}
		if err := cu.ValidateFieldName(name); err != nil {
			return nil, err
		}

		converted, err := m.convertGenerativeField(name, field, analyzer.FieldSchema.Definitions)
		if err != nil {
			return nil, err
		}
		analyzer.FieldSchema.Fields[name] = converted
		schema.FieldTypes[name] = converted.Type
	}

	return schema, nil
}

// convertGenerativeField converts one field definition. Arrays (dynamic
// tables) keep their items inline; objects whose rows are themselves
// objects (fixed tables) are rewritten as $ref rows over a shared
// definition.
func (m *Mapper) convertGenerativeField(name string, field *generativeField, defs map[string]*cu.Field) (*cu.Field, error) {
	switch field.Type {
	case "array":
		if field.Items == nil {
			return nil, &SchemaError{Reason: fmt.Sprintf("array field %q has no items", name)}
		}
		items, err := m.convertGenerativeField(name, field.Items, defs)
		if err != nil {
			return nil, err
		}
		return &cu.Field{
			Type:        "array",
			Method:      defaultString(field.Method, "generate"),
			Description: cu.StringPtr(field.Description),
			Items:       items,
		}, nil

	case "object":
		rowNames := sortedKeys(field.Properties)
		if len(rowNames) == 0 {
			return nil, &SchemaError{Reason: fmt.Sprintf("object field %q has no properties", name)}
		}
		if field.Properties[rowNames[0]].Type != "object" {
			// Dynamic object: convert each property in place.
			out := &cu.Field{Type: "object", Method: "extract", Properties: map[string]*cu.Field{}}
			for _, propName := range rowNames {
				if err := cu.ValidateFieldName(propName); err != nil {
					return nil, err
				}
				converted, err := m.convertGenerativeField(propName, field.Properties[propName], defs)
				if err != nil {
					return nil, err
				}
				out.Properties[propName] = converted
			}
			return out, nil
		}

		// Fixed table: every row shares the first row's column layout.
		firstRow := rowNames[0]
		defKey := name + "_" + firstRow
		def := &cu.Field{Type: "object", Properties: map[string]*cu.Field{}}
		columns := field.Properties[firstRow].Properties
		for _, colName := range sortedKeys(columns) {
			col := columns[colName]
			if col.Type == fieldTypeSignature {
				continue
			}
			if err := cu.ValidateFieldName(colName); err != nil {
				return nil, err
			}
			def.Properties[colName] = &cu.Field{
				Type:        normalizeFieldType(col.Type),
				Method:      defaultString(col.Method, "extract"),
				Description: cu.StringPtr(col.Description),
			}
		}
		if err := addDefinition(defs, defKey, def); err != nil {
			return nil, err
		}

		out := &cu.Field{
			Type:        "object",
			Method:      defaultString(field.Method, "generate"),
			Description: cu.StringPtr(field.Description),
			Properties:  map[string]*cu.Field{},
		}
		for _, rowName := range rowNames {
			if err := cu.ValidateFieldName(rowName); err != nil {
				return nil, err
			}
			out.Properties[rowName] = &cu.Field{Ref: "#/$defs/" + defKey}
		}
		return out, nil

	default:
		return &cu.Field{
			Type:        normalizeFieldType(field.Type),
			Method:      "extract",
			Description: cu.StringPtr(field.Description),
		}, nil
	}
}

// validateGenerativeFieldCount applies the service's 100-field ceiling,
// counting dynamic tables as columns+1 and fixed tables as rows+columns+2.
func validateGenerativeFieldCount(fields *generativeFields) error {
	count := 0
	for _, field := range fields.FieldSchema {
		switch field.Type {
		case "array":
			if field.Items != nil {
				count += len(field.Items.Properties) + 1
			}
		case "object":
			rows := len(field.Properties)
			cols := 0
			for _, row := range field.Properties {
				cols = len(row.Properties)
				break
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

func (m *Mapper) convertLabelsGenerative(data []byte, schema *Schema) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON in labels.json: %w", err)
	}

	out := map[string]any{
		"$schema":     m.labelSchemaURL(),
		"fileId":      stringOr(doc["fileId"], ""),
		"fieldLabels": map[string]any{},
		"metadata":    mapOr(doc["metadata"]),
	}
	fieldLabels, _ := doc["fieldLabels"].(map[string]any)
	outLabels := out["fieldLabels"].(map[string]any)

	for name, raw := range fieldLabels {
		if schema.isRemoved(name) {
			continue
		}
		label, ok := raw.(map[string]any)
		if !ok {
			return nil, &SchemaError{Reason: fmt.Sprintf("label %q is not an object", name)}
		}
		converted, err := m.convertGenerativeLabel(label)
		if err != nil {
			return nil, fmt.Errorf("label %q: %w", name, err)
		}
		if converted == nil {
			continue
		}
		outLabels[name] = converted
	}
	return out, nil
}

// convertGenerativeLabel converts one labeled value. Signature labels
// convert to nil and are dropped by the caller.
func (m *Mapper) convertGenerativeLabel(label map[string]any) (map[string]any, error) {
	labelType := stringOr(label["type"], "")

	switch labelType {
	case fieldTypeSignature:
		return nil, nil

	case "array":
		out := map[string]any{
			"type": "array",
			"kind": kindOf(label),
		}
		items, _ := label["valueArray"].([]any)
		converted := make([]any, 0, len(items))
		for _, raw := range items {
			item, ok := raw.(map[string]any)
			if !ok {
				return nil, &SchemaError{Reason: "array label item is not an object"}
			}
			convertedItem, err := m.convertGenerativeLabel(item)
			if err != nil {
				return nil, err
			}
			if convertedItem != nil {
				converted = append(converted, convertedItem)
			}
		}
		out["valueArray"] = converted
		return out, nil

	case "object":
		out := map[string]any{
			"type": "object",
			"kind": kindOf(label),
		}
		props, _ := label["valueObject"].(map[string]any)
		converted := map[string]any{}
		for name, raw := range props {
			item, ok := raw.(map[string]any)
			if !ok {
				return nil, &SchemaError{Reason: fmt.Sprintf("object label entry %q is not an object", name)}
			}
			convertedItem, err := m.convertGenerativeLabel(item)
			if err != nil {
				return nil, err
			}
			if convertedItem != nil {
				converted[name] = convertedItem
			}
		}
		out["valueObject"] = converted
		return out, nil
	}

	return m.convertGenerativeValue(labelType, label)
}

// convertGenerativeValue converts a primitive label, preferring the typed
// value the DI file already carries and deriving one from raw content
// otherwise.
func (m *Mapper) convertGenerativeValue(labelType string, label map[string]any) (map[string]any, error) {
	content := stringOr(label["content"], "")
	outType := normalizeFieldType(labelType)
	out := map[string]any{"type": outType}

	switch labelType {
	case "currency":
		if currency, ok := label["valueCurrency"].(map[string]any); ok {
			if amount, ok := currency["amount"].(float64); ok {
				out["valueNumber"] = amount
				break
			}
		}
		amount, err := parseNumber(content)
		if err != nil {
			return nil, err
		}
		out["valueNumber"] = amount

	case "selectionMark":
		out["valueBoolean"] = isSelectedContent(content)

	default:
		valueKey := valueKeyByType[outType]
		if existing, ok := label[valueKey]; ok && existing != nil && existing != "" && labelType == outType {
			out[valueKey] = existing
			break
		}
		switch outType {
		case "date":
			out["valueDate"] = normalizeDate(content)
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
		case "boolean":
			if existing, ok := label["valueBoolean"].(bool); ok {
				out["valueBoolean"] = existing
			} else {
				out["valueBoolean"] = isSelectedContent(content)
			}
		default:
			out[valueKey] = content
		}
	}

	out["spans"] = sliceOr(label["spans"])
	if kindOf(label) == "confirmed" {
		if confidence, ok := label["confidence"]; ok && confidence != nil {
			out["confidence"] = confidence
		}
	}
	if source := sourcesFromBoundingRegions(label["boundingRegions"]); source != "" {
		out["source"] = source
	}
	out["kind"] = kindOf(label)
	out["metadata"] = mapOr(label["metadata"])
	return out, nil
}

// sourcesFromBoundingRegions renders DI boundingRegions as a ;-joined list
// of D(page,...) source strings.
func sourcesFromBoundingRegions(raw any) string {
	regions, _ := raw.([]any)
	var sources []string
	for _, r := range regions {
		region, ok := r.(map[string]any)
		if !ok {
			continue
		}
		page, ok := region["pageNumber"].(float64)
		if !ok {
			continue
		}
		rawPolygon, ok := region["polygon"].([]any)
		if !ok {
			continue
		}
		polygon := make([]float64, 0, len(rawPolygon))
		for _, c := range rawPolygon {
			coord, ok := c.(float64)
			if !ok {
				continue
			}
			polygon = append(polygon, coord)
		}
		sources = append(sources, sourceFromRegion(int(page), polygon))
	}
	return joinSources(sources)
}

func kindOf(label map[string]any) string {
	return stringOr(label["kind"], "confirmed")
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func mapOr(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func sliceOr(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return []any{}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinSources(sources []string) string {
	switch len(sources) {
	case 0:
		return ""
	case 1:
		return sources[0]
	}
	joined := sources[0]
	for _, s := range sources[1:] {
		joined += ";" + s
	}
	return joined
}
