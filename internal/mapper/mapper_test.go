package mapper

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/noumanmanan-msft/cumigrate/internal/cu"
)

func newTestMapper(t *testing.T, dialect Dialect, prefix string) *Mapper {
	t.Helper()
	m, err := New(Options{
		Dialect:        dialect,
		AnalyzerPrefix: prefix,
		APIVersion:     "2025-05-01-preview",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

const generativeFieldsJSON = `{
  "docType": "invoice",
  "fieldSchema": {
    "VendorName": {"type": "string", "description": "Name of the vendor"},
    "InvoiceAmount": {"type": "currency"},
    "Approved": {"type": "selectionMark"},
    "CustomerSignature": {"type": "signature"},
    "Items": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "Description": {"type": "string"},
          "Amount": {"type": "currency"}
        }
      }
    },
    "Totals": {
      "type": "object",
      "properties": {
        "Subtotal": {
          "type": "object",
          "properties": {
            "Amount": {"type": "number"},
            "Notes": {"type": "string"}
          }
        },
        "Total": {
          "type": "object",
          "properties": {
            "Amount": {"type": "number"},
            "Notes": {"type": "string"}
          }
        }
      }
    }
  }
}`

func TestConvertFieldsGenerative(t *testing.T) {
	m := newTestMapper(t, DialectGenerative, "")
	schema, err := m.ConvertFields([]byte(generativeFieldsJSON))
	if err != nil {
		t.Fatalf("ConvertFields: %v", err)
	}
	analyzer := schema.Analyzer

	t.Run("analyzer id from docType", func(t *testing.T) {
		if analyzer.AnalyzerID != "invoice" {
			t.Fatalf("analyzer ID = %q, want %q", analyzer.AnalyzerID, "invoice")
		}
	})

	t.Run("prefix prepends when set", func(t *testing.T) {
		prefixed := newTestMapper(t, DialectGenerative, "migrated")
		schema, err := prefixed.ConvertFields([]byte(generativeFieldsJSON))
		if err != nil {
			t.Fatalf("ConvertFields: %v", err)
		}
		if got := schema.Analyzer.AnalyzerID; got != "migrated_invoice" {
			t.Fatalf("analyzer ID = %q, want %q", got, "migrated_invoice")
		}
	})

	t.Run("envelope", func(t *testing.T) {
		if analyzer.BaseAnalyzerID != cu.PrebuiltDocumentAnalyzerID {
			t.Fatalf("base analyzer = %q", analyzer.BaseAnalyzerID)
		}
		if !analyzer.Config.ReturnDetails || !analyzer.Config.EnableLayout {
			t.Fatal("returnDetails and enableLayout must both be set")
		}
		if analyzer.Status != "undefined" || analyzer.TemplateID != "document-2024-12-01" {
			t.Fatalf("status=%q templateId=%q", analyzer.Status, analyzer.TemplateID)
		}
	})

	t.Run("signature dropped", func(t *testing.T) {
		if _, ok := analyzer.FieldSchema.Fields["CustomerSignature"]; ok {
			t.Fatal("signature field survived conversion")
		}
		if !schema.isRemoved("CustomerSignature") {
			t.Fatal("signature field not recorded as removed")
		}
	})

	t.Run("type downgrades", func(t *testing.T) {
		if got := analyzer.FieldSchema.Fields["InvoiceAmount"].Type; got != "number" {
			t.Fatalf("currency converted to %q, want number", got)
		}
		if got := analyzer.FieldSchema.Fields["Approved"].Type; got != "boolean" {
			t.Fatalf("selectionMark converted to %q, want boolean", got)
		}
	})

	t.Run("dynamic table stays inline", func(t *testing.T) {
		items := analyzer.FieldSchema.Fields["Items"]
		if items.Type != "array" || items.Method != "generate" {
			t.Fatalf("array field = %+v", items)
		}
		if got := items.Items.Properties["Amount"].Type; got != "number" {
			t.Fatalf("column type = %q, want number", got)
		}
	})

	t.Run("fixed table uses ref rows", func(t *testing.T) {
		totals := analyzer.FieldSchema.Fields["Totals"]
		if got := totals.Properties["Subtotal"].Ref; got != "#/$defs/Totals_Subtotal" {
			t.Fatalf("row ref = %q", got)
		}
		if got := totals.Properties["Total"].Ref; got != "#/$defs/Totals_Subtotal" {
			t.Fatalf("second row ref = %q, want shared definition", got)
		}
		def, ok := analyzer.FieldSchema.Definitions["Totals_Subtotal"]
		if !ok {
			t.Fatal("missing fixed table definition")
		}
		if got := def.Properties["Amount"].Type; got != "number" {
			t.Fatalf("definition column type = %q", got)
		}
	})

	t.Run("deterministic output", func(t *testing.T) {
		first, err := schema.MarshalAnalyzer()
		if err != nil {
			t.Fatalf("MarshalAnalyzer: %v", err)
		}
		again, err := m.ConvertFields([]byte(generativeFieldsJSON))
		if err != nil {
			t.Fatalf("ConvertFields: %v", err)
		}
		second, err := again.MarshalAnalyzer()
		if err != nil {
			t.Fatalf("MarshalAnalyzer: %v", err)
		}
		if !bytes.Equal(first, second) {
			t.Fatal("repeated conversion produced different analyzer.json")
		}
	})
}

func TestConvertFieldsGenerativeRejects(t *testing.T) {
	m := newTestMapper(t, DialectGenerative, "")

	t.Run("empty schema", func(t *testing.T) {
		_, err := m.ConvertFields([]byte(`{"docType": "x", "fieldSchema": {}}`))
		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			t.Fatalf("err = %v, want SchemaError", err)
		}
	})

	t.Run("invalid field name", func(t *testing.T) {
		_, err := m.ConvertFields([]byte(`{"docType": "x", "fieldSchema": {"Bad Name": {"type": "string"}}}`))
		var valErr *cu.ValidationError
		if !errors.As(err, &valErr) {
			t.Fatalf("err = %v, want ValidationError", err)
		}
	})

	t.Run("invalid fixed table column name", func(t *testing.T) {
		_, err := m.ConvertFields([]byte(`{"docType": "x", "fieldSchema": {
			"Totals": {"type": "object", "properties": {
				"Row1": {"type": "object", "properties": {
					"Unit Price": {"type": "number"}
				}}
			}}
		}}`))
		var valErr *cu.ValidationError
		if !errors.As(err, &valErr) {
			t.Fatalf("err = %v, want ValidationError", err)
		}
	})

	t.Run("invalid dynamic table column name", func(t *testing.T) {
		_, err := m.ConvertFields([]byte(`{"docType": "x", "fieldSchema": {
			"Items": {"type": "array", "items": {"type": "object", "properties": {
				"Unit Price": {"type": "number"}
			}}}
		}}`))
		var valErr *cu.ValidationError
		if !errors.As(err, &valErr) {
			t.Fatalf("err = %v, want ValidationError", err)
		}
	})

	t.Run("too many fields", func(t *testing.T) {
		fields := map[string]any{}
		for i := 0; i < MaxFieldCount+1; i++ {
			fields["Field_"+strings.Repeat("x", 2)+string(rune('A'+i%26))+string(rune('A'+i/26))] = map[string]any{"type": "string"}
		}
		doc, _ := json.Marshal(map[string]any{"docType": "x", "fieldSchema": fields})
		_, err := m.ConvertFields(doc)
		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			t.Fatalf("err = %v, want SchemaError", err)
		}
	})
}

func TestConvertLabelsGenerative(t *testing.T) {
	m := newTestMapper(t, DialectGenerative, "")
	schema, err := m.ConvertFields([]byte(generativeFieldsJSON))
	if err != nil {
		t.Fatalf("ConvertFields: %v", err)
	}

	labelsJSON := `{
	  "fileId": "doc-001",
	  "fieldLabels": {
	    "VendorName": {
	      "type": "string",
	      "content": "Contoso Ltd",
	      "valueString": "Contoso Ltd",
	      "spans": [{"offset": 10, "length": 11}],
	      "confidence": 0.98,
	      "boundingRegions": [{"pageNumber": 1, "polygon": [1.0, 2.0, 3.0, 2.0, 3.0, 2.5, 1.0, 2.5]}]
	    },
	    "InvoiceAmount": {
	      "type": "currency",
	      "content": "$1,234.50",
	      "valueCurrency": {"amount": 1234.5, "currencyCode": "USD"}
	    },
	    "Approved": {
	      "type": "selectionMark",
	      "content": "selected"
	    },
	    "CustomerSignature": {
	      "type": "signature",
	      "content": "signed"
	    }
	  }
	}`

	out, err := m.ConvertLabels([]byte(labelsJSON), schema)
	if err != nil {
		t.Fatalf("ConvertLabels: %v", err)
	}

	var converted struct {
		Schema      string                    `json:"$schema"`
		FileID      string                    `json:"fileId"`
		FieldLabels map[string]map[string]any `json:"fieldLabels"`
	}
	if err := json.Unmarshal(out, &converted); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if want := "https://schema.ai.azure.com/mmi/2025-05-01-preview/labels.json"; converted.Schema != want {
		t.Fatalf("$schema = %q, want %q", converted.Schema, want)
	}
	if converted.FileID != "doc-001" {
		t.Fatalf("fileId = %q", converted.FileID)
	}
	if _, ok := converted.FieldLabels["CustomerSignature"]; ok {
		t.Fatal("signature label survived conversion")
	}

	vendor := converted.FieldLabels["VendorName"]
	if vendor["valueString"] != "Contoso Ltd" {
		t.Fatalf("valueString = %v", vendor["valueString"])
	}
	if vendor["source"] != "D(1,1,2,3,2,3,2.5,1,2.5)" {
		t.Fatalf("source = %v", vendor["source"])
	}
	if vendor["kind"] != "confirmed" {
		t.Fatalf("kind = %v", vendor["kind"])
	}

	amount := converted.FieldLabels["InvoiceAmount"]
	if amount["type"] != "number" || amount["valueNumber"] != 1234.5 {
		t.Fatalf("currency label = %v", amount)
	}

	approved := converted.FieldLabels["Approved"]
	if approved["type"] != "boolean" || approved["valueBoolean"] != true {
		t.Fatalf("selectionMark label = %v", approved)
	}
}

const neuralFieldsJSON = `{
  "$schema": "http://www.azure.com/schema/formrecognizer/fields.json",
  "fields": [
    {"fieldKey": "Client", "fieldType": "string", "fieldFormat": "not-specified"},
    {"fieldKey": "DueDate", "fieldType": "date", "fieldFormat": "dmy"},
    {"fieldKey": "Witness", "fieldType": "signature", "fieldFormat": "not-specified"},
    {"fieldKey": "ItemList", "fieldType": "array", "fieldFormat": "not-specified", "itemType": "ItemList_object"},
    {
      "fieldKey": "Wiring",
      "fieldType": "object",
      "fieldFormat": "not-specified",
      "fields": [
        {"fieldKey": "primary", "fieldType": "Wiring_object", "fieldFormat": "not-specified"},
        {"fieldKey": "backup", "fieldType": "Wiring_object", "fieldFormat": "not-specified"}
      ]
    }
  ],
  "definitions": {
    "ItemList_object": {
      "fieldKey": "ItemList_object",
      "fieldType": "object",
      "fields": [
        {"fieldKey": "Description", "fieldType": "string", "fieldFormat": "not-specified"},
        {"fieldKey": "Quantity", "fieldType": "integer", "fieldFormat": "not-specified"}
      ]
    },
    "Wiring_object": {
      "fieldKey": "Wiring_object",
      "fieldType": "object",
      "fields": [
        {"fieldKey": "part", "fieldType": "string", "fieldFormat": "not-specified"},
        {"fieldKey": "gauge", "fieldType": "number", "fieldFormat": "not-specified"}
      ]
    }
  }
}`

func TestConvertFieldsNeural(t *testing.T) {
	m := newTestMapper(t, DialectNeural, "contract")
	schema, err := m.ConvertFields([]byte(neuralFieldsJSON))
	if err != nil {
		t.Fatalf("ConvertFields: %v", err)
	}
	analyzer := schema.Analyzer

	if analyzer.AnalyzerID != "contract" {
		t.Fatalf("analyzer ID = %q, want the prefix", analyzer.AnalyzerID)
	}
	if _, ok := analyzer.FieldSchema.Fields["Witness"]; ok {
		t.Fatal("signature field survived conversion")
	}
	if got := analyzer.FieldSchema.Fields["DueDate"].Format; got != "dmy" {
		t.Fatalf("format = %q, want dmy", got)
	}

	items := analyzer.FieldSchema.Fields["ItemList"]
	if items.Type != "array" || items.Method != "generate" {
		t.Fatalf("dynamic table = %+v", items)
	}
	if got := items.Items.Properties["Quantity"].Type; got != "integer" {
		t.Fatalf("column type = %q", got)
	}
	if got := schema.ColumnTypes["ItemList"]["Quantity"]; got != "integer" {
		t.Fatalf("recorded column type = %q", got)
	}

	wiring := analyzer.FieldSchema.Fields["Wiring"]
	if got := wiring.Properties["backup"].Ref; got != "#/$defs/Wiring_primary" {
		t.Fatalf("row ref = %q", got)
	}
	if _, ok := analyzer.FieldSchema.Definitions["Wiring_primary"]; !ok {
		t.Fatal("missing fixed table definition")
	}

	t.Run("prefix required", func(t *testing.T) {
		if _, err := New(Options{Dialect: DialectNeural, APIVersion: "v"}); err == nil {
			t.Fatal("expected an error without a prefix")
		}
	})
}

func TestConvertLabelsNeural(t *testing.T) {
	m := newTestMapper(t, DialectNeural, "contract")
	schema, err := m.ConvertFields([]byte(neuralFieldsJSON))
	if err != nil {
		t.Fatalf("ConvertFields: %v", err)
	}

	labelsJSON := `{
	  "document": "contract1.pdf",
	  "labels": [
	    {
	      "label": "Client",
	      "value": [
	        {"page": 1, "text": "Fabrikam", "boundingBoxes": [[0.1, 0.2, 0.3, 0.2, 0.3, 0.25, 0.1, 0.25]]},
	        {"page": 1, "text": "Inc", "boundingBoxes": [[0.35, 0.2, 0.4, 0.2, 0.4, 0.25, 0.35, 0.25]]}
	      ]
	    },
	    {
	      "label": "DueDate",
	      "value": [{"page": 1, "text": "31/12/2024", "boundingBoxes": [[0.5, 0.5, 0.6, 0.5, 0.6, 0.55, 0.5, 0.55]]}]
	    },
	    {
	      "label": "Witness",
	      "value": [{"page": 2, "text": "signed", "boundingBoxes": [[0.1, 0.9, 0.2, 0.9, 0.2, 0.95, 0.1, 0.95]]}]
	    },
	    {
	      "label": "ItemList/1/Quantity",
	      "value": [{"page": 1, "text": "7", "boundingBoxes": [[0.7, 0.7, 0.8, 0.7, 0.8, 0.75, 0.7, 0.75]]}]
	    },
	    {
	      "label": "Wiring/primary/gauge",
	      "value": [{"page": 1, "text": "12.5", "boundingBoxes": [[0.2, 0.6, 0.3, 0.6, 0.3, 0.65, 0.2, 0.65]]}]
	    }
	  ]
	}`

	out, err := m.ConvertLabels([]byte(labelsJSON), schema)
	if err != nil {
		t.Fatalf("ConvertLabels: %v", err)
	}

	var converted struct {
		FieldLabels map[string]map[string]any `json:"fieldLabels"`
	}
	if err := json.Unmarshal(out, &converted); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if _, ok := converted.FieldLabels["Witness"]; ok {
		t.Fatal("signature label survived conversion")
	}

	client := converted.FieldLabels["Client"]
	if client["valueString"] != "Fabrikam Inc" {
		t.Fatalf("content join = %v", client["valueString"])
	}
	if src, _ := client["source"].(string); !strings.Contains(src, ";") {
		t.Fatalf("multi-region source = %q, want ;-joined", src)
	}

	due := converted.FieldLabels["DueDate"]
	if due["valueDate"] != "2024-12-31" {
		t.Fatalf("date normalized to %v", due["valueDate"])
	}

	items := converted.FieldLabels["ItemList"]
	rows, _ := items["valueArray"].([]any)
	if len(rows) != 2 {
		t.Fatalf("row padding produced %d rows, want 2", len(rows))
	}
	row0 := rows[0].(map[string]any)["valueObject"].(map[string]any)
	if len(row0) != 0 {
		t.Fatalf("padded row is not empty: %v", row0)
	}
	row1 := rows[1].(map[string]any)["valueObject"].(map[string]any)
	quantity := row1["Quantity"].(map[string]any)
	if quantity["valueInteger"] != float64(7) {
		t.Fatalf("valueInteger = %v", quantity["valueInteger"])
	}

	wiring := converted.FieldLabels["Wiring"]
	rowsMap := wiring["valueObject"].(map[string]any)
	primary := rowsMap["primary"].(map[string]any)["valueObject"].(map[string]any)
	gauge := primary["gauge"].(map[string]any)
	if gauge["valueNumber"] != 12.5 {
		t.Fatalf("valueNumber = %v", gauge["valueNumber"])
	}

	t.Run("unknown label fails the record", func(t *testing.T) {
		bad := `{"labels": [{"label": "Nope", "value": [{"page": 1, "text": "x", "boundingBoxes": [[0,0,1,0,1,1,0,1]]}]}]}`
		_, err := m.ConvertLabels([]byte(bad), schema)
		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			t.Fatalf("err = %v, want SchemaError", err)
		}
	})

	t.Run("escaped names unescape", func(t *testing.T) {
		escaped := `{"labels": [{"label": "Client", "value": [{"page": 1, "text": "A~0B", "boundingBoxes": [[0,0,1,0,1,1,0,1]]}]}]}`
		out, err := m.ConvertLabels([]byte(escaped), schema)
		if err != nil {
			t.Fatalf("ConvertLabels: %v", err)
		}
		if !bytes.Contains(out, []byte("A~0B")) {
			t.Fatal("content text must not be unescaped, only label names")
		}
	})
}

func TestNormalizeHelpers(t *testing.T) {
	t.Run("dates", func(t *testing.T) {
		cases := map[string]string{
			"12/31/2024":        "2024-12-31",
			"31/12/2024":        "2024-12-31",
			"2024-12-31":        "2024-12-31",
			"January 5, 2024":   "2024-01-05",
			"not a date at all": "not a date at all",
		}
		for in, want := range cases {
			if got := normalizeDate(in); got != want {
				t.Errorf("normalizeDate(%q) = %q, want %q", in, got, want)
			}
		}
	})

	t.Run("numbers", func(t *testing.T) {
		got, err := parseNumber("$1,234.50")
		if err != nil || got != 1234.5 {
			t.Fatalf("parseNumber = %v, %v", got, err)
		}
		if _, err := parseNumber("no digits"); err == nil {
			t.Fatal("expected an error for non-numeric content")
		}
	})

	t.Run("integers", func(t *testing.T) {
		got, err := parseInteger("qty: 42")
		if err != nil || got != 42 {
			t.Fatalf("parseInteger = %v, %v", got, err)
		}
	})
}
