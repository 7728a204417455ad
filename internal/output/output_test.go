package output

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	AnalyzerID string `json:"analyzerId" yaml:"analyzer_id"`
	Count      int    `json:"count" yaml:"count"`
}

func TestPrintTo(t *testing.T) {
	data := sample{AnalyzerID: "invoice", Count: 3}

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := PrintTo(&buf, FormatYAML, data); err != nil {
			t.Fatalf("PrintTo: %v", err)
		}
		if !strings.Contains(buf.String(), "analyzer_id: invoice") {
			t.Fatalf("yaml output = %q", buf.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := PrintTo(&buf, FormatJSON, data); err != nil {
			t.Fatalf("PrintTo: %v", err)
		}
		if !strings.Contains(buf.String(), `"analyzerId": "invoice"`) {
			t.Fatalf("json output = %q", buf.String())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		var buf bytes.Buffer
		if err := PrintTo(&buf, Format("xml"), data); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestSetFormat(t *testing.T) {
	t.Cleanup(func() { SetFormat("yaml") })

	SetFormat("json")
	if globalFormat != FormatJSON {
		t.Fatalf("format = %q", globalFormat)
	}
	SetFormat("bogus")
	if globalFormat != FormatYAML {
		t.Fatalf("unknown formats should fall back to yaml, got %q", globalFormat)
	}
}
