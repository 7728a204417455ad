package cu

import (
	"strings"
	"testing"
)

func TestValidateAnalyzerID(t *testing.T) {
	valid := []string{"invoice", "migrated_invoice", "layout-abc.123", strings.Repeat("a", 64)}
	for _, id := range valid {
		if err := ValidateAnalyzerID(id); err != nil {
			t.Errorf("ValidateAnalyzerID(%q) = %v", id, err)
		}
	}

	invalid := []string{"", "has space", "sl/ash", strings.Repeat("a", 65)}
	for _, id := range invalid {
		if err := ValidateAnalyzerID(id); err == nil {
			t.Errorf("ValidateAnalyzerID(%q) accepted", id)
		}
	}
}

func TestValidateFieldName(t *testing.T) {
	valid := []string{"VendorName", "_private", "a1_b2", "A" + strings.Repeat("x", 63)}
	for _, name := range valid {
		if err := ValidateFieldName(name); err != nil {
			t.Errorf("ValidateFieldName(%q) = %v", name, err)
		}
	}

	invalid := []string{"", "9leading", "has space", "dash-ed", "A" + strings.Repeat("x", 64)}
	for _, name := range invalid {
		if err := ValidateFieldName(name); err == nil {
			t.Errorf("ValidateFieldName(%q) accepted", name)
		}
	}
}
