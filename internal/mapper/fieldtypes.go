package mapper

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field types the Content Understanding schema vocabulary supports directly.
var supportedFieldTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"integer": true,
	"array":   true,
	"object":  true,
	"date":    true,
	"time":    true,
	"boolean": true,
}

// DI types with a natural CU counterpart. Anything else unsupported (except
// signature, which is dropped entirely) downgrades to string.
var convertTypeMap = map[string]string{
	"selectionMark": "boolean",
	"currency":      "number",
}

// valueKeyByType maps a field type to the key holding its label value.
var valueKeyByType = map[string]string{
	"string":  "valueString",
	"date":    "valueDate",
	"time":    "valueTime",
	"number":  "valueNumber",
	"integer": "valueInteger",
	"boolean": "valueBoolean",
	"array":   "valueArray",
	"object":  "valueObject",

	// DI-only types, normalized away during conversion.
	"selectionMark": "valueSelectionMark",
	"currency":      "valueCurrency",
	"address":       "valueAddress",
	"phoneNumber":   "valuePhoneNumber",
}

const fieldTypeSignature = "signature"

// normalizeFieldType downgrades an unsupported DI type to its CU
// counterpart, or string when no counterpart exists. Supported types pass
// through unchanged.
func normalizeFieldType(t string) string {
	if supportedFieldTypes[t] {
		return t
	}
	if converted, ok := convertTypeMap[t]; ok {
		return converted
	}
	return "string"
}

func isSelectedContent(content string) bool {
	return content == "selected" || content == ":selected:"
}

// Date layouts tried in order when normalizing label content to 2006-01-02.
// Day-first, month-first, and year-first orderings in both two- and
// four-digit year forms, slashed then dashed, then long-month fallbacks.
var dateLayouts = []string{
	"2/1/06", "1/2/06", "06/1/2", "2/1/2006", "1/2/2006", "2006/1/2",
	"2-1-06", "1-2-06", "06-1-2", "2-1-2006", "1-2-2006", "2006-1-2",
	"January 2,2006", "January 2, 2006", "Jan 2, 2006",
}

// normalizeDate converts a raw date string to 2006-01-02 form. Content that
// matches none of the known layouts is returned unchanged; the service
// tolerates unnormalized dates in labels.
func normalizeDate(content string) string {
	content = strings.TrimSpace(content)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, content); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return content
}

// parseNumber converts label content to a float, stripping currency symbols,
// separators, and stray punctuation when a direct parse fails.
func parseNumber(content string) (float64, error) {
	content = strings.TrimSpace(content)
	if v, err := strconv.ParseFloat(strings.ReplaceAll(content, ",", ""), 64); err == nil {
		return v, nil
	}

	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, content)
	cleaned = strings.Trim(cleaned, ".")
	if strings.Count(cleaned, ".") > 1 {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}
	if cleaned == "" {
		return 0, fmt.Errorf("cannot parse %q as a number", content)
	}
	return strconv.ParseFloat(cleaned, 64)
}

// parseInteger converts label content to an int, stripping non-digits when a
// direct parse fails.
func parseInteger(content string) (int64, error) {
	content = strings.TrimSpace(content)
	if v, err := strconv.ParseInt(content, 10, 64); err == nil {
		return v, nil
	}

	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, content)
	if cleaned == "" {
		return 0, fmt.Errorf("cannot parse %q as an integer", content)
	}
	return strconv.ParseInt(cleaned, 10, 64)
}

// roundCoord rounds a bounding box coordinate to 4 decimal places.
func roundCoord(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// sourceFromRegion renders a page number and polygon in the service's
// source notation: D(page,x1,y1,x2,y2,...).
func sourceFromRegion(pageNumber int, polygon []float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "D(%d", pageNumber)
	for _, coord := range polygon {
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(coord, 'f', -1, 64))
	}
	b.WriteByte(')')
	return b.String()
}
