package cu

import "regexp"

// Naming constraints enforced by the service; checked client-side so bad
// names are rejected before a request is ever issued.
var (
	analyzerIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)
	fieldNamePattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)
)

// MaxFieldNameLength is the service limit on field and definition names.
const MaxFieldNameLength = 64

// ValidateAnalyzerID checks an analyzer ID against the service constraints.
func ValidateAnalyzerID(id string) error {
	if !analyzerIDPattern.MatchString(id) {
		return &ValidationError{
			Name:   id,
			Reason: "analyzer IDs must match ^[A-Za-z0-9._-]{1,64}$",
		}
	}
	return nil
}

// ValidateFieldName checks a field name against the service constraints.
func ValidateFieldName(name string) error {
	if !fieldNamePattern.MatchString(name) {
		return &ValidationError{
			Name:   name,
			Reason: "field names must match ^[A-Za-z_][A-Za-z0-9_]{0,63}$",
		}
	}
	return nil
}
