package cu

// PrebuiltDocumentAnalyzerID is the service's built-in document analyzer,
// used as the base for every custom analyzer this tool creates.
const PrebuiltDocumentAnalyzerID = "prebuilt-documentAnalyzer"

// Analyzer is the wire shape of an analyzer definition (analyzer.json).
type Analyzer struct {
	AnalyzerID         string          `json:"analyzerId"`
	Description        string          `json:"description,omitempty"`
	BaseAnalyzerID     string          `json:"baseAnalyzerId,omitempty"`
	Config             *AnalyzerConfig `json:"config,omitempty"`
	FieldSchema        *FieldSchema    `json:"fieldSchema,omitempty"`
	TrainingData       *TrainingData   `json:"trainingData,omitempty"`
	Warnings           []any           `json:"warnings"`
	Status             string          `json:"status,omitempty"`
	TemplateID         string          `json:"templateId,omitempty"`
	ProcessingLocation string          `json:"processingLocation,omitempty"`
	Mode               string          `json:"mode,omitempty"`
}

// AnalyzerConfig mirrors the service's analyzer config block. The optional
// switches are pointers so absent values stay absent on the wire.
type AnalyzerConfig struct {
	ReturnDetails                    bool  `json:"returnDetails"`
	EnableOcr                        *bool `json:"enableOcr,omitempty"`
	EnableLayout                     bool  `json:"enableLayout"`
	EnableBarcode                    *bool `json:"enableBarcode,omitempty"`
	EnableFormula                    bool  `json:"enableFormula"`
	DisableContentFiltering          *bool `json:"disableContentFiltering,omitempty"`
	EstimateFieldSourceAndConfidence bool  `json:"estimateFieldSourceAndConfidence"`
}

// FieldSchema is the analyzer's extraction schema.
type FieldSchema struct {
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Fields      map[string]*Field `json:"fields,omitempty"`
	Definitions map[string]*Field `json:"definitions,omitempty"`
}

// Field describes one extractable field. Array fields carry Items, object
// fields carry Properties, and fixed-table rows reference a shared
// definition via Ref.
type Field struct {
	Type        string            `json:"type,omitempty"`
	Method      string            `json:"method,omitempty"`
	Description *string           `json:"description,omitempty"`
	Format      string            `json:"format,omitempty"`
	Items       *Field            `json:"items,omitempty"`
	Properties  map[string]*Field `json:"properties,omitempty"`
	Ref         string            `json:"$ref,omitempty"`
}

// TrainingData points an analyzer at a labeled dataset in blob storage.
type TrainingData struct {
	ContainerURL string `json:"containerUrl"`
	Kind         string `json:"kind"`
	Prefix       string `json:"prefix"`
}

// NewTrainingData builds a blob-kind training data pointer.
func NewTrainingData(containerSASURL, prefix string) *TrainingData {
	return &TrainingData{
		ContainerURL: containerSASURL,
		Kind:         "blob",
		Prefix:       prefix,
	}
}

// AnalyzerSummary is one entry of the analyzer list response.
type AnalyzerSummary struct {
	AnalyzerID  string `json:"analyzerId"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// BoolPtr returns a pointer to b. The optional config switches distinguish
// "absent" from "false", so callers need an addressable value.
func BoolPtr(b bool) *bool { return &b }

// StringPtr returns a pointer to s. Field descriptions distinguish "absent"
// from "empty string", so callers need an addressable value.
func StringPtr(s string) *string { return &s }
