package cu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// BeginCreateAnalyzer submits an analyzer definition and returns the
// operation handle without waiting. The analyzer ID and every field name are
// validated client-side first, so an invalid schema never reaches the wire.
// If training is non-nil it is attached as the analyzer's training data.
func (c *Client) BeginCreateAnalyzer(ctx context.Context, analyzer *Analyzer, training *TrainingData) (*Operation, error) {
	if err := ValidateAnalyzerID(analyzer.AnalyzerID); err != nil {
		return nil, err
	}
	if analyzer.FieldSchema != nil {
		for name := range analyzer.FieldSchema.Fields {
			if err := ValidateFieldName(name); err != nil {
				return nil, err
			}
		}
		for name := range analyzer.FieldSchema.Definitions {
			if err := ValidateFieldName(name); err != nil {
				return nil, err
			}
		}
	}

	if training != nil {
		analyzer.TrainingData = training
	}

	body, err := json.Marshal(analyzer)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analyzer: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut, c.analyzerURL(analyzer.AnalyzerID), bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.logger.Info("analyzer create request accepted", "analyzer_id", analyzer.AnalyzerID)
	return operationFromResponse(resp)
}

// CreateAnalyzer submits an analyzer definition and polls until the
// operation reaches a terminal state.
func (c *Client) CreateAnalyzer(ctx context.Context, analyzer *Analyzer, training *TrainingData) error {
	op, err := c.BeginCreateAnalyzer(ctx, analyzer, training)
	if err != nil {
		return err
	}
	if _, err := c.Poll(ctx, op); err != nil {
		return fmt.Errorf("analyzer %s creation: %w", analyzer.AnalyzerID, err)
	}
	c.logger.Info("analyzer created", "analyzer_id", analyzer.AnalyzerID)
	return nil
}

// GetAnalyzer fetches the current definition and status of an analyzer.
func (c *Client) GetAnalyzer(ctx context.Context, analyzerID string) (json.RawMessage, error) {
	body, err := c.getJSON(ctx, c.analyzerURL(analyzerID))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// ListAnalyzers returns all analyzers on the resource, following pagination.
func (c *Client) ListAnalyzers(ctx context.Context) ([]AnalyzerSummary, error) {
	var analyzers []AnalyzerSummary

	next := c.analyzerListURL()
	for next != "" {
		body, err := c.getJSON(ctx, next)
		if err != nil {
			return nil, err
		}

		var page struct {
			Value    []AnalyzerSummary `json:"value"`
			NextLink string            `json:"nextLink"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode analyzer list: %w", err)
		}
		analyzers = append(analyzers, page.Value...)
		next = page.NextLink
	}
	return analyzers, nil
}

// DeleteAnalyzer removes an analyzer by ID.
func (c *Client) DeleteAnalyzer(ctx context.Context, analyzerID string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.analyzerURL(analyzerID), nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Info("analyzer deleted", "analyzer_id", analyzerID)
	return nil
}
