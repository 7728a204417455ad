package cu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

// Document file types the service accepts for analysis.
var supportedFileTypes = map[string]string{
	".pdf":  "application/pdf",
	".tiff": "application/octet-stream",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".bmp":  "application/octet-stream",
	".heif": "application/octet-stream",
	".docx": "application/octet-stream",
	".xlsx": "application/octet-stream",
	".pptx": "application/octet-stream",
	".txt":  "text/plain",
	".html": "text/html",
	".md":   "text/markdown",
	".eml":  "application/octet-stream",
	".msg":  "application/octet-stream",
	".xml":  "application/xml",
}

// IsSupportedFileType reports whether the service can analyze a file with
// the given name, judged by extension.
func IsSupportedFileType(name string) bool {
	_, ok := supportedFileTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ContentTypeForFile returns the upload content type for a document name.
func ContentTypeForFile(name string) string {
	if ct, ok := supportedFileTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// BeginAnalyzeData submits raw document bytes for analysis against the
// named analyzer and returns the operation handle.
func (c *Client) BeginAnalyzeData(ctx context.Context, analyzerID string, data []byte, contentType string) (*Operation, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp, err := c.do(ctx, http.MethodPost, c.analyzeURL(analyzerID), bytes.NewReader(data), contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.logger.Info("analyze request accepted", "analyzer_id", analyzerID)
	return operationFromResponse(resp)
}

// BeginAnalyzeURL submits a document by URL (typically a SAS URL) for
// analysis against the named analyzer.
func (c *Client) BeginAnalyzeURL(ctx context.Context, analyzerID, documentURL string) (*Operation, error) {
	body, err := json.Marshal(map[string]string{"url": documentURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analyze request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, c.analyzeURL(analyzerID), bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.logger.Info("analyze request accepted", "analyzer_id", analyzerID, "url_document", true)
	return operationFromResponse(resp)
}

// AnalyzeData submits document bytes and polls until the result is ready,
// returning the final result document verbatim.
func (c *Client) AnalyzeData(ctx context.Context, analyzerID string, data []byte, contentType string) (json.RawMessage, error) {
	op, err := c.BeginAnalyzeData(ctx, analyzerID, data, contentType)
	if err != nil {
		return nil, err
	}
	return c.Poll(ctx, op)
}

// AnalyzeURL submits a document URL and polls until the result is ready.
func (c *Client) AnalyzeURL(ctx context.Context, analyzerID, documentURL string) (json.RawMessage, error) {
	op, err := c.BeginAnalyzeURL(ctx, analyzerID, documentURL)
	if err != nil {
		return nil, err
	}
	return c.Poll(ctx, op)
}
