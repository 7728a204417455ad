// Package cu is a thin client for the Azure AI Content Understanding REST
// service: analyzer lifecycle, document analysis, and long-running-operation
// polling.
package cu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Config carries everything the client needs; there is no ambient state.
type Config struct {
	// Endpoint is the service host without a trailing slash.
	Endpoint string

	// APIVersion is the api-version query parameter value.
	APIVersion string

	// SubscriptionKey is sent as Ocp-Apim-Subscription-Key.
	SubscriptionKey string

	// UserAgent is sent as x-ms-useragent. Defaults to "cumigrate".
	UserAgent string

	// PollInterval is the delay between status polls. Defaults to 2s.
	PollInterval time.Duration

	// PollMaxAttempts bounds the polling loop. Defaults to 180.
	PollMaxAttempts int

	// HTTPClient overrides the default client (used by tests).
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client talks to one Content Understanding resource.
type Client struct {
	endpoint        string
	apiVersion      string
	subscriptionKey string
	userAgent       string
	pollInterval    time.Duration
	pollMaxAttempts int
	httpClient      *http.Client
	logger          *slog.Logger
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint must be provided")
	}
	if cfg.APIVersion == "" {
		return nil, errors.New("api version must be provided")
	}
	if cfg.SubscriptionKey == "" {
		return nil, errors.New("subscription key must be provided")
	}

	c := &Client{
		endpoint:        cfg.Endpoint,
		apiVersion:      cfg.APIVersion,
		subscriptionKey: cfg.SubscriptionKey,
		userAgent:       cfg.UserAgent,
		pollInterval:    cfg.PollInterval,
		pollMaxAttempts: cfg.PollMaxAttempts,
		httpClient:      cfg.HTTPClient,
		logger:          cfg.Logger,
	}
	if c.userAgent == "" {
		c.userAgent = "cumigrate"
	}
	if c.pollInterval <= 0 {
		c.pollInterval = 2 * time.Second
	}
	if c.pollMaxAttempts <= 0 {
		c.pollMaxAttempts = 180
	}
	if c.httpClient == nil {
		// Analyze uploads can be large; polling requests are quick.
		c.httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

func (c *Client) analyzerURL(analyzerID string) string {
	return fmt.Sprintf("%s/contentunderstanding/analyzers/%s?api-version=%s",
		c.endpoint, url.PathEscape(analyzerID), c.apiVersion)
}

func (c *Client) analyzerListURL() string {
	return fmt.Sprintf("%s/contentunderstanding/analyzers?api-version=%s",
		c.endpoint, c.apiVersion)
}

func (c *Client) analyzeURL(analyzerID string) string {
	return fmt.Sprintf("%s/contentunderstanding/analyzers/%s:analyze?api-version=%s",
		c.endpoint, url.PathEscape(analyzerID), c.apiVersion)
}

// do issues a request with auth headers and returns the response if the
// status is 2xx; otherwise the body is decoded into a *ServiceError.
func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("x-ms-useragent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeServiceError(resp)
	}
	return resp, nil
}

// getJSON fetches rawURL and returns the body bytes.
func (c *Client) getJSON(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, rawURL, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func decodeServiceError(resp *http.Response) error {
	se := &ServiceError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		se.Message = resp.Status
		return se
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		se.Code = envelope.Error.Code
		se.Message = envelope.Error.Message
	} else {
		se.Message = string(body)
	}
	return se
}
