// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the OpenRouter API.
const (
	// DefaultBaseURL is the base URL for the OpenRouter API.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// APIKeyPrefix is the literal prefix every valid credential carries.
	// Keys failing this check are rejected locally without a round-trip.
	APIKeyPrefix = "sk-or-"

	// DefaultTemperature is used when the caller supplies none.
	DefaultTemperature = 1.0

	// MaxResponseSize caps response bodies to prevent memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

// Client is a stateless client for the OpenRouter API. The credential is
// passed per call; the client only carries transport configuration.
type Client struct {
	baseURL    string
	httpClient *http.Client
	siteURL    string
	siteName   string
	limiter    *rate.Limiter
}

// NewClient creates a client with default transport settings. The HTTP
// client carries no timeout: a completion request runs to completion or
// failure, with cancellation left to the caller's context.
func NewClient() *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		siteURL:  "https://chatsphere.local",
		siteName: "ChatSphere",
		limiter:  rate.NewLimiter(rate.Limit(5), 10),
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithTimeout sets a request timeout on the underlying HTTP client.
// Zero restores the default of no timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithSiteURL sets the referer header value sent with completion requests.
func (c *Client) WithSiteURL(url string) *Client {
	c.siteURL = url
	return c
}

// WithSiteName sets the application identifier header value.
func (c *Client) WithSiteName(name string) *Client {
	c.siteName = name
	return c
}

// WithRateLimit replaces the client-side request pacing. A nil limiter
// disables pacing.
func (c *Client) WithRateLimit(l *rate.Limiter) *Client {
	c.limiter = l
	return c
}

// =============================================================================
// CREDENTIAL VALIDATION
// =============================================================================

// ValidateAPIKey checks the credential format locally. It does not verify
// the key with the server.
func ValidateAPIKey(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("%w: no API key provided", ErrInvalidCredential)
	}
	if !strings.HasPrefix(apiKey, APIKeyPrefix) {
		return fmt.Errorf("%w: API keys should start with %q", ErrInvalidCredential, APIKeyPrefix)
	}
	return nil
}

// =============================================================================
// MODEL LISTING
// =============================================================================

// ListModels retrieves the models available to the credential. The returned
// slice is empty, not nil-checked failure, when the listing body carries no
// data field.
func (c *Client) ListModels(ctx context.Context, apiKey string) ([]Model, error) {
	if err := ValidateAPIKey(apiKey); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, apiKey)

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var listing modelsResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if listing.Data == nil {
		return []Model{}, nil
	}
	return listing.Data, nil
}

// =============================================================================
// COMPLETIONS
// =============================================================================

// SendCompletion performs one chat completion request and returns the first
// choice's text content. An empty string with a nil error means the API
// returned a parsable body with no content, which the permissive contract
// allows.
//
// A non-empty systemPrompt is prepended as a system-role message; the
// supplied sequence is otherwise sent unmodified and in order. temperature
// is clamped to [0, 2]; nil selects the service default of 1.0.
func (c *Client) SendCompletion(ctx context.Context, apiKey, modelID string, messages []ChatMessage, systemPrompt string, temperature *float64) (string, error) {
	if err := ValidateAPIKey(apiKey); err != nil {
		return "", err
	}
	if strings.TrimSpace(modelID) == "" {
		return "", fmt.Errorf("%w: select a model in workspace settings", ErrMissingModel)
	}

	temp := DefaultTemperature
	if temperature != nil {
		temp = clampTemperature(*temperature)
	}

	payload := chatRequest{
		Model:       modelID,
		Messages:    messages,
		Temperature: temp,
	}
	if systemPrompt != "" {
		payload.Messages = append([]ChatMessage{NewSystemMessage(systemPrompt)}, messages...)
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, apiKey)

	body, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}

	var completion chatResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return completion.content(), nil
}

// clampTemperature clamps v into the [0, 2] range the API accepts.
func clampTemperature(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 2 {
		return 2
	}
	return v
}

// =============================================================================
// TRANSPORT
// =============================================================================

// setHeaders sets the required headers for OpenRouter API requests.
func (c *Client) setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(apiKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "chatsphere/0.1.0")

	if c.siteURL != "" {
		req.Header.Set("HTTP-Referer", c.siteURL)
	}
	if c.siteName != "" {
		req.Header.Set("X-Title", c.siteName)
	}
}

// do executes the request, enforcing the rate limit and the response size
// cap, and maps failures to the package taxonomy. On success it returns the
// raw body.
func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	c.logRequest(req)
	start := time.Now()
	resp, err := c.httpClient.Do(req)

	// Clear the Authorization header after the request so a retained
	// request value cannot leak the credential into logs.
	req.Header.Del("Authorization")

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatusError(resp.StatusCode, body)
	}
	return body, nil
}

// classifyStatusError converts a non-success response into the taxonomy:
// 401 becomes ErrAuthenticationFailed, everything else a RequestError with
// the message extracted from the error body when present.
func classifyStatusError(statusCode int, body []byte) error {
	if statusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: invalid or expired API key", ErrAuthenticationFailed)
	}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &RequestError{Status: statusCode, Message: apiErr.Error.Message}
	}
	return &RequestError{Status: statusCode}
}

// readResponse reads the body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// logRequest logs an API request without exposing sensitive data: no
// headers (they carry auth) and no body.
func (c *Client) logRequest(req *http.Request) {
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs only the status and duration, never the body.
func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}
