// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package client provides a Go client library for the devdock API.
//
// devdock supervises local Node.js dev servers. This package gives typed
// access to its HTTP API: projects, their processes, buffered logs and the
// event stream.
//
//	c := client.New("http://127.0.0.1:7733")
//
//	projects, err := c.Projects.List(ctx)
//	p, err := c.Projects.Start(ctx, "web")
//	entries, err := c.Logs.Get(ctx, "web", &client.LogQuery{Level: "error"})
//
// API errors are returned as *APIError values carrying the server's code
// (NOT_FOUND, CONFLICT, BAD_REQUEST, PROCESS_ERROR, INTERNAL_ERROR):
//
//	if apiErr, ok := err.(*client.APIError); ok && apiErr.Code == client.CodeConflict {
//	    // already running
//	}
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a devdock API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client

	// Projects manages registered projects and their dev servers.
	Projects *ProjectClient

	// Logs reads, clears and streams project output.
	Logs *LogClient

	// Events reads the event history and streams live events.
	Events *EventClient
}

// Option configures a [Client].
type Option func(*Client)

// New creates a client for the server at baseURL. Defaults are the latest
// API version and a 30-second timeout.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		version: LatestVersion,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Projects = &ProjectClient{c: c}
	c.Logs = &LogClient{c: c}
	c.Events = &EventClient{c: c}

	return c
}

// WithVersion pins the API version sent with every request.
func WithVersion(v string) Option {
	return func(c *Client) {
		c.version = v
	}
}

// WithHTTPClient sets a custom HTTP client for making requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout for all requests. Stopping every
// project can take longer than the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// Version returns the API version being used.
func (c *Client) Version() string {
	return c.version
}

// BaseURL returns the base URL of the API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// apiResponse is the standard API response envelope.
type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

// Error codes returned by the server.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeBadRequest    = "BAD_REQUEST"
	CodeConflict      = "CONFLICT"
	CodeProcessError  = "PROCESS_ERROR"
	CodeInternalError = "INTERNAL_ERROR"
)

// APIError is an error response from the devdock API.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// IsNotFound reports whether err is a NOT_FOUND API error.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == CodeNotFound
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	return c.sendJSON(ctx, http.MethodPost, path, body)
}

func (c *Client) patchJSON(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	return c.sendJSON(ctx, http.MethodPatch, path, body)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, method, path, bytes.NewReader(data))
}

func (c *Client) delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// do performs an HTTP request and unwraps the response envelope.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(VersionHeader, c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return c.parseResponse(resp)
}

func (c *Client) parseResponse(resp *http.Response) (json.RawMessage, error) {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		return respBody, nil
	}

	if apiResp.Error != nil {
		return nil, apiResp.Error
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return apiResp.Data, nil
}

func decode[T any](data json.RawMessage, what string) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to parse %s: %w", what, err)
	}
	return v, nil
}

// wsURL turns the base URL into a websocket URL for path.
func (c *Client) wsURL(path string) string {
	switch {
	case strings.HasPrefix(c.baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(c.baseURL, "https://") + path
	case strings.HasPrefix(c.baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(c.baseURL, "http://") + path
	}
	return c.baseURL + path
}

func (c *Client) wsHeader() http.Header {
	h := http.Header{}
	h.Set(VersionHeader, c.version)
	return h
}
