package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// isoLayout matches the timestamps the backend stores (millisecond UTC)
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

func formatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// RestClient issues calls against the hosted REST API. Every request carries
// the static API key; there is no per-user token.
type RestClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRestClient creates a REST client. A nil httpClient uses http.DefaultClient.
func NewRestClient(baseURL, apiKey string, httpClient *http.Client) *RestClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RestClient{baseURL: baseURL, apiKey: apiKey, httpClient: httpClient}
}

// BaseURL returns the backend base URL
func (c *RestClient) BaseURL() string { return c.baseURL }

// do sends one request. Non-2xx answers come back as *RemoteError; fallback
// is used as the message when the error body says nothing useful.
func (c *RestClient) do(ctx context.Context, method, path string, query url.Values, payload interface{}, fallback string) ([]byte, int, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		remoteErr := newRemoteError(resp.StatusCode, respBody, fallback)
		log.Printf("[rest] %s %s -> %d: %s", method, path, resp.StatusCode, remoteErr.Message)
		return nil, resp.StatusCode, remoteErr
	}
	return respBody, resp.StatusCode, nil
}

// decodeRows accepts either a JSON array or a single object
func decodeRows[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var rows []T
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode rows: %w", err)
		}
		return rows, nil
	}
	var row T
	if err := json.Unmarshal(trimmed, &row); err != nil {
		return nil, fmt.Errorf("failed to decode row: %w", err)
	}
	return []T{row}, nil
}

// decodeFirst returns the first row, or nil when there is none
func decodeFirst[T any](body []byte) (*T, error) {
	rows, err := decodeRows[T](body)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
