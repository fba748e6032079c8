package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/jourei/internal/cli"
	"github.com/hyperjump/jourei/internal/models"
)

// apiClient talks to a running jourei server. Using the server avoids opening
// the Bleve and SQLite files a second time.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// Ask posts a question to /query.
func (c *apiClient) Ask(ctx context.Context, question string) (*models.QueryResult, error) {
	body, err := json.Marshal(models.QueryRequest{Question: question})
	if err != nil {
		return nil, err
	}
	var res models.QueryResult
	if err := c.do(ctx, http.MethodPost, "/query", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Lookup runs a record keyword search.
func (c *apiClient) Lookup(ctx context.Context, terms string, limit, fuzzy int) (*cli.RecordsOutput, error) {
	q := url.Values{}
	q.Set("q", terms)
	q.Set("limit", strconv.Itoa(limit))
	if fuzzy > 0 {
		q.Set("fuzzy", strconv.Itoa(fuzzy))
	}
	var out cli.RecordsOutput
	if err := c.do(ctx, http.MethodGet, "/api/v1/records?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches /api/v1/status.
func (c *apiClient) Status(ctx context.Context) (*models.Status, error) {
	var st models.Status
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
