// Package strategylab is a Go SDK for the strategylab-server REST API.
package strategylab

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

	"strategylab/internal/domain"
)

// Re-exported wire types.
type (
	StrategyConfig = domain.StrategyConfig
	StrategyParams = domain.StrategyParams
	StrategyType   = domain.StrategyType
	BacktestResult = domain.BacktestResult
	ResultSummary  = domain.ResultSummary
)

// Strategy describes one server-side strategy.
type Strategy struct {
	Type        StrategyType `json:"type"`
	Description string       `json:"description"`
}

// ListOptions filters ListBacktests. Zero fields are omitted.
type ListOptions struct {
	UserID   string
	Symbol   string
	Strategy StrategyType
	Limit    int
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
	ResultID   string // set when a run completed but was not saved
}

func (e *APIError) Error() string {
	if e.ResultID != "" {
		return fmt.Sprintf("strategylab: %d %s (result %s)", e.StatusCode, e.Message, e.ResultID)
	}
	return fmt.Sprintf("strategylab: %d %s", e.StatusCode, e.Message)
}

// Client provides a Go SDK for interacting with the strategylab-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new strategylab API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// RunBacktest runs cfg on the server and returns the stored result.
func (c *Client) RunBacktest(ctx context.Context, userID string, cfg StrategyConfig) (*BacktestResult, error) {
	body := struct {
		UserID string `json:"userId"`
		StrategyConfig
	}{userID, cfg}
	var res BacktestResult
	if err := c.do(ctx, http.MethodPost, "/api/backtests", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetBacktest retrieves a stored result by ID.
func (c *Client) GetBacktest(ctx context.Context, id string) (*BacktestResult, error) {
	var res BacktestResult
	if err := c.do(ctx, http.MethodGet, "/api/backtests/"+url.PathEscape(id), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListBacktests lists stored result summaries, newest first.
func (c *Client) ListBacktests(ctx context.Context, opts ListOptions) ([]ResultSummary, error) {
	q := url.Values{}
	if opts.UserID != "" {
		q.Set("userId", opts.UserID)
	}
	if opts.Symbol != "" {
		q.Set("symbol", opts.Symbol)
	}
	if opts.Strategy != "" {
		q.Set("strategy", string(opts.Strategy))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := "/api/backtests"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Results []ResultSummary `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// ListStrategies lists the strategies the server can run.
func (c *Client) ListStrategies(ctx context.Context) ([]Strategy, error) {
	var out struct {
		Strategies []Strategy `json:"strategies"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/strategies", nil, &out); err != nil {
		return nil, err
	}
	return out.Strategies, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		var e struct {
			Error    string `json:"error"`
			ResultID string `json:"resultId"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			apiErr.Message = e.Error
			apiErr.ResultID = e.ResultID
		}
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
