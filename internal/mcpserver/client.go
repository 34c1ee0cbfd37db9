package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration for connecting to the WalletGuard API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
	APIKey string // Optional bearer token for deployments behind an authenticating proxy
}

// Client is a pure HTTP client for the WalletGuard API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new client for the WalletGuard API.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// AnalyzeWallet runs the scoring pipeline over a wallet's stored transactions.
func (c *Client) AnalyzeWallet(ctx context.Context, address string) (json.RawMessage, error) {
	path := "/v1/wallets/" + url.PathEscape(address) + "/analyze"
	return c.doRequest(ctx, http.MethodPost, path, nil, nil)
}

// ScoreTransaction scores one transaction record without storing it.
func (c *Client) ScoreTransaction(ctx context.Context, rec map[string]any) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/score", nil, rec)
}

// IngestTransaction stores one transaction record.
func (c *Client) IngestTransaction(ctx context.Context, rec map[string]any) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/transactions", nil, rec)
}

// ListWalletChecks lists past checks for one wallet, newest first.
func (c *Client) ListWalletChecks(ctx context.Context, address string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/wallets/" + url.PathEscape(address) + "/checks"
	return c.doRequest(ctx, http.MethodGet, path, q, nil)
}

// RecentChecks lists the newest checks across all wallets.
func (c *Client) RecentChecks(ctx context.Context, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/checks/recent", q, nil)
}

// ListTransactions lists a wallet's stored transactions in insertion order.
func (c *Client) ListTransactions(ctx context.Context, address string) (json.RawMessage, error) {
	path := "/v1/wallets/" + url.PathEscape(address) + "/transactions"
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}
