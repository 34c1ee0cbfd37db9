package oracle

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

const remoteTimeout = 10 * time.Second

// RemoteOracle defers scoring to an external service speaking the
// /v1/score contract: POST a vector batch, receive one probability row
// per vector. Requests are not retried.
type RemoteOracle struct {
	baseURL string
	http    *http.Client
}

var _ Oracle = (*RemoteOracle)(nil)

type scoreRequest struct {
	Vectors [][]float64 `json:"vectors"`
}

type scoreResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
}

// NewRemoteOracle returns an oracle posting to the scorer at baseURL.
func NewRemoteOracle(baseURL string) *RemoteOracle {
	return &RemoteOracle{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: remoteTimeout},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (o *RemoteOracle) WithHTTPClient(c *http.Client) *RemoteOracle {
	o.http = c
	return o
}

// Predict implements Oracle.
func (o *RemoteOracle) Predict(ctx context.Context, vectors [][]float64) ([][]float64, error) {
	payload, err := json.Marshal(scoreRequest{Vectors: vectors})
	if err != nil {
		return nil, fmt.Errorf("oracle: marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/score", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("oracle: build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle: score request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("oracle: read score response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle: scorer returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out scoreResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("oracle: decode score response: %w", err)
	}
	if len(out.Probabilities) != len(vectors) {
		return nil, fmt.Errorf("oracle: scorer returned %d rows for %d vectors", len(out.Probabilities), len(vectors))
	}
	return out.Probabilities, nil
}
