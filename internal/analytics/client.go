// Package analytics handles post-generation enrichment and local text
// scoring. Enrichment is a fire-and-forget side channel: the caller logs
// failures and never retries.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/davidbz/promptlab/internal/domain"
)

// Config contains analytics service settings.
type Config struct {
	BaseURL string `env:"ANALYTICS_API_URL" envDefault:""`
	Timeout int    `env:"ANALYTICS_TIMEOUT" envDefault:"15"`
}

// Client implements domain.AnalyticsSink against the analytics service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an analytics client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("analytics base URL is required")
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}, nil
}

// Enrich posts the finished generation to the analytics service.
func (c *Client) Enrich(ctx context.Context, req *domain.AnalyticsRequest) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal analytics request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/analytics",
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("analytics request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("analytics API returned status %d: %s", resp.StatusCode, string(payload))
	}
	return nil
}
