// Package language implements the best-effort language detection
// side-channel: an HTTP detection client behind a debouncer so a burst of
// input edits produces at most one request per quiet interval.
package language

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

// Config contains language detection settings.
type Config struct {
	BaseURL    string `env:"LANGUAGE_API_URL"     envDefault:""`
	Timeout    int    `env:"LANGUAGE_TIMEOUT"     envDefault:"10"`
	DebounceMs int    `env:"LANGUAGE_DEBOUNCE_MS" envDefault:"1000"`
}

// Detector detects the language of a text.
type Detector interface {
	Detect(ctx context.Context, text string) (*domain.LanguageDetection, error)
}

// Client calls the external detection service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a detection client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("language detection base URL is required")
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}, nil
}

type detectRequest struct {
	Text string `json:"text"`
}

// Detect sends the text to the detection service.
func (c *Client) Detect(ctx context.Context, text string) (*domain.LanguageDetection, error) {
	if text == "" {
		return nil, errors.New("text cannot be empty")
	}

	body, err := json.Marshal(detectRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/detect",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("detection API returned status %d: %s", resp.StatusCode, string(payload))
	}

	var detection domain.LanguageDetection
	if err := json.NewDecoder(resp.Body).Decode(&detection); err != nil {
		return nil, fmt.Errorf("failed to decode detection response: %w", err)
	}
	return &detection, nil
}
