package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config contains renderer service settings.
type Config struct {
	RendererURL string `env:"EXPORT_RENDERER_URL" envDefault:""`
	Timeout     int    `env:"EXPORT_TIMEOUT"      envDefault:"60"`
}

// HTTPRenderer delegates PDF and Word rendering to the external renderer
// service.
type HTTPRenderer struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPRenderer creates a renderer client.
func NewHTTPRenderer(cfg Config) (*HTTPRenderer, error) {
	if cfg.RendererURL == "" {
		return nil, errors.New("renderer URL is required")
	}
	return &HTTPRenderer{
		baseURL: cfg.RendererURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}, nil
}

type renderRequest struct {
	Format  Format   `json:"format"`
	Payload *Payload `json:"payload"`
}

// Render posts the payload and returns the rendered document bytes.
func (r *HTTPRenderer) Render(ctx context.Context, format Format, payload *Payload) ([]byte, error) {
	body, err := json.Marshal(renderRequest{Format: format, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		r.baseURL+"/render",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("renderer returned status %d: %s", resp.StatusCode, string(payload))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered document: %w", err)
	}
	return data, nil
}
