// Package echo provides a testing provider that echoes back the prompt.
// It implements the domain.Provider interface without external API calls,
// providing deterministic streams for testing and development.
package echo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davidbz/promptlab/internal/domain"
	"github.com/davidbz/promptlab/internal/observability"
)

const (
	providerName = "echo"
	modelName    = "echo4"
	chunkDelay   = 10 * time.Millisecond
)

// Provider implements the domain.Provider interface for echo testing.
type Provider struct {
	name            string
	supportedModels map[string]bool
}

// NewProvider creates a new echo provider.
// No configuration is required as this provider operates entirely in-memory.
func NewProvider() *Provider {
	return &Provider{
		name: providerName,
		supportedModels: map[string]bool{
			modelName: true,
		},
	}
}

// Generate streams the user prompt back word by word. When more than one
// candidate is requested, the terminal chunk carries a JSON array of
// numbered echo variants instead.
func (p *Provider) Generate(ctx context.Context, req *domain.GenerationRequest) (<-chan domain.StreamChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if !p.supportedModels[req.Model] {
		return nil, fmt.Errorf("model %s is not supported by echo provider", req.Model)
	}

	logger := observability.FromContext(ctx)
	logger.Debug("streaming echo request")

	chunks := make(chan domain.StreamChunk)
	start := time.Now()

	go func() {
		defer close(chunks)

		usage := usageFor(req.UserPrompt)

		if req.CandidateCount > 1 {
			texts := make([]string, 0, req.CandidateCount)
			for i := 1; i <= req.CandidateCount; i++ {
				texts = append(texts, fmt.Sprintf("echo %d: %s", i, req.UserPrompt))
			}
			encoded, _ := json.Marshal(texts)

			select {
			case chunks <- domain.StreamChunk{
				Content:    string(encoded),
				IsComplete: true,
				Usage:      usage,
				LatencyMs:  time.Since(start).Milliseconds(),
			}:
			case <-ctx.Done():
			}
			return
		}

		words := strings.Fields(req.UserPrompt)
		for i, word := range words {
			delta := word
			if i < len(words)-1 {
				delta += " "
			}

			select {
			case chunks <- domain.StreamChunk{Content: delta}:
			case <-ctx.Done():
				return
			}

			time.Sleep(chunkDelay)
		}

		select {
		case chunks <- domain.StreamChunk{
			IsComplete: true,
			Usage:      usage,
			LatencyMs:  time.Since(start).Milliseconds(),
		}:
		case <-ctx.Done():
		}
	}()

	return chunks, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// IsModelSupported checks if the provider supports the given model.
func (p *Provider) IsModelSupported(_ context.Context, model string) bool {
	return p.supportedModels[model]
}

// usageFor derives word-based token counts; the echo completion mirrors the
// prompt, so both sides count the same.
func usageFor(prompt string) *domain.Usage {
	tokens := len(strings.Fields(prompt))
	return &domain.Usage{
		PromptTokens:     tokens,
		CompletionTokens: tokens,
		TotalTokens:      tokens * 2,
	}
}
