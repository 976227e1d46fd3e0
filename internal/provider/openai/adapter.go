// Package openai provides an adapter for the OpenAI API using the official
// SDK. It implements the domain.Provider interface: single-candidate
// requests stream deltas as they arrive, while multi-candidate requests use
// one non-streaming call and deliver the alternatives as a JSON array in
// the terminal chunk.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/davidbz/promptlab/internal/domain"
	"github.com/davidbz/promptlab/internal/observability"
)

const providerName = "openai"

// Provider implements the domain.Provider interface for OpenAI.
type Provider struct {
	client openai.Client
	name   string
}

// NewProvider creates a new OpenAI provider.
func NewProvider(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	if config.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(config.MaxRetries))
	}

	return &Provider{
		client: openai.NewClient(opts...),
		name:   providerName,
	}, nil
}

// Generate sends a generation request and returns a stream of chunks.
func (p *Provider) Generate(ctx context.Context, req *domain.GenerationRequest) (<-chan domain.StreamChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	params := p.toSDKParams(req)

	if req.CandidateCount > 1 {
		return p.generateCandidates(ctx, req, params)
	}
	return p.generateStream(ctx, params)
}

// generateStream runs a streaming completion and forwards deltas.
func (p *Provider) generateStream(ctx context.Context, params openai.ChatCompletionNewParams) (<-chan domain.StreamChunk, error) {
	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI streaming API")

	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	chunks := make(chan domain.StreamChunk)
	start := time.Now()

	go func() {
		defer close(chunks)

		var usage *domain.Usage
		for stream.Next() {
			chunk := stream.Current()

			if chunk.Usage.TotalTokens > 0 {
				usage = toDomainUsage(chunk.Usage)
			}

			if len(chunk.Choices) == 0 {
				continue
			}

			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			chunks <- domain.StreamChunk{Content: delta}
		}

		if err := stream.Err(); err != nil {
			logger.Error("OpenAI stream error", observability.Error(err))
			chunks <- domain.StreamChunk{Err: fmt.Errorf("OpenAI stream error: %w", err)}
			return
		}

		chunks <- domain.StreamChunk{
			IsComplete: true,
			Usage:      usage,
			LatencyMs:  time.Since(start).Milliseconds(),
		}
	}()

	return chunks, nil
}

// generateCandidates runs one non-streaming call with n alternatives and
// delivers them as a JSON array in the terminal chunk.
func (p *Provider) generateCandidates(
	ctx context.Context,
	req *domain.GenerationRequest,
	params openai.ChatCompletionNewParams,
) (<-chan domain.StreamChunk, error) {
	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI API for candidates",
		observability.Int("n", req.CandidateCount))

	params.N = openai.Int(int64(req.CandidateCount))

	chunks := make(chan domain.StreamChunk, 1)
	start := time.Now()

	go func() {
		defer close(chunks)

		resp, err := p.client.Chat.Completions.New(ctx, params)
		if err != nil {
			logger.Error("OpenAI API call failed", observability.Error(err))
			chunks <- domain.StreamChunk{Err: fmt.Errorf("OpenAI API call failed: %w", err)}
			return
		}

		texts := make([]string, 0, len(resp.Choices))
		for _, choice := range resp.Choices {
			texts = append(texts, choice.Message.Content)
		}

		encoded, err := json.Marshal(texts)
		if err != nil {
			chunks <- domain.StreamChunk{Err: fmt.Errorf("failed to encode candidates: %w", err)}
			return
		}

		chunks <- domain.StreamChunk{
			Content:    string(encoded),
			IsComplete: true,
			Usage:      toDomainUsage(resp.Usage),
			LatencyMs:  time.Since(start).Milliseconds(),
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
	return strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3")
}

// toSDKParams converts the domain request to SDK ChatCompletionNewParams.
func (p *Provider) toSDKParams(req *domain.GenerationRequest) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion

	if system := buildSystemPrompt(req); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}

	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	return params
}

// buildSystemPrompt folds output format and translation directives into the
// system prompt.
func buildSystemPrompt(req *domain.GenerationRequest) string {
	parts := make([]string, 0, 3)

	if req.SystemPrompt != "" {
		parts = append(parts, req.SystemPrompt)
	}

	if instruction := formatInstruction(req.OutputFormat); instruction != "" {
		parts = append(parts, instruction)
	}

	if req.Translate && req.TargetLanguage != "" {
		parts = append(parts, fmt.Sprintf("Respond in the language with ISO code %q.", req.TargetLanguage))
	}

	return strings.Join(parts, "\n\n")
}

func formatInstruction(format domain.OutputFormat) string {
	switch format {
	case domain.FormatJSON:
		return "Format the response as valid JSON."
	case domain.FormatXML:
		return "Format the response as valid XML."
	case domain.FormatMarkdown:
		return "Format the response as Markdown."
	case domain.FormatCSV:
		return "Format the response as CSV."
	case domain.FormatYAML:
		return "Format the response as YAML."
	case domain.FormatHTML:
		return "Format the response as HTML."
	case domain.FormatBulletPoints:
		return "Format the response as a bullet point list."
	case domain.FormatNumberedList:
		return "Format the response as a numbered list."
	case domain.FormatTable:
		return "Format the response as a table."
	case domain.FormatText:
		return ""
	default:
		return ""
	}
}

func toDomainUsage(usage openai.CompletionUsage) *domain.Usage {
	return &domain.Usage{
		PromptTokens:     int(usage.PromptTokens),
		CompletionTokens: int(usage.CompletionTokens),
		TotalTokens:      int(usage.TotalTokens),
	}
}
