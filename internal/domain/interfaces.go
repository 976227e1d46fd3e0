package domain

import "context"

// Provider represents any LLM provider.
type Provider interface {
	// Generate sends a generation request and returns a stream of chunks.
	// The stream carries exactly one terminal chunk (IsComplete or Err).
	Generate(ctx context.Context, req *GenerationRequest) (<-chan StreamChunk, error)

	// Name returns the provider identifier.
	Name() string

	// IsModelSupported checks if the provider supports the given model.
	IsModelSupported(ctx context.Context, model string) bool
}

// ProviderRegistry manages available providers.
type ProviderRegistry interface {
	// Register adds a provider to the registry.
	Register(ctx context.Context, provider Provider) error

	// Get retrieves a provider by name.
	Get(ctx context.Context, providerName string) (Provider, error)

	// List returns all available provider names.
	List(ctx context.Context) ([]string, error)
}

// AnalyticsSink receives post-generation enrichment requests.
// Calls are best-effort: failures are logged by the caller, never retried.
type AnalyticsSink interface {
	Enrich(ctx context.Context, req *AnalyticsRequest) error
}

// HistoryRecorder appends finished generations to the prompt history.
type HistoryRecorder interface {
	Add(ctx context.Context, entry PromptHistoryEntry) error
}

// Scorer rates generated text against its prompt. Used by the comparison
// orchestrator when the provider response carries no canonical scores.
type Scorer interface {
	Score(ctx context.Context, prompt, text string) TextScores
}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}
