package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MaxCandidates caps how many alternative completions a single
	// generation may request.
	MaxCandidates = 5

	maxTemperature = 2.0
)

// OutputFormat identifies the requested shape of generated text.
type OutputFormat string

// Supported output formats.
const (
	FormatText         OutputFormat = "text"
	FormatJSON         OutputFormat = "json"
	FormatXML          OutputFormat = "xml"
	FormatMarkdown     OutputFormat = "markdown"
	FormatCSV          OutputFormat = "csv"
	FormatYAML         OutputFormat = "yaml"
	FormatHTML         OutputFormat = "html"
	FormatBulletPoints OutputFormat = "bullet_points"
	FormatNumberedList OutputFormat = "numbered_list"
	FormatTable        OutputFormat = "table"
)

// GenerationRequest represents a single generation call. It is assembled
// once per trigger and treated as immutable after dispatch.
type GenerationRequest struct {
	SystemPrompt   string       `json:"system_prompt,omitempty"`
	UserPrompt     string       `json:"user_prompt"`
	Provider       string       `json:"provider"`
	Model          string       `json:"model"`
	Temperature    float64      `json:"temperature,omitempty"`
	MaxTokens      int          `json:"max_tokens,omitempty"`
	OutputFormat   OutputFormat `json:"output_format,omitempty"`
	TargetLanguage string       `json:"target_language,omitempty"`
	Translate      bool         `json:"translate,omitempty"`
	CandidateCount int          `json:"candidate_count,omitempty"`
}

// Normalize fills zero values with their defaults.
func (r *GenerationRequest) Normalize() {
	if r.CandidateCount == 0 {
		r.CandidateCount = 1
	}
	if r.OutputFormat == "" {
		r.OutputFormat = FormatText
	}
}

// Validate checks the request before any provider activity.
func (r *GenerationRequest) Validate() error {
	if strings.TrimSpace(r.UserPrompt) == "" {
		return ErrEmptyPrompt
	}
	if r.Provider == "" {
		return fmt.Errorf("%w: provider is required", ErrInvalidRequest)
	}
	if r.Model == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidRequest)
	}
	if r.Temperature < 0 || r.Temperature > maxTemperature {
		return fmt.Errorf("%w: temperature %v outside [0,%v]", ErrInvalidRequest, r.Temperature, maxTemperature)
	}
	if r.CandidateCount < 0 || r.CandidateCount > MaxCandidates {
		return fmt.Errorf("%w: candidate count %d outside [1,%d]", ErrInvalidRequest, r.CandidateCount, MaxCandidates)
	}
	return nil
}

// StreamChunk represents a single streamed unit of a generation response.
// Exactly one chunk per stream carries IsComplete; a non-nil Err is the
// error terminal and ends the stream.
type StreamChunk struct {
	Content    string `json:"content"`
	IsComplete bool   `json:"is_complete"`
	Usage      *Usage `json:"usage,omitempty"`
	LatencyMs  int64  `json:"latency_ms,omitempty"`
	Err        error  `json:"-"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerationResult is the finalized output of one generation call.
type GenerationResult struct {
	// Text is the displayed response: the selected candidate, or the
	// partial accumulation when the stream failed midway.
	Text          string     `json:"text"`
	Candidates    Candidates `json:"candidates"`
	SelectedIndex int        `json:"selected_index"`
	Usage         Usage      `json:"usage"`
	LatencyMs     int64      `json:"latency_ms"`
}

// ModelRef names a (provider, model) pair for comparison.
type ModelRef struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func (m ModelRef) String() string {
	return m.Provider + "/" + m.Model
}

// ComparisonRequest fans one prompt out to several provider/model pairs.
type ComparisonRequest struct {
	Prompt       string     `json:"prompt"`
	SystemPrompt string     `json:"system_prompt,omitempty"`
	Models       []ModelRef `json:"models"`
	Temperature  float64    `json:"temperature,omitempty"`
	MaxTokens    int        `json:"max_tokens,omitempty"`
}

// ModelResult is one model's outcome within a comparison.
type ModelResult struct {
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	OutputText     string `json:"output_text"`
	LatencyMs      int64  `json:"latency_ms"`
	Usage          Usage  `json:"usage"`
	QualityScore   float64 `json:"quality_score"`
	CoherenceScore float64 `json:"coherence_score"`
	RelevanceScore float64 `json:"relevance_score"`
	Error          string  `json:"error,omitempty"`
}

// AggregateMetrics summarizes a comparison across models.
type AggregateMetrics struct {
	AvgLatencyMs     float64 `json:"avg_latency_ms"`
	AvgQuality       float64 `json:"avg_quality"`
	BestQualityModel string  `json:"best_quality_model"`
	FastestModel     string  `json:"fastest_model"`
}

// ComparisonResult is the aggregate outcome of one comparison call.
// It is immutable after receipt and replaced wholesale by the next one.
type ComparisonResult struct {
	PerModelResults []ModelResult    `json:"per_model_results"`
	Aggregate       AggregateMetrics `json:"aggregate_metrics"`
	Recommendations []string         `json:"recommendations"`
}

// EntryType classifies a history entry.
type EntryType string

// History entry types.
const (
	EntryGenerate  EntryType = "generate"
	EntrySummarize EntryType = "summarize"
)

// PromptHistoryEntry is one persisted prompt/response pair.
type PromptHistoryEntry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Type         EntryType `json:"type"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	UserPrompt   string    `json:"user_prompt"`
	Response     string    `json:"response"`
	Provider     string    `json:"model_provider"`
	Model        string    `json:"model_name"`
	Usage        Usage     `json:"token_usage"`
	LatencyMs    int64     `json:"latency_ms"`
}

// LanguageAlternative is a lower-confidence detection candidate.
type LanguageAlternative struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// LanguageDetection annotates user input with a detected language.
// Each new detection supersedes the previous one; it is never merged.
type LanguageDetection struct {
	DetectedLanguage string                `json:"detected_language"`
	Confidence       float64               `json:"confidence"`
	Method           string                `json:"method"`
	Alternatives     []LanguageAlternative `json:"alternatives,omitempty"`
}

// AnalyticsRequest is the post-generation enrichment payload.
type AnalyticsRequest struct {
	SystemPrompt  string       `json:"system_prompt,omitempty"`
	UserPrompt    string       `json:"user_prompt"`
	GeneratedText string       `json:"generated_text"`
	OutputFormat  OutputFormat `json:"output_format,omitempty"`
}

// TextScores rates a generated text against its prompt.
type TextScores struct {
	Quality   float64 `json:"quality"`
	Coherence float64 `json:"coherence"`
	Relevance float64 `json:"relevance"`
}
