package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/davidbz/promptlab/internal/observability"
)

// ComparisonOrchestrator fans a single prompt out to several provider/model
// pairs and assembles one aggregate result.
//
// A comparison is atomic from the caller's perspective: there is no
// mid-flight cancellation, no partial result is exposed, and a new
// comparison is rejected while one is outstanding. The result replaces any
// previous one wholesale.
type ComparisonOrchestrator struct {
	registry ProviderRegistry
	scorer   Scorer
	events   EventPublisher

	mu        sync.Mutex
	comparing bool
	last      *ComparisonResult
}

// NewComparisonOrchestrator creates a comparison orchestrator.
func NewComparisonOrchestrator(registry ProviderRegistry, scorer Scorer, events EventPublisher) *ComparisonOrchestrator {
	return &ComparisonOrchestrator{
		registry: registry,
		scorer:   scorer,
		events:   events,
	}
}

// Compare evaluates the prompt against every requested model and returns the
// aggregate. Validation runs before any provider activity.
func (o *ComparisonOrchestrator) Compare(ctx context.Context, req *ComparisonRequest) (*ComparisonResult, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if len(req.Models) < 2 {
		return nil, ErrTooFewModels
	}

	if err := o.enter(); err != nil {
		return nil, err
	}
	defer o.exit()

	ctx = observability.WithOperation(ctx, "compare")
	logger := observability.FromContext(ctx)
	logger.Info("comparison started", observability.Int("models", len(req.Models)))

	results := make([]ModelResult, len(req.Models))

	var wg sync.WaitGroup
	for i, ref := range req.Models {
		wg.Add(1)
		go func(i int, ref ModelRef) {
			defer wg.Done()
			results[i] = o.runModel(ctx, req, ref)
		}(i, ref)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Error == "" {
			succeeded++
		}
	}
	if succeeded == 0 {
		logger.Error("comparison failed for all models")
		return nil, errors.New("comparison failed: no model produced a response")
	}

	result := &ComparisonResult{
		PerModelResults: results,
		Aggregate:       aggregate(results),
		Recommendations: recommend(results),
	}

	o.mu.Lock()
	o.last = result
	o.mu.Unlock()

	logger.Info("comparison completed",
		observability.Int("succeeded", succeeded),
		observability.String("best_quality", result.Aggregate.BestQualityModel),
		observability.String("fastest", result.Aggregate.FastestModel),
	)
	if o.events != nil {
		o.events.Publish(ctx, "comparison_completed", map[string]interface{}{
			"models":    len(req.Models),
			"succeeded": succeeded,
		})
	}

	return result, nil
}

// Comparing reports whether a comparison is outstanding. The view uses this
// to disable the trigger.
func (o *ComparisonOrchestrator) Comparing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.comparing
}

// Last returns the most recent result, or nil before the first comparison.
func (o *ComparisonOrchestrator) Last() *ComparisonResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

func (o *ComparisonOrchestrator) enter() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.comparing {
		return ErrComparisonInFlight
	}
	o.comparing = true
	return nil
}

func (o *ComparisonOrchestrator) exit() {
	o.mu.Lock()
	o.comparing = false
	o.mu.Unlock()
}

// runModel generates one model's response and scores it. Per-model failures
// are recorded in the result rather than aborting the whole comparison.
func (o *ComparisonOrchestrator) runModel(ctx context.Context, req *ComparisonRequest, ref ModelRef) ModelResult {
	result := ModelResult{Provider: ref.Provider, Model: ref.Model}

	provider, err := o.registry.Get(ctx, ref.Provider)
	if err != nil {
		result.Error = fmt.Sprintf("provider not found: %v", err)
		return result
	}

	genReq := &GenerationRequest{
		UserPrompt:   req.Prompt,
		SystemPrompt: req.SystemPrompt,
		Provider:     ref.Provider,
		Model:        ref.Model,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	}
	genReq.Normalize()

	start := time.Now()
	chunks, err := provider.Generate(ctx, genReq)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	acc := NewAccumulator(1)
	genResult, err := acc.Run(ctx, chunks, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.OutputText = genResult.Text
	result.Usage = genResult.Usage
	result.LatencyMs = genResult.LatencyMs
	if result.LatencyMs == 0 {
		result.LatencyMs = time.Since(start).Milliseconds()
	}

	if o.scorer != nil {
		scores := o.scorer.Score(ctx, req.Prompt, genResult.Text)
		result.QualityScore = scores.Quality
		result.CoherenceScore = scores.Coherence
		result.RelevanceScore = scores.Relevance
	}

	return result
}

// aggregate computes cross-model metrics over the successful results.
func aggregate(results []ModelResult) AggregateMetrics {
	var metrics AggregateMetrics
	var latencySum, qualitySum float64
	var bestQuality float64
	var fastest int64
	count := 0

	for _, r := range results {
		if r.Error != "" {
			continue
		}
		count++
		latencySum += float64(r.LatencyMs)
		qualitySum += r.QualityScore

		name := ModelRef{Provider: r.Provider, Model: r.Model}.String()
		if metrics.BestQualityModel == "" || r.QualityScore > bestQuality {
			bestQuality = r.QualityScore
			metrics.BestQualityModel = name
		}
		if metrics.FastestModel == "" || r.LatencyMs < fastest {
			fastest = r.LatencyMs
			metrics.FastestModel = name
		}
	}

	if count > 0 {
		metrics.AvgLatencyMs = latencySum / float64(count)
		metrics.AvgQuality = qualitySum / float64(count)
	}
	return metrics
}

// recommend derives human-readable guidance from the aggregate.
func recommend(results []ModelResult) []string {
	metrics := aggregate(results)

	var recs []string
	if metrics.BestQualityModel != "" {
		recs = append(recs, fmt.Sprintf("Best quality: %s", metrics.BestQualityModel))
	}
	if metrics.FastestModel != "" {
		recs = append(recs, fmt.Sprintf("Fastest response: %s", metrics.FastestModel))
	}

	ranked := RankModels(results)
	if len(ranked) > 0 {
		top := ranked[0]
		recs = append(recs, fmt.Sprintf(
			"Best overall: %s (composite %.1f)",
			ModelRef{Provider: top.Provider, Model: top.Model}.String(),
			top.CompositeScore,
		))
	}

	for _, r := range results {
		if r.Error != "" {
			recs = append(recs, fmt.Sprintf(
				"%s did not respond: %s",
				ModelRef{Provider: r.Provider, Model: r.Model}.String(),
				r.Error,
			))
		}
	}
	return recs
}
