package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/davidbz/promptlab/internal/observability"
)

// Session holds the generation-side state for one playground client.
//
// A new generation fully resets response, candidate and error state before
// the provider call. Every generation carries a monotonic token; chunks and
// results arriving for a superseded token are dropped rather than applied
// over newer state.
type Session struct {
	providers ProviderRegistry
	analytics AnalyticsSink
	history   HistoryRecorder
	events    EventPublisher

	// timeout races long-running generations against a wall clock.
	// Zero disables the race.
	timeout time.Duration

	mu         sync.Mutex
	state      OpState
	token      uint64
	candidates Candidates
	selected   int
	displayed  string
}

// NewSession creates a session. analytics, history and events may be nil;
// the corresponding side effects are then skipped.
func NewSession(
	providers ProviderRegistry,
	analytics AnalyticsSink,
	history HistoryRecorder,
	events EventPublisher,
	timeout time.Duration,
) *Session {
	return &Session{
		providers: providers,
		analytics: analytics,
		history:   history,
		events:    events,
		timeout:   timeout,
		state:     Idle(),
	}
}

// Generate runs one generation to completion. Deltas are forwarded to
// onDelta in arrival order while the generation is still current.
func (s *Session) Generate(
	ctx context.Context,
	req *GenerationRequest,
	onDelta func(delta string),
) (*GenerationResult, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	token := s.begin()

	ctx = observability.WithProvider(ctx, req.Provider)
	ctx = observability.WithModel(ctx, req.Model)
	ctx = observability.WithOperation(ctx, "generate")
	logger := observability.FromContext(ctx)

	provider, err := s.providers.Get(ctx, req.Provider)
	if err != nil {
		wrapped := fmt.Errorf("provider not found: %w", err)
		s.fail(token, wrapped, nil)
		return nil, wrapped
	}

	runCtx := ctx
	cancel := func() {}
	if s.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	defer cancel()

	chunks, err := provider.Generate(runCtx, req)
	if err != nil {
		wrapped := fmt.Errorf("generation failed: %w", err)
		s.fail(token, wrapped, nil)
		return nil, wrapped
	}

	acc := NewAccumulator(req.CandidateCount)
	result, err := acc.Run(runCtx, chunks, func(delta string) {
		if onDelta != nil && s.currentToken() == token {
			onDelta(delta)
		}
	})
	if err != nil {
		// A timed-out generation may still complete on the provider side;
		// it is a distinguished failure, not a generic one.
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimedOut
		}
		s.fail(token, err, result)
		return result, err
	}

	if !s.complete(token, result) {
		logger.Info("dropping superseded generation result")
		return result, ErrSuperseded
	}

	logger.Info("generation completed",
		observability.Int("candidates", result.Candidates.Len()),
		observability.Int("total_tokens", result.Usage.TotalTokens),
		observability.Int64("latency_ms", result.LatencyMs),
	)
	if s.events != nil {
		s.events.Publish(ctx, "generation_completed", map[string]interface{}{
			"provider":   req.Provider,
			"model":      req.Model,
			"candidates": result.Candidates.Len(),
		})
	}

	// Post-completion side effects are fire-and-forget: failures are logged,
	// never surfaced and never retried.
	go s.enrich(context.WithoutCancel(ctx), req, result)

	return result, nil
}

// SelectCandidate swaps the displayed response to candidate i. It never
// mutates the candidate set.
func (s *Session) SelectCandidate(i int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.candidates.ValidIndex(i) {
		return "", fmt.Errorf("%w: %d of %d", ErrCandidateIndex, i, s.candidates.Len())
	}

	s.selected = i
	s.displayed = s.candidates.At(i)
	return s.displayed, nil
}

// State returns the current generation operation state.
func (s *Session) State() OpState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Displayed returns the currently displayed response text.
func (s *Session) Displayed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayed
}

// SelectedIndex returns the selected candidate index.
func (s *Session) SelectedIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Candidates returns the current candidate set.
func (s *Session) Candidates() Candidates {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candidates
}

// begin resets prior response, candidate and error state and issues the
// next generation token.
func (s *Session) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token++
	s.state = InFlight()
	s.candidates = Candidates{}
	s.selected = 0
	s.displayed = ""
	return s.token
}

func (s *Session) currentToken() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// complete installs a finished result. Returns false when the generation
// was superseded; the session state is then left untouched.
func (s *Session) complete(token uint64, result *GenerationResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.token {
		return false
	}

	s.state = Succeeded(result)
	s.candidates = result.Candidates
	s.selected = result.SelectedIndex
	s.displayed = result.Text
	return true
}

// fail records a failed generation. Partial text already accumulated stays
// visible.
func (s *Session) fail(token uint64, err error, partial *GenerationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.token {
		return
	}

	s.state = Failed(err, partial)
	if partial != nil {
		s.candidates = partial.Candidates
		s.displayed = partial.Text
	}
}

// enrich runs the success-path side effects: analytics enrichment and the
// history append.
func (s *Session) enrich(ctx context.Context, req *GenerationRequest, result *GenerationResult) {
	logger := observability.FromContext(ctx)

	if s.analytics != nil {
		analyticsReq := &AnalyticsRequest{
			SystemPrompt:  req.SystemPrompt,
			UserPrompt:    req.UserPrompt,
			GeneratedText: result.Text,
			OutputFormat:  req.OutputFormat,
		}
		if err := s.analytics.Enrich(ctx, analyticsReq); err != nil {
			logger.Warn("analytics enrichment failed", observability.Error(err))
		}
	}

	if s.history != nil {
		entry := PromptHistoryEntry{
			ID:           fmt.Sprintf("%d", time.Now().UnixMilli()),
			Timestamp:    time.Now().UTC(),
			Type:         EntryGenerate,
			SystemPrompt: req.SystemPrompt,
			UserPrompt:   req.UserPrompt,
			Response:     result.Text,
			Provider:     req.Provider,
			Model:        req.Model,
			Usage:        result.Usage,
			LatencyMs:    result.LatencyMs,
		}
		if err := s.history.Add(ctx, entry); err != nil {
			logger.Warn("history append failed", observability.Error(err))
		}
	}
}
