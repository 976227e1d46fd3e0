package domain

import (
	"context"
	"strings"

	"github.com/davidbz/promptlab/internal/observability"
)

// Accumulator assembles the visible response from a stream of chunks.
// Chunks are applied strictly in arrival order; the transport's ordering is
// authoritative and nothing is buffered beyond string concatenation.
type Accumulator struct {
	candidateCount int
	builder        strings.Builder
	usage          Usage
	sawUsage       bool
	latencyMs      int64
}

// NewAccumulator creates an accumulator for a request expecting
// candidateCount completions.
func NewAccumulator(candidateCount int) *Accumulator {
	if candidateCount < 1 {
		candidateCount = 1
	}
	return &Accumulator{candidateCount: candidateCount}
}

// Run consumes the stream until its terminal chunk. Non-terminal content is
// appended and forwarded to onDelta (when non-nil). The returned result is
// never nil: on a stream error or cancelled context it carries the partial
// text accumulated so far alongside the error.
func (a *Accumulator) Run(
	ctx context.Context,
	chunks <-chan StreamChunk,
	onDelta func(delta string),
) (*GenerationResult, error) {
	logger := observability.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Warn("stream aborted", observability.Error(ctx.Err()))
			return a.partial(), ctx.Err()

		case chunk, ok := <-chunks:
			if !ok {
				// Channel closed without a terminal chunk. Treat the
				// accumulated text as the complete response.
				logger.Warn("stream closed without terminal chunk")
				return a.finalize(""), nil
			}

			if chunk.Err != nil {
				logger.Error("stream chunk error", observability.Error(chunk.Err))
				return a.partial(), chunk.Err
			}

			a.observe(chunk)

			if chunk.IsComplete {
				return a.finalize(chunk.Content), nil
			}

			a.builder.WriteString(chunk.Content)
			if onDelta != nil {
				onDelta(chunk.Content)
			}
		}
	}
}

// observe records usage and latency, last-write-wins. A chunk without usage
// never clears a previously observed value.
func (a *Accumulator) observe(chunk StreamChunk) {
	if chunk.Usage != nil {
		a.usage = *chunk.Usage
		a.sawUsage = true
	}
	if chunk.LatencyMs > 0 {
		a.latencyMs = chunk.LatencyMs
	}
}

// finalize resolves the candidate variant from the terminal chunk.
func (a *Accumulator) finalize(terminalContent string) *GenerationResult {
	var candidates Candidates

	switch {
	case a.candidateCount > 1 && terminalContent != "":
		// The terminal chunk may carry a JSON array of alternatives.
		// Once it parses, the pre-terminal accumulation is discarded.
		candidates = ParseCandidates(terminalContent)
	case a.candidateCount > 1:
		candidates = SingleCandidate(a.builder.String())
	default:
		candidates = SingleCandidate(a.builder.String() + terminalContent)
	}

	return &GenerationResult{
		Text:          candidates.At(0),
		Candidates:    candidates,
		SelectedIndex: 0,
		Usage:         a.usage,
		LatencyMs:     a.latencyMs,
	}
}

// partial snapshots the accumulation after a failed stream. The candidate
// set stays a singleton of whatever text already arrived.
func (a *Accumulator) partial() *GenerationResult {
	text := a.builder.String()
	return &GenerationResult{
		Text:          text,
		Candidates:    SingleCandidate(text),
		SelectedIndex: 0,
		Usage:         a.usage,
		LatencyMs:     a.latencyMs,
	}
}
