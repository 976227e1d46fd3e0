package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/promptlab/internal/domain"
)

// streamOf feeds the given chunks through a channel the way a provider would.
func streamOf(chunks ...domain.StreamChunk) <-chan domain.StreamChunk {
	out := make(chan domain.StreamChunk, len(chunks))
	for _, c := range chunks {
		out <- c
	}
	close(out)
	return out
}

func TestAccumulator_SingleCandidate(t *testing.T) {
	t.Run("should concatenate content in arrival order", func(t *testing.T) {
		acc := domain.NewAccumulator(1)

		result, err := acc.Run(context.Background(), streamOf(
			domain.StreamChunk{Content: "Hel"},
			domain.StreamChunk{Content: "lo, "},
			domain.StreamChunk{Content: "world"},
			domain.StreamChunk{Content: "!", IsComplete: true},
		), nil)

		require.NoError(t, err)
		require.Equal(t, "Hello, world!", result.Text)
		require.False(t, result.Candidates.Multiple)
		require.Equal(t, []string{"Hello, world!"}, result.Candidates.Texts)
		require.Equal(t, 0, result.SelectedIndex)
	})

	t.Run("should forward deltas to the observer", func(t *testing.T) {
		acc := domain.NewAccumulator(1)

		var deltas []string
		_, err := acc.Run(context.Background(), streamOf(
			domain.StreamChunk{Content: "a"},
			domain.StreamChunk{Content: "b"},
			domain.StreamChunk{IsComplete: true},
		), func(delta string) {
			deltas = append(deltas, delta)
		})

		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, deltas)
	})
}

func TestAccumulator_Candidates(t *testing.T) {
	t.Run("should parse terminal JSON array into candidate set", func(t *testing.T) {
		acc := domain.NewAccumulator(3)

		result, err := acc.Run(context.Background(), streamOf(
			domain.StreamChunk{Content: "Hel"},
			domain.StreamChunk{Content: "lo"},
			domain.StreamChunk{Content: `["A","B","C"]`, IsComplete: true},
		), nil)

		require.NoError(t, err)
		require.True(t, result.Candidates.Multiple)
		require.Equal(t, []string{"A", "B", "C"}, result.Candidates.Texts)
		// Pre-terminal accumulation is discarded once candidates parse.
		require.Equal(t, "A", result.Text)
		require.Equal(t, 0, result.SelectedIndex)
	})

	t.Run("should degrade to single candidate on malformed JSON", func(t *testing.T) {
		acc := domain.NewAccumulator(3)

		result, err := acc.Run(context.Background(), streamOf(
			domain.StreamChunk{Content: "not json", IsComplete: true},
		), nil)

		require.NoError(t, err)
		require.False(t, result.Candidates.Multiple)
		require.Equal(t, []string{"not json"}, result.Candidates.Texts)
		require.Equal(t, "not json", result.Text)
	})

	t.Run("should fall back to accumulated text when terminal content is empty", func(t *testing.T) {
		acc := domain.NewAccumulator(2)

		result, err := acc.Run(context.Background(), streamOf(
			domain.StreamChunk{Content: "only stream"},
			domain.StreamChunk{IsComplete: true},
		), nil)

		require.NoError(t, err)
		require.Equal(t, []string{"only stream"}, result.Candidates.Texts)
	})
}

func TestAccumulator_UsageAndLatency(t *testing.T) {
	t.Run("should keep last observed usage", func(t *testing.T) {
		acc := domain.NewAccumulator(1)

		result, err := acc.Run(context.Background(), streamOf(
			domain.StreamChunk{Content: "a", Usage: &domain.Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2}},
			domain.StreamChunk{Content: "b"},
			domain.StreamChunk{IsComplete: true, LatencyMs: 420},
		), nil)

		require.NoError(t, err)
		// A chunk without usage must not clear a previously observed value.
		require.Equal(t, 2, result.Usage.TotalTokens)
		require.Equal(t, int64(420), result.LatencyMs)
	})

	t.Run("should overwrite usage on later chunks", func(t *testing.T) {
		acc := domain.NewAccumulator(1)

		result, err := acc.Run(context.Background(), streamOf(
			domain.StreamChunk{Content: "a", Usage: &domain.Usage{TotalTokens: 2}},
			domain.StreamChunk{IsComplete: true, Usage: &domain.Usage{PromptTokens: 3, CompletionTokens: 7, TotalTokens: 10}},
		), nil)

		require.NoError(t, err)
		require.Equal(t, 10, result.Usage.TotalTokens)
		require.Equal(t, 3, result.Usage.PromptTokens)
	})
}

func TestAccumulator_Errors(t *testing.T) {
	t.Run("should retain partial text on stream error", func(t *testing.T) {
		streamErr := errors.New("connection reset")
		acc := domain.NewAccumulator(1)

		result, err := acc.Run(context.Background(), streamOf(
			domain.StreamChunk{Content: "partial "},
			domain.StreamChunk{Content: "output"},
			domain.StreamChunk{Err: streamErr},
		), nil)

		require.ErrorIs(t, err, streamErr)
		require.NotNil(t, result)
		require.Equal(t, "partial output", result.Text)
	})

	t.Run("should stop on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		acc := domain.NewAccumulator(1)
		blocked := make(chan domain.StreamChunk)

		result, err := acc.Run(ctx, blocked, nil)
		require.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, result)
	})

	t.Run("should finalize when channel closes without terminal chunk", func(t *testing.T) {
		acc := domain.NewAccumulator(1)

		result, err := acc.Run(context.Background(), streamOf(
			domain.StreamChunk{Content: "truncated"},
		), nil)

		require.NoError(t, err)
		require.Equal(t, "truncated", result.Text)
	})
}
