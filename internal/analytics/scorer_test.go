package analytics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/promptlab/internal/analytics"
)

func TestHeuristicScorer(t *testing.T) {
	ctx := context.Background()
	scorer := analytics.NewHeuristicScorer()

	t.Run("should score empty text at zero quality", func(t *testing.T) {
		scores := scorer.Score(ctx, "anything", "")
		require.Zero(t, scores.Quality)
		require.Zero(t, scores.Coherence)
	})

	t.Run("should stay within bounds", func(t *testing.T) {
		scores := scorer.Score(ctx,
			"Explain how goroutines communicate over channels.",
			"Goroutines communicate over channels. A channel carries typed values between goroutines safely.",
		)
		for _, v := range []float64{scores.Quality, scores.Coherence, scores.Relevance} {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 100.0)
		}
	})

	t.Run("should be deterministic", func(t *testing.T) {
		first := scorer.Score(ctx, "prompt terms here", "some generated answer text.")
		second := scorer.Score(ctx, "prompt terms here", "some generated answer text.")
		require.Equal(t, first, second)
	})

	t.Run("should rate on-topic text above off-topic text", func(t *testing.T) {
		prompt := "Describe the lifecycle of a monarch butterfly."
		onTopic := scorer.Score(ctx, prompt,
			"The monarch butterfly lifecycle has four stages: egg, larva, pupa and adult butterfly.")
		offTopic := scorer.Score(ctx, prompt,
			"Stock markets closed higher today amid easing inflation concerns.")
		require.Greater(t, onTopic.Relevance, offTopic.Relevance)
	})

	t.Run("should penalize heavy repetition", func(t *testing.T) {
		varied := scorer.Score(ctx, "p", "each word in this sentence differs from every other one.")
		repeated := scorer.Score(ctx, "p", "spam spam spam spam spam spam spam spam spam spam.")
		require.Greater(t, varied.Coherence, repeated.Coherence)
	})

	t.Run("should give neutral relevance for trivial prompts", func(t *testing.T) {
		scores := scorer.Score(ctx, "hi", "any answer at all")
		require.InDelta(t, 50.0, scores.Relevance, 0.001)
	})
}
