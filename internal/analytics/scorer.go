package analytics

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/davidbz/promptlab/internal/domain"
)

const (
	maxScore  = 100.0
	baseScore = 50.0

	// Length contributes to quality up to this many words.
	qualityWordCeiling = 300.0

	minRelevantTermLen = 4
)

// HeuristicScorer rates generated text with cheap lexical heuristics. It is
// the fallback used when the provider response carries no canonical scores;
// scores are deterministic for a given (prompt, text) pair.
type HeuristicScorer struct{}

// NewHeuristicScorer creates a heuristic scorer.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// Score rates the text against its prompt on quality, coherence and
// relevance, each in [0,100].
func (s *HeuristicScorer) Score(_ context.Context, prompt, text string) domain.TextScores {
	return domain.TextScores{
		Quality:   qualityScore(text),
		Coherence: coherenceScore(text),
		Relevance: relevanceScore(prompt, text),
	}
}

// qualityScore rewards substance: length up to a ceiling, multiple
// sentences, and a properly terminated ending.
func qualityScore(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	score := baseScore
	score += 30.0 * math.Min(1, float64(len(words))/qualityWordCeiling)

	trimmed := strings.TrimRightFunc(text, unicode.IsSpace)
	if strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "!") || strings.HasSuffix(trimmed, "?") {
		score += 10
	}
	if countSentences(text) >= 2 {
		score += 10
	}
	return clamp(score)
}

// coherenceScore penalizes heavy word repetition via the distinct-word ratio.
func coherenceScore(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}

	distinct := make(map[string]struct{}, len(words))
	for _, w := range words {
		distinct[strings.Trim(w, ".,;:!?\"'")] = struct{}{}
	}
	ratio := float64(len(distinct)) / float64(len(words))

	return clamp(baseScore + ratio*(maxScore-baseScore))
}

// relevanceScore measures how many significant prompt terms reappear in the
// text.
func relevanceScore(prompt, text string) float64 {
	terms := significantTerms(prompt)
	if len(terms) == 0 {
		return baseScore
	}

	lower := strings.ToLower(text)
	hits := 0
	for term := range terms {
		if strings.Contains(lower, term) {
			hits++
		}
	}
	return clamp(maxScore * float64(hits) / float64(len(terms)))
}

func significantTerms(prompt string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(prompt)) {
		w = strings.Trim(w, ".,;:!?\"'")
		if len(w) >= minRelevantTermLen {
			terms[w] = struct{}{}
		}
	}
	return terms
}

func countSentences(text string) int {
	count := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
		}
	}
	return count
}

func clamp(score float64) float64 {
	return math.Max(0, math.Min(maxScore, score))
}
