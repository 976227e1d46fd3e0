package domain

import (
	"math"
	"sort"
)

const (
	maxScore           = 100.0
	latencyPerPoint    = 100.0 // 100 ms of latency costs one speed point
	tokensPerPoint     = 10.0  // 10 tokens cost one efficiency point
	compositeFactorCnt = 3.0
)

// RankedModel is a model result annotated with derived ranking scores.
// Ranking is presentation-only; the underlying results are never mutated.
type RankedModel struct {
	ModelResult

	SpeedScore      float64 `json:"speed_score"`
	EfficiencyScore float64 `json:"efficiency_score"`
	CompositeScore  float64 `json:"composite_score"`
	Rank            int     `json:"rank"`
}

// RankModels orders results by a composite of quality, speed and token
// efficiency. The sort is stable: ties keep the original response order.
// Models that failed rank last, also in response order.
func RankModels(results []ModelResult) []RankedModel {
	ranked := make([]RankedModel, 0, len(results))
	for _, r := range results {
		entry := RankedModel{ModelResult: r}
		if r.Error == "" {
			entry.SpeedScore = SpeedScore(r.LatencyMs)
			entry.EfficiencyScore = EfficiencyScore(r.Usage.TotalTokens)
			entry.CompositeScore = (r.QualityScore + entry.SpeedScore + entry.EfficiencyScore) / compositeFactorCnt
		}
		ranked = append(ranked, entry)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if (ranked[i].Error == "") != (ranked[j].Error == "") {
			return ranked[i].Error == ""
		}
		return ranked[i].CompositeScore > ranked[j].CompositeScore
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// SpeedScore derives a 0-100 score inversely from latency.
func SpeedScore(latencyMs int64) float64 {
	return math.Max(0, maxScore-float64(latencyMs)/latencyPerPoint)
}

// EfficiencyScore derives a 0-100 score inversely from total token usage.
func EfficiencyScore(totalTokens int) float64 {
	return math.Max(0, maxScore-float64(totalTokens)/tokensPerPoint)
}
