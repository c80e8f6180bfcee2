package score

import (
	"math"

	"github.com/topicworks/digest-cli/internal/model"
)

// normalize rescales raw scores linearly from the batch's observed
// [min, max] to the configured target range, rounded to one decimal. The
// rescale is skipped for batches of one and for uniform batches, which
// would otherwise collapse to the floor value (or divide by zero).
func (s *Scorer) normalize(items []model.ContentItem) {
	if !s.norm.Enabled || len(items) <= 1 {
		return
	}

	rawMin := items[0].Score
	rawMax := items[0].Score
	for _, item := range items[1:] {
		rawMin = math.Min(rawMin, item.Score)
		rawMax = math.Max(rawMax, item.Score)
	}
	if rawMax <= rawMin {
		return
	}

	span := s.norm.MaxScore - s.norm.MinScore
	for i := range items {
		scaled := s.norm.MinScore + (items[i].Score-rawMin)/(rawMax-rawMin)*span
		items[i].Score = round1(scaled)
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
