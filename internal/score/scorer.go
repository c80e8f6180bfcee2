// Package score computes composite relevance scores and performs batch-level
// normalization.
package score

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/topicworks/digest-cli/internal/config"
	"github.com/topicworks/digest-cli/internal/model"
)

// Breakdown records the individual terms of one item's raw score.
type Breakdown struct {
	Base            float64  `json:"base"`
	KeywordBonus    float64  `json:"keyword_bonus"`
	EngagementBonus float64  `json:"engagement_bonus"`
	ContentBonus    float64  `json:"content_bonus"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	Total           float64  `json:"total"`
}

// Scorer scores items against per-source policies plus run-wide global
// keyword groups, then rescales each batch to the configured range.
type Scorer struct {
	global []config.NamedKeywordGroup
	norm   config.Normalization
}

// New creates a Scorer from the run-wide scoring configuration.
func New(cfg config.ScoringConfig) *Scorer {
	return &Scorer{
		global: cfg.GlobalKeywords,
		norm:   cfg.Normalization,
	}
}

// ScoreItem computes one item's raw score terms under policy. The returned
// breakdown total is unrounded; callers round for presentation.
func (s *Scorer) ScoreItem(item *model.ContentItem, policy config.ScoringPolicy) Breakdown {
	bd := Breakdown{Base: policy.BaseScore}

	text := searchableText(item)
	bd.KeywordBonus, bd.MatchedKeywords = s.keywordBonus(text, policy.KeywordBonus)

	if policy.Engagement != nil {
		bd.EngagementBonus = engagementBonus(item, policy.Engagement)
	}

	if policy.ContentLengthBonus != nil {
		bd.ContentBonus = contentBonus(item, policy.ContentLengthBonus)
	}

	bd.Total = bd.Base + bd.KeywordBonus + bd.EngagementBonus + bd.ContentBonus
	return bd
}

// ScoreBatch scores every item in a batch independently, stores the rounded
// raw score and its breakdown, then applies the batch min-max rescale.
func (s *Scorer) ScoreBatch(items []model.ContentItem, policy config.ScoringPolicy) []model.ContentItem {
	for i := range items {
		bd := s.ScoreItem(&items[i], policy)
		items[i].Score = round2(bd.Total)
		if items[i].Raw == nil {
			items[i].Raw = make(map[string]any)
		}
		items[i].Raw["score_detail"] = bd
	}

	s.normalize(items)
	return items
}

// searchableText joins title and summary. Tags are excluded: default tags
// injected by source config would make every item match the same keywords.
func searchableText(item *model.ContentItem) string {
	parts := make([]string, 0, 2)
	if item.Title != "" {
		parts = append(parts, item.Title)
	}
	if item.Summary != "" {
		parts = append(parts, item.Summary)
	}
	return strings.Join(parts, " ")
}

// keywordBonus evaluates source-specific groups first, then the global
// groups. Each group pays out at most once, on its first matching keyword;
// a keyword already counted by a source group is never counted again.
func (s *Scorer) keywordBonus(text string, sourceGroups []config.KeywordGroup) (float64, []string) {
	var total float64
	var matched []string
	lower := strings.ToLower(text)

	counted := make(map[string]struct{})

	for _, group := range sourceGroups {
		for _, kw := range group.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				total += group.Bonus
				matched = append(matched, kw)
				counted[kw] = struct{}{}
				break
			}
		}
	}

	for _, group := range s.global {
		for _, kw := range group.Keywords {
			if !strings.Contains(lower, strings.ToLower(kw)) {
				continue
			}
			if _, dup := counted[kw]; !dup {
				total += group.Bonus
				matched = append(matched, kw)
				counted[kw] = struct{}{}
			}
			break
		}
	}

	return total, matched
}

// engagementBonus folds the points and comments counters into the score.
// Sources without engagement data contribute zero.
func engagementBonus(item *model.ContentItem, formula *config.EngagementFormula) float64 {
	points := rawNumber(item.Raw, "points")
	comments := rawNumber(item.Raw, "comments")

	scale := formula.Scale
	if scale == 0 {
		scale = 1
	}

	transformed := func(v float64) float64 {
		switch formula.Transform {
		case "log1p":
			return math.Log1p(math.Max(v, 0))
		case "sqrt":
			return math.Sqrt(math.Max(v, 0))
		default:
			return v
		}
	}

	return (transformed(points)*formula.PointsWeight +
		transformed(comments)*formula.CommentsWeight) * scale
}

// contentBonus awards the flat bonus when the longest available text reaches
// the threshold, preferring full extracted content over the summary.
func contentBonus(item *model.ContentItem, cfg *config.ContentLengthBonus) float64 {
	content, _ := item.Raw["full_content"].(string)
	if content == "" {
		content = item.Summary
	}
	if content == "" {
		return 0
	}
	// Threshold counts characters, not bytes, so CJK text is measured the
	// same as ASCII.
	if utf8.RuneCountInString(content) >= cfg.Threshold {
		return cfg.Bonus
	}
	return 0
}

func rawNumber(raw map[string]any, key string) float64 {
	switch v := raw[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
