package vision

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// FrameCategory is the single-frame classification outcome.
type FrameCategory string

const (
	CategoryShortClip   FrameCategory = "short_clip"
	CategoryLongClip    FrameCategory = "long_clip"
	CategoryUnimportant FrameCategory = "unimportant"
)

// CategoryScores holds the model's probability for each category.
type CategoryScores struct {
	ShortClip   float64 `json:"short_clip"`
	LongClip    float64 `json:"long_clip"`
	Unimportant float64 `json:"unimportant"`
}

// Sum returns the total probability mass.
func (cs CategoryScores) Sum() float64 {
	return cs.ShortClip + cs.LongClip + cs.Unimportant
}

// Normalized rescales the probabilities proportionally when their sum
// deviates from 1.0 by more than 0.1. All-zero scores default entirely to
// unimportant.
func (cs CategoryScores) Normalized() CategoryScores {
	sum := cs.Sum()
	if sum == 0 {
		return CategoryScores{Unimportant: 1.0}
	}
	if math.Abs(sum-1.0) <= 0.1 {
		return cs
	}
	return CategoryScores{
		ShortClip:   cs.ShortClip / sum,
		LongClip:    cs.LongClip / sum,
		Unimportant: cs.Unimportant / sum,
	}
}

// MarginRule gates a category: it must reach an absolute probability floor
// and lead the runner-up by a minimum margin.
type MarginRule struct {
	MinProbability float64
	MinMargin      float64
}

// ClassifierRules holds the per-category margin rules.
type ClassifierRules struct {
	ShortClip MarginRule
	LongClip  MarginRule
}

// DefaultClassifierRules returns the tuned gates. They suppress
// low-confidence false positives that plain argmax would let through.
func DefaultClassifierRules() ClassifierRules {
	return ClassifierRules{
		ShortClip: MarginRule{MinProbability: 0.6, MinMargin: 0.2},
		LongClip:  MarginRule{MinProbability: 0.5, MinMargin: 0.15},
	}
}

// Decide applies the margin rule to normalized scores. The leading category
// wins only when it clears its floor and its lead over the second-best;
// anything else is unimportant.
func (r ClassifierRules) Decide(scores CategoryScores) FrameCategory {
	n := scores.Normalized()

	type ranked struct {
		category FrameCategory
		p        float64
	}
	order := []ranked{
		{CategoryShortClip, n.ShortClip},
		{CategoryLongClip, n.LongClip},
		{CategoryUnimportant, n.Unimportant},
	}
	lead, second := order[0], order[1]
	if second.p > lead.p {
		lead, second = second, lead
	}
	if order[2].p > lead.p {
		second = lead
		lead = order[2]
	} else if order[2].p > second.p {
		second = order[2]
	}

	var rule MarginRule
	switch lead.category {
	case CategoryShortClip:
		rule = r.ShortClip
	case CategoryLongClip:
		rule = r.LongClip
	default:
		return CategoryUnimportant
	}

	if lead.p >= rule.MinProbability && lead.p-second.p >= rule.MinMargin {
		return lead.category
	}
	return CategoryUnimportant
}

// FrameClassification is the outcome for one classified frame.
type FrameClassification struct {
	Frame    string         `json:"frame"`
	Category FrameCategory  `json:"category"`
	Scores   CategoryScores `json:"scores"`
}

// FrameClassifier classifies single frames into clip-worthiness categories.
// This is the variant scoring mode; the sequence scorer remains the default.
type FrameClassifier struct {
	logger zerolog.Logger
	client *Client
	rules  ClassifierRules
}

// NewFrameClassifier creates a classifier with the given rules.
func NewFrameClassifier(logger zerolog.Logger, client *Client, rules ClassifierRules) *FrameClassifier {
	return &FrameClassifier{
		logger: logger.With().Str("component", "frame-classifier").Logger(),
		client: client,
		rules:  rules,
	}
}

// Classify submits one frame and applies the margin rule to the parsed
// category probabilities.
func (fc *FrameClassifier) Classify(ctx context.Context, framePath string) (FrameClassification, error) {
	data, err := os.ReadFile(framePath)
	if err != nil {
		return FrameClassification{}, fmt.Errorf("reading frame: %w", err)
	}

	raw, err := fc.client.Generate(ctx, classifyPrompt, [][]byte{data})
	if err != nil {
		return FrameClassification{}, err
	}

	scores := parseCategoryResponse(raw)
	category := fc.rules.Decide(scores)

	fc.logger.Debug().
		Str("frame", framePath).
		Str("category", string(category)).
		Float64("short_clip", scores.ShortClip).
		Float64("long_clip", scores.LongClip).
		Float64("unimportant", scores.Unimportant).
		Msg("frame classified")

	return FrameClassification{
		Frame:    framePath,
		Category: category,
		Scores:   scores,
	}, nil
}

// parseCategoryResponse parses the three category lines; missing or
// malformed lines default to 0.
func parseCategoryResponse(raw string) CategoryScores {
	var scores CategoryScores
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SHORT_CLIP:"):
			scores.ShortClip = parseProbability(strings.TrimPrefix(line, "SHORT_CLIP:"))
		case strings.HasPrefix(line, "LONG_CLIP:"):
			scores.LongClip = parseProbability(strings.TrimPrefix(line, "LONG_CLIP:"))
		case strings.HasPrefix(line, "UNIMPORTANT:"):
			scores.Unimportant = parseProbability(strings.TrimPrefix(line, "UNIMPORTANT:"))
		}
	}
	return scores
}

func parseProbability(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return clamp01(v)
}
