package vision

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// highProbabilityCutoff marks sequences worth calling out in the summary.
const highProbabilityCutoff = 0.7

// AnalysisMetadata summarizes a scoring run.
type AnalysisMetadata struct {
	TotalSequences        int     `json:"total_sequences"`
	SuccessfulAnalyses    int     `json:"successful_analyses"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
	AverageProbability    float64 `json:"average_probability"`
	HighProbabilityCount  int     `json:"high_probability_sequences"`
	Timestamp             string  `json:"timestamp"`
}

// SummaryEntry is the per-clip digest keyed by clip index in the summary map.
type SummaryEntry struct {
	Score     float64 `json:"score"`
	Sequence  string  `json:"sequence"`
	NumFrames int     `json:"frames"`
}

// Analysis is the persisted output of a scoring run.
type Analysis struct {
	Metadata  AnalysisMetadata        `json:"metadata"`
	Summary   map[string]SummaryEntry `json:"highlight_summary"`
	Sequences []SequenceScore         `json:"sequences"`
}

// Aggregator assembles scorer results into a stable, persisted report.
type Aggregator struct {
	logger zerolog.Logger
}

func NewAggregator(logger zerolog.Logger) *Aggregator {
	return &Aggregator{logger: logger.With().Str("component", "aggregator").Logger()}
}

// Aggregate orders results by clip index and computes run statistics. The
// average includes failed sequences at probability 0, so a run with many
// errors reads as a weak run rather than hiding them.
func (a *Aggregator) Aggregate(results []SequenceScore, elapsed time.Duration) *Analysis {
	ordered := make([]SequenceScore, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ClipIndex < ordered[j].ClipIndex
	})

	var (
		sum       float64
		succeeded int
		high      int
	)
	summary := make(map[string]SummaryEntry, len(ordered))
	for _, r := range ordered {
		sum += r.Probability
		if r.Status == StatusSuccess {
			succeeded++
		}
		if r.Probability > highProbabilityCutoff {
			high++
		}
		// Failed sequences count toward the statistics but never become
		// summary entries.
		if r.Status == StatusSuccess {
			summary[fmt.Sprintf("%d", r.ClipIndex)] = SummaryEntry{
				Score:     r.Probability,
				Sequence:  r.Sequence,
				NumFrames: r.NumFrames,
			}
		}
	}

	avg := 0.0
	if len(ordered) > 0 {
		avg = sum / float64(len(ordered))
	}

	a.logger.Info().
		Int("sequences", len(ordered)).
		Int("succeeded", succeeded).
		Int("high_probability", high).
		Float64("average_probability", avg).
		Msg("analysis aggregated")

	return &Analysis{
		Metadata: AnalysisMetadata{
			TotalSequences:        len(ordered),
			SuccessfulAnalyses:    succeeded,
			ProcessingTimeSeconds: elapsed.Seconds(),
			AverageProbability:    avg,
			HighProbabilityCount:  high,
			Timestamp:             time.Now().Format(time.RFC3339),
		},
		Summary:   summary,
		Sequences: ordered,
	}
}

// Write persists the analysis as indented JSON.
func (an *Analysis) Write(path string) error {
	data, err := json.MarshalIndent(an, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling analysis: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing analysis: %w", err)
	}
	return nil
}

// ReadAnalysis loads a previously written analysis file.
func ReadAnalysis(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading analysis: %w", err)
	}
	var an Analysis
	if err := json.Unmarshal(data, &an); err != nil {
		return nil, fmt.Errorf("parsing analysis: %w", err)
	}
	return &an, nil
}
