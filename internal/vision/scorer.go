package vision

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Result statuses. Every clip yields exactly one result; a failed request
// degrades to an error-tagged result instead of aborting the batch.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// FrameSequence is the scoring input for one clip: its index and the
// ordered frame files on disk.
type FrameSequence struct {
	ClipIndex  int
	Key        string
	FramePaths []string
}

// SequenceScore is the model's judgment on one clip's frame sequence.
type SequenceScore struct {
	Timestamp   string  `json:"timestamp"`
	ClipIndex   int     `json:"highlight_num"`
	Sequence    string  `json:"sequence"`
	Probability float64 `json:"highlight_probability"`
	Explanation string  `json:"explanation"`
	RawResponse string  `json:"raw_response"`
	NumFrames   int     `json:"num_frames"`
	Status      string  `json:"status"`
	Error       string  `json:"error,omitempty"`
}

// SequenceScorer submits clip frame sequences to the model through a
// bounded worker pool.
type SequenceScorer struct {
	logger  zerolog.Logger
	client  *Client
	workers int
}

// NewSequenceScorer creates a scorer with the given pool size.
func NewSequenceScorer(logger zerolog.Logger, client *Client, workers int) *SequenceScorer {
	if workers < 1 {
		workers = 1
	}
	return &SequenceScorer{
		logger:  logger.With().Str("component", "sequence-scorer").Logger(),
		client:  client,
		workers: workers,
	}
}

// ScoreAll scores every sequence and collects all results, success and
// error alike. Workers write into a results channel joined here, so no
// shared state is mutated concurrently. Completion order is
// non-deterministic; callers order by clip index via Aggregate.
func (s *SequenceScorer) ScoreAll(ctx context.Context, sequences []FrameSequence) []SequenceScore {
	jobs := make(chan FrameSequence)
	results := make(chan SequenceScore)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seq := range jobs {
				results <- s.scoreOne(ctx, seq)
			}
		}()
	}

	go func() {
		for _, seq := range sequences {
			jobs <- seq
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	collected := make([]SequenceScore, 0, len(sequences))
	for r := range results {
		collected = append(collected, r)
	}
	return collected
}

func (s *SequenceScorer) scoreOne(ctx context.Context, seq FrameSequence) SequenceScore {
	s.logger.Debug().
		Int("clip", seq.ClipIndex).
		Int("frames", len(seq.FramePaths)).
		Msg("scoring sequence")

	images := make([][]byte, 0, len(seq.FramePaths))
	for _, path := range seq.FramePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return s.errorResult(seq, fmt.Errorf("reading frame %s: %w", path, err))
		}
		if len(data) == 0 {
			return s.errorResult(seq, fmt.Errorf("empty frame file %s", path))
		}
		images = append(images, data)
	}

	raw, err := s.client.Generate(ctx, sequencePrompt(len(images)), images)
	if err != nil {
		return s.errorResult(seq, err)
	}

	probability, sequence, explanation := parseSequenceResponse(raw)

	s.logger.Info().
		Int("clip", seq.ClipIndex).
		Float64("probability", probability).
		Str("sequence", sequence).
		Msg("sequence scored")

	return SequenceScore{
		Timestamp:   seq.Key,
		ClipIndex:   seq.ClipIndex,
		Sequence:    sequence,
		Probability: probability,
		Explanation: explanation,
		RawResponse: raw,
		NumFrames:   len(images),
		Status:      StatusSuccess,
	}
}

func (s *SequenceScorer) errorResult(seq FrameSequence, err error) SequenceScore {
	s.logger.Warn().Err(err).Int("clip", seq.ClipIndex).Msg("sequence scoring failed")
	return SequenceScore{
		Timestamp:   seq.Key,
		ClipIndex:   seq.ClipIndex,
		Probability: 0.0,
		Explanation: err.Error(),
		NumFrames:   len(seq.FramePaths),
		Status:      StatusError,
		Error:       err.Error(),
	}
}

// parseSequenceResponse parses the fixed three-line grammar. Missing or
// malformed lines degrade to empty text and probability 0; the probability
// is clamped to [0,1].
func parseSequenceResponse(raw string) (probability float64, sequence, explanation string) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SEQUENCE:"):
			sequence = strings.TrimSpace(strings.TrimPrefix(line, "SEQUENCE:"))
		case strings.HasPrefix(line, "HIGHLIGHT_SCORE:"):
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "HIGHLIGHT_SCORE:")), 64)
			if err == nil {
				probability = clamp01(v)
			}
		case strings.HasPrefix(line, "EXPLANATION:"):
			explanation = strings.TrimSpace(strings.TrimPrefix(line, "EXPLANATION:"))
		}
	}
	return probability, sequence, explanation
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
