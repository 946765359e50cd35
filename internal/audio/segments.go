package audio

import (
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// Segment is one exciting interval in seconds, End > Start.
type Segment struct {
	Start float64
	End   float64
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 { return s.End - s.Start }

// Thresholder computes the score cutoff for one video's series.
type Thresholder interface {
	Threshold(scores []float64) float64
}

// FixedThreshold is an absolute cutoff.
type FixedThreshold struct {
	Value float64
}

func (f FixedThreshold) Threshold([]float64) float64 { return f.Value }

// PercentileThreshold cuts at a percentile of the whole series, making the
// cutoff adaptive per video. Computed globally; long videos with
// non-stationary excitement keep this behavior on purpose.
type PercentileThreshold struct {
	Percentile float64
}

func (p PercentileThreshold) Threshold(scores []float64) float64 {
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	return stat.Quantile(p.Percentile/100, stat.LinInterp, sorted, nil)
}

// SegmentFinder thresholds a feature series into candidate segments.
type SegmentFinder struct {
	logger      zerolog.Logger
	thresholder Thresholder
	minDuration float64
}

// NewSegmentFinder creates a finder that keeps runs above the threshold
// lasting at least minDuration seconds.
func NewSegmentFinder(logger zerolog.Logger, thresholder Thresholder, minDuration float64) *SegmentFinder {
	return &SegmentFinder{
		logger:      logger.With().Str("component", "segment-finder").Logger(),
		thresholder: thresholder,
		minDuration: minDuration,
	}
}

// Find scans the series once in time order. A run of windows scoring above
// the threshold opens a candidate at the first window and closes at the
// first window at or below it; runs shorter than the minimum duration are
// discarded. A run still open at the end closes at the final timestamp.
func (f *SegmentFinder) Find(series *FeatureSeries) []Segment {
	if series.Len() == 0 {
		return nil
	}

	threshold := f.thresholder.Threshold(series.Scores)
	f.logger.Debug().Float64("threshold", threshold).Msg("thresholding series")

	var segments []Segment
	start := -1.0
	open := false

	for i, score := range series.Scores {
		t := series.Times[i]
		if score > threshold {
			if !open {
				start = t
				open = true
			}
		} else if open {
			if t-start >= f.minDuration {
				segments = append(segments, Segment{Start: start, End: t})
			}
			open = false
		}
	}

	if open {
		end := series.Times[series.Len()-1]
		if end-start >= f.minDuration {
			segments = append(segments, Segment{Start: start, End: end})
		}
	}

	f.logger.Info().
		Int("segments", len(segments)).
		Float64("threshold", threshold).
		Msg("candidate segments found")
	return segments
}

// MergeClose merges time-ordered segments whose gap is at most gapThreshold
// seconds, in a single forward pass. Later segments never re-merge into
// earlier, non-adjacent ones.
func MergeClose(segments []Segment, gapThreshold float64) []Segment {
	if len(segments) == 0 {
		return nil
	}

	merged := []Segment{segments[0]}
	for _, seg := range segments[1:] {
		last := &merged[len(merged)-1]
		if seg.Start-last.End <= gapThreshold {
			if seg.End > last.End {
				last.End = seg.End
			}
		} else {
			merged = append(merged, seg)
		}
	}
	return merged
}
