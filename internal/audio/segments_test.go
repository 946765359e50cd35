package audio

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesFrom(times, scores []float64) *FeatureSeries {
	return &FeatureSeries{Times: times, Scores: scores}
}

// ramp builds a series at dt-second spacing from a score pattern.
func ramp(dt float64, scores ...float64) *FeatureSeries {
	times := make([]float64, len(scores))
	for i := range scores {
		times[i] = float64(i) * dt
	}
	return seriesFrom(times, scores)
}

func TestSegmentFinderKeepsRunsAtMinDuration(t *testing.T) {
	finder := NewSegmentFinder(zerolog.Nop(), FixedThreshold{Value: 0.5}, 1.5)

	// Run from t=0.5 to t=2.0: exactly 1.5s, kept.
	series := ramp(0.5, 0.0, 0.8, 0.9, 0.7, 0.2, 0.1)
	segments := finder.Find(series)
	require.Len(t, segments, 1)
	assert.Equal(t, 0.5, segments[0].Start)
	assert.Equal(t, 2.0, segments[0].End)
}

func TestSegmentFinderDropsShortRuns(t *testing.T) {
	finder := NewSegmentFinder(zerolog.Nop(), FixedThreshold{Value: 0.5}, 1.5)

	// Run from t=0.5 to t=1.99: just under the minimum, dropped.
	series := seriesFrom(
		[]float64{0.0, 0.5, 1.0, 1.99, 2.5},
		[]float64{0.1, 0.8, 0.9, 0.4, 0.1},
	)
	assert.Empty(t, finder.Find(series))
}

func TestSegmentFinderClosesTrailingRunAtFinalTimestamp(t *testing.T) {
	finder := NewSegmentFinder(zerolog.Nop(), FixedThreshold{Value: 0.5}, 1.5)

	series := ramp(1.0, 0.1, 0.8, 0.9, 0.9)
	segments := finder.Find(series)
	require.Len(t, segments, 1)
	assert.Equal(t, 1.0, segments[0].Start)
	assert.Equal(t, 3.0, segments[0].End)
}

func TestSegmentFinderScoreAtThresholdCloses(t *testing.T) {
	finder := NewSegmentFinder(zerolog.Nop(), FixedThreshold{Value: 0.5}, 0.5)

	// Threshold comparison is strict: 0.5 does not keep the run open.
	series := ramp(1.0, 0.8, 0.9, 0.5, 0.1)
	segments := finder.Find(series)
	require.Len(t, segments, 1)
	assert.Equal(t, 2.0, segments[0].End)
}

func TestSegmentFinderEmptySeries(t *testing.T) {
	finder := NewSegmentFinder(zerolog.Nop(), FixedThreshold{Value: 0.5}, 1.5)
	assert.Nil(t, finder.Find(&FeatureSeries{}))
}

func TestPercentileThresholdTracksDistribution(t *testing.T) {
	scores := make([]float64, 100)
	for i := range scores {
		scores[i] = float64(i) / 99
	}
	cutoff := PercentileThreshold{Percentile: 99}.Threshold(scores)
	assert.InDelta(t, 0.99, cutoff, 0.02)
}

func TestFixedThresholdIgnoresScores(t *testing.T) {
	assert.Equal(t, 0.5, FixedThreshold{Value: 0.5}.Threshold([]float64{0.9, 0.95}))
}

func TestMergeCloseJoinsWithinGap(t *testing.T) {
	merged := MergeClose([]Segment{{Start: 0, End: 2}, {Start: 3, End: 5}}, 4.0)
	require.Len(t, merged, 1)
	assert.Equal(t, Segment{Start: 0, End: 5}, merged[0])
}

func TestMergeCloseKeepsDistantSegments(t *testing.T) {
	in := []Segment{{Start: 0, End: 2}, {Start: 3, End: 5}}
	merged := MergeClose(in, 0.5)
	assert.Equal(t, in, merged)
}

func TestMergeCloseChainsForward(t *testing.T) {
	// Each gap is within the threshold, so the chain collapses in one pass.
	merged := MergeClose([]Segment{
		{Start: 0, End: 2},
		{Start: 4, End: 6},
		{Start: 8, End: 10},
	}, 4.0)
	require.Len(t, merged, 1)
	assert.Equal(t, Segment{Start: 0, End: 10}, merged[0])
}

func TestMergeCloseContainedSegment(t *testing.T) {
	// A segment ending before the previous one never shrinks the merge.
	merged := MergeClose([]Segment{{Start: 0, End: 10}, {Start: 2, End: 4}}, 4.0)
	require.Len(t, merged, 1)
	assert.Equal(t, Segment{Start: 0, End: 10}, merged[0])
}

func TestMergeCloseEmpty(t *testing.T) {
	assert.Nil(t, MergeClose(nil, 4.0))
}
