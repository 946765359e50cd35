package audio

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParams shrinks the window so tests run on short signals.
func testParams() Params {
	p := DefaultParams()
	p.WindowSize = 512
	p.HopLength = 128
	p.MelBands = 32
	p.HighBandCutoff = 10
	return p
}

// tone synthesizes a sine at freq Hz for n samples.
func tone(freq float64, amp float64, sr, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sr))
	}
	return out
}

func TestExtractScoresAreBoundedAndFinite(t *testing.T) {
	e := NewFeatureExtractor(zerolog.Nop(), testParams())

	// Quiet tone with a loud noisy burst in the middle.
	samples := tone(440, 0.05, 22050, 22050)
	for i := 8000; i < 12000; i++ {
		samples[i] = 0.9 * math.Sin(2*math.Pi*3000*float64(i)/22050)
	}

	series, err := e.Extract(samples)
	require.NoError(t, err)
	require.Equal(t, 1+len(samples)/128, series.Len())

	for i, s := range series.Scores {
		assert.False(t, math.IsNaN(s), "score %d is NaN", i)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestExtractConstantSignalYieldsZeros(t *testing.T) {
	e := NewFeatureExtractor(zerolog.Nop(), testParams())

	series, err := e.Extract(make([]float64, 22050))
	require.NoError(t, err)

	for _, s := range series.Scores {
		assert.False(t, math.IsNaN(s))
		assert.Zero(t, s)
	}
}

func TestExtractTimesAreHopSpaced(t *testing.T) {
	p := testParams()
	e := NewFeatureExtractor(zerolog.Nop(), p)

	series, err := e.Extract(tone(440, 0.5, p.SampleRate, p.SampleRate))
	require.NoError(t, err)

	step := float64(p.HopLength) / float64(p.SampleRate)
	for i, ts := range series.Times {
		assert.InDelta(t, float64(i)*step, ts, 1e-9)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	e := NewFeatureExtractor(zerolog.Nop(), testParams())
	samples := tone(880, 0.5, 22050, 11025)

	a, err := e.Extract(samples)
	require.NoError(t, err)
	b, err := e.Extract(samples)
	require.NoError(t, err)
	assert.Equal(t, a.Scores, b.Scores)
}

func TestExtractEmptyInput(t *testing.T) {
	e := NewFeatureExtractor(zerolog.Nop(), testParams())
	_, err := e.Extract(nil)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	out := normalize([]float64{2, 4, 6})
	assert.Equal(t, []float64{0, 0.5, 1}, out)
}

func TestNormalizeConstant(t *testing.T) {
	out := normalize([]float64{3, 3, 3})
	assert.Equal(t, []float64{0, 0, 0}, out)
}

func TestReflectIndex(t *testing.T) {
	// Mirrors at both edges without repeating the edge sample.
	assert.Equal(t, 1, reflectIndex(-1, 5))
	assert.Equal(t, 2, reflectIndex(-2, 5))
	assert.Equal(t, 0, reflectIndex(0, 5))
	assert.Equal(t, 4, reflectIndex(4, 5))
	assert.Equal(t, 3, reflectIndex(5, 5))
	assert.Equal(t, 2, reflectIndex(6, 5))
}

func TestMelScaleRoundTrip(t *testing.T) {
	for _, hz := range []float64{0, 500, 1000, 4000, 11025} {
		assert.InDelta(t, hz, melToHz(hzToMel(hz)), 1e-6)
	}
}

func TestMelFilterbankShape(t *testing.T) {
	filters := melFilterbank(32, 512, 22050)
	require.Len(t, filters, 32)
	for i, f := range filters {
		require.Len(t, f, 257)
		var sum float64
		for _, w := range f {
			assert.GreaterOrEqual(t, w, 0.0)
			sum += w
		}
		assert.Greater(t, sum, 0.0, "filter %d is empty", i)
	}
}
