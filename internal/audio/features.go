package audio

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Weights holds the fixed combination weights for the excitement score.
type Weights struct {
	Energy   float64
	Contrast float64
	RMS      float64
}

// Params configures excitement feature extraction.
type Params struct {
	SampleRate     int
	HopLength      int
	WindowSize     int
	MelBands       int
	HighBandCutoff int
	Weights        Weights
}

// DefaultParams returns the extraction parameters used for sports audio.
func DefaultParams() Params {
	return Params{
		SampleRate:     22050,
		HopLength:      512,
		WindowSize:     2048,
		MelBands:       128,
		HighBandCutoff: 40,
		Weights:        Weights{Energy: 0.4, Contrast: 0.3, RMS: 0.3},
	}
}

// FeatureSeries is the per-window excitement signal for one video. Times are
// strictly increasing seconds; scores are normalized to [0,1] over the run.
type FeatureSeries struct {
	Times  []float64
	Scores []float64
}

// Len returns the number of windows in the series.
func (s *FeatureSeries) Len() int { return len(s.Scores) }

// FeatureExtractor computes a per-window excitement score from mono PCM.
type FeatureExtractor struct {
	logger zerolog.Logger
	params Params
	fft    *fourier.FFT
	window []float64
	mel    [][]float64
	bands  []contrastBand
}

// contrastBand is one octave sub-band for spectral contrast, as a half-open
// bin range [lo, hi).
type contrastBand struct {
	lo, hi int
}

// NewFeatureExtractor creates an extractor for the given parameters.
func NewFeatureExtractor(logger zerolog.Logger, params Params) *FeatureExtractor {
	n := params.WindowSize
	window := make([]float64, n)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}

	return &FeatureExtractor{
		logger: logger.With().Str("component", "feature-extractor").Logger(),
		params: params,
		fft:    fourier.NewFFT(n),
		window: window,
		mel:    melFilterbank(params.MelBands, n, params.SampleRate),
		bands:  contrastBands(n, params.SampleRate),
	}
}

// Extract computes the excitement score series for mono samples at the
// configured sample rate. Deterministic for identical input and parameters.
func (e *FeatureExtractor) Extract(samples []float64) (*FeatureSeries, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio samples")
	}

	p := e.params
	nFrames := 1 + len(samples)/p.HopLength
	nBins := p.WindowSize/2 + 1

	e.logger.Info().
		Int("samples", len(samples)).
		Int("frames", nFrames).
		Msg("extracting excitement features")

	highBand := make([]float64, nFrames)
	contrast := make([]float64, nFrames)
	rms := make([]float64, nFrames)
	melSpec := make([][]float64, nFrames)

	frame := make([]float64, p.WindowSize)
	power := make([]float64, nBins)

	for t := 0; t < nFrames; t++ {
		// Window is centered on t*hop; edges reflect.
		origin := t*p.HopLength - p.WindowSize/2
		var sumSq float64
		for i := 0; i < p.WindowSize; i++ {
			s := samples[reflectIndex(origin+i, len(samples))]
			sumSq += s * s
			frame[i] = s * e.window[i]
		}
		rms[t] = math.Sqrt(sumSq / float64(p.WindowSize))

		coeffs := e.fft.Coefficients(nil, frame)
		for i, c := range coeffs {
			power[i] = real(c)*real(c) + imag(c)*imag(c)
		}

		melSpec[t] = applyFilterbank(e.mel, power)
		contrast[t] = e.spectralContrast(power)
	}

	for t, bands := range melDB(melSpec) {
		highBand[t] = mean(bands[p.HighBandCutoff:])
	}

	scores := make([]float64, nFrames)
	energyN := normalize(highBand)
	contrastN := normalize(contrast)
	rmsN := normalize(rms)
	for t := range scores {
		scores[t] = p.Weights.Energy*energyN[t] +
			p.Weights.Contrast*contrastN[t] +
			p.Weights.RMS*rmsN[t]
	}

	times := make([]float64, nFrames)
	for t := range times {
		times[t] = float64(t*p.HopLength) / float64(p.SampleRate)
	}

	return &FeatureSeries{Times: times, Scores: scores}, nil
}

// spectralContrast averages the peak/valley spread over the octave bands of
// one frame's power spectrum, in dB.
func (e *FeatureExtractor) spectralContrast(power []float64) float64 {
	const alpha = 0.02
	var total float64
	var counted int
	for _, b := range e.bands {
		if b.hi <= b.lo {
			continue
		}
		band := append([]float64(nil), power[b.lo:b.hi]...)
		sortFloats(band)
		k := int(alpha * float64(len(band)))
		if k < 1 {
			k = 1
		}
		valley := mean(band[:k])
		peak := mean(band[len(band)-k:])
		total += toDB(peak) - toDB(valley)
		counted++
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

// normalize rescales a signal to [0,1] over the whole series. A constant
// signal maps to all zeros instead of dividing by zero.
func normalize(xs []float64) []float64 {
	min, max := math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		min = math.Min(min, x)
		max = math.Max(max, x)
	}
	out := make([]float64, len(xs))
	if max == min {
		return out
	}
	for i, x := range xs {
		out[i] = (x - min) / (max - min)
	}
	return out
}

// melDB converts the mel power spectrogram to dB relative to its global
// maximum, clamped to a floor 80 dB below the peak.
func melDB(spec [][]float64) [][]float64 {
	const amin = 1e-10
	const topDB = 80.0

	ref := amin
	for _, frame := range spec {
		for _, v := range frame {
			if v > ref {
				ref = v
			}
		}
	}
	refDB := 10 * math.Log10(ref)

	out := make([][]float64, len(spec))
	floor := -topDB
	for t, frame := range spec {
		row := make([]float64, len(frame))
		for i, v := range frame {
			db := 10*math.Log10(math.Max(amin, v)) - refDB
			if db < floor {
				db = floor
			}
			row[i] = db
		}
		out[t] = row
	}
	return out
}

func toDB(v float64) float64 {
	return 10 * math.Log10(math.Max(1e-10, v))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// reflectIndex maps an out-of-range index back into [0,n) by mirroring at
// the edges.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i = ((i % period) + period) % period
	if i >= n {
		i = period - i
	}
	return i
}
