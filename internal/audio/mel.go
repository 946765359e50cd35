package audio

import (
	"math"
	"sort"
)

// Slaney-style mel scale: linear below 1 kHz, logarithmic above.
const (
	melLinearStep = 200.0 / 3
	melBreakHz    = 1000.0
	melBreak      = melBreakHz / melLinearStep
)

var melLogStep = math.Log(6.4) / 27

func hzToMel(hz float64) float64 {
	if hz < melBreakHz {
		return hz / melLinearStep
	}
	return melBreak + math.Log(hz/melBreakHz)/melLogStep
}

func melToHz(mel float64) float64 {
	if mel < melBreak {
		return mel * melLinearStep
	}
	return melBreakHz * math.Exp(melLogStep*(mel-melBreak))
}

// melFilterbank builds nMels triangular filters over the FFT bins of an
// nFFT-point transform, area-normalized per filter.
func melFilterbank(nMels, nFFT, sampleRate int) [][]float64 {
	nBins := nFFT/2 + 1
	fMax := float64(sampleRate) / 2

	melPoints := make([]float64, nMels+2)
	melMax := hzToMel(fMax)
	for i := range melPoints {
		melPoints[i] = melToHz(melMax * float64(i) / float64(nMels+1))
	}

	binHz := make([]float64, nBins)
	for i := range binHz {
		binHz[i] = float64(i) * float64(sampleRate) / float64(nFFT)
	}

	filters := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		lo, center, hi := melPoints[m], melPoints[m+1], melPoints[m+2]
		row := make([]float64, nBins)
		enorm := 2.0 / (hi - lo)
		for i, hz := range binHz {
			var w float64
			switch {
			case hz <= lo || hz >= hi:
				w = 0
			case hz <= center:
				w = (hz - lo) / (center - lo)
			default:
				w = (hi - hz) / (hi - center)
			}
			row[i] = w * enorm
		}
		filters[m] = row
	}
	return filters
}

// applyFilterbank projects one frame's power spectrum onto the mel bands.
func applyFilterbank(filters [][]float64, power []float64) []float64 {
	out := make([]float64, len(filters))
	for m, row := range filters {
		var sum float64
		for i, w := range row {
			if w != 0 {
				sum += w * power[i]
			}
		}
		out[m] = sum
	}
	return out
}

// contrastBands splits the spectrum into octave sub-bands starting at
// 200 Hz, capped at Nyquist, expressed as FFT bin ranges.
func contrastBands(nFFT, sampleRate int) []contrastBand {
	const fMin = 200.0
	const nBands = 6

	nBins := nFFT/2 + 1
	binWidth := float64(sampleRate) / float64(nFFT)
	nyquist := float64(sampleRate) / 2

	hzToBin := func(hz float64) int {
		b := int(math.Round(hz / binWidth))
		if b < 0 {
			b = 0
		}
		if b > nBins {
			b = nBins
		}
		return b
	}

	bands := make([]contrastBand, 0, nBands+1)
	bands = append(bands, contrastBand{lo: 0, hi: hzToBin(fMin)})
	low := fMin
	for i := 0; i < nBands; i++ {
		high := math.Min(low*2, nyquist)
		bands = append(bands, contrastBand{lo: hzToBin(low), hi: hzToBin(high)})
		low = high
	}
	return bands
}

func sortFloats(xs []float64) {
	sort.Float64s(xs)
}
