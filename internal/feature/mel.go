package feature

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	melFreqStep   = 200.0 / 3
	melMinLogHz   = 1000.0
	melMinLogMel  = melMinLogHz / melFreqStep
	melLogStepInv = 27 / 1.8562979903656263 // 27 / ln(6.4)
)

// hzToMel converts a frequency to the Slaney mel scale (linear below 1 kHz, logarithmic above).
func hzToMel(hz float64) float64 {
	if hz < melMinLogHz {
		return hz / melFreqStep
	}
	return melMinLogMel + math.Log(hz/melMinLogHz)*melLogStepInv
}

func melToHz(mel float64) float64 {
	if mel < melMinLogMel {
		return mel * melFreqStep
	}
	return melMinLogHz * math.Exp((mel-melMinLogMel)/melLogStepInv)
}

// melFilterBank returns the [numMels x fftSize/2+1] triangular filter matrix, each filter scaled to unit area.
func melFilterBank(numMels, fftSize, sampleRate int, lowFreq, highFreq float64) *mat.Dense {
	numBins := fftSize/2 + 1

	fftFreqs := make([]float64, numBins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(fftSize)
	}

	lowMel, highMel := hzToMel(lowFreq), hzToMel(highFreq)
	melFreqs := make([]float64, numMels+2)
	for i := range melFreqs {
		melFreqs[i] = melToHz(lowMel + (highMel-lowMel)*float64(i)/float64(numMels+1))
	}

	bank := mat.NewDense(numMels, numBins, nil)

	for m := 0; m < numMels; m++ {
		left, center, right := melFreqs[m], melFreqs[m+1], melFreqs[m+2]
		norm := 2 / (right - left)

		for k, f := range fftFreqs {
			lower := (f - left) / (center - left)
			upper := (right - f) / (right - center)
			if w := math.Min(lower, upper); w > 0 {
				bank.Set(m, k, w*norm)
			}
		}
	}

	return bank
}

// dctBasis returns the [numCoefficients x n] orthonormal DCT-II matrix.
func dctBasis(numCoefficients, n int) *mat.Dense {
	basis := mat.NewDense(numCoefficients, n, nil)

	for k := 0; k < numCoefficients; k++ {
		scale := math.Sqrt(2 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1 / float64(n))
		}

		for i := 0; i < n; i++ {
			basis.Set(k, i, scale*math.Cos(math.Pi*float64(k)*float64(2*i+1)/float64(2*n)))
		}
	}

	return basis
}

// hannWindow returns a periodic Hann window.
func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size))
	}
	return w
}
