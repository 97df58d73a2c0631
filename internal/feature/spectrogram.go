package feature

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptySignal is returned when there are no samples to extract features from.
var ErrEmptySignal = errors.New("empty audio signal")

const amin = 1e-10

// Config controls the spectral analysis.
type Config struct {
	SampleRate int     // audio sample rate in Hz
	FFTSize    int     // FFT and window length (default 2048)
	HopSize    int     // hop length in samples (default 512)
	NumMels    int     // number of mel bands (default 128)
	NumMFCC    int     // number of cepstral coefficients (default 13)
	Frames     int     // fixed frame count of a mel spectrogram, 0 keeps all frames
	TopDB      float64 // dynamic range of the dB scaled spectrogram (default 80)
}

// DefaultConfig returns the librosa default settings for the given sample rate.
func DefaultConfig(sampleRate int) Config {
	return Config{
		SampleRate: sampleRate,
		FFTSize:    2048,
		HopSize:    512,
		NumMels:    128,
		NumMFCC:    13,
		TopDB:      80,
	}
}

func (c Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", c.SampleRate)
	}
	if c.FFTSize < 2 || c.FFTSize%2 != 0 {
		return fmt.Errorf("fft size must be a positive even number but was %d", c.FFTSize)
	}
	if c.HopSize <= 0 {
		return fmt.Errorf("invalid hop size %d", c.HopSize)
	}
	if c.NumMels <= 0 {
		return fmt.Errorf("invalid number of mel bands %d", c.NumMels)
	}
	return nil
}

// melAnalyzer computes mel power spectrograms.
type melAnalyzer struct {
	cfg     Config
	window  []float64
	melBank *mat.Dense
}

func newMelAnalyzer(cfg Config) (*melAnalyzer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &melAnalyzer{
		cfg:     cfg,
		window:  hannWindow(cfg.FFTSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, 0, float64(cfg.SampleRate)/2),
	}, nil
}

// melPower returns the [numMels x frames] mel power spectrogram of the centered signal.
func (a *melAnalyzer) melPower(samples []float64) (*mat.Dense, error) {
	if len(samples) == 0 {
		return nil, ErrEmptySignal
	}

	nfft := a.cfg.FFTSize
	hop := a.cfg.HopSize
	pad := nfft / 2
	numFrames := 1 + len(samples)/hop
	numBins := nfft/2 + 1

	fft := fourier.NewFFT(nfft)
	frame := make([]float64, nfft)
	coeffs := make([]complex128, numBins)
	power := mat.NewDense(numBins, numFrames, nil)

	for t := 0; t < numFrames; t++ {
		start := t*hop - pad

		for i := range frame {
			j := start + i
			if j < 0 || j >= len(samples) {
				frame[i] = 0
				continue
			}
			frame[i] = samples[j] * a.window[i]
		}

		coeffs = fft.Coefficients(coeffs, frame)

		for k, c := range coeffs {
			magnitude := cmplx.Abs(c)
			power.Set(k, t, magnitude*magnitude)
		}
	}

	mel := mat.NewDense(a.cfg.NumMels, numFrames, nil)
	mel.Mul(a.melBank, power)

	return mel, nil
}

// powerToDB converts a power spectrogram to dB relative to ref in place
// and clips it to topDB below its maximum.
func powerToDB(m *mat.Dense, ref, topDB float64) {
	refDB := 10 * math.Log10(math.Max(amin, ref))

	m.Apply(func(_, _ int, v float64) float64 {
		return 10*math.Log10(math.Max(amin, v)) - refDB
	}, m)

	if topDB > 0 {
		floor := mat.Max(m) - topDB
		m.Apply(func(_, _ int, v float64) float64 {
			return math.Max(v, floor)
		}, m)
	}
}
