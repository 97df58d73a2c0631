package feature

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MelSpectrogram extracts a dB scaled mel spectrogram normalized to its loudest bin,
// the input of the convolutional classifier.
type MelSpectrogram struct {
	analyzer *melAnalyzer
}

func NewMelSpectrogram(cfg Config) (*MelSpectrogram, error) {
	if cfg.Frames < 0 {
		return nil, fmt.Errorf("invalid frame count %d", cfg.Frames)
	}

	analyzer, err := newMelAnalyzer(cfg)
	if err != nil {
		return nil, fmt.Errorf("new mel spectrogram extractor: %w", err)
	}

	return &MelSpectrogram{analyzer: analyzer}, nil
}

// ExtractDB returns the [NumMels x frames] spectrogram in dB, its maximum being 0.
func (e *MelSpectrogram) ExtractDB(samples []float64) (*mat.Dense, error) {
	mel, err := e.analyzer.melPower(samples)
	if err != nil {
		return nil, err
	}

	powerToDB(mel, mat.Max(mel), e.analyzer.cfg.TopDB)

	return mel, nil
}

// Features returns the spectrogram fitted to the configured frame count, flattened row by row.
func (e *MelSpectrogram) Features(samples []float64) ([]float64, error) {
	spec, err := e.ExtractDB(samples)
	if err != nil {
		return nil, err
	}

	if e.analyzer.cfg.Frames > 0 {
		spec = FixFrames(spec, e.analyzer.cfg.Frames)
	}

	rows, cols := spec.Dims()
	flat := make([]float64, 0, rows*cols)

	for i := 0; i < rows; i++ {
		flat = append(flat, spec.RawRowView(i)...)
	}

	return flat, nil
}

// Len returns the length of the flattened feature vector or 0 when the frame count is variable.
func (e *MelSpectrogram) Len() int {
	return e.analyzer.cfg.NumMels * e.analyzer.cfg.Frames
}

// FixFrames crops the spectrogram or pads it with its minimum value to the given number of frames.
func FixFrames(spec *mat.Dense, frames int) *mat.Dense {
	rows, cols := spec.Dims()
	fixed := mat.NewDense(rows, frames, nil)

	if cols < frames {
		floor := mat.Min(spec)
		fixed.Apply(func(_, _ int, _ float64) float64 { return floor }, fixed)
	}

	fixed.Copy(spec.Slice(0, rows, 0, min(cols, frames)))

	return fixed
}
