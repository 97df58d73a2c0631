package feature

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MFCC extracts mel-frequency cepstral coefficients.
type MFCC struct {
	analyzer *melAnalyzer
	dct      *mat.Dense
}

// NewMFCC creates an MFCC extractor.
func NewMFCC(cfg Config) (*MFCC, error) {
	if cfg.NumMFCC <= 0 || cfg.NumMFCC > cfg.NumMels {
		return nil, fmt.Errorf("number of mfcc coefficients must be within [1, %d] but was %d", cfg.NumMels, cfg.NumMFCC)
	}

	analyzer, err := newMelAnalyzer(cfg)
	if err != nil {
		return nil, fmt.Errorf("new mfcc extractor: %w", err)
	}

	return &MFCC{
		analyzer: analyzer,
		dct:      dctBasis(cfg.NumMFCC, cfg.NumMels),
	}, nil
}

// Extract returns the [NumMFCC x frames] coefficient matrix.
func (e *MFCC) Extract(samples []float64) (*mat.Dense, error) {
	mel, err := e.analyzer.melPower(samples)
	if err != nil {
		return nil, err
	}

	powerToDB(mel, 1, e.analyzer.cfg.TopDB)

	_, frames := mel.Dims()
	coefficients := mat.NewDense(e.analyzer.cfg.NumMFCC, frames, nil)
	coefficients.Mul(e.dct, mel)

	return coefficients, nil
}

// Features returns the per-coefficient mean over all frames.
func (e *MFCC) Features(samples []float64) ([]float64, error) {
	coefficients, err := e.Extract(samples)
	if err != nil {
		return nil, err
	}

	rows, _ := coefficients.Dims()
	features := make([]float64, rows)

	for i := range features {
		features[i] = stat.Mean(mat.Row(nil, i, coefficients), nil)
	}

	return features, nil
}

// Len returns the length of the feature vector.
func (e *MFCC) Len() int {
	return e.analyzer.cfg.NumMFCC
}
