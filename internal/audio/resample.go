package audio

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts mono samples from one sample rate to another.
func Resample(samples []float64, from, to int) ([]float64, error) {
	if from == to || len(samples) == 0 {
		return samples, nil
	}

	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("resample: invalid sample rate conversion %d -> %d", from, to)
	}

	resampler, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}

	output, err := resampler.Process(samples)
	if err != nil {
		return nil, fmt.Errorf("resample %d -> %d: %w", from, to, err)
	}

	tail, err := resampler.Flush()
	if err != nil {
		return nil, fmt.Errorf("flush resampler: %w", err)
	}

	output = append(output, tail...)

	// The filter tail may overshoot the converted length.
	if expected := resampledLength(len(samples), from, to); len(output) > expected {
		output = output[:expected]
	}

	return output, nil
}

func resampledLength(n, from, to int) int {
	return int(math.Ceil(float64(n) * float64(to) / float64(from)))
}
