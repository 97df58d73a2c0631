package audio

import (
	"math"
)

const (
	trimFrameLength = 2048
	trimHopLength   = 512

	// DefaultTopDB is the threshold below the loudest frame that counts as silence.
	DefaultTopDB = 60
)

// Trim strips leading and trailing silence from the signal.
// A frame is silent when its energy is more than topDB below the loudest frame's energy.
func Trim(samples []float64, topDB float64) []float64 {
	if len(samples) == 0 {
		return samples
	}

	energy := frameEnergy(samples, trimFrameLength, trimHopLength)

	maxEnergy := 0.0
	for _, e := range energy {
		maxEnergy = math.Max(maxEnergy, e)
	}

	ref := powerToDB(maxEnergy)
	first, last := -1, -1

	for i, e := range energy {
		if powerToDB(e)-ref > -topDB {
			if first < 0 {
				first = i
			}

			last = i
		}
	}

	if first < 0 {
		return samples[:0]
	}

	start := first * trimHopLength
	end := min(len(samples), (last+1)*trimHopLength)

	return samples[start:end]
}

// frameEnergy returns the mean square of each centered, zero padded frame.
func frameEnergy(samples []float64, frameLength, hopLength int) []float64 {
	pad := frameLength / 2
	frames := 1 + len(samples)/hopLength
	energy := make([]float64, frames)

	for t := range energy {
		start := t*hopLength - pad
		sum := 0.0

		for i := max(start, 0); i < min(start+frameLength, len(samples)); i++ {
			sum += samples[i] * samples[i]
		}

		energy[t] = sum / float64(frameLength)
	}

	return energy
}

func powerToDB(power float64) float64 {
	return 10 * math.Log10(math.Max(power, 1e-10))
}
