// Package soundgen synthesizes simple signals: the "speak now" prompt of the live check
// and deterministic clips for exercising the pipeline.
package soundgen

import (
	"fmt"
	"math"
	"time"

	"github.com/mgoltzsche/voicetrust/internal/audio"
)

type Generator struct {
	SampleRate int
}

// Tone returns a sine wave of the given frequency and peak amplitude.
func (g *Generator) Tone(frequency float64, duration time.Duration, amplitude float64) audio.Clip {
	data := make([]float64, g.samples(duration))
	for i := range data {
		phase := frequency * float64(i) / float64(g.SampleRate)

		data[i] = amplitude * math.Sin(2*math.Pi*phase)
	}

	return audio.Clip{Samples: data, SampleRate: g.SampleRate}
}

// Silence returns a clip of zero samples.
func (g *Generator) Silence(duration time.Duration) audio.Clip {
	return audio.Clip{Samples: make([]float64, g.samples(duration)), SampleRate: g.SampleRate}
}

// Beep returns the WAV encoded prompt played before a recording starts.
func (g *Generator) Beep() ([]byte, error) {
	return g.WAV(g.Tone(500, 300*time.Millisecond, 0.8))
}

// WAV encodes the clip.
func (g *Generator) WAV(clip audio.Clip) ([]byte, error) {
	b, err := audio.EncodeWAV(clip)
	if err != nil {
		return nil, fmt.Errorf("generate sound: %w", err)
	}

	return b, nil
}

// Concat joins clips of the generator's sample rate.
func Concat(clips ...audio.Clip) audio.Clip {
	result := audio.Clip{}
	for _, c := range clips {
		result.SampleRate = c.SampleRate
		result.Samples = append(result.Samples, c.Samples...)
	}
	return result
}

func (g *Generator) samples(duration time.Duration) int {
	return int(math.Ceil(duration.Seconds() * float64(g.SampleRate)))
}
