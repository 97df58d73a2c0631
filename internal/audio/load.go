package audio

import (
	"fmt"
	"io"
	"time"
)

// LoadOptions describes how audio is normalized before feature extraction.
type LoadOptions struct {
	// SampleRate to resample to. Zero keeps the native rate.
	SampleRate int
	// MaxDuration truncates longer audio. Zero keeps the full clip.
	MaxDuration time.Duration
	// Trim removes leading and trailing silence.
	Trim bool
	// TopDB is the silence threshold used by Trim. Defaults to DefaultTopDB.
	TopDB float64
}

// Load decodes WAV audio and applies the given options.
func Load(reader io.Reader, opts LoadOptions) (Clip, error) {
	clip, err := DecodeWAV(reader)
	if err != nil {
		return clip, err
	}

	return Normalize(clip, opts)
}

// Normalize resamples, truncates and trims an already decoded clip.
func Normalize(clip Clip, opts LoadOptions) (Clip, error) {
	if opts.SampleRate > 0 && opts.SampleRate != clip.SampleRate {
		samples, err := Resample(clip.Samples, clip.SampleRate, opts.SampleRate)
		if err != nil {
			return clip, fmt.Errorf("load audio: %w", err)
		}

		clip = Clip{Samples: samples, SampleRate: opts.SampleRate}
	}

	if opts.MaxDuration > 0 {
		maxSamples := int(opts.MaxDuration.Seconds() * float64(clip.SampleRate))
		if len(clip.Samples) > maxSamples {
			clip.Samples = clip.Samples[:maxSamples]
		}
	}

	if opts.Trim {
		topDB := opts.TopDB
		if topDB <= 0 {
			topDB = DefaultTopDB
		}

		clip.Samples = Trim(clip.Samples, topDB)
	}

	return clip, nil
}
