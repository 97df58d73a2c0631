// Package vad discards recorded clips that contain no speech before they reach the classifier.
package vad

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mgoltzsche/voicetrust/internal/audio"
	"github.com/streamer45/silero-vad-go/speech"
)

// SampleRate is the sample rate the silero model operates on.
const SampleRate = 16000

type Detector struct {
	ModelPath string
	// Threshold is the speech probability above which a window counts as speech. Defaults to 0.5.
	Threshold float32
}

// Gate forwards only those clips of the input channel that contain speech.
// The returned channel is closed when the input is closed or the context is done.
func (d *Detector) Gate(ctx context.Context, input <-chan audio.Clip) (<-chan audio.Clip, error) {
	threshold := d.Threshold
	if threshold <= 0 {
		threshold = 0.5
	}

	sileroVAD, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:  d.ModelPath,
		SampleRate: SampleRate,
		Threshold:  threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("create silero vad: %w", err)
	}

	ch := make(chan audio.Clip, 1)

	go func() {
		defer func() {
			if err := sileroVAD.Destroy(); err != nil {
				slog.Warn(fmt.Sprintf("destroy silero vad: %s", err))
			}
			close(ch)
		}()

		forwardSpeech(ctx, input, ch, func(samples []float32) (int, error) {
			segments, err := sileroVAD.Detect(samples)
			return len(segments), err
		})
	}()

	return ch, nil
}

// forwardSpeech sends the clips in which detect finds speech segments to out until input is closed or ctx is done.
func forwardSpeech(ctx context.Context, input <-chan audio.Clip, out chan<- audio.Clip, detect func([]float32) (int, error)) {
	for {
		var clip audio.Clip

		select {
		case <-ctx.Done():
			return
		case c, ok := <-input:
			if !ok {
				return
			}
			clip = c
		}

		start := time.Now()

		samples, err := speechInput(clip)
		if err != nil {
			slog.Warn(fmt.Sprintf("prepare voice activity detection input: %s", err))
			continue
		}

		segments, err := detect(samples)
		if err != nil {
			slog.Warn(fmt.Sprintf("detect voice activity: %s", err))
			continue
		}

		slog.Debug("voice activity detection", "detected", segments > 0, "segments", segments, "took", time.Since(start))

		if segments == 0 {
			slog.Info("no speech detected, skipping clip")
			continue
		}

		select {
		case out <- clip:
		case <-ctx.Done():
			return
		}
	}
}

func speechInput(clip audio.Clip) ([]float32, error) {
	samples := clip.Samples

	if clip.SampleRate != SampleRate {
		var err error

		samples, err = audio.Resample(samples, clip.SampleRate, SampleRate)
		if err != nil {
			return nil, err
		}
	}

	result := make([]float32, len(samples))
	for i, s := range samples {
		result[i] = float32(s)
	}

	return result, nil
}
