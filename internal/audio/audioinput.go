package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 512 * 9

// Input records fixed-length clips from a microphone.
type Input struct {
	Device     string
	SampleRate int
}

// Record opens the audio input device and captures the given duration of mono audio.
func (o *Input) Record(ctx context.Context, duration time.Duration) (Clip, error) {
	device, err := lookupDevice(o.Device, directionInput)
	if err != nil {
		return Clip{}, err
	}

	in := make([]int16, framesPerBuffer) // int16 captures 16-bit samples
	audioStream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      device.DefaultSampleRate,
		FramesPerBuffer: len(in),
	}, &in)
	if err != nil {
		return Clip{}, fmt.Errorf("opening audio input stream: %w", err)
	}
	defer func() {
		if err := audioStream.Close(); err != nil {
			slog.Warn("failed to close input audio stream", "err", err)
		}
	}()

	err = audioStream.Start()
	if err != nil {
		return Clip{}, fmt.Errorf("starting audio input stream: %w", err)
	}
	defer func() {
		if err := audioStream.Stop(); err != nil {
			slog.Warn("failed to stop input audio stream", "err", err)
		}
	}()

	deviceRate := int(device.DefaultSampleRate)
	total := int(math.Ceil(duration.Seconds() * float64(deviceRate)))
	recording := make([]int16, 0, total+len(in))

	for len(recording) < total {
		select {
		case <-ctx.Done():
			return Clip{}, ctx.Err()
		default:
		}

		if err := audioStream.Read(); err != nil {
			if err == portaudio.InputOverflowed {
				slog.Warn("audio input overflowed - dropped samples")
				continue
			}

			return Clip{}, fmt.Errorf("read audio input stream: %w", err)
		}

		recording = append(recording, in...)
	}

	slog.Debug("recorded audio", "samples", len(recording), "volume", calculateRMS16(recording))

	samples, err := Resample(int16ToFloat(recording[:total]), deviceRate, o.SampleRate)
	if err != nil {
		return Clip{}, err
	}

	return Clip{Samples: samples, SampleRate: o.SampleRate}, nil
}

// Stream records consecutive clips of the given duration until the context is cancelled.
func (o *Input) Stream(ctx context.Context, duration time.Duration) <-chan Clip {
	ch := make(chan Clip, 2)

	go func() {
		defer close(ch)

		for ctx.Err() == nil {
			clip, err := o.Record(ctx, duration)
			if err != nil {
				if ctx.Err() == nil {
					slog.Error("record audio", "err", err)
				}
				return
			}

			select {
			case ch <- clip:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// calculateRMS16 calculates the root mean square of the audio buffer for int16 samples.
func calculateRMS16(buffer []int16) float64 {
	if len(buffer) == 0 {
		return 0
	}
	var sumSquares float64
	for _, sample := range buffer {
		val := float64(sample)
		sumSquares += val * val
	}
	return math.Sqrt(sumSquares / float64(len(buffer)))
}
