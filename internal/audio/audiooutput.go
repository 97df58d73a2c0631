package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Output plays short WAV prompts on a speaker.
type Output struct {
	Device string
}

// Play decodes the WAV data and blocks until it has been played.
func (o *Output) Play(ctx context.Context, wavData []byte) error {
	device, err := lookupDevice(o.Device, directionOutput)
	if err != nil {
		return err
	}

	clip, err := DecodeWAV(bytes.NewReader(wavData))
	if err != nil {
		return fmt.Errorf("decode prompt: %w", err)
	}

	samples, err := Resample(clip.Samples, clip.SampleRate, int(device.DefaultSampleRate))
	if err != nil {
		return err
	}

	out := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowOutputLatency,
		},
		SampleRate:      device.DefaultSampleRate,
		FramesPerBuffer: len(out),
	}, &out)
	if err != nil {
		return fmt.Errorf("open audio output stream: %w", err)
	}
	defer stream.Close()

	err = stream.Start()
	if err != nil {
		return fmt.Errorf("start audio output stream: %w", err)
	}
	defer stream.Stop()

	startTime := time.Now()
	pcm := floatToInt16Range(samples)

	for offset := 0; offset < len(pcm); offset += len(out) {
		n := copy(out, int16Slice(pcm[offset:min(offset+len(out), len(pcm))]))
		clear(out[n:]) // zero-pad the buffer after short chunk

		err = stream.Write()
		if err != nil {
			slog.Warn("play audio: write chunk", "err", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	// Wait for the audio to complete playing
	duration := time.Duration(clip.Duration() * float64(time.Second))
	time.Sleep(duration - time.Since(startTime))

	return nil
}

func int16Slice(samples []int) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = int16(s)
	}
	return out
}
