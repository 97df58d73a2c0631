package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// ErrInvalidAudio is returned when the provided data is no decodable PCM WAV audio.
var ErrInvalidAudio = errors.New("invalid audio")

// Clip holds mono audio samples normalized to [-1, 1].
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the playback duration of the clip.
func (c Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}

	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// DecodeWAV reads a PCM RIFF WAV stream and downmixes it to a mono clip.
func DecodeWAV(reader io.Reader) (Clip, error) {
	b, err := io.ReadAll(reader)
	if err != nil {
		return Clip{}, fmt.Errorf("read wave audio: %w", err)
	}

	decoder := wav.NewDecoder(bytes.NewReader(b))
	if !decoder.IsValidFile() {
		return Clip{}, fmt.Errorf("%w: not a wave file", ErrInvalidAudio)
	}

	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return Clip{}, fmt.Errorf("%w: read wave file headers: %s", ErrInvalidAudio, err)
	}

	format := decoder.WavAudioFormat
	if format == wavFormatExtensible {
		format = extensibleSubFormat(b)
	}
	if format != wavFormatPCM {
		return Clip{}, fmt.Errorf("%w: unsupported wave audio format %d, expected integer PCM", ErrInvalidAudio, format)
	}

	bitDepth := int(decoder.SampleBitDepth())
	if bitDepth != 8 && bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return Clip{}, fmt.Errorf("%w: unsupported bit depth of %d, expected 8, 16, 24 or 32", ErrInvalidAudio, bitDepth)
	}

	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("%w: read full pcm buffer: %s", ErrInvalidAudio, err)
	}

	channels := int(decoder.NumChans)
	if channels < 1 || decoder.SampleRate == 0 {
		return Clip{}, fmt.Errorf("%w: invalid wave format", ErrInvalidAudio)
	}

	if len(buffer.Data) < channels {
		return Clip{}, fmt.Errorf("%w: no samples", ErrInvalidAudio)
	}

	return Clip{
		Samples:    downmix(buffer.Data, channels, bitDepth),
		SampleRate: int(decoder.SampleRate),
	}, nil
}

// downmix averages the channels. 8 bit samples are unsigned with 128 as zero.
func downmix(data []int, channels, bitDepth int) []float64 {
	fullScale := float64(int64(1) << (bitDepth - 1))
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(data) / channels
	samples := make([]float64, frames)

	for i := range samples {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += data[i*channels+c] - offset
		}

		samples[i] = float64(sum) / float64(channels) / fullScale
	}

	return samples
}

// extensibleSubFormat returns the format code of a WAVE_FORMAT_EXTENSIBLE fmt chunk
// or 0 when it cannot be found.
func extensibleSubFormat(riff []byte) uint16 {
	const subFormatOffset = 24

	for pos := 12; pos+8 <= len(riff); {
		id := string(riff[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(riff[pos+4 : pos+8]))
		body := pos + 8

		if id == "fmt " {
			if size < subFormatOffset+2 || body+subFormatOffset+2 > len(riff) {
				return 0
			}

			return binary.LittleEndian.Uint16(riff[body+subFormatOffset:])
		}

		pos = body + size + size%2
	}

	return 0
}

// EncodeWAV encodes the clip as 16 bit mono RIFF WAV.
func EncodeWAV(clip Clip) ([]byte, error) {
	wavFile := &writerseeker.WriterSeeker{}
	encoder := wav.NewEncoder(wavFile, clip.SampleRate, 16, 1, 1)

	buffer := &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: clip.SampleRate, NumChannels: 1},
		Data:           floatToInt16Range(clip.Samples),
		SourceBitDepth: 16,
	}

	if err := encoder.Write(buffer); err != nil {
		return nil, fmt.Errorf("encoder write buffer: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encoder close: %w", err)
	}

	riffWav, err := io.ReadAll(wavFile.Reader())
	if err != nil {
		return nil, fmt.Errorf("reading wav into memory: %w", err)
	}

	return riffWav, nil
}

func floatToInt16Range(samples []float64) []int {
	data := make([]int, len(samples))

	for i, s := range samples {
		data[i] = int(math.Round(math.Max(-1, math.Min(1, s)) * math.MaxInt16))
	}

	return data
}

func int16ToFloat(input []int16) []float64 {
	output := make([]float64, len(input))
	for i, value := range input {
		output[i] = float64(value) / 32768
	}
	return output
}
