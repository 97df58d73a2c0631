package soundgen

import (
	"bytes"
	"testing"
	"time"

	"github.com/mgoltzsche/voicetrust/internal/audio"
	"github.com/stretchr/testify/require"
)

func TestGenerator(t *testing.T) {
	g := &Generator{SampleRate: 16000}

	tone := g.Tone(1000, 250*time.Millisecond, 0.5)
	require.Len(t, tone.Samples, 4000)
	require.InDelta(t, 0, tone.Samples[0], 1e-12)
	require.InDelta(t, 0.5, tone.Samples[4], 1e-9, "peak after a quarter period")

	silence := g.Silence(time.Second)
	require.Len(t, silence.Samples, 16000)

	clip := Concat(silence, tone)
	require.Equal(t, 16000, clip.SampleRate)
	require.Len(t, clip.Samples, 20000)

	beep, err := g.Beep()
	require.NoError(t, err)

	decoded, err := audio.DecodeWAV(bytes.NewReader(beep))
	require.NoError(t, err)
	require.Equal(t, 16000, decoded.SampleRate)
	require.InDelta(t, 0.3, decoded.Duration(), 0.001)
}
