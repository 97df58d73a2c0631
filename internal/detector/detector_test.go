package detector

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/mgoltzsche/voicetrust/internal/audio"
	"github.com/mgoltzsche/voicetrust/internal/classifier"
	"github.com/mgoltzsche/voicetrust/internal/feature"
	"github.com/mgoltzsche/voicetrust/internal/soundgen"
	"github.com/mgoltzsche/voicetrust/internal/trust"
	"github.com/stretchr/testify/require"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()

	c, err := classifier.Load("../classifier/testdata/silence-detector.json")
	require.NoError(t, err)

	d, err := New(c, trust.DefaultPolicy())
	require.NoError(t, err)

	return d
}

func TestAnalyze(t *testing.T) {
	gen := &soundgen.Generator{SampleRate: 16000}

	for _, c := range []struct {
		name     string
		clip     audio.Clip
		score    int
		decision trust.Decision
		label    string
	}{
		{
			name:     "silence",
			clip:     gen.Silence(time.Second),
			score:    90,
			decision: trust.Allowed,
			label:    "real",
		},
		{
			name:     "tone",
			clip:     gen.Tone(440, time.Second, 0.5),
			score:    20,
			decision: trust.Blocked,
			label:    "deepfake",
		},
		{
			name:     "resampled and truncated",
			clip:     (&soundgen.Generator{SampleRate: 44100}).Tone(440, 5*time.Second, 0.5),
			score:    20,
			decision: trust.Blocked,
			label:    "deepfake",
		},
	} {
		t.Run(c.name, func(t *testing.T) {
			d := newTestDetector(t)

			wav, err := audio.EncodeWAV(c.clip)
			require.NoError(t, err)

			result, err := d.Analyze(context.Background(), bytes.NewReader(wav))
			require.NoError(t, err)
			require.Equal(t, c.score, result.TrustScore, "trust score")
			require.Equal(t, c.decision, result.Decision, "decision")
			require.Equal(t, c.label, result.Verdict.Label, "verdict")
			require.Len(t, result.Probabilities, 2)
			require.LessOrEqual(t, result.AudioDuration, 3.0)
		})
	}
}

type specOnlyClassifier classifier.FeatureSpec

func (c specOnlyClassifier) PredictProba([]float64) ([]float64, error) {
	return []float64{1, 0}, nil
}

func (c specOnlyClassifier) FeatureSpec() classifier.FeatureSpec {
	return classifier.FeatureSpec(c)
}

func TestNewUsesModelMelBands(t *testing.T) {
	spec := classifier.FeatureSpec{Kind: classifier.FeatureMFCC, SampleRate: 16000, NumMFCC: 20, NumMels: 40}

	d, err := New(specOnlyClassifier(spec), trust.DefaultPolicy())
	require.NoError(t, err)

	cfg := feature.DefaultConfig(16000)
	cfg.NumMFCC = 20
	cfg.NumMels = 40
	expected, err := feature.NewMFCC(cfg)
	require.NoError(t, err)

	samples := (&soundgen.Generator{SampleRate: 16000}).Tone(440, time.Second, 0.5).Samples
	want, err := expected.Features(samples)
	require.NoError(t, err)
	actual, err := d.extractor.Features(samples)
	require.NoError(t, err)
	require.Equal(t, want, actual)

	spec.NumMFCC = 41
	_, err = New(specOnlyClassifier(spec), trust.DefaultPolicy())
	require.Error(t, err, "more coefficients than mel bands")
}

func TestNewRejectsInvalidThreshold(t *testing.T) {
	c, err := classifier.Load("../classifier/testdata/silence-detector.json")
	require.NoError(t, err)

	_, err = New(c, trust.Policy{Threshold: -1})
	require.Error(t, err)

	d, err := New(c, trust.Policy{Threshold: 0})
	require.NoError(t, err)
	require.Equal(t, trust.Allowed, d.Policy().Decide(0))
}

func TestAnalyzeInvalidAudio(t *testing.T) {
	d := newTestDetector(t)

	_, err := d.Analyze(context.Background(), bytes.NewReader([]byte("not a wave file")))
	require.ErrorIs(t, err, audio.ErrInvalidAudio)
}

func TestAnalyzeCanceled(t *testing.T) {
	d := newTestDetector(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &soundgen.Generator{SampleRate: 16000}
	_, err := d.AnalyzeClip(ctx, gen.Silence(time.Second))
	require.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeStream(t *testing.T) {
	d := newTestDetector(t)
	gen := &soundgen.Generator{SampleRate: 16000}

	input := make(chan audio.Clip, 3)
	input <- gen.Silence(time.Second)
	input <- audio.Clip{SampleRate: 16000} // skipped
	input <- gen.Tone(440, time.Second, 0.5)
	close(input)

	scores := []int{}
	for result := range d.AnalyzeStream(context.Background(), input) {
		scores = append(scores, result.TrustScore)
	}

	require.Equal(t, []int{90, 20}, scores)
}
