// Package detector runs the trust score pipeline:
// audio → feature vector → classifier probabilities → trust decision.
package detector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mgoltzsche/voicetrust/internal/audio"
	"github.com/mgoltzsche/voicetrust/internal/classifier"
	"github.com/mgoltzsche/voicetrust/internal/feature"
	"github.com/mgoltzsche/voicetrust/internal/trust"
)

// Result is the outcome of analyzing a single voice clip.
type Result struct {
	trust.Assessment
	Probabilities []float64     `json:"probabilities"`
	AudioDuration float64       `json:"audioDuration"` // seconds of audio after preprocessing
	Elapsed       time.Duration `json:"elapsed"`
}

// Detector analyzes voice clips using a pre-trained classifier.
type Detector struct {
	classifier classifier.Classifier
	extractor  feature.Extractor
	policy     trust.Policy
	load       audio.LoadOptions
}

// New creates a Detector whose preprocessing matches the classifier's training setup.
func New(c classifier.Classifier, policy trust.Policy) (*Detector, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("new detector: %w", err)
	}

	spec := c.FeatureSpec()
	cfg := feature.DefaultConfig(spec.SampleRate)

	var (
		extractor feature.Extractor
		err       error
	)

	switch spec.Kind {
	case classifier.FeatureMFCC:
		cfg.NumMFCC = spec.NumMFCC
		if spec.NumMels > 0 {
			cfg.NumMels = spec.NumMels
		}
		extractor, err = feature.NewMFCC(cfg)
	case classifier.FeatureMelSpectrogram:
		cfg.NumMels = spec.NumMels
		cfg.Frames = spec.Frames
		extractor, err = feature.NewMelSpectrogram(cfg)
	default:
		err = fmt.Errorf("unsupported feature kind %q", spec.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("new detector: %w", err)
	}

	return &Detector{
		classifier: c,
		extractor:  extractor,
		policy:     policy,
		load: audio.LoadOptions{
			SampleRate:  spec.SampleRate,
			MaxDuration: spec.MaxAudioDuration(),
			Trim:        spec.Trim,
		},
	}, nil
}

// Policy returns the decision policy.
func (d *Detector) Policy() trust.Policy {
	return d.policy
}

// Analyze decodes WAV audio and evaluates it.
func (d *Detector) Analyze(ctx context.Context, wav io.Reader) (Result, error) {
	clip, err := audio.DecodeWAV(wav)
	if err != nil {
		return Result{}, err
	}

	return d.AnalyzeClip(ctx, clip)
}

// AnalyzeClip evaluates already decoded audio.
func (d *Detector) AnalyzeClip(ctx context.Context, clip audio.Clip) (Result, error) {
	start := time.Now()

	clip, err := audio.Normalize(clip, d.load)
	if err != nil {
		return Result{}, err
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	features, err := d.extractor.Features(clip.Samples)
	if err != nil {
		return Result{}, fmt.Errorf("extract features: %w", err)
	}

	proba, err := d.classifier.PredictProba(features)
	if err != nil {
		return Result{}, fmt.Errorf("classify voice: %w", err)
	}

	assessment, err := d.policy.Assess(proba)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Assessment:    assessment,
		Probabilities: proba,
		AudioDuration: clip.Duration(),
		Elapsed:       time.Since(start),
	}

	slog.Debug("analyzed voice", "trustScore", result.TrustScore, "decision", result.Decision, "took", result.Elapsed)

	return result, nil
}

// AnalyzeStream evaluates each clip received from the input channel.
// Clips that cannot be analyzed are logged and skipped.
func (d *Detector) AnalyzeStream(ctx context.Context, input <-chan audio.Clip) <-chan Result {
	ch := make(chan Result, 5)

	go func() {
		defer close(ch)

		for clip := range input {
			result, err := d.AnalyzeClip(ctx, clip)
			if err != nil {
				if ctx.Err() != nil {
					return
				}

				slog.Warn("failed to analyze voice clip", "err", err)
				continue
			}

			select {
			case ch <- result:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}
