// Package classifier evaluates pre-trained real-versus-synthetic voice models.
//
// Models are trained offline and exported to a JSON document:
//
//	{
//	  "kind": "random_forest" | "cnn",
//	  "features": {"kind": "mfcc", "sampleRate": 22050, "numMFCC": 13, "maxDuration": 3},
//	  ...model specific fields
//	}
//
// Class 0 is a real human voice, class 1 a synthetic one.
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

var (
	// ErrInvalidModel is returned when a model document cannot be used.
	ErrInvalidModel = errors.New("invalid model")
	// ErrFeatureMismatch is returned when a feature vector does not match the model's input size.
	ErrFeatureMismatch = errors.New("feature vector does not match model")
)

const (
	ClassReal      = 0
	ClassSynthetic = 1

	KindRandomForest = "random_forest"
	KindCNN          = "cnn"

	FeatureMFCC           = "mfcc"
	FeatureMelSpectrogram = "melspectrogram"
)

// Classifier maps a feature vector to the class probabilities [P(real), P(synthetic)].
type Classifier interface {
	PredictProba(features []float64) ([]float64, error)
	FeatureSpec() FeatureSpec
}

// FeatureSpec describes how the training audio was preprocessed.
// Feature extraction must match it exactly.
type FeatureSpec struct {
	Kind        string  `json:"kind"`
	SampleRate  int     `json:"sampleRate"`
	NumMFCC     int     `json:"numMFCC,omitempty"`
	NumMels     int     `json:"numMels,omitempty"`
	Frames      int     `json:"frames,omitempty"`
	MaxDuration float64 `json:"maxDuration,omitempty"` // seconds
	Trim        bool    `json:"trim,omitempty"`
}

// MaxAudioDuration returns the training clip length limit, zero meaning unlimited.
func (s FeatureSpec) MaxAudioDuration() time.Duration {
	return time.Duration(s.MaxDuration * float64(time.Second))
}

// InputSize returns the expected feature vector length.
func (s FeatureSpec) InputSize() int {
	if s.Kind == FeatureMelSpectrogram {
		return s.NumMels * s.Frames
	}
	return s.NumMFCC
}

func (s FeatureSpec) validate() error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("%w: feature sample rate must be positive", ErrInvalidModel)
	}

	switch s.Kind {
	case FeatureMFCC:
		if s.NumMFCC <= 0 {
			return fmt.Errorf("%w: numMFCC must be positive", ErrInvalidModel)
		}
	case FeatureMelSpectrogram:
		if s.NumMels <= 0 || s.Frames <= 0 {
			return fmt.Errorf("%w: numMels and frames must be positive", ErrInvalidModel)
		}
	default:
		return fmt.Errorf("%w: unsupported feature kind %q", ErrInvalidModel, s.Kind)
	}

	return nil
}

type header struct {
	Kind     string      `json:"kind"`
	Features FeatureSpec `json:"features"`
}

// Load reads a model file.
func Load(path string) (Classifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}

	return c, nil
}

// Decode reads a model document.
func Decode(reader io.Reader) (Classifier, error) {
	b, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var h header

	err = json.Unmarshal(b, &h)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidModel, err)
	}

	err = h.Features.validate()
	if err != nil {
		return nil, err
	}

	switch h.Kind {
	case KindRandomForest:
		var forest RandomForest

		err = json.Unmarshal(b, &forest)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidModel, err)
		}

		if err := forest.validate(); err != nil {
			return nil, err
		}

		return &forest, nil
	case KindCNN:
		var cnn CNN

		err = json.Unmarshal(b, &cnn)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidModel, err)
		}

		if err := cnn.validate(); err != nil {
			return nil, err
		}

		return &cnn, nil
	default:
		return nil, fmt.Errorf("%w: unsupported model kind %q", ErrInvalidModel, h.Kind)
	}
}

// Predict returns the most probable class.
func Predict(c Classifier, features []float64) (int, []float64, error) {
	proba, err := c.PredictProba(features)
	if err != nil {
		return -1, nil, err
	}

	best := 0
	for i, p := range proba {
		if p > proba[best] {
			best = i
		}
	}

	return best, proba, nil
}

func checkInput(spec FeatureSpec, features []float64) error {
	if len(features) != spec.InputSize() {
		return fmt.Errorf("%w: got %d features but the model expects %d", ErrFeatureMismatch, len(features), spec.InputSize())
	}
	return nil
}
