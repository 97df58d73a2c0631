package classifier

import (
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mfccVector(c0, c1 float64) []float64 {
	v := make([]float64, 13)
	v[0], v[1] = c0, c1
	return v
}

func TestRandomForest(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "forest.json"))
	require.NoError(t, err)

	spec := c.FeatureSpec()
	require.Equal(t, FeatureMFCC, spec.Kind)
	require.Equal(t, 16000, spec.SampleRate)
	require.Equal(t, 13, spec.InputSize())
	require.Equal(t, 3*time.Second, spec.MaxAudioDuration())

	for _, tc := range []struct {
		name     string
		features []float64
		expected []float64
		class    int
	}{
		{
			name:     "trees disagree",
			features: mfccVector(-400, 0),
			expected: []float64{0.5, 0.5},
			class:    ClassReal,
		},
		{
			name:     "mostly real",
			features: mfccVector(0, 0),
			expected: []float64{0.9, 0.1},
			class:    ClassReal,
		},
		{
			name:     "synthetic",
			features: mfccVector(-400, 100),
			expected: []float64{0, 1},
			class:    ClassSynthetic,
		},
		{
			name:     "threshold is inclusive",
			features: mfccVector(-300, 50),
			expected: []float64{0.5, 0.5},
			class:    ClassReal,
		},
		{
			name:     "mostly synthetic",
			features: mfccVector(0, 100),
			expected: []float64{0.4, 0.6},
			class:    ClassSynthetic,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			class, proba, err := Predict(c, tc.features)
			require.NoError(t, err)
			require.InDeltaSlice(t, tc.expected, proba, 1e-9)
			require.Equal(t, tc.class, class)
		})
	}
}

func TestTreeComparesAtFloat32Precision(t *testing.T) {
	threshold := float64(float32(0.3))
	tree := Tree{
		Left:      []int{1, leaf, leaf},
		Right:     []int{2, leaf, leaf},
		Feature:   []int{0, 0, 0},
		Threshold: []float64{threshold, 0, 0},
		Value:     [][]float64{{1, 1}, {1, 0}, {0, 1}},
	}

	for _, c := range []struct {
		name     string
		x        float64
		expected int
	}{
		{"below", threshold - 1e-6, 1},
		{"equal", threshold, 1},
		{"rounds down to threshold", threshold + 1e-12, 1},
		{"above", threshold + 1e-6, 2},
	} {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.expected, tree.leaf([]float64{c.x}))
		})
	}
}

func TestRandomForestFeatureMismatch(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "forest.json"))
	require.NoError(t, err)

	_, err = c.PredictProba(make([]float64, 20))
	require.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestDecodeRejectsInvalidModels(t *testing.T) {
	for _, tc := range []struct {
		name  string
		model string
	}{
		{
			name:  "not json",
			model: `model.pkl`,
		},
		{
			name:  "unknown kind",
			model: `{"kind": "svm", "features": {"kind": "mfcc", "sampleRate": 16000, "numMFCC": 13}}`,
		},
		{
			name:  "unknown feature kind",
			model: `{"kind": "random_forest", "features": {"kind": "chroma", "sampleRate": 16000}}`,
		},
		{
			name:  "no trees",
			model: `{"kind": "random_forest", "features": {"kind": "mfcc", "sampleRate": 16000, "numMFCC": 13}, "nClasses": 2, "trees": []}`,
		},
		{
			name: "feature index out of range",
			model: `{"kind": "random_forest", "features": {"kind": "mfcc", "sampleRate": 16000, "numMFCC": 13}, "nClasses": 2, "trees": [
				{"left": [1, -1, -1], "right": [2, -1, -1], "feature": [13, -2, -2], "threshold": [0, -2, -2], "value": [[1, 1], [1, 0], [0, 1]]}
			]}`,
		},
		{
			name: "cyclic tree",
			model: `{"kind": "random_forest", "features": {"kind": "mfcc", "sampleRate": 16000, "numMFCC": 13}, "nClasses": 2, "trees": [
				{"left": [0, -1], "right": [1, -1], "feature": [0, -2], "threshold": [0, -2], "value": [[1, 1], [1, 0]]}
			]}`,
		},
		{
			name:  "cnn with mfcc features",
			model: `{"kind": "cnn", "features": {"kind": "mfcc", "sampleRate": 16000, "numMFCC": 13}}`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.model))
			require.ErrorIs(t, err, ErrInvalidModel)
		})
	}
}

func ones3x3(in, out int) [][][][]float64 {
	kernel := make([][][][]float64, 3)
	for y := range kernel {
		kernel[y] = make([][][]float64, 3)
		for x := range kernel[y] {
			kernel[y][x] = make([][]float64, in)
			for c := range kernel[y][x] {
				kernel[y][x][c] = make([]float64, out)
				for o := range kernel[y][x][c] {
					kernel[y][x][c][o] = 1
				}
			}
		}
	}
	return kernel
}

func TestCNN(t *testing.T) {
	newCNN := func(outputBias float64) *CNN {
		return &CNN{
			Kind:     KindCNN,
			Features: FeatureSpec{Kind: FeatureMelSpectrogram, SampleRate: 16000, NumMels: 10, Frames: 10},
			Conv1:    Conv2D{Kernel: ones3x3(1, 1), Bias: []float64{0}},
			Conv2:    Conv2D{Kernel: ones3x3(1, 1), Bias: []float64{-80}},
			Hidden:   Dense{Kernel: [][]float64{{2}}, Bias: []float64{0.5}},
			Output:   Dense{Kernel: [][]float64{{1}}, Bias: []float64{outputBias}},
		}
	}

	input := make([]float64, 100)
	for i := range input {
		input[i] = 1
	}

	// 10x10 ones -> conv 8x8 of 9 -> pool 4x4 -> conv 2x2 of 81-80 -> pool 1x1 -> dense 2.5
	for _, tc := range []struct {
		outputBias float64
		synthetic  float64
	}{
		{outputBias: -2.5, synthetic: 0.5},
		{outputBias: 0, synthetic: 1 / (1 + math.Exp(-2.5))},
	} {
		c := newCNN(tc.outputBias)
		require.NoError(t, c.validate())

		proba, err := c.PredictProba(input)
		require.NoError(t, err)
		require.InDeltaSlice(t, []float64{1 - tc.synthetic, tc.synthetic}, proba, 1e-9)
	}

	_, err := newCNN(0).PredictProba(input[:99])
	require.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestCNNValidation(t *testing.T) {
	c := &CNN{
		Kind:     KindCNN,
		Features: FeatureSpec{Kind: FeatureMelSpectrogram, SampleRate: 16000, NumMels: 10, Frames: 10},
		Conv1:    Conv2D{Kernel: ones3x3(1, 2), Bias: []float64{0, 0}},
		Conv2:    Conv2D{Kernel: ones3x3(1, 1), Bias: []float64{0}},
		Hidden:   Dense{Kernel: [][]float64{{1}}, Bias: []float64{0}},
		Output:   Dense{Kernel: [][]float64{{1}}, Bias: []float64{0}},
	}
	require.ErrorIs(t, c.validate(), ErrInvalidModel, "channel mismatch")

	c.Conv2.Kernel = ones3x3(2, 1)
	require.NoError(t, c.validate())

	c.Features.NumMels = 6
	require.ErrorIs(t, c.validate(), ErrInvalidModel, "input too small")
}
