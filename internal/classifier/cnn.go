package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Conv2D is a 2D convolution with "valid" padding, stride 1 and ReLU activation.
type Conv2D struct {
	Kernel [][][][]float64 `json:"kernel"` // [height][width][in][out]
	Bias   []float64       `json:"bias"`
}

// Dense is a fully connected layer.
type Dense struct {
	Kernel [][]float64 `json:"kernel"` // [in][out]
	Bias   []float64   `json:"bias"`

	weights *mat.Dense
	bias    *mat.VecDense
}

// CNN is the convolutional mel spectrogram classifier:
// Conv2D(relu) → MaxPool(2x2) → Conv2D(relu) → MaxPool(2x2) → Flatten → Dense(relu) → Dense(sigmoid).
// Its single output is the probability of a synthetic voice.
type CNN struct {
	Kind     string      `json:"kind"`
	Features FeatureSpec `json:"features"`
	Conv1    Conv2D      `json:"conv1"`
	Conv2    Conv2D      `json:"conv2"`
	Hidden   Dense       `json:"dense"`
	Output   Dense       `json:"output"`
}

func (c *CNN) FeatureSpec() FeatureSpec {
	return c.Features
}

func (c *CNN) PredictProba(features []float64) ([]float64, error) {
	if err := checkInput(c.Features, features); err != nil {
		return nil, err
	}

	x := &tensor{height: c.Features.NumMels, width: c.Features.Frames, channels: 1, data: features}
	x = maxPool2x2(c.Conv1.apply(x))
	x = maxPool2x2(c.Conv2.apply(x))

	hidden := c.Hidden.apply(mat.NewVecDense(len(x.data), x.data))
	for i := 0; i < hidden.Len(); i++ {
		hidden.SetVec(i, math.Max(0, hidden.AtVec(i)))
	}

	synthetic := sigmoid(c.Output.apply(hidden).AtVec(0))

	return []float64{1 - synthetic, synthetic}, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// tensor is a height x width x channels feature map stored channels last.
type tensor struct {
	height, width, channels int
	data                    []float64
}

func (t *tensor) at(y, x, c int) float64 {
	return t.data[(y*t.width+x)*t.channels+c]
}

func (l *Conv2D) apply(in *tensor) *tensor {
	kh, kw := len(l.Kernel), len(l.Kernel[0])
	outChannels := len(l.Bias)
	out := &tensor{
		height:   in.height - kh + 1,
		width:    in.width - kw + 1,
		channels: outChannels,
	}
	out.data = make([]float64, out.height*out.width*outChannels)

	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			for o := 0; o < outChannels; o++ {
				sum := l.Bias[o]

				for dy := 0; dy < kh; dy++ {
					for dx := 0; dx < kw; dx++ {
						for c := 0; c < in.channels; c++ {
							sum += in.at(y+dy, x+dx, c) * l.Kernel[dy][dx][c][o]
						}
					}
				}

				out.data[(y*out.width+x)*outChannels+o] = math.Max(0, sum)
			}
		}
	}

	return out
}

func maxPool2x2(in *tensor) *tensor {
	out := &tensor{height: in.height / 2, width: in.width / 2, channels: in.channels}
	out.data = make([]float64, out.height*out.width*out.channels)

	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			for c := 0; c < in.channels; c++ {
				out.data[(y*out.width+x)*out.channels+c] = math.Max(
					math.Max(in.at(2*y, 2*x, c), in.at(2*y, 2*x+1, c)),
					math.Max(in.at(2*y+1, 2*x, c), in.at(2*y+1, 2*x+1, c)),
				)
			}
		}
	}

	return out
}

func (l *Dense) apply(x *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(l.bias.Len(), nil)
	out.MulVec(l.weights.T(), x)
	out.AddVec(out, l.bias)
	return out
}

func (l *Dense) init(in int) error {
	if len(l.Kernel) != in {
		return fmt.Errorf("expected %d inputs but kernel has %d rows", in, len(l.Kernel))
	}

	out := len(l.Bias)
	if out == 0 {
		return fmt.Errorf("no outputs")
	}

	l.weights = mat.NewDense(in, out, nil)
	for i, row := range l.Kernel {
		if len(row) != out {
			return fmt.Errorf("kernel row %d has %d columns, expected %d", i, len(row), out)
		}
		l.weights.SetRow(i, row)
	}

	l.bias = mat.NewVecDense(out, append([]float64(nil), l.Bias...))

	return nil
}

// validate checks the layer shapes and returns the output shape.
func (l *Conv2D) validate(height, width, channels int) (int, int, int, error) {
	if len(l.Kernel) == 0 || len(l.Kernel[0]) == 0 || len(l.Bias) == 0 {
		return 0, 0, 0, fmt.Errorf("empty kernel")
	}

	kh, kw := len(l.Kernel), len(l.Kernel[0])
	for _, row := range l.Kernel {
		if len(row) != kw {
			return 0, 0, 0, fmt.Errorf("ragged kernel")
		}
		for _, cell := range row {
			if len(cell) != channels {
				return 0, 0, 0, fmt.Errorf("kernel has %d input channels but input has %d", len(cell), channels)
			}
			for _, weights := range cell {
				if len(weights) != len(l.Bias) {
					return 0, 0, 0, fmt.Errorf("kernel has %d outputs but %d biases", len(weights), len(l.Bias))
				}
			}
		}
	}

	height, width = height-kh+1, width-kw+1
	if height < 2 || width < 2 {
		return 0, 0, 0, fmt.Errorf("input too small for %dx%d kernel and 2x2 pooling", kh, kw)
	}

	return height / 2, width / 2, len(l.Bias), nil
}

func (c *CNN) validate() error {
	if c.Features.Kind != FeatureMelSpectrogram {
		return fmt.Errorf("%w: cnn requires %s features", ErrInvalidModel, FeatureMelSpectrogram)
	}

	h, w, ch, err := c.Conv1.validate(c.Features.NumMels, c.Features.Frames, 1)
	if err != nil {
		return fmt.Errorf("%w: conv1: %s", ErrInvalidModel, err)
	}

	h, w, ch, err = c.Conv2.validate(h, w, ch)
	if err != nil {
		return fmt.Errorf("%w: conv2: %s", ErrInvalidModel, err)
	}

	err = c.Hidden.init(h * w * ch)
	if err != nil {
		return fmt.Errorf("%w: dense: %s", ErrInvalidModel, err)
	}

	err = c.Output.init(len(c.Hidden.Bias))
	if err != nil {
		return fmt.Errorf("%w: output: %s", ErrInvalidModel, err)
	}

	if len(c.Output.Bias) != 1 {
		return fmt.Errorf("%w: output layer must have a single unit", ErrInvalidModel)
	}

	return nil
}
