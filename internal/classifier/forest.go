package classifier

import (
	"fmt"
)

const leaf = -1

// Tree is a binary decision tree in the array layout scikit-learn exports.
// Node i is a leaf when Left[i] == -1; otherwise samples with
// x[Feature[i]] <= Threshold[i] descend to Left[i], all others to Right[i].
// Like scikit-learn, features are compared at float32 precision.
type Tree struct {
	Left      []int       `json:"left"`
	Right     []int       `json:"right"`
	Feature   []int       `json:"feature"`
	Threshold []float64   `json:"threshold"`
	Value     [][]float64 `json:"value"` // per node class counts or fractions
}

// RandomForest averages the leaf class distributions of its trees.
type RandomForest struct {
	Kind     string      `json:"kind"`
	Features FeatureSpec `json:"features"`
	Classes  int         `json:"nClasses"`
	Trees    []Tree      `json:"trees"`
}

func (f *RandomForest) FeatureSpec() FeatureSpec {
	return f.Features
}

func (f *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if err := checkInput(f.Features, features); err != nil {
		return nil, err
	}

	proba := make([]float64, f.Classes)

	for _, tree := range f.Trees {
		dist := tree.Value[tree.leaf(features)]

		total := 0.0
		for _, v := range dist {
			total += v
		}

		if total == 0 {
			continue
		}

		for c, v := range dist {
			proba[c] += v / total
		}
	}

	for c := range proba {
		proba[c] /= float64(len(f.Trees))
	}

	return proba, nil
}

func (t *Tree) leaf(x []float64) int {
	node := 0
	for t.Left[node] != leaf {
		if float64(float32(x[t.Feature[node]])) <= t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
	}
	return node
}

func (f *RandomForest) validate() error {
	if f.Classes != 2 {
		return fmt.Errorf("%w: binary classifier expected but model has %d classes", ErrInvalidModel, f.Classes)
	}

	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: forest has no trees", ErrInvalidModel)
	}

	for i, tree := range f.Trees {
		if err := tree.validate(f.Features.InputSize(), f.Classes); err != nil {
			return fmt.Errorf("%w: tree %d: %s", ErrInvalidModel, i, err)
		}
	}

	return nil
}

// validate checks the node arrays and that every path terminates in a leaf.
func (t *Tree) validate(numFeatures, numClasses int) error {
	n := len(t.Left)
	if n == 0 {
		return fmt.Errorf("no nodes")
	}

	if len(t.Right) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("node arrays differ in length")
	}

	for i := 0; i < n; i++ {
		if len(t.Value[i]) != numClasses {
			return fmt.Errorf("node %d: expected %d class values but got %d", i, numClasses, len(t.Value[i]))
		}

		if t.Left[i] == leaf {
			continue
		}

		// children are stored after their parent which rules out cycles
		if t.Left[i] <= i || t.Left[i] >= n || t.Right[i] <= i || t.Right[i] >= n {
			return fmt.Errorf("node %d: invalid child reference", i)
		}

		if t.Feature[i] < 0 || t.Feature[i] >= numFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, t.Feature[i])
		}
	}

	return nil
}
