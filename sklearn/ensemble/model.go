package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/taxifare/core/model"
	"github.com/YuminosukeSato/taxifare/pkg/errors"
	"github.com/YuminosukeSato/taxifare/sklearn/tree"
)

var _ model.Regressor = (*Model)(nil)

// Model is a fitted gradient boosted ensemble. It is never mutated after Fit
// and may be shared between goroutines.
//
//	prediction = Bias + LearningRate * Σ tree(x)
type Model struct {
	Bias              float64     `json:"bias"`
	LearningRate      float64     `json:"learning_rate"`
	Features          int         `json:"num_features"`
	Trees             []tree.Tree `json:"trees"`
	Params            Params      `json:"params"`
	TrainingLoss      []float64   `json:"training_loss,omitempty"`
	FeatureImportance []float64   `json:"feature_importance,omitempty"`
}

// NumFeatures returns the width of the vectors the model accepts.
func (m *Model) NumFeatures() int {
	return m.Features
}

// NumTrees returns the number of boosting rounds actually kept.
func (m *Model) NumTrees() int {
	return len(m.Trees)
}

// Predict returns the prediction for one feature vector.
func (m *Model) Predict(x []float64) (float64, error) {
	if len(x) != m.Features {
		return 0, errors.NewShapeMismatchError("Model.Predict", "features", m.Features, len(x))
	}
	return m.predict(x), nil
}

func (m *Model) predict(x []float64) float64 {
	var sum float64
	for i := range m.Trees {
		sum += m.Trees[i].Predict(x)
	}
	return m.Bias + m.LearningRate*sum
}

// PredictBatch predicts every row of X.
func (m *Model) PredictBatch(X mat.Matrix) (*mat.VecDense, error) {
	rows, cols := X.Dims()
	if cols != m.Features {
		return nil, errors.NewShapeMismatchError("Model.PredictBatch", "features", m.Features, cols)
	}
	out := mat.NewVecDense(rows, nil)
	x := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(x, i, X)
		out.SetVec(i, m.predict(x))
	}
	return out, nil
}

// NormalizedImportance returns FeatureImportance scaled to sum to 1. A model
// without any split returns all zeros.
func (m *Model) NormalizedImportance() []float64 {
	out := make([]float64, len(m.FeatureImportance))
	var total float64
	for _, v := range m.FeatureImportance {
		total += v
	}
	if total == 0 {
		return out
	}
	for i, v := range m.FeatureImportance {
		out[i] = v / total
	}
	return out
}

// Validate checks a model restored from storage.
func (m *Model) Validate() error {
	if m.Features < 1 {
		return errors.NewModelError("Model.Validate", "model has no features", nil)
	}
	if !errors.IsFinite(m.Bias) || !errors.IsFinite(m.LearningRate) {
		return errors.NewNumericalInstabilityError("Model.Validate", []float64{m.Bias, m.LearningRate}, 0)
	}
	for i := range m.Trees {
		if m.Trees[i].NumFeatures != m.Features {
			return errors.NewShapeMismatchError("Model.Validate", "tree features", m.Features, m.Trees[i].NumFeatures)
		}
		if err := m.Trees[i].Validate(); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
	}
	return nil
}
