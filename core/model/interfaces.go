// Package model provides the shared model contracts and the artifact codec used
// to persist fitted pipelines.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Regressor is a fitted, read-only regression model over encoded feature vectors.
type Regressor interface {
	// Predict returns the prediction for one feature vector.
	Predict(x []float64) (float64, error)

	// PredictBatch predicts every row of X.
	PredictBatch(X mat.Matrix) (*mat.VecDense, error)

	// NumFeatures returns the feature vector width the model was fitted on.
	NumFeatures() int
}
