// Package linear provides a ridge regression baseline over encoded feature
// vectors. It shares the Regressor contract with the boosted ensemble so the
// two can be scored on the same test set.
package linear

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/taxifare/core/model"
	"github.com/YuminosukeSato/taxifare/core/parallel"
	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

// DefaultAlpha は既定のL2正則化係数
const DefaultAlpha = 1.0

const defaultParallelThreshold = 1000

// LinearRegression はリッジ回帰モデル。切片は正則化しない。
type LinearRegression struct {
	Weights   []float64 `json:"weights"`   // 重み（係数）
	Intercept float64   `json:"intercept"` // 切片
	Alpha     float64   `json:"alpha"`

	parallelThreshold int
}

var _ model.Regressor = (*LinearRegression)(nil)

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{Alpha: DefaultAlpha, parallelThreshold: defaultParallelThreshold}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習させる。
// X と y を中心化し (Xcᵀ Xc + αI) w = Xcᵀ yc をコレスキー分解で解く。
func (lr *LinearRegression) Fit(X mat.Matrix, y mat.Vector) (err error) {
	defer errors.Recover(&err, "LinearRegression.Fit")

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewEmptyDatasetError("LinearRegression.Fit", "training")
	}
	if y.Len() != r {
		return errors.NewShapeMismatchError("LinearRegression.Fit", "labels", r, y.Len())
	}
	if lr.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be >= 0", lr.Alpha)
	}

	means := make([]float64, c)
	for j := range means {
		means[j] = stat.Mean(mat.Col(nil, j, X), nil)
	}
	labels := make([]float64, r)
	for i := range labels {
		labels[i] = y.AtVec(i)
	}
	yMean := stat.Mean(labels, nil)

	// 中心化した計画行列
	centered := mat.NewDense(r, c, nil)
	yc := mat.NewVecDense(r, nil)
	parallel.ParallelizeWithThreshold(r, lr.parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				centered.Set(i, j, X.At(i, j)-means[j])
			}
			yc.SetVec(i, labels[i]-yMean)
		}
	})

	gram := mat.NewSymDense(c, nil)
	gram.SymOuterK(1, centered.T())
	for j := 0; j < c; j++ {
		gram.SetSym(j, j, gram.At(j, j)+lr.Alpha)
	}

	var xty mat.VecDense
	xty.MulVec(centered.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return errors.NewModelError("LinearRegression.Fit", "singular matrix", nil)
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &xty); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "solve normal equations", err)
	}

	weights := make([]float64, c)
	intercept := yMean
	for j := range weights {
		weights[j] = w.AtVec(j)
		intercept -= means[j] * weights[j]
	}
	if err := errors.CheckNumericalStability("LinearRegression.Fit", weights, 0); err != nil {
		return err
	}
	if err := errors.CheckScalar("LinearRegression.Fit", intercept, 0); err != nil {
		return err
	}

	lr.Weights = weights
	lr.Intercept = intercept
	return nil
}

// IsFitted は Fit が成功したかどうか
func (lr *LinearRegression) IsFitted() bool {
	return lr.Weights != nil
}

func (lr *LinearRegression) NumFeatures() int {
	return len(lr.Weights)
}

// Predict は1つの特徴量ベクトルの予測値を返す
func (lr *LinearRegression) Predict(x []float64) (float64, error) {
	if !lr.IsFitted() {
		return 0, errors.NewNotFittedError("LinearRegression", "Predict")
	}
	if len(x) != len(lr.Weights) {
		return 0, errors.NewShapeMismatchError("LinearRegression.Predict", "features", len(lr.Weights), len(x))
	}
	pred := lr.Intercept
	for j, v := range x {
		pred += v * lr.Weights[j]
	}
	return pred, nil
}

// PredictBatch は X の各行を予測する
func (lr *LinearRegression) PredictBatch(X mat.Matrix) (*mat.VecDense, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "PredictBatch")
	}
	r, c := X.Dims()
	if c != len(lr.Weights) {
		return nil, errors.NewShapeMismatchError("LinearRegression.PredictBatch", "features", len(lr.Weights), c)
	}
	out := mat.NewVecDense(r, nil)
	out.MulVec(X, mat.NewVecDense(c, lr.Weights))
	for i := 0; i < r; i++ {
		out.SetVec(i, out.AtVec(i)+lr.Intercept)
	}
	return out, nil
}
