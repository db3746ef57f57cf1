package pipeline

import (
	"encoding/json"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/taxifare/dataset"
	"github.com/YuminosukeSato/taxifare/metrics"
	"github.com/YuminosukeSato/taxifare/pkg/errors"
	"github.com/YuminosukeSato/taxifare/pkg/log"
)

// Metrics は評価結果。呼び出しごとに計算される。
type Metrics struct {
	// RSquared はテストセット自身の平均を基準とした決定係数。ラベルの分散がゼロなら NaN。
	RSquared             float64
	RootMeanSquaredError float64
	MeanAbsoluteError    float64
	MeanSquaredError     float64
	Samples              int
}

// Evaluate は records のラベル（FareAmount）と p の予測から Metrics を計算する。
//
// 空の入力は EmptyDatasetError。ラベルの分散がゼロの場合は RSquared を NaN とし、
// UndefinedMetricWarning を発生させた上で他の指標は計算して返す。
func Evaluate(p *FittedPipeline, records []dataset.TripRecord) (Metrics, error) {
	if len(records) == 0 {
		return Metrics{}, errors.NewEmptyDatasetError("pipeline.Evaluate", "test")
	}
	preds, err := p.ApplyAll(records)
	if err != nil {
		return Metrics{}, err
	}

	m, err := score(dataset.Labels(records), preds)
	if err != nil {
		return Metrics{}, err
	}

	log.GetLoggerWithName("pipeline.evaluate").Info("Evaluation completed",
		log.OperationKey, log.OperationEvaluate,
		log.PhaseKey, log.PhaseTesting,
		log.SamplesKey, m.Samples,
		log.R2ScoreKey, m.RSquared,
		log.RMSEKey, m.RootMeanSquaredError,
	)
	return m, nil
}

// score computes Metrics from labels and predictions of equal, non-zero length.
func score(labels, preds []float64) (Metrics, error) {
	yTrue := mat.NewVecDense(len(labels), labels)
	yPred := mat.NewVecDense(len(preds), preds)

	var err error
	m := Metrics{Samples: len(labels)}
	if m.MeanSquaredError, err = metrics.MSE(yTrue, yPred); err != nil {
		return Metrics{}, err
	}
	m.RootMeanSquaredError = math.Sqrt(m.MeanSquaredError)
	if m.MeanAbsoluteError, err = metrics.MAE(yTrue, yPred); err != nil {
		return Metrics{}, err
	}

	m.RSquared, err = metrics.R2Score(yTrue, yPred)
	switch {
	case errors.Is(err, errors.ErrZeroVariance):
		m.RSquared = math.NaN()
		errors.Warn(errors.NewUndefinedMetricWarning("r2_score", "zero variance in test labels", m.RSquared))
	case err != nil:
		return Metrics{}, err
	}
	return m, nil
}

// EvaluateFrom reads every record of src and evaluates p on them.
func EvaluateFrom(p *FittedPipeline, src dataset.RecordSource) (Metrics, error) {
	records, err := src.Records()
	if err != nil {
		return Metrics{}, errors.Wrap(err, "read test records")
	}
	return Evaluate(p, records)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (m Metrics) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("r_squared", m.RSquared).
		Float64("rmse", m.RootMeanSquaredError).
		Float64("mae", m.MeanAbsoluteError).
		Float64("mse", m.MeanSquaredError).
		Int("samples", m.Samples)
}

type metricsJSON struct {
	RSquared             *float64 `json:"r_squared"`
	RootMeanSquaredError float64  `json:"rmse"`
	MeanAbsoluteError    float64  `json:"mae"`
	MeanSquaredError     float64  `json:"mse"`
	Samples              int      `json:"samples"`
}

// MarshalJSON writes an undefined RSquared as null.
func (m Metrics) MarshalJSON() ([]byte, error) {
	doc := metricsJSON{
		RootMeanSquaredError: m.RootMeanSquaredError,
		MeanAbsoluteError:    m.MeanAbsoluteError,
		MeanSquaredError:     m.MeanSquaredError,
		Samples:              m.Samples,
	}
	if !math.IsNaN(m.RSquared) {
		r2 := m.RSquared
		doc.RSquared = &r2
	}
	return json.Marshal(doc)
}

// UnmarshalJSON reads a null RSquared back as NaN.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var doc metricsJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*m = Metrics{
		RSquared:             math.NaN(),
		RootMeanSquaredError: doc.RootMeanSquaredError,
		MeanAbsoluteError:    doc.MeanAbsoluteError,
		MeanSquaredError:     doc.MeanSquaredError,
		Samples:              doc.Samples,
	}
	if doc.RSquared != nil {
		m.RSquared = *doc.RSquared
	}
	return nil
}
