package pipeline

import (
	"github.com/YuminosukeSato/taxifare/dataset"
	"github.com/YuminosukeSato/taxifare/pkg/errors"
	"github.com/YuminosukeSato/taxifare/pkg/log"
	"github.com/YuminosukeSato/taxifare/preprocessing"
)

// Prediction は1レコード分の予測結果
type Prediction struct {
	FareAmount float64 `json:"fare_amount"`
}

// PredictionEngine は学習済みパイプラインで1レコードずつ予測する。
// 学習時に観測されなかったカテゴリ値は警告ログを出した上でゼロベクトルとして扱う。
type PredictionEngine struct {
	pipeline *FittedPipeline
	logger   log.Logger
}

// EngineOption は PredictionEngine の設定を変更する
type EngineOption func(*PredictionEngine)

// WithEngineLogger はロガーを差し替える
func WithEngineLogger(logger log.Logger) EngineOption {
	return func(e *PredictionEngine) {
		e.logger = logger
	}
}

// NewPredictionEngine は p を使う予測エンジンを作る
func NewPredictionEngine(p *FittedPipeline, opts ...EngineOption) (*PredictionEngine, error) {
	if err := p.checkFitted("NewPredictionEngine"); err != nil {
		return nil, err
	}
	e := &PredictionEngine{pipeline: p}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.GetLoggerWithName("pipeline.predict")
	}
	return e, nil
}

// Predict は rec の運賃を予測する。rec.FareAmount は使わない。
func (e *PredictionEngine) Predict(rec dataset.TripRecord) (Prediction, error) {
	for _, field := range e.pipeline.encoder.UnknownFields(rec) {
		value := preprocessing.CategoricalValue(rec, field)
		e.logger.Warn("Unknown category encoded as zero vector",
			log.FieldKey, field,
			"warning", errors.NewUnknownCategoryWarning(field, value),
		)
	}

	fare, err := e.pipeline.Apply(rec)
	if err != nil {
		return Prediction{}, err
	}
	e.logger.Debug("Prediction made",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		log.PredictionKey, fare,
	)
	return Prediction{FareAmount: fare}, nil
}

// Pipeline returns the pipeline the engine predicts with.
func (e *PredictionEngine) Pipeline() *FittedPipeline {
	return e.pipeline
}
