// Package pipeline は特徴量変換と勾配ブースティングモデルを一つの学習済み
// パイプラインとしてまとめ、評価と単一レコード予測を提供する。
//
//	p, err := pipeline.Train(train)
//	m, err := pipeline.Evaluate(p, test)
//	engine, err := pipeline.NewPredictionEngine(p)
//	pred, err := engine.Predict(rec)
package pipeline

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/taxifare/core/parallel"
	"github.com/YuminosukeSato/taxifare/dataset"
	"github.com/YuminosukeSato/taxifare/pkg/errors"
	"github.com/YuminosukeSato/taxifare/pkg/log"
	"github.com/YuminosukeSato/taxifare/preprocessing"
	"github.com/YuminosukeSato/taxifare/sklearn/ensemble"
)

// applyParallelThreshold は ApplyAll が並列化に切り替えるレコード数
const applyParallelThreshold = 256

// FittedPipeline は学習済みの FeatureEncoder と ensemble.Model の組。
// Train 後は変更されず、複数のゴルーチンから共有してよい。
type FittedPipeline struct {
	encoder   *preprocessing.FeatureEncoder
	model     *ensemble.Model
	samples   int
	trainedAt time.Time
}

type trainConfig struct {
	params      ensemble.Params
	encoderOpts []preprocessing.Option
	callbacks   []ensemble.Callback
	logger      log.Logger
}

// Option は Train の設定を変更する
type Option func(*trainConfig)

// WithParams はブースティングのハイパーパラメータを指定する
func WithParams(params ensemble.Params) Option {
	return func(c *trainConfig) {
		c.params = params
	}
}

// WithEncoderOptions は FeatureEncoder の生成オプションを渡す
func WithEncoderOptions(opts ...preprocessing.Option) Option {
	return func(c *trainConfig) {
		c.encoderOpts = append(c.encoderOpts, opts...)
	}
}

// WithCallbacks はブースティングの各ラウンド後に呼ばれるコールバックを渡す
func WithCallbacks(callbacks ...ensemble.Callback) Option {
	return func(c *trainConfig) {
		c.callbacks = append(c.callbacks, callbacks...)
	}
}

// WithLogger はロガーを差し替える
func WithLogger(logger log.Logger) Option {
	return func(c *trainConfig) {
		c.logger = logger
	}
}

// Train は学習データから FittedPipeline を作る。
// エンコーダの学習、特徴量行列の作成、モデルの学習のいずれかが失敗した場合は
// 部分的なパイプラインを返さずエラーを返す。
func Train(records []dataset.TripRecord, opts ...Option) (p *FittedPipeline, err error) {
	defer errors.Recover(&err, "pipeline.Train")

	cfg := trainConfig{params: ensemble.DefaultParams()}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = log.GetLoggerWithName("pipeline")
	}

	if len(records) == 0 {
		return nil, errors.NewEmptyDatasetError("pipeline.Train", "training")
	}
	if err := cfg.params.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	encoder, err := preprocessing.Fit(records, cfg.encoderOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "fit feature encoder")
	}
	X, err := encoder.TransformAll(records)
	if err != nil {
		return nil, errors.Wrap(err, "encode training records")
	}
	y := mat.NewVecDense(len(records), dataset.Labels(records))

	trainer := ensemble.NewTrainer(cfg.params).
		WithCallbacks(cfg.callbacks...).
		WithLogger(logger)
	model, err := trainer.Fit(X, y)
	if err != nil {
		return nil, errors.Wrap(err, "fit ensemble")
	}

	p = &FittedPipeline{
		encoder:   encoder,
		model:     model,
		samples:   len(records),
		trainedAt: time.Now().UTC(),
	}
	logger.Info("Pipeline trained",
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, len(records),
		log.FeaturesKey, encoder.Width(),
		log.NumTreesKey, model.NumTrees(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return p, nil
}

// TrainFrom reads every record of src and trains on them.
func TrainFrom(src dataset.RecordSource, opts ...Option) (*FittedPipeline, error) {
	records, err := src.Records()
	if err != nil {
		return nil, errors.Wrap(err, "read training records")
	}
	return Train(records, opts...)
}

func (p *FittedPipeline) checkFitted(method string) error {
	if p == nil || p.encoder == nil || p.model == nil {
		return errors.NewNotFittedError("FittedPipeline", method)
	}
	return nil
}

// Apply は1レコードの運賃を予測する。評価と予測はどちらもこの関数を通る。
//
// 特徴量幅がモデルと一致しない場合は ShapeMismatchError、予測値が NaN/Inf の場合は
// NumericalInstabilityError を返す。
func (p *FittedPipeline) Apply(rec dataset.TripRecord) (float64, error) {
	if err := p.checkFitted("Apply"); err != nil {
		return 0, err
	}
	x, err := p.encoder.Transform(rec)
	if err != nil {
		return 0, err
	}
	if len(x) != p.model.NumFeatures() {
		return 0, errors.NewShapeMismatchError("FittedPipeline.Apply", "features", p.model.NumFeatures(), len(x))
	}
	y, err := p.model.Predict(x)
	if err != nil {
		return 0, err
	}
	if err := errors.CheckScalar("FittedPipeline.Apply", y, 0); err != nil {
		return 0, err
	}
	return y, nil
}

// ApplyAll は各レコードに Apply を適用する。大きな入力は並列に処理するが、
// 結果の順序と返すエラー（最小インデックスのもの）は逐次実行と同じ。
func (p *FittedPipeline) ApplyAll(records []dataset.TripRecord) ([]float64, error) {
	if err := p.checkFitted("ApplyAll"); err != nil {
		return nil, err
	}
	out := make([]float64, len(records))
	err := parallel.ForEach(len(records), applyParallelThreshold, func(i int) error {
		y, err := p.Apply(records[i])
		if err != nil {
			return errors.Wrapf(err, "record %d", i)
		}
		out[i] = y
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Encoder returns the fitted feature encoder.
func (p *FittedPipeline) Encoder() *preprocessing.FeatureEncoder { return p.encoder }

// Model returns the fitted ensemble.
func (p *FittedPipeline) Model() *ensemble.Model { return p.model }

// Samples returns the number of training records.
func (p *FittedPipeline) Samples() int { return p.samples }

// TrainedAt returns when training finished (UTC).
func (p *FittedPipeline) TrainedAt() time.Time { return p.trainedAt }
