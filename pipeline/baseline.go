package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/taxifare/dataset"
	"github.com/YuminosukeSato/taxifare/linear"
	"github.com/YuminosukeSato/taxifare/pkg/errors"
	"github.com/YuminosukeSato/taxifare/pkg/log"
)

// EvaluateBaseline は p のエンコーダで train を特徴量化してリッジ回帰を学習し、
// test 上の Metrics を返す。ブースティングモデルとの比較用。
func EvaluateBaseline(p *FittedPipeline, train, test []dataset.TripRecord, opts ...linear.Option) (Metrics, error) {
	if err := p.checkFitted("EvaluateBaseline"); err != nil {
		return Metrics{}, err
	}
	if len(train) == 0 {
		return Metrics{}, errors.NewEmptyDatasetError("pipeline.EvaluateBaseline", "training")
	}
	if len(test) == 0 {
		return Metrics{}, errors.NewEmptyDatasetError("pipeline.EvaluateBaseline", "test")
	}

	X, err := p.encoder.TransformAll(train)
	if err != nil {
		return Metrics{}, errors.Wrap(err, "encode baseline training records")
	}
	baseline := linear.NewLinearRegression(opts...)
	if err := baseline.Fit(X, mat.NewVecDense(len(train), dataset.Labels(train))); err != nil {
		return Metrics{}, errors.Wrap(err, "fit baseline")
	}

	Xt, err := p.encoder.TransformAll(test)
	if err != nil {
		return Metrics{}, errors.Wrap(err, "encode baseline test records")
	}
	preds, err := baseline.PredictBatch(Xt)
	if err != nil {
		return Metrics{}, err
	}
	m, err := score(dataset.Labels(test), preds.RawVector().Data)
	if err != nil {
		return Metrics{}, err
	}

	log.GetLoggerWithName("pipeline.evaluate").Info("Baseline evaluation completed",
		log.OperationKey, log.OperationEvaluate,
		log.ModelNameKey, "LinearRegression",
		log.SamplesKey, m.Samples,
		log.R2ScoreKey, m.RSquared,
		log.RMSEKey, m.RootMeanSquaredError,
	)
	return m, nil
}
