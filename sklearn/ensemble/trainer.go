// Package ensemble implements gradient boosted regression trees under squared
// error loss.
package ensemble

import (
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/taxifare/pkg/errors"
	"github.com/YuminosukeSato/taxifare/pkg/log"
	"github.com/YuminosukeSato/taxifare/sklearn/tree"
)

// ModelName identifies this estimator in logs and artifact headers.
const ModelName = "GradientBoostedTrees"

// Trainer fits Models. A Trainer holds no training state and can be reused.
type Trainer struct {
	params            Params
	callbacks         []Callback
	logger            log.Logger
	parallelThreshold int
}

// NewTrainer creates a trainer with the given parameters. Parameters are
// validated by Fit.
//
//	model, err := ensemble.NewTrainer(ensemble.DefaultParams()).Fit(X, y)
func NewTrainer(params Params) *Trainer {
	return &Trainer{params: params}
}

// WithCallbacks sets the callbacks run after every round.
func (t *Trainer) WithCallbacks(callbacks ...Callback) *Trainer {
	t.callbacks = callbacks
	return t
}

// WithLogger overrides the component logger.
func (t *Trainer) WithLogger(logger log.Logger) *Trainer {
	t.logger = logger
	return t
}

// WithParallelThreshold sets the node size from which split search runs in
// parallel. A negative value disables parallel search.
func (t *Trainer) WithParallelThreshold(n int) *Trainer {
	t.parallelThreshold = n
	return t
}

// Params returns the trainer's parameters.
func (t *Trainer) Params() Params {
	return t.params
}

// Fit boosts t.params.NumTrees trees on X (rows = samples) against y.
//
// The initial prediction is mean(y). Each round fits a tree to the residuals
// y - F on all rows, or on a seeded subsample when Subsample < 1, and adds
// LearningRate times its output to F.
func (t *Trainer) Fit(X mat.Matrix, y mat.Vector) (m *Model, err error) {
	defer errors.Recover(&err, "Trainer.Fit")

	if err := t.params.Validate(); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewEmptyDatasetError("Trainer.Fit", "training")
	}
	if y.Len() != rows {
		return nil, errors.NewShapeMismatchError("Trainer.Fit", "labels", rows, y.Len())
	}

	labels := make([]float64, rows)
	for i := range labels {
		labels[i] = y.AtVec(i)
	}
	if err := errors.CheckNumericalStability("Trainer.Fit labels", labels, 0); err != nil {
		return nil, err
	}
	data := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		row := data[i*cols : (i+1)*cols]
		mat.Row(row, i, X)
		if err := errors.CheckNumericalStability("Trainer.Fit features", row, 0); err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
	}

	logger := t.logger
	if logger == nil {
		logger = log.GetLoggerWithName("ensemble.trainer")
	}
	logger = logger.With(log.ModelNameKey, ModelName)
	logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.NumTreesKey, t.params.NumTrees,
		log.MaxDepthKey, t.params.MaxDepth,
		log.LearningRateKey, t.params.LearningRate,
		log.MinLeafSizeKey, t.params.MinLeafSize,
		log.RandomSeedKey, t.params.Seed,
	)
	start := time.Now()

	builder, err := tree.NewBuilder(mat.NewDense(rows, cols, data), tree.Config{
		MaxDepth:          t.params.MaxDepth,
		MinLeafSize:       t.params.MinLeafSize,
		ParallelThreshold: t.parallelThreshold,
	})
	if err != nil {
		return nil, err
	}

	bias := stat.Mean(labels, nil)
	model := &Model{
		Bias:              bias,
		LearningRate:      t.params.LearningRate,
		Features:          cols,
		Params:            t.params,
		Trees:             make([]tree.Tree, 0, t.params.NumTrees),
		TrainingLoss:      make([]float64, 0, t.params.NumTrees),
		FeatureImportance: make([]float64, cols),
	}

	current := make([]float64, rows)
	residual := make([]float64, rows)
	for i := range current {
		current[i] = bias
	}
	sampler := newRowSampler(rows, t.params.Subsample, t.params.Seed)

	for iter := 0; iter < t.params.NumTrees; iter++ {
		for i := range residual {
			residual[i] = labels[i] - current[i]
		}

		tr, err := builder.Build(residual, sampler.sample())
		if err != nil {
			return nil, errors.Wrapf(err, "tree building failed at iteration %d", iter)
		}

		var loss float64
		for i := 0; i < rows; i++ {
			current[i] += t.params.LearningRate * tr.Predict(data[i*cols:(i+1)*cols])
			d := labels[i] - current[i]
			loss += d * d
		}
		loss /= float64(rows)
		if err := errors.CheckScalar("Trainer.Fit loss", loss, iter); err != nil {
			return nil, err
		}

		model.Trees = append(model.Trees, *tr)
		model.TrainingLoss = append(model.TrainingLoss, loss)
		tr.AddImportance(model.FeatureImportance)

		if iter%10 == 0 {
			logger.Debug("Training progress",
				log.IterationKey, iter,
				log.LossKey, loss,
			)
		}

		if stop, err := t.runCallbacks(iter, loss); err != nil {
			return nil, errors.Wrapf(err, "callback error at iteration %d", iter)
		} else if stop {
			logger.Info("Training stopped by callback", log.IterationKey, iter)
			break
		}
	}

	logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.NumTreesKey, len(model.Trees),
		log.LossKey, model.TrainingLoss[len(model.TrainingLoss)-1],
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return model, nil
}

func (t *Trainer) runCallbacks(iter int, loss float64) (bool, error) {
	if len(t.callbacks) == 0 {
		return false, nil
	}
	env := &CallbackEnv{Iteration: iter, TrainingLoss: loss}
	for _, cb := range t.callbacks {
		if err := cb(env); err != nil {
			return false, err
		}
	}
	return env.StopTraining, nil
}
