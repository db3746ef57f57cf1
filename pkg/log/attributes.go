// Standard attribute keys for pipeline logging.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples") so
// log lines from training, evaluation and serving can be filtered uniformly.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model or transform step.
	// Examples: "FeatureEncoder", "GradientBoostedTrees", "FittedPipeline"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of records or rows processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the encoded feature vector width.
	FeaturesKey = "data.features"

	// FieldKey names a record field, e.g. "vendor_id".
	FieldKey = "data.field"

	// CategoriesKey records how many distinct categories a field produced.
	CategoriesKey = "data.categories"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// LossKey records the training loss (MSE) after a boosting round.
	LossKey = "metrics.loss"

	// R2ScoreKey records R² coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// RMSEKey records root mean squared error.
	RMSEKey = "metrics.rmse"

	// IterationKey records the boosting round.
	IterationKey = "training.iteration"
)

// Prediction Context
const (
	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"

	// PredictionKey records a single predicted fare.
	PredictionKey = "preds.value"
)

// Hyperparameters and Configuration
const (
	// NumTreesKey records the configured number of boosting rounds.
	NumTreesKey = "hyperparams.num_trees"

	// MaxDepthKey records the per-tree depth bound.
	MaxDepthKey = "hyperparams.max_depth"

	// LearningRateKey records the shrinkage factor.
	LearningRateKey = "hyperparams.learning_rate"

	// MinLeafSizeKey records the minimum rows per leaf.
	MinLeafSizeKey = "hyperparams.min_leaf_size"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationEvaluate  = "evaluate"

	PhaseTraining      = "training"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
