package ensemble

import (
	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

// Params contains the boosting hyperparameters.
type Params struct {
	// NumTrees is the number of boosting rounds.
	NumTrees int `json:"num_trees" yaml:"num_trees"`
	// MaxDepth bounds every tree.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`
	// LearningRate scales each tree's contribution.
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`
	// MinLeafSize is the minimum number of rows per leaf.
	MinLeafSize int `json:"min_leaf_size" yaml:"min_leaf_size"`
	// Subsample is the fraction of rows drawn without replacement per round.
	// 1 uses every row and never touches the random source.
	Subsample float64 `json:"subsample" yaml:"subsample"`
	// Seed feeds the row sampler.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// DefaultParams returns the parameters the fare model is trained with.
func DefaultParams() Params {
	return Params{
		NumTrees:     100,
		MaxDepth:     5,
		LearningRate: 0.2,
		MinLeafSize:  10,
		Subsample:    1.0,
		Seed:         0,
	}
}

// Validate reports the first out-of-range parameter.
func (p Params) Validate() error {
	switch {
	case p.NumTrees < 1:
		return errors.NewValidationError("num_trees", "must be >= 1", p.NumTrees)
	case p.MaxDepth < 1:
		return errors.NewValidationError("max_depth", "must be >= 1", p.MaxDepth)
	case !(p.LearningRate > 0 && p.LearningRate <= 1):
		return errors.NewValidationError("learning_rate", "must be in (0, 1]", p.LearningRate)
	case p.MinLeafSize < 1:
		return errors.NewValidationError("min_leaf_size", "must be >= 1", p.MinLeafSize)
	case !(p.Subsample > 0 && p.Subsample <= 1):
		return errors.NewValidationError("subsample", "must be in (0, 1]", p.Subsample)
	}
	return nil
}

// Map returns the parameters as a generic map for artifact headers and logs.
func (p Params) Map() map[string]interface{} {
	return map[string]interface{}{
		"num_trees":     p.NumTrees,
		"max_depth":     p.MaxDepth,
		"learning_rate": p.LearningRate,
		"min_leaf_size": p.MinLeafSize,
		"subsample":     p.Subsample,
		"seed":          p.Seed,
	}
}
