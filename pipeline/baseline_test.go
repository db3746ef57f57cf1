package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/taxifare/dataset"
	"github.com/YuminosukeSato/taxifare/linear"
	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

func TestEvaluateBaseline(t *testing.T) {
	p := scenarioPipeline(t)
	train := dataset.Synthetic(dataset.DefaultSyntheticConfig(2000, 1))
	test := dataset.Synthetic(dataset.DefaultSyntheticConfig(500, 2))

	m, err := EvaluateBaseline(p, train, test, linear.WithAlpha(0.1))
	require.NoError(t, err)
	// fares are linear in distance, so the baseline is strong as well
	assert.Greater(t, m.RSquared, 0.9)
	assert.Equal(t, 500, m.Samples)
}

func TestEvaluateBaseline_Errors(t *testing.T) {
	_, err := EvaluateBaseline(nil, nil, nil)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	p := scenarioPipeline(t)
	_, err = EvaluateBaseline(p, nil, []dataset.TripRecord{sampleTrip})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
	_, err = EvaluateBaseline(p, []dataset.TripRecord{sampleTrip}, nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}
