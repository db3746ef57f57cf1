package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/taxifare/pipeline"
	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		v           float64
		decimals    int
		leadingZero bool
		want        string
	}{
		{0.9123, 2, true, "0.91"},
		{0.9, 2, true, "0.9"},
		{1, 2, true, "1"},
		{0.456, 2, false, ".46"},
		{3.14159, 2, false, "3.14"},
		{-0.25, 2, false, "-.25"},
		{0, 2, false, "0"},
		{-0.001, 2, true, "0"},
		{15.5, 4, true, "15.5"},
		{4.37512345, 4, true, "4.3751"},
		{math.NaN(), 2, true, "NaN"},
		{math.Inf(-1), 2, true, "-Infinity"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDecimal(tt.v, tt.decimals, tt.leadingZero), "%v", tt.v)
	}
}

func TestWriteMetrics(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMetrics(&buf, pipeline.Metrics{
		RSquared:             0.9187,
		RootMeanSquaredError: 0.712,
		MeanAbsoluteError:    0.5,
		Samples:              12,
	}))
	out := buf.String()
	assert.Contains(t, out, "*       RSquared Score:      0.92\n")
	assert.Contains(t, out, "*       Root Mean Squared Error:      .71\n")
	assert.Contains(t, out, "Samples:      12")
	assert.Equal(t, 2, strings.Count(out, metricsRule))
}

func TestWritePrediction(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePrediction(&buf, 15.123456, 15.5))
	assert.Equal(t, predictionRule+"\nPredicted fare: 15.1235, actual fare: 15.5\n"+predictionRule+"\n", buf.String())
}

func TestWritePredictionsPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePredictionsPNG(&buf, []float64{1, 2, 3}, []float64{1.1, 1.9, 3.2}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestPlotPredictions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fares.png")
	require.NoError(t, PlotPredictions(path, []float64{5, 8}, []float64{5.5, 7.5}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	err = PlotPredictions(path, []float64{1}, []float64{1, 2})
	var se *errors.ShapeMismatchError
	assert.True(t, errors.As(err, &se))
	assert.True(t, errors.Is(PlotPredictions(path, nil, nil), errors.ErrEmptyData))
}
