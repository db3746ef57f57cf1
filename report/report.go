// Package report renders evaluation results for the console and as charts.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/taxifare/pipeline"
)

const (
	metricsRule    = "*************************************************"
	metricsDivider = "*------------------------------------------------"
	predictionRule = "**********************************************************************"
)

// FormatDecimal rounds v to at most decimals places and drops trailing zeros.
// With leadingZero false a value below one loses its integer zero (".5"),
// except zero itself which prints as "0".
func FormatDecimal(v float64, decimals int, leadingZero bool) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if math.IsInf(v, 0) {
		if v > 0 {
			return "Infinity"
		}
		return "-Infinity"
	}
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	if !leadingZero && s != "0" {
		if strings.HasPrefix(s, "0.") {
			s = s[1:]
		} else if strings.HasPrefix(s, "-0.") {
			s = "-" + s[2:]
		}
	}
	return s
}

// WriteMetrics prints the evaluation banner.
func WriteMetrics(w io.Writer, m pipeline.Metrics) error {
	lines := []string{
		"",
		metricsRule,
		"*       Model quality metrics evaluation         ",
		metricsDivider,
		"*       RSquared Score:      " + FormatDecimal(m.RSquared, 2, true),
		"*       Root Mean Squared Error:      " + FormatDecimal(m.RootMeanSquaredError, 2, false),
		"*       Mean Absolute Error:      " + FormatDecimal(m.MeanAbsoluteError, 2, false),
		"*       Samples:      " + strconv.Itoa(m.Samples),
		metricsRule,
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

// WritePrediction prints a single prediction next to the known fare.
func WritePrediction(w io.Writer, predicted, actual float64) error {
	_, err := fmt.Fprintf(w, "%s\nPredicted fare: %s, actual fare: %s\n%s\n",
		predictionRule,
		FormatDecimal(predicted, 4, true),
		FormatDecimal(actual, 4, true),
		predictionRule,
	)
	return err
}
