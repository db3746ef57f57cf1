package report

import (
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

// Chart size of PlotPredictions.
const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// NewPredictionPlot draws predicted against actual fares with the identity
// line for reference.
func NewPredictionPlot(actual, predicted []float64) (*plot.Plot, error) {
	if len(actual) == 0 {
		return nil, errors.NewEmptyDatasetError("report.NewPredictionPlot", "prediction")
	}
	if len(predicted) != len(actual) {
		return nil, errors.NewShapeMismatchError("report.NewPredictionPlot", "predictions", len(actual), len(predicted))
	}

	pts := make(plotter.XYs, len(actual))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range actual {
		pts[i].X = actual[i]
		pts[i].Y = predicted[i]
		lo = math.Min(lo, math.Min(actual[i], predicted[i]))
		hi = math.Max(hi, math.Max(actual[i], predicted[i]))
	}

	p := plot.New()
	p.Title.Text = "Taxi fare: predicted vs actual"
	p.X.Label.Text = "actual fare"
	p.Y.Label.Text = "predicted fare"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, errors.Wrap(err, "scatter")
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)

	identity, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return nil, errors.Wrap(err, "identity line")
	}
	identity.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(scatter, identity)
	p.Legend.Add("trips", scatter)
	p.Legend.Add("perfect prediction", identity)
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

// WritePredictionsPNG renders the prediction plot as PNG to w.
func WritePredictionsPNG(w io.Writer, actual, predicted []float64) error {
	p, err := NewPredictionPlot(actual, predicted)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return errors.Wrap(err, "png writer")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write png")
	}
	return nil
}

// PlotPredictions saves the prediction plot to path. The image format
// follows the extension (png, svg, pdf...).
func PlotPredictions(path string, actual, predicted []float64) error {
	p, err := NewPredictionPlot(actual, predicted)
	if err != nil {
		return err
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
