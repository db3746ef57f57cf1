// Package telemetry defines the Prometheus metrics exported by the fare
// prediction server.
package telemetry

import (
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/YuminosukeSato/taxifare/pipeline"
)

const namespace = "taxifare"

// Metrics holds every collector the server updates.
type Metrics struct {
	Predictions       prometheus.Counter     // successful predictions
	PredictionErrors  *prometheus.CounterVec // failed requests by reason
	UnknownCategories *prometheus.CounterVec // unseen categorical values by field
	Latency           prometheus.Histogram   // prediction latency in seconds
	PredictedFare     prometheus.Histogram   // distribution of predicted fares
	ModelTrees        *prometheus.GaugeVec   // number of trees of the served model
	ModelRSquared     *prometheus.GaugeVec   // held-out R² recorded with the model
}

// New registers the metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics on registerer.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total number of fare predictions served",
		}),
		PredictionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_errors_total",
			Help:      "Total number of rejected prediction requests",
		}, []string{"reason"}),
		UnknownCategories: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_categories_total",
			Help:      "Categorical values not seen during training, by field",
		}, []string{"field"}),
		Latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_latency_seconds",
			Help:      "Fare prediction latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		PredictedFare: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "predicted_fare_amount",
			Help:      "Distribution of predicted fare amounts",
			Buckets:   []float64{2.5, 5, 7.5, 10, 15, 20, 30, 50, 75, 100},
		}),
		ModelTrees: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_trees",
			Help:      "Number of boosted trees in the served model",
		}, []string{"model"}),
		ModelRSquared: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_r_squared",
			Help:      "Held-out R squared recorded when the model was stored",
		}, []string{"model"}),
	}
}

// ObservePrediction records one successful prediction.
func (m *Metrics) ObservePrediction(fare float64, elapsed time.Duration) {
	m.Predictions.Inc()
	m.Latency.Observe(elapsed.Seconds())
	m.PredictedFare.Observe(fare)
}

// ObserveError records a rejected request.
func (m *Metrics) ObserveError(reason string) {
	m.PredictionErrors.WithLabelValues(reason).Inc()
}

// ObserveUnknown records unseen categorical values.
func (m *Metrics) ObserveUnknown(fields []string) {
	for _, f := range fields {
		m.UnknownCategories.WithLabelValues(f).Inc()
	}
}

// SetModel publishes the served model. An undefined R² is not exported.
func (m *Metrics) SetModel(name string, p *pipeline.FittedPipeline, metrics *pipeline.Metrics) {
	m.ModelTrees.WithLabelValues(name).Set(float64(p.Model().NumTrees()))
	if metrics != nil && !math.IsNaN(metrics.RSquared) {
		m.ModelRSquared.WithLabelValues(name).Set(metrics.RSquared)
	}
}
