// Package server exposes a fitted pipeline over HTTP.
//
//	POST /predict        one trip record, answers {"fare_amount": ...}
//	POST /predict/batch  {"trips": [...]}, answers {"fare_amounts": [...]}
//	GET  /healthz        served model summary
//	GET  /metrics        Prometheus exposition
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YuminosukeSato/taxifare/dataset"
	"github.com/YuminosukeSato/taxifare/internal/telemetry"
	"github.com/YuminosukeSato/taxifare/pipeline"
	"github.com/YuminosukeSato/taxifare/pkg/errors"
	"github.com/YuminosukeSato/taxifare/pkg/log"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// TripRequest is the JSON body of one trip. Numeric fields are pointers so a
// missing key can be told apart from zero; fare_amount is accepted and ignored.
type TripRequest struct {
	VendorID       string   `json:"vendor_id"`
	RateCode       string   `json:"rate_code"`
	PassengerCount *float64 `json:"passenger_count"`
	TripTime       *float64 `json:"trip_time_in_secs"`
	TripDistance   *float64 `json:"trip_distance"`
	PaymentType    string   `json:"payment_type"`
	FareAmount     *float64 `json:"fare_amount,omitempty"`
}

// Record converts r to a TripRecord. passenger_count and trip_distance are
// required; trip_time_in_secs only when the model encodes it.
func (r TripRequest) Record(tripTime bool) (dataset.TripRecord, error) {
	required := []struct {
		field string
		value *float64
	}{
		{dataset.ColPassengerCount, r.PassengerCount},
		{dataset.ColTripDistance, r.TripDistance},
	}
	if tripTime {
		required = append(required, struct {
			field string
			value *float64
		}{dataset.ColTripTime, r.TripTime})
	}
	for _, req := range required {
		if req.value == nil {
			return dataset.TripRecord{}, errors.NewSchemaMismatchError("server.decode", req.field, "required field missing")
		}
	}

	rec := dataset.TripRecord{
		VendorID:       r.VendorID,
		RateCode:       r.RateCode,
		PassengerCount: *r.PassengerCount,
		TripDistance:   *r.TripDistance,
		PaymentType:    r.PaymentType,
	}
	if r.TripTime != nil {
		rec.TripTime = *r.TripTime
	}
	return rec, nil
}

// BatchRequest is the body of /predict/batch.
type BatchRequest struct {
	Trips []TripRequest `json:"trips"`
}

// BatchResponse holds one fare per requested trip, in request order.
type BatchResponse struct {
	FareAmounts []float64 `json:"fare_amounts"`
}

// HealthResponse summarizes the served model.
type HealthResponse struct {
	Status    string    `json:"status"`
	Model     string    `json:"model"`
	Trees     int       `json:"trees"`
	Features  int       `json:"features"`
	TrainedAt time.Time `json:"trained_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves predictions from a single pipeline.
type Server struct {
	name     string
	engine   *pipeline.PredictionEngine
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer
	logger   log.Logger
	http     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger replaces the server logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithGatherer sets the registry exposed on /metrics. Defaults to the
// Prometheus default gatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New builds a server for engine listening on addr. name labels the model in
// health responses and metrics.
func New(addr, name string, engine *pipeline.PredictionEngine, metrics *telemetry.Metrics, opts ...Option) *Server {
	s := &Server{
		name:     name,
		engine:   engine,
		metrics:  metrics,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("server")
	}

	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("POST /predict/batch", s.handleBatch)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.http.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting prediction server", "addr", ln.Addr().String(), log.ModelNameKey, s.name)
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	<-errCh
	s.logger.Info("Prediction server stopped")
	return nil
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req TripRequest
	if !s.decode(w, r, &req) {
		return
	}
	rec, err := req.Record(s.engine.Pipeline().Encoder().IncludesTripTime())
	if err != nil {
		s.fail(w, err)
		return
	}

	start := time.Now()
	s.metrics.ObserveUnknown(s.engine.Pipeline().Encoder().UnknownFields(rec))
	pred, err := s.engine.Predict(rec)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.metrics.ObservePrediction(pred.FareAmount, time.Since(start))
	writeJSON(w, http.StatusOK, pred)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !s.decode(w, r, &req) {
		return
	}

	p := s.engine.Pipeline()
	records := make([]dataset.TripRecord, len(req.Trips))
	for i, trip := range req.Trips {
		rec, err := trip.Record(p.Encoder().IncludesTripTime())
		if err != nil {
			s.fail(w, errors.Wrapf(err, "record %d", i))
			return
		}
		records[i] = rec
	}

	start := time.Now()
	for _, rec := range records {
		s.metrics.ObserveUnknown(p.Encoder().UnknownFields(rec))
	}
	fares, err := p.ApplyAll(records)
	if err != nil {
		s.fail(w, err)
		return
	}
	elapsed := time.Since(start)
	for _, f := range fares {
		s.metrics.ObservePrediction(f, elapsed/time.Duration(len(fares)))
	}
	if fares == nil {
		fares = []float64{}
	}
	writeJSON(w, http.StatusOK, BatchResponse{FareAmounts: fares})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	p := s.engine.Pipeline()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Model:     s.name,
		Trees:     p.Model().NumTrees(),
		Features:  p.Model().NumFeatures(),
		TrainedAt: p.TrainedAt(),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.metrics.ObserveError("bad_request")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request: " + err.Error()})
		return false
	}
	return true
}

// fail maps pipeline errors to 422 and everything else to 500.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var (
		schema  *errors.SchemaMismatchError
		shape   *errors.ShapeMismatchError
		numeric *errors.NumericalInstabilityError
	)
	switch {
	case errors.As(err, &schema):
		s.metrics.ObserveError("schema_mismatch")
	case errors.As(err, &shape):
		s.metrics.ObserveError("shape_mismatch")
	case errors.As(err, &numeric):
		s.metrics.ObserveError("numerical_instability")
	default:
		s.metrics.ObserveError("internal")
		s.logger.Error("Prediction failed", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "prediction failed"})
		return
	}
	s.logger.Warn("Prediction rejected", "error", err.Error())
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
