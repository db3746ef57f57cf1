package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/taxifare/dataset"
	"github.com/YuminosukeSato/taxifare/internal/cfg"
	"github.com/YuminosukeSato/taxifare/internal/server"
	"github.com/YuminosukeSato/taxifare/internal/store"
	"github.com/YuminosukeSato/taxifare/internal/telemetry"
	"github.com/YuminosukeSato/taxifare/pipeline"
	"github.com/YuminosukeSato/taxifare/pkg/errors"
	"github.com/YuminosukeSato/taxifare/pkg/log"
	"github.com/YuminosukeSato/taxifare/preprocessing"
	"github.com/YuminosukeSato/taxifare/report"
)

// sampleTrip is the trip predicted at the end of run, with its known fare.
var sampleTrip = dataset.TripRecord{
	VendorID:       "VTS",
	RateCode:       "1",
	PassengerCount: 1,
	TripTime:       1140,
	TripDistance:   3.75,
	PaymentType:    "CRD",
	FareAmount:     15.5,
}

type app struct {
	settings cfg.Settings
	out      io.Writer
	logger   log.Logger
	// registerer receives the server metrics; nil means the default registry.
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func (a *app) pipelineOptions() []pipeline.Option {
	opts := []pipeline.Option{
		pipeline.WithParams(a.settings.Trainer.Params()),
		pipeline.WithLogger(a.logger),
	}
	if a.settings.Trainer.TripTime {
		opts = append(opts, pipeline.WithEncoderOptions(preprocessing.WithTripTime()))
	}
	return opts
}

func (a *app) generate(c *generateCmd) error {
	trainPath := orDefault(c.Output, a.settings.TrainPath)
	testPath := a.settings.TestPath
	if c.Output != "" {
		ext := filepath.Ext(c.Output)
		testPath = c.Output[:len(c.Output)-len(ext)] + "-test" + ext
	}

	records := dataset.Synthetic(dataset.DefaultSyntheticConfig(c.Rows, c.Seed))
	train, test := dataset.Split(records, c.Test, c.Seed)
	if err := writeCSV(trainPath, train); err != nil {
		return err
	}
	if err := writeCSV(testPath, test); err != nil {
		return err
	}
	a.logger.Info("Synthetic data written",
		"train", trainPath, "test", testPath,
		log.SamplesKey, len(records))
	return nil
}

func writeCSV(path string, records []dataset.TripRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := dataset.WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// fit trains on the configured training CSV and saves the result to path and,
// when configured, to the registry together with metrics.
func (a *app) fit(path string) (*pipeline.FittedPipeline, error) {
	p, err := pipeline.TrainFrom(dataset.NewCSVSource(a.settings.TrainPath), a.pipelineOptions()...)
	if err != nil {
		return nil, err
	}
	if err := p.Save(path); err != nil {
		return nil, err
	}
	a.logger.Info("Pipeline saved", "path", path)
	return p, nil
}

func (a *app) register(p *pipeline.FittedPipeline, m *pipeline.Metrics) error {
	if a.settings.StorePath == "" {
		return nil
	}
	s, err := store.Open(a.settings.StorePath)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Save(a.settings.ModelName, p, m); err != nil {
		return err
	}
	a.logger.Info("Pipeline registered", log.ModelNameKey, a.settings.ModelName, "store", a.settings.StorePath)
	return nil
}

func (a *app) train(c *trainCmd) error {
	p, err := a.fit(orDefault(c.Output, a.settings.ModelPath))
	if err != nil {
		return err
	}
	var metrics *pipeline.Metrics
	if _, err := os.Stat(a.settings.TestPath); err == nil {
		m, err := pipeline.EvaluateFrom(p, dataset.NewCSVSource(a.settings.TestPath))
		if err != nil {
			return err
		}
		metrics = &m
	}
	return a.register(p, metrics)
}

// score evaluates p on the test CSV, prints the banner and optionally plots.
func (a *app) score(p *pipeline.FittedPipeline, plotPath string) (pipeline.Metrics, error) {
	records, err := dataset.NewCSVSource(a.settings.TestPath).Records()
	if err != nil {
		return pipeline.Metrics{}, err
	}
	m, err := pipeline.Evaluate(p, records)
	if err != nil {
		return pipeline.Metrics{}, err
	}
	a.logger.Info("Evaluation completed", "metrics", m)
	if err := report.WriteMetrics(a.out, m); err != nil {
		return m, err
	}

	plotPath = orDefault(plotPath, a.settings.PlotPath)
	if plotPath == "" {
		return m, nil
	}
	predicted, err := p.ApplyAll(records)
	if err != nil {
		return m, err
	}
	if err := report.PlotPredictions(plotPath, dataset.Labels(records), predicted); err != nil {
		return m, err
	}
	a.logger.Info("Prediction plot written", "path", plotPath)
	return m, nil
}

func (a *app) evaluate(c *evaluateCmd) error {
	p, err := pipeline.Load(orDefault(c.Model, a.settings.ModelPath))
	if err != nil {
		return err
	}
	if _, err := a.score(p, c.Plot); err != nil {
		return err
	}
	if !c.Baseline {
		return nil
	}

	train, err := dataset.NewCSVSource(a.settings.TrainPath).Records()
	if err != nil {
		return err
	}
	test, err := dataset.NewCSVSource(a.settings.TestPath).Records()
	if err != nil {
		return err
	}
	m, err := pipeline.EvaluateBaseline(p, train, test)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(a.out, "\nRidge regression baseline:\n"); err != nil {
		return err
	}
	return report.WriteMetrics(a.out, m)
}

func (a *app) predict(c *predictCmd) error {
	p, err := pipeline.Load(orDefault(c.Model, a.settings.ModelPath))
	if err != nil {
		return err
	}
	engine, err := pipeline.NewPredictionEngine(p)
	if err != nil {
		return err
	}
	pred, err := engine.Predict(dataset.TripRecord{
		VendorID:       c.Vendor,
		RateCode:       c.RateCode,
		PassengerCount: c.Passengers,
		TripTime:       c.TripTime,
		TripDistance:   c.Distance,
		PaymentType:    c.Payment,
	})
	if err != nil {
		return err
	}
	if c.Actual != nil {
		return report.WritePrediction(a.out, pred.FareAmount, *c.Actual)
	}
	_, err = io.WriteString(a.out, "Predicted fare: "+report.FormatDecimal(pred.FareAmount, 4, true)+"\n")
	return err
}

// loadServed prefers the registry entry and falls back to the pipeline file.
func (a *app) loadServed(modelPath string) (*pipeline.FittedPipeline, *pipeline.Metrics, error) {
	if a.settings.StorePath != "" && modelPath == "" {
		s, err := store.Open(a.settings.StorePath)
		if err != nil {
			return nil, nil, err
		}
		defer s.Close()
		p, entry, err := s.Load(a.settings.ModelName)
		if err != nil {
			return nil, nil, err
		}
		return p, entry.Metrics, nil
	}
	p, err := pipeline.Load(orDefault(modelPath, a.settings.ModelPath))
	return p, nil, err
}

func (a *app) serve(ctx context.Context, c *serveCmd) error {
	p, m, err := a.loadServed(c.Model)
	if err != nil {
		return err
	}
	engine, err := pipeline.NewPredictionEngine(p)
	if err != nil {
		return err
	}

	registerer, gatherer := a.registerer, a.gatherer
	if registerer == nil {
		registerer, gatherer = prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	}
	metrics := telemetry.NewWithRegistry(registerer)
	metrics.SetModel(a.settings.ModelName, p, m)

	srv := server.New(orDefault(c.Addr, a.settings.ListenAddr), a.settings.ModelName, engine, metrics,
		server.WithGatherer(gatherer))
	return srv.Run(ctx)
}

// run is the end-to-end demo: train, save, evaluate and predict one trip.
func (a *app) run(c *runCmd) error {
	p, err := a.fit(a.settings.ModelPath)
	if err != nil {
		return err
	}
	m, err := a.score(p, c.Plot)
	if err != nil {
		return err
	}
	if err := a.register(p, &m); err != nil {
		return err
	}

	loaded, err := pipeline.Load(a.settings.ModelPath)
	if err != nil {
		return err
	}
	engine, err := pipeline.NewPredictionEngine(loaded)
	if err != nil {
		return err
	}
	pred, err := engine.Predict(sampleTrip)
	if err != nil {
		return err
	}
	return report.WritePrediction(a.out, pred.FareAmount, sampleTrip.FareAmount)
}
