// Command taxifare trains, evaluates and serves the taxi fare regression
// pipeline.
//
//	taxifare generate --rows 5000 train.csv
//	taxifare train
//	taxifare evaluate --plot predictions.png
//	taxifare predict --vendor VTS --distance 3.75 --payment CRD
//	taxifare serve
//	taxifare run
//
// Paths and trainer parameters come from internal/cfg; flags override them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"

	"github.com/YuminosukeSato/taxifare/internal/cfg"
	"github.com/YuminosukeSato/taxifare/pkg/log"
)

var (
	name    = "taxifare"
	version = "0.3.0"
)

type generateCmd struct {
	Rows   int     `help:"Number of trips" arg:"-n" default:"5000"`
	Seed   uint64  `help:"Random seed" arg:"-s" default:"1"`
	Test   float64 `help:"Fraction written to the test file" arg:"-t" default:"0.2"`
	Output string  `help:"Training CSV path (defaults to the configured train path)" arg:"positional"`
}

type trainCmd struct {
	Output string `help:"Where to write the pipeline (defaults to the configured model path)" arg:"-o"`
}

type evaluateCmd struct {
	Model    string `help:"Pipeline file (defaults to the configured model path)" arg:"-m"`
	Plot     string `help:"Write a predicted-vs-actual PNG here" arg:"-p"`
	Baseline bool   `help:"Also score a ridge regression baseline fitted on the training CSV" arg:"-b"`
}

type predictCmd struct {
	Model      string   `help:"Pipeline file (defaults to the configured model path)" arg:"-m"`
	Vendor     string   `help:"Vendor id" default:"VTS"`
	RateCode   string   `help:"Rate code" default:"1"`
	Passengers float64  `help:"Passenger count" default:"1"`
	TripTime   float64  `help:"Trip time in seconds" default:"1140"`
	Distance   float64  `help:"Trip distance in miles" default:"3.75"`
	Payment    string   `help:"Payment type" default:"CRD"`
	Actual     *float64 `help:"Known fare to print next to the prediction"`
}

type serveCmd struct {
	Model string `help:"Pipeline file, used when no store is configured" arg:"-m"`
	Addr  string `help:"Listen address (defaults to the configured address)" arg:"-l"`
}

type runCmd struct {
	Plot string `help:"Write a predicted-vs-actual PNG here" arg:"-p"`
}

type args struct {
	Config   string       `help:"YAML configuration file" arg:"-c,env:TAXIFARE_CONFIG"`
	Generate *generateCmd `arg:"subcommand:generate" help:"write synthetic train and test CSV files"`
	Train    *trainCmd    `arg:"subcommand:train" help:"fit a pipeline on the training CSV"`
	Evaluate *evaluateCmd `arg:"subcommand:evaluate" help:"score a saved pipeline on the test CSV"`
	Predict  *predictCmd  `arg:"subcommand:predict" help:"predict the fare of one trip"`
	Serve    *serveCmd    `arg:"subcommand:serve" help:"serve predictions over HTTP"`
	Run      *runCmd      `arg:"subcommand:run" help:"train, evaluate and predict the sample trip"`
}

func (args) Version() string {
	return fmt.Sprintf("%s %s", name, version)
}

func (args) Description() string {
	return "Taxi fare regression with gradient boosted trees."
}

func main() {
	var a args
	p := arg.MustParse(&a)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}

	settings, err := cfg.Load(a.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := log.SetupLogger(settings.LogLevel, settings.LogConsole); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := log.GetLoggerWithName(name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &app{settings: settings, out: os.Stdout, logger: logger}
	switch {
	case a.Generate != nil:
		err = app.generate(a.Generate)
	case a.Train != nil:
		err = app.train(a.Train)
	case a.Evaluate != nil:
		err = app.evaluate(a.Evaluate)
	case a.Predict != nil:
		err = app.predict(a.Predict)
	case a.Serve != nil:
		err = app.serve(ctx, a.Serve)
	case a.Run != nil:
		err = app.run(a.Run)
	}
	if err != nil {
		logger.Error("Command failed", err)
		stop()
		os.Exit(1)
	}
}
