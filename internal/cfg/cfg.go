// Package cfg loads taxifare settings from an optional .env file, an optional
// YAML file and TAXIFARE_* environment variables, in that order of precedence
// (later wins).
package cfg

import (
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/taxifare/pkg/errors"
	"github.com/YuminosukeSato/taxifare/pkg/log"
	"github.com/YuminosukeSato/taxifare/sklearn/ensemble"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TAXIFARE_"

// ConfigEnv names the variable holding the YAML path when Load gets none.
const ConfigEnv = EnvPrefix + "CONFIG"

// Settings is the resolved configuration shared by every command.
type Settings struct {
	TrainPath  string
	TestPath   string
	ModelPath  string
	StorePath  string
	ModelName  string
	LogLevel   string
	LogConsole bool
	ListenAddr string
	PlotPath   string
	Trainer    TrainerSettings
}

// TrainerSettings holds the boosting parameters and the trip_time ablation
// switch. It is also the trainer section of the YAML file.
type TrainerSettings struct {
	NumTrees     int     `yaml:"numTrees"`
	MaxDepth     int     `yaml:"maxDepth"`
	LearningRate float64 `yaml:"learningRate"`
	MinLeafSize  int     `yaml:"minLeafSize"`
	Subsample    float64 `yaml:"subsample"`
	Seed         uint64  `yaml:"seed"`
	TripTime     bool    `yaml:"tripTime"`
}

// Params converts the trainer section to boosting parameters.
func (t TrainerSettings) Params() ensemble.Params {
	return ensemble.Params{
		NumTrees:     t.NumTrees,
		MaxDepth:     t.MaxDepth,
		LearningRate: t.LearningRate,
		MinLeafSize:  t.MinLeafSize,
		Subsample:    t.Subsample,
		Seed:         t.Seed,
	}
}

// ConfigFile mirrors the YAML layout. Keys left out keep their defaults.
type ConfigFile struct {
	Data struct {
		Train string `yaml:"train"`
		Test  string `yaml:"test"`
	} `yaml:"data"`

	Model struct {
		Path  string `yaml:"path"`
		Store string `yaml:"store"`
		Name  string `yaml:"name"`
		Plot  string `yaml:"plot"`
	} `yaml:"model"`

	Trainer TrainerSettings `yaml:"trainer"`

	Server struct {
		Listen string `yaml:"listen"`
	} `yaml:"server"`

	Log struct {
		Level   string `yaml:"level"`
		Console bool   `yaml:"console"`
	} `yaml:"log"`
}

// Default returns the settings used when nothing is configured. The data
// paths match the layout of the sample data directory.
func Default() Settings {
	p := ensemble.DefaultParams()
	return Settings{
		TrainPath:  "Data/taxi-fare-train.csv",
		TestPath:   "Data/taxi-fare-test.csv",
		ModelPath:  "Data/Model.json",
		ModelName:  "taxi-fare",
		LogLevel:   "info",
		ListenAddr: ":8080",
		Trainer: TrainerSettings{
			NumTrees:     p.NumTrees,
			MaxDepth:     p.MaxDepth,
			LearningRate: p.LearningRate,
			MinLeafSize:  p.MinLeafSize,
			Subsample:    p.Subsample,
			Seed:         p.Seed,
		},
	}
}

// Load builds Settings. path names a YAML file; when empty TAXIFARE_CONFIG is
// consulted, and with neither only defaults and the environment apply. A .env
// file in the working directory is loaded first if present; it never
// overrides variables that are already set.
func Load(path string) (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, errors.Wrap(err, "failed to load .env")
	}

	settings := Default()
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path != "" {
		var err error
		if settings, err = loadFromYAML(path, settings); err != nil {
			return Settings{}, err
		}
	}
	if err := applyEnv(&settings); err != nil {
		return Settings{}, err
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, errors.Wrap(err, "configuration validation failed")
	}
	return settings, nil
}

func loadFromYAML(path string, base Settings) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "failed to read config file %s", path)
	}

	var config ConfigFile
	config.Data.Train = base.TrainPath
	config.Data.Test = base.TestPath
	config.Model.Path = base.ModelPath
	config.Model.Store = base.StorePath
	config.Model.Name = base.ModelName
	config.Model.Plot = base.PlotPath
	config.Trainer = base.Trainer
	config.Server.Listen = base.ListenAddr
	config.Log.Level = base.LogLevel
	config.Log.Console = base.LogConsole

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, errors.Wrap(err, "failed to parse config file")
	}

	return Settings{
		TrainPath:  config.Data.Train,
		TestPath:   config.Data.Test,
		ModelPath:  config.Model.Path,
		StorePath:  config.Model.Store,
		ModelName:  config.Model.Name,
		PlotPath:   config.Model.Plot,
		LogLevel:   config.Log.Level,
		LogConsole: config.Log.Console,
		ListenAddr: config.Server.Listen,
		Trainer:    config.Trainer,
	}, nil
}

func applyEnv(s *Settings) error {
	strs := map[string]*string{
		"TRAIN_PATH":  &s.TrainPath,
		"TEST_PATH":   &s.TestPath,
		"MODEL_PATH":  &s.ModelPath,
		"STORE_PATH":  &s.StorePath,
		"MODEL_NAME":  &s.ModelName,
		"PLOT_PATH":   &s.PlotPath,
		"LOG_LEVEL":   &s.LogLevel,
		"LISTEN_ADDR": &s.ListenAddr,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"NUM_TREES":     &s.Trainer.NumTrees,
		"MAX_DEPTH":     &s.Trainer.MaxDepth,
		"MIN_LEAF_SIZE": &s.Trainer.MinLeafSize,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			i, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return errors.NewValidationError(EnvPrefix+key, "must be an integer", v)
			}
			*dst = i
		}
	}

	floats := map[string]*float64{
		"LEARNING_RATE": &s.Trainer.LearningRate,
		"SUBSAMPLE":     &s.Trainer.Subsample,
	}
	for key, dst := range floats {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return errors.NewValidationError(EnvPrefix+key, "must be a number", v)
			}
			*dst = f
		}
	}

	bools := map[string]*bool{
		"TRIP_TIME":   &s.Trainer.TripTime,
		"LOG_CONSOLE": &s.LogConsole,
	}
	for key, dst := range bools {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return errors.NewValidationError(EnvPrefix+key, "must be a boolean", v)
			}
			*dst = b
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "SEED"); ok {
		seed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+"SEED", "must be a non-negative integer", v)
		}
		s.Trainer.Seed = seed
	}
	return nil
}

// Validate checks every setting that does not depend on the command being run.
func (s Settings) Validate() error {
	if _, err := log.ParseLevel(s.LogLevel); err != nil {
		return err
	}
	if s.ModelName == "" {
		return errors.NewValidationError("model_name", "cannot be empty", s.ModelName)
	}
	if s.ListenAddr == "" {
		return errors.NewValidationError("listen_addr", "cannot be empty", s.ListenAddr)
	}
	return s.Trainer.Params().Validate()
}
