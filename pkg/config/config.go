// Package config holds the settings of the query processor: the page and
// buffer budget, the directories for spill files, statistics and table data,
// the optimizer's search parameters and logging.
//
// Settings come from defaults, then an optional TOML file, then command-line
// flags:
//
//	page_size = 4096
//	total_buffers = 64
//	temp_dir = "/tmp/qp"
//
//	[optimizer]
//	seed = 42
//
//	[log]
//	level = "debug"
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/execution"
	"queryproc/pkg/logging"
	"queryproc/pkg/optimizer"
)

// MinTotalBuffers is the smallest budget that can run any join or sort.
const MinTotalBuffers = 3

type Config struct {
	PageSize     int    `toml:"page_size"`
	TotalBuffers int    `toml:"total_buffers"`
	TempDir      string `toml:"temp_dir"`
	StatsDir     string `toml:"stats_dir"`
	DataDir      string `toml:"data_dir"`

	Optimizer OptimizerConfig `toml:"optimizer"`
	Log       LogConfig       `toml:"log"`
}

type OptimizerConfig struct {
	Seed            int64   `toml:"seed"`
	RestartsPerJoin int     `toml:"restarts_per_join"`
	StepsPerJoin    int     `toml:"steps_per_join"`
	StartFactor     float64 `toml:"start_factor"`
	Cooling         float64 `toml:"cooling"`
	Patience        int     `toml:"patience"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	OutputPath string `toml:"output_path"`
}

// Default returns the built-in settings.
func Default() *Config {
	p := optimizer.DefaultParams()
	return &Config{
		PageSize:     execution.DefaultPageSize,
		TotalBuffers: 64,
		TempDir:      filepath.Join(os.TempDir(), "qp"),
		StatsDir:     ".",
		DataDir:      ".",
		Optimizer: OptimizerConfig{
			Seed:            1,
			RestartsPerJoin: p.RestartsPerJoin,
			StepsPerJoin:    p.StepsPerJoin,
			StartFactor:     p.StartFactor,
			Cooling:         p.Cooling,
			Patience:        p.Patience,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the TOML file at path on fs over the defaults. Keys the file
// sets replace defaults; unknown keys are rejected.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, dberror.Wrap(err, dberror.ErrCategoryResource, dberror.CodeInvalidConfig, "LoadConfig", "Config")
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, dberror.NewWithCause(dberror.ErrCategoryFormat, dberror.CodeInvalidConfig, err, "invalid config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, dberror.Newf(dberror.ErrCategoryFormat, dberror.CodeInvalidConfig,
			"unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	switch {
	case c.PageSize < 1:
		return invalid("page_size must be at least 1, got %d", c.PageSize)
	case c.TotalBuffers < MinTotalBuffers:
		return invalid("total_buffers must be at least %d, got %d", MinTotalBuffers, c.TotalBuffers)
	case c.Optimizer.RestartsPerJoin < 0 || c.Optimizer.StepsPerJoin < 0 || c.Optimizer.Patience < 0:
		return invalid("optimizer counts must not be negative")
	case c.Optimizer.Cooling <= 0 || c.Optimizer.Cooling >= 1:
		return invalid("optimizer.cooling must be in (0, 1), got %g", c.Optimizer.Cooling)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return invalid("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// OptimizerParams returns the search parameters of the optimizer.
func (c *Config) OptimizerParams() optimizer.Params {
	return optimizer.Params{
		RestartsPerJoin: c.Optimizer.RestartsPerJoin,
		StepsPerJoin:    c.Optimizer.StepsPerJoin,
		StartFactor:     c.Optimizer.StartFactor,
		Cooling:         c.Optimizer.Cooling,
		Patience:        c.Optimizer.Patience,
	}
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:      logging.ParseLevel(c.Log.Level),
		Format:     strings.ToLower(c.Log.Format),
		OutputPath: c.Log.OutputPath,
	}
}

func invalid(format string, args ...any) error {
	return dberror.Newf(dberror.ErrCategoryFormat, dberror.CodeInvalidConfig, format, args...)
}
