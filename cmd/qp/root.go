package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"queryproc/pkg/config"
	"queryproc/pkg/logging"
)

// app is the state shared by the subcommands of one invocation.
type app struct {
	fs         afero.Fs
	configPath string
	cfg        *config.Config
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs}

	root := &cobra.Command{
		Use:           "qp",
		Short:         "optimize and run query plans within a page buffer budget",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "TOML configuration file")
	addOverrideFlags(flags)

	root.AddCommand(
		newStatsCmd(a),
		newOptimizeCmd(a),
		newRunCmd(a),
	)
	return root
}

// addOverrideFlags declares the flags that replace configuration values.
// Their defaults are only shown in help; a flag applies when it is set.
func addOverrideFlags(flags *pflag.FlagSet) {
	d := config.Default()
	flags.Int("page-size", d.PageSize, "page size in bytes")
	flags.Int("buffers", d.TotalBuffers, "total buffer pages of the query")
	flags.String("temp-dir", d.TempDir, "directory for run files")
	flags.String("stats-dir", d.StatsDir, "directory of <table>.stat files")
	flags.String("data-dir", d.DataDir, "directory of <table>.csv files")
	flags.Int64("seed", d.Optimizer.Seed, "optimizer random seed")
	flags.String("log-level", d.Log.Level, "log level: debug, info, warn or error")
}

// setup loads the configuration, applies flag overrides and starts logging.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.fs, a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "page-size":
			cfg.PageSize, err = flags.GetInt(f.Name)
		case "buffers":
			cfg.TotalBuffers, err = flags.GetInt(f.Name)
		case "temp-dir":
			cfg.TempDir = f.Value.String()
		case "stats-dir":
			cfg.StatsDir = f.Value.String()
		case "data-dir":
			cfg.DataDir = f.Value.String()
		case "seed":
			cfg.Optimizer.Seed, err = flags.GetInt64(f.Name)
		case "log-level":
			cfg.Log.Level = f.Value.String()
		}
	})
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	lc := cfg.Logging()
	if lc.OutputPath == "" {
		lc.Writer = cmd.ErrOrStderr()
	}
	if err := logging.Close(); err != nil {
		return err
	}
	return logging.Init(lc)
}
