package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/SGBon/BMKSA/internal/config"
	"github.com/SGBon/BMKSA/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	log     = zerolog.Nop()
	logFile *os.File
)

// main wires the subcommands, binds the global flags to viper and the
// ROCKETSIM_ environment, and runs the root command.
func main() {
	rootCmd := &cobra.Command{
		Use:               "rocketsim",
		Short:             "multi-stage launch vehicle simulator",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logFile != nil {
				logFile.Close()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String("data", ".rocketsim", "data directory")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error, off)")
	pf.Bool("log-json", false, "log JSON lines instead of console text")
	pf.String("log-file", "", "also append logs to this file")
	if err := viper.BindPFlags(pf); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	viper.SetEnvPrefix("ROCKETSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(
		newRunCmd(),
		newLiveCmd(),
		newCompareCmd(),
		newListCmd(),
		newPlotCmd(),
		newChartCmd(),
		newExportCSVCmd(),
		newExportJSONCmd(),
		newPresetsCmd(),
		newScenarioCmd(),
		newSweepCmd(),
		newDispersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup reads an optional rocketsim.yaml from the working or data
// directory and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	viper.SetConfigName("rocketsim")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(viper.GetString("data"))
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading settings: %w", err)
		}
	}

	opts := logging.Options{
		Level:  viper.GetString("log-level"),
		Pretty: !viper.GetBool("log-json"),
	}
	if path := viper.GetString("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		logFile = f
		opts.File = f
	}
	log = logging.New(os.Stderr, opts)

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug().Str("file", used).Msg("settings loaded")
	}
	return nil
}

func dataDir() string { return viper.GetString("data") }

// configFlags are shared by every command that builds a vehicle.
type configFlags struct {
	preset     string
	configFile string
	stepper    string
	duration   float64
	dt         float64
	stopAt     int
	set        []string
}

func (f *configFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.preset, "preset", "", "start from a named preset")
	fl.StringVar(&f.configFile, "config", "", "config file path (yaml), overrides --preset")
	fl.StringVar(&f.stepper, "stepper", config.DefaultStepper, "stepper: "+strings.Join(config.Steppers, ", "))
	fl.Float64Var(&f.duration, "time", config.DefaultDuration, "simulated seconds")
	fl.Float64Var(&f.dt, "dt", 0.1, "tick length in seconds")
	fl.IntVar(&f.stopAt, "stop-at", 0, "stop once this stage is reached (0 runs the full duration)")
	fl.StringSliceVar(&f.set, "set", nil, "override a vehicle parameter, name=value (repeatable)")
}

// resolve builds the config: defaults, then preset or config file, then
// any flags given explicitly.
func (f *configFlags) resolve(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.preset != "" {
		cfg = config.GetPreset(f.preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", f.preset, config.ListPresets())
		}
	}
	if f.configFile != "" {
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	fl := cmd.Flags()
	if fl.Changed("stepper") {
		cfg.Stepper = f.stepper
	}
	if fl.Changed("time") {
		cfg.Duration = f.duration
	}
	if fl.Changed("dt") {
		cfg.Vehicle.Dt = f.dt
	}
	if fl.Changed("stop-at") {
		cfg.StopAtStage = f.stopAt
	}

	overrides, err := parseAssignments(f.set)
	if err != nil {
		return nil, err
	}
	if err := cfg.SetParams(overrides); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func parseAssignments(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected name=value, got %q", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}
