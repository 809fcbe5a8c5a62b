package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/SGBon/BMKSA/internal/config"
	"github.com/SGBon/BMKSA/internal/dynamo"
	"github.com/SGBon/BMKSA/internal/experiment"
	"github.com/SGBon/BMKSA/internal/logging"
	"github.com/SGBon/BMKSA/internal/storage"
	"github.com/SGBon/BMKSA/internal/telemetry"
	"github.com/SGBon/BMKSA/internal/vehicle"
	"github.com/SGBon/BMKSA/internal/viz"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// printer writes the vehicle state at launch and after every tick.
type printer struct {
	v           *vehicle.Vehicle
	w           io.Writer
	spreadsheet bool
	err         error
}

func (p *printer) print() {
	if p.err == nil {
		p.err = p.v.Print(p.w, p.spreadsheet)
	}
}

func (p *printer) OnTick(dynamo.Sample) { p.print() }

func newRunCmd() *cobra.Command {
	var (
		cf          configFlags
		name        string
		noSave      bool
		spreadsheet bool
		report      bool
		textfile    string
		sampleEvery int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "fly one vehicle and archive the run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if spreadsheet && report {
				return errors.New("--print and --report are mutually exclusive")
			}
			cfg, err := cf.resolve(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("sample-every") {
				cfg.SampleEvery = sampleEvery
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			exp := experiment.New(cfg, logging.Component(log, "experiment"))
			if err := exp.Setup(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			summary := out
			var pr *printer
			if spreadsheet || report {
				pr = &printer{v: exp.Vehicle(), w: out, spreadsheet: spreadsheet}
				pr.print()
				exp.Simulator().AddObserver(pr)
				summary = cmd.ErrOrStderr()
			}

			var exporter *telemetry.Exporter
			if textfile != "" {
				exporter = telemetry.NewExporter(name)
				exp.Simulator().AddObserver(exporter)
			}

			log.Info().
				Str("stepper", cfg.Stepper).
				Float64("dt", cfg.Vehicle.Dt).
				Float64("duration", cfg.Duration).
				Msg("launch")
			start := time.Now()

			result, err := exp.Run(ctx)
			if err != nil {
				if result == nil || !errors.Is(err, context.Canceled) {
					return err
				}
				log.Warn().Err(err).Int("ticks", result.TicksTaken).Msg("run interrupted, keeping partial result")
			}
			elapsed := time.Since(start)

			if pr != nil && pr.err != nil {
				return fmt.Errorf("printing state: %w", pr.err)
			}
			if exporter != nil {
				if err := exporter.WriteTextfile(textfile); err != nil {
					return err
				}
			}

			fmt.Fprintf(summary, "completed in %v\n", elapsed)
			if !noSave {
				st := storage.New(dataDir())
				if err := st.Init(); err != nil {
					return err
				}
				runID, err := st.Save(storage.RunInfo{
					Name:     name,
					Preset:   cf.preset,
					Stepper:  cfg.Stepper,
					Dt:       cfg.Vehicle.Dt,
					Duration: cfg.Duration,
					Params:   cfg.Params().GetParams(),
				}, result)
				if err != nil {
					return err
				}
				fmt.Fprintf(summary, "run id: %s\n", runID)
			}
			printResult(summary, result.TicksTaken, result.Failures, result.Events, result.Metrics)
			return nil
		},
	}

	cf.register(cmd)
	fl := cmd.Flags()
	fl.StringVar(&name, "name", "run", "run name, prefixes the run id")
	fl.BoolVar(&noSave, "no-save", false, "do not archive the run")
	fl.BoolVar(&spreadsheet, "print", false, "print one spreadsheet line at launch and per tick to stdout")
	fl.BoolVar(&report, "report", false, "print a multi-line state report per tick to stdout")
	fl.StringVar(&textfile, "telemetry", "", "write final Prometheus gauges to this textfile")
	fl.IntVar(&sampleEvery, "sample-every", 1, "archive every Nth tick")
	return cmd
}

func newLiveCmd() *cobra.Command {
	var (
		cf     configFlags
		theme  string
		speed  int
		listen string
	)

	cmd := &cobra.Command{
		Use:   "live",
		Short: "fly with a live terminal view",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cf.resolve(cmd)
			if err != nil {
				return err
			}

			// The terminal belongs to the view, so vehicle logs only reach
			// the log file.
			quiet := zerolog.Nop()
			if logFile != nil {
				quiet = log.Output(zerolog.ConsoleWriter{Out: logFile, NoColor: true, TimeFormat: time.RFC3339})
			}

			launch := func() (*vehicle.Vehicle, error) {
				exp := experiment.New(cfg, logging.Component(quiet, "experiment"))
				if err := exp.Setup(); err != nil {
					return nil, err
				}
				return exp.Vehicle(), nil
			}

			opts := []viz.Option{
				viz.WithTheme(theme),
				viz.WithStepsPerTick(speed),
				viz.WithDuration(cfg.Duration),
			}

			if listen != "" {
				exporter := telemetry.NewExporter("live")
				opts = append(opts, viz.WithObserver(exporter))

				mux := http.NewServeMux()
				mux.Handle("/metrics", exporter.Handler())
				srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						quiet.Error().Err(err).Msg("metrics server")
					}
				}()
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					srv.Shutdown(ctx)
				}()
			}

			m, err := viz.NewModel(launch, opts...)
			if err != nil {
				return err
			}
			return viz.Run(m)
		},
	}

	cf.register(cmd)
	fl := cmd.Flags()
	fl.StringVar(&theme, "theme", "mission", "color theme: "+strings.Join(viz.ThemeNames(), ", "))
	fl.IntVar(&speed, "speed", 10, "ticks per frame")
	fl.StringVar(&listen, "listen", "", "serve Prometheus metrics on this address while flying")
	return cmd
}

func newCompareCmd() *cobra.Command {
	var cf configFlags

	cmd := &cobra.Command{
		Use:   "compare [stepper...]",
		Short: "fly the same vehicle with several steppers",
		RunE: func(cmd *cobra.Command, args []string) error {
			steppers := args
			if len(steppers) == 0 {
				steppers = config.Steppers
			}
			base, err := cf.resolve(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "comparing steppers (dt=%.3f, duration=%.1fs)\n\n", base.Vehicle.Dt, base.Duration)
			fmt.Fprintf(out, "%-8s  %14s  %12s  %6s  %9s  %10s\n", "stepper", "altitude_m", "speed_mps", "stage", "failures", "time_ms")
			fmt.Fprintln(out, strings.Repeat("-", 68))

			for _, name := range steppers {
				cfg := *base
				cfg.Stepper = name

				exp := experiment.New(&cfg, logging.Component(log, name))
				if err := exp.Setup(); err != nil {
					fmt.Fprintf(out, "%-8s  error: %v\n", name, err)
					continue
				}

				start := time.Now()
				result, err := exp.Run(cmd.Context())
				elapsed := time.Since(start)
				if err != nil {
					fmt.Fprintf(out, "%-8s  error: %v\n", name, err)
					continue
				}

				last := result.Samples[len(result.Samples)-1]
				fmt.Fprintf(out, "%-8s  %14.3f  %12.3f  %6d  %9d  %10.2f\n",
					name, last.Altitude, last.Speed, last.Stage, result.Failures,
					float64(elapsed.Microseconds())/1000)
			}
			return nil
		},
	}
	cf.register(cmd)
	return cmd
}
