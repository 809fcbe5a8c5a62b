package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/SGBon/BMKSA/internal/automation"
	"github.com/SGBon/BMKSA/internal/logging"
	"github.com/SGBon/BMKSA/internal/storage"
	"github.com/spf13/cobra"
)

func newScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			st := storage.New(dataDir())
			if err := st.Init(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scenario: %s\n", sc.Name)
			if sc.Description != "" {
				fmt.Fprintf(out, "  %s\n", sc.Description)
			}

			results, err := automation.RunScenario(cmd.Context(), sc, st, logging.Component(log, "scenario"), os.Stderr)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\nSTEP\tRUN\tTICKS\tSTAGINGS\tMAX_ALT_M\tMAX_SPEED_MPS")
			for _, r := range results {
				runID := r.RunID
				if runID == "" {
					runID = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.1f\t%.1f\n",
					r.Name, runID, r.Result.TicksTaken, len(r.Result.Events),
					r.Result.Metrics["max_altitude"], r.Result.Metrics["max_speed"])
			}
			return w.Flush()
		},
	}
}

func newSweepCmd() *cobra.Command {
	var sweep automation.ParameterSweep

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "vary one vehicle parameter across a range",
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := automation.RunSweep(cmd.Context(), &sweep, logging.Component(log, "sweep"), os.Stderr)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\tMAX_ALT_M\tMAX_SPEED_MPS\tFINAL_MASS_KG\tSTAGE\tSTAGINGS\n", sweep.ParamName)
			for _, r := range results {
				fmt.Fprintf(w, "%.4f\t%.1f\t%.1f\t%.1f\t%d\t%d\n",
					r.ParamValue, r.MaxAltitude, r.MaxSpeed, r.FinalMass, r.FinalStage, len(r.Events))
			}
			return w.Flush()
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&sweep.Preset, "preset", "falcon9", "base preset")
	fl.StringVar(&sweep.ParamName, "param", "payload_mass", "parameter to vary")
	fl.Float64Var(&sweep.ParamMin, "min", 5000, "first value")
	fl.Float64Var(&sweep.ParamMax, "max", 25000, "last value")
	fl.IntVar(&sweep.NumSteps, "steps", 5, "number of values")
	fl.Float64Var(&sweep.Duration, "time", 0, "simulated seconds (0 keeps the preset's)")
	fl.IntVar(&sweep.Workers, "workers", 4, "concurrent runs")
	return cmd
}

func newDispersionCmd() *cobra.Command {
	var mc automation.MonteCarloConfig

	cmd := &cobra.Command{
		Use:   "dispersion",
		Short: "Monte Carlo runs with perturbed vehicle parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := automation.RunMonteCarlo(cmd.Context(), &mc, logging.Sampled(logging.Component(log, "dispersion")), os.Stderr)
			if err != nil {
				return err
			}

			d := automation.Summarize(results)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "trials: %d (nominal %d, off-nominal %d)\n", d.Trials, d.Nominal, d.OffNominal)
			fmt.Fprintf(out, "apex altitude: mean %.1f m, stddev %.1f m, range [%.1f, %.1f] m\n",
				d.MeanApex, d.StdDevApex, d.LowestApex, d.HighestApex)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&mc.Preset, "preset", "falcon9", "base preset")
	fl.StringSliceVar(&mc.Params, "param", []string{"stage1_fuel", "payload_mass"}, "parameters to perturb")
	fl.Float64Var(&mc.Perturbation, "perturbation", 0.05, "relative half-width of the uniform perturbation")
	fl.IntVar(&mc.NumTrials, "trials", 50, "number of trials")
	fl.Float64Var(&mc.Duration, "time", 0, "simulated seconds (0 keeps the preset's)")
	fl.Int64Var(&mc.Seed, "seed", 0, "random seed (0 seeds from the clock)")
	return cmd
}
