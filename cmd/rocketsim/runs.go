package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/SGBon/BMKSA/internal/chart"
	"github.com/SGBon/BMKSA/internal/config"
	"github.com/SGBon/BMKSA/internal/dynamo"
	"github.com/SGBon/BMKSA/internal/storage"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
)

func printResult(w io.Writer, ticks, failures int, events []dynamo.StageEvent, metrics map[string]float64) {
	fmt.Fprintf(w, "ticks: %d\n", ticks)
	if failures > 0 {
		fmt.Fprintf(w, "failed ticks: %d\n", failures)
	}
	for _, ev := range events {
		fmt.Fprintf(w, "  %s\n", ev)
	}

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "\nmetrics:")
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %.6f\n", name, metrics[name])
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list archived runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := storage.New(dataDir()).List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs found")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPRESET\tTIME\tDURATION\tDT\tSTEPPER\tTICKS\tSTAGINGS\tFAILURES")
			for _, run := range runs {
				preset := run.Preset
				if preset == "" {
					preset = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%.1fs\t%.3fs\t%s\t%d\t%d\t%d\n",
					run.ID,
					preset,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Duration,
					run.Dt,
					run.Stepper,
					run.Ticks,
					len(run.Events),
					run.Failures,
				)
			}
			return w.Flush()
		},
	}
}

func loadRun(runID string) (*storage.RunMetadata, []dynamo.Sample, error) {
	st := storage.New(dataDir())
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("run %s has no samples", runID)
	}
	return meta, samples, nil
}

func newPlotCmd() *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot an archived run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, samples, err := loadRun(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run: %s\n", meta.ID)
			fmt.Fprintf(out, "samples: %d\n\n", len(samples))

			for _, field := range fields {
				_, ys, err := chart.Series(samples, field)
				if err != nil {
					return err
				}
				graph := asciigraph.Plot(ys,
					asciigraph.Height(10),
					asciigraph.Width(80),
					asciigraph.Caption(chart.Label(field)),
				)
				fmt.Fprintln(out, graph)
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&fields, "field", []string{"sy", "speed", "mass"}, "fields to plot")
	return cmd
}

func newChartCmd() *cobra.Command {
	var (
		field  string
		output string
		opts   = chart.DefaultOptions()
	)

	cmd := &cobra.Command{
		Use:   "chart [run_id]",
		Short: "render one field of an archived run to PNG or SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, samples, err := loadRun(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("%s_%s.png", meta.ID, field)
			}

			opts.Events = meta.Events
			p, err := chart.Line(samples, field, opts)
			if err != nil {
				return err
			}

			write := chart.WritePNG
			if strings.EqualFold(filepath.Ext(output), ".svg") {
				write = chart.WriteSVG
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := write(f, p, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chart written to %s\n", output)
			return f.Close()
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&field, "field", "sy", "field to chart: one of plot's fields")
	fl.StringVarP(&output, "output", "o", "", "output file, .svg for vector output (default <run_id>_<field>.png)")
	fl.StringVar(&opts.Title, "title", "", "chart title")
	fl.Float64Var(&opts.Width, "width", opts.Width, "width in inches")
	fl.Float64Var(&opts.Height, "height", opts.Height, "height in inches")
	fl.IntVar(&opts.DPI, "dpi", opts.DPI, "resolution")
	return cmd
}

// openOutput returns stdout when path is empty.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func newExportCSVCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, samples, err := loadRun(args[0])
			if err != nil {
				return err
			}
			w, closeFn, err := openOutput(cmd, output)
			if err != nil {
				return err
			}
			if err := storage.WriteCSV(w, samples); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newExportJSONCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and samples to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, samples, err := loadRun(args[0])
			if err != nil {
				return err
			}
			w, closeFn, err := openOutput(cmd, output)
			if err != nil {
				return err
			}
			if err := storage.ExportJSON(w, meta, samples); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list vehicle presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTEPPER\tDT\tDURATION\tMASS_KG\tPAYLOAD_KG\tTARGET_KM")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				p := cfg.Params()
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%.0fs\t%.0f\t%.0f\t%.0f\n",
					name, cfg.Stepper, p.DT, cfg.Duration, p.TotalMass(), p.PayloadMass, p.TargetAltitude/1000)
			}
			return w.Flush()
		},
	}
}
