package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/rigidsim/internal/analysis"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/export"
	"github.com/san-kum/rigidsim/internal/storage"
	"github.com/san-kum/rigidsim/internal/viz"
)

var fields = map[string]analysis.Pick{
	"x":     analysis.X,
	"y":     analysis.Height,
	"z":     func(b dynamo.BodySample) float64 { return b.Pos[2] },
	"vx":    analysis.HorizontalSpeed,
	"vy":    analysis.VerticalSpeed,
	"speed": func(b dynamo.BodySample) float64 { return b.Vel.Len() },
	"spin":  func(b dynamo.BodySample) float64 { return b.AngVel.Len() },
	"tilt":  analysis.Tilt,
	"yaw":   analysis.Heading,
}

func fieldNames() []string {
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func loadRun(runID string) (*storage.RunMetadata, []dynamo.Frame, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(frames) == 0 {
		return nil, nil, fmt.Errorf("run %s has no frames", runID)
	}
	return meta, frames, nil
}

func series(frames []dynamo.Frame) ([]float64, []float64, error) {
	pick, ok := fields[field]
	if !ok {
		return nil, nil, fmt.Errorf("unknown field %q (available: %v)", field, fieldNames())
	}
	var times, values []float64
	for _, f := range frames {
		if b, ok := f.Body(bodyID); ok {
			times = append(times, f.Time)
			values = append(values, pick(b))
		}
	}
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("body %d not found", bodyID)
	}
	return times, values, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tPRESET\tTIME\tDURATION\tDT\tSTEPS\tBODIES\tERRORS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\t%d\n",
			run.ID,
			run.Scenario,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Steps,
			run.Bodies,
			len(run.Errors),
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, frames, err := loadRun(args[0])
	if err != nil {
		return err
	}
	_, values, err := series(frames)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(values))
	fmt.Println(viz.Chart(values, fmt.Sprintf("body %d %s", bodyID, field), 70, 15))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, frames, err := loadRun(args[0])
	if err != nil {
		return err
	}
	times, values, err := series(frames)
	if err != nil {
		return err
	}
	if len(times) < 4 {
		return fmt.Errorf("need at least 4 samples, have %d", len(times))
	}
	sampleDt := (times[len(times)-1] - times[0]) / float64(len(times)-1)

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("scenario: %s, body %d, field %s\n\n", meta.Scenario, bodyID, field)

	freqs, mags := analysis.Spectrum(values, sampleDt)
	if len(mags) > 1 {
		fmt.Println(viz.Chart(mags[1:], "magnitude spectrum", 60, 8))
		fmt.Printf("resolution: %.3f hz\n", freqs[1]-freqs[0])
	}

	freq := analysis.DominantFrequency(values, sampleDt)
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	if t, ok := analysis.SettleTime(times, values, 0.01); ok {
		fmt.Printf("settles within 1%% after %.3f s\n", t)
	} else {
		fmt.Println("does not settle")
	}
	for name, v := range meta.Metrics {
		fmt.Printf("  %s: %.6g\n", name, v)
	}
	return nil
}

func phaseRun(cmd *cobra.Command, args []string) error {
	meta, frames, err := loadRun(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("phase space: %s (%s, body %d)\n\n", meta.ID, meta.Scenario, bodyID)

	if poincare, _ := cmd.Flags().GetBool("poincare"); poincare {
		sec := analysis.GeneratePoincareSection(frames, bodyID, analysis.X, 0, analysis.Height, analysis.VerticalSpeed)
		fmt.Println(analysis.PoincareSectionToASCII(sec, 60, 20))
		return nil
	}
	portrait := analysis.PhasePortrait(frames, bodyID, analysis.Height, analysis.VerticalSpeed)
	fmt.Println(analysis.PhasePortraitToASCII(portrait, 60, 20))
	fmt.Println("x: height, y: vertical speed")
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, frames, err := loadRun(args[0])
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	var out io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "json":
		return storage.ExportJSON(out, *meta, frames)
	case "csv":
		return storage.WriteFrames(out, frames)
	case "svg":
		return export.RunToSVG(out, frames, 800, 600)
	}
	return fmt.Errorf("unknown format %q (json, csv, svg)", format)
}
