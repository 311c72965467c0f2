package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cobra"

	"github.com/san-kum/rigidsim/internal/analysis"
	"github.com/san-kum/rigidsim/internal/automation"
	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/optim"
	"github.com/san-kum/rigidsim/internal/physics"
	"github.com/san-kum/rigidsim/internal/sim"
	"github.com/san-kum/rigidsim/internal/storage"
	"github.com/san-kum/rigidsim/internal/viz"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func buildMetrics(names []string, g mgl64.Vec3) ([]dynamo.Metric, error) {
	if len(names) == 0 {
		names = metrics.Names()
	}
	out := make([]dynamo.Metric, 0, len(names))
	for _, n := range names {
		m, err := metrics.ByName(n, g)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %v)", err, metrics.Names())
		}
		out = append(out, m)
	}
	return out, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	log := newLogger().WithName(cfg.Scenario)

	ms, err := buildMetrics(metricList, mgl64.Vec3(cfg.Gravity))
	if err != nil {
		return err
	}
	exp := experiment.New(cfg, experiment.NewRegistry(), log)
	if err := exp.Setup(ms); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Println(viz.Summary(viz.GetTheme(themeName), cfg.Scenario, result, exp.World().Gravity()))
	fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Scenario:   cfg.Scenario,
		Preset:     preset,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Substeps:   cfg.Substeps,
		Integrator: cfg.Integrator,
		Controller: cfg.Controller.Kind,
	}, result)
	if err != nil {
		return err
	}
	log.V(1).Info("run stored", "id", runID, "dir", dataDir)
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()
	log := newLogger().WithName(cfg.Scenario)
	m, err := viz.NewLiveModel(cfg.Scenario, func() (*experiment.World, error) {
		return reg.Build(cfg, log)
	}, cfg.Dt, cfg.Substeps)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func listScenarios(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tPRESETS\tDESCRIPTION")
	for _, s := range experiment.NewRegistry().List() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, strings.Join(config.ListPresets(s.Name), ","), s.Description)
	}
	return w.Flush()
}

func inspectScenario(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	w, err := experiment.NewRegistry().Build(cfg, newLogger())
	if err != nil {
		return err
	}
	var f dynamo.Frame
	sim.Capture(w.Sim, 0, &f)

	dump := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}
	fmt.Println("config:")
	dump.Dump(cfg)
	fmt.Println("initial frame:")
	dump.Dump(f)
	return nil
}

// parseValues accepts plain numbers and lo:hi:n ranges.
func parseValues(args []string) ([]float64, error) {
	var values []float64
	for _, s := range args {
		if lo, rest, ok := strings.Cut(s, ":"); ok {
			hi, n, ok := strings.Cut(rest, ":")
			if !ok {
				return nil, fmt.Errorf("range %q: want lo:hi:n", s)
			}
			l, err1 := strconv.ParseFloat(lo, 64)
			h, err2 := strconv.ParseFloat(hi, 64)
			c, err3 := strconv.Atoi(n)
			if err := errors.Join(err1, err2, err3); err != nil {
				return nil, fmt.Errorf("range %q: %w", s, err)
			}
			values = append(values, automation.Linspace(l, h, c)...)
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", s, err)
		}
		values = append(values, v)
	}
	return values, nil
}

func sweepScenario(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	values, err := parseValues(args[2:])
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ctx, cancel := signalContext()
	defer cancel()
	sweep := &automation.ParameterSweep{Base: cfg, Param: args[1], Values: values, Metrics: sweepMetrics, Workers: workers}
	results, err := automation.RunSweep(ctx, sweep, experiment.NewRegistry(), newLogger().WithName("sweep"))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\tERRORS\n", strings.ToUpper(sweep.Param), strings.ToUpper(strings.Join(sweepMetrics, "\t")))
	for _, r := range results {
		cols := make([]string, len(sweepMetrics))
		for j, n := range sweepMetrics {
			cols[j] = fmt.Sprintf("%.6g", r.Result.Metrics[n])
		}
		fmt.Fprintf(w, "%g\t%s\t%d\n", r.Value, strings.Join(cols, "\t"), len(r.Result.Errors))
	}
	return w.Flush()
}

func batchScript(cmd *cobra.Command, args []string) error {
	script, err := automation.LoadScript(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	log := newLogger().WithName(script.Name)
	results, err := automation.RunScript(ctx, script, experiment.NewRegistry(), log)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	theme := viz.GetTheme(themeName)
	for i, res := range results {
		step := script.Steps[i]
		title := step.Scenario
		if step.SaveAs != "" {
			title = step.SaveAs
		}
		g := mgl64.Vec3(config.DefaultConfig().Gravity)
		if cfg, err := step.Config(); err == nil {
			g = mgl64.Vec3(cfg.Gravity)
		}
		fmt.Println(viz.Summary(theme, title, res, g))
		if step.SaveAs == "" {
			continue
		}
		id, err := st.Save(storage.RunMetadata{Scenario: step.Scenario, Preset: step.Preset}, res)
		if err != nil {
			return err
		}
		fmt.Printf("%s stored as %s\n", step.SaveAs, id)
	}
	return nil
}

func monteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	trials, _ := cmd.Flags().GetInt("trials")
	eps, _ := cmd.Flags().GetFloat64("perturbation")
	seed, _ := cmd.Flags().GetInt64("seed")
	workers, _ := cmd.Flags().GetInt("workers")

	ctx, cancel := signalContext()
	defer cancel()
	mc := &automation.MonteCarloConfig{Base: cfg, Perturbation: eps, Trials: trials, Seed: seed, Workers: workers}
	results, err := automation.RunMonteCarlo(ctx, mc, experiment.NewRegistry(), newLogger().WithName("montecarlo"))
	if err != nil {
		return err
	}
	stable, unstable, spread := automation.MonteCarloStats(results)
	fmt.Printf("scenario: %s, %d trials, perturbation %g\n", cfg.Scenario, trials, eps)
	fmt.Printf("stable: %d  unstable: %d\n", stable, unstable)
	fmt.Printf("final position spread: %.4f\n", spread)
	return nil
}

func optimizeScenario(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	grid, _ := cmd.Flags().GetStringArray("grid")
	if len(grid) == 0 {
		return fmt.Errorf("at least one --grid is required (parameters: %v)", optim.Parameters())
	}

	var names []string
	var ranges [][]float64
	for _, g := range grid {
		name, list, ok := strings.Cut(g, "=")
		if !ok {
			return fmt.Errorf("grid %q: want name=v1,v2,...", g)
		}
		var vals []float64
		for _, s := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return fmt.Errorf("grid %q: %w", g, err)
			}
			vals = append(vals, v)
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}

	ctx, cancel := signalContext()
	defer cancel()
	gs := optim.NewGridSearch(names, ranges, newLogger().WithName("optimize"))
	best, value, points, err := gs.Search(ctx, cfg, experiment.NewRegistry(), args[1])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(args[1]))
	for _, p := range points {
		cols := make([]string, len(names))
		for i, n := range names {
			cols[i] = fmt.Sprintf("%g", p.Params[n])
		}
		val := fmt.Sprintf("%.6g", p.Value)
		if p.Err != nil {
			val = "error: " + p.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\n", strings.Join(cols, "\t"), val)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nbest %s = %.6g at %v\n", args[1], value, best)
	return nil
}

func benchScenario(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("benchmarking %s (%.1fs at dt=%.4f, %d substeps)\n\n", base.Scenario, base.Duration, base.Dt, base.Substeps)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tSTEPS\tTIME\tSTEPS/S\tENERGY_DRIFT\tERRORS")
	var panels []string
	for _, name := range []string{"midpoint", "euler"} {
		cfg := base.Clone()
		cfg.Integrator = name
		drift := metrics.NewEnergyDrift(mgl64.Vec3(cfg.Gravity))
		exp := experiment.New(cfg, experiment.NewRegistry(), newLogger())
		if err := exp.Setup([]dynamo.Metric{drift}); err != nil {
			return err
		}
		start := time.Now()
		result, err := exp.Run(context.Background())
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		fmt.Fprintf(w, "%s\t%d\t%v\t%.0f\t%.3e\t%d\n",
			name, result.StepsTaken, elapsed.Round(time.Microsecond),
			float64(result.StepsTaken)/elapsed.Seconds(), drift.Value(), len(result.Errors))
		panels = append(panels, viz.Summary(viz.GetTheme(themeName), name, result, mgl64.Vec3(cfg.Gravity)))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(viz.Columns(panels...))
	return nil
}

func lyapunovScenario(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	eps, _ := cmd.Flags().GetFloat64("perturbation")
	reg := experiment.NewRegistry()
	log := newLogger()

	build := func(offset mgl64.Vec3) (*physics.Simulator, *physics.RigidBody, error) {
		w, err := reg.Build(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		if w.Focus == nil {
			return nil, nil, errors.New("scenario has no focus body")
		}
		w.Focus.SetPos(w.Focus.Pos().Add(offset))
		return w.Sim, w.Focus, nil
	}
	steps := int(cfg.Duration/cfg.Dt + 0.5)
	lambda, err := analysis.LyapunovExponent(build, cfg.Dt, steps, eps)
	if err != nil {
		return err
	}
	fmt.Printf("scenario: %s\n", cfg.Scenario)
	fmt.Printf("lyapunov exponent: %.4f 1/s\n", lambda)
	if lambda > 0 {
		fmt.Println("nearby trajectories diverge")
	} else {
		fmt.Println("nearby trajectories converge")
	}
	return nil
}
