package main

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/viz"
)

var (
	dataDir   string
	verbosity int
	themeName string

	configFile   string
	preset       string
	dt           float64
	duration     float64
	substeps     int
	integrator   string
	logLevel     string
	variable     bool
	controller   string
	kp           float64
	ki           float64
	kd           float64
	target       float64
	metricList   []string
	sweepMetrics []string
	noSave       bool

	bodyID int
	field  string
)

func newLogger() logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: verbosity})
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "rigidsim",
		Short:         "rigid body simulation lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := viz.NewApp(experiment.NewRegistry(), newLogger().WithName("viewer"))
			_, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
			return err
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".rigidsim", "data directory")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbose", "v", 0, "log verbosity")
	rootCmd.PersistentFlags().StringVar(&themeName, "theme", viz.Themes[0].Name,
		"color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario and store the result",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addSceneFlags(runCmd)
	runCmd.Flags().StringSliceVar(&metricList, "metrics", nil, "metrics to compute (default all)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "run a scenario in the terminal viewer",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addSceneFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list scenarios",
		RunE:  listScenarios,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list presets for a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for scenario: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect [scenario]",
		Short: "dump the resolved config and initial world",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectScenario,
	}
	addSceneFlags(inspectCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario] [param] [values...]",
		Short: "run a scenario once per parameter value in parallel",
		Args:  cobra.MinimumNArgs(3),
		RunE:  sweepScenario,
	}
	addSceneFlags(sweepCmd)
	sweepCmd.Flags().Int("workers", 0, "parallel workers (default GOMAXPROCS)")
	sweepCmd.Example = "  rigidsim sweep slope friction 0 0.25 0.5\n  rigidsim sweep drop height 1:10:10"
	sweepCmd.Flags().StringSliceVar(&sweepMetrics, "metrics", []string{"max_speed", "idle_ratio"}, "metrics to compute")

	optimizeCmd := &cobra.Command{
		Use:   "optimize [scenario] [metric]",
		Short: "grid search scene parameters minimising a metric",
		Args:  cobra.ExactArgs(2),
		RunE:  optimizeScenario,
	}
	addSceneFlags(optimizeCmd)
	optimizeCmd.Flags().StringArray("grid", nil, "parameter grid, name=v1,v2,... (repeatable)")

	benchCmd := &cobra.Command{
		Use:   "bench [scenario]",
		Short: "time a scenario with each integrator",
		Args:  cobra.ExactArgs(1),
		RunE:  benchScenario,
	}
	addSceneFlags(benchCmd)

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [scenario]",
		Short: "estimate the largest Lyapunov exponent of the focus body",
		Args:  cobra.ExactArgs(1),
		RunE:  lyapunovScenario,
	}
	addSceneFlags(lyapunovCmd)
	lyapunovCmd.Flags().Float64("perturbation", 1e-6, "initial offset")

	batchCmd := &cobra.Command{
		Use:   "batch [script.yaml]",
		Short: "run a scripted sequence of scenarios",
		Args:  cobra.ExactArgs(1),
		RunE:  batchScript,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [scenario]",
		Short: "run trials with a jittered focus body and count stable outcomes",
		Args:  cobra.ExactArgs(1),
		RunE:  monteCarlo,
	}
	addSceneFlags(monteCarloCmd)
	monteCarloCmd.Flags().Int("trials", 50, "number of trials")
	monteCarloCmd.Flags().Float64("perturbation", 0.05, "maximum offset per axis")
	monteCarloCmd.Flags().Int64("seed", 0, "random seed (default time based)")
	monteCarloCmd.Flags().Int("workers", 0, "parallel workers")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a body's trajectory from a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&bodyID, "body", 0, "body id")
	plotCmd.Flags().StringVar(&field, "field", "y", "series to plot ("+strings.Join(fieldNames(), ", ")+")")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and settling analysis of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&bodyID, "body", 0, "body id")
	analyzeCmd.Flags().StringVar(&field, "field", "y", "series to analyze")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase portrait of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  phaseRun,
	}
	phaseCmd.Flags().IntVar(&bodyID, "body", 0, "body id")
	phaseCmd.Flags().Bool("poincare", false, "plot the x = 0 Poincare section instead")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().String("format", "json", "json, csv or svg")
	exportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, presetsCmd, inspectCmd, sweepCmd, optimizeCmd,
		benchCmd, lyapunovCmd, batchCmd, monteCarloCmd, runsCmd, plotCmd, analyzeCmd, phaseCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSceneFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float64Var(&dt, "dt", 1.0/60, "frame step")
	f.Float64Var(&duration, "time", 5, "duration in seconds")
	f.IntVar(&substeps, "substeps", 2, "solver steps per frame")
	f.StringVar(&integrator, "integrator", "midpoint", "angular integrator (midpoint, euler)")
	f.StringVar(&logLevel, "log-level", "one", "engine log level (none, one, full)")
	f.BoolVar(&variable, "variable", false, "variable step")
	f.StringVar(&controller, "controller", "none", "hover controller (none, pid, lqr, constant)")
	f.Float64Var(&kp, "kp", 20, "pid kp")
	f.Float64Var(&ki, "ki", 2, "pid ki")
	f.Float64Var(&kd, "kd", 8, "pid kd")
	f.Float64Var(&target, "target", 0, "controller target height")
}

// resolveConfig layers preset, config file and changed flags, in that order.
func resolveConfig(cmd *cobra.Command, scenario string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p, err := config.GetPreset(scenario, preset)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %v)", err, config.ListPresets(scenario))
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	cfg.Scenario = scenario

	f := cmd.Flags()
	if f.Changed("dt") {
		cfg.Dt = dt
		cfg.MinDt, cfg.MaxDt = dt/2, dt
	}
	if f.Changed("time") {
		cfg.Duration = duration
	}
	if f.Changed("substeps") {
		cfg.Substeps = substeps
	}
	if f.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if f.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if f.Changed("variable") {
		cfg.Variable = variable
	}
	if f.Changed("controller") {
		cfg.Controller.Kind = controller
	}
	if f.Changed("kp") {
		cfg.Controller.Kp = kp
	}
	if f.Changed("ki") {
		cfg.Controller.Ki = ki
	}
	if f.Changed("kd") {
		cfg.Controller.Kd = kd
	}
	if f.Changed("target") {
		cfg.Controller.Target = target
	}
	return cfg, cfg.Validate()
}
