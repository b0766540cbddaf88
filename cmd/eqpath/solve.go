package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/eqpath/internal/config"
	"github.com/san-kum/eqpath/internal/experiment"
	"github.com/san-kum/eqpath/internal/logger"
	"github.com/san-kum/eqpath/internal/storage"
	"github.com/san-kum/eqpath/internal/viz"
)

func errUnknownTheme(name string) error {
	return fmt.Errorf("unknown theme: %s (available: %v)", name, viz.ThemeNames())
}

// loadConfig resolves the run configuration. A config file replaces the
// preset, and flags set on the command line override both.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case preset != "":
		cfg = config.GetPreset(model, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
	default:
		cfg = config.DefaultConfig()
		cfg.Model = model
	}

	if flags.Changed("model") {
		cfg.Model = model
	}
	if flags.Changed("horizon") {
		cfg.Path.Horizon = horizonLen
		if !flags.Changed("max-horizon") && cfg.Path.MaxHorizon < horizonLen {
			cfg.Path.MaxHorizon = horizonLen
		}
	}
	if flags.Changed("max-horizon") {
		cfg.Path.MaxHorizon = maxHorizon
	}
	if flags.Changed("min-horizon") {
		cfg.Path.MinHorizon = minHorizon
	}
	if flags.Changed("tol") {
		cfg.Path.Tol = tol
	}
	if flags.Changed("terminal-tol") {
		cfg.Path.TerminalTol = terminalTol
	}
	if flags.Changed("max-iter") {
		cfg.Path.MaxIter = maxIter
	}
	if flags.Changed("max-attempts") {
		cfg.Path.MaxAttempts = maxAttempts
	}
	if flags.Changed("jacobian") {
		cfg.Path.Jacobian = jacobian
	}
	if flags.Changed("workers") {
		cfg.Path.Workers = workers
	}
	if flags.Changed("reuse-jacobian") {
		cfg.Path.ReuseJacobian = reuseJacobian
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}

	if flags.Changed("shock") {
		name, value, err := parseAssign(shock)
		if err != nil {
			return nil, fmt.Errorf("--shock: %w", err)
		}
		cfg.Shock = config.ShockConfig{Name: name, Value: value}
	}
	if err := assignAll(&cfg.Params, params); err != nil {
		return nil, fmt.Errorf("--set: %w", err)
	}
	if err := assignAll(&cfg.Initial, initial); err != nil {
		return nil, fmt.Errorf("--init: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Setup(logger.Config{Verbose: max(verbose, cfg.Verbose), JSON: jsonLogs})
	return cfg, nil
}

// parseAssign splits "name=value".
func parseAssign(s string) (string, float64, error) {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", 0, fmt.Errorf("expected name=value, got %q", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", name, err)
	}
	return name, v, nil
}

func assignAll(dst *map[string]float64, pairs []string) error {
	for _, p := range pairs {
		name, v, err := parseAssign(p)
		if err != nil {
			return err
		}
		if *dst == nil {
			*dst = make(map[string]float64)
		}
		(*dst)[name] = v
	}
	return nil
}

func setup(cmd *cobra.Command) (*experiment.Experiment, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	exp := experiment.New(cfg)
	if err := exp.Setup(cmd.Context()); err != nil {
		return nil, err
	}
	return exp, nil
}

func listModels(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPARAMS")
	for _, name := range registry.ListModels() {
		spec, err := registry.GetModel(name, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", name, formatParams(spec.GetParams()))
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	presets := config.ListPresets(args[0])
	if len(presets) == 0 {
		fmt.Printf("no presets for model: %s\n", args[0])
		return nil
	}
	fmt.Printf("presets for %s:\n", args[0])
	for _, p := range presets {
		fmt.Printf("  %s\n", p)
	}
	return nil
}

func solveSteady(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}
	m, res := exp.Model(), exp.SteadyState()

	fmt.Printf("model: %s\n", m.Name)
	fmt.Printf("iterations: %d, residual: %.3e\n\n", res.Diagnostics.Iterations, res.Diagnostics.Residual)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VAR\tVALUE")
	for i, name := range m.Vars {
		fmt.Fprintf(w, "%s\t%.10g\n", name, res.State[i])
	}
	if h := res.Household; h != nil {
		fmt.Fprintf(w, "household mass\t%.10g\n", h.Distribution.Sum())
		fmt.Fprintf(w, "policy iterations\t%d\n", h.PolicyIterations)
		fmt.Fprintf(w, "distribution iterations\t%d\n", h.DistributionIterations)
	}
	return w.Flush()
}

func solvePath(cmd *cobra.Command, args []string) error {
	return solve(cmd, experiment.KindPath)
}

func solveStacked(cmd *cobra.Command, args []string) error {
	return solve(cmd, experiment.KindStacked)
}

func solve(cmd *cobra.Command, kind experiment.Kind) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("solving %s %s...\n", exp.Model().Name, kind)
	run, err := exp.Run(cmd.Context(), kind)
	if run == nil {
		return err
	}
	return report(run, err)
}

// report prints and saves a finished run. A run that failed to converge is
// still shown, then its error returned.
func report(run *experiment.Run, runErr error) error {
	meta := run.Metadata()

	if save && len(run.Path) > 0 {
		st := storage.New(dataDir)
		runID, err := st.Save(meta, run.Path)
		if err != nil {
			return errors.Join(runErr, err)
		}
		meta.ID = runID
		fmt.Printf("run id: %s\n", runID)
	}
	fmt.Printf("completed in %v\n\n", run.Elapsed)
	fmt.Println(viz.RenderSummary(meta))

	if len(plotVars) > 0 && len(run.Path) > 0 {
		graph, err := viz.PlotPath(run.Model.Vars, run.Path, plotVars, viz.PlotOptions{Steady: run.Steady})
		if err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Println()
		fmt.Println(graph)
	}
	return runErr
}

func watchPath(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}
	kind := experiment.KindPath
	if stacked {
		kind = experiment.KindStacked
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	events := make(chan tea.Msg)
	exp.Observer, exp.OnAttempt = viz.Feed(ctx, events)
	// Log records would tear the alt screen.
	exp.WithLogger(logger.Discard())

	type outcome struct {
		run *experiment.Run
		err error
	}
	result := make(chan outcome, 1)
	go func() {
		run, err := exp.Run(ctx, kind)
		result <- outcome{run, err}

		done := viz.DoneMsg{Err: err}
		if run != nil {
			meta := run.Metadata()
			done.Run = &meta
		}
		select {
		case events <- done:
		case <-ctx.Done():
		}
	}()

	title := fmt.Sprintf("%s %s", exp.Model().Name, kind)
	cfg := exp.Config()
	final, err := tea.NewProgram(viz.NewWatch(title, cfg.Path.MaxHorizon, events), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if w, ok := final.(viz.Watch); !ok || !w.Done() {
		fmt.Println("watch stopped before the solve finished")
		return nil
	}

	out := <-result
	if out.run == nil {
		return out.err
	}
	return report(out.run, out.err)
}

func writeConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}
