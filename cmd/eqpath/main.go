package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/san-kum/eqpath/internal/logger"
	"github.com/san-kum/eqpath/internal/viz"
)

var (
	dataDir  string
	verbose  int
	jsonLogs bool
	theme    string

	configFile    string
	preset        string
	model         string
	horizonLen    int
	maxHorizon    int
	minHorizon    int
	tol           float64
	terminalTol   float64
	maxIter       int
	maxAttempts   int
	jacobian      string
	workers       int
	reuseJacobian bool
	shock         string
	params        []string
	initial       []string

	save      bool
	plotVars  []string
	deviation bool
	stacked   bool
	output    string

	gridAxes   []string
	bestMetric string
	parallel   int
)

// main registers the eqpath commands and exits with status 1 when one fails.
func main() {
	rootCmd := &cobra.Command{
		Use:          "eqpath",
		Short:        "perfect-foresight transition paths for dynamic economies",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.Setup(logger.Config{Verbose: verbose, JSON: jsonLogs})
			if theme != "" && !viz.SetTheme(theme) {
				return errUnknownTheme(theme)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "dir", ".eqpath", "run directory")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "log attempts (-v) and newton iterations (-vv)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "log as json")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "", "color theme")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list models and their parameters",
		Args:  cobra.NoArgs,
		RunE:  listModels,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE:  listPresets,
	}

	ststCmd := &cobra.Command{
		Use:   "stst",
		Short: "solve the steady state",
		Args:  cobra.NoArgs,
		RunE:  solveSteady,
	}
	addSolveFlags(ststCmd)

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "solve the transition path, extending the horizon as needed",
		Args:  cobra.NoArgs,
		RunE:  solvePath,
	}
	addSolveFlags(pathCmd)
	addOutputFlags(pathCmd)

	stackedCmd := &cobra.Command{
		Use:   "stacked",
		Short: "solve the stacked system once over a fixed horizon",
		Args:  cobra.NoArgs,
		RunE:  solveStacked,
	}
	addSolveFlags(stackedCmd)
	addOutputFlags(stackedCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "solve with live solver progress",
		Args:  cobra.NoArgs,
		RunE:  watchPath,
	}
	addSolveFlags(watchCmd)
	watchCmd.Flags().BoolVar(&save, "save", true, "save the run")
	watchCmd.Flags().BoolVar(&stacked, "stacked", false, "solve once over a fixed horizon")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "solve over a grid of parameter values",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addSolveFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&gridAxes, "grid", nil, "swept parameter as name=v1,v2 or name=lo:hi:n (repeatable)")
	sweepCmd.Flags().StringVar(&bestMetric, "best", "", "report the point minimizing this metric")
	sweepCmd.Flags().IntVar(&parallel, "parallel", 0, "points solved at once (0 = all cpus)")
	sweepCmd.Flags().BoolVar(&stacked, "stacked", false, "solve once over a fixed horizon")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotVars, "vars", nil, "variables to plot (default all)")
	plotCmd.Flags().BoolVar(&deviation, "deviation", false, "plot deviations from the steady state")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run path to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	configCmd := &cobra.Command{
		Use:   "config [file]",
		Short: "write the resolved configuration as yaml",
		Args:  cobra.ExactArgs(1),
		RunE:  writeConfig,
	}
	addSolveFlags(configCmd)

	rootCmd.AddCommand(modelsCmd, presetsCmd, ststCmd, pathCmd, stackedCmd, watchCmd, sweepCmd,
		listCmd, showCmd, plotCmd, exportJSONCmd, exportCSVCmd, configCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func addSolveFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.StringVarP(&model, "model", "m", "lag3", "model name")
	f.IntVar(&horizonLen, "horizon", 50, "reported periods T")
	f.IntVar(&maxHorizon, "max-horizon", 500, "largest horizon tried")
	f.IntVar(&minHorizon, "min-horizon", 0, "first horizon tried when above T")
	f.Float64Var(&tol, "tol", 1e-8, "newton tolerance")
	f.Float64Var(&terminalTol, "terminal-tol", 0, "terminal gap tolerance (default tol)")
	f.IntVar(&maxIter, "max-iter", 30, "newton iterations per attempt")
	f.IntVar(&maxAttempts, "max-attempts", 8, "horizon attempts")
	f.StringVar(&jacobian, "jacobian", "auto", "jacobian: auto, analytic, numeric")
	f.IntVar(&workers, "workers", 0, "linearization workers (0 = all cpus, 1 = serial)")
	f.BoolVar(&reuseJacobian, "reuse-jacobian", false, "keep the jacobian until newton stalls")
	f.StringVar(&shock, "shock", "", "shock as name=value")
	f.StringSliceVar(&params, "set", nil, "parameter overrides as name=value")
	f.StringSliceVar(&initial, "init", nil, "period 0 deviations as var=value")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&save, "save", true, "save the run")
	cmd.Flags().StringSliceVar(&plotVars, "plot", nil, "variables to plot after solving")
}
