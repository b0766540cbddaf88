package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/storage"
	"github.com/san-kum/eqpath/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tKIND\tTIME\tSTATUS\tHORIZON\tATTEMPTS\tSHOCK")

	for _, run := range runs {
		shock := "-"
		if run.Shock != nil {
			shock = fmt.Sprintf("%s=%g", run.Shock.Name, run.Shock.Value)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			run.ID,
			run.Model,
			run.Kind,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Status,
			run.Diagnostics.Horizon,
			run.Diagnostics.Attempts,
			shock,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	fmt.Println(viz.RenderSummary(*meta))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	vars, p, err := st.LoadPath(runID)
	if err != nil {
		return err
	}
	if len(p) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("periods: %d\n\n", len(p))

	opts := viz.PlotOptions{Height: 10, Width: 80}
	if deviation {
		if len(meta.SteadyState) != len(vars) {
			return fmt.Errorf("run %s has no steady state", runID)
		}
		opts.Steady = econ.State(meta.SteadyState)
		opts.Caption = "deviation from steady state"
	}

	selected := plotVars
	if len(selected) == 0 {
		selected = vars
	}
	// One plot per variable keeps differently scaled series readable.
	for _, name := range selected {
		graph, err := viz.PlotPath(vars, p, []string{name}, opts)
		if err != nil {
			return err
		}
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func loadRun(runID string) (*storage.RunMetadata, econ.Path, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	_, p, err := st.LoadPath(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, p, nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, p, err := loadRun(args[0])
	if err != nil {
		return err
	}
	data := storage.NewExport(*meta, p)
	if output == "" {
		return storage.WriteJSON(os.Stdout, data)
	}
	if err := storage.ExportJSON(output, data); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", output)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	meta, p, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if len(p) == 0 {
		return fmt.Errorf("no data to export")
	}
	if output == "" {
		return storage.WriteCSV(os.Stdout, meta.Vars, p)
	}
	if err := storage.ExportCSV(output, meta.Vars, p); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", output)
	return nil
}
