package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/eqpath/internal/experiment"
	"github.com/san-kum/eqpath/internal/sweep"
)

func runSweep(cmd *cobra.Command, args []string) error {
	if len(gridAxes) == 0 {
		return fmt.Errorf("sweep needs at least one --grid axis")
	}
	axes := make([]sweep.Axis, len(gridAxes))
	for i, s := range gridAxes {
		a, err := sweep.ParseAxis(s)
		if err != nil {
			return fmt.Errorf("--grid: %w", err)
		}
		axes[i] = a
	}
	g, err := sweep.NewGrid(axes...)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	kind := experiment.KindPath
	if stacked {
		kind = experiment.KindStacked
	}

	fmt.Printf("sweeping %s over %d points...\n", cfg.Model, g.Size())
	points, err := sweep.Run(cmd.Context(), cfg, g, sweep.Options{Kind: kind, Workers: parallel})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := "PARAMS\tSTATUS\tHORIZON\tATTEMPTS"
	if bestMetric != "" {
		header += "\t" + strings.ToUpper(bestMetric)
	}
	fmt.Fprintln(w, header)
	for _, p := range points {
		line := fmt.Sprintf("%s\t%s\t%d\t%d", formatParams(p.Params), p.Flag, p.Diagnostics.Horizon, p.Diagnostics.Attempts)
		if bestMetric != "" {
			if v, ok := p.Metrics[bestMetric]; ok {
				line += fmt.Sprintf("\t%.6g", v)
			} else {
				line += "\t-"
			}
		}
		fmt.Fprintln(w, line)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if bestMetric != "" {
		best, ok := sweep.Best(points, bestMetric)
		if !ok {
			return fmt.Errorf("no successful point reports %s", bestMetric)
		}
		fmt.Printf("\nbest %s: %.6g at %s\n", bestMetric, best.Metrics[bestMetric], formatParams(best.Params))
	}
	return nil
}

func formatParams(p map[string]float64) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%g", k, p[k])
	}
	return strings.Join(pairs, " ")
}
