package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/eqpath/internal/horizon"
	"github.com/san-kum/eqpath/internal/storage"
)

// RenderSummary renders a run's outcome: flag, diagnostics, the horizon
// attempts and the path metrics.
func RenderSummary(meta storage.RunMetadata) string {
	var s strings.Builder

	title := strings.ToUpper(meta.Model)
	if meta.Kind != "" {
		title += " / " + meta.Kind
	}
	s.WriteString(HeaderStyle.Render(Title.Render(title)) + "\n\n")
	s.WriteString(MetricLabel.Render("Status") + FlagStyle(meta.Flag).Render(meta.Flag.String()) + "\n")
	if meta.Shock != nil {
		s.WriteString(row("Shock", fmt.Sprintf("%s %+g", meta.Shock.Name, meta.Shock.Value)))
	}

	d := meta.Diagnostics
	s.WriteString(row("Horizon", fmt.Sprintf("%d", d.Horizon)))
	s.WriteString(row("Iterations", fmt.Sprintf("%d", d.Iterations)))
	s.WriteString(row("Residual", fmt.Sprintf("%.3e", d.Residual)))
	s.WriteString(row("Terminal gap", fmt.Sprintf("%.3e", d.TerminalGap)))
	s.WriteString(row("Evaluations", fmt.Sprintf("%d residual, %d jacobian", d.ResidualEvals, d.JacobianEvals)))

	if len(meta.Attempts) > 0 {
		s.WriteString("\n" + Separator(40) + "\n")
		s.WriteString(AttemptTable(meta.Attempts))
	}

	if len(meta.Metrics) > 0 {
		s.WriteString("\n" + Separator(40) + "\n")
		names := make([]string, 0, len(meta.Metrics))
		for k := range meta.Metrics {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			s.WriteString(row(k, fmt.Sprintf("%.6g", meta.Metrics[k])))
		}
	}
	return Panel.Render(s.String())
}

// AttemptTable renders one line per horizon attempt.
func AttemptTable(attempts []horizon.Attempt) string {
	var s strings.Builder
	s.WriteString(Subtle.Render(fmt.Sprintf("%-3s %8s %-18s %5s %11s %11s", "#", "horizon", "flag", "iter", "residual", "gap")) + "\n")
	for _, a := range attempts {
		flag := FlagStyle(a.Flag).Render(fmt.Sprintf("%-18s", a.Flag))
		fmt.Fprintf(&s, "%-3d %8d %s %5d %11.3e %11.3e\n",
			a.Number, a.Horizon, flag, a.Iterations, a.Residual, a.TerminalGap)
	}
	return s.String()
}

func logScale(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			out[i] = math.NaN()
			continue
		case v <= 0:
			out[i] = -16
			continue
		}
		out[i] = math.Log10(v)
	}
	return out
}
