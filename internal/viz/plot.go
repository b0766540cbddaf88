package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/eqpath/internal/econ"
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Red, asciigraph.Blue, asciigraph.Green, asciigraph.Yellow,
	asciigraph.Magenta, asciigraph.Cyan,
}

type PlotOptions struct {
	Height, Width int
	Caption       string
	// Steady, when set, is subtracted from every period.
	Steady econ.State
}

// PlotPath draws the named variables of p, one line per variable. An empty
// selection plots every variable.
func PlotPath(vars []string, p econ.Path, selected []string, opts PlotOptions) (string, error) {
	if len(p) == 0 {
		return "", fmt.Errorf("empty path")
	}
	if len(selected) == 0 {
		selected = vars
	}
	if opts.Height <= 0 {
		opts.Height = 10
	}
	if opts.Width <= 0 {
		opts.Width = 80
	}

	series := make([][]float64, 0, len(selected))
	for _, name := range selected {
		idx := indexOf(vars, name)
		if idx < 0 {
			return "", fmt.Errorf("unknown variable: %s", name)
		}
		s := p.Series(idx)
		if opts.Steady != nil {
			for t := range s {
				s[t] -= opts.Steady[idx]
			}
		}
		series = append(series, s)
	}

	colors := make([]asciigraph.AnsiColor, len(series))
	for i := range colors {
		colors[i] = seriesColors[i%len(seriesColors)]
	}

	caption := opts.Caption
	if caption == "" {
		caption = fmt.Sprintf("periods 0..%d", len(p)-1)
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(selected...),
	), nil
}

// PlotResiduals draws the log10 Newton residual history.
func PlotResiduals(residuals []float64, height, width int) string {
	if len(residuals) < 2 {
		return ""
	}
	return asciigraph.Plot(logScale(residuals),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("log10 residual"))
}

func indexOf(vars []string, name string) int {
	for i, v := range vars {
		if v == name {
			return i
		}
	}
	return -1
}
