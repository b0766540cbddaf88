package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/eqpath/internal/config"
	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/experiment"
	"github.com/san-kum/eqpath/internal/logger"
)

// Axis is one swept parameter.
type Axis struct {
	Param  string
	Values []float64
}

// ParseAxis reads "name=v1,v2,..." or "name=lo:hi:n", the latter being n
// evenly spaced values from lo to hi.
func ParseAxis(s string) (Axis, error) {
	name, spec, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || spec == "" {
		return Axis{}, fmt.Errorf("expected name=values, got %q", s)
	}

	if lo, rest, ok := strings.Cut(spec, ":"); ok {
		hi, nstr, ok := strings.Cut(rest, ":")
		if !ok {
			return Axis{}, fmt.Errorf("%s: range needs lo:hi:n", name)
		}
		l, err1 := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		u, err2 := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		n, err3 := strconv.Atoi(strings.TrimSpace(nstr))
		if err1 != nil || err2 != nil || err3 != nil {
			return Axis{}, fmt.Errorf("%s: bad range %q", name, spec)
		}
		if n < 2 {
			return Axis{}, fmt.Errorf("%s: range needs at least 2 points, got %d", name, n)
		}
		return Axis{Param: name, Values: floats.Span(make([]float64, n), l, u)}, nil
	}

	parts := strings.Split(spec, ",")
	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Axis{}, fmt.Errorf("%s: %w", name, err)
		}
		values[i] = v
	}
	return Axis{Param: name, Values: values}, nil
}

type Grid struct {
	axes []Axis
}

func NewGrid(axes ...Axis) (*Grid, error) {
	if len(axes) == 0 {
		return nil, fmt.Errorf("sweep: no axes")
	}
	seen := make(map[string]bool, len(axes))
	for _, a := range axes {
		if len(a.Values) == 0 {
			return nil, fmt.Errorf("sweep: axis %s has no values", a.Param)
		}
		if seen[a.Param] {
			return nil, fmt.Errorf("sweep: axis %s given twice", a.Param)
		}
		seen[a.Param] = true
	}
	return &Grid{axes: axes}, nil
}

func (g *Grid) Size() int {
	n := 1
	for _, a := range g.axes {
		n *= len(a.Values)
	}
	return n
}

// Points lists every combination of axis values. The last axis varies
// fastest.
func (g *Grid) Points() []map[string]float64 {
	points := make([]map[string]float64, 0, g.Size())
	g.collect(0, map[string]float64{}, &points)
	return points
}

func (g *Grid) collect(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.axes) {
		*out = append(*out, current)
		return
	}
	a := g.axes[depth]
	for _, v := range a.Values {
		next := make(map[string]float64, len(current)+1)
		for k, x := range current {
			next[k] = x
		}
		next[a.Param] = v
		g.collect(depth+1, next, out)
	}
}

// Point is the outcome of one grid point. Err is set when the point could
// not be solved; Flag then says why.
type Point struct {
	Params      map[string]float64 `json:"params"`
	Flag        econ.Flag          `json:"flag"`
	Diagnostics econ.Diagnostics   `json:"diagnostics"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	Err         string             `json:"error,omitempty"`
}

const errNotRun = "not run"

type Options struct {
	Kind experiment.Kind
	// Workers is the number of points solved at once. Zero means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

// Run solves base at every grid point, the point's values overriding
// base.Params. A point that fails is recorded and does not stop the sweep;
// only cancellation does.
func Run(ctx context.Context, base *config.Config, g *Grid, opts Options) ([]Point, error) {
	if opts.Kind == "" {
		opts.Kind = experiment.KindPath
	}
	if opts.Logger == nil {
		opts.Logger = logger.L()
	}
	points := g.Points()
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(points))

	// Points the sweep never reaches keep this placeholder.
	results := make([]Point, len(points))
	for i, params := range points {
		results[i] = Point{Params: params, Flag: econ.NonConvergence, Err: errNotRun}
	}
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = solvePoint(ctx, base, points[i], workers > 1, opts)
			}
		}()
	}

feed:
	for i := range points {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		for i := range results {
			if results[i].Err == errNotRun {
				results[i].Err = fmt.Sprintf("%s: %v", errNotRun, err)
			}
		}
		return results, err
	}
	return results, nil
}

func solvePoint(ctx context.Context, base *config.Config, params map[string]float64, serial bool, opts Options) Point {
	pt := Point{Params: params}

	cfg := base.Clone()
	if cfg.Params == nil {
		cfg.Params = make(map[string]float64, len(params))
	}
	for k, v := range params {
		cfg.Params[k] = v
	}
	// Points already run in parallel.
	if serial {
		cfg.Path.Workers = 1
	}

	exp := experiment.New(cfg).WithLogger(opts.Logger)
	if err := exp.Setup(ctx); err != nil {
		pt.Flag, pt.Err = setupFlag(err), err.Error()
		return pt
	}
	run, err := exp.Run(ctx, opts.Kind)
	if run != nil {
		pt.Flag, pt.Diagnostics, pt.Metrics = run.Flag, run.Diagnostics, run.Metrics
	}
	if err != nil {
		if run == nil {
			pt.Flag = econ.FlagOf(err)
		}
		pt.Err = err.Error()
	}
	opts.Logger.Info("sweep point", "params", params, "flag", pt.Flag, "horizon", pt.Diagnostics.Horizon)
	return pt
}

// setupFlag classifies a Setup error. Anything but a failed steady-state solve
// is a configuration error.
func setupFlag(err error) econ.Flag {
	var se *econ.SolveError
	if errors.As(err, &se) {
		return se.Flag
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return econ.NonConvergence
	}
	return econ.InvalidInput
}

// Best returns the successful point with the lowest value of metric.
func Best(points []Point, metric string) (Point, bool) {
	best, found := Point{}, false
	lowest := math.Inf(1)
	for _, p := range points {
		if p.Flag != econ.Success {
			continue
		}
		v, ok := p.Metrics[metric]
		if !ok || math.IsNaN(v) {
			continue
		}
		if v < lowest {
			lowest, best, found = v, p, true
		}
	}
	return best, found
}
