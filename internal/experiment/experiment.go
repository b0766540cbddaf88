package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/eqpath/internal/config"
	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/hetagent"
	"github.com/san-kum/eqpath/internal/horizon"
	"github.com/san-kum/eqpath/internal/logger"
	"github.com/san-kum/eqpath/internal/metrics"
	"github.com/san-kum/eqpath/internal/newton"
	"github.com/san-kum/eqpath/internal/stack"
	"github.com/san-kum/eqpath/internal/steady"
	"github.com/san-kum/eqpath/internal/storage"
)

type Kind string

const (
	// KindPath extends the horizon until the path reaches the steady state.
	KindPath Kind = "path"
	// KindStacked solves once over the configured horizon.
	KindStacked Kind = "stacked"
)

// Run is the outcome of one experiment.
type Run struct {
	Kind        Kind
	Model       *econ.Model
	Steady      econ.State
	Shock       *econ.Shock
	Path        econ.Path
	Flag        econ.Flag
	Diagnostics econ.Diagnostics
	Attempts    []horizon.Attempt
	Household   *hetagent.Path
	Metrics     map[string]float64
	Elapsed     time.Duration
}

func (r *Run) Metadata() storage.RunMetadata {
	return storage.RunMetadata{
		Model:       r.Model.Name,
		Kind:        string(r.Kind),
		Params:      r.Model.Params,
		Vars:        r.Model.Vars,
		SteadyState: r.Steady,
		Shock:       r.Shock,
		Flag:        r.Flag,
		Diagnostics: r.Diagnostics,
		Attempts:    r.Attempts,
		Metrics:     r.Metrics,
	}
}

type Experiment struct {
	cfg      *config.Config
	registry *Registry
	model    *econ.Model
	steady   *steady.Result
	log      *slog.Logger

	// Observer and OnAttempt receive solver progress.
	Observer  newton.Observer
	OnAttempt func(horizon.Attempt)
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		log:      logger.L(),
	}
}

func (e *Experiment) WithRegistry(r *Registry) *Experiment {
	e.registry = r
	return e
}

func (e *Experiment) WithLogger(l *slog.Logger) *Experiment {
	e.log = l
	return e
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Model returns the model built by Setup.
func (e *Experiment) Model() *econ.Model { return e.model }

// Setup builds the model and solves its steady state.
func (e *Experiment) Setup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	m, err := e.registry.Build(e.cfg.Model, e.cfg.Params)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := steady.Solve(m, nil, e.cfg.SteadyOptions())
	if err != nil {
		return fmt.Errorf("steady state: %w", err)
	}
	e.log.Info("steady state",
		"model", m.Name,
		"iterations", res.Diagnostics.Iterations,
		"residual", res.Diagnostics.Residual,
		"elapsed", time.Since(start))

	e.model = m
	e.steady = res
	return nil
}

func (e *Experiment) SteadyState() *steady.Result { return e.steady }

// Run solves the configured path. A failed solve still returns the run with
// its best-effort path.
func (e *Experiment) Run(ctx context.Context, kind Kind) (*Run, error) {
	if e.model == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stst := e.steady.State
	init, err := e.cfg.InitialState(e.model, stst)
	if err != nil {
		return nil, err
	}

	opts := e.cfg.PathOptions()
	opts.Logger = e.log
	opts.Observer = e.Observer
	opts.OnAttempt = e.OnAttempt

	run := &Run{Kind: kind, Model: e.model, Steady: stst}
	if e.cfg.HasShock() {
		shock := e.cfg.GetShock()
		run.Shock = &shock
		if init, opts, err = horizon.Apply(e.model, init, shock, opts); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	switch kind {
	case KindPath:
		var res *horizon.Result
		res, err = horizon.FindPath(e.model, init, e.cfg.Path.Horizon, e.cfg.Path.MaxHorizon, opts)
		run.Path, run.Flag, run.Diagnostics = res.Path, res.Flag, res.Diagnostics
		run.Attempts, run.Household = res.Attempts, res.Household
	case KindStacked:
		so := e.cfg.StackOptions()
		so.Shocks = opts.Shocks
		so.Observer = e.Observer
		var res *stack.Result
		res, err = stack.Solve(e.model, init, e.cfg.Path.Horizon, so)
		run.Path, run.Flag, run.Diagnostics = res.Path, res.Flag, res.Diagnostics
		run.Household = res.Household
	default:
		return nil, fmt.Errorf("unknown run kind: %s", kind)
	}
	run.Elapsed = time.Since(start)
	run.Metrics = metrics.Evaluate(run.Path, stst, e.registry.DefaultMetrics(e.model)...)

	e.log.Info("path",
		"model", e.model.Name,
		"kind", kind,
		"flag", run.Flag,
		"horizon", run.Diagnostics.Horizon,
		"attempts", run.Diagnostics.Attempts,
		"elapsed", run.Elapsed)
	return run, err
}
