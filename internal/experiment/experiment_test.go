package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/eqpath/internal/config"
	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/horizon"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	names := r.ListModels()
	want := []string{"aiyagari", "lag3", "nk", "rbc"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("expected %v, got %v", want, names)
		}
	}

	if _, err := r.GetModel("nonexistent", nil); err == nil {
		t.Error("expected error for unknown model")
	}
	if _, err := r.GetModel("nk", map[string]float64{"nope": 1}); err == nil {
		t.Error("expected error for unknown param")
	}

	spec, err := r.GetModel("nk", map[string]float64{"kappa": 0.3})
	if err != nil {
		t.Fatal(err)
	}
	if spec.GetParams()["kappa"] != 0.3 {
		t.Errorf("param override not applied: %v", spec.GetParams())
	}
}

func TestRunCanonicalPreset(t *testing.T) {
	e := New(config.GetPreset("lag3", "canonical"))
	ctx := context.Background()
	if err := e.Setup(ctx); err != nil {
		t.Fatal(err)
	}

	var attempts []horizon.Attempt
	e.OnAttempt = func(a horizon.Attempt) { attempts = append(attempts, a) }

	run, err := e.Run(ctx, KindPath)
	if err != nil {
		t.Fatal(err)
	}
	if run.Flag != econ.Success || len(run.Path) != 51 {
		t.Errorf("flag %v, %d periods", run.Flag, len(run.Path))
	}
	if len(attempts) != 2 || run.Diagnostics.Horizon != 100 {
		t.Errorf("expected two attempts ending at horizon 100, got %+v", attempts)
	}
	if math.Abs(run.Metrics["peak_y_l1"]-0.2) > 1e-12 {
		t.Errorf("peak_y_l1 = %v", run.Metrics["peak_y_l1"])
	}

	meta := run.Metadata()
	if meta.Model != "lag3" || meta.Kind != "path" || len(meta.Vars) != 4 {
		t.Errorf("unexpected metadata %+v", meta)
	}
}

func TestRunStackedShock(t *testing.T) {
	e := New(config.GetPreset("nk", "demand"))
	ctx := context.Background()
	if err := e.Setup(ctx); err != nil {
		t.Fatal(err)
	}

	run, err := e.Run(ctx, KindStacked)
	if err != nil {
		t.Fatal(err)
	}
	if run.Shock == nil || run.Shock.Name != "e_beta" {
		t.Errorf("shock not recorded: %+v", run.Shock)
	}
	if len(run.Path) != 201 || run.Diagnostics.Attempts != 1 {
		t.Errorf("%d periods, %d attempts", len(run.Path), run.Diagnostics.Attempts)
	}
	// beta jumps in period 1, not period 0.
	beta, _ := run.Model.Index("beta")
	if run.Path[0][beta] != run.Steady[beta] || run.Path[1][beta] <= run.Steady[beta] {
		t.Errorf("beta path starts %v, %v", run.Path[0][beta], run.Path[1][beta])
	}
}

func TestRunBeforeSetup(t *testing.T) {
	e := New(config.DefaultConfig())
	if _, err := e.Run(context.Background(), KindPath); err == nil {
		t.Error("expected error before setup")
	}
}

func TestSetupCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(config.DefaultConfig()).Setup(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunUnknownVariable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Initial = map[string]float64{"nope": 1}

	e := New(cfg)
	if err := e.Setup(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Run(context.Background(), KindPath); err == nil {
		t.Error("expected error for unknown variable")
	}
}
