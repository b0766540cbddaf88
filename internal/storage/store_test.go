package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/horizon"
)

func testRun() (RunMetadata, econ.Path) {
	meta := RunMetadata{
		Model:       "lag3",
		Kind:        "path",
		Params:      map[string]float64{"gamma": 2},
		Vars:        []string{"y", "p"},
		SteadyState: []float64{0, 0},
		Shock:       &econ.Shock{Name: "y", Value: 0.1},
		Flag:        econ.Success,
		Diagnostics: econ.Diagnostics{Iterations: 3, Residual: 2.8e-12, Horizon: 100, Attempts: 2},
		Attempts: []horizon.Attempt{
			{Number: 1, Horizon: 50, Flag: econ.Success, TerminalGap: 7.6e-6},
			{Number: 2, Horizon: 100, Flag: econ.Success, TerminalGap: 3.2e-10},
		},
		Metrics: map[string]float64{"peak_y": 0.1},
	}
	p := econ.Path{{0.1, 0.2}, {0.05, 0.1}, {0.019970296634854383, 0.08910000493623567}}
	return meta, p
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta, p := testRun()
	runID, err := st.Save(meta, p)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	loaded, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Model != "lag3" || loaded.ID != runID {
		t.Errorf("unexpected metadata %+v", loaded)
	}
	if loaded.Status != "success" || loaded.Diagnostics.Horizon != 100 {
		t.Errorf("diagnostics lost: %+v", loaded)
	}
	if len(loaded.Attempts) != 2 || loaded.Attempts[1].Horizon != 100 {
		t.Errorf("attempts lost: %+v", loaded.Attempts)
	}
	if loaded.Shock == nil || loaded.Shock.Name != "y" {
		t.Errorf("shock lost: %+v", loaded.Shock)
	}

	vars, got, err := st.LoadPath(runID)
	if err != nil {
		t.Fatalf("load path failed: %v", err)
	}
	if len(vars) != 2 || vars[0] != "y" {
		t.Errorf("unexpected vars %v", vars)
	}
	if len(got) != len(p) {
		t.Fatalf("expected %d periods, got %d", len(p), len(got))
	}
	for i := range p {
		for j := range p[i] {
			if got[i][j] != p[i][j] {
				t.Errorf("period %d var %d: %v != %v", i, j, got[i][j], p[i][j])
			}
		}
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	meta, p := testRun()
	for i := 0; i < 2; i++ {
		if _, err := st.Save(meta, p); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID == runs[1].ID {
		t.Errorf("run ids collide: %s", runs[0].ID)
	}
}

func TestStoreFileStructure(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	meta, p := testRun()
	runID, err := st.Save(meta, p)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"metadata.json", "path.csv"} {
		if _, err := os.Stat(filepath.Join(dir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestSaveNonFinite(t *testing.T) {
	st := New(t.TempDir())

	meta, p := testRun()
	meta.Flag = econ.NonConvergence
	meta.Diagnostics.Residual = math.Inf(1)
	meta.Attempts[0].Residual = math.Inf(1)
	meta.Metrics["half_life_y"] = math.NaN()

	runID, err := st.Save(meta, p)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := st.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Diagnostics.Residual != math.MaxFloat64 {
		t.Errorf("expected clamped residual, got %g", loaded.Diagnostics.Residual)
	}
	if _, ok := loaded.Metrics["half_life_y"]; ok {
		t.Error("NaN metric should be dropped")
	}
	if loaded.Status != "non-convergence" {
		t.Errorf("status %q", loaded.Status)
	}

	// The caller's values are left alone.
	if !math.IsInf(meta.Attempts[0].Residual, 1) || len(meta.Metrics) != 2 {
		t.Error("Save modified its argument")
	}
}

func TestExport(t *testing.T) {
	meta, p := testRun()
	p[2][1] = math.NaN()

	var buf bytes.Buffer
	if err := WriteJSON(&buf, NewExport(meta, p)); err != nil {
		t.Fatalf("write json: %v", err)
	}
	var decoded ExportData
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Periods != 3 || decoded.Model != "lag3" || len(decoded.Path) != 3 {
		t.Errorf("unexpected export %+v", decoded)
	}

	path := filepath.Join(t.TempDir(), "path.csv")
	if err := ExportCSV(path, meta.Vars, p); err != nil {
		t.Fatal(err)
	}
	_, got, err := ReadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(got[2][1]) {
		t.Errorf("expected NaN round trip through csv, got %v", got[2][1])
	}
}
