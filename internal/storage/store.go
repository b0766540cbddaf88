package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/horizon"
)

const (
	metadataFile = "metadata.json"
	pathFile     = "path.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// RunMetadata describes a stored solve. Non-finite numbers are stored as the
// largest finite float of the same sign; NaN metrics are dropped.
type RunMetadata struct {
	ID          string             `json:"id"`
	Model       string             `json:"model"`
	Kind        string             `json:"kind"`
	Timestamp   time.Time          `json:"timestamp"`
	Params      map[string]float64 `json:"params,omitempty"`
	Vars        []string           `json:"vars"`
	SteadyState []float64          `json:"steady_state,omitempty"`
	Shock       *econ.Shock        `json:"shock,omitempty"`
	Flag        econ.Flag          `json:"flag"`
	Status      string             `json:"status"`
	Diagnostics econ.Diagnostics   `json:"diagnostics"`
	Attempts    []horizon.Attempt  `json:"attempts,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

// Save writes a run directory holding metadata.json and path.csv and returns
// the run ID.
func (s *Store) Save(meta RunMetadata, p econ.Path) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}

	runID, runDir, err := s.newRunDir(meta.Model)
	if err != nil {
		return "", err
	}

	meta.ID = runID
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Status = meta.Flag.String()
	sanitize(&meta)

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := writeCSV(filepath.Join(runDir, pathFile), meta.Vars, p); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) newRunDir(model string) (string, string, error) {
	base := fmt.Sprintf("%s_%d", model, time.Now().Unix())
	for i := 0; ; i++ {
		runID := base
		if i > 0 {
			runID = fmt.Sprintf("%s_%d", base, i)
		}
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", err
		}
	}
}

// List returns the stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadPath reads a run's path and its variable names.
func (s *Store) LoadPath(runID string) ([]string, econ.Path, error) {
	return ReadCSV(filepath.Join(s.baseDir, runID, pathFile))
}

func writeCSV(path string, vars []string, p econ.Path) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteCSV(file, vars, p)
}

// WriteCSV writes p with a period column followed by one column per variable.
func WriteCSV(out io.Writer, vars []string, p econ.Path) error {
	w := csv.NewWriter(out)
	if err := w.Write(append([]string{"period"}, vars...)); err != nil {
		return err
	}
	for t, x := range p {
		row := make([]string, 0, len(x)+1)
		row = append(row, strconv.Itoa(t))
		for _, v := range x {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadCSV reads a path written by Save or ExportCSV.
func ReadCSV(path string) ([]string, econ.Path, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s: missing header", path)
	}

	vars := records[0][1:]
	p := make(econ.Path, 0, len(records)-1)
	for i, record := range records[1:] {
		x := make(econ.State, len(vars))
		for j := range vars {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: row %d: %w", path, i+1, err)
			}
			x[j] = v
		}
		p = append(p, x)
	}
	return vars, p, nil
}

// sanitize replaces non-finite numbers in copies of meta's slices and maps,
// which encoding/json cannot represent.
func sanitize(meta *RunMetadata) {
	meta.Diagnostics.Residual = finite(meta.Diagnostics.Residual)
	meta.Diagnostics.TerminalGap = finite(meta.Diagnostics.TerminalGap)

	attempts := make([]horizon.Attempt, len(meta.Attempts))
	for i, a := range meta.Attempts {
		a.Residual = finite(a.Residual)
		a.TerminalGap = finite(a.TerminalGap)
		attempts[i] = a
	}
	if meta.Attempts != nil {
		meta.Attempts = attempts
	}

	if meta.Metrics != nil {
		metrics := make(map[string]float64, len(meta.Metrics))
		for k, v := range meta.Metrics {
			if !math.IsNaN(v) {
				metrics[k] = finite(v)
			}
		}
		meta.Metrics = metrics
	}

	if meta.SteadyState != nil {
		stst := make([]float64, len(meta.SteadyState))
		for i, v := range meta.SteadyState {
			stst[i] = finite(v)
		}
		meta.SteadyState = stst
	}
}

func finite(v float64) float64 {
	switch {
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	case math.IsNaN(v):
		return math.MaxFloat64
	default:
		return v
	}
}
