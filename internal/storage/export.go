package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/eqpath/internal/econ"
)

type ExportData struct {
	RunMetadata
	Periods int       `json:"periods"`
	Path    econ.Path `json:"path"`
}

func NewExport(meta RunMetadata, p econ.Path) ExportData {
	meta.Status = meta.Flag.String()
	sanitize(&meta)

	path := make(econ.Path, len(p))
	for t, x := range p {
		path[t] = make(econ.State, len(x))
		for i, v := range x {
			path[t][i] = finite(v)
		}
	}
	return ExportData{RunMetadata: meta, Periods: len(p), Path: path}
}

func ExportJSON(path string, data ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, data)
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportCSV(path string, vars []string, p econ.Path) error {
	return writeCSV(path, vars, p)
}
