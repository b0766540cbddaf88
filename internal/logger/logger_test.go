package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		verbose int
		want    slog.Level
	}{
		{0, slog.LevelWarn},
		{1, slog.LevelInfo},
		{2, slog.LevelDebug},
		{5, slog.LevelDebug},
	}
	for _, tt := range tests {
		if got := Level(tt.verbose); got != tt.want {
			t.Errorf("Level(%d) = %v, want %v", tt.verbose, got, tt.want)
		}
	}
}

func TestNewFiltersByVerbosity(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Verbose: 1, Writer: &buf})

	l.Debug("hidden")
	l.Info("attempt", "horizon", 50)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written at verbose 1: %s", out)
	}
	if !strings.Contains(out, "horizon=50") {
		t.Errorf("missing info record: %s", out)
	}
}

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{Verbose: 2, JSON: true, Writer: &buf})
	defer Setup(Config{Writer: &bytes.Buffer{}})

	L().Debug("iteration", "residual", 0.5)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json record %q: %v", buf.String(), err)
	}
	if rec["msg"] != "iteration" || rec["residual"] != 0.5 {
		t.Errorf("unexpected record %v", rec)
	}
}
