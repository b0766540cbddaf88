// Package logger holds the process-wide slog logger. Solvers log through a
// logger passed in their options and fall back to L().
package logger
