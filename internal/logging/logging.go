// Package logging provides the structured diagnostic logger used across the
// emulator core. It keeps the bracket-tag debug convention ("[SPRITE0_HIT]",
// "[CONTROLLER_DEBUG]", ...) but routes it through log/slog instead of ad hoc
// fmt.Printf/log.Printf call sites, so diagnostics carry a severity and a
// component tag and can be redirected or filtered from one place.
package logging

import (
	"fmt"
	"log/slog"
	"os"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// SetLevel adjusts the minimum severity that reaches the sink. Debug-level
// tracing (per-dot PPU tags, per-read controller tags) is off by default;
// app.Config.Debug.EnableLogging flips it on.
func SetLevel(level slog.Level) {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// Debugf logs a component-tagged debug message. component is rendered as a
// bracket tag, e.g. "[PPU]".
func Debugf(component, format string, args ...any) {
	logger.Debug(sprintf(format, args...), "component", component)
}

// Warnf logs a component-tagged runtime warning. Used for recoverable
// runtime logic errors (unmapped reads/writes, unsupported mapper,
// malformed save state) — these never panic, only log.
func Warnf(component, format string, args ...any) {
	logger.Warn(sprintf(format, args...), "component", component)
}

// Errorf logs a component-tagged error that is non-fatal to the core but
// worth surfacing distinctly from a warning (save/load failures, battery RAM
// I/O failures).
func Errorf(component, format string, args ...any) {
	logger.Error(sprintf(format, args...), "component", component)
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
