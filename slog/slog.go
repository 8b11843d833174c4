// Package slog provides log/slog decorators for the pipeline's services.
package slog

import "log/slog"

// level returns the level for an operation outcome: failures are warnings,
// routine successes are debug output.
func level(err error) slog.Level {
	if err != nil {
		return slog.LevelWarn
	}
	return slog.LevelDebug
}
