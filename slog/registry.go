package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/lawdoc"
)

// Ensure LoggingRegistry implements lawdoc.AdapterRegistry.
var _ lawdoc.AdapterRegistry = (*LoggingRegistry)(nil)

// LoggingRegistry wraps an AdapterRegistry with logging of adapter
// resolution.
type LoggingRegistry struct {
	next   lawdoc.AdapterRegistry
	logger *slog.Logger
}

// NewLoggingRegistry creates a new LoggingRegistry.
func NewLoggingRegistry(next lawdoc.AdapterRegistry, logger *slog.Logger) *LoggingRegistry {
	return &LoggingRegistry{next: next, logger: logger}
}

// Adapter resolves the source's adapter and logs the outcome.
func (r *LoggingRegistry) Adapter(src *lawdoc.SourceConfig) (adapter lawdoc.Adapter, err error) {
	defer func(begin time.Time) {
		lvl := slog.LevelDebug
		if err != nil {
			lvl = slog.LevelError
		}
		r.logger.Log(context.Background(), lvl, "adapter",
			"source", src.Name,
			"kind", src.Adapter,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.next.Adapter(src)
}

// Kinds delegates to the wrapped registry.
func (r *LoggingRegistry) Kinds() []string {
	return r.next.Kinds()
}
