package slog

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/lawdoc"
)

// Ensure LoggingSession implements lawdoc.Session.
var _ lawdoc.Session = (*LoggingSession)(nil)

// LoggingSession wraps a Session with request logging.
type LoggingSession struct {
	next   lawdoc.Session
	logger *slog.Logger
}

// NewLoggingSession creates a new LoggingSession.
func NewLoggingSession(next lawdoc.Session, logger *slog.Logger) *LoggingSession {
	return &LoggingSession{next: next, logger: logger}
}

// Fetch delegates to the wrapped session and logs the request.
func (s *LoggingSession) Fetch(ctx context.Context, req *lawdoc.Request) (body []byte, err error) {
	defer func(begin time.Time) {
		s.logger.Log(ctx, level(err), "fetch",
			"method", req.Method,
			"url", req.FullURL(),
			"bytes", len(body),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Fetch(ctx, req)
}

// Download delegates to the wrapped session and logs the transfer.
func (s *LoggingSession) Download(ctx context.Context, url string, w io.Writer) (n int64, err error) {
	defer func(begin time.Time) {
		s.logger.Log(ctx, level(err), "download",
			"url", url,
			"bytes", n,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Download(ctx, url, w)
}

// Close delegates to the wrapped session.
func (s *LoggingSession) Close() error {
	return s.next.Close()
}

// Ensure LoggingSessionFactory implements lawdoc.SessionFactory.
var _ lawdoc.SessionFactory = (*LoggingSessionFactory)(nil)

// LoggingSessionFactory wraps every session it opens in a LoggingSession
// tagged with the source name.
type LoggingSessionFactory struct {
	next   lawdoc.SessionFactory
	logger *slog.Logger
}

// NewLoggingSessionFactory creates a new LoggingSessionFactory.
func NewLoggingSessionFactory(next lawdoc.SessionFactory, logger *slog.Logger) *LoggingSessionFactory {
	return &LoggingSessionFactory{next: next, logger: logger}
}

// NewSession opens a session and logs the outcome.
func (f *LoggingSessionFactory) NewSession(src *lawdoc.SourceConfig) (lawdoc.Session, error) {
	session, err := f.next.NewSession(src)
	if err != nil {
		f.logger.Error("session open", "source", src.Name, "render", src.Render, "err", err)
		return nil, err
	}
	f.logger.Debug("session open", "source", src.Name, "render", src.Render)
	return NewLoggingSession(session, f.logger.With("source", src.Name)), nil
}
