package observability

import (
	"context"
	"log/slog"
	"time"
)

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

func attrs(fields []Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value().(type) {
		case error:
			if v == nil {
				out = append(out, slog.String(f.Key(), "<nil>"))
				continue
			}
			out = append(out, slog.String(f.Key(), v.Error()))
		default:
			out = append(out, slog.Any(f.Key(), v))
		}
	}
	return out
}

func (s *SlogLogger) Debug(msg string, fields ...Field) { s.l.Debug(msg, attrs(fields)...) }
func (s *SlogLogger) Info(msg string, fields ...Field)  { s.l.Info(msg, attrs(fields)...) }
func (s *SlogLogger) Warn(msg string, fields ...Field)  { s.l.Warn(msg, attrs(fields)...) }
func (s *SlogLogger) Error(msg string, fields ...Field) { s.l.Error(msg, attrs(fields)...) }

func (s *SlogLogger) With(fields ...Field) Logger {
	return &SlogLogger{l: s.l.With(attrs(fields)...)}
}

// LogTracer records each finished span as a debug log line with its
// duration and tags.
type LogTracer struct {
	Logger Logger
}

func (t LogTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, &logSpan{log: t.Logger, name: name, start: time.Now()}
}

type logSpan struct {
	log    Logger
	name   string
	start  time.Time
	fields []Field
	err    error
}

func (s *logSpan) SetTag(key string, value interface{}) {
	s.fields = append(s.fields, field{key, value})
}

func (s *logSpan) SetError(err error) { s.err = err }

func (s *logSpan) Finish() {
	if s.log == nil {
		return
	}
	fields := append([]Field{String("span", s.name), Duration("elapsed", time.Since(s.start))}, s.fields...)
	if s.err != nil {
		s.log.Warn("span failed", append(fields, Error("error", s.err))...)
		return
	}
	s.log.Debug("span finished", fields...)
}
