package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, "test")
	if ctx2 != ctx {
		t.Fatalf("nop tracer should return same context")
	}
	span.SetTag("key", "value")
	span.SetError(nil)
	span.Finish()
}

func newBufferLogger(buf *bytes.Buffer) Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf).With(String("doc", "a.pdf"))
	log.Info("stage done", Int("ops", 3), Float("scale", 0.5), Error("err", errors.New("boom")))
	out := buf.String()
	for _, want := range []string{"stage done", "doc=a.pdf", "ops=3", "scale=0.5", "err=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}

func TestLogTracer(t *testing.T) {
	var buf bytes.Buffer
	_, span := LogTracer{Logger: newBufferLogger(&buf)}.StartSpan(context.Background(), "export.text")
	span.SetTag("ops", 2)
	span.SetError(errors.New("service down"))
	span.Finish()
	out := buf.String()
	if !strings.Contains(out, "span=export.text") || !strings.Contains(out, "service down") {
		t.Fatalf("unexpected log: %q", out)
	}
}
