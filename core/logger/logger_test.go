package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/dirbot/core/config"
)

func TestSamplerKeepsRatio(t *testing.T) {
	s := newSampler(2, 5)
	kept := 0
	for i := 0; i < 50; i++ {
		if s.allow() {
			kept++
		}
	}
	if kept != 20 {
		t.Fatalf("kept %d of 50, want 20", kept)
	}

	s.configure(0, 0)
	for i := 0; i < 3; i++ {
		if !s.allow() {
			t.Fatal("disabled sampler must allow everything")
		}
	}
}

func TestParseSampleRatio(t *testing.T) {
	cases := []struct {
		in           string
		keep, window int
		ok           bool
	}{
		{"1/10", 1, 10, true},
		{" 3 / 4 ", 3, 4, true},
		{"20", 1, 20, true},
		{"", 0, 0, false},
		{"x/2", 0, 0, false},
	}
	for _, tc := range cases {
		keep, window, ok := parseSampleRatio(tc.in)
		if keep != tc.keep || window != tc.window || ok != tc.ok {
			t.Fatalf("%q: got %d/%d %v", tc.in, keep, window, ok)
		}
	}
}

func TestResolveSettings(t *testing.T) {
	s := resolveSettings(nil)
	if s.format != formatJSON || s.level != slog.LevelInfo || s.file != "" {
		t.Fatalf("defaults: %+v", s)
	}

	cfg := &coreconfig.Config{}
	cfg.Logging.Profile = "dev"
	cfg.Logging.Level = "warning"
	cfg.Logging.KeysOrder = "event, ts,,level"
	cfg.Logging.DebugSample = "0"
	cfg.Logging.Dir = "logs"
	cfg.Logging.BotFile = "bot.log"
	s = resolveSettings(cfg)
	if s.format != formatKV {
		t.Fatalf("dev profile should default to kv, got %s", s.format)
	}
	if s.level != slog.LevelWarn {
		t.Fatalf("level: %v", s.level)
	}
	if strings.Join(s.order, ",") != "event,ts,level" {
		t.Fatalf("order: %v", s.order)
	}
	if s.sampleWindow != 0 {
		t.Fatalf("sample 0 should disable sampling, got %d/%d", s.sampleKeep, s.sampleWindow)
	}
	if s.file != "logs/bot.log" {
		t.Fatalf("file: %q", s.file)
	}

	cfg.Logging.Format = "json"
	if got := resolveSettings(cfg).format; got != formatJSON {
		t.Fatalf("explicit format ignored: %s", got)
	}
}

func TestAsyncWriterFlushCoversEarlierWrites(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf}, 16)
	for i := 0; i < 100; i++ {
		if err := w.Write([]byte("line\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := strings.Count(buf.String(), "line\n"); got != 100 {
		t.Fatalf("flushed %d lines", got)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Write([]byte("late\n")); !errors.Is(err, errWriterClosed) {
		t.Fatalf("write after close: %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestAsyncWriterReportsSinkError(t *testing.T) {
	w := newAsyncWriter([]io.Writer{failingWriter{}}, 16)
	_ = w.Write([]byte("x\n"))
	if err := w.Close(); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected sink error, got %v", err)
	}
}

func TestHandlerGroupsAndAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	log := slog.New(handler).With("component", "directory").WithGroup("req").With("method", "GET")
	log.LogAttrs(context.Background(), slog.LevelInfo, "directory.call",
		slog.Group("resp", slog.Int("code", 200)),
		slog.Duration("wait", 20*time.Millisecond),
	)
	line := flushLine(t, aw, buf)

	for _, want := range []string{"component=directory", "event=directory.call", "req.method=GET", "req.resp.code=200", "req.wait_ms=20"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %s in %s", want, line)
		}
	}
}

func TestHandlerRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	slog.New(handler).Debug("hidden")
	if err := aw.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Fatalf("debug line written at info level: %s", buf.String())
	}
}

func TestTimingHelpers(t *testing.T) {
	if RoundMS(-time.Second) != 0 {
		t.Fatal("negative duration should round to zero")
	}
	if RoundMS(1499*time.Microsecond) != time.Millisecond {
		t.Fatalf("round: %v", RoundMS(1499*time.Microsecond))
	}
	if Status(nil) != "ok" || Status(errors.New("x")) != "error" {
		t.Fatal("status mapping")
	}
	s, cut := SummarizeStrings([]string{"a", "b", "c"}, 2)
	if s != "a, b" || !cut {
		t.Fatalf("summary: %q %v", s, cut)
	}
	if s, cut = SummarizeStrings([]string{"a"}, 2); s != "a" || cut {
		t.Fatalf("summary: %q %v", s, cut)
	}
}
