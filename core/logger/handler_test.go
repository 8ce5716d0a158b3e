package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func newTestHandler(buf *bytes.Buffer, format logFormat) (*structuredHandler, *asyncWriter) {
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	return newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	}), aw
}

func flushLine(t *testing.T, aw *asyncWriter, buf *bytes.Buffer) string {
	t.Helper()
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	return line
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	log := slog.New(handler).With("component", "admin")
	LogEvent(ctx, log, slog.LevelInfo, "admin.transition",
		slog.String("status", "ok"),
		slog.String("from", "idle"),
		slog.String("to", "awaiting_search_input"),
	)
	line := flushLine(t, aw, buf)

	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=admin", "event=admin.transition", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "from=idle", "to=awaiting_search_input"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	ctx := WithRID(context.Background(), "rid-json")

	log := slog.New(handler).With("component", "directory")
	LogEvent(ctx, log, slog.LevelError, "directory.request",
		slog.String("status", "fail"),
		slog.String("method", "GET"),
		slog.Int("http_code", 502),
		slog.String("err", "boom"),
		slog.String("err_code", "DIRECTORY_UNAVAILABLE"),
	)
	line := flushLine(t, aw, buf)

	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"directory"`, `"event":"directory.request"`, `"status":"fail"`, `"rid":"rid-json"`, `"method":"GET"`, `"http_code":502`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	rawRID := "123:456:789"
	LogEvent(WithRID(context.Background(), rawRID), slog.New(handler), slog.LevelInfo, "rid.test")
	line := flushLine(t, aw, buf)

	if !strings.Contains(line, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", line)
	}
	if !strings.Contains(line, "component=app") {
		t.Fatalf("expected default component, got %s", line)
	}
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	rawRID := "12:34:56"
	LogEvent(WithRID(context.Background(), rawRID), slog.New(handler), slog.LevelInfo, "rid.test")
	line := flushLine(t, aw, buf)

	if !strings.Contains(line, `"rid":"`+CompactRID(rawRID)+`"`) {
		t.Fatalf("expected compact rid in JSON, got %s", line)
	}
	if !strings.Contains(line, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", line)
	}
	if !strings.Contains(line, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in JSON output, got %s", line)
	}
}

func TestStructuredHandlerEnumerations(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	LogEvent(context.Background(), slog.New(handler), slog.LevelWarn, "audit.record",
		slog.String("decision", "DENIED"),
		slog.String("outcome", "whatever"),
		slog.String("status", "error"),
	)
	line := flushLine(t, aw, buf)

	if !strings.Contains(line, "decision=denied") {
		t.Fatalf("expected normalized decision, got %s", line)
	}
	if strings.Contains(line, "outcome=") {
		t.Fatalf("unknown outcome should be dropped, got %s", line)
	}
	if !strings.Contains(line, "status=fail") {
		t.Fatalf("expected status=fail, got %s", line)
	}
}

func TestStructuredHandlerRedactsErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	LogEvent(context.Background(), slog.New(handler), slog.LevelError, "tg.request",
		slog.String("err", `Post "https://api.telegram.org/bot123:ABC-def/sendMessage": timeout`),
		slog.String("cause", "Authorization: Bearer syt_secret.token"),
	)
	line := flushLine(t, aw, buf)

	if strings.Contains(line, "ABC-def") || strings.Contains(line, "syt_secret") {
		t.Fatalf("credentials leaked: %s", line)
	}
	if !strings.Contains(line, "bot***") || !strings.Contains(line, "Bearer ***") {
		t.Fatalf("expected masks, got %s", line)
	}
}

func TestDurationKeys(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	LogEvent(context.Background(), slog.New(handler), slog.LevelInfo, "d",
		slog.Duration("duration", 1500*1e6),
	)
	line := flushLine(t, aw, buf)
	if !strings.Contains(line, "duration_ms=1500") {
		t.Fatalf("expected duration_ms, got %s", line)
	}
}

func TestContextAccessors(t *testing.T) {
	ctx := WithUpdateMeta(context.Background(), 5, 6, 7)
	ctx = WithHandler(ctx, "cb:menu")
	if UpdateIDFrom(ctx) != 5 || UserIDFrom(ctx) != 6 || ChatIDFrom(ctx) != 7 {
		t.Fatalf("unexpected update meta")
	}
	if HandlerFrom(ctx) != "cb:menu" {
		t.Fatalf("handler: %q", HandlerFrom(ctx))
	}
	if RIDFrom(ctx) != "" {
		t.Fatalf("rid should be empty")
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("compact: %q", got)
	}
	if got := SanitizeLimit("a\x00b\u200bcdef", 3); got != "abc" {
		t.Fatalf("sanitize: %q", got)
	}
}
