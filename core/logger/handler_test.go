package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestLogger(t *testing.T, format logFormat) (*slog.Logger, func() string) {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	return slog.New(handler), func() string {
		if err := aw.Flush(); err != nil {
			t.Fatalf("flush: %v", err)
		}
		if err := aw.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		return strings.TrimSpace(buf.String())
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	log, output := newTestLogger(t, formatKV)
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, log.With("component", "app"), slog.LevelInfo, "test.event",
		slog.String("status", "ok"),
		slog.String("cause", "unit"),
	)

	line := output()
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
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
	log, output := newTestLogger(t, formatJSON)
	ctx := WithRID(Background(), "rid-json")
	ctx = WithGenerationID(ctx, "gen-1")

	LogEvent(ctx, log.With("component", "generator"), slog.LevelError, "generate.fail",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
	)

	line := output()
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"generator"`, `"event":"generate.fail"`, `"status":"fail"`, `"rid":"rid-json"`, `"gen_id":"gen-1"`, `"err":"boom"`}
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
	rawRID := "123:456:789"

	log, output := newTestLogger(t, formatKV)
	LogEvent(WithRID(Background(), rawRID), log, slog.LevelInfo, "rid.test")
	line := output()
	if !strings.Contains(line, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", line)
	}

	log, output = newTestLogger(t, formatJSON)
	LogEvent(WithRID(Background(), rawRID), log, slog.LevelInfo, "rid.test")
	line = output()
	if !strings.Contains(line, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", line)
	}
	if !strings.Contains(line, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in JSON output, got %s", line)
	}
}

func TestStructuredHandlerDurationsAndDefaults(t *testing.T) {
	log, output := newTestLogger(t, formatKV)
	log.LogAttrs(context.Background(), slog.LevelInfo, "",
		slog.Duration("duration", 1500*time.Millisecond),
		slog.Duration("provider_duration", 20*time.Millisecond),
		slog.String("empty", ""),
		slog.String("outcome", "weird"),
	)
	line := output()
	for _, want := range []string{"component=app", "event=unknown", "duration_ms=1500", "provider_duration_ms=20"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
	for _, unwanted := range []string{"empty=", "outcome="} {
		if strings.Contains(line, unwanted) {
			t.Fatalf("did not expect %s in %s", unwanted, line)
		}
	}
}

func TestStructuredHandlerLevelFilter(t *testing.T) {
	log, output := newTestLogger(t, formatKV)
	log.Debug("hidden")
	if line := output(); line != "" {
		t.Fatalf("debug line should be filtered, got %s", line)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	want := []bool{true, false, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("allow[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if num, den := parseRatioSpec("2/5"); num != 2 || den != 5 {
		t.Fatalf("parseRatioSpec(2/5) = %d/%d", num, den)
	}
	if num, den := parseRatioSpec("10"); num != 1 || den != 10 {
		t.Fatalf("parseRatioSpec(10) = %d/%d", num, den)
	}
	if num, den := parseRatioSpec("off"); num != 0 || den != 0 {
		t.Fatalf("parseRatioSpec(off) = %d/%d", num, den)
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\tcé​d", 4); got != "ab\tc" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
}
