package httpapi

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"llmpoold/internal/pool"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelOff,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"weird": LevelInfo, // default
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestLogLevel_Overrides(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?log=debug", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("query override failed: %v", got)
	}
	r = httptest.NewRequest("GET", "/x?log=1", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("shorthand query override failed: %v", got)
	}
	r = httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("X-Log-Level", "error")
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("header override failed: %v", got)
	}
}

func TestLogRequest_Levels(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer SetLogger(zerolog.Nop())

	start := time.Now()
	r := httptest.NewRequest("POST", "/workers/w1/generate?log=error", nil)
	logRequest(r, "generate", "w1", start, nil)
	if buf.Len() != 0 {
		t.Fatalf("success logged at error level: %q", buf.String())
	}
	logRequest(r, "generate", "w1", start, pool.ErrUnknownWorker("w1"))
	out := buf.String()
	if !strings.Contains(out, `"worker":"w1"`) || !strings.Contains(out, `"status":404`) {
		t.Fatalf("missing failure fields: %q", out)
	}

	buf.Reset()
	r = httptest.NewRequest("POST", "/workers/w1/stop?log=debug", nil)
	logRequest(r, "stop", "w1", start, nil)
	if out := buf.String(); !strings.Contains(out, `"op":"stop"`) || !strings.Contains(out, `"path":"/workers/w1/stop"`) {
		t.Fatalf("missing debug fields: %q", out)
	}

	buf.Reset()
	r = httptest.NewRequest("POST", "/x?log=off", nil)
	logRequest(r, "stop", "", start, errors.New("x"))
	if buf.Len() != 0 {
		t.Fatalf("off level still logged: %q", buf.String())
	}
}
