package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"llmpoold/internal/pool"
)

// zlog is the structured logger of the HTTP layer. Nop until SetLogger.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = func() LogLevel {
	if v := os.Getenv("LLMPOOL_REQUEST_LOG"); v != "" {
		return parseLevel(v)
	}
	return LevelInfo
}()

// SetDefaultLogLevel overrides the per-request default.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logRequest records the outcome of a pool operation at the request's level.
// Failures are logged from LevelError up, successes from LevelInfo up.
func logRequest(r *http.Request, op string, id pool.WorkerID, start time.Time, err error) {
	lvl := requestLogLevel(r)
	if lvl == LevelOff || (err == nil && lvl < LevelInfo) {
		return
	}
	ev := zlog.Info()
	if err != nil {
		ev = zlog.Warn().Err(err).Int("status", statusFor(err))
	}
	if id != "" {
		ev = ev.Str("worker", string(id))
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	if lvl >= LevelDebug {
		ev = ev.Str("path", r.URL.Path).Str("remote", r.RemoteAddr)
	}
	ev.Str("op", op).Dur("dur", time.Since(start)).Msg("request")
}
