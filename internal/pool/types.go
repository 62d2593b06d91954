package pool

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// WorkerID identifies a registered worker. IDs are random UUIDs and are never
// reused for the lifetime of a Pool.
type WorkerID string

// WorkerConfig is the backend-tagged configuration a worker is spawned with.
// Backend and Loader select the spawn routine; Params is opaque to the pool.
type WorkerConfig struct {
	Name    string         `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Backend string         `json:"backend" yaml:"backend" toml:"backend"`
	Loader  string         `json:"loader,omitempty" yaml:"loader,omitempty" toml:"loader,omitempty"`
	Params  map[string]any `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`
}

// Clone returns a deep copy so callers can keep mutating their own value.
func (c WorkerConfig) Clone() WorkerConfig {
	out := c
	if c.Params != nil {
		out.Params = cloneValue(c.Params).(map[string]any)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case map[string]string:
		m := make(map[string]string, len(t))
		for k, e := range t {
			m[k] = e
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Has reports whether key is present in Params.
func (c WorkerConfig) Has(key string) bool {
	_, ok := c.Params[key]
	return ok
}

// String returns Params[key] as a trimmed string, or "" when absent.
func (c WorkerConfig) String(key string) string {
	switch v := c.Params[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	case json.Number:
		return v.String()
	case int, int64, float64, bool:
		return strings.TrimSpace(toString(v))
	default:
		return ""
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// Int returns Params[key] as an int. JSON, YAML and TOML decoders produce
// different numeric types; all of them are accepted.
func (c WorkerConfig) Int(key string, def int) int {
	switch v := c.Params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Float returns Params[key] as a float64.
func (c WorkerConfig) Float(key string, def float64) float64 {
	switch v := c.Params[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

// Bool returns Params[key] as a bool.
func (c WorkerConfig) Bool(key string) bool {
	switch v := c.Params[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return false
}

// Strings returns Params[key] as a string slice.
func (c WorkerConfig) Strings(key string) []string {
	switch v := c.Params[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// StringMap returns Params[key] as a string-to-string map. Non-string values
// are skipped. The second result is false when the key is absent or not a map.
func (c WorkerConfig) StringMap(key string) (map[string]string, bool) {
	switch v := c.Params[key].(type) {
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, e := range v {
			out[k] = e
		}
		return out, true
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, e := range v {
			if s, ok := e.(string); ok {
				out[k] = s
			}
		}
		return out, true
	}
	return nil, false
}

// Generator turns a prompt into a response. A Generator is owned by exactly
// one worker loop and is never called concurrently. If it also implements
// io.Closer it is closed when the loop exits.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// SpawnFunc builds a Generator from a configuration. It is the only place a
// WorkerConfig is validated.
type SpawnFunc func(ctx context.Context, cfg WorkerConfig) (Generator, error)

// Result is delivered by GenerateAsync.
type Result struct {
	Output string
	Err    error
}

// WorkerInfo is a point-in-time snapshot of a registered worker.
type WorkerInfo struct {
	ID        WorkerID
	Config    WorkerConfig
	Running   bool
	PID       int
	Created   time.Time
	StartedAt time.Time
	LastUsed  time.Time
	Starts    uint64
	Requests  uint64
	QueueLen  int
	LastError string
}
