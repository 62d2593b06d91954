package pool

import (
	"encoding/json"
	"testing"
)

func TestWorkerConfigClone(t *testing.T) {
	cfg := WorkerConfig{Backend: "map", Params: map[string]any{
		"responses": map[string]any{"a": "b"},
		"stop":      []any{"x"},
	}}
	c := cfg.Clone()
	c.Params["responses"].(map[string]any)["a"] = "changed"
	c.Params["stop"].([]any)[0] = "y"
	if cfg.Params["responses"].(map[string]any)["a"] != "b" {
		t.Fatalf("clone shares nested map")
	}
	if cfg.Params["stop"].([]any)[0] != "x" {
		t.Fatalf("clone shares slice")
	}
	if (WorkerConfig{}).Clone().Params != nil {
		t.Fatalf("nil params should stay nil")
	}
}

func TestWorkerConfigAccessors(t *testing.T) {
	var fromJSON map[string]any
	if err := json.Unmarshal([]byte(`{"n":3,"f":0.5,"s":" hi ","b":true,"list":["a","b"],"m":{"k":"v","skip":1}}`), &fromJSON); err != nil {
		t.Fatalf("json: %v", err)
	}
	cfg := WorkerConfig{Params: fromJSON}
	if cfg.Int("n", 0) != 3 || cfg.Int("missing", 7) != 7 {
		t.Fatalf("int accessor")
	}
	if cfg.Float("f", 0) != 0.5 || cfg.Float("n", 0) != 3 {
		t.Fatalf("float accessor")
	}
	if cfg.String("s") != "hi" || cfg.String("n") != "3" || cfg.String("missing") != "" {
		t.Fatalf("string accessor: %q %q", cfg.String("s"), cfg.String("n"))
	}
	if !cfg.Bool("b") || cfg.Bool("s") {
		t.Fatalf("bool accessor")
	}
	if l := cfg.Strings("list"); len(l) != 2 || l[1] != "b" {
		t.Fatalf("strings accessor: %v", l)
	}
	m, ok := cfg.StringMap("m")
	if !ok || len(m) != 1 || m["k"] != "v" {
		t.Fatalf("string map accessor: %v %v", m, ok)
	}
	if _, ok := cfg.StringMap("s"); ok {
		t.Fatalf("non-map value should not be a string map")
	}

	native := WorkerConfig{Params: map[string]any{"n": int64(9), "i": 4, "str": "12"}}
	if native.Int("n", 0) != 9 || native.Int("i", 0) != 4 || native.Int("str", 0) != 12 {
		t.Fatalf("native int accessor")
	}
	if !native.Has("n") || native.Has("zzz") {
		t.Fatalf("has accessor")
	}
}
