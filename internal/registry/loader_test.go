package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.yaml":   "name: alpha\nbackend: static\nautostart: true\nparams:\n  responses:\n    prompt_a: response_a\n",
		"b.json":   `{"backend":"echo","params":{"prefix":"> "}}`,
		"c.toml":   "backend = \"openai\"\nloader = \"completion\"\n[params]\nmodel = \"m\"\nmax_tokens = 12\n",
		"notes.md": "ignored",
	})
	if err := os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	specs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("expected 3 specs, got %d: %+v", len(specs), specs)
	}
	a, b, c := specs[0], specs[1], specs[2]
	if a.Name != "alpha" || a.Backend != "static" || !a.Autostart {
		t.Fatalf("a: %+v", a)
	}
	responses, ok := a.Params["responses"].(map[string]any)
	if !ok || responses["prompt_a"] != "response_a" {
		t.Fatalf("a params: %#v", a.Params)
	}
	if b.Name != "b" || b.Backend != "echo" || b.Params["prefix"] != "> " || b.Autostart {
		t.Fatalf("b: %+v", b)
	}
	if c.Name != "c" || c.Loader != "completion" || c.Params["model"] != "m" {
		t.Fatalf("c: %+v", c)
	}
}

func TestLoadDirErrors(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"x.yaml": "name: x\n"})
	if _, err := LoadDir(dir); err == nil || !strings.Contains(err.Error(), "backend is required") {
		t.Fatalf("expected missing backend error, got %v", err)
	}
	bad := t.TempDir()
	writeFiles(t, bad, map[string]string{"x.json": "{"})
	if _, err := LoadDir(bad); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLoadDirExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	if err := os.Mkdir(filepath.Join(home, "workers"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFiles(t, filepath.Join(home, "workers"), map[string]string{"w.yml": "backend: echo\n"})
	specs, err := LoadDir("~/workers")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(specs) != 1 || specs[0].Name != "w" {
		t.Fatalf("specs=%+v", specs)
	}
}
