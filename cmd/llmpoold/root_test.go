package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestResolveConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "llmpoold.yaml")
	data := "addr: \":9000\"\nstrategy: process\nmax_queue_depth: 4\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	if err := cmd.Flags().Parse([]string{"--max-queue-depth=9", "--cors-origins", "http://a, http://b"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	env := envMap(map[string]string{
		"LLMPOOL_ADDR":            ":9100",
		"LLMPOOL_MAX_QUEUE_DEPTH": "6",
		"LLMPOOL_TRACE_STDOUT":    "true",
	})
	cfg, err := resolveConfig(path, env, cmd.Flags())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Addr != ":9100" {
		t.Fatalf("env should override file addr, got %q", cfg.Addr)
	}
	if cfg.MaxQueueDepth != 9 {
		t.Fatalf("flag should override env, got %d", cfg.MaxQueueDepth)
	}
	if cfg.Strategy != "process" || cfg.LogLevel != "debug" {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if !cfg.TraceStdout {
		t.Fatalf("trace_stdout from env not applied")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b" {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
	if cfg.LogFormat != "json" || cfg.NATSSubject == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestResolveConfig_Errors(t *testing.T) {
	cmd := newRootCmd()
	if _, err := resolveConfig("", envMap(map[string]string{"LLMPOOL_MAX_WAIT_MS": "soon"}), cmd.Flags()); err == nil || !strings.Contains(err.Error(), "LLMPOOL_MAX_WAIT_MS") {
		t.Fatalf("expected env parse error, got %v", err)
	}
	cmd = newRootCmd()
	_ = cmd.Flags().Parse([]string{"--strategy", "fork"})
	if _, err := resolveConfig("", envMap(nil), cmd.Flags()); err == nil {
		t.Fatal("expected validation error for unknown strategy")
	}
	if _, err := resolveConfig(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil), newRootCmd().Flags()); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestBackendsCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"backends"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{"static\t_default", "openai\t_default,completion", "llamacpp\t_default", "llamaserver\t_default,spawn"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("missing %q in:\n%s", want, out.String())
		}
	}
}

func TestWorkerCommandHidden(t *testing.T) {
	cmd := newRootCmd()
	w, _, err := cmd.Find([]string{"worker"})
	if err != nil || w.Name() != "worker" {
		t.Fatalf("worker command missing: %v", err)
	}
	if !w.Hidden {
		t.Fatal("worker command should be hidden")
	}
}
