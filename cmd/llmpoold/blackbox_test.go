package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"llmpoold/pkg/types"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func buildBinary(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "llmpoold")
	cmd := exec.Command("go", "build", "-o", binPath, ".")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, out)
	}
	return binPath
}

type serverProc struct {
	cmd  *exec.Cmd
	base string
}

func startServer(t *testing.T, bin string, args ...string) *serverProc {
	t.Helper()
	port := findFreePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	cmd := exec.Command(bin, append([]string{"--addr", fmt.Sprintf("127.0.0.1:%d", port), "--log-level", "warn"}, args...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { _ = cmd.Process.Kill() })
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	return &serverProc{cmd: cmd, base: base}
}

func call(t *testing.T, method, url string, payload any, out any) int {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, body)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if out != nil && len(b) > 0 {
		if err := json.Unmarshal(b, out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, url, b, err)
		}
	}
	return resp.StatusCode
}

// TestBlackbox_ProcessStrategy runs the built daemon with process workers,
// which re-execute the same binary through the hidden worker command.
func TestBlackbox_ProcessStrategy(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the daemon binary")
	}
	bin := buildBinary(t)
	defs := t.TempDir()
	writeDefinition(t, defs, "greeter.yaml", "backend: static\nautostart: true\nparams:\n  responses:\n    hello: world\n")
	sp := startServer(t, bin, "--strategy", "process", "--workers-dir", defs)

	var list types.WorkersResponse
	if code := call(t, http.MethodGet, sp.base+"/workers", nil, &list); code != http.StatusOK || len(list.Workers) != 1 {
		t.Fatalf("/workers %d %+v", code, list)
	}
	greeter := list.Workers[0]
	if !greeter.Running || greeter.PID == 0 || greeter.PID == sp.cmd.Process.Pid {
		t.Fatalf("autostarted worker should run in its own process: %+v", greeter)
	}

	var gen types.GenerateResponse
	if code := call(t, http.MethodPost, sp.base+"/workers/"+greeter.ID+"/generate", types.GenerateRequest{Prompt: "hello"}, &gen); code != http.StatusOK || gen.Output != "world" {
		t.Fatalf("generate %d %+v", code, gen)
	}

	var created types.CreateWorkerResponse
	spec := types.WorkerSpec{Backend: "echo", Params: map[string]any{"prefix": "echo: "}}
	if code := call(t, http.MethodPost, sp.base+"/workers?start=true", spec, &created); code != http.StatusCreated || !created.Running {
		t.Fatalf("create %d %+v", code, created)
	}
	if code := call(t, http.MethodPost, sp.base+"/workers/"+created.ID+"/generate", types.GenerateRequest{Prompt: "ping"}, &gen); code != http.StatusOK || gen.Output != "echo: ping" {
		t.Fatalf("generate echo %d %+v", code, gen)
	}

	var bad types.CreateWorkerResponse
	if code := call(t, http.MethodPost, sp.base+"/workers", types.WorkerSpec{Backend: "static"}, &bad); code != http.StatusCreated {
		t.Fatalf("create bad %d", code)
	}
	var er types.ErrorResponse
	if code := call(t, http.MethodPost, sp.base+"/workers/"+bad.ID+"/start", nil, &er); code != http.StatusUnprocessableEntity {
		t.Fatalf("configuration error across the process boundary: %d %+v", code, er)
	}

	var st types.StatusResponse
	if code := call(t, http.MethodGet, sp.base+"/status", nil, &st); code != http.StatusOK || st.Strategy != "process" || st.Running != 2 {
		t.Fatalf("/status %d %+v", code, st)
	}

	if err := sp.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("signal: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- sp.cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("daemon exited with error: %v", err)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("daemon did not shut down after SIGTERM")
	}
}

func TestBlackbox_UnknownWorker_404(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the daemon binary")
	}
	sp := startServer(t, buildBinary(t))
	var er types.ErrorResponse
	if code := call(t, http.MethodPost, sp.base+"/workers/missing/generate", types.GenerateRequest{Prompt: "hi"}, &er); code != http.StatusNotFound || er.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %+v", code, er)
	}
}
