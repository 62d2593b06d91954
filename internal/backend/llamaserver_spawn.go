package backend

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"llmpoold/internal/common/fsutil"
	"llmpoold/internal/pool"
)

const (
	spawnStopGrace  = 2 * time.Second
	spawnStderrTail = 4096
)

// spawnedLlamaServer is a llamaServerGenerator that owns the llama-server
// process it talks to. Close terminates the process.
type spawnedLlamaServer struct {
	*llamaServerGenerator
	cmd    *exec.Cmd
	exited chan struct{}
	once   sync.Once
}

// newSpawnedLlamaServer starts a llama-server per worker. Params: bin (or
// LLAMA_BIN), model_path, host, port_start/port_end, ctx_size, ngl, threads,
// extra_args, ready_timeout_ms, plus everything the llamaserver loader reads.
func newSpawnedLlamaServer(ctx context.Context, cfg pool.WorkerConfig) (pool.Generator, error) {
	bin := cfg.String("bin")
	if bin == "" {
		bin = os.Getenv("LLAMA_BIN")
	}
	if strings.TrimSpace(bin) == "" {
		return nil, configErrorf("llamaserver/spawn requires params.bin or LLAMA_BIN")
	}
	if strings.TrimSpace(cfg.String("model_path")) == "" {
		return nil, configErrorf("llamaserver/spawn requires params.model_path")
	}
	modelPath, err := fsutil.RegularFile(cfg.String("model_path"))
	if err != nil {
		return nil, configErrorf("llamaserver/spawn model_path: %v", err)
	}
	if bin, err = fsutil.ExpandHome(bin); err != nil {
		return nil, err
	}
	host := cfg.String("host")
	if host == "" {
		host = "127.0.0.1"
	}
	var port int
	if start, end := cfg.Int("port_start", 0), cfg.Int("port_end", 0); start > 0 && end >= start {
		port, err = pickPortInRange(host, start, end)
	} else {
		port, err = pickFreePort(host)
	}
	if err != nil {
		return nil, err
	}
	baseURL := fmt.Sprintf("http://%s:%d", host, port)

	args := []string{"-m", modelPath, "--host", host, "--port", strconv.Itoa(port)}
	if n := cfg.Int("ctx_size", 0); n > 0 {
		args = append(args, "-c", strconv.Itoa(n))
	}
	if n := cfg.Int("ngl", 0); n > 0 {
		args = append(args, "-ngl", strconv.Itoa(n))
	}
	if n := cfg.Int("threads", 0); n > 0 {
		args = append(args, "-t", strconv.Itoa(n))
	}
	args = append(args, cfg.Strings("extra_args")...)

	cmd := exec.Command(bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start llama-server: %w", err)
	}
	s := &spawnedLlamaServer{
		llamaServerGenerator: newLlamaServerClient(baseURL, cfg),
		cmd:                  cmd,
		exited:               make(chan struct{}),
	}
	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(s.exited)
	}()

	readyCtx, cancel := context.WithTimeout(ctx, durationParam(cfg, "ready_timeout_ms", 30*time.Second))
	defer cancel()
	for {
		select {
		case werr := <-waitErr:
			tail := stderr.String()
			if len(tail) > spawnStderrTail {
				tail = tail[len(tail)-spawnStderrTail:]
			}
			if werr != nil {
				return nil, fmt.Errorf("llama-server exited early: %v; stderr tail: %s", werr, tail)
			}
			return nil, fmt.Errorf("llama-server exited before ready: %s; stderr tail: %s", baseURL, tail)
		case <-readyCtx.Done():
			_ = s.Close()
			return nil, fmt.Errorf("llama-server not ready in time: %s", baseURL)
		default:
		}
		if s.isHealthy(readyCtx, time.Second) {
			return s, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Close sends SIGTERM and kills the process if it outlives the grace period.
func (s *spawnedLlamaServer) Close() error {
	s.once.Do(func() {
		_ = s.llamaServerGenerator.Close()
		if s.cmd.Process == nil {
			return
		}
		_ = s.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-s.exited:
		case <-time.After(spawnStopGrace):
			_ = s.cmd.Process.Kill()
			<-s.exited
		}
	})
	return nil
}

// PID of the llama-server process.
func (s *spawnedLlamaServer) PID() int { return s.cmd.Process.Pid }

func pickPortInRange(host string, start, end int) (int, error) {
	for p := start; p <= end; p++ {
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
