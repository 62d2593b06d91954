package pool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultStopGrace = 2 * time.Second
	stderrTailBytes  = 4096
)

// ProcessOptions configures how worker processes are executed.
type ProcessOptions struct {
	// Command is the worker binary. Defaults to the running executable.
	Command string
	// Args are passed to Command. Defaults to ["worker"].
	Args []string
	// Env is appended to the parent's environment.
	Env []string
	// StopGrace is how long a worker may take to exit after SIGTERM before it
	// is killed.
	StopGrace time.Duration
}

type processStrategy struct {
	opts ProcessOptions
}

// ProcessStrategy runs each worker loop in its own OS process, talking to it
// over stdin/stdout. A crashing worker cannot take down the pool or its peers.
func ProcessStrategy(opts ProcessOptions) Strategy {
	if opts.StopGrace <= 0 {
		opts.StopGrace = defaultStopGrace
	}
	return &processStrategy{opts: opts}
}

func (s *processStrategy) Name() string { return "process" }

type readyResult struct {
	f   frame
	err error
}

func (s *processStrategy) Launch(ctx context.Context, spec LaunchSpec) (*Execution, error) {
	command := strings.TrimSpace(s.opts.Command)
	if command == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, spawnError{cause: fmt.Errorf("resolve worker binary: %w", err)}
		}
		command = exe
	}
	args := s.opts.Args
	if args == nil {
		args = []string{"worker"}
	}

	cmd := exec.Command(command, args...)
	cmd.Env = append(os.Environ(), s.opts.Env...)
	cmd.WaitDelay = s.opts.StopGrace
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, spawnError{cause: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, spawnError{cause: err}
	}
	log := spec.Logger.With().Str("worker", string(spec.ID)).Logger()
	stderr := newStderrTail(log, stderrTailBytes)
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, spawnError{cause: fmt.Errorf("start worker process: %w", err)}
	}
	pid := cmd.Process.Pid
	log.Debug().Int("pid", pid).Str("cmd", command).Msg("worker process started")

	enc := json.NewEncoder(stdin)
	dec := json.NewDecoder(stdout)

	// kill is only used before the execution is handed out.
	kill := func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}

	cfg := spec.Config
	if err := enc.Encode(frame{Kind: frameConfig, Config: &cfg}); err != nil {
		kill()
		return nil, spawnError{cause: fmt.Errorf("send config: %w; stderr tail: %s", err, stderr.Tail())}
	}

	readyCh := make(chan readyResult, 1)
	go func() {
		var f frame
		err := dec.Decode(&f)
		readyCh <- readyResult{f: f, err: err}
	}()
	var rr readyResult
	select {
	case rr = <-readyCh:
	case <-ctx.Done():
		// Let the child close its generator before it is reaped.
		_ = cmd.Process.Signal(syscall.SIGTERM)
		_ = stdin.Close()
		waitOrKill(cmd, s.opts.StopGrace)
		return nil, spawnError{cause: ctx.Err()}
	}
	if rr.err != nil {
		kill()
		return nil, spawnError{cause: fmt.Errorf("worker exited before ready: %v; stderr tail: %s", rr.err, stderr.Tail())}
	}
	if rr.f.Kind != frameReady {
		kill()
		return nil, spawnError{cause: fmt.Errorf("unexpected %q frame before ready", rr.f.Kind)}
	}
	if err := readyError(rr.f); err != nil {
		// The worker exits on its own after reporting the failure.
		_ = stdin.Close()
		waitOrKill(cmd, s.opts.StopGrace)
		return nil, err
	}

	x := newExecution(spec.QueueDepth)
	x.pid = pid

	// The child holds at most one request. The rest wait in x.in, where the
	// queue bound and TooBusy admission apply exactly as for in-process workers.
	credit := make(chan struct{}, 1)

	// in -> stdin
	go func() {
		defer stdin.Close()
		for {
			req, err := x.in.Recv(x.stop.Context())
			if err != nil {
				_ = enc.Encode(frame{Kind: frameStop})
				return
			}
			if err := enc.Encode(frame{Kind: frameRequest, ID: req.ID, Prompt: []byte(req.Prompt)}); err != nil {
				log.Warn().Err(err).Msg("write request frame")
				return
			}
			select {
			case <-credit:
			case <-x.stop.Done():
				_ = enc.Encode(frame{Kind: frameStop})
				return
			case <-x.done:
				return
			}
		}
	}()

	grace := s.opts.StopGrace
	// stdout -> out, then reap the process.
	go func() {
		var protoErr error
		for {
			var f frame
			if err := dec.Decode(&f); err != nil {
				if !errors.Is(err, io.EOF) {
					protoErr = err
				}
				break
			}
			if f.Kind != frameResponse {
				continue
			}
			_ = x.out.Send(context.Background(), responseOf(f))
			select {
			case credit <- struct{}{}:
			default:
			}
		}
		var werr error
		if protoErr != nil {
			// The stream cannot be resynchronised; the child must not outlive it.
			log.Error().Err(protoErr).Int("pid", pid).Msg("unreadable frame from worker, killing it")
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			werr = fmt.Errorf("worker protocol error: %w; stderr tail: %s", protoErr, stderr.Tail())
		} else {
			exited := make(chan error, 1)
			go func() { exited <- cmd.Wait() }()
			select {
			case werr = <-exited:
			case <-time.After(grace):
				// stdout closed but the process lingers.
				_ = cmd.Process.Kill()
				werr = <-exited
			}
			if werr != nil && !x.stop.Raised() {
				werr = fmt.Errorf("worker process exited: %w; stderr tail: %s", werr, stderr.Tail())
			} else {
				werr = nil
			}
		}
		log.Debug().Int("pid", pid).Msg("worker process exited")
		x.finish(werr)
	}()

	x.abort = func() {
		_ = cmd.Process.Signal(syscall.SIGTERM)
		go func() {
			t := time.NewTimer(grace)
			defer t.Stop()
			select {
			case <-x.done:
			case <-t.C:
				_ = cmd.Process.Kill()
			}
		}()
	}
	return x, nil
}

// waitOrKill waits for cmd to exit, killing it after grace.
func waitOrKill(cmd *exec.Cmd, grace time.Duration) {
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		_ = cmd.Process.Kill()
		<-done
	}
}

// stderrTail forwards worker stderr lines to the logger and keeps the last
// bytes for error messages.
type stderrTail struct {
	log  zerolog.Logger
	max  int
	mu   sync.Mutex
	buf  []byte
	tail []byte
}

func newStderrTail(log zerolog.Logger, max int) *stderrTail {
	return &stderrTail{log: log, max: max}
}

func (s *stderrTail) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tail = append(s.tail, p...)
	if len(s.tail) > s.max {
		s.tail = append([]byte(nil), s.tail[len(s.tail)-s.max:]...)
	}
	s.buf = append(s.buf, p...)
	for {
		idx := bytes.IndexByte(s.buf, '\n')
		if idx < 0 {
			break
		}
		if line := strings.TrimSpace(string(s.buf[:idx])); line != "" {
			s.log.Debug().Str("stderr", line).Msg("worker output")
		}
		s.buf = s.buf[idx+1:]
	}
	return len(p), nil
}

// Tail returns the retained end of the stderr stream.
func (s *stderrTail) Tail() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.tail)
}
