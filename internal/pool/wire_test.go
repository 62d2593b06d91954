package pool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestErrorFieldsRoundTrip(t *testing.T) {
	spawnCfg := spawnError{cause: fmt.Errorf("%w: no loader", ErrConfiguration)}
	msg, code := errorFields(spawnCfg)
	if code != codeConfiguration || !strings.Contains(msg, "no loader") || strings.HasPrefix(msg, "spawn failure") {
		t.Fatalf("msg=%q code=%q", msg, code)
	}
	err := readyError(frame{Kind: frameReady, Error: msg, Code: code})
	if !IsSpawnFailure(err) || !IsConfigurationError(err) {
		t.Fatalf("ready error lost its kind: %v", err)
	}

	msg, code = errorFields(generationError{cause: errors.New("bad")})
	resp := responseOf(frame{Kind: frameResponse, ID: 4, Error: msg, Code: code})
	if resp.ID != 4 || !IsGenerationFailure(resp.Err) || IsConfigurationError(resp.Err) {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Err.Error() != "generation failure: bad" {
		t.Fatalf("message=%q", resp.Err.Error())
	}
	if readyError(frame{Kind: frameReady}) != nil {
		t.Fatalf("clean ready frame should carry no error")
	}

	msg, code = errorFields(spawnError{cause: fmt.Errorf("%w: built without llama", ErrUnavailable)})
	if code != codeUnavailable {
		t.Fatalf("unavailable code=%q", code)
	}
	err = readyError(frame{Kind: frameReady, Error: msg, Code: code})
	if !IsSpawnFailure(err) || !IsUnavailable(err) || IsConfigurationError(err) {
		t.Fatalf("ready error lost its kind: %v", err)
	}
}

func TestFrameBytesSurviveJSON(t *testing.T) {
	raw := "a\xffb\x00\u00e9"
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(frame{Kind: frameRequest, ID: 1, Prompt: []byte(raw)}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var f frame
	if err := json.NewDecoder(&buf).Decode(&f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(f.Prompt) != raw {
		t.Fatalf("prompt %q, want %q", f.Prompt, raw)
	}
}

// frames encodes the given frames as the input stream of a worker.
func frames(t *testing.T, fs ...frame) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, f := range fs {
		if err := enc.Encode(f); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	return &buf
}

func decodeFrames(t *testing.T, r io.Reader) []frame {
	t.Helper()
	var out []frame
	dec := json.NewDecoder(r)
	for {
		var f frame
		if err := dec.Decode(&f); err != nil {
			if err != io.EOF {
				t.Fatalf("decode: %v", err)
			}
			return out
		}
		out = append(out, f)
	}
}

func TestServeWorker(t *testing.T) {
	cfg := mapConfig("prompt_a", "response_a")
	in := frames(t,
		frame{Kind: frameConfig, Config: &cfg},
		frame{Kind: frameRequest, ID: 1, Prompt: []byte("prompt_a")},
		frame{Kind: frameRequest, ID: 2, Prompt: []byte("unknown")},
	)
	var out bytes.Buffer
	if err := ServeWorker(context.Background(), in, &out, testSpawn, zerolog.Nop()); err != nil {
		t.Fatalf("serve: %v", err)
	}
	got := decodeFrames(t, &out)
	if len(got) < 1 || got[0].Kind != frameReady || got[0].Error != "" {
		t.Fatalf("first frame should be a clean ready frame: %+v", got)
	}
	// EOF on input stops the worker; requests already read may or may not be served,
	// but anything served must be correct and in order.
	var last uint64
	for _, f := range got[1:] {
		if f.Kind != frameResponse || f.ID <= last {
			t.Fatalf("unexpected frame order: %+v", got)
		}
		last = f.ID
		switch f.ID {
		case 1:
			if string(f.Output) != "response_a" {
				t.Fatalf("id 1 output=%q", f.Output)
			}
		case 2:
			if f.Code != codeGeneration {
				t.Fatalf("id 2 should fail: %+v", f)
			}
		}
	}
}

func TestServeWorkerSpawnFailure(t *testing.T) {
	cfg := WorkerConfig{Backend: "nope"}
	var out bytes.Buffer
	err := ServeWorker(context.Background(), frames(t, frame{Kind: frameConfig, Config: &cfg}), &out, testSpawn, zerolog.Nop())
	if !IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	got := decodeFrames(t, &out)
	if len(got) != 1 || got[0].Kind != frameReady || got[0].Code != codeConfiguration {
		t.Fatalf("unexpected frames %+v", got)
	}
}

func TestServeWorkerRejectsMissingConfig(t *testing.T) {
	var out bytes.Buffer
	if err := ServeWorker(context.Background(), frames(t, frame{Kind: frameRequest, ID: 1}), &out, testSpawn, zerolog.Nop()); err == nil {
		t.Fatalf("expected error without config frame")
	}
	if err := ServeWorker(context.Background(), strings.NewReader(""), &out, testSpawn, zerolog.Nop()); err == nil {
		t.Fatalf("expected error on empty input")
	}
}

func TestStderrTailKeepsEnd(t *testing.T) {
	s := newStderrTail(zerolog.Nop(), 8)
	_, _ = s.Write([]byte("line one\n"))
	_, _ = s.Write([]byte("line two\n"))
	if got := s.Tail(); got != "ine two\n" {
		t.Fatalf("tail=%q", got)
	}
}
