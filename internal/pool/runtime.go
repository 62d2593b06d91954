package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// request is one prompt in flight. ID correlates it with its response.
type request struct {
	ID     uint64
	Prompt string
}

type response struct {
	ID     uint64
	Output string
	Err    error
}

// runLoop hosts a single Generator: it spawns it from cfg, reports the
// outcome through ready, then answers prompts from in on out in arrival order
// until stop is raised or in is closed. genCtx is passed to spawn and to every
// Generate call; canceling it aborts work in progress. The same loop runs in a
// goroutine (thread strategy) and inside a worker process (ServeWorker).
func runLoop(genCtx context.Context, cfg WorkerConfig, spawn SpawnFunc, in Channel[request], out Channel[response], stop *StopSignal, ready func(error)) error {
	gen, err := safeSpawn(genCtx, spawn, cfg)
	if err != nil {
		ready(err)
		return err
	}
	ready(nil)
	defer closeGenerator(gen)

	for {
		if stop.Raised() {
			return nil
		}
		req, err := in.Recv(stop.Context())
		if err != nil {
			return nil
		}
		output, gerr := safeGenerate(genCtx, gen, req.Prompt)
		resp := response{ID: req.ID, Output: output}
		if gerr != nil {
			resp.Err = generationError{cause: gerr}
		}
		if err := out.Send(context.Background(), resp); err != nil {
			return nil
		}
	}
}

func safeSpawn(ctx context.Context, spawn SpawnFunc, cfg WorkerConfig) (gen Generator, err error) {
	if spawn == nil {
		return nil, spawnError{cause: errors.New("no spawn capability configured")}
	}
	defer func() {
		if r := recover(); r != nil {
			gen = nil
			err = spawnError{cause: fmt.Errorf("panic during spawn: %v", r)}
		}
	}()
	gen, err = spawn(ctx, cfg)
	if err != nil {
		return nil, spawnError{cause: err}
	}
	if gen == nil {
		return nil, spawnError{cause: errors.New("spawn returned no instance")}
	}
	return gen, nil
}

func safeGenerate(ctx context.Context, gen Generator, prompt string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = fmt.Errorf("panic during generate: %v", r)
		}
	}()
	return gen.Generate(ctx, prompt)
}

func closeGenerator(gen Generator) {
	if c, ok := gen.(io.Closer); ok {
		defer func() { _ = recover() }()
		_ = c.Close()
	}
}
