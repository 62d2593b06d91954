package pool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// ServeWorker is the entry point of a process-strategy worker. It reads the
// configuration frame from r, spawns a Generator with spawn, reports readiness
// on w, then serves request frames until a stop frame, EOF on r, or ctx is
// done. It returns the spawn error when the worker could not come up.
func ServeWorker(ctx context.Context, r io.Reader, w io.Writer, spawn SpawnFunc, logger zerolog.Logger) error {
	dec := json.NewDecoder(r)
	enc := json.NewEncoder(w)

	var first frame
	if err := dec.Decode(&first); err != nil {
		return fmt.Errorf("read config frame: %w", err)
	}
	if first.Kind != frameConfig || first.Config == nil {
		return fmt.Errorf("expected config frame, got %q", first.Kind)
	}
	cfg := *first.Config
	logger = logger.With().Str("backend", cfg.Backend).Str("loader", cfg.Loader).Logger()

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	in := NewChannel[request](0)
	out := NewChannel[response](0)
	stop := NewStopSignal(ctx)

	readyCh := make(chan error, 1)
	loopDone := make(chan error, 1)
	go func() {
		err := runLoop(genCtx, cfg, spawn, in, out, stop, func(err error) { readyCh <- err })
		_ = out.Close()
		loopDone <- err
	}()

	spawnErr := <-readyCh
	msg, code := errorFields(spawnErr)
	if err := enc.Encode(frame{Kind: frameReady, Error: msg, Code: code}); err != nil {
		stop.Raise()
		<-loopDone
		return fmt.Errorf("write ready frame: %w", err)
	}
	if spawnErr != nil {
		logger.Error().Err(spawnErr).Msg("worker spawn failed")
		<-loopDone
		return spawnErr
	}
	logger.Debug().Msg("worker ready")

	go func() {
		defer stop.Raise()
		for {
			var f frame
			if err := dec.Decode(&f); err != nil {
				if !errors.Is(err, io.EOF) {
					logger.Warn().Err(err).Msg("worker input closed")
				}
				return
			}
			switch f.Kind {
			case frameRequest:
				if err := in.Send(ctx, request{ID: f.ID, Prompt: string(f.Prompt)}); err != nil {
					return
				}
			case frameStop:
				return
			default:
				logger.Warn().Str("kind", string(f.Kind)).Msg("unexpected frame")
			}
		}
	}()

	for {
		resp, err := out.Recv(context.Background())
		if err != nil {
			break
		}
		msg, code := errorFields(resp.Err)
		if err := enc.Encode(frame{Kind: frameResponse, ID: resp.ID, Output: []byte(resp.Output), Error: msg, Code: code}); err != nil {
			logger.Warn().Err(err).Msg("write response frame")
			stop.Raise()
			cancel()
		}
	}
	<-loopDone
	logger.Debug().Msg("worker exit")
	return nil
}
