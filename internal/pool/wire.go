package pool

import "errors"

// Frames are exchanged as newline-delimited JSON between a pool and its
// worker processes: config and request/stop go to the worker; ready and
// response come back. Prompt and output travel as bytes (base64 in JSON) so
// strings that are not valid UTF-8 survive unchanged.
type frameKind string

const (
	frameConfig   frameKind = "config"
	frameReady    frameKind = "ready"
	frameRequest  frameKind = "request"
	frameResponse frameKind = "response"
	frameStop     frameKind = "stop"
)

const (
	codeConfiguration = "configuration"
	codeSpawn         = "spawn"
	codeGeneration    = "generation"
	codeUnavailable   = "unavailable"
)

type frame struct {
	Kind   frameKind     `json:"kind"`
	ID     uint64        `json:"id,omitempty"`
	Prompt []byte        `json:"prompt,omitempty"`
	Output []byte        `json:"output,omitempty"`
	Error  string        `json:"error,omitempty"`
	Code   string        `json:"code,omitempty"`
	Config *WorkerConfig `json:"config,omitempty"`
}

// errorFields flattens err for the wire, dropping the spawn/generation prefix
// the receiving side adds back.
func errorFields(err error) (msg, code string) {
	if err == nil {
		return "", ""
	}
	var se spawnError
	var ge generationError
	switch {
	case errors.As(err, &se):
		msg, code = se.cause.Error(), codeSpawn
	case errors.As(err, &ge):
		msg, code = ge.cause.Error(), codeGeneration
	default:
		msg, code = err.Error(), ""
	}
	switch {
	case IsConfigurationError(err):
		code = codeConfiguration
	case IsUnavailable(err):
		code = codeUnavailable
	}
	return msg, code
}

// readyError rebuilds the spawn outcome carried by a ready frame.
func readyError(f frame) error {
	if f.Error == "" && f.Code == "" {
		return nil
	}
	return spawnError{cause: remoteError{msg: f.Error, code: f.Code}}
}

// responseOf rebuilds a response from a response frame.
func responseOf(f frame) response {
	r := response{ID: f.ID, Output: string(f.Output)}
	if f.Error != "" || f.Code != "" {
		r.Err = generationError{cause: remoteError{msg: f.Error, code: f.Code}}
	}
	return r
}
