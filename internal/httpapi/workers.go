package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"llmpoold/internal/pool"
	"llmpoold/pkg/types"
)

type handlers struct {
	svc Service
}

func workerID(r *http.Request) pool.WorkerID {
	return pool.WorkerID(chi.URLParam(r, "id"))
}

// decodeJSON enforces the JSON content type and body limit, then decodes
// into v. It writes the error response itself and reports success.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func validSpec(w http.ResponseWriter, spec types.WorkerSpec) bool {
	if strings.TrimSpace(spec.Backend) == "" {
		writeJSONError(w, http.StatusBadRequest, "backend is required")
		return false
	}
	return true
}

// listWorkers godoc
// @Summary      List workers
// @Tags         workers
// @Produce      json
// @Success      200 {object} types.WorkersResponse
// @Router       /workers [get]
func (h *handlers) listWorkers(w http.ResponseWriter, r *http.Request) {
	infos := h.svc.Workers()
	resp := types.WorkersResponse{Workers: make([]types.WorkerStatus, 0, len(infos))}
	for _, info := range infos {
		resp.Workers = append(resp.Workers, info.Status())
	}
	writeJSON(w, http.StatusOK, resp)
}

// createWorker godoc
// @Summary      Register a worker
// @Description  Registers a worker with the given configuration. Pass ?start=true (or autostart) to start it immediately.
// @Tags         workers
// @Accept       json
// @Produce      json
// @Param        body  body      types.WorkerSpec  true  "Worker configuration"
// @Param        start query     bool              false "Start after registering"
// @Success      201   {object}  types.CreateWorkerResponse
// @Failure      400   {object}  types.ErrorResponse
// @Failure      422   {object}  types.ErrorResponse
// @Failure      502   {object}  types.ErrorResponse
// @Router       /workers [post]
func (h *handlers) createWorker(w http.ResponseWriter, r *http.Request) {
	var spec types.WorkerSpec
	if !decodeJSON(w, r, &spec) || !validSpec(w, spec) {
		return
	}
	id := h.svc.Register(pool.ConfigOf(spec))
	resp := types.CreateWorkerResponse{ID: string(id)}
	if spec.Autostart || r.URL.Query().Get("start") == "true" {
		start := time.Now()
		ctx, cancel := requestContext(r, 0)
		defer cancel()
		if err := h.svc.Start(ctx, id); err != nil {
			logRequest(r, "start", id, start, err)
			writeError(w, err)
			return
		}
		resp.Running = true
	}
	writeJSON(w, http.StatusCreated, resp)
}

// getWorker godoc
// @Summary      Get a worker
// @Tags         workers
// @Produce      json
// @Param        id   path      string  true  "Worker ID"
// @Success      200  {object}  types.WorkerStatus
// @Failure      404  {object}  types.ErrorResponse
// @Router       /workers/{id} [get]
func (h *handlers) getWorker(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Worker(workerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info.Status())
}

// reconfigure godoc
// @Summary      Replace a worker's configuration
// @Description  Takes effect on the next start; a running worker keeps its current configuration.
// @Tags         workers
// @Accept       json
// @Produce      json
// @Param        id    path      string            true  "Worker ID"
// @Param        body  body      types.WorkerSpec  true  "Worker configuration"
// @Success      200   {object}  types.WorkerStatus
// @Failure      400   {object}  types.ErrorResponse
// @Failure      404   {object}  types.ErrorResponse
// @Router       /workers/{id}/config [put]
func (h *handlers) reconfigure(w http.ResponseWriter, r *http.Request) {
	var spec types.WorkerSpec
	if !decodeJSON(w, r, &spec) || !validSpec(w, spec) {
		return
	}
	id := workerID(r)
	if err := h.svc.Reconfigure(id, pool.ConfigOf(spec)); err != nil {
		writeError(w, err)
		return
	}
	h.getWorker(w, r)
}

// start godoc
// @Summary      Start a worker
// @Description  Idempotent: starting a running worker is a no-op.
// @Tags         workers
// @Produce      json
// @Param        id   path      string  true  "Worker ID"
// @Success      200  {object}  types.WorkerStatus
// @Failure      404  {object}  types.ErrorResponse
// @Failure      422  {object}  types.ErrorResponse
// @Failure      502  {object}  types.ErrorResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /workers/{id}/start [post]
func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	id := workerID(r)
	start := time.Now()
	ctx, cancel := requestContext(r, 0)
	defer cancel()
	err := h.svc.Start(ctx, id)
	logRequest(r, "start", id, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	h.getWorker(w, r)
}

// stop godoc
// @Summary      Stop a worker
// @Tags         workers
// @Produce      json
// @Param        id   path      string  true  "Worker ID"
// @Success      200  {object}  types.WorkerStatus
// @Failure      404  {object}  types.ErrorResponse
// @Failure      504  {object}  types.ErrorResponse
// @Router       /workers/{id}/stop [post]
func (h *handlers) stop(w http.ResponseWriter, r *http.Request) {
	id := workerID(r)
	start := time.Now()
	ctx, cancel := requestContext(r, 0)
	defer cancel()
	err := h.svc.Stop(ctx, id)
	logRequest(r, "stop", id, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	h.getWorker(w, r)
}

// stopAll godoc
// @Summary      Stop every running worker
// @Tags         workers
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Failure      504  {object}  types.ErrorResponse
// @Router       /workers/stop-all [post]
func (h *handlers) stopAll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := requestContext(r, 0)
	defer cancel()
	err := h.svc.StopAll(ctx)
	logRequest(r, "stop_all", "", start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// generate godoc
// @Summary      Generate text with a worker
// @Tags         workers
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "Worker ID"
// @Param        body  body      types.GenerateRequest  true  "Prompt"
// @Success      200   {object}  types.GenerateResponse
// @Failure      400   {object}  types.ErrorResponse
// @Failure      404   {object}  types.ErrorResponse
// @Failure      409   {object}  types.ErrorResponse
// @Failure      429   {object}  types.ErrorResponse
// @Failure      502   {object}  types.ErrorResponse
// @Failure      504   {object}  types.ErrorResponse
// @Router       /workers/{id}/generate [post]
func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	id := workerID(r)
	start := time.Now()
	ctx, cancel := requestContext(r, generateTimeout)
	defer cancel()
	out, err := h.svc.Generate(ctx, id, req.Prompt)
	logRequest(r, "generate", id, start, err)
	if err != nil {
		// Client went away; nobody to answer.
		if r.Context().Err() != nil {
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.GenerateResponse{WorkerID: string(id), Output: out})
}
