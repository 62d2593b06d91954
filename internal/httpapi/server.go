package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llmpoold/internal/pool"
	"llmpoold/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *pool.Pool satisfies it.
type Service interface {
	Register(cfg pool.WorkerConfig) pool.WorkerID
	Reconfigure(id pool.WorkerID, cfg pool.WorkerConfig) error
	Start(ctx context.Context, id pool.WorkerID) error
	Stop(ctx context.Context, id pool.WorkerID) error
	StopAll(ctx context.Context) error
	Generate(ctx context.Context, id pool.WorkerID, prompt string) (string, error)
	Worker(id pool.WorkerID) (pool.WorkerInfo, error)
	Workers() []pool.WorkerInfo
	Status() types.StatusResponse
	Ready() bool
}

// NewMux builds the control API router.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}

	r.Route("/workers", func(r chi.Router) {
		r.Get("/", h.listWorkers)
		r.Post("/", h.createWorker)
		r.Post("/stop-all", h.stopAll)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getWorker)
			r.Put("/config", h.reconfigure)
			r.Post("/start", h.start)
			r.Post("/stop", h.stop)
			r.Post("/generate", h.generate)
		})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("shutting down"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestContext joins the server base context with the request context and
// applies d when positive.
func requestContext(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	if d <= 0 {
		return ctx, cancel
	}
	tctx, tcancel := context.WithTimeout(ctx, d)
	return tctx, func() {
		tcancel()
		cancel()
	}
}
