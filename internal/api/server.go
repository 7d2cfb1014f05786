// Package api serves mappings, matches and frame ingest over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/odds-cli/internal/metrics"
	"github.com/sells-group/odds-cli/internal/model"
	"github.com/sells-group/odds-cli/internal/pipeline"
	"github.com/sells-group/odds-cli/internal/store"
)

// Reconciler runs an on-demand cycle for one competition.
type Reconciler interface {
	RunCompetition(ctx context.Context, competition string) (*pipeline.Result, error)
}

// FrameSink accepts OCR frames pushed by the capture agent.
type FrameSink interface {
	Push(frames ...model.Frame) error
}

// Deps are the services behind the routes. Frames and Reconciler may be
// nil, in which case their routes answer 503.
type Deps struct {
	Store        store.Store
	Frames       FrameSink
	Reconciler   Reconciler
	Metrics      *metrics.Manager
	Competitions []string
	CORSOrigins  []string
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	h := &handler{deps: d, log: zap.L().With(zap.String("component", "api"))}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/frames", h.pushFrames)
		r.Route("/competitions/{competition}", func(r chi.Router) {
			r.Get("/mappings/{kind}", h.listMappings)
			r.Get("/matches", h.listMatches)
			r.Post("/reconcile", h.reconcile)
		})
	})
	return r
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
