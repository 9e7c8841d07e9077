// Package httpapi serves the rating service over HTTP.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/squadlab/posrating/internal/logging"
	"github.com/squadlab/posrating/internal/service"
)

// DefaultHistoryLimit caps history responses when no limit is requested.
const DefaultHistoryLimit = 20

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
}

type handlers struct {
	svc    *service.Service
	logger *slog.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(svc *service.Service, logManager *logging.SlogManager, opts Options) http.Handler {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	h := &handlers{svc: svc, logger: logManager.Logger()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(h.logger), middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Mcp-Session-Id"},
			ExposedHeaders: []string{"Content-Length", "Mcp-Session-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", h.health)
	r.Get("/tables", h.tables)
	r.Post("/ratings", h.rateAttributes)

	r.Route("/players/{playerID}/ratings", func(pr chi.Router) {
		pr.Get("/", h.ratePlayer)
		pr.Get("/latest", h.latest)
		pr.Get("/history", h.history)
	})

	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
	}

	return r
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"requestId", middleware.GetReqID(r.Context()),
			)
		})
	}
}
