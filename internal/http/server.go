// Package http serves the dashboard, the recap and history pages, and a
// JSON API over a LedgerService.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/services"
	appweb "saldo/web"
)

// Server wraps http.Server with the ledger routes.
type Server struct {
	http.Server
	svc       *services.LedgerService
	templates *template.Template
	logger    *log.Logger
	limiter   *rateLimiter
	metrics   securityMetrics
	origins   []string

	shutdownOnce sync.Once
}

// Options tune the server. Zero values pick the defaults.
type Options struct {
	WritesPerMinute int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	// AllowedOrigins enables CORS on /api for the listed origins.
	AllowedOrigins []string
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, svc *services.LedgerService, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.WritesPerMinute <= 0 {
		opts.WritesPerMinute = 60
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}

	s := &Server{
		svc:     svc,
		logger:  logger.WithComponent(log.ComponentHTTP),
		limiter: newRateLimiter(opts.WritesPerMinute, time.Minute),
		origins: opts.AllowedOrigins,
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldComponent, log.ComponentTemplate, log.FieldError, err)
	} else {
		s.templates = t
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

var templateFuncs = template.FuncMap{
	"rupiah":  core.FormatRupiah,
	"percent": percent,
	"title":   titleLabel,
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(s.securityHeaders)
	r.Use(middleware.Compress(5))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		})
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Get("/", s.handleIndex)
	r.Route("/ui", func(r chi.Router) {
		r.Get("/overview", s.handleOverviewPartial)
		r.Get("/recap", s.handleRecapPartial)
		r.Get("/history", s.handleHistoryPartial)
	})
	r.With(s.rateLimitWrites).Post("/transactions", s.handleCreateTransaction)

	r.Route("/api", func(r chi.Router) {
		if len(s.origins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: s.origins,
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
				MaxAge:         300,
			}))
		}
		r.Get("/dashboard", s.handleDashboardJSON)
		r.Get("/recap", s.handleRecapJSON)
		r.Get("/categories", s.handleCategoriesJSON)
		r.Get("/transactions", s.handleHistoryJSON)
		r.With(s.rateLimitWrites).Post("/transactions", s.handleCreateTransaction)
	})
	return r
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
