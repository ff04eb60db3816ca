package internal

import (
	"embed"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"asms-api/internal/config"
	"asms-api/internal/database"
	"asms-api/internal/handlers"
	"asms-api/internal/httperr"
	"asms-api/internal/logging"
)

//go:embed openapi
var openapiFS embed.FS

type Server struct {
	DB      database.Querier
	Router  *chi.Mux
	Metrics *Metrics
	Logger  *logrus.Logger

	cfg     *config.Config
	imports *handlers.ImportsHandler
	now     func() time.Time
}

// NewServer wires the router around an already opened database handle
func NewServer(cfg *config.Config, db database.Querier, logger *logrus.Logger) *Server {
	s := &Server{
		DB:     db,
		Router: chi.NewRouter(),
		Logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}

	s.imports = handlers.NewImportsHandler(db, cfg.ImportMaxBytes)
	s.imports.Now = func() time.Time { return s.now() }

	s.Router.Use(middleware.RealIP)
	s.Router.Use(logging.RequestLogger(logger))
	s.Router.Use(recoverer)
	if cfg.EnableMetrics {
		s.Metrics = NewMetrics()
		s.Router.Use(s.Metrics.Middleware())
		s.imports.Observe = s.Metrics.ObserveImport
	}
	s.Router.Use(corsGate(cfg.AllowedOrigins))
	s.Router.Use(normalizePath)

	s.Router.NotFound(notFound)
	s.Router.MethodNotAllowed(methodNotAllowed)

	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", s.handle(s.dbPing).ServeHTTP)

	if s.Metrics != nil {
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}
	s.mountDocs(s.Router)
	s.mountAPI(s.Router)

	return s
}

// ServeHTTP lets the server be used directly as an http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// mountAPI registers the resource routes. Handlers switch on the method
// themselves so every method reaches them.
func (s *Server) mountAPI(r chi.Router) {
	r.Handle("/api/assets", s.handle(s.assets))
	r.Handle("/api/assets/import", s.handle(s.imports.UploadExcel))
	r.Handle("/api/assets/{id:[0-9]+}", withIDParam(s.handle(s.assets)))
	r.Handle("/api/assets/{id:[0-9]+}/department", withIDParam(s.handle(s.assetDepartment)))

	r.Handle("/api/categories", s.handle(s.categories))
	r.Handle("/api/categories/{id:[0-9]+}", withIDParam(s.handle(s.categories)))

	r.Handle("/api/departments", s.handle(s.departments))
}

func (s *Server) dbPing(w http.ResponseWriter, r *http.Request) error {
	if err := s.DB.Ping(r.Context()); err != nil {
		return httperr.Database(err)
	}
	_, err := w.Write([]byte("db: ok"))
	return err
}

// mountDocs serves the OpenAPI spec and Swagger UI
func (s *Server) mountDocs(mux *chi.Mux) {
	if !s.cfg.EnableSwagger {
		return
	}

	mux.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		data, err := openapiFS.ReadFile("openapi/openapi.yaml")
		if err != nil {
			http.Error(w, "Failed to read OpenAPI spec", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		if _, err := w.Write(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	mux.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(docsPage))
	})
}

const docsPage = `<!doctype html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Asset Management API - Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css">
    <style>
        body { margin: 0; background: #f7f7f7; }
        .swagger-ui .topbar { background: #1f2937; border-bottom: 3px solid #3b82f6; }
        .swagger-ui .topbar .download-url-wrapper { display: none; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: '/openapi.yaml',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [
                    SwaggerUIBundle.presets.apis,
                    SwaggerUIBundle.presets.standalone
                ],
                plugins: [
                    SwaggerUIBundle.plugins.DownloadUrl
                ],
                layout: "StandaloneLayout",
                tryItOutEnabled: true
            });
        };
    </script>
</body>
</html>`
