package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "devbay/docs"
	"devbay/internal/api/http/logstream"
)

// @title Devbay API
// @version 1.0
// @description Instance orchestrator for short-lived development containers
// @BasePath /
// @schemes http

func NewApiRouter(handler *RequestHandler, streamHandler *logstream.Handler) *chi.Mux {
	r := chi.NewRouter()

	// middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// == swagger ==
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// == metrics ==
	r.Handle("/metrics", promhttp.Handler())

	// == v1 ==
	// == instances ==
	r.Post("/v1/instances", handler.CreateInstance)                               // create instance
	r.Get("/v1/instances", handler.ListInstances)                                 // list instances
	r.Post("/v1/instances/{instanceId}/actions/stop", handler.StopInstance)       // stop instance
	r.Post("/v1/instances/{instanceId}/actions/restart", handler.RestartInstance) // restart instance
	r.Delete("/v1/instances/{instanceId}", handler.DeleteInstance)                // delete instance
	r.Get("/v1/instances/{instanceId}/status", handler.InstanceStatus)            // instance status
	r.Get("/v1/instances/{instanceId}/logs", handler.InstanceLogs)                // instance logs
	r.Handle("/v1/instances/{instanceId}/logs/stream", streamHandler)             // instance log stream

	// == templates ==
	r.Get("/v1/templates", handler.ListTemplates)

	// == audit ==
	r.Get("/v1/audit", handler.ListAuditEvents)

	return r
}
