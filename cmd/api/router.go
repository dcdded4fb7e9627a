package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oktavaklaster/radario-amocrm/internal/infra/http/handlers"
	metrics "github.com/oktavaklaster/radario-amocrm/internal/infra/http/middleware"
)

func newRouter(webhook *handlers.WebhookHandler, health *handlers.HealthHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	r.Post("/webhook/radario/", webhook.Handle)
	r.Post("/webhook/radario", webhook.Handle)
	r.Get("/health/", health.Handle)
	r.Get("/health", health.Handle)
	r.Get("/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
