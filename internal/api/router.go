// Package api wires the HTTP surface: routing, middleware and handlers.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nexusdb/nexusdb/internal/api/handler"
	"github.com/nexusdb/nexusdb/internal/api/middleware"
	"github.com/nexusdb/nexusdb/internal/auth"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Auth      *auth.Service
	Instances handler.InstanceService
	DBPinger  handler.DBPinger
	Runtime   handler.RuntimePinger
	Version   string
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Runtime, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	authHandler := handler.NewAuthHandler(deps.Auth)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	instHandler := handler.NewInstanceHandler(deps.Instances)

	// Instance management is admin-only and keyed by the owning user.
	r.Route("/instances", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Auth))
		r.Use(middleware.RequireAdmin())

		r.Post("/", instHandler.Create)
		r.Get("/", instHandler.List)
		r.Get("/{ownerID}", instHandler.Get)
		r.Delete("/{ownerID}", instHandler.Delete)
		r.Post("/{ownerID}/start", instHandler.Start)
		r.Post("/{ownerID}/stop", instHandler.Stop)
		r.Post("/{ownerID}/query", instHandler.Query)
	})

	// Any authenticated user may query their own instance.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Auth))
		r.Post("/query", instHandler.QueryOwn)
	})

	return r
}
