// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/contracthub/internal/auth"
	"github.com/tomtom215/contracthub/internal/middleware"
)

// Router wires handlers to routes.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	notifyAuth    *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. mwConfig may be nil for defaults.
func NewRouter(handler *Handler, mwConfig *ChiMiddlewareConfig) *Router {
	return &Router{
		handler: handler,
		auth:    auth.NewMiddleware(handler.auth, WriteError),
		// The notification endpoints answer 401 as {"error":"Unauthorized"}.
		notifyAuth:    auth.NewMiddleware(handler.auth, writeNotificationError),
		chiMiddleware: NewChiMiddleware(mwConfig),
	}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight

	r.Get("/health", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		r.Route("/auth", func(r chi.Router) {
			r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.handler.Login)

			r.Group(func(r chi.Router) {
				r.Use(router.auth.Authenticate)
				r.Post("/logout", router.handler.Logout)
				r.Get("/session", router.handler.Session)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(router.notifyAuth.Authenticate)
			r.Get("/", router.handler.NotificationsUnread)
			r.Get("/all", router.handler.NotificationsAll)
			r.Patch("/read", router.handler.NotificationsMarkRead)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.auth.Authenticate)

			r.Get("/contract", router.handler.ContractGet)
			r.Post("/contract", router.handler.ContractCreate)
			r.Put("/contract", router.handler.ContractUpdate)
			r.Delete("/contract", router.handler.ContractDelete)
			r.Get("/contract/export", router.handler.ContractExport)

			r.Get("/user", router.handler.UserGet)
			r.Post("/user", router.handler.UserCreate)
			r.Put("/user", router.handler.UserUpdate)
			r.Delete("/user", router.handler.UserDelete)
			r.Get("/user/export", router.handler.UserExport)
			r.Get("/user/status", router.handler.UserStatusesGet)
			r.Post("/user/status", router.handler.UserStatusesUpdate)

			r.Get("/audit", router.handler.AuditEvents)

			r.Get("/socket", router.handler.Socket)
		})
	})

	return r
}
