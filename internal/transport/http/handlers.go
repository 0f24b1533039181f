// Copyright 2026 The Authgate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package http exposes the authorization backend over a REST surface.
// Handlers are thin: they decode requests, delegate to the domain
// services, and translate domain errors to status codes.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/authgate/authgate/internal/authz"
	"github.com/authgate/authgate/internal/identity"
	"github.com/authgate/authgate/internal/permission"
	"github.com/authgate/authgate/internal/role"
	"github.com/authgate/authgate/internal/tenant"
	"github.com/authgate/authgate/internal/token"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	tenantService     *tenant.Service
	permissionService *permission.Service
	roleService       *role.Service
	identityService   *identity.Service
	resolver          *authz.Resolver
	tokenService      *token.Service
}

// NewHandler creates a new HTTP handler
func NewHandler(
	tenantService *tenant.Service,
	permissionService *permission.Service,
	roleService *role.Service,
	identityService *identity.Service,
	resolver *authz.Resolver,
	tokenService *token.Service,
) *Handler {
	return &Handler{
		tenantService:     tenantService,
		permissionService: permissionService,
		roleService:       roleService,
		identityService:   identityService,
		resolver:          resolver,
		tokenService:      tokenService,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tenants", func(r chi.Router) {
			r.Post("/", h.RegisterTenant)
			r.Get("/", h.ListTenants)

			// {tenantID} accepts a tenant id or external key.
			r.Route("/{tenantID}", func(r chi.Router) {
				r.Use(h.TenantMiddleware)

				r.Get("/", h.GetTenant)
				r.Put("/", h.UpdateTenant)
				r.Post("/enable", h.EnableTenant)
				r.Post("/disable", h.DisableTenant)
				r.Post("/credentials/rotate", h.RotateCredentials)
				r.Post("/credentials/validate", h.ValidateCredentials)

				r.Route("/permissions", func(r chi.Router) {
					r.Post("/", h.DefinePermission)
					r.Get("/", h.ListPermissions)
					r.Get("/{code}", h.GetPermission)
					r.Put("/{code}", h.UpdatePermission)
					r.Delete("/{code}", h.DeletePermission)
				})

				r.Route("/roles", func(r chi.Router) {
					r.Post("/", h.CreateRole)
					r.Get("/", h.ListRoles)
					r.Get("/{name}", h.GetRole)
					r.Put("/{name}", h.UpdateRole)
					r.Delete("/{name}", h.DeleteRole)
					r.Post("/{name}/permissions", h.GrantRolePermissions)
					r.Delete("/{name}/permissions", h.RevokeRolePermissions)
				})

				r.Route("/users/{externalUserID}", func(r chi.Router) {
					r.Get("/", h.GetUser)
					r.Post("/roles", h.AssignUserRoles)
					r.Delete("/roles", h.RemoveUserRoles)
					r.Post("/permissions", h.AssignUserPermissions)
					r.Delete("/permissions", h.RemoveUserPermissions)
					r.Put("/password", h.SetUserPassword)

					r.Get("/effective-permissions", h.ListEffectivePermissions)
					r.Get("/check/{code}", h.CheckPermission)
				})

				r.Post("/auth/login", h.Login)
				r.Post("/auth/refresh", h.RefreshToken)
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "authgate",
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
