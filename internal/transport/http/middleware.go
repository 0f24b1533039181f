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

package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/authgate/authgate/internal/observability/logger"
	"github.com/authgate/authgate/internal/tenant"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// TenantMiddleware resolves the {tenantID} URL parameter, which may be a
// tenant id or an external key, and stores the tenant in the request
// context. Everything mounted below it operates within that tenant.
func (h *Handler) TenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idOrKey := chi.URLParam(r, "tenantID")
		if idOrKey == "" {
			respondError(w, http.StatusBadRequest, "tenant identifier is required")
			return
		}

		t, err := h.tenantService.Get(r.Context(), idOrKey)
		if err != nil {
			if errors.Is(err, tenant.ErrTenantNotFound) {
				respondError(w, http.StatusNotFound, "tenant not found")
				return
			}
			slog.ErrorContext(r.Context(), "failed to resolve tenant", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to resolve tenant")
			return
		}

		next.ServeHTTP(w, r.WithContext(withTenant(r.Context(), t)))
	})
}
