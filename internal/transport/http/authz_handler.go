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
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/authgate/authgate/internal/observability/logger"
)

// CheckPermission reports whether the user holds the coded permission.
// Unknown users and unknown codes answer false rather than erroring so
// the endpoint is safe to call from hot request paths.
func (h *Handler) CheckPermission(w http.ResponseWriter, r *http.Request) {
	t := GetTenant(r.Context())
	externalUserID := chi.URLParam(r, "externalUserID")
	code := chi.URLParam(r, "code")

	allowed, err := h.resolver.HasPermission(r.Context(), t.ID, externalUserID, code)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to check permission",
			logger.Error(err),
			logger.PermissionCode(code),
		)
		respondError(w, http.StatusInternalServerError, "failed to check permission")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"external_user_id": externalUserID,
		"permission":       code,
		"allowed":          allowed,
	})
}

// ListEffectivePermissions returns the union of the user's direct and
// role-derived permissions, ordered by code.
func (h *Handler) ListEffectivePermissions(w http.ResponseWriter, r *http.Request) {
	t := GetTenant(r.Context())
	externalUserID := chi.URLParam(r, "externalUserID")

	defs, err := h.resolver.ListEffectivePermissions(r.Context(), t.ID, externalUserID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list effective permissions", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list effective permissions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"external_user_id": externalUserID,
		"permissions":      defs,
	})
}
