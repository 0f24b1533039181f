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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/authgate/authgate/internal/observability/logger"
	"github.com/authgate/authgate/internal/permission"
)

// DefinePermissionRequest represents a new permission definition
type DefinePermissionRequest struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// DefinePermission creates a permission definition in the tenant catalog
func (h *Handler) DefinePermission(w http.ResponseWriter, r *http.Request) {
	var req DefinePermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}

	def, err := h.permissionService.Define(r.Context(), GetTenant(r.Context()).ID, req.Code, req.Description)
	if err != nil {
		if errors.Is(err, permission.ErrDuplicateCode) {
			respondError(w, http.StatusConflict, "permission code already defined")
			return
		}
		slog.ErrorContext(r.Context(), "failed to define permission",
			logger.Error(err),
			logger.PermissionCode(req.Code),
		)
		respondError(w, http.StatusInternalServerError, "failed to define permission")
		return
	}

	respondJSON(w, http.StatusCreated, def)
}

// GetPermission returns a permission by code
func (h *Handler) GetPermission(w http.ResponseWriter, r *http.Request) {
	def, err := h.permissionService.Get(r.Context(), GetTenant(r.Context()).ID, chi.URLParam(r, "code"))
	if err != nil {
		h.respondPermissionError(w, r, err, "failed to get permission")
		return
	}
	respondJSON(w, http.StatusOK, def)
}

// UpdatePermissionRequest carries a new permission description
type UpdatePermissionRequest struct {
	Description string `json:"description"`
}

// UpdatePermission updates a permission description
func (h *Handler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	var req UpdatePermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def, err := h.permissionService.Update(r.Context(), GetTenant(r.Context()).ID, chi.URLParam(r, "code"), req.Description)
	if err != nil {
		h.respondPermissionError(w, r, err, "failed to update permission")
		return
	}
	respondJSON(w, http.StatusOK, def)
}

// DeletePermission removes a permission and all grants referencing it
func (h *Handler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.permissionService.Delete(r.Context(), GetTenant(r.Context()).ID, chi.URLParam(r, "code")); err != nil {
		h.respondPermissionError(w, r, err, "failed to delete permission")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPermissions returns all permissions of the tenant
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	defs, err := h.permissionService.ListByTenant(r.Context(), GetTenant(r.Context()).ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list permissions", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list permissions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"permissions": defs})
}

func (h *Handler) respondPermissionError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, permission.ErrPermissionNotFound) {
		respondError(w, http.StatusNotFound, "permission not found")
		return
	}
	slog.ErrorContext(r.Context(), message, logger.Error(err))
	respondError(w, http.StatusInternalServerError, message)
}
