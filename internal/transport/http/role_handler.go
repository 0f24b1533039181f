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
	"github.com/authgate/authgate/internal/role"
)

// CreateRoleRequest represents a new role
type CreateRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateRole creates a role in the tenant catalog
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	rl, err := h.roleService.Create(r.Context(), GetTenant(r.Context()).ID, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, role.ErrDuplicateName) {
			respondError(w, http.StatusConflict, "role name already exists")
			return
		}
		slog.ErrorContext(r.Context(), "failed to create role",
			logger.Error(err),
			logger.RoleName(req.Name),
		)
		respondError(w, http.StatusInternalServerError, "failed to create role")
		return
	}

	respondJSON(w, http.StatusCreated, rl)
}

// GetRole returns a role by name with its permission set
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	rl, err := h.roleService.Get(r.Context(), GetTenant(r.Context()).ID, chi.URLParam(r, "name"))
	if err != nil {
		h.respondRoleError(w, r, err, "failed to get role")
		return
	}
	respondJSON(w, http.StatusOK, rl)
}

// UpdateRoleRequest carries role updates
type UpdateRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateRole renames a role or updates its description
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rl, err := h.roleService.Update(r.Context(), GetTenant(r.Context()).ID, chi.URLParam(r, "name"), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, role.ErrDuplicateName) {
			respondError(w, http.StatusConflict, "role name already exists")
			return
		}
		h.respondRoleError(w, r, err, "failed to update role")
		return
	}
	respondJSON(w, http.StatusOK, rl)
}

// DeleteRole removes a role and its assignments
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.roleService.Delete(r.Context(), GetTenant(r.Context()).ID, chi.URLParam(r, "name")); err != nil {
		h.respondRoleError(w, r, err, "failed to delete role")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRoles returns all roles of the tenant
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleService.ListByTenant(r.Context(), GetTenant(r.Context()).ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list roles", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list roles")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// RolePermissionsRequest carries permission codes for a role grant or revoke
type RolePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// GrantRolePermissions grants the coded permissions to the role. Every
// code must resolve or the whole batch is rejected.
func (h *Handler) GrantRolePermissions(w http.ResponseWriter, r *http.Request) {
	var req RolePermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rl, err := h.roleService.GrantPermissions(r.Context(), GetTenant(r.Context()).ID, chi.URLParam(r, "name"), req.Permissions)
	if err != nil {
		if errors.Is(err, permission.ErrPermissionNotFound) {
			respondError(w, http.StatusNotFound, "permission not found: "+err.Error())
			return
		}
		if errors.Is(err, role.ErrCrossTenantReference) {
			respondError(w, http.StatusUnprocessableEntity, "permission belongs to a different tenant")
			return
		}
		h.respondRoleError(w, r, err, "failed to grant permissions")
		return
	}
	respondJSON(w, http.StatusOK, rl)
}

// RevokeRolePermissions removes the coded permissions from the role,
// skipping codes that no longer resolve.
func (h *Handler) RevokeRolePermissions(w http.ResponseWriter, r *http.Request) {
	var req RolePermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rl, err := h.roleService.RevokePermissions(r.Context(), GetTenant(r.Context()).ID, chi.URLParam(r, "name"), req.Permissions)
	if err != nil {
		h.respondRoleError(w, r, err, "failed to revoke permissions")
		return
	}
	respondJSON(w, http.StatusOK, rl)
}

func (h *Handler) respondRoleError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, role.ErrRoleNotFound) {
		respondError(w, http.StatusNotFound, "role not found")
		return
	}
	slog.ErrorContext(r.Context(), message, logger.Error(err))
	respondError(w, http.StatusInternalServerError, message)
}
