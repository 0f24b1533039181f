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

	"github.com/authgate/authgate/internal/identity"
	"github.com/authgate/authgate/internal/observability/logger"
	"github.com/authgate/authgate/internal/permission"
	"github.com/authgate/authgate/internal/role"
)

// GetUser returns the user identity, provisioning it on first reference
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.identityService.GetOrCreate(r.Context(), GetTenant(r.Context()).ID, chi.URLParam(r, "externalUserID"))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to get user", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UserRolesRequest carries role names for a user assignment change
type UserRolesRequest struct {
	Roles []string `json:"roles"`
}

// AssignUserRoles assigns the named roles to the user. Every name must
// resolve or the whole batch is rejected.
func (h *Handler) AssignUserRoles(w http.ResponseWriter, r *http.Request) {
	var req UserRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.AssignRoles(r.Context(), GetTenant(r.Context()).ID, chi.URLParam(r, "externalUserID"), req.Roles)
	if err != nil {
		if errors.Is(err, role.ErrRoleNotFound) {
			respondError(w, http.StatusNotFound, "role not found: "+err.Error())
			return
		}
		if errors.Is(err, identity.ErrCrossTenantReference) {
			respondError(w, http.StatusUnprocessableEntity, "role belongs to a different tenant")
			return
		}
		slog.ErrorContext(r.Context(), "failed to assign roles", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to assign roles")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// RemoveUserRoles removes the named roles from the user, skipping names
// that no longer resolve.
func (h *Handler) RemoveUserRoles(w http.ResponseWriter, r *http.Request) {
	var req UserRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.RemoveRoles(r.Context(), GetTenant(r.Context()).ID, chi.URLParam(r, "externalUserID"), req.Roles)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to remove roles", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to remove roles")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UserPermissionsRequest carries permission codes for a direct grant change
type UserPermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// AssignUserPermissions grants the coded permissions directly to the user
func (h *Handler) AssignUserPermissions(w http.ResponseWriter, r *http.Request) {
	var req UserPermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.AssignDirectPermissions(r.Context(), GetTenant(r.Context()).ID, chi.URLParam(r, "externalUserID"), req.Permissions)
	if err != nil {
		if errors.Is(err, permission.ErrPermissionNotFound) {
			respondError(w, http.StatusNotFound, "permission not found: "+err.Error())
			return
		}
		if errors.Is(err, identity.ErrCrossTenantReference) {
			respondError(w, http.StatusUnprocessableEntity, "permission belongs to a different tenant")
			return
		}
		slog.ErrorContext(r.Context(), "failed to assign permissions", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to assign permissions")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// RemoveUserPermissions removes direct permissions from the user, skipping
// codes that no longer resolve.
func (h *Handler) RemoveUserPermissions(w http.ResponseWriter, r *http.Request) {
	var req UserPermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.RemoveDirectPermissions(r.Context(), GetTenant(r.Context()).ID, chi.URLParam(r, "externalUserID"), req.Permissions)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to remove permissions", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to remove permissions")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// SetPasswordRequest carries a new password
type SetPasswordRequest struct {
	Password string `json:"password"`
}

// SetUserPassword sets or replaces the user's password
func (h *Handler) SetUserPassword(w http.ResponseWriter, r *http.Request) {
	var req SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.identityService.SetPassword(r.Context(), GetTenant(r.Context()).ID, chi.URLParam(r, "externalUserID"), req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrWeakPassword) {
			respondError(w, http.StatusBadRequest, "password does not meet security requirements")
			return
		}
		slog.ErrorContext(r.Context(), "failed to set password", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to set password")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
