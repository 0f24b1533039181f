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
	"strconv"

	"github.com/authgate/authgate/internal/observability/logger"
	"github.com/authgate/authgate/internal/tenant"
)

// RegisterTenantRequest represents tenant registration data
type RegisterTenantRequest struct {
	ExternalKey string `json:"external_key"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

// RegisterTenant handles tenant registration. The generated API key and
// client secret are returned once in the response and never again.
func (h *Handler) RegisterTenant(w http.ResponseWriter, r *http.Request) {
	var req RegisterTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ExternalKey == "" || req.DisplayName == "" {
		respondError(w, http.StatusBadRequest, "external_key and display_name are required")
		return
	}

	t, creds, err := h.tenantService.Register(r.Context(), req.ExternalKey, req.DisplayName, req.Description)
	if err != nil {
		if errors.Is(err, tenant.ErrDuplicateKey) {
			respondError(w, http.StatusConflict, "external key already registered")
			return
		}
		slog.ErrorContext(r.Context(), "failed to register tenant",
			logger.Error(err),
			logger.ExternalKey(req.ExternalKey),
		)
		respondError(w, http.StatusInternalServerError, "failed to register tenant")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"tenant":        t,
		"api_key":       creds.APIKey,
		"client_secret": creds.ClientSecret,
	})
}

// GetTenant returns the tenant resolved from the URL
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, GetTenant(r.Context()))
}

// ListTenants returns a page of tenants
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", 50)
	offset := parseQueryInt(r, "offset", 0)

	tenants, err := h.tenantService.List(r.Context(), limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list tenants", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list tenants")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tenants": tenants,
		"limit":   limit,
		"offset":  offset,
	})
}

// UpdateTenantRequest represents tenant metadata updates
type UpdateTenantRequest struct {
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

// UpdateTenant updates tenant display name and description
func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	var req UpdateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.tenantService.Update(r.Context(), GetTenant(r.Context()).ID, req.DisplayName, req.Description)
	if err != nil {
		h.respondTenantError(w, r, err, "failed to update tenant")
		return
	}

	respondJSON(w, http.StatusOK, t)
}

// EnableTenant enables the tenant
func (h *Handler) EnableTenant(w http.ResponseWriter, r *http.Request) {
	if err := h.tenantService.Enable(r.Context(), GetTenant(r.Context()).ID); err != nil {
		h.respondTenantError(w, r, err, "failed to enable tenant")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

// DisableTenant disables the tenant
func (h *Handler) DisableTenant(w http.ResponseWriter, r *http.Request) {
	if err := h.tenantService.Disable(r.Context(), GetTenant(r.Context()).ID); err != nil {
		h.respondTenantError(w, r, err, "failed to disable tenant")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

// RotateCredentials replaces both tenant secrets. Like registration, the
// new plaintext values appear only in this response.
func (h *Handler) RotateCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.tenantService.RotateCredentials(r.Context(), GetTenant(r.Context()).ID)
	if err != nil {
		h.respondTenantError(w, r, err, "failed to rotate credentials")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"api_key":       creds.APIKey,
		"client_secret": creds.ClientSecret,
	})
}

// ValidateCredentialsRequest carries tenant secrets for validation
type ValidateCredentialsRequest struct {
	APIKey       string `json:"api_key"`
	ClientSecret string `json:"client_secret"`
}

// ValidateCredentials checks presented secrets against the stored hashes.
// Wrong secrets and disabled tenants both yield valid=false.
func (h *Handler) ValidateCredentials(w http.ResponseWriter, r *http.Request) {
	var req ValidateCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	valid, err := h.tenantService.ValidateCredentials(r.Context(), GetTenant(r.Context()).ExternalKey, req.APIKey, req.ClientSecret)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to validate credentials", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to validate credentials")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (h *Handler) respondTenantError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, tenant.ErrTenantNotFound) {
		respondError(w, http.StatusNotFound, "tenant not found")
		return
	}
	slog.ErrorContext(r.Context(), message, logger.Error(err))
	respondError(w, http.StatusInternalServerError, message)
}

func parseQueryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
