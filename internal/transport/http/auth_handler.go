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

	"github.com/authgate/authgate/internal/identity"
	"github.com/authgate/authgate/internal/observability/logger"
	"github.com/authgate/authgate/internal/token"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	ExternalUserID string `json:"external_user_id"`
	Password       string `json:"password"`
}

// Login authenticates a user and issues an access/refresh token pair with
// the user's role names and effective permission codes embedded.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t := GetTenant(r.Context())
	if !t.Enabled {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), t.ID, req.ExternalUserID, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrAccountLocked) {
			respondError(w, http.StatusUnauthorized, "account is temporarily locked")
			return
		}
		if errors.Is(err, identity.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		slog.ErrorContext(r.Context(), "failed to authenticate user", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	pair, err := h.issueTokens(r, t.ID, user)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue tokens", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}

	respondJSON(w, http.StatusOK, pair)
}

// RefreshRequest carries a refresh token for redemption
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken redeems a refresh token for a new pair. The redeemed token
// is revoked and the new access token carries freshly resolved claims, so
// assignment changes take effect on rotation.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t := GetTenant(r.Context())
	if !t.Enabled {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	userID, err := h.tokenService.Redeem(r.Context(), t.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, token.ErrInvalidToken) || errors.Is(err, token.ErrExpiredToken) || errors.Is(err, token.ErrTokenRevoked) {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		slog.ErrorContext(r.Context(), "failed to redeem refresh token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	user, err := h.identityService.GetByID(r.Context(), userID)
	if err != nil || user.TenantID != t.ID {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	pair, err := h.issueTokens(r, t.ID, user)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue tokens", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}

	respondJSON(w, http.StatusOK, pair)
}

func (h *Handler) issueTokens(r *http.Request, tenantID string, user *identity.UserIdentity) (*token.Pair, error) {
	roles, permissions, err := h.resolver.ResolveClaims(r.Context(), tenantID, user.ExternalUserID)
	if err != nil {
		return nil, err
	}
	return h.tokenService.Issue(r.Context(), tenantID, user.ID, user.ExternalUserID, roles, permissions)
}
