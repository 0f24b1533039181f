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

package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/authgate/authgate/internal/audit"
	"github.com/authgate/authgate/internal/id"
)

// Service issues HS256-signed access tokens and opaque refresh tokens.
// Refresh tokens are single use: redeeming one revokes it and the caller
// issues a fresh pair with re-resolved claims.
type Service struct {
	refreshTokens RefreshTokenRepository
	auditLogger   audit.Logger
	signingSecret []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewService creates a new token service
func NewService(refreshTokens RefreshTokenRepository, auditLogger audit.Logger, signingSecret []byte, issuer, audience string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		refreshTokens: refreshTokens,
		auditLogger:   auditLogger,
		signingSecret: signingSecret,
		issuer:        issuer,
		audience:      audience,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// Issue creates an access/refresh token pair for the user. The caller
// supplies the role names and permission codes to embed; the service does
// not resolve them itself.
func (s *Service) Issue(ctx context.Context, tenantID, userID, name string, roles, permissions []string) (*Pair, error) {
	now := time.Now()

	claims := Claims{
		UserID:      userID,
		Name:        name,
		Roles:       roles,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{s.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        id.NewUUIDv7(),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := s.newRefreshToken(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTokenIssued,
		TenantID: tenantID,
		ActorID:  userID,
	})

	return &Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// Verify parses and validates an access token and returns its claims
func (s *Service) Verify(accessToken string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingSecret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Redeem validates a refresh token, revokes it, and returns the user id it
// was issued to. Expired and already-revoked tokens are rejected.
func (s *Service) Redeem(ctx context.Context, tenantID, refreshToken string) (string, error) {
	hash := sha256.Sum256([]byte(refreshToken))
	stored, err := s.refreshTokens.GetByHash(ctx, base64.StdEncoding.EncodeToString(hash[:]))
	if err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeTokenRefreshed,
			TenantID: tenantID,
			Metadata: map[string]any{audit.AttrReason: "unknown_token"},
		})
		return "", ErrInvalidToken
	}

	if stored.Revoked {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeTokenRefreshed,
			TenantID: tenantID,
			ActorID:  stored.UserID,
			Metadata: map[string]any{audit.AttrReason: "token_revoked"},
		})
		return "", ErrTokenRevoked
	}

	if time.Now().After(stored.ExpiresAt) {
		return "", ErrExpiredToken
	}

	if err := s.refreshTokens.Revoke(ctx, stored.ID); err != nil {
		return "", fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTokenRefreshed,
		TenantID: tenantID,
		ActorID:  stored.UserID,
	})

	return stored.UserID, nil
}

// PurgeExpired deletes refresh tokens past their expiry
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.refreshTokens.DeleteExpired(ctx)
}

func (s *Service) newRefreshToken(ctx context.Context, userID string, now time.Time) (string, error) {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	token := base64.StdEncoding.EncodeToString(buf)

	hash := sha256.Sum256([]byte(token))
	if err := s.refreshTokens.Create(ctx, &RefreshToken{
		ID:        id.NewUUIDv7(),
		UserID:    userID,
		TokenHash: base64.StdEncoding.EncodeToString(hash[:]),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return token, nil
}
