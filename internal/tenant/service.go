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

package tenant

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/authgate/authgate/internal/audit"
	"github.com/authgate/authgate/internal/id"
)

// SecretSource generates and digests the high-entropy API credentials a
// tenant authenticates with. Secrets are server-generated, so a fast
// deterministic digest is sufficient; user passwords go through the slow
// hasher in the identity service instead.
type SecretSource interface {
	GenerateSecret() (string, error)
	HashSecret(plaintext string) string
}

// Service provides tenant registry business logic
type Service struct {
	repo        Repository
	secrets     SecretSource
	auditLogger audit.Logger
}

// NewService creates a new tenant service
func NewService(repo Repository, secrets SecretSource, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		secrets:     secrets,
		auditLogger: auditLogger,
	}
}

// Register creates a new tenant and returns the plaintext API key and client
// secret. This is the only time the plaintext values exist; callers that lose
// them must rotate.
func (s *Service) Register(ctx context.Context, externalKey, displayName, description string) (*Tenant, *Credentials, error) {
	if externalKey == "" {
		return nil, nil, fmt.Errorf("external key is required")
	}
	if displayName == "" {
		return nil, nil, fmt.Errorf("display name is required")
	}

	apiKey, err := s.secrets.GenerateSecret()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate api key: %w", err)
	}
	clientSecret, err := s.secrets.GenerateSecret()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate client secret: %w", err)
	}

	now := time.Now()
	t := &Tenant{
		ID:                 id.NewUUIDv7(),
		ExternalKey:        externalKey,
		DisplayName:        displayName,
		Description:        description,
		HashedAPIKey:       s.secrets.HashSecret(apiKey),
		HashedClientSecret: s.secrets.HashSecret(clientSecret),
		Enabled:            true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	// Uniqueness of external_key is enforced by the store's unique
	// constraint; Create surfaces ErrDuplicateKey without a racy
	// check-then-insert.
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantRegistered,
		TenantID: t.ID,
		Resource: t.ExternalKey,
	})

	return t, &Credentials{APIKey: apiKey, ClientSecret: clientSecret}, nil
}

// Get retrieves a tenant by internal id or external key. UUID-shaped input
// is tried as an id first, then falls back to external-key lookup.
func (s *Service) Get(ctx context.Context, idOrExternalKey string) (*Tenant, error) {
	if id.IsUUID(idOrExternalKey) {
		t, err := s.repo.GetByID(ctx, idOrExternalKey)
		if err == nil {
			return t, nil
		}
		if err != ErrTenantNotFound {
			return nil, err
		}
	}
	return s.repo.GetByExternalKey(ctx, idOrExternalKey)
}

// Update changes the tenant's display name and description
func (s *Service) Update(ctx context.Context, idOrExternalKey, displayName, description string) (*Tenant, error) {
	if displayName == "" {
		return nil, fmt.Errorf("display name is required")
	}

	t, err := s.Get(ctx, idOrExternalKey)
	if err != nil {
		return nil, err
	}

	t.DisplayName = displayName
	t.Description = description
	t.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantUpdated,
		TenantID: t.ID,
		Resource: t.ExternalKey,
	})

	return t, nil
}

// Enable marks the tenant as enabled
func (s *Service) Enable(ctx context.Context, idOrExternalKey string) error {
	return s.setEnabled(ctx, idOrExternalKey, true)
}

// Disable marks the tenant as disabled. A disabled tenant fails credential
// validation and every permission check until re-enabled.
func (s *Service) Disable(ctx context.Context, idOrExternalKey string) error {
	return s.setEnabled(ctx, idOrExternalKey, false)
}

func (s *Service) setEnabled(ctx context.Context, idOrExternalKey string, enabled bool) error {
	t, err := s.Get(ctx, idOrExternalKey)
	if err != nil {
		return err
	}

	t.Enabled = enabled
	t.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, t); err != nil {
		return err
	}

	eventType := audit.TypeTenantEnabled
	if !enabled {
		eventType = audit.TypeTenantDisabled
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		TenantID: t.ID,
		Resource: t.ExternalKey,
	})

	return nil
}

// RotateCredentials replaces both secrets atomically and returns the new
// plaintext pair. The previous secrets are invalid as soon as the update
// commits; there is no grace period.
func (s *Service) RotateCredentials(ctx context.Context, idOrExternalKey string) (*Credentials, error) {
	t, err := s.Get(ctx, idOrExternalKey)
	if err != nil {
		return nil, err
	}

	apiKey, err := s.secrets.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate api key: %w", err)
	}
	clientSecret, err := s.secrets.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate client secret: %w", err)
	}

	if err := s.repo.UpdateCredentials(ctx, t.ID, s.secrets.HashSecret(apiKey), s.secrets.HashSecret(clientSecret)); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeCredentialsRotated,
		TenantID: t.ID,
		Resource: t.ExternalKey,
	})

	return &Credentials{APIKey: apiKey, ClientSecret: clientSecret}, nil
}

// ValidateCredentials checks the supplied API key and client secret against
// the stored hashes. A disabled or unknown tenant fails validation; the
// result carries no detail about which part failed.
func (s *Service) ValidateCredentials(ctx context.Context, externalKey, apiKey, clientSecret string) (bool, error) {
	t, err := s.repo.GetByExternalKey(ctx, externalKey)
	if err != nil {
		if err == ErrTenantNotFound {
			return false, nil
		}
		return false, err
	}

	if !t.Enabled {
		return false, nil
	}

	apiKeyOK := subtle.ConstantTimeCompare([]byte(s.secrets.HashSecret(apiKey)), []byte(t.HashedAPIKey)) == 1
	secretOK := subtle.ConstantTimeCompare([]byte(s.secrets.HashSecret(clientSecret)), []byte(t.HashedClientSecret)) == 1

	return apiKeyOK && secretOK, nil
}

// List lists tenants with pagination
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	return s.repo.List(ctx, limit, offset)
}
