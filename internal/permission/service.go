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

package permission

import (
	"context"
	"fmt"
	"time"

	"github.com/authgate/authgate/internal/audit"
	"github.com/authgate/authgate/internal/id"
)

// Service provides permission catalog business logic
type Service struct {
	repo        Repository
	auditLogger audit.Logger
}

// NewService creates a new permission service
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
	}
}

// Define registers a new permission code for the tenant
func (s *Service) Define(ctx context.Context, tenantID, code, description string) (*Definition, error) {
	if code == "" {
		return nil, fmt.Errorf("permission code is required")
	}

	now := time.Now()
	def := &Definition{
		ID:          id.NewUUIDv7(),
		TenantID:    tenantID,
		Code:        code,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// (tenant_id, code) uniqueness is a store constraint; Create surfaces
	// ErrDuplicateCode on violation.
	if err := s.repo.Create(ctx, def); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionDefined,
		TenantID: tenantID,
		Resource: code,
	})

	return def, nil
}

// Get retrieves a permission definition by code
func (s *Service) Get(ctx context.Context, tenantID, code string) (*Definition, error) {
	return s.repo.GetByCode(ctx, tenantID, code)
}

// Update changes the description of an existing permission
func (s *Service) Update(ctx context.Context, tenantID, code, description string) (*Definition, error) {
	def, err := s.repo.GetByCode(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}

	def.Description = description
	def.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, def); err != nil {
		return nil, err
	}

	return def, nil
}

// Delete removes a permission definition. Every role grant and direct user
// assignment referencing it is removed in the same logical operation, so no
// dangling assignment survives.
func (s *Service) Delete(ctx context.Context, tenantID, code string) error {
	def, err := s.repo.GetByCode(ctx, tenantID, code)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, def.ID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionDeleted,
		TenantID: tenantID,
		Resource: code,
	})

	return nil
}

// ListByTenant lists every permission defined for the tenant
func (s *Service) ListByTenant(ctx context.Context, tenantID string) ([]*Definition, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}
