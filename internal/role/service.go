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

package role

import (
	"context"
	"fmt"
	"time"

	"github.com/authgate/authgate/internal/audit"
	"github.com/authgate/authgate/internal/id"
	"github.com/authgate/authgate/internal/permission"
)

// PermissionCatalog resolves permission codes within a tenant. Satisfied by
// permission.Repository.
type PermissionCatalog interface {
	GetByCode(ctx context.Context, tenantID, code string) (*permission.Definition, error)
}

// Service provides role catalog business logic
type Service struct {
	repo        Repository
	permissions PermissionCatalog
	auditLogger audit.Logger
}

// NewService creates a new role service
func NewService(repo Repository, permissions PermissionCatalog, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		permissions: permissions,
		auditLogger: auditLogger,
	}
}

// Create creates a new role in the tenant
func (s *Service) Create(ctx context.Context, tenantID, name, description string) (*Role, error) {
	if name == "" {
		return nil, fmt.Errorf("role name is required")
	}

	now := time.Now()
	r := &Role{
		ID:          id.NewUUIDv7(),
		TenantID:    tenantID,
		Name:        name,
		Description: description,
		Permissions: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// (tenant_id, name) uniqueness is a store constraint.
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleCreated,
		TenantID: tenantID,
		Resource: name,
	})

	return r, nil
}

// Get retrieves a role with its permission set
func (s *Service) Get(ctx context.Context, tenantID, name string) (*Role, error) {
	return s.repo.GetByName(ctx, tenantID, name)
}

// Update renames a role and/or changes its description. The new name is
// checked for uniqueness only when it differs from the current one.
func (s *Service) Update(ctx context.Context, tenantID, name, newName, description string) (*Role, error) {
	if newName == "" {
		return nil, fmt.Errorf("role name is required")
	}

	r, err := s.repo.GetByName(ctx, tenantID, name)
	if err != nil {
		return nil, err
	}

	r.Name = newName
	r.Description = description
	r.UpdatedAt = time.Now()

	// The store's unique constraint rejects a rename onto an existing
	// name; an unchanged name never collides with itself.
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

// Delete removes a role. User assignments referencing it are removed by the
// store's referential integrity.
func (s *Service) Delete(ctx context.Context, tenantID, name string) error {
	r, err := s.repo.GetByName(ctx, tenantID, name)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, r.ID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleDeleted,
		TenantID: tenantID,
		Resource: name,
	})

	return nil
}

// ListByTenant lists every role in the tenant
func (s *Service) ListByTenant(ctx context.Context, tenantID string) ([]*Role, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

// GrantPermissions resolves each code and adds it to the role's set. Any
// unresolvable code rejects the whole batch before mutation; adds are
// idempotent.
func (s *Service) GrantPermissions(ctx context.Context, tenantID, roleName string, codes []string) (*Role, error) {
	r, err := s.repo.GetByName(ctx, tenantID, roleName)
	if err != nil {
		return nil, err
	}

	permissionIDs := make([]string, 0, len(codes))
	for _, code := range codes {
		def, err := s.permissions.GetByCode(ctx, tenantID, code)
		if err != nil {
			return nil, fmt.Errorf("permission %q: %w", code, err)
		}
		if def.TenantID != r.TenantID {
			return nil, ErrCrossTenantReference
		}
		permissionIDs = append(permissionIDs, def.ID)
	}

	if err := s.repo.AddPermissions(ctx, r.ID, permissionIDs); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionsGranted,
		TenantID: tenantID,
		Resource: roleName,
		Metadata: map[string]any{"codes": codes},
	})

	return s.repo.GetByName(ctx, tenantID, roleName)
}

// RevokePermissions removes the resolved codes from the role's set. Codes
// that do not resolve or are not currently granted are silently ignored.
func (s *Service) RevokePermissions(ctx context.Context, tenantID, roleName string, codes []string) (*Role, error) {
	r, err := s.repo.GetByName(ctx, tenantID, roleName)
	if err != nil {
		return nil, err
	}

	permissionIDs := make([]string, 0, len(codes))
	for _, code := range codes {
		def, err := s.permissions.GetByCode(ctx, tenantID, code)
		if err != nil {
			if err == permission.ErrPermissionNotFound {
				continue
			}
			return nil, err
		}
		permissionIDs = append(permissionIDs, def.ID)
	}

	if len(permissionIDs) > 0 {
		if err := s.repo.RemovePermissions(ctx, r.ID, permissionIDs); err != nil {
			return nil, err
		}

		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypePermissionsRevoked,
			TenantID: tenantID,
			Resource: roleName,
			Metadata: map[string]any{"codes": codes},
		})
	}

	return s.repo.GetByName(ctx, tenantID, roleName)
}
