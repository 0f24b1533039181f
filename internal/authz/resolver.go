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

// Package authz answers permission questions by combining a user's direct
// permission set with the permissions carried by the user's roles.
package authz

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/authgate/authgate/internal/identity"
	"github.com/authgate/authgate/internal/permission"
	"github.com/authgate/authgate/internal/role"
	"github.com/authgate/authgate/internal/tenant"
)

// TenantDirectory looks up tenants for enablement checks.
type TenantDirectory interface {
	GetByID(ctx context.Context, id string) (*tenant.Tenant, error)
}

// UserDirectory looks up user identities with their assignment sets.
type UserDirectory interface {
	GetByExternalID(ctx context.Context, tenantID, externalUserID string) (*identity.UserIdentity, error)
}

// RoleCatalog loads roles by id.
type RoleCatalog interface {
	GetByID(ctx context.Context, id string) (*role.Role, error)
}

// PermissionCatalog resolves permission codes and id batches.
type PermissionCatalog interface {
	GetByCode(ctx context.Context, tenantID, code string) (*permission.Definition, error)
	ListByIDs(ctx context.Context, tenantID string, ids []string) ([]*permission.Definition, error)
}

// Resolver evaluates effective permissions. It holds no state of its own;
// every answer reflects the stored assignments at call time.
type Resolver struct {
	tenants     TenantDirectory
	users       UserDirectory
	roles       RoleCatalog
	permissions PermissionCatalog
}

// NewResolver creates a new permission resolver
func NewResolver(tenants TenantDirectory, users UserDirectory, roles RoleCatalog, permissions PermissionCatalog) *Resolver {
	return &Resolver{
		tenants:     tenants,
		users:       users,
		roles:       roles,
		permissions: permissions,
	}
}

// HasPermission reports whether the user holds the coded permission, either
// directly or through any assigned role. A disabled tenant, an unknown
// permission code, and an unknown user all resolve to false without error;
// only an unknown tenant is reported as one.
func (r *Resolver) HasPermission(ctx context.Context, tenantID, externalUserID, code string) (bool, error) {
	t, err := r.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return false, fmt.Errorf("failed to get tenant: %w", err)
	}
	if !t.Enabled {
		return false, nil
	}

	def, err := r.permissions.GetByCode(ctx, tenantID, code)
	if err != nil {
		if errors.Is(err, permission.ErrPermissionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to resolve permission: %w", err)
	}

	user, err := r.users.GetByExternalID(ctx, tenantID, externalUserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	if user.HasDirectPermission(def.ID) {
		return true, nil
	}

	for _, roleID := range user.Roles {
		rl, err := r.roles.GetByID(ctx, roleID)
		if err != nil {
			if errors.Is(err, role.ErrRoleNotFound) {
				continue
			}
			return false, fmt.Errorf("failed to get role: %w", err)
		}
		if rl.HasPermission(def.ID) {
			return true, nil
		}
	}

	return false, nil
}

// ListEffectivePermissions returns the union of the user's direct
// permissions and the permissions of every assigned role, deduplicated and
// ordered by code. A disabled tenant or an unknown user yields an empty set.
func (r *Resolver) ListEffectivePermissions(ctx context.Context, tenantID, externalUserID string) ([]*permission.Definition, error) {
	t, err := r.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	if !t.Enabled {
		return []*permission.Definition{}, nil
	}

	user, err := r.users.GetByExternalID(ctx, tenantID, externalUserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return []*permission.Definition{}, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0, len(user.DirectPermissions))
	for _, pid := range user.DirectPermissions {
		if _, ok := seen[pid]; !ok {
			seen[pid] = struct{}{}
			ids = append(ids, pid)
		}
	}

	for _, roleID := range user.Roles {
		rl, err := r.roles.GetByID(ctx, roleID)
		if err != nil {
			if errors.Is(err, role.ErrRoleNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get role: %w", err)
		}
		for _, pid := range rl.Permissions {
			if _, ok := seen[pid]; !ok {
				seen[pid] = struct{}{}
				ids = append(ids, pid)
			}
		}
	}

	defs, err := r.permissions.ListByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Code < defs[j].Code })
	return defs, nil
}

// ResolveClaims flattens a user's assignments into role names and effective
// permission codes, the shape embedded into access tokens. Dangling role
// assignments are skipped.
func (r *Resolver) ResolveClaims(ctx context.Context, tenantID, externalUserID string) ([]string, []string, error) {
	user, err := r.users.GetByExternalID(ctx, tenantID, externalUserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	roleNames := make([]string, 0, len(user.Roles))
	for _, roleID := range user.Roles {
		rl, err := r.roles.GetByID(ctx, roleID)
		if err != nil {
			if errors.Is(err, role.ErrRoleNotFound) {
				continue
			}
			return nil, nil, fmt.Errorf("failed to get role: %w", err)
		}
		roleNames = append(roleNames, rl.Name)
	}
	sort.Strings(roleNames)

	defs, err := r.ListEffectivePermissions(ctx, tenantID, externalUserID)
	if err != nil {
		return nil, nil, err
	}
	codes := make([]string, 0, len(defs))
	for _, def := range defs {
		codes = append(codes, def.Code)
	}

	return roleNames, codes, nil
}
