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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/authgate/authgate/internal/role"
)

// RoleRepository implements role.Repository
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create inserts a new role. A duplicate name within the tenant is
// reported as role.ErrDuplicateName.
func (r *RoleRepository) Create(ctx context.Context, rl *role.Role) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO roles (id, tenant_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rl.ID, rl.TenantID, rl.Name, rl.Description, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return role.ErrDuplicateName
		}
		return fmt.Errorf("failed to insert role: %w", err)
	}

	rl.CreatedAt = now
	rl.UpdatedAt = now

	return nil
}

// GetByID retrieves a role by ID with its permission set
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*role.Role, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetByName retrieves a role by name within a tenant
func (r *RoleRepository) GetByName(ctx context.Context, tenantID, name string) (*role.Role, error) {
	return r.get(ctx, `WHERE tenant_id = $1 AND name = $2`, tenantID, name)
}

func (r *RoleRepository) get(ctx context.Context, where string, args ...any) (*role.Role, error) {
	var rl role.Role
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, description, created_at, updated_at
		FROM roles `+where,
		args...,
	).Scan(&rl.ID, &rl.TenantID, &rl.Name, &rl.Description, &rl.CreatedAt, &rl.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, role.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	perms, err := r.loadPermissions(ctx, rl.ID)
	if err != nil {
		return nil, err
	}
	rl.Permissions = perms

	return &rl, nil
}

func (r *RoleRepository) loadPermissions(ctx context.Context, roleID string) ([]string, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT permission_id FROM role_permissions WHERE role_id = $1
	`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load role permissions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan permission id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update updates role name and description
func (r *RoleRepository) Update(ctx context.Context, rl *role.Role) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE roles SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
	`, rl.ID, rl.Name, rl.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return role.ErrDuplicateName
		}
		return fmt.Errorf("failed to update role: %w", err)
	}

	if result.RowsAffected() == 0 {
		return role.ErrRoleNotFound
	}

	return nil
}

// Delete removes a role; assignments referencing it cascade away
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	if result.RowsAffected() == 0 {
		return role.ErrRoleNotFound
	}

	return nil
}

// ListByTenant returns all roles of a tenant with their permission sets
func (r *RoleRepository) ListByTenant(ctx context.Context, tenantID string) ([]*role.Role, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, tenant_id, name, description, created_at, updated_at
		FROM roles
		WHERE tenant_id = $1
		ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	roles := []*role.Role{}
	for rows.Next() {
		var rl role.Role
		if err := rows.Scan(&rl.ID, &rl.TenantID, &rl.Name, &rl.Description, &rl.CreatedAt, &rl.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &rl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, rl := range roles {
		perms, err := r.loadPermissions(ctx, rl.ID)
		if err != nil {
			return nil, err
		}
		rl.Permissions = perms
	}

	return roles, nil
}

// AddPermissions grants permissions to a role, ignoring ones already held
func (r *RoleRepository) AddPermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	for _, pid := range permissionIDs {
		_, err := r.db.pool.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, roleID, pid)
		if err != nil {
			return fmt.Errorf("failed to add role permission: %w", err)
		}
	}
	return nil
}

// RemovePermissions revokes permissions from a role, ignoring absent ones
func (r *RoleRepository) RemovePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM role_permissions
		WHERE role_id = $1 AND permission_id = ANY($2)
	`, roleID, permissionIDs)
	if err != nil {
		return fmt.Errorf("failed to remove role permissions: %w", err)
	}
	return nil
}
