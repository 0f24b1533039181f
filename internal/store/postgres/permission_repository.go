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

	"github.com/authgate/authgate/internal/permission"
)

// PermissionRepository implements permission.Repository
type PermissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db *DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Create inserts a new permission definition. A duplicate code within the
// tenant is reported as permission.ErrDuplicateCode.
func (r *PermissionRepository) Create(ctx context.Context, def *permission.Definition) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO permissions (id, tenant_id, code, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, def.ID, def.TenantID, def.Code, def.Description, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return permission.ErrDuplicateCode
		}
		return fmt.Errorf("failed to insert permission: %w", err)
	}

	def.CreatedAt = now
	def.UpdatedAt = now

	return nil
}

// GetByCode retrieves a permission by code within a tenant
func (r *PermissionRepository) GetByCode(ctx context.Context, tenantID, code string) (*permission.Definition, error) {
	var def permission.Definition
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, code, description, created_at, updated_at
		FROM permissions
		WHERE tenant_id = $1 AND code = $2
	`, tenantID, code).Scan(
		&def.ID, &def.TenantID, &def.Code, &def.Description,
		&def.CreatedAt, &def.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, permission.ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	return &def, nil
}

// ListByIDs loads the definitions for the given ids within a tenant. Ids
// that do not resolve are silently omitted from the result.
func (r *PermissionRepository) ListByIDs(ctx context.Context, tenantID string, ids []string) ([]*permission.Definition, error) {
	if len(ids) == 0 {
		return []*permission.Definition{}, nil
	}

	rows, err := r.db.pool.Query(ctx, `
		SELECT id, tenant_id, code, description, created_at, updated_at
		FROM permissions
		WHERE tenant_id = $1 AND id = ANY($2)
	`, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	return scanPermissions(rows)
}

// Update updates a permission description
func (r *PermissionRepository) Update(ctx context.Context, def *permission.Definition) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE permissions SET description = $2, updated_at = NOW()
		WHERE id = $1
	`, def.ID, def.Description)
	if err != nil {
		return fmt.Errorf("failed to update permission: %w", err)
	}

	if result.RowsAffected() == 0 {
		return permission.ErrPermissionNotFound
	}

	return nil
}

// Delete removes a permission; join rows referencing it cascade away
func (r *PermissionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	if result.RowsAffected() == 0 {
		return permission.ErrPermissionNotFound
	}

	return nil
}

// ListByTenant returns all permissions of a tenant ordered by code
func (r *PermissionRepository) ListByTenant(ctx context.Context, tenantID string) ([]*permission.Definition, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, tenant_id, code, description, created_at, updated_at
		FROM permissions
		WHERE tenant_id = $1
		ORDER BY code
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	return scanPermissions(rows)
}

func scanPermissions(rows pgx.Rows) ([]*permission.Definition, error) {
	defs := []*permission.Definition{}
	for rows.Next() {
		var def permission.Definition
		if err := rows.Scan(
			&def.ID, &def.TenantID, &def.Code, &def.Description,
			&def.CreatedAt, &def.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		defs = append(defs, &def)
	}
	return defs, rows.Err()
}
