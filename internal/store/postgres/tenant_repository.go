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

	"github.com/authgate/authgate/internal/tenant"
)

// TenantRepository implements tenant.Repository
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Create inserts a new tenant. A duplicate external key is reported as
// tenant.ErrDuplicateKey via the unique constraint.
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO tenants (
			id, external_key, display_name, description,
			hashed_api_key, hashed_client_secret, enabled,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		t.ID, t.ExternalKey, t.DisplayName, t.Description,
		t.HashedAPIKey, t.HashedClientSecret, t.Enabled,
		now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return tenant.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert tenant: %w", err)
	}

	t.CreatedAt = now
	t.UpdatedAt = now

	return nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetByExternalKey retrieves a tenant by external key
func (r *TenantRepository) GetByExternalKey(ctx context.Context, key string) (*tenant.Tenant, error) {
	return r.get(ctx, `WHERE external_key = $1`, key)
}

func (r *TenantRepository) get(ctx context.Context, where string, arg any) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, external_key, display_name, description,
			hashed_api_key, hashed_client_secret, enabled,
			created_at, updated_at
		FROM tenants `+where,
		arg,
	).Scan(
		&t.ID, &t.ExternalKey, &t.DisplayName, &t.Description,
		&t.HashedAPIKey, &t.HashedClientSecret, &t.Enabled,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return &t, nil
}

// Update updates tenant metadata and enablement
func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE tenants SET
			display_name = $2,
			description = $3,
			enabled = $4,
			updated_at = NOW()
		WHERE id = $1
	`, t.ID, t.DisplayName, t.Description, t.Enabled)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}

	return nil
}

// UpdateCredentials replaces both credential hashes in one statement
func (r *TenantRepository) UpdateCredentials(ctx context.Context, id, hashedAPIKey, hashedClientSecret string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE tenants SET
			hashed_api_key = $2,
			hashed_client_secret = $3,
			updated_at = NOW()
		WHERE id = $1
	`, id, hashedAPIKey, hashedClientSecret)
	if err != nil {
		return fmt.Errorf("failed to update tenant credentials: %w", err)
	}

	if result.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}

	return nil
}

// List returns tenants ordered by creation time
func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, external_key, display_name, description,
			hashed_api_key, hashed_client_secret, enabled,
			created_at, updated_at
		FROM tenants
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		if err := rows.Scan(
			&t.ID, &t.ExternalKey, &t.DisplayName, &t.Description,
			&t.HashedAPIKey, &t.HashedClientSecret, &t.Enabled,
			&t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}

	return tenants, rows.Err()
}
