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

	"github.com/authgate/authgate/internal/identity"
)

// UserRepository implements identity.Repository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user identity. A duplicate external user id within
// the tenant is reported as identity.ErrUserAlreadyExists so callers can
// settle provisioning races.
func (r *UserRepository) Create(ctx context.Context, user *identity.UserIdentity) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO user_identities (id, tenant_id, external_user_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.TenantID, user.ExternalUserID, now)
	if err != nil {
		if isUniqueViolation(err) {
			return identity.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.CreatedAt = now

	return nil
}

// GetByExternalID retrieves a user with its role and permission id sets
func (r *UserRepository) GetByExternalID(ctx context.Context, tenantID, externalUserID string) (*identity.UserIdentity, error) {
	return r.get(ctx, `WHERE tenant_id = $1 AND external_user_id = $2`, tenantID, externalUserID)
}

// GetByID retrieves a user by internal id with its assignment sets
func (r *UserRepository) GetByID(ctx context.Context, id string) (*identity.UserIdentity, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *UserRepository) get(ctx context.Context, where string, args ...any) (*identity.UserIdentity, error) {
	var user identity.UserIdentity
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, external_user_id, created_at
		FROM user_identities `+where,
		args...,
	).Scan(&user.ID, &user.TenantID, &user.ExternalUserID, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	roles, err := r.loadSet(ctx, `SELECT role_id FROM user_roles WHERE user_id = $1`, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles

	perms, err := r.loadSet(ctx, `SELECT permission_id FROM user_permissions WHERE user_id = $1`, user.ID)
	if err != nil {
		return nil, err
	}
	user.DirectPermissions = perms

	return &user, nil
}

func (r *UserRepository) loadSet(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := r.db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user assignments: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan assignment id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddRoles assigns roles to a user, ignoring ones already assigned
func (r *UserRepository) AddRoles(ctx context.Context, userID string, roleIDs []string) error {
	for _, rid := range roleIDs {
		_, err := r.db.pool.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, userID, rid)
		if err != nil {
			return fmt.Errorf("failed to add user role: %w", err)
		}
	}
	return nil
}

// RemoveRoles unassigns roles from a user, ignoring absent ones
func (r *UserRepository) RemoveRoles(ctx context.Context, userID string, roleIDs []string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM user_roles WHERE user_id = $1 AND role_id = ANY($2)
	`, userID, roleIDs)
	if err != nil {
		return fmt.Errorf("failed to remove user roles: %w", err)
	}
	return nil
}

// AddDirectPermissions grants direct permissions, ignoring ones already held
func (r *UserRepository) AddDirectPermissions(ctx context.Context, userID string, permissionIDs []string) error {
	for _, pid := range permissionIDs {
		_, err := r.db.pool.Exec(ctx, `
			INSERT INTO user_permissions (user_id, permission_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, userID, pid)
		if err != nil {
			return fmt.Errorf("failed to add user permission: %w", err)
		}
	}
	return nil
}

// RemoveDirectPermissions revokes direct permissions, ignoring absent ones
func (r *UserRepository) RemoveDirectPermissions(ctx context.Context, userID string, permissionIDs []string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM user_permissions WHERE user_id = $1 AND permission_id = ANY($2)
	`, userID, permissionIDs)
	if err != nil {
		return fmt.Errorf("failed to remove user permissions: %w", err)
	}
	return nil
}

// UpsertCredentials inserts or replaces a user's password credentials,
// clearing any accumulated lockout state.
func (r *UserRepository) UpsertCredentials(ctx context.Context, credentials *identity.Credentials) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO user_credentials (user_id, password_hash, failed_login_attempts, locked_until, updated_at)
		VALUES ($1, $2, 0, NULL, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			failed_login_attempts = 0,
			locked_until = NULL,
			updated_at = EXCLUDED.updated_at
	`, credentials.UserID, credentials.PasswordHash, now)
	if err != nil {
		return fmt.Errorf("failed to upsert credentials: %w", err)
	}

	credentials.UpdatedAt = now

	return nil
}

// GetCredentials retrieves a user's password credentials
func (r *UserRepository) GetCredentials(ctx context.Context, userID string) (*identity.Credentials, error) {
	var creds identity.Credentials
	err := r.db.pool.QueryRow(ctx, `
		SELECT user_id, password_hash, failed_login_attempts, locked_until, updated_at
		FROM user_credentials
		WHERE user_id = $1
	`, userID).Scan(&creds.UserID, &creds.PasswordHash, &creds.FailedLoginAttempts, &creds.LockedUntil, &creds.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	return &creds, nil
}

// UpdateLockout updates a user's failed login counter and lock expiry
func (r *UserRepository) UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	_, err := r.db.pool.Exec(ctx, `
		UPDATE user_credentials
		SET failed_login_attempts = $2, locked_until = $3, updated_at = NOW()
		WHERE user_id = $1
	`, userID, failedAttempts, lockedUntil)
	if err != nil {
		return fmt.Errorf("failed to update lockout status: %w", err)
	}
	return nil
}
