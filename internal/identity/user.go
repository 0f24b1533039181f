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

package identity

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound         = errors.New("user identity not found")
	ErrUserAlreadyExists    = errors.New("user identity already exists")
	ErrCrossTenantReference = errors.New("referenced entity belongs to a different tenant")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountLocked        = errors.New("account is locked")
	ErrWeakPassword         = errors.New("password does not meet security requirements")
	ErrNoCredentials        = errors.New("user has no password credentials")
)

// UserIdentity is the tenant-scoped representation of an external user. It
// is provisioned lazily: the first operation that references an unknown
// external user id creates the record. Roles and DirectPermissions hold ids
// of tenant-local roles and permission definitions; both behave as sets.
type UserIdentity struct {
	ID                string    `json:"id"`
	TenantID          string    `json:"tenant_id"`
	ExternalUserID    string    `json:"external_user_id"`
	Roles             []string  `json:"roles"`
	DirectPermissions []string  `json:"direct_permissions"`
	CreatedAt         time.Time `json:"created_at"`
}

// HasRole reports whether the role id is assigned to the user
func (u *UserIdentity) HasRole(roleID string) bool {
	for _, r := range u.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// HasDirectPermission reports whether the permission id is directly assigned
func (u *UserIdentity) HasDirectPermission(permissionID string) bool {
	for _, p := range u.DirectPermissions {
		if p == permissionID {
			return true
		}
	}
	return false
}

// Credentials holds a user's password hash and lockout state. Users without
// a password can still hold roles and permissions; credentials only exist
// for login flows.
type Credentials struct {
	UserID              string
	PasswordHash        string
	FailedLoginAttempts int
	LockedUntil         *time.Time
	UpdatedAt           time.Time
}

// Repository defines the interface for user identity storage. Reads load
// the identity together with its role and direct-permission id sets.
type Repository interface {
	Create(ctx context.Context, user *UserIdentity) error
	GetByExternalID(ctx context.Context, tenantID, externalUserID string) (*UserIdentity, error)
	GetByID(ctx context.Context, id string) (*UserIdentity, error)

	// AddRoles / AddDirectPermissions insert join rows, ignoring ids
	// already present; the Remove variants delete join rows and treat
	// absent ids as a no-op.
	AddRoles(ctx context.Context, userID string, roleIDs []string) error
	RemoveRoles(ctx context.Context, userID string, roleIDs []string) error
	AddDirectPermissions(ctx context.Context, userID string, permissionIDs []string) error
	RemoveDirectPermissions(ctx context.Context, userID string, permissionIDs []string) error

	UpsertCredentials(ctx context.Context, credentials *Credentials) error
	GetCredentials(ctx context.Context, userID string) (*Credentials, error)
	UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error
}
