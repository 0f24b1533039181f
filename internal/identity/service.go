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
	"fmt"
	"time"

	"github.com/authgate/authgate/internal/audit"
	"github.com/authgate/authgate/internal/id"
	"github.com/authgate/authgate/internal/permission"
	"github.com/authgate/authgate/internal/role"
)

// RoleCatalog resolves role names within a tenant.
type RoleCatalog interface {
	GetByName(ctx context.Context, tenantID, name string) (*role.Role, error)
}

// PermissionCatalog resolves permission codes within a tenant.
type PermissionCatalog interface {
	GetByCode(ctx context.Context, tenantID, code string) (*permission.Definition, error)
}

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) (bool, error)
}

// Service handles user identity business logic. All role and permission
// arguments are names and codes; the service resolves them to ids before
// touching storage so that assignments can never cross tenant boundaries.
type Service struct {
	repo            Repository
	roles           RoleCatalog
	permissions     PermissionCatalog
	passwords       PasswordHasher
	auditLogger     audit.Logger
	maxLoginRetries int
	lockoutDuration time.Duration
	minPasswordLen  int
}

// NewService creates a new user identity service
func NewService(repo Repository, roles RoleCatalog, permissions PermissionCatalog, passwords PasswordHasher, auditLogger audit.Logger, maxLoginRetries int, lockoutDuration time.Duration, minPasswordLen int) *Service {
	return &Service{
		repo:            repo,
		roles:           roles,
		permissions:     permissions,
		passwords:       passwords,
		auditLogger:     auditLogger,
		maxLoginRetries: maxLoginRetries,
		lockoutDuration: lockoutDuration,
		minPasswordLen:  minPasswordLen,
	}
}

// GetOrCreate returns the identity for the external user id, provisioning
// it with empty role and permission sets on first reference. A concurrent
// create racing on the same external id is resolved by re-fetching.
func (s *Service) GetOrCreate(ctx context.Context, tenantID, externalUserID string) (*UserIdentity, error) {
	user, err := s.repo.GetByExternalID(ctx, tenantID, externalUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user = &UserIdentity{
		ID:                id.NewUUIDv7(),
		TenantID:          tenantID,
		ExternalUserID:    externalUserID,
		Roles:             []string{},
		DirectPermissions: []string{},
		CreatedAt:         time.Now(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			// Lost the race; the winner's record is the canonical one.
			return s.repo.GetByExternalID(ctx, tenantID, externalUserID)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Get returns the identity for the external user id without provisioning
func (s *Service) Get(ctx context.Context, tenantID, externalUserID string) (*UserIdentity, error) {
	return s.repo.GetByExternalID(ctx, tenantID, externalUserID)
}

// GetByID returns the identity for an internal user id
func (s *Service) GetByID(ctx context.Context, userID string) (*UserIdentity, error) {
	return s.repo.GetByID(ctx, userID)
}

// AssignRoles adds the named roles to the user's role set. Every name must
// resolve within the tenant before any assignment is made; an unknown name
// aborts the whole batch. Already-assigned roles are ignored.
func (s *Service) AssignRoles(ctx context.Context, tenantID, externalUserID string, roleNames []string) (*UserIdentity, error) {
	user, err := s.GetOrCreate(ctx, tenantID, externalUserID)
	if err != nil {
		return nil, err
	}

	roleIDs := make([]string, 0, len(roleNames))
	for _, name := range roleNames {
		r, err := s.roles.GetByName(ctx, tenantID, name)
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", name, err)
		}
		if r.TenantID != tenantID {
			return nil, ErrCrossTenantReference
		}
		roleIDs = append(roleIDs, r.ID)
	}

	if err := s.repo.AddRoles(ctx, user.ID, roleIDs); err != nil {
		return nil, fmt.Errorf("failed to assign roles: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRolesAssigned,
		TenantID: tenantID,
		Resource: externalUserID,
		Metadata: map[string]any{"roles": roleNames},
	})

	return s.repo.GetByExternalID(ctx, tenantID, externalUserID)
}

// RemoveRoles removes the named roles from the user's role set. Names that
// do not resolve, and roles the user does not hold, are skipped.
func (s *Service) RemoveRoles(ctx context.Context, tenantID, externalUserID string, roleNames []string) (*UserIdentity, error) {
	user, err := s.GetOrCreate(ctx, tenantID, externalUserID)
	if err != nil {
		return nil, err
	}

	roleIDs := make([]string, 0, len(roleNames))
	removed := make([]string, 0, len(roleNames))
	for _, name := range roleNames {
		r, err := s.roles.GetByName(ctx, tenantID, name)
		if err != nil {
			if errors.Is(err, role.ErrRoleNotFound) {
				continue
			}
			return nil, fmt.Errorf("role %q: %w", name, err)
		}
		roleIDs = append(roleIDs, r.ID)
		removed = append(removed, name)
	}

	if len(roleIDs) > 0 {
		if err := s.repo.RemoveRoles(ctx, user.ID, roleIDs); err != nil {
			return nil, fmt.Errorf("failed to remove roles: %w", err)
		}

		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeRolesRemoved,
			TenantID: tenantID,
			Resource: externalUserID,
			Metadata: map[string]any{"roles": removed},
		})
	}

	return s.repo.GetByExternalID(ctx, tenantID, externalUserID)
}

// AssignDirectPermissions adds the coded permissions to the user's direct
// set. Like AssignRoles, the whole batch is validated before any write.
func (s *Service) AssignDirectPermissions(ctx context.Context, tenantID, externalUserID string, codes []string) (*UserIdentity, error) {
	user, err := s.GetOrCreate(ctx, tenantID, externalUserID)
	if err != nil {
		return nil, err
	}

	permissionIDs := make([]string, 0, len(codes))
	for _, code := range codes {
		p, err := s.permissions.GetByCode(ctx, tenantID, code)
		if err != nil {
			return nil, fmt.Errorf("permission %q: %w", code, err)
		}
		if p.TenantID != tenantID {
			return nil, ErrCrossTenantReference
		}
		permissionIDs = append(permissionIDs, p.ID)
	}

	if err := s.repo.AddDirectPermissions(ctx, user.ID, permissionIDs); err != nil {
		return nil, fmt.Errorf("failed to assign permissions: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionsGranted,
		TenantID: tenantID,
		Resource: externalUserID,
		Metadata: map[string]any{"permissions": codes},
	})

	return s.repo.GetByExternalID(ctx, tenantID, externalUserID)
}

// RemoveDirectPermissions removes the coded permissions from the user's
// direct set, skipping codes that do not resolve.
func (s *Service) RemoveDirectPermissions(ctx context.Context, tenantID, externalUserID string, codes []string) (*UserIdentity, error) {
	user, err := s.GetOrCreate(ctx, tenantID, externalUserID)
	if err != nil {
		return nil, err
	}

	permissionIDs := make([]string, 0, len(codes))
	removed := make([]string, 0, len(codes))
	for _, code := range codes {
		p, err := s.permissions.GetByCode(ctx, tenantID, code)
		if err != nil {
			if errors.Is(err, permission.ErrPermissionNotFound) {
				continue
			}
			return nil, fmt.Errorf("permission %q: %w", code, err)
		}
		permissionIDs = append(permissionIDs, p.ID)
		removed = append(removed, code)
	}

	if len(permissionIDs) > 0 {
		if err := s.repo.RemoveDirectPermissions(ctx, user.ID, permissionIDs); err != nil {
			return nil, fmt.Errorf("failed to remove permissions: %w", err)
		}

		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypePermissionsRevoked,
			TenantID: tenantID,
			Resource: externalUserID,
			Metadata: map[string]any{"permissions": removed},
		})
	}

	return s.repo.GetByExternalID(ctx, tenantID, externalUserID)
}

// SetPassword sets or replaces the user's password credentials
func (s *Service) SetPassword(ctx context.Context, tenantID, externalUserID, password string) error {
	if len(password) < s.minPasswordLen {
		return ErrWeakPassword
	}

	user, err := s.GetOrCreate(ctx, tenantID, externalUserID)
	if err != nil {
		return err
	}

	hash, err := s.passwords.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpsertCredentials(ctx, &Credentials{
		UserID:       user.ID,
		PasswordHash: hash,
		UpdatedAt:    time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePasswordChanged,
		TenantID: tenantID,
		ActorID:  user.ID,
		Resource: externalUserID,
	})

	return nil
}

// Authenticate verifies the user's password and returns the identity on
// success. Failed attempts count toward a temporary lockout; a successful
// login resets the counter. Unknown users and wrong passwords return the
// same error so callers cannot distinguish them.
func (s *Service) Authenticate(ctx context.Context, tenantID, externalUserID, password string) (*UserIdentity, error) {
	user, err := s.repo.GetByExternalID(ctx, tenantID, externalUserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeLoginFailed,
				TenantID: tenantID,
				Resource: externalUserID,
				Metadata: map[string]any{audit.AttrReason: "user_not_found"},
			})
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	creds, err := s.repo.GetCredentials(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrNoCredentials) {
			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeLoginFailed,
				TenantID: tenantID,
				ActorID:  user.ID,
				Metadata: map[string]any{audit.AttrReason: "no_credentials"},
			})
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	if creds.LockedUntil != nil && creds.LockedUntil.After(time.Now()) {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			TenantID: tenantID,
			ActorID:  user.ID,
			Metadata: map[string]any{audit.AttrReason: "account_locked"},
		})
		return nil, ErrAccountLocked
	}

	ok, err := s.passwords.VerifyPassword(password, creds.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		attempts := creds.FailedLoginAttempts + 1
		var lockedUntil *time.Time
		if attempts >= s.maxLoginRetries {
			t := time.Now().Add(s.lockoutDuration)
			lockedUntil = &t
			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeUserLocked,
				TenantID: tenantID,
				ActorID:  user.ID,
				Metadata: map[string]any{audit.AttrAttempts: attempts},
			})
		}
		if err := s.repo.UpdateLockout(ctx, user.ID, attempts, lockedUntil); err != nil {
			return nil, fmt.Errorf("failed to record failed login: %w", err)
		}
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			TenantID: tenantID,
			ActorID:  user.ID,
			Metadata: map[string]any{audit.AttrReason: "invalid_password", audit.AttrAttempts: attempts},
		})
		return nil, ErrInvalidCredentials
	}

	if creds.FailedLoginAttempts > 0 || creds.LockedUntil != nil {
		if err := s.repo.UpdateLockout(ctx, user.ID, 0, nil); err != nil {
			return nil, fmt.Errorf("failed to reset lockout: %w", err)
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		TenantID: tenantID,
		ActorID:  user.ID,
	})

	return user, nil
}
