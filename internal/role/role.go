package role

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRoleNotFound         = errors.New("role not found")
	ErrDuplicateName        = errors.New("role name already exists")
	ErrCrossTenantReference = errors.New("permission belongs to a different tenant")
)

// Role is a named, tenant-scoped bundle of permissions. Permissions holds
// the ids of the granted permission definitions; membership is a set, so
// grants and revokes are idempotent.
type Role struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasPermission reports whether the role grants the permission id
func (r *Role) HasPermission(permissionID string) bool {
	for _, p := range r.Permissions {
		if p == permissionID {
			return true
		}
	}
	return false
}

// Repository defines the interface for role storage. Reads load the role
// together with its permission id set.
type Repository interface {
	Create(ctx context.Context, role *Role) error
	GetByID(ctx context.Context, id string) (*Role, error)
	GetByName(ctx context.Context, tenantID, name string) (*Role, error)
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*Role, error)
	// AddPermissions inserts join rows, ignoring ids already present.
	AddPermissions(ctx context.Context, roleID string, permissionIDs []string) error
	// RemovePermissions deletes join rows; absent ids are a no-op.
	RemovePermissions(ctx context.Context, roleID string, permissionIDs []string) error
}
