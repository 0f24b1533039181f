package permission

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPermissionNotFound = errors.New("permission not found")
	ErrDuplicateCode      = errors.New("permission code already exists")
)

// Definition is an atomic capability defined within a tenant. Roles and user
// identities reference definitions by id; the code is the tenant-scoped
// natural key callers use.
type Definition struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Repository defines the interface for permission storage
type Repository interface {
	Create(ctx context.Context, def *Definition) error
	GetByCode(ctx context.Context, tenantID, code string) (*Definition, error)
	// ListByIDs resolves definitions by id within a tenant. IDs that do not
	// resolve are silently omitted.
	ListByIDs(ctx context.Context, tenantID string, ids []string) ([]*Definition, error)
	Update(ctx context.Context, def *Definition) error
	// Delete removes the definition and, through the store's referential
	// integrity, every role and user assignment referencing it.
	Delete(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*Definition, error)
}
