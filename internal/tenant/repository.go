package tenant

import (
	"context"
	"errors"
)

var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrDuplicateKey   = errors.New("tenant external key already exists")
)

// Repository defines the interface for tenant storage
type Repository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetByExternalKey(ctx context.Context, key string) (*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	// UpdateCredentials replaces both credential hashes in a single write.
	UpdateCredentials(ctx context.Context, id, hashedAPIKey, hashedClientSecret string) error
	List(ctx context.Context, limit, offset int) ([]*Tenant, error)
}
