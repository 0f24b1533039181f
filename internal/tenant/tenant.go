package tenant

import (
	"time"
)

// Tenant represents a registered external application. It is the unit of
// isolation for roles, permissions and user identities: deleting a tenant
// invalidates everything it owns.
type Tenant struct {
	ID                 string    `json:"id"`
	ExternalKey        string    `json:"external_key"`
	DisplayName        string    `json:"display_name"`
	Description        string    `json:"description,omitempty"`
	HashedAPIKey       string    `json:"-"`
	HashedClientSecret string    `json:"-"`
	Enabled            bool      `json:"enabled"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Credentials carries the plaintext API key and client secret. They are
// returned exactly once, at registration or rotation; only the hashes are
// ever stored.
type Credentials struct {
	APIKey       string `json:"api_key"`
	ClientSecret string `json:"client_secret"`
}
