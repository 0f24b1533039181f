package http

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/audit"
	"github.com/authgate/authgate/internal/tenant"
)

// Mock Repository for Tenant
type mockTenantRepo struct {
	mock.Mock
}

func (m *mockTenantRepo) Create(ctx context.Context, t *tenant.Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockTenantRepo) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}

func (m *mockTenantRepo) GetByExternalKey(ctx context.Context, key string) (*tenant.Tenant, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}

func (m *mockTenantRepo) Update(ctx context.Context, t *tenant.Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockTenantRepo) UpdateCredentials(ctx context.Context, id, hashedAPIKey, hashedClientSecret string) error {
	args := m.Called(ctx, id, hashedAPIKey, hashedClientSecret)
	return args.Error(0)
}

func (m *mockTenantRepo) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*tenant.Tenant), args.Error(1)
}

type testSecrets struct{}

func (testSecrets) GenerateSecret() (string, error) { return "generated-secret", nil }

func (testSecrets) HashSecret(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func newTenantHandler(repo tenant.Repository) *Handler {
	return &Handler{
		tenantService: tenant.NewService(repo, testSecrets{}, audit.NewSlogLogger()),
	}
}

// TestPurpose: Validates tenant registration over HTTP, including the
// one-time exposure of generated credentials.
// Scope: Unit Test
// Security: Plaintext secrets appear only in the registration response;
// the tenant body itself must not carry them.
// Expected: Returns HTTP 201 Created with tenant, api_key, client_secret.
// Test Case ID: TEN-07
func TestTenant_Handler_Register(t *testing.T) {
	repo := new(mockTenantRepo)
	h := newTenantHandler(repo)

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	body, _ := json.Marshal(RegisterTenantRequest{
		ExternalKey: "acme",
		DisplayName: "Acme Corp",
	})
	req := httptest.NewRequest("POST", "/api/v1/tenants", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.RegisterTenant(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Tenant       tenant.Tenant `json:"tenant"`
		APIKey       string        `json:"api_key"`
		ClientSecret string        `json:"client_secret"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "acme", resp.Tenant.ExternalKey)
	assert.True(t, resp.Tenant.Enabled)
	assert.NotEmpty(t, resp.APIKey)
	assert.NotEmpty(t, resp.ClientSecret)
	assert.NotContains(t, w.Body.String(), "hashed_api_key")
}

// TestPurpose: Validates registration input validation and duplicate
// handling status codes.
// Scope: Unit Test
// Expected: 400 for missing fields, 409 for a taken external key.
// Test Case ID: TEN-08
func TestTenant_Handler_Register_Errors(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		h := newTenantHandler(new(mockTenantRepo))

		body, _ := json.Marshal(RegisterTenantRequest{ExternalKey: "acme"})
		req := httptest.NewRequest("POST", "/api/v1/tenants", bytes.NewReader(body))
		w := httptest.NewRecorder()
		h.RegisterTenant(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate external key", func(t *testing.T) {
		repo := new(mockTenantRepo)
		h := newTenantHandler(repo)
		repo.On("Create", mock.Anything, mock.Anything).Return(tenant.ErrDuplicateKey)

		body, _ := json.Marshal(RegisterTenantRequest{
			ExternalKey: "acme",
			DisplayName: "Acme Corp",
		})
		req := httptest.NewRequest("POST", "/api/v1/tenants", bytes.NewReader(body))
		w := httptest.NewRecorder()
		h.RegisterTenant(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp["error"], "already registered")
	})
}

// TestPurpose: Validates the tenant URL segment accepts both a tenant id
// and an external key, and that unknown references yield 404.
// Scope: Unit Test
// Expected: Both addressing forms serve the tenant; unknown returns 404.
// Test Case ID: TEN-09
func TestTenant_Handler_Middleware_DualAddressing(t *testing.T) {
	repo := new(mockTenantRepo)
	h := newTenantHandler(repo)
	router := NewRouter(h, NewRateLimiter(1000, 1000))

	stored := &tenant.Tenant{ID: "0198f2a6-0000-7000-8000-000000000001", ExternalKey: "acme", DisplayName: "Acme Corp", Enabled: true}

	t.Run("by external key", func(t *testing.T) {
		repo.On("GetByExternalKey", mock.Anything, "acme").Return(stored, nil).Once()

		req := httptest.NewRequest("GET", "/api/v1/tenants/acme", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var got tenant.Tenant
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, stored.ID, got.ID)
	})

	t.Run("by tenant id", func(t *testing.T) {
		repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil).Once()

		req := httptest.NewRequest("GET", "/api/v1/tenants/"+stored.ID, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown", func(t *testing.T) {
		repo.On("GetByExternalKey", mock.Anything, "ghost").Return(nil, tenant.ErrTenantNotFound).Once()

		req := httptest.NewRequest("GET", "/api/v1/tenants/ghost", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
