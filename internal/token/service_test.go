package token

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/audit"
)

// memoryRefreshTokens is an in-memory RefreshTokenRepository for tests.
type memoryRefreshTokens struct {
	mu     sync.Mutex
	byHash map[string]*RefreshToken
	byID   map[string]*RefreshToken
}

func newMemoryRefreshTokens() *memoryRefreshTokens {
	return &memoryRefreshTokens{
		byHash: make(map[string]*RefreshToken),
		byID:   make(map[string]*RefreshToken),
	}
}

func (m *memoryRefreshTokens) Create(ctx context.Context, rt *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rt
	m.byHash[cp.TokenHash] = &cp
	m.byID[cp.ID] = &cp
	return nil
}

func (m *memoryRefreshTokens) GetByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.byHash[hash]; ok {
		cp := *rt
		return &cp, nil
	}
	return nil, ErrInvalidToken
}

func (m *memoryRefreshTokens) Revoke(ctx context.Context, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.byID[tokenID]
	if !ok {
		return ErrInvalidToken
	}
	rt.Revoked = true
	return nil
}

func (m *memoryRefreshTokens) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for hash, rt := range m.byHash {
		if time.Now().After(rt.ExpiresAt) {
			delete(m.byHash, hash)
			delete(m.byID, rt.ID)
			n++
		}
	}
	return n, nil
}

type noopAudit struct{}

func (noopAudit) Log(ctx context.Context, event audit.Event) {}

func newTestService(repo RefreshTokenRepository, accessTTL, refreshTTL time.Duration) *Service {
	return NewService(repo, noopAudit{}, []byte("test-signing-secret-at-least-32b"),
		"authgate", "authgate-api", accessTTL, refreshTTL)
}

// TestPurpose: Validates the issue/verify round trip preserves the identity
// claims and standard claim envelope.
// Scope: Unit Test
// Expected: Verified claims carry uid, name, roles, permissions, issuer,
// audience, and a parseable jti.
// Test Case ID: TOK-01
func TestToken_Service_IssueVerify(t *testing.T) {
	service := newTestService(newMemoryRefreshTokens(), 15*time.Minute, 24*time.Hour)
	ctx := context.Background()
	tenantID := uuid.NewString()
	userID := uuid.NewString()

	pair, err := service.Issue(ctx, tenantID, userID, "alice",
		[]string{"editor"}, []string{"doc.read", "doc.write"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(900), pair.ExpiresIn)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := service.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, "alice", claims.Name)
	assert.Equal(t, []string{"editor"}, claims.Roles)
	assert.Equal(t, []string{"doc.read", "doc.write"}, claims.Permissions)
	assert.Equal(t, "authgate", claims.Issuer)
	assert.Contains(t, claims.Audience, "authgate-api")
	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err)
}

// TestPurpose: Validates rejection of expired, foreign-key, and malformed
// access tokens.
// Scope: Unit Test
// Security: Verification must fail closed on every tampered input.
// Test Case ID: TOK-02
func TestToken_Service_Verify_Rejections(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.NewString()
	userID := uuid.NewString()

	t.Run("expired", func(t *testing.T) {
		service := newTestService(newMemoryRefreshTokens(), -time.Minute, 24*time.Hour)
		pair, err := service.Issue(ctx, tenantID, userID, "alice", nil, nil)
		require.NoError(t, err)

		_, err = service.Verify(pair.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong key", func(t *testing.T) {
		service := newTestService(newMemoryRefreshTokens(), 15*time.Minute, 24*time.Hour)
		other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Issuer:    "authgate",
			Audience:  jwt.ClaimStrings{"authgate-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := other.SignedString([]byte("a-completely-different-secret"))
		require.NoError(t, err)

		_, err = service.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		service := newTestService(newMemoryRefreshTokens(), 15*time.Minute, 24*time.Hour)
		_, err := service.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

// TestPurpose: Validates the single-use refresh rotation contract.
// Scope: Unit Test
// Security: A redeemed refresh token must be unusable afterwards so a
// stolen token cannot be replayed.
// Expected: First redeem returns the user id; second redeem fails with
// ErrTokenRevoked.
// Test Case ID: TOK-03
func TestToken_Service_Redeem_SingleUse(t *testing.T) {
	service := newTestService(newMemoryRefreshTokens(), 15*time.Minute, 24*time.Hour)
	ctx := context.Background()
	tenantID := uuid.NewString()
	userID := uuid.NewString()

	pair, err := service.Issue(ctx, tenantID, userID, "alice", nil, nil)
	require.NoError(t, err)

	got, err := service.Redeem(ctx, tenantID, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = service.Redeem(ctx, tenantID, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

// TestPurpose: Validates redemption rejects tokens that were never issued
// or have outlived their refresh window.
// Scope: Unit Test
// Test Case ID: TOK-04
func TestToken_Service_Redeem_Rejections(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.NewString()
	userID := uuid.NewString()

	t.Run("unknown token", func(t *testing.T) {
		service := newTestService(newMemoryRefreshTokens(), 15*time.Minute, 24*time.Hour)
		_, err := service.Redeem(ctx, tenantID, "never-issued")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		service := newTestService(newMemoryRefreshTokens(), 15*time.Minute, -time.Minute)
		pair, err := service.Issue(ctx, tenantID, userID, "alice", nil, nil)
		require.NoError(t, err)

		_, err = service.Redeem(ctx, tenantID, pair.RefreshToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}

// TestPurpose: Validates expired refresh tokens are removed by the purge
// while live ones survive.
// Scope: Unit Test
// Test Case ID: TOK-05
func TestToken_Service_PurgeExpired(t *testing.T) {
	repo := newMemoryRefreshTokens()
	ctx := context.Background()
	tenantID := uuid.NewString()

	expired := newTestService(repo, 15*time.Minute, -time.Minute)
	_, err := expired.Issue(ctx, tenantID, uuid.NewString(), "old", nil, nil)
	require.NoError(t, err)

	live := newTestService(repo, 15*time.Minute, 24*time.Hour)
	pair, err := live.Issue(ctx, tenantID, uuid.NewString(), "new", nil, nil)
	require.NoError(t, err)

	purged, err := live.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = live.Redeem(ctx, tenantID, pair.RefreshToken)
	assert.NoError(t, err)
}
