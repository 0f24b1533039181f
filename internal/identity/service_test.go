package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/audit"
	"github.com/authgate/authgate/internal/permission"
	"github.com/authgate/authgate/internal/role"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, user *UserIdentity) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockRepo) GetByExternalID(ctx context.Context, tenantID, externalUserID string) (*UserIdentity, error) {
	args := m.Called(ctx, tenantID, externalUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserIdentity), args.Error(1)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*UserIdentity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserIdentity), args.Error(1)
}

func (m *mockRepo) AddRoles(ctx context.Context, userID string, roleIDs []string) error {
	args := m.Called(ctx, userID, roleIDs)
	return args.Error(0)
}

func (m *mockRepo) RemoveRoles(ctx context.Context, userID string, roleIDs []string) error {
	args := m.Called(ctx, userID, roleIDs)
	return args.Error(0)
}

func (m *mockRepo) AddDirectPermissions(ctx context.Context, userID string, permissionIDs []string) error {
	args := m.Called(ctx, userID, permissionIDs)
	return args.Error(0)
}

func (m *mockRepo) RemoveDirectPermissions(ctx context.Context, userID string, permissionIDs []string) error {
	args := m.Called(ctx, userID, permissionIDs)
	return args.Error(0)
}

func (m *mockRepo) UpsertCredentials(ctx context.Context, credentials *Credentials) error {
	args := m.Called(ctx, credentials)
	return args.Error(0)
}

func (m *mockRepo) GetCredentials(ctx context.Context, userID string) (*Credentials, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Credentials), args.Error(1)
}

func (m *mockRepo) UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	args := m.Called(ctx, userID, failedAttempts, lockedUntil)
	return args.Error(0)
}

type mockRoleCatalog struct {
	mock.Mock
}

func (m *mockRoleCatalog) GetByName(ctx context.Context, tenantID, name string) (*role.Role, error) {
	args := m.Called(ctx, tenantID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*role.Role), args.Error(1)
}

type mockPermCatalog struct {
	mock.Mock
}

func (m *mockPermCatalog) GetByCode(ctx context.Context, tenantID, code string) (*permission.Definition, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*permission.Definition), args.Error(1)
}

// fakeHasher marks passwords with a prefix instead of hashing so tests can
// assert on what reached storage.
type fakeHasher struct{}

func (fakeHasher) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeHasher) VerifyPassword(password, hash string) (bool, error) {
	return hash == "hashed:"+password, nil
}

type noopAudit struct{}

func (noopAudit) Log(ctx context.Context, event audit.Event) {}

type recordingAudit struct {
	events []audit.Event
}

func (r *recordingAudit) Log(ctx context.Context, event audit.Event) {
	r.events = append(r.events, event)
}

func newTestService(repo Repository, roles RoleCatalog, perms PermissionCatalog, logger audit.Logger) *Service {
	return NewService(repo, roles, perms, fakeHasher{}, logger, 3, 15*time.Minute, 8)
}

// TestPurpose: Validates lazy provisioning; the first reference to an
// unknown external user id creates an identity with empty sets.
// Scope: Unit Test
// Expected: New UUIDv7 identity persisted for the external id.
// Test Case ID: USR-01
func TestIdentity_Service_GetOrCreate_Provisions(t *testing.T) {
	repo := new(mockRepo)
	service := newTestService(repo, nil, nil, noopAudit{})
	ctx := context.Background()
	tenantID := uuid.NewString()

	repo.On("GetByExternalID", ctx, tenantID, "alice").Return(nil, ErrUserNotFound).Once()
	repo.On("Create", ctx, mock.MatchedBy(func(u *UserIdentity) bool {
		uid, err := uuid.Parse(u.ID)
		return err == nil && uid.Version() == 7 &&
			u.TenantID == tenantID && u.ExternalUserID == "alice" &&
			len(u.Roles) == 0 && len(u.DirectPermissions) == 0
	})).Return(nil)

	user, err := service.GetOrCreate(ctx, tenantID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.ExternalUserID)
	repo.AssertExpectations(t)
}

// TestPurpose: Validates a lost provisioning race settles on the winner's
// record instead of erroring.
// Scope: Unit Test
// Expected: ErrUserAlreadyExists from Create triggers a re-fetch.
// Test Case ID: USR-02
func TestIdentity_Service_GetOrCreate_Race(t *testing.T) {
	repo := new(mockRepo)
	service := newTestService(repo, nil, nil, noopAudit{})
	ctx := context.Background()
	tenantID := uuid.NewString()
	winner := &UserIdentity{ID: uuid.NewString(), TenantID: tenantID, ExternalUserID: "alice"}

	repo.On("GetByExternalID", ctx, tenantID, "alice").Return(nil, ErrUserNotFound).Once()
	repo.On("Create", ctx, mock.Anything).Return(ErrUserAlreadyExists)
	repo.On("GetByExternalID", ctx, tenantID, "alice").Return(winner, nil).Once()

	user, err := service.GetOrCreate(ctx, tenantID, "alice")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, user.ID)
}

// TestPurpose: Validates role assignment batches abort when any name fails
// to resolve in the tenant.
// Scope: Unit Test
// Expected: Error names the missing role; AddRoles is never called.
// Test Case ID: USR-03
func TestIdentity_Service_AssignRoles_UnknownAborts(t *testing.T) {
	repo := new(mockRepo)
	roles := new(mockRoleCatalog)
	service := newTestService(repo, roles, nil, noopAudit{})
	ctx := context.Background()
	tenantID := uuid.NewString()
	user := &UserIdentity{ID: uuid.NewString(), TenantID: tenantID, ExternalUserID: "alice"}

	repo.On("GetByExternalID", ctx, tenantID, "alice").Return(user, nil)
	roles.On("GetByName", ctx, tenantID, "editor").Return(&role.Role{
		ID: uuid.NewString(), TenantID: tenantID, Name: "editor",
	}, nil)
	roles.On("GetByName", ctx, tenantID, "ghost").Return(nil, role.ErrRoleNotFound)

	_, err := service.AssignRoles(ctx, tenantID, "alice", []string{"editor", "ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, role.ErrRoleNotFound)
	assert.Contains(t, err.Error(), "ghost")
	repo.AssertNotCalled(t, "AddRoles", mock.Anything, mock.Anything, mock.Anything)
}

// TestPurpose: Validates removing roles skips names that no longer resolve
// and only removes what was found.
// Scope: Unit Test
// Test Case ID: USR-04
func TestIdentity_Service_RemoveRoles_SkipsUnknown(t *testing.T) {
	repo := new(mockRepo)
	roles := new(mockRoleCatalog)
	service := newTestService(repo, roles, nil, noopAudit{})
	ctx := context.Background()
	tenantID := uuid.NewString()
	roleID := uuid.NewString()
	user := &UserIdentity{ID: uuid.NewString(), TenantID: tenantID, ExternalUserID: "alice", Roles: []string{roleID}}

	repo.On("GetByExternalID", ctx, tenantID, "alice").Return(user, nil)
	roles.On("GetByName", ctx, tenantID, "editor").Return(&role.Role{
		ID: roleID, TenantID: tenantID, Name: "editor",
	}, nil)
	roles.On("GetByName", ctx, tenantID, "ghost").Return(nil, role.ErrRoleNotFound)
	repo.On("RemoveRoles", ctx, user.ID, []string{roleID}).Return(nil)

	_, err := service.RemoveRoles(ctx, tenantID, "alice", []string{"editor", "ghost"})
	require.NoError(t, err)
	repo.AssertCalled(t, "RemoveRoles", ctx, user.ID, []string{roleID})
}

// TestPurpose: Validates direct permission grants resolve codes within the
// tenant and reject cross-tenant definitions.
// Scope: Unit Test
// Security: A user must never hold a permission defined by another tenant.
// Test Case ID: USR-05
func TestIdentity_Service_AssignDirectPermissions_CrossTenant(t *testing.T) {
	repo := new(mockRepo)
	perms := new(mockPermCatalog)
	service := newTestService(repo, nil, perms, noopAudit{})
	ctx := context.Background()
	tenantID := uuid.NewString()
	user := &UserIdentity{ID: uuid.NewString(), TenantID: tenantID, ExternalUserID: "alice"}

	repo.On("GetByExternalID", ctx, tenantID, "alice").Return(user, nil)
	perms.On("GetByCode", ctx, tenantID, "a.read").Return(&permission.Definition{
		ID: uuid.NewString(), TenantID: uuid.NewString(), Code: "a.read",
	}, nil)

	_, err := service.AssignDirectPermissions(ctx, tenantID, "alice", []string{"a.read"})
	assert.ErrorIs(t, err, ErrCrossTenantReference)
	repo.AssertNotCalled(t, "AddDirectPermissions", mock.Anything, mock.Anything, mock.Anything)
}

// TestPurpose: Validates short passwords are rejected before the identity is
// even resolved.
// Scope: Unit Test
// Test Case ID: USR-06
func TestIdentity_Service_SetPassword_Weak(t *testing.T) {
	repo := new(mockRepo)
	service := newTestService(repo, nil, nil, noopAudit{})

	err := service.SetPassword(context.Background(), uuid.NewString(), "alice", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
	repo.AssertNotCalled(t, "UpsertCredentials", mock.Anything, mock.Anything)
}

// TestPurpose: Validates successful authentication returns the identity and
// resets an accumulated failure counter.
// Scope: Unit Test
// Test Case ID: USR-07
func TestIdentity_Service_Authenticate(t *testing.T) {
	repo := new(mockRepo)
	service := newTestService(repo, nil, nil, noopAudit{})
	ctx := context.Background()
	tenantID := uuid.NewString()
	user := &UserIdentity{ID: uuid.NewString(), TenantID: tenantID, ExternalUserID: "alice"}

	repo.On("GetByExternalID", ctx, tenantID, "alice").Return(user, nil)
	repo.On("GetCredentials", ctx, user.ID).Return(&Credentials{
		UserID:              user.ID,
		PasswordHash:        "hashed:correct horse",
		FailedLoginAttempts: 2,
	}, nil)
	repo.On("UpdateLockout", ctx, user.ID, 0, (*time.Time)(nil)).Return(nil)

	got, err := service.Authenticate(ctx, tenantID, "alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	repo.AssertCalled(t, "UpdateLockout", ctx, user.ID, 0, (*time.Time)(nil))
}

// TestPurpose: Validates the lockout mechanic; reaching the retry limit
// locks the account and emits a lockout audit event.
// Scope: Unit Test
// Security: Brute-force protection on password credentials.
// Expected: Third failure sets locked_until and logs user_locked.
// Test Case ID: USR-08
func TestIdentity_Service_Authenticate_Lockout(t *testing.T) {
	repo := new(mockRepo)
	auditLog := &recordingAudit{}
	service := newTestService(repo, nil, nil, auditLog)
	ctx := context.Background()
	tenantID := uuid.NewString()
	user := &UserIdentity{ID: uuid.NewString(), TenantID: tenantID, ExternalUserID: "alice"}

	repo.On("GetByExternalID", ctx, tenantID, "alice").Return(user, nil)
	repo.On("GetCredentials", ctx, user.ID).Return(&Credentials{
		UserID:              user.ID,
		PasswordHash:        "hashed:correct horse",
		FailedLoginAttempts: 2,
	}, nil)
	repo.On("UpdateLockout", ctx, user.ID, 3, mock.MatchedBy(func(until *time.Time) bool {
		return until != nil && until.After(time.Now())
	})).Return(nil)

	_, err := service.Authenticate(ctx, tenantID, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	var locked bool
	for _, e := range auditLog.events {
		if e.Type == audit.TypeUserLocked {
			locked = true
		}
	}
	assert.True(t, locked, "expected a user_locked audit event")
}

// TestPurpose: Validates a locked account rejects even the correct password
// until the lock expires.
// Scope: Unit Test
// Test Case ID: USR-09
func TestIdentity_Service_Authenticate_Locked(t *testing.T) {
	repo := new(mockRepo)
	service := newTestService(repo, nil, nil, noopAudit{})
	ctx := context.Background()
	tenantID := uuid.NewString()
	user := &UserIdentity{ID: uuid.NewString(), TenantID: tenantID, ExternalUserID: "alice"}
	until := time.Now().Add(10 * time.Minute)

	repo.On("GetByExternalID", ctx, tenantID, "alice").Return(user, nil)
	repo.On("GetCredentials", ctx, user.ID).Return(&Credentials{
		UserID:              user.ID,
		PasswordHash:        "hashed:correct horse",
		FailedLoginAttempts: 3,
		LockedUntil:         &until,
	}, nil)

	_, err := service.Authenticate(ctx, tenantID, "alice", "correct horse")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

// TestPurpose: Validates unknown users and missing credentials both surface
// the generic invalid-credentials error.
// Scope: Unit Test
// Security: Login failures must not reveal whether the account exists.
// Test Case ID: USR-10
func TestIdentity_Service_Authenticate_Indistinguishable(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.NewString()

	t.Run("unknown user", func(t *testing.T) {
		repo := new(mockRepo)
		service := newTestService(repo, nil, nil, noopAudit{})
		repo.On("GetByExternalID", ctx, tenantID, "ghost").Return(nil, ErrUserNotFound)

		_, err := service.Authenticate(ctx, tenantID, "ghost", "pw")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("no credentials", func(t *testing.T) {
		repo := new(mockRepo)
		service := newTestService(repo, nil, nil, noopAudit{})
		user := &UserIdentity{ID: uuid.NewString(), TenantID: tenantID, ExternalUserID: "alice"}
		repo.On("GetByExternalID", ctx, tenantID, "alice").Return(user, nil)
		repo.On("GetCredentials", ctx, user.ID).Return(nil, ErrNoCredentials)

		_, err := service.Authenticate(ctx, tenantID, "alice", "pw")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
