package vault

import (
	"context"
	"testing"

	"github.com/fxoffice/backend/internal/domain/identity"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, tenantID uuid.UUID) *vault.Repository {
	t.Helper()
	r, err := vault.NewRepository(tenantID, "till-1", "Front till", vault.RepositoryTypeCash)
	require.NoError(t, err)
	r.ClearDomainEvents()
	return r
}

func TestRepositoryService_Create(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("creates with normalized key", func(t *testing.T) {
		repos := new(MockRepositoryRepository)
		pub := &recordingPublisher{}
		svc := NewRepositoryService(repos, nil, nil, stubSessions{})
		svc.SetEventPublisher(pub)

		repos.On("ExistsByKey", ctx, tenantID, "TILL-1").Return(false, nil)
		repos.On("Save", ctx, mock.AnythingOfType("*vault.Repository")).Return(nil)

		creator := uuid.New()
		resp, err := svc.Create(ctx, tenantID, CreateRepositoryRequest{
			Key: " till-1 ", Name: "Front till", Type: "CASH", Description: "by the door", CreatedBy: &creator,
		})
		require.NoError(t, err)
		assert.Equal(t, "TILL-1", resp.Key)
		assert.Equal(t, "ACTIVE", resp.Status)
		assert.Equal(t, "by the door", resp.Description)
		assert.Equal(t, []string{vault.EventTypeRepositoryCreated}, pub.types())
	})

	t.Run("duplicate key", func(t *testing.T) {
		repos := new(MockRepositoryRepository)
		svc := NewRepositoryService(repos, nil, nil, stubSessions{})
		repos.On("ExistsByKey", ctx, tenantID, "TILL-1").Return(true, nil)

		_, err := svc.Create(ctx, tenantID, CreateRepositoryRequest{Key: "till-1", Name: "x", Type: "CASH"})
		assert.Equal(t, "ALREADY_EXISTS", domainCode(err))
		repos.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestRepositoryService_OpenSessionBlocksDeactivateAndDelete(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repo := newTestRepository(t, tenantID)

	repos := new(MockRepositoryRepository)
	repos.On("FindByIDForTenant", ctx, tenantID, repo.ID).Return(repo, nil)
	svc := NewRepositoryService(repos, nil, nil, stubSessions{active: true})

	_, err := svc.Deactivate(ctx, tenantID, repo.ID)
	assert.Equal(t, "INVALID_STATE", domainCode(err))

	err = svc.Delete(ctx, tenantID, repo.ID)
	assert.Equal(t, "INVALID_STATE", domainCode(err))

	assert.True(t, repo.IsActive())
	repos.AssertNotCalled(t, "DeleteForTenant", mock.Anything, mock.Anything, mock.Anything)

	t.Run("idle repository can be deactivated", func(t *testing.T) {
		repos.On("Save", ctx, repo).Return(nil)
		idle := NewRepositoryService(repos, nil, nil, stubSessions{})
		resp, err := idle.Deactivate(ctx, tenantID, repo.ID)
		require.NoError(t, err)
		assert.Equal(t, "INACTIVE", resp.Status)
	})
}

func TestRepositoryService_AuthorizedUsers(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	userID := uuid.New()

	t.Run("non member cannot be authorized", func(t *testing.T) {
		repo := newTestRepository(t, tenantID)
		repos := new(MockRepositoryRepository)
		members := new(MockMembershipRepository)
		repos.On("FindByIDForTenant", ctx, tenantID, repo.ID).Return(repo, nil)
		members.On("Find", ctx, tenantID, userID).Return(nil, shared.ErrNotFound)

		svc := NewRepositoryService(repos, members, nil, stubSessions{})
		_, err := svc.AuthorizeUser(ctx, tenantID, repo.ID, userID)
		assert.Equal(t, "INVALID_INPUT", domainCode(err))
	})

	t.Run("authorize list and revoke", func(t *testing.T) {
		repo := newTestRepository(t, tenantID)
		repos := new(MockRepositoryRepository)
		members := new(MockMembershipRepository)
		users := new(MockUserRepository)
		pub := &recordingPublisher{}

		repos.On("FindByIDForTenant", ctx, tenantID, repo.ID).Return(repo, nil)
		repos.On("Save", ctx, repo).Return(nil)
		members.On("Find", ctx, tenantID, userID).Return(&identity.Membership{OrganizationID: tenantID, UserID: userID, Role: identity.RoleMember}, nil)

		svc := NewRepositoryService(repos, members, users, stubSessions{})
		svc.SetEventPublisher(pub)

		resp, err := svc.AuthorizeUser(ctx, tenantID, repo.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{userID}, resp.AuthorizedUsers)

		_, err = svc.AuthorizeUser(ctx, tenantID, repo.ID, userID)
		assert.Equal(t, "ALREADY_AUTHORIZED", domainCode(err))

		user := identity.User{ExternalID: "user_1", Email: "t@acme.test", FirstName: "Tess"}
		user.ID = userID
		users.On("FindByIDs", ctx, []uuid.UUID{userID}).Return([]identity.User{user}, nil)
		list, err := svc.ListAuthorizedUsers(ctx, tenantID, repo.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "t@acme.test", list[0].Email)

		ok, err := svc.IsAuthorized(ctx, tenantID, repo.ID, userID, false)
		require.NoError(t, err)
		assert.True(t, ok)

		resp, err = svc.RevokeUser(ctx, tenantID, repo.ID, userID)
		require.NoError(t, err)
		assert.Empty(t, resp.AuthorizedUsers)

		ok, err = svc.IsAuthorized(ctx, tenantID, repo.ID, userID, false)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = svc.IsAuthorized(ctx, tenantID, repo.ID, userID, true)
		require.NoError(t, err)
		assert.True(t, ok, "admins are always authorized")

		assert.Equal(t, []string{vault.EventTypeRepositoryAccessChanged, vault.EventTypeRepositoryAccessChanged}, pub.types())
	})
}

func TestRepositoryService_List(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repos := new(MockRepositoryRepository)
	svc := NewRepositoryService(repos, nil, nil, stubSessions{})

	match := mock.MatchedBy(func(f shared.Filter) bool {
		return f.Page == 1 && f.PageSize == 20 && f.OrderBy == "key" && f.Filters["type"] == "CRYPTO"
	})
	repos.On("FindAllForTenant", ctx, tenantID, match).Return([]vault.Repository{*newTestRepository(t, tenantID)}, nil)
	repos.On("CountForTenant", ctx, tenantID, match).Return(int64(1), nil)

	items, total, err := svc.List(ctx, tenantID, RepositoryListFilter{Type: "CRYPTO"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(1), total)
}
