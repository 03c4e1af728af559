package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kitchensink/internal/auth"
	"kitchensink/internal/cache"
	apperrors "kitchensink/internal/errors"
	"kitchensink/internal/model"
	"kitchensink/internal/repository"
	"kitchensink/internal/repository/memory"
)

func newTestCache(t *testing.T) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewFromClient(client), mr
}

type userFixture struct {
	users    *memory.UserRepository
	contacts *memory.ContactRepository
	tokens   *memory.TokenStore
	refresh  auth.RefreshTokenService
	service  UserService
	admin    *model.User
	alice    *model.User
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	ctx := context.Background()
	f := &userFixture{
		users:    memory.NewUserRepository(),
		contacts: memory.NewContactRepository(),
		tokens:   memory.NewTokenStore(),
	}
	f.refresh = auth.NewRefreshTokenService(f.tokens, f.users, time.Hour, nil)
	c, _ := newTestCache(t)
	f.service = NewUserService(f.users, f.contacts, newTestHasher(t), f.refresh, c, time.Minute, nil)

	var err error
	f.admin, err = f.service.CreateAdmin(ctx, "admin001", "admin@ex.com", "Adm1nPass!")
	require.NoError(t, err)
	f.alice, err = createUser(ctx, f.users, newTestHasher(t), "alice001", "a@ex.com", "Passw0rd!", model.NewRoleSet(model.RoleUser))
	require.NoError(t, err)
	return f
}

func TestUserService_CreateAdmin(t *testing.T) {
	f := newUserFixture(t)

	assert.Equal(t, model.RoleSet{model.RoleUser, model.RoleAdmin}, f.admin.Roles)
	assert.True(t, f.admin.IsAdmin())

	_, err := f.service.CreateAdmin(context.Background(), "admin001", "other@ex.com", "Adm1nPass!")
	assert.ErrorIs(t, err, apperrors.ErrUsernameTaken)
}

func TestUserService_GetUser(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	user, err := f.service.GetUser(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice001", user.Username)

	missing := uuid.New()
	_, err = f.service.GetUser(ctx, missing)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	assert.EqualError(t, err, "User not found with id: '"+missing.String()+"'")

	_, err = f.service.GetUserByUsername(ctx, "nobody00")
	assert.EqualError(t, err, "User not found with username: 'nobody00'")
}

func TestUserService_GetUserIsCached(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByID", mock.Anything, id).
		Return(&model.User{ID: id, Username: "alice001", Roles: model.RoleSet{model.RoleUser}}, nil).Once()

	c, mr := newTestCache(t)
	service := NewUserService(mockRepo, new(MockContactRepository), newTestHasher(t), new(MockRefreshTokenService), c, time.Minute, nil)

	for i := 0; i < 3; i++ {
		user, err := service.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "alice001", user.Username)
	}
	assert.True(t, mr.Exists("user:"+id.String()))
	mockRepo.AssertExpectations(t)
}

func TestUserService_GetUserWithoutCache(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, Username: "alice001"}, nil).Twice()

	service := NewUserService(mockRepo, new(MockContactRepository), newTestHasher(t), new(MockRefreshTokenService), nil, 0, nil)
	for i := 0; i < 2; i++ {
		_, err := service.GetUser(ctx, id)
		require.NoError(t, err)
	}
	mockRepo.AssertExpectations(t)
}

func TestUserService_EnsureNotSelf(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.service.EnsureNotSelf(ctx, "admin001", f.admin.ID), apperrors.ErrSelfEditForbidden)
	assert.NoError(t, f.service.EnsureNotSelf(ctx, "admin001", f.alice.ID))
	assert.NoError(t, f.service.EnsureNotSelf(ctx, "ghost000", f.alice.ID))
}

func TestUserService_UpdateUser(t *testing.T) {
	tests := []struct {
		name          string
		actor         string
		target        func(*userFixture) uuid.UUID
		update        UserUpdate
		expectedError error
	}{
		{
			name:          "admin cannot edit themselves",
			actor:         "admin001",
			target:        func(f *userFixture) uuid.UUID { return f.admin.ID },
			update:        UserUpdate{Username: "admin002", Email: "admin@ex.com"},
			expectedError: apperrors.ErrSelfEditForbidden,
		},
		{
			name:          "unknown user",
			actor:         "admin001",
			target:        func(*userFixture) uuid.UUID { return uuid.New() },
			update:        UserUpdate{Username: "bob00001", Email: "b@ex.com"},
			expectedError: apperrors.ErrUserNotFound,
		},
		{
			name:          "username held by another user",
			actor:         "admin001",
			target:        func(f *userFixture) uuid.UUID { return f.alice.ID },
			update:        UserUpdate{Username: "admin001", Email: "a@ex.com"},
			expectedError: apperrors.ErrUsernameTaken,
		},
		{
			name:          "email held by another user",
			actor:         "admin001",
			target:        func(f *userFixture) uuid.UUID { return f.alice.ID },
			update:        UserUpdate{Username: "alice001", Email: "admin@ex.com"},
			expectedError: apperrors.ErrEmailTaken,
		},
		{
			name:   "keeping own username and email",
			actor:  "admin001",
			target: func(f *userFixture) uuid.UUID { return f.alice.ID },
			update: UserUpdate{Username: "alice001", Email: "a@ex.com"},
		},
		{
			name:   "rename with new password and roles",
			actor:  "admin001",
			target: func(f *userFixture) uuid.UUID { return f.alice.ID },
			update: UserUpdate{
				Username: "alice002",
				Email:    "alice@ex.com",
				Password: "N3wPassw0rd",
				Roles:    []model.Role{model.RoleUser, model.RoleAdmin},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserFixture(t)
			ctx := context.Background()
			id := tt.target(f)
			oldHash := f.alice.PasswordHash

			user, err := f.service.UpdateUser(ctx, tt.actor, id, tt.update)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.update.Username, user.Username)
			assert.Equal(t, tt.update.Email, user.Email)

			stored, err := f.users.FindByID(ctx, id)
			require.NoError(t, err)
			if tt.update.Password == "" {
				assert.Equal(t, oldHash, stored.PasswordHash)
				assert.Equal(t, model.RoleSet{model.RoleUser}, stored.Roles)
			} else {
				assert.NotEqual(t, oldHash, stored.PasswordHash)
				assert.True(t, newTestHasher(t).Verify(tt.update.Password, stored.PasswordHash))
				assert.Equal(t, model.RoleSet{model.RoleUser, model.RoleAdmin}, stored.Roles)
			}
		})
	}
}

func TestUserService_UpdateUserInvalidatesCache(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	_, err := f.service.GetUser(ctx, f.alice.ID)
	require.NoError(t, err)

	_, err = f.service.UpdateUser(ctx, "admin001", f.alice.ID, UserUpdate{Username: "alice002", Email: "a@ex.com"})
	require.NoError(t, err)

	user, err := f.service.GetUser(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice002", user.Username)
}

func TestUserService_UpdateUserRaceFallsBackToUsernameTaken(t *testing.T) {
	ctx := context.Background()
	admin := &model.User{ID: uuid.New(), Username: "admin001"}
	target := &model.User{ID: uuid.New(), Username: "alice001", Email: "a@ex.com", Roles: model.RoleSet{model.RoleUser}}

	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByUsername", mock.Anything, "admin001").Return(admin, nil)
	mockRepo.On("FindByID", mock.Anything, target.ID).Return(target, nil)
	mockRepo.On("ExistsByUsernameAndIDNot", mock.Anything, "alice002", target.ID).Return(false, nil)
	mockRepo.On("ExistsByEmailAndIDNot", mock.Anything, "a@ex.com", target.ID).Return(false, nil)
	mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*model.User")).Return(repository.ErrDuplicateKey)

	service := NewUserService(mockRepo, new(MockContactRepository), newTestHasher(t), new(MockRefreshTokenService), nil, 0, nil)
	user, err := service.UpdateUser(ctx, "admin001", target.ID, UserUpdate{Username: "alice002"})

	assert.ErrorIs(t, err, apperrors.ErrUsernameTaken)
	assert.Nil(t, user)
	mockRepo.AssertExpectations(t)
}

func TestUserService_RenameMovesContactOwnerName(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	require.NoError(t, f.contacts.Save(ctx, &model.Contact{
		Name: "Jane Doe", Email: "jane@ex.com", PhoneNumber: "+15551234567",
		OwnerID: f.alice.ID, CreatedBy: "alice001",
	}))

	_, err := f.service.UpdateUser(ctx, "admin001", f.alice.ID, UserUpdate{Username: "alice002"})
	require.NoError(t, err)

	owned, err := f.contacts.FindByOwnerID(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "alice002", owned[0].CreatedBy)
}

func TestUserService_DeleteUser(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	token, err := f.refresh.Issue(ctx, f.alice.ID)
	require.NoError(t, err)
	require.NoError(t, f.contacts.Save(ctx, &model.Contact{
		Name: "Jane Doe", Email: "jane@ex.com", PhoneNumber: "+15551234567",
		OwnerID: f.alice.ID, CreatedBy: "alice001",
	}))
	require.NoError(t, f.contacts.Save(ctx, &model.Contact{
		Name: "John Roe", Email: "john@ex.com", PhoneNumber: "+15557654321",
		OwnerID: f.admin.ID, CreatedBy: "admin001",
	}))

	require.NoError(t, f.service.DeleteUser(ctx, f.alice.ID))

	_, err = f.users.FindByID(ctx, f.alice.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.tokens.FindByToken(ctx, token.Token)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	left, err := f.contacts.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, f.admin.ID, left[0].OwnerID)

	err = f.service.DeleteUser(ctx, f.alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserService_ListUsers(t *testing.T) {
	f := newUserFixture(t)

	users, err := f.service.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
