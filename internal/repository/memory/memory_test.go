package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitchensink/internal/model"
	"kitchensink/internal/repository"
)

func TestUserRepository_Uniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	alice := &model.User{Username: "alice001", Email: "a@ex.com", PasswordHash: "h", Roles: model.RoleSet{model.RoleUser}}
	require.NoError(t, repo.Save(ctx, alice))
	assert.NotEqual(t, uuid.Nil, alice.ID)
	assert.False(t, alice.CreatedAt.IsZero())

	tests := []struct {
		name string
		user *model.User
	}{
		{"same username", &model.User{Username: "alice001", Email: "b@ex.com"}},
		{"same email", &model.User{Username: "bob00001", Email: "a@ex.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, repo.Save(ctx, tt.user), repository.ErrDuplicateKey)
		})
	}

	exists, err := repo.ExistsByUsernameAndIDNot(ctx, "alice001", alice.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsByEmail(ctx, "a@ex.com")
	require.NoError(t, err)
	assert.True(t, exists)

	alice.Email = "new@ex.com"
	require.NoError(t, repo.Save(ctx, alice))
	got, err := repo.FindByUsername(ctx, "alice001")
	require.NoError(t, err)
	assert.Equal(t, "new@ex.com", got.Email)

	require.NoError(t, repo.DeleteByID(ctx, alice.ID))
	_, err = repo.FindByID(ctx, alice.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestContactRepository_Owner(t *testing.T) {
	ctx := context.Background()
	repo := NewContactRepository()
	alice, bob := uuid.New(), uuid.New()

	require.NoError(t, repo.Save(ctx, &model.Contact{Name: "Jane", Email: "j@ex.com", PhoneNumber: "0123456789", OwnerID: alice, CreatedBy: "alice001"}))
	require.NoError(t, repo.Save(ctx, &model.Contact{Name: "Jill", Email: "l@ex.com", PhoneNumber: "0123456781", OwnerID: alice, CreatedBy: "alice001"}))
	require.NoError(t, repo.Save(ctx, &model.Contact{Name: "John", Email: "k@ex.com", PhoneNumber: "0123456780", OwnerID: bob, CreatedBy: "bob00001"}))
	assert.ErrorIs(t, repo.Save(ctx, &model.Contact{Name: "Dup", Email: "x@ex.com", PhoneNumber: "0123456789"}), repository.ErrDuplicateKey)

	mine, err := repo.FindByOwnerID(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "Jane", mine[0].Name)

	require.NoError(t, repo.RenameOwner(ctx, alice, "alice002"))
	mine, err = repo.FindByOwnerID(ctx, alice)
	require.NoError(t, err)
	for _, c := range mine {
		assert.Equal(t, "alice002", c.CreatedBy)
	}

	n, err := repo.DeleteByOwnerID(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "bob00001", all[0].CreatedBy)
}

func TestTokenStore_SingleTokenPerUser(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore()
	userID := uuid.New()
	exp := time.Now().Add(time.Hour)

	first := &model.RefreshToken{Token: "t1", UserID: userID, ExpiresAt: exp}
	second := &model.RefreshToken{Token: "t2", UserID: userID, ExpiresAt: exp}
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	_, err := store.FindByToken(ctx, "t1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	got, err := store.FindByToken(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)

	n, err := store.DeleteByUserID(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = store.DeleteByUserID(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestTokenStore_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore()
	userID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Save(ctx, &model.RefreshToken{Token: uuid.NewString(), UserID: userID, ExpiresAt: time.Now().Add(time.Hour)})
		}()
	}
	wg.Wait()

	assert.Len(t, store.byToken, 1)
	assert.Len(t, store.byUser, 1)
}

func TestTokenStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore()
	now := time.Now()

	require.NoError(t, store.Save(ctx, &model.RefreshToken{Token: "old", UserID: uuid.New(), ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.Save(ctx, &model.RefreshToken{Token: "edge", UserID: uuid.New(), ExpiresAt: now}))
	require.NoError(t, store.Save(ctx, &model.RefreshToken{Token: "live", UserID: uuid.New(), ExpiresAt: now.Add(time.Minute)}))

	n, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = store.FindByToken(ctx, "live")
	assert.NoError(t, err)
}
