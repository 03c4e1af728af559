package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kitchensink/internal/auth"
	"kitchensink/internal/cache"
	apperrors "kitchensink/internal/errors"
	"kitchensink/internal/model"
	"kitchensink/internal/repository"
)

const defaultUserCacheTTL = 5 * time.Minute

// UserUpdate carries the fields an admin may change on a user.
// Empty Email, Password or Roles keep the current value.
type UserUpdate struct {
	Username string
	Email    string
	Password string
	Roles    []model.Role
}

// UserService exposes the administrative user operations.
type UserService interface {
	CreateAdmin(ctx context.Context, username, email, password string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// EnsureNotSelf fails with ErrSelfEditForbidden when actor is the user id.
	EnsureNotSelf(ctx context.Context, actor string, id uuid.UUID) error
	UpdateUser(ctx context.Context, actor string, id uuid.UUID, in UserUpdate) (*model.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	repo     repository.UserRepository
	contacts repository.ContactRepository
	hasher   auth.PasswordHasher
	refresh  auth.RefreshTokenService
	cache    *cache.Client
	ttl      time.Duration
	logger   *zap.Logger
}

// NewUserService builds a UserService. Lookups by id are cached in Redis and
// invalidated on update and delete; a nil cache disables caching. contacts
// follow their owner through renames and deletion.
func NewUserService(
	repo repository.UserRepository,
	contacts repository.ContactRepository,
	hasher auth.PasswordHasher,
	refresh auth.RefreshTokenService,
	cache *cache.Client,
	cacheTTL time.Duration,
	logger *zap.Logger,
) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultUserCacheTTL
	}
	return &userService{
		repo:     repo,
		contacts: contacts,
		hasher:   hasher,
		refresh:  refresh,
		cache:    cache,
		ttl:      cacheTTL,
		logger:   logger,
	}
}

func (s *userService) cacheKey(id uuid.UUID) string {
	return "user:" + id.String()
}

func (s *userService) CreateAdmin(ctx context.Context, username, email, password string) (*model.User, error) {
	user, err := createUser(ctx, s.repo, s.hasher, username, email, password, model.NewRoleSet(model.RoleUser, model.RoleAdmin))
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin user created", zap.String("username", user.Username), zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetJSON(ctx, s.cacheKey(id), user, s.ttl)
	return user, nil
}

func (s *userService) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.UserNotFound("username", username)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *userService) EnsureNotSelf(ctx context.Context, actor string, id uuid.UUID) error {
	current, err := s.repo.FindByUsername(ctx, actor)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find acting user: %w", err)
	}
	if current.ID == id {
		return apperrors.ErrSelfEditForbidden
	}
	return nil
}

func (s *userService) UpdateUser(ctx context.Context, actor string, id uuid.UUID, in UserUpdate) (*model.User, error) {
	if err := s.EnsureNotSelf(ctx, actor, id); err != nil {
		return nil, err
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	email := in.Email
	if email == "" {
		email = user.Email
	}
	if err := checkUserUnique(ctx, s.repo, in.Username, email, id); err != nil {
		return nil, err
	}

	renamed := user.Username != in.Username
	user.Username = in.Username
	user.Email = email
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	if roles := model.NewRoleSet(in.Roles...); len(roles) > 0 {
		user.Roles = roles
	}

	if err := s.repo.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			if uerr := checkUserUnique(ctx, s.repo, in.Username, email, id); uerr != nil {
				return nil, uerr
			}
			return nil, apperrors.ErrUsernameTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))

	if renamed {
		if err := s.contacts.RenameOwner(ctx, id, user.Username); err != nil {
			return nil, fmt.Errorf("rename contact owner: %w", err)
		}
	}

	s.logger.Info("user updated", zap.String("user_id", id.String()), zap.String("by", actor))
	return user, nil
}

// DeleteUser removes the user together with their refresh tokens and contacts.
func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.refresh.RevokeAllForUser(ctx, user.ID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, user); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))

	// Contacts are keyed on the user id, so a later account with the same
	// username never sees them even if this step fails.
	removed, err := s.contacts.DeleteByOwnerID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("delete user contacts: %w", err)
	}

	s.logger.Info("user deleted", zap.String("user_id", id.String()), zap.Int64("contacts_removed", removed))
	return nil
}

func (s *userService) load(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.UserNotFound("id", id)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
