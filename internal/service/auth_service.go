package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kitchensink/internal/auth"
	apperrors "kitchensink/internal/errors"
	"kitchensink/internal/metrics"
	"kitchensink/internal/model"
	"kitchensink/internal/repository"
)

// timingPassword is hashed once so unknown-user logins pay for a full verify.
const timingPassword = "kitchensink-timing-equalizer"

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	UserID       uuid.UUID
	Username     string
	Roles        []string
}

// AuthOptions selects the optional token policies.
type AuthOptions struct {
	// RotateRefreshTokens replaces the refresh token on every exchange.
	RotateRefreshTokens bool
	// LogoutRevokesAll revokes every token of an authenticated caller when
	// logout carries no refresh token.
	LogoutRevokesAll bool
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string, caller auth.CallerIdentity) error
}

type authService struct {
	users   repository.UserRepository
	hasher  auth.PasswordHasher
	codec   auth.AccessTokenCodec
	refresh auth.RefreshTokenService
	metrics *metrics.AuthMetrics
	opts    AuthOptions
	logger  *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	hasher auth.PasswordHasher,
	codec auth.AccessTokenCodec,
	refresh auth.RefreshTokenService,
	m *metrics.AuthMetrics,
	opts AuthOptions,
	logger *zap.Logger,
) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{
		users:   users,
		hasher:  hasher,
		codec:   codec,
		refresh: refresh,
		metrics: m,
		opts:    opts,
		logger:  logger,
	}
}

// Register creates a ROLE_USER account with a hashed password.
func (s *authService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	user, err := createUser(ctx, s.users, s.hasher, username, email, password, model.NewRoleSet(model.RoleUser))
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("username", user.Username), zap.String("user_id", user.ID.String()))
	return user, nil
}

// Login verifies credentials and issues an access and refresh token.
func (s *authService) Login(ctx context.Context, username, password string) (pair *TokenPair, err error) {
	defer func() { s.metrics.ObserveLogin(err) }()

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		// Same cost as a wrong password.
		s.hasher.Verify(password, s.timingHash())
		return nil, apperrors.ErrBadCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apperrors.ErrBadCredentials
	}

	accessToken, err := s.codec.Issue(user.Username, user.Roles)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.refresh.Issue(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	s.logger.Info("user logged in", zap.String("username", user.Username))
	return newTokenPair(user, accessToken, refreshToken.Token), nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (pair *TokenPair, err error) {
	defer func() { s.metrics.ObserveRefresh(err) }()

	record, err := s.refresh.Verify(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrRefreshTokenNotFound) || errors.Is(err, auth.ErrRefreshTokenExpired) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("verify refresh token: %w", err)
	}

	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	accessToken, err := s.codec.Issue(user.Username, user.Roles)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	next := record.Token
	if s.opts.RotateRefreshTokens {
		rotated, err := s.refresh.Issue(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("rotate refresh token: %w", err)
		}
		next = rotated.Token
	}

	return newTokenPair(user, accessToken, next), nil
}

// Logout revokes refreshToken. Without a token it does nothing unless
// LogoutRevokesAll is set and the caller is authenticated.
func (s *authService) Logout(ctx context.Context, refreshToken string, caller auth.CallerIdentity) error {
	s.metrics.ObserveLogout()

	if refreshToken != "" {
		return s.refresh.Revoke(ctx, refreshToken)
	}
	if !s.opts.LogoutRevokesAll || !caller.Authenticated {
		return nil
	}

	user, err := s.users.FindByUsername(ctx, caller.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	return s.refresh.RevokeAllForUser(ctx, user.ID)
}

func (s *authService) timingHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(timingPassword)
		if err != nil {
			s.logger.Warn("hash timing password", zap.Error(err))
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func newTokenPair(user *model.User, accessToken, refreshToken string) *TokenPair {
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UserID:       user.ID,
		Username:     user.Username,
		Roles:        user.Roles.Names(),
	}
}

// createUser checks uniqueness, hashes the password and stores the user.
func createUser(
	ctx context.Context,
	users repository.UserRepository,
	hasher auth.PasswordHasher,
	username, email, password string,
	roles model.RoleSet,
) (*model.User, error) {
	if err := checkUserUnique(ctx, users, username, email, uuid.Nil); err != nil {
		return nil, err
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
	}
	if err := users.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Lost a race with a concurrent registration.
			if uerr := checkUserUnique(ctx, users, username, email, uuid.Nil); uerr != nil {
				return nil, uerr
			}
			return nil, apperrors.ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// checkUserUnique fails when a user other than self holds username or email.
// A nil self checks against every user.
func checkUserUnique(ctx context.Context, users repository.UserRepository, username, email string, self uuid.UUID) error {
	var taken bool
	var err error
	if self == uuid.Nil {
		taken, err = users.ExistsByUsername(ctx, username)
	} else {
		taken, err = users.ExistsByUsernameAndIDNot(ctx, username, self)
	}
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if taken {
		return apperrors.ErrUsernameTaken
	}

	if self == uuid.Nil {
		taken, err = users.ExistsByEmail(ctx, email)
	} else {
		taken, err = users.ExistsByEmailAndIDNot(ctx, email, self)
	}
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return apperrors.ErrEmailTaken
	}
	return nil
}
