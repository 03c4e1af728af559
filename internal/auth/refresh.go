package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "kitchensink/internal/errors"
	"kitchensink/internal/model"
	"kitchensink/internal/repository"
)

var (
	// ErrRefreshTokenNotFound is returned when no record exists for a refresh token.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenExpired is returned when a refresh token is past its expiry.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// RefreshTokenService issues and checks refresh tokens. A user holds at most
// one refresh token; issuing a new one replaces the previous one.
type RefreshTokenService interface {
	Issue(ctx context.Context, userID uuid.UUID) (*model.RefreshToken, error)
	Verify(ctx context.Context, token string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

type refreshTokenService struct {
	tokens   repository.TokenStore
	users    repository.UserRepository
	lifetime time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewRefreshTokenService creates a refresh token service backed by tokens.
func NewRefreshTokenService(tokens repository.TokenStore, users repository.UserRepository, lifetime time.Duration, logger *zap.Logger) RefreshTokenService {
	return NewRefreshTokenServiceWithClock(tokens, users, lifetime, logger, time.Now)
}

// NewRefreshTokenServiceWithClock is NewRefreshTokenService with an explicit time source.
func NewRefreshTokenServiceWithClock(tokens repository.TokenStore, users repository.UserRepository, lifetime time.Duration, logger *zap.Logger, now func() time.Time) RefreshTokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &refreshTokenService{
		tokens:   tokens,
		users:    users,
		lifetime: lifetime,
		now:      now,
		logger:   logger,
	}
}

func (s *refreshTokenService) Issue(ctx context.Context, userID uuid.UUID) (*model.RefreshToken, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.UserNotFound("id", userID)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	token, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now()
	record := &model.RefreshToken{
		Token:     token.String(),
		UserID:    userID,
		ExpiresAt: now.Add(s.lifetime),
		CreatedAt: now,
	}
	// Save replaces whatever token the user held before.
	if err := s.tokens.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	s.logger.Info("refresh token issued", zap.String("user_id", userID.String()), zap.Time("expires_at", record.ExpiresAt))
	return record, nil
}

func (s *refreshTokenService) Verify(ctx context.Context, token string) (*model.RefreshToken, error) {
	record, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	if record.Expired(s.now()) {
		if err := s.tokens.Delete(ctx, record); err != nil {
			return nil, fmt.Errorf("delete expired refresh token: %w", err)
		}
		s.logger.Info("expired refresh token removed", zap.String("user_id", record.UserID.String()))
		return nil, ErrRefreshTokenExpired
	}
	return record, nil
}

func (s *refreshTokenService) Revoke(ctx context.Context, token string) error {
	record, err := s.tokens.FindByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find refresh token: %w", err)
	}
	if err := s.tokens.Delete(ctx, record); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	s.logger.Info("refresh token revoked", zap.String("user_id", record.UserID.String()))
	return nil
}

func (s *refreshTokenService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	n, err := s.tokens.DeleteByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete refresh tokens for user: %w", err)
	}
	if n > 0 {
		s.logger.Info("refresh tokens revoked for user", zap.String("user_id", userID.String()), zap.Int64("count", n))
	}
	return nil
}
