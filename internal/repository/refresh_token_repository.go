package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kitchensink/internal/model"
)

// TokenStore persists refresh-token records keyed by their opaque token string.
type TokenStore interface {
	FindByToken(ctx context.Context, token string) (*model.RefreshToken, error)
	// Save stores the record and atomically drops any other record held by the same user.
	Save(ctx context.Context, token *model.RefreshToken) error
	Delete(ctx context.Context, token *model.RefreshToken) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	// DeleteExpired purges records that expired at or before the given instant.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a SQL token store. The unique index on
// user_id turns Save into an upsert, so a user never holds two rows.
func NewRefreshTokenRepository(db *gorm.DB) TokenStore {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	var rt model.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&rt).Error; err != nil {
		return nil, translate(err)
	}
	return &rt, nil
}

func (r *refreshTokenRepository) Save(ctx context.Context, token *model.RefreshToken) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"id", "token", "expires_at", "created_at"}),
	}).Create(token).Error
	return translate(err)
}

func (r *refreshTokenRepository) Delete(ctx context.Context, token *model.RefreshToken) error {
	return translate(r.db.WithContext(ctx).Where("token = ?", token.Token).Delete(&model.RefreshToken{}).Error)
}

func (r *refreshTokenRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.RefreshToken{})
	return res.RowsAffected, translate(res.Error)
}

func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", before).Delete(&model.RefreshToken{})
	return res.RowsAffected, translate(res.Error)
}
