package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"kitchensink/internal/model"
)

// UserRepository persists user accounts and enforces username and email uniqueness.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsernameAndIDNot(ctx context.Context, username string, id uuid.UUID) (bool, error)
	ExistsByEmailAndIDNot(ctx context.Context, email string, id uuid.UUID) (bool, error)
	// Save inserts the user when it has no id yet, otherwise updates it.
	Save(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, user *model.User) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, r.db.Where("username = ?", username))
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, r.db.Where("email = ?", email))
}

func (r *userRepository) ExistsByUsernameAndIDNot(ctx context.Context, username string, id uuid.UUID) (bool, error) {
	return r.exists(ctx, r.db.Where("username = ? AND id <> ?", username, id))
}

func (r *userRepository) ExistsByEmailAndIDNot(ctx context.Context, email string, id uuid.UUID) (bool, error) {
	return r.exists(ctx, r.db.Where("email = ? AND id <> ?", email, id))
}

func (r *userRepository) exists(ctx context.Context, scope *gorm.DB) (bool, error) {
	var count int64
	if err := scope.WithContext(ctx).Model(&model.User{}).Count(&count).Error; err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

func (r *userRepository) Save(ctx context.Context, user *model.User) error {
	db := r.db.WithContext(ctx)
	if user.ID == uuid.Nil {
		return translate(db.Create(user).Error)
	}
	return translate(db.Save(user).Error)
}

func (r *userRepository) Delete(ctx context.Context, user *model.User) error {
	return r.DeleteByID(ctx, user.ID)
}

func (r *userRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return translate(r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{}).Error)
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}
