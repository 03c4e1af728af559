package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"kitchensink/internal/model"
)

// ContactRepository defines contact persistence operations.
type ContactRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Contact, error)
	FindAll(ctx context.Context) ([]model.Contact, error)
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]model.Contact, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error)
	ExistsByEmailAndIDNot(ctx context.Context, email string, id uuid.UUID) (bool, error)
	ExistsByPhoneNumberAndIDNot(ctx context.Context, phone string, id uuid.UUID) (bool, error)
	Save(ctx context.Context, contact *model.Contact) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	// DeleteByOwnerID removes every contact of ownerID and returns how many were removed.
	DeleteByOwnerID(ctx context.Context, ownerID uuid.UUID) (int64, error)
	// RenameOwner sets CreatedBy on every contact of ownerID.
	RenameOwner(ctx context.Context, ownerID uuid.UUID, username string) error
}

type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new contact repository.
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Contact, error) {
	var contact model.Contact
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&contact).Error; err != nil {
		return nil, translate(err)
	}
	return &contact, nil
}

func (r *contactRepository) FindAll(ctx context.Context) ([]model.Contact, error) {
	var contacts []model.Contact
	if err := r.db.WithContext(ctx).Order("created_at").Find(&contacts).Error; err != nil {
		return nil, translate(err)
	}
	return contacts, nil
}

func (r *contactRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]model.Contact, error) {
	var contacts []model.Contact
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at").Find(&contacts).Error; err != nil {
		return nil, translate(err)
	}
	return contacts, nil
}

func (r *contactRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, r.db.Where("email = ?", email))
}

func (r *contactRepository) ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, r.db.Where("phone_number = ?", phone))
}

func (r *contactRepository) ExistsByEmailAndIDNot(ctx context.Context, email string, id uuid.UUID) (bool, error) {
	return r.exists(ctx, r.db.Where("email = ? AND id <> ?", email, id))
}

func (r *contactRepository) ExistsByPhoneNumberAndIDNot(ctx context.Context, phone string, id uuid.UUID) (bool, error) {
	return r.exists(ctx, r.db.Where("phone_number = ? AND id <> ?", phone, id))
}

func (r *contactRepository) exists(ctx context.Context, scope *gorm.DB) (bool, error) {
	var count int64
	if err := scope.WithContext(ctx).Model(&model.Contact{}).Count(&count).Error; err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

func (r *contactRepository) Save(ctx context.Context, contact *model.Contact) error {
	db := r.db.WithContext(ctx)
	if contact.ID == uuid.Nil {
		return translate(db.Create(contact).Error)
	}
	return translate(db.Save(contact).Error)
}

func (r *contactRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return translate(r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Contact{}).Error)
}

func (r *contactRepository) DeleteByOwnerID(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&model.Contact{})
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *contactRepository) RenameOwner(ctx context.Context, ownerID uuid.UUID, username string) error {
	return translate(r.db.WithContext(ctx).Model(&model.Contact{}).
		Where("owner_id = ?", ownerID).
		Update("created_by", username).Error)
}
