package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "kitchensink/internal/errors"
	"kitchensink/internal/model"
	"kitchensink/internal/repository"
)

// ContactInput carries the editable fields of a contact.
type ContactInput struct {
	Name        string
	Email       string
	PhoneNumber string
}

// ContactService manages contacts. Owner-scoped operations take the owner's
// username and resolve it to the account id that contacts are keyed on.
type ContactService interface {
	CreateContact(ctx context.Context, in ContactInput, owner string) (*model.Contact, error)
	ListContacts(ctx context.Context) ([]model.Contact, error)
	ListContactsByOwner(ctx context.Context, owner string) ([]model.Contact, error)
	GetContact(ctx context.Context, id uuid.UUID) (*model.Contact, error)
	// GetOwnedContact hides contacts of other owners behind ErrContactNotFound.
	GetOwnedContact(ctx context.Context, id uuid.UUID, owner string) (*model.Contact, error)
	UpdateContact(ctx context.Context, id uuid.UUID, in ContactInput) (*model.Contact, error)
	DeleteContact(ctx context.Context, id uuid.UUID) error
}

type contactService struct {
	repo   repository.ContactRepository
	users  repository.UserRepository
	logger *zap.Logger
}

// NewContactService creates a new contact service.
func NewContactService(repo repository.ContactRepository, users repository.UserRepository, logger *zap.Logger) ContactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &contactService{repo: repo, users: users, logger: logger}
}

// resolveOwner loads the account behind username. A token whose subject no
// longer exists is treated as unauthenticated.
func (s *contactService) resolveOwner(ctx context.Context, username string) (*model.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("User account no longer exists")
		}
		return nil, fmt.Errorf("find contact owner: %w", err)
	}
	return user, nil
}

func (s *contactService) CreateContact(ctx context.Context, in ContactInput, owner string) (*model.Contact, error) {
	user, err := s.resolveOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check contact email: %w", err)
	}
	if exists {
		return nil, apperrors.ErrDuplicateContactEmail
	}
	exists, err = s.repo.ExistsByPhoneNumber(ctx, in.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("check contact phone: %w", err)
	}
	if exists {
		return nil, apperrors.ErrDuplicateContactPhone
	}

	contact := &model.Contact{
		Name:        in.Name,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		OwnerID:     user.ID,
		CreatedBy:   user.Username,
	}
	if err := s.repo.Save(ctx, contact); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, s.duplicateContact(ctx, in, uuid.Nil,
				apperrors.ErrDuplicateContactEmail, apperrors.ErrDuplicateContactPhone)
		}
		return nil, fmt.Errorf("create contact: %w", err)
	}

	s.logger.Info("contact created", zap.String("contact_id", contact.ID.String()), zap.String("owner", owner))
	return contact, nil
}

func (s *contactService) ListContacts(ctx context.Context) ([]model.Contact, error) {
	contacts, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

func (s *contactService) ListContactsByOwner(ctx context.Context, owner string) ([]model.Contact, error) {
	user, err := s.resolveOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	contacts, err := s.repo.FindByOwnerID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

func (s *contactService) GetContact(ctx context.Context, id uuid.UUID) (*model.Contact, error) {
	contact, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ContactNotFound("id", id)
		}
		return nil, fmt.Errorf("find contact: %w", err)
	}
	return contact, nil
}

func (s *contactService) GetOwnedContact(ctx context.Context, id uuid.UUID, owner string) (*model.Contact, error) {
	user, err := s.resolveOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	contact, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if contact.OwnerID != user.ID {
		return nil, apperrors.ContactNotFound("id", id)
	}
	return contact, nil
}

func (s *contactService) UpdateContact(ctx context.Context, id uuid.UUID, in ContactInput) (*model.Contact, error) {
	contact, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}

	if contact.Email != in.Email {
		taken, err := s.repo.ExistsByEmailAndIDNot(ctx, in.Email, id)
		if err != nil {
			return nil, fmt.Errorf("check contact email: %w", err)
		}
		if taken {
			return nil, apperrors.WithMessage(apperrors.ErrDuplicateContactEmail, "Email is already in use")
		}
	}
	if contact.PhoneNumber != in.PhoneNumber {
		taken, err := s.repo.ExistsByPhoneNumberAndIDNot(ctx, in.PhoneNumber, id)
		if err != nil {
			return nil, fmt.Errorf("check contact phone: %w", err)
		}
		if taken {
			return nil, apperrors.WithMessage(apperrors.ErrDuplicateContactPhone, "Phone number is already in use")
		}
	}

	contact.Name = in.Name
	contact.Email = in.Email
	contact.PhoneNumber = in.PhoneNumber
	if err := s.repo.Save(ctx, contact); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, s.duplicateContact(ctx, in, id,
				apperrors.WithMessage(apperrors.ErrDuplicateContactEmail, "Email is already in use"),
				apperrors.WithMessage(apperrors.ErrDuplicateContactPhone, "Phone number is already in use"))
		}
		return nil, fmt.Errorf("update contact: %w", err)
	}

	s.logger.Info("contact updated", zap.String("contact_id", id.String()))
	return contact, nil
}

func (s *contactService) DeleteContact(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetContact(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	s.logger.Info("contact deleted", zap.String("contact_id", id.String()))
	return nil
}

// duplicateContact reports which unique field a concurrent write took after
// Save failed with a duplicate key. The email error is the fallback.
func (s *contactService) duplicateContact(ctx context.Context, in ContactInput, id uuid.UUID, emailErr, phoneErr error) error {
	if taken, err := s.repo.ExistsByEmailAndIDNot(ctx, in.Email, id); err == nil && taken {
		return emailErr
	}
	if taken, err := s.repo.ExistsByPhoneNumberAndIDNot(ctx, in.PhoneNumber, id); err == nil && taken {
		return phoneErr
	}
	return emailErr
}
