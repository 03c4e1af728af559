package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kitchensink/internal/model"
	"kitchensink/internal/repository"
)

// ContactRepository is an in-memory repository.ContactRepository.
type ContactRepository struct {
	mu       sync.RWMutex
	contacts map[uuid.UUID]model.Contact
	now      func() time.Time
}

var _ repository.ContactRepository = (*ContactRepository)(nil)

// NewContactRepository returns an empty repository.
func NewContactRepository() *ContactRepository {
	return &ContactRepository{contacts: make(map[uuid.UUID]model.Contact), now: time.Now}
}

func (r *ContactRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contacts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *ContactRepository) FindAll(ctx context.Context) ([]model.Contact, error) {
	return r.filter(ctx, func(model.Contact) bool { return true })
}

func (r *ContactRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]model.Contact, error) {
	return r.filter(ctx, func(c model.Contact) bool { return c.OwnerID == ownerID })
}

func (r *ContactRepository) filter(ctx context.Context, keep func(model.Contact) bool) ([]model.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Contact, 0)
	for _, c := range r.contacts {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *ContactRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.ExistsByEmailAndIDNot(ctx, email, uuid.Nil)
}

func (r *ContactRepository) ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error) {
	return r.ExistsByPhoneNumberAndIDNot(ctx, phone, uuid.Nil)
}

func (r *ContactRepository) ExistsByEmailAndIDNot(ctx context.Context, email string, id uuid.UUID) (bool, error) {
	found, err := r.filter(ctx, func(c model.Contact) bool { return c.Email == email && c.ID != id })
	return len(found) > 0, err
}

func (r *ContactRepository) ExistsByPhoneNumberAndIDNot(ctx context.Context, phone string, id uuid.UUID) (bool, error) {
	found, err := r.filter(ctx, func(c model.Contact) bool { return c.PhoneNumber == phone && c.ID != id })
	return len(found) > 0, err
}

func (r *ContactRepository) Save(ctx context.Context, contact *model.Contact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	for _, c := range r.contacts {
		if c.ID != contact.ID && (c.Email == contact.Email || c.PhoneNumber == contact.PhoneNumber) {
			return repository.ErrDuplicateKey
		}
	}

	now := r.now()
	if existing, ok := r.contacts[contact.ID]; ok {
		contact.CreatedAt = existing.CreatedAt
	} else if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now
	r.contacts[contact.ID] = *contact
	return nil
}

func (r *ContactRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contacts, id)
	return nil
}

func (r *ContactRepository) DeleteByOwnerID(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, c := range r.contacts {
		if c.OwnerID == ownerID {
			delete(r.contacts, id)
			n++
		}
	}
	return n, nil
}

func (r *ContactRepository) RenameOwner(ctx context.Context, ownerID uuid.UUID, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.contacts {
		if c.OwnerID == ownerID {
			c.CreatedBy = username
			r.contacts[id] = c
		}
	}
	return nil
}
