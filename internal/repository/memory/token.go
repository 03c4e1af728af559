package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"kitchensink/internal/model"
	"kitchensink/internal/repository"
)

// TokenStore is an in-memory repository.TokenStore. Both indexes are guarded
// by one mutex, so replacing a user's token is atomic.
type TokenStore struct {
	mu      sync.Mutex
	byToken map[string]model.RefreshToken
	byUser  map[uuid.UUID]string
	now     func() time.Time
}

var _ repository.TokenStore = (*TokenStore)(nil)

// NewTokenStore returns an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		byToken: make(map[string]model.RefreshToken),
		byUser:  make(map[uuid.UUID]string),
		now:     time.Now,
	}
}

func (s *TokenStore) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.byToken[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rt, nil
}

func (s *TokenStore) Save(ctx context.Context, token *model.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if other, ok := s.byToken[token.Token]; ok && other.UserID != token.UserID {
		return repository.ErrDuplicateKey
	}
	if old, ok := s.byUser[token.UserID]; ok {
		delete(s.byToken, old)
	}
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = s.now()
	}
	s.byToken[token.Token] = *token
	s.byUser[token.UserID] = token.Token
	return nil
}

func (s *TokenStore) Delete(ctx context.Context, token *model.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.byToken[token.Token]
	if !ok {
		return nil
	}
	delete(s.byToken, rt.Token)
	if s.byUser[rt.UserID] == rt.Token {
		delete(s.byUser, rt.UserID)
	}
	return nil
}

func (s *TokenStore) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.byUser[userID]
	if !ok {
		return 0, nil
	}
	delete(s.byUser, userID)
	delete(s.byToken, tok)
	return 1, nil
}

func (s *TokenStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for tok, rt := range s.byToken {
		if !rt.ExpiresAt.After(before) {
			delete(s.byToken, tok)
			if s.byUser[rt.UserID] == tok {
				delete(s.byUser, rt.UserID)
			}
			n++
		}
	}
	return n, nil
}
