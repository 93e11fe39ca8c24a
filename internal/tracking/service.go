package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Service struct {
	store    Store
	users    UserResolver
	notifier Notifier
	locks    *ownerLocks
	validate *validator.Validate
	now      func() time.Time
}

func NewService(store Store, users UserResolver, notifier Notifier) *Service {
	return &Service{
		store:    store,
		users:    users,
		notifier: notifier,
		locks:    newOwnerLocks(),
		validate: newValidator(),
		now:      time.Now,
	}
}

func (s *Service) requireUser(ctx context.Context, userID string) error {
	exists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}
	if !exists {
		return ErrIdentityNotFound
	}
	return nil
}

// withOwner serializes fn against every other unit of work for ownerID, both
// inside this process and, through the store, across processes.
func (s *Service) withOwner(ctx context.Context, ownerID string, fn func(Repository) error) error {
	unlock := s.locks.lock(ownerID)
	defer unlock()
	return s.store.WithinOwner(ctx, ownerID, fn)
}
