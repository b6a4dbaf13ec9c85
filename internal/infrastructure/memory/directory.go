package memory

import (
	"context"
	"sort"
	"sync"

	domain "eportfolio/backend/internal/domain/auth"
)

// Directory is an in-process identity store. It is the default backend for
// local runs and tests.
type Directory struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

var _ domain.Directory = (*Directory)(nil)

// NewDirectory constructs an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

// Create stores a copy of user. Emails are unique and compared exactly.
func (d *Directory) Create(_ context.Context, user *domain.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byEmail[user.Email]; ok {
		return domain.ErrEmailExists
	}
	stored := *user
	d.byID[stored.ID] = &stored
	d.byEmail[stored.Email] = stored.ID
	return nil
}

// GetByEmail fetches a user by exact email.
func (d *Directory) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *d.byID[id]
	return &out, nil
}

// GetByID retrieves a user by id.
func (d *Directory) GetByID(_ context.Context, id string) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// List returns users ordered newest first, matching the postgres backend.
func (d *Directory) List(_ context.Context, filter domain.UserFilter) ([]*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	users := make([]*domain.User, 0, len(d.byID))
	for _, u := range d.byID {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		out := *u
		users = append(users, &out)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Email < users[j].Email
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}
