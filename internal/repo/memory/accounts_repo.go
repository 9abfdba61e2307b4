package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/adminpanel/internal/domain/account"
	"github.com/google/uuid"
)

// AccountsRepo is an in-process credential store with the same semantics as
// the postgres one. Used for tests and the STORE=memory dev mode.
type AccountsRepo struct {
	mu      sync.RWMutex
	items   map[string]account.Account
	byEmail map[string]string
	now     func() time.Time
}

func NewAccountsRepo() *AccountsRepo {
	return &AccountsRepo{
		items:   make(map[string]account.Account),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *AccountsRepo) Create(_ context.Context, name, email, passwordHash string, role account.Role, avatar string) (account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[email]; taken {
		return account.Account{}, account.ErrDuplicateEmail
	}

	now := r.now().UTC()
	a := account.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Avatar:       avatar,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.items[a.ID] = a
	r.byEmail[email] = a.ID

	return a, nil
}

func (r *AccountsRepo) GetByEmail(_ context.Context, email string) (account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}

	return r.items[id], nil
}

func (r *AccountsRepo) GetByID(_ context.Context, id string) (account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}

	return a, nil
}

func (r *AccountsRepo) List(_ context.Context) ([]account.Account, error) {
	r.mu.RLock()
	out := make([]account.Account, 0, len(r.items))
	for _, a := range r.items {
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	return out, nil
}

func (r *AccountsRepo) UpdateRole(_ context.Context, id string, role account.Role) (account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}

	a.Role = role
	a.UpdatedAt = r.now().UTC()
	r.items[id] = a

	return a, nil
}

func (r *AccountsRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return account.ErrNotFound
	}

	delete(r.items, id)
	delete(r.byEmail, a.Email)

	return nil
}
