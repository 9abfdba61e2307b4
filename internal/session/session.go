// Package session keeps the logged-in identity of a client between calls.
//
// The cache is a hint, never an authority: callers re-validate the stored
// token against the server before trusting the stored user.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/geocoder89/adminpanel/internal/domain/account"
)

const (
	KeyUser  = "admin_user"
	KeyToken = "admin_token"
)

var ErrMiss = errors.New("session: key not found")

// Cache is a small string key/value store. Get returns ErrMiss for absent
// or expired keys.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context) error
}

// Save stores the user and token together.
func Save(ctx context.Context, c Cache, user account.Account, token string) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}

	if err := c.Set(ctx, KeyUser, string(raw)); err != nil {
		return err
	}
	return c.Set(ctx, KeyToken, token)
}

// Load returns the stored user and token. A half-written session is
// reported as ErrMiss.
func Load(ctx context.Context, c Cache) (account.Account, string, error) {
	token, err := c.Get(ctx, KeyToken)
	if err != nil {
		return account.Account{}, "", err
	}

	raw, err := c.Get(ctx, KeyUser)
	if err != nil {
		return account.Account{}, "", err
	}

	var user account.Account
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return account.Account{}, "", ErrMiss
	}

	if token == "" || user.ID == "" {
		return account.Account{}, "", ErrMiss
	}

	return user, token, nil
}
