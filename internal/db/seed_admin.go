package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/adminpanel/internal/config"
	"github.com/geocoder89/adminpanel/internal/domain/account"
	"github.com/geocoder89/adminpanel/internal/security"
)

type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Create(ctx context.Context, name, email, passwordHash string, role account.Role, avatar string) (account.Account, error)
	UpdateRole(ctx context.Context, id string, role account.Role) (account.Account, error)
}

// EnsureAdminUser makes sure the configured bootstrap account exists with the
// admin role. It never overwrites an existing password.
func EnsureAdminUser(ctx context.Context, store AdminStore, cfg config.Config, log *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	existing, err := store.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		if existing.Role == account.RoleAdmin {
			return nil
		}

		_, err = store.UpdateRole(ctx, existing.ID, account.RoleAdmin)
		if err == nil {
			log.InfoContext(ctx, "bootstrap admin promoted", "account_id", existing.ID)
		}
		return err
	}

	if !errors.Is(err, account.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	acc, err := store.Create(ctx, cfg.AdminName, cfg.AdminEmail, hash, account.RoleAdmin, account.AvatarFor(cfg.AdminEmail))

	// another replica may have seeded it first
	if errors.Is(err, account.ErrDuplicateEmail) {
		return nil
	}
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "bootstrap admin created", "account_id", acc.ID)

	return nil
}
