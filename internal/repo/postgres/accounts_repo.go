package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/adminpanel/internal/domain/account"
	"github.com/geocoder89/adminpanel/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const accountColumns = `id, name, email, password_hash, role, avatar, created_at, updated_at`

type AccountsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAccountsRepo(pool *pgxpool.Pool, prom *observability.Prom) *AccountsRepo {
	return &AccountsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *AccountsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanAccount(row pgx.Row) (account.Account, error) {
	var a account.Account

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.PasswordHash,
		&a.Role,
		&a.Avatar,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (r *AccountsRepo) Create(ctx context.Context, name, email, passwordHash string, role account.Role, avatar string) (acc account.Account, err error) {
	err = r.observe("accounts.create", func() error {
		acc, err = scanAccount(r.pool.QueryRow(ctx,
			`INSERT INTO users (id, name, email, password_hash, role, avatar)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING `+accountColumns,
			uuid.NewString(), name, email, passwordHash, role, avatar,
		))
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return account.Account{}, account.ErrDuplicateEmail
		}

		return account.Account{}, err
	}

	return acc, nil
}

func (r *AccountsRepo) GetByEmail(ctx context.Context, email string) (acc account.Account, err error) {
	err = r.observe("accounts.get_by_email", func() error {
		acc, err = scanAccount(r.pool.QueryRow(ctx,
			`SELECT `+accountColumns+`
			FROM users
			WHERE email = $1`,
			email,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}

		return account.Account{}, err
	}
	return acc, nil
}

func (r *AccountsRepo) GetByID(ctx context.Context, id string) (acc account.Account, err error) {
	if !isUUID(id) {
		return account.Account{}, account.ErrNotFound
	}

	err = r.observe("accounts.get_by_id", func() error {
		acc, err = scanAccount(r.pool.QueryRow(ctx,
			`SELECT `+accountColumns+`
			FROM users
			WHERE id = $1`,
			id,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}

		return account.Account{}, err
	}
	return acc, nil
}

// List returns every account, newest first.
func (r *AccountsRepo) List(ctx context.Context) ([]account.Account, error) {
	output := make([]account.Account, 0)

	err := r.observe("accounts.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+accountColumns+`
			FROM users
			ORDER BY created_at DESC, id DESC`,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			a, err := scanAccount(rows)
			if err != nil {
				return err
			}
			output = append(output, a)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (r *AccountsRepo) UpdateRole(ctx context.Context, id string, role account.Role) (acc account.Account, err error) {
	if !isUUID(id) {
		return account.Account{}, account.ErrNotFound
	}

	err = r.observe("accounts.update_role", func() error {
		acc, err = scanAccount(r.pool.QueryRow(ctx,
			`UPDATE users
			SET role = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+accountColumns,
			id, role,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}

		return account.Account{}, err
	}

	return acc, nil
}

func (r *AccountsRepo) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return account.ErrNotFound
	}

	var tag pgconn.CommandTag

	err := r.observe("accounts.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return account.ErrNotFound
	}

	return nil
}

// ids are uuid columns; anything else can never match a row.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
