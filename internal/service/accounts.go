package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/geocoder89/adminpanel/internal/domain/account"
)

const (
	MinPasswordLength = 6
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordLength = 72
)

type AccountStore interface {
	Create(ctx context.Context, name, email, passwordHash string, role account.Role, avatar string) (account.Account, error)
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	GetByID(ctx context.Context, id string) (account.Account, error)
	List(ctx context.Context) ([]account.Account, error)
	UpdateRole(ctx context.Context, id string, role account.Role) (account.Account, error)
	Delete(ctx context.Context, id string) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

type TokenIssuer interface {
	Issue(subjectID, email string) (string, error)
}

type AuthResult struct {
	User  account.Account `json:"user"`
	Token string          `json:"token"`
}

type AccountService struct {
	store  AccountStore
	hasher PasswordHasher
	tokens TokenIssuer
	log    *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(store AccountStore, hasher PasswordHasher, tokens TokenIssuer, log *slog.Logger) *AccountService {
	if log == nil {
		log = slog.Default()
	}

	return &AccountService{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		log:    log,
	}
}

func (s *AccountService) Register(ctx context.Context, name, email, password string) (AuthResult, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" {
		return AuthResult{}, account.NewValidationError("name, email and password are required")
	}

	if len(password) < MinPasswordLength {
		return AuthResult{}, account.NewValidationError(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	if len(password) > MaxPasswordLength {
		return AuthResult{}, account.NewValidationError(fmt.Sprintf("password must be at most %d bytes", MaxPasswordLength))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	acc, err := s.store.Create(ctx, name, email, hash, account.RoleUser, account.AvatarFor(email))
	if err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			return AuthResult{}, account.ErrDuplicateEmail
		}
		return AuthResult{}, fmt.Errorf("create account: %w", err)
	}

	token, err := s.tokens.Issue(acc.ID, acc.Email)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}

	s.log.InfoContext(ctx, "account registered", "account_id", acc.ID)

	return AuthResult{User: acc, Token: token}, nil
}

// Login answers ErrInvalidCredentials for both an unknown email and a wrong
// password, and spends a bcrypt comparison either way.
func (s *AccountService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return AuthResult{}, account.NewValidationError("email and password are required")
	}

	acc, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			s.hasher.Verify(password, s.dummy())
			return AuthResult{}, account.ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("find account: %w", err)
	}

	if !s.hasher.Verify(password, acc.PasswordHash) {
		return AuthResult{}, account.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(acc.ID, acc.Email)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}

	return AuthResult{User: acc, Token: token}, nil
}

// Resolve loads the account a verified token points at. A missing account
// means the token no longer identifies anyone.
func (s *AccountService) Resolve(ctx context.Context, subjectID string) (account.Account, error) {
	acc, err := s.store.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.Account{}, account.ErrUnauthenticated
		}
		return account.Account{}, fmt.Errorf("resolve account: %w", err)
	}

	return acc, nil
}

func (s *AccountService) ListUsers(ctx context.Context, actor account.Account) ([]account.Account, error) {
	if actor.Role != account.RoleAdmin {
		return nil, account.ErrForbidden
	}

	users, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	return users, nil
}

func (s *AccountService) DeleteUser(ctx context.Context, actor account.Account, id string) error {
	if actor.Role != account.RoleAdmin {
		return account.ErrForbidden
	}

	if id == actor.ID {
		return account.ErrSelfDelete
	}

	err := s.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.ErrNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}

	s.log.InfoContext(ctx, "account deleted", "account_id", id)

	return nil
}

func (s *AccountService) SetRole(ctx context.Context, actor account.Account, id string, role account.Role) (account.Account, error) {
	if actor.Role != account.RoleAdmin {
		return account.Account{}, account.ErrForbidden
	}

	if !role.Valid() {
		return account.Account{}, account.NewValidationError("role must be one of user, admin")
	}

	if id == actor.ID {
		return account.Account{}, account.ErrSelfRoleChange
	}

	acc, err := s.store.UpdateRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, fmt.Errorf("update role: %w", err)
	}

	s.log.InfoContext(ctx, "account role changed", "account_id", id, "role", role)

	return acc, nil
}

func (s *AccountService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("dummy-password-for-timing")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
