package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is fixed; there is no refresh flow.
const TokenTTL = 7 * 24 * time.Hour

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// TokenCodec mints and verifies bearer tokens.
type TokenCodec interface {
	Issue(subjectID, email string) (string, error)
	Verify(token string) (string, error)
}

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

var _ TokenCodec = (*Manager)(nil)

func NewManager(secret string) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    TokenTTL,
		now:    time.Now,
	}
}

// WithClock swaps the time source, used to exercise expiry.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) Issue(subjectID, email string) (string, error) {
	if len(m.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}

	now := m.now().UTC()

	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify returns the subject id. Only sub and the timing claims are trusted;
// the caller re-reads everything else from the store.
func (m *Manager) Verify(tokenStr string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)

	var claims Claims

	token, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	if !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}
