package middlewares

import (
	"context"
	"strings"

	"github.com/geocoder89/adminpanel/internal/actorctx"
	"github.com/geocoder89/adminpanel/internal/domain/account"
	"github.com/gin-gonic/gin"
)

// Keep these small interfaces so tests can fake them easily.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type AccountResolver interface {
	Resolve(ctx context.Context, subjectID string) (account.Account, error)
}

type AuthMiddleware struct {
	tokens   TokenVerifier
	accounts AccountResolver
}

func NewAuthMiddleware(tokens TokenVerifier, accounts AccountResolver) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts}
}

// Authenticate verifies the bearer token and loads the account it names.
// Role is taken from the loaded account, never from the token.
func (m *AuthMiddleware) Authenticate() RequestFilter {
	return FilterFunc(func(c *gin.Context) error {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			return account.ErrUnauthenticated
		}

		subjectID, err := m.tokens.Verify(raw)
		if err != nil {
			return account.ErrUnauthenticated
		}

		acc, err := m.accounts.Resolve(c.Request.Context(), subjectID)
		if err != nil {
			return err
		}

		// Stash identity on both contexts
		c.Set(CtxAccount, acc)
		c.Request = c.Request.WithContext(actorctx.WithAccount(c.Request.Context(), acc))

		return nil
	})
}

func bearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// AccountFromContext returns the account attached by Authenticate.
func AccountFromContext(c *gin.Context) (account.Account, bool) {
	v, ok := c.Get(CtxAccount)
	if !ok {
		return account.Account{}, false
	}
	acc, ok := v.(account.Account)
	return acc, ok
}
