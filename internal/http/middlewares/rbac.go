package middlewares

import (
	"github.com/geocoder89/adminpanel/internal/domain/account"
	"github.com/gin-gonic/gin"
)

// RequireRole must run after Authenticate.
func (m *AuthMiddleware) RequireRole(required account.Role) RequestFilter {
	return FilterFunc(func(c *gin.Context) error {
		acc, ok := AccountFromContext(c)
		if !ok {
			return account.ErrUnauthenticated
		}

		if acc.Role != required {
			return account.ErrForbidden
		}

		return nil
	})
}
