package middlewares

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/adminpanel/internal/domain/account"
	"github.com/gin-gonic/gin"
)

// RequestFilter inspects a request and either lets it through or rejects it.
// Filters may attach values to the context but never write a response.
type RequestFilter interface {
	Apply(c *gin.Context) error
}

type FilterFunc func(c *gin.Context) error

func (f FilterFunc) Apply(c *gin.Context) error {
	return f(c)
}

// Pipeline runs filters in the given order and stops at the first rejection.
func Pipeline(filters ...RequestFilter) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, f := range filters {
			if err := f.Apply(c); err != nil {
				abortWithFilterError(c, err)
				return
			}
		}
		c.Next()
	}
}

func abortWithFilterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, account.ErrUnauthenticated):
		abortWithError(c, http.StatusUnauthorized, "unauthorized", "Missing, invalid or expired access token")
	case errors.Is(err, account.ErrForbidden):
		abortWithError(c, http.StatusForbidden, "forbidden", "Admin role required")
	default:
		slog.Default().ErrorContext(c.Request.Context(), "request filter failed", "err", err)
		abortWithError(c, http.StatusInternalServerError, "internal_error", "Could not authorize request")
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	body := gin.H{
		"code":    code,
		"message": message,
	}

	if reqID, ok := c.Get(CtxRequestID); ok {
		body["requestId"] = reqID
	}

	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
