package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/adminpanel/internal/domain/account"
	"github.com/geocoder89/adminpanel/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondValidation(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "validation_error", message, details)
}

func RespondUnauthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondDomainError maps account errors onto status codes. Anything it does
// not recognise is logged and reported as a generic 500 with fallback.
func RespondDomainError(ctx *gin.Context, log *slog.Logger, err error, fallback string) {
	var verr *account.ValidationError

	switch {
	case errors.As(err, &verr):
		RespondValidation(ctx, verr.Message, nil)
	case errors.Is(err, account.ErrValidation):
		RespondValidation(ctx, "Invalid request", nil)
	case errors.Is(err, account.ErrDuplicateEmail):
		RespondError(ctx, http.StatusBadRequest, "email_taken", "Email is already in use.", nil)
	case errors.Is(err, account.ErrInvalidCredentials):
		RespondUnauthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
	case errors.Is(err, account.ErrUnauthenticated):
		RespondUnauthorized(ctx, "unauthorized", "Missing, invalid or expired access token")
	case errors.Is(err, account.ErrForbidden):
		RespondError(ctx, http.StatusForbidden, "forbidden", "Admin role required", nil)
	case errors.Is(err, account.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, account.ErrSelfDelete):
		RespondError(ctx, http.StatusBadRequest, "self_action_forbidden", "You cannot delete your own account", nil)
	case errors.Is(err, account.ErrSelfRoleChange):
		RespondError(ctx, http.StatusBadRequest, "self_action_forbidden", "You cannot change your own role", nil)
	default:
		log.ErrorContext(ctx.Request.Context(), fallback, "err", err, "request_id", requestIDFrom(ctx))
		RespondInternal(ctx, fallback)
	}
}
