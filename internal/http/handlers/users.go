package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/adminpanel/internal/domain/account"
	"github.com/geocoder89/adminpanel/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

const usersTimeout = 2 * time.Second

type UsersService interface {
	ListUsers(ctx context.Context, actor account.Account) ([]account.Account, error)
	DeleteUser(ctx context.Context, actor account.Account, id string) error
	SetRole(ctx context.Context, actor account.Account, id string, role account.Role) (account.Account, error)
}

type UsersHandler struct {
	svc UsersService
	log *slog.Logger
}

func NewUsersHandler(svc UsersService, log *slog.Logger) *UsersHandler {
	return &UsersHandler{svc: svc, log: log}
}

func (h *UsersHandler) actor(ctx *gin.Context) (account.Account, bool) {
	acc, ok := middlewares.AccountFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing, invalid or expired access token")
	}
	return acc, ok
}

// GET /api/users
func (h *UsersHandler) List(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), usersTimeout)
	defer cancel()

	users, err := h.svc.ListUsers(cctx, actor)
	if err != nil {
		RespondDomainError(ctx, h.log, err, "Could not list users")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"users": users})
}

// DELETE /api/users/:id
func (h *UsersHandler) Delete(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), usersTimeout)
	defer cancel()

	err := h.svc.DeleteUser(cctx, actor, ctx.Param("id"))
	if err != nil {
		RespondDomainError(ctx, h.log, err, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// PATCH /api/users/:id/role
func (h *UsersHandler) SetRole(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}

	var req account.SetRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), usersTimeout)
	defer cancel()

	acc, err := h.svc.SetRole(cctx, actor, ctx.Param("id"), req.Role)
	if err != nil {
		RespondDomainError(ctx, h.log, err, "Could not update role")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User role updated",
		"user":    acc,
	})
}
