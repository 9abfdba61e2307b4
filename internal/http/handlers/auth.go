package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/adminpanel/internal/domain/account"
	"github.com/geocoder89/adminpanel/internal/http/middlewares"
	"github.com/geocoder89/adminpanel/internal/service"
	"github.com/gin-gonic/gin"
)

// bcrypt plus one insert fits comfortably
const authTimeout = 3 * time.Second

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (service.AuthResult, error)
	Login(ctx context.Context, email, password string) (service.AuthResult, error)
}

// AuthRecorder receives the outcome of every register and login attempt.
type AuthRecorder interface {
	ObserveAuth(op string, err error)
}

type AuthHandler struct {
	svc     AuthService
	log     *slog.Logger
	metrics AuthRecorder
}

func NewAuthHandler(svc AuthService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

func (h *AuthHandler) WithMetrics(m AuthRecorder) *AuthHandler {
	h.metrics = m
	return h
}

func (h *AuthHandler) record(op string, err error) {
	if h.metrics != nil {
		h.metrics.ObserveAuth(op, err)
	}
}

// POST /api/auth/register
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req account.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	res, err := h.svc.Register(cctx, req.Name, req.Email, req.Password)
	h.record("register", err)
	if err != nil {
		RespondDomainError(ctx, h.log, err, "Could not register user")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"user":    res.User,
		"token":   res.Token,
	})
}

// POST /api/auth/login
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req account.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	res, err := h.svc.Login(cctx, req.Email, req.Password)
	h.record("login", err)
	if err != nil {
		RespondDomainError(ctx, h.log, err, "Could not log in")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    res.User,
		"token":   res.Token,
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(ctx *gin.Context) {
	acc, ok := middlewares.AccountFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing, invalid or expired access token")
		return
	}

	ctx.JSON(http.StatusOK, acc)
}
