package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/adminpanel/internal/domain/account"
	"github.com/geocoder89/adminpanel/internal/http/handlers"
	"github.com/geocoder89/adminpanel/internal/http/middlewares"
	"github.com/geocoder89/adminpanel/internal/observability"
	"github.com/geocoder89/adminpanel/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Log      *slog.Logger
	Accounts *service.AccountService
	Tokens   middlewares.TokenVerifier

	// Ping backs the readiness probe; nil means always ready.
	Ping func(ctx context.Context) error
	// Draining reports that shutdown has begun.
	Draining func() bool

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	Env                string
	ServiceName        string
	CORSAllowedOrigins []string
	MaxBodyBytes       int64
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	if d.ServiceName != "" {
		r.Use(otelgin.Middleware(d.ServiceName))
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(d.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	ping := func() error {
		if d.Ping == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return d.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping, d.Draining)

	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/ready", h.Ready)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Wire up handlers
	authHandler := handlers.NewAuthHandler(d.Accounts, d.Log)
	if d.Prom != nil {
		authHandler.WithMetrics(d.Prom)
	}
	usersHandler := handlers.NewUsersHandler(d.Accounts, d.Log)

	authMW := middlewares.NewAuthMiddleware(d.Tokens, d.Accounts)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middlewares.Pipeline(authMW.Authenticate()), authHandler.Me)

	// admin only
	users := api.Group("/users", middlewares.Pipeline(
		authMW.Authenticate(),
		authMW.RequireRole(account.RoleAdmin),
	))
	users.GET("", usersHandler.List)
	users.DELETE("/:id", usersHandler.Delete)
	users.PATCH("/:id/role", usersHandler.SetRole)

	return r
}
