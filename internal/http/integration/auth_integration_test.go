package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/geocoder89/adminpanel/internal/auth"
	"github.com/geocoder89/adminpanel/internal/config"
	"github.com/geocoder89/adminpanel/internal/db"
	apphttp "github.com/geocoder89/adminpanel/internal/http"
	"github.com/geocoder89/adminpanel/internal/repo/postgres"
	"github.com/geocoder89/adminpanel/internal/security"
	"github.com/geocoder89/adminpanel/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() config.Config {
	return config.Config{
		Env:           "test",
		AdminEmail:    "admin@example.com",
		AdminPassword: "admin-password",
		AdminName:     "Test Admin",
		JWTSecret:     "test-secret-key",
	}
}

func setupTestRouter(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping postgres integration test")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, dsn, 4)
	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	resetDB(t, pool)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := testConfig()

	repo := postgres.NewAccountsRepo(pool, nil)
	if err := db.EnsureAdminUser(ctx, repo, cfg, logger); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	tokens := auth.NewManager(cfg.JWTSecret)
	svc := service.NewAccountService(repo, security.NewHasher(bcrypt.MinCost), tokens, logger)

	router := apphttp.NewRouter(apphttp.Deps{
		Log:          logger,
		Accounts:     svc,
		Tokens:       tokens,
		Ping:         pool.Ping,
		Env:          cfg.Env,
		MaxBodyBytes: 1 << 20,
	})

	return router, pool
}

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `TRUNCATE users`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

// helpers

type authResponse struct {
	User struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Token string `json:"token"`
}

type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doRequest(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), out)
	if err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

func TestIntegration_Register_Login_Me(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/auth/register", "", `{"name":"Sam Doe","email":"sam@example.com","password":"password123"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	var reg authResponse
	mustReadJSON(t, w, &reg)
	if reg.User.Role != "user" || reg.Token == "" {
		t.Fatalf("unexpected register response: %+v", reg)
	}

	w = doRequest(router, http.MethodPost, "/api/auth/register", "", `{"name":"Sam Again","email":"sam@example.com","password":"password123"}`)
	var dup apiErrorResponse
	mustReadJSON(t, w, &dup)
	if w.Code != http.StatusBadRequest || dup.Error.Code != "email_taken" {
		t.Fatalf("duplicate register got status %d code %q", w.Code, dup.Error.Code)
	}

	w = doRequest(router, http.MethodPost, "/api/auth/login", "", `{"email":"sam@example.com","password":"password123"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login got status %d, body=%s", w.Code, w.Body.String())
	}
	var login authResponse
	mustReadJSON(t, w, &login)

	w = doRequest(router, http.MethodGet, "/api/auth/me", login.Token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("me got status %d, body=%s", w.Code, w.Body.String())
	}
	if bytes.Contains(w.Body.Bytes(), []byte("passwordHash")) || bytes.Contains(w.Body.Bytes(), []byte("$2a$")) {
		t.Fatalf("me leaks the hash: %s", w.Body.String())
	}
}

func TestIntegration_AdminManagesUsers(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/auth/register", "", `{"name":"Sam","email":"sam@example.com","password":"password123"}`)
	var sam authResponse
	mustReadJSON(t, w, &sam)

	w = doRequest(router, http.MethodPost, "/api/auth/login", "", `{"email":"admin@example.com","password":"admin-password"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("admin login got status %d, body=%s", w.Code, w.Body.String())
	}
	var admin authResponse
	mustReadJSON(t, w, &admin)

	w = doRequest(router, http.MethodGet, "/api/users", sam.Token, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-admin list got status %d", w.Code)
	}

	w = doRequest(router, http.MethodGet, "/api/users", admin.Token, "")
	var list struct {
		Users []struct {
			Email string `json:"email"`
		} `json:"users"`
	}
	mustReadJSON(t, w, &list)
	if len(list.Users) != 2 || list.Users[0].Email != "sam@example.com" {
		t.Fatalf("unexpected list: %+v", list.Users)
	}

	w = doRequest(router, http.MethodPatch, "/api/users/"+sam.User.ID+"/role", admin.Token, `{"role":"admin"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("set role got status %d, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodDelete, "/api/users/"+admin.User.ID, admin.Token, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("self delete got status %d", w.Code)
	}

	w = doRequest(router, http.MethodDelete, "/api/users/not-a-uuid", admin.Token, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("malformed id delete got status %d", w.Code)
	}

	w = doRequest(router, http.MethodDelete, "/api/users/"+sam.User.ID, admin.Token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete got status %d, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/api/auth/me", sam.Token, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("deleted account me got status %d", w.Code)
	}
}

func TestIntegration_Login_InvalidCredentials(t *testing.T) {
	router, _ := setupTestRouter(t)

	// no user created
	w := doRequest(router, http.MethodPost, "/api/auth/login", "", `{"email":"nope@example.com","password":"wrong-password"}`)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login(invalid creds) got status %d, want %d, body=%s", w.Code, http.StatusUnauthorized, w.Body.String())
	}
}
