package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/adminpanel/internal/domain/account"
	"github.com/geocoder89/adminpanel/internal/http/handlers"
	"github.com/geocoder89/adminpanel/internal/http/middlewares"
	"github.com/geocoder89/adminpanel/internal/service"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAuthService struct {
	registerFn func(ctx context.Context, name, email, password string) (service.AuthResult, error)
	loginFn    func(ctx context.Context, email, password string) (service.AuthResult, error)
}

func (f *fakeAuthService) Register(ctx context.Context, name, email, password string) (service.AuthResult, error) {
	if f.registerFn != nil {
		return f.registerFn(ctx, name, email, password)
	}
	return service.AuthResult{}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (service.AuthResult, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, email, password)
	}
	return service.AuthResult{}, nil
}

// small helper function which returns the gin engine to mount one handler per test
func setupRouter(method, path string, h ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.RequestID())
	r.Handle(method, path, h...)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Error handlers.APIError `json:"error"`
}

func TestRegisterHandler(t *testing.T) {
	user := account.Account{ID: "acc-1", Name: "A", Email: "a@x.com", PasswordHash: "$2a$10$secret", Role: account.RoleUser}

	tests := []struct {
		name           string
		body           string
		setUp          func(*fakeAuthService)
		wantStatusCode int
		wantCode       string
	}{
		{
			name: "success",
			body: `{"name":"A","email":"a@x.com","password":"abcdef"}`,
			setUp: func(f *fakeAuthService) {
				f.registerFn = func(ctx context.Context, name, email, password string) (service.AuthResult, error) {
					return service.AuthResult{User: user, Token: "tok"}, nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "short_password",
			body:           `{"name":"A","email":"a@x.com","password":"abc"}`,
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "validation_error",
		},
		{
			name:           "missing_name",
			body:           `{"email":"a@x.com","password":"abcdef"}`,
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "validation_error",
		},
		{
			name: "duplicate_email",
			body: `{"name":"A","email":"a@x.com","password":"abcdef"}`,
			setUp: func(f *fakeAuthService) {
				f.registerFn = func(ctx context.Context, name, email, password string) (service.AuthResult, error) {
					return service.AuthResult{}, account.ErrDuplicateEmail
				}
			},
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "email_taken",
		},
		{
			name: "store_error",
			body: `{"name":"A","email":"a@x.com","password":"abcdef"}`,
			setUp: func(f *fakeAuthService) {
				f.registerFn = func(ctx context.Context, name, email, password string) (service.AuthResult, error) {
					return service.AuthResult{}, errors.New("db error: connection refused on 10.0.0.5")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
			wantCode:       "internal_error",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAuthService{}
			if tt.setUp != nil {
				tt.setUp(fake)
			}

			h := handlers.NewAuthHandler(fake, discardLogger())
			w := doJSON(setupRouter(http.MethodPost, "/api/auth/register", h.Register), http.MethodPost, "/api/auth/register", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if strings.Contains(w.Body.String(), "$2a$") || strings.Contains(w.Body.String(), "passwordHash") {
				t.Fatalf("response leaks the password hash: %s", w.Body.String())
			}

			if strings.Contains(w.Body.String(), "10.0.0.5") {
				t.Fatalf("response leaks internals: %s", w.Body.String())
			}

			if tt.wantCode != "" {
				var body errorBody
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
					t.Fatalf("failed to unmarshal: %v", err)
				}
				if body.Error.Code != tt.wantCode {
					t.Fatalf("got code %q, want %q", body.Error.Code, tt.wantCode)
				}
				if body.Error.RequestID == "" {
					t.Fatalf("error body should carry a request id")
				}
			}
		})
	}
}

func TestLoginHandler_SameBodyForUnknownEmailAndWrongPassword(t *testing.T) {
	fake := &fakeAuthService{
		loginFn: func(ctx context.Context, email, password string) (service.AuthResult, error) {
			return service.AuthResult{}, account.ErrInvalidCredentials
		},
	}
	h := handlers.NewAuthHandler(fake, discardLogger())
	r := setupRouter(http.MethodPost, "/api/auth/login", h.Login)

	unknown := doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"nobody@x.com","password":"abcdef"}`)
	wrong := doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"nope"}`)

	for _, w := range []*httptest.ResponseRecorder{unknown, wrong} {
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("got status %d, want 401", w.Code)
		}
	}

	var a, b errorBody
	_ = json.Unmarshal(unknown.Body.Bytes(), &a)
	_ = json.Unmarshal(wrong.Body.Bytes(), &b)

	// request ids differ per request; everything else must match
	a.Error.RequestID, b.Error.RequestID = "", ""
	if a != b {
		t.Fatalf("bodies differ: %+v vs %+v", a, b)
	}
	if a.Error.Code != "invalid_credentials" {
		t.Fatalf("got code %q", a.Error.Code)
	}
}

func TestLoginHandler_MissingFields(t *testing.T) {
	h := handlers.NewAuthHandler(&fakeAuthService{}, discardLogger())
	w := doJSON(setupRouter(http.MethodPost, "/api/auth/login", h.Login), http.MethodPost, "/api/auth/login", `{"email":"a@x.com"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}
}

func TestMeHandler(t *testing.T) {
	h := handlers.NewAuthHandler(&fakeAuthService{}, discardLogger())

	withAccount := func(c *gin.Context) {
		c.Set(middlewares.CtxAccount, account.Account{ID: "acc-1", Name: "A", Email: "a@x.com", PasswordHash: "$2a$10$x", Role: account.RoleUser})
		c.Next()
	}

	w := doJSON(setupRouter(http.MethodGet, "/api/auth/me", withAccount, h.Me), http.MethodGet, "/api/auth/me", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if got["id"] != "acc-1" || got["role"] != "user" {
		t.Fatalf("unexpected body: %v", got)
	}
	if _, ok := got["passwordHash"]; ok {
		t.Fatalf("hash must not be serialized")
	}

	w = doJSON(setupRouter(http.MethodGet, "/api/auth/me", h.Me), http.MethodGet, "/api/auth/me", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}
}
