package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/adminpanel/internal/auth"
	"github.com/geocoder89/adminpanel/internal/client"
	"github.com/geocoder89/adminpanel/internal/domain/account"
	httpx "github.com/geocoder89/adminpanel/internal/http"
	"github.com/geocoder89/adminpanel/internal/repo/memory"
	"github.com/geocoder89/adminpanel/internal/security"
	"github.com/geocoder89/adminpanel/internal/service"
	"github.com/geocoder89/adminpanel/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type server struct {
	url   string
	store *memory.AccountsRepo
}

func startServer(t *testing.T) server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewAccountsRepo()
	hasher := security.NewHasher(bcrypt.MinCost)
	tokens := auth.NewManager("client-test-secret")

	hash, err := hasher.Hash("rootroot")
	require.NoError(t, err)
	_, err = store.Create(context.Background(), "Root", "root@x.com", hash, account.RoleAdmin, "")
	require.NoError(t, err)

	router := httpx.NewRouter(httpx.Deps{
		Log:          log,
		Accounts:     service.NewAccountService(store, hasher, tokens, log),
		Tokens:       tokens,
		Env:          "test",
		MaxBodyBytes: 1 << 20,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return server{url: srv.URL, store: store}
}

func TestClient_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	srv := startServer(t)
	cache := session.NewMemory(0)

	c, err := client.New(srv.url, cache)
	require.NoError(t, err)

	_, err = c.Me(ctx)
	require.ErrorIs(t, err, client.ErrNotLoggedIn)

	user, err := c.Register(ctx, "A", "a@x.com", "abcdef")
	require.NoError(t, err)
	assert.Equal(t, account.RoleUser, user.Role)

	// the session survives in the cache
	cached, token, err := session.Load(ctx, cache)
	require.NoError(t, err)
	assert.Equal(t, user.ID, cached.ID)
	assert.NotEmpty(t, token)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", me.Email)

	_, err = c.ListUsers(ctx)
	assert.True(t, client.IsStatus(err, http.StatusForbidden), "got %v", err)

	require.NoError(t, c.Logout(ctx))
	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, client.ErrNotLoggedIn)
}

func TestClient_LoginFailure(t *testing.T) {
	srv := startServer(t)

	c, err := client.New(srv.url, session.NewMemory(0))
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "root@x.com", "wrong")
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid_credentials", apiErr.Code)
	assert.Equal(t, "Email or password is incorrect.", apiErr.Message)
}

func TestClient_AdminFlow(t *testing.T) {
	ctx := context.Background()
	srv := startServer(t)

	userClient, err := client.New(srv.url, session.NewMemory(0))
	require.NoError(t, err)
	user, err := userClient.Register(ctx, "A", "a@x.com", "abcdef")
	require.NoError(t, err)

	admin, err := client.New(srv.url, session.NewMemory(0))
	require.NoError(t, err)
	_, err = admin.Login(ctx, "root@x.com", "rootroot")
	require.NoError(t, err)

	users, err := admin.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	updated, err := admin.SetRole(ctx, user.ID, account.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, account.RoleAdmin, updated.Role)

	// the promoted user sees the new role after re-validation
	me, err := userClient.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, account.RoleAdmin, me.Role)

	require.NoError(t, admin.DeleteUser(ctx, user.ID))

	err = admin.DeleteUser(ctx, user.ID)
	assert.True(t, client.IsStatus(err, http.StatusNotFound), "got %v", err)

	// a deleted account's cached session is dropped on re-validation
	_, err = userClient.Me(ctx)
	assert.ErrorIs(t, err, client.ErrNotLoggedIn)
}

func TestClient_StaleCacheIsRejected(t *testing.T) {
	ctx := context.Background()
	srv := startServer(t)
	cache := session.NewMemory(0)

	// a forged admin session must not be trusted
	require.NoError(t, session.Save(ctx, cache, account.Account{ID: "x", Role: account.RoleAdmin}, "forged"))

	c, err := client.New(srv.url, cache)
	require.NoError(t, err)

	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, client.ErrNotLoggedIn)

	_, _, err = session.Load(ctx, cache)
	assert.ErrorIs(t, err, session.ErrMiss)
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := client.New("localhost:8080", session.NewMemory(0))
	assert.Error(t, err)
}
