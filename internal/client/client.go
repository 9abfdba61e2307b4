// Package client talks to the admin panel HTTP API and keeps the current
// session in a session.Cache.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/geocoder89/adminpanel/internal/domain/account"
	"github.com/geocoder89/adminpanel/internal/session"
)

var ErrNotLoggedIn = errors.New("not logged in")

// APIError is a non-2xx answer decoded from the server's error envelope.
type APIError struct {
	Status    int    `json:"-"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d", e.Status)
	}
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	base  *url.URL
	http  *http.Client
	cache session.Cache
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, cache session.Cache, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", baseURL)
	}

	c := &Client{
		base:  u,
		http:  &http.Client{Timeout: 10 * time.Second},
		cache: cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type authResponse struct {
	Message string          `json:"message"`
	User    account.Account `json:"user"`
	Token   string          `json:"token"`
}

// Register creates an account and stores the resulting session.
func (c *Client) Register(ctx context.Context, name, email, password string) (account.Account, error) {
	var out authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", "", account.RegisterRequest{Name: name, Email: email, Password: password}, &out)
	if err != nil {
		return account.Account{}, err
	}

	return out.User, session.Save(ctx, c.cache, out.User, out.Token)
}

// Login authenticates and stores the resulting session.
func (c *Client) Login(ctx context.Context, email, password string) (account.Account, error) {
	var out authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", "", account.LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return account.Account{}, err
	}

	return out.User, session.Save(ctx, c.cache, out.User, out.Token)
}

// Logout forgets the local session. Tokens are stateless, so there is
// nothing to tell the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.cache.Clear(ctx)
}

// Me re-validates the cached token against the server and refreshes the
// cached user. A rejected token clears the session.
func (c *Client) Me(ctx context.Context) (account.Account, error) {
	_, token, err := session.Load(ctx, c.cache)
	if errors.Is(err, session.ErrMiss) {
		return account.Account{}, ErrNotLoggedIn
	}
	if err != nil {
		return account.Account{}, err
	}

	var me account.Account
	err = c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &me)
	if IsStatus(err, http.StatusUnauthorized) {
		_ = c.cache.Clear(ctx)
		return account.Account{}, ErrNotLoggedIn
	}
	if err != nil {
		return account.Account{}, err
	}

	return me, session.Save(ctx, c.cache, me, token)
}

func (c *Client) ListUsers(ctx context.Context) ([]account.Account, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var out struct {
		Users []account.Account `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	return c.do(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(id), token, nil, nil)
}

func (c *Client) SetRole(ctx context.Context, id string, role account.Role) (account.Account, error) {
	token, err := c.token(ctx)
	if err != nil {
		return account.Account{}, err
	}

	var out struct {
		User account.Account `json:"user"`
	}
	err = c.do(ctx, http.MethodPatch, "/api/users/"+url.PathEscape(id)+"/role", token, account.SetRoleRequest{Role: role}, &out)
	if err != nil {
		return account.Account{}, err
	}
	return out.User, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	_, token, err := session.Load(ctx, c.cache)
	if errors.Is(err, session.ErrMiss) {
		return "", ErrNotLoggedIn
	}
	return token, err
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var env struct {
		Error APIError `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &env)

	apiErr := env.Error
	apiErr.Status = resp.StatusCode
	return &apiErr
}
