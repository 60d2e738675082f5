package login

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/admindash/internal/auth"
	"github.com/wolfeidau/admindash/internal/store/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	admins := memory.NewAdminStore()
	_, err := EnsureAdmin(ctx, admins, "Ada", "admin@example.com", "correct-horse")
	require.NoError(t, err)

	signer, err := auth.NewSigner([]byte(testSecret), time.Hour)
	require.NoError(t, err)

	return New(admins, signer, auth.NewRevocations(ctx, time.Minute))
}

func doLogin(t *testing.T, h *Handlers, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(body))
	h.LoginHandler(w, r)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", CookieName)
	return nil
}

func TestLoginHandler(t *testing.T) {
	h := newTestHandlers(t)

	t.Run("success", func(t *testing.T) {
		w := doLogin(t, h, `{"email":"Admin@Example.com","password":"correct-horse"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Success bool `json:"success"`
			Data    struct {
				Token    string         `json:"token"`
				AdminDoc map[string]any `json:"adminDoc"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Data.Token)
		assert.Equal(t, "admin@example.com", resp.Data.AdminDoc["email"])
		assert.NotContains(t, resp.Data.AdminDoc, "PasswordHash")

		cookie := sessionCookie(t, w)
		assert.Equal(t, resp.Data.Token, cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, "/", cookie.Path)
		assert.Positive(t, cookie.MaxAge)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := doLogin(t, h, `{"email":"admin@example.com","password":"nope-nope"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"success":false,"message":"Invalid email or password"}`, w.Body.String())
	})

	t.Run("unknown account", func(t *testing.T) {
		w := doLogin(t, h, `{"email":"who@example.com","password":"whatever"}`)
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"success":false,"message":"Account not found"}`, w.Body.String())
	})

	t.Run("missing fields", func(t *testing.T) {
		w := doLogin(t, h, `{"email":"admin@example.com"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := doLogin(t, h, `{`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestValidateAndLogout(t *testing.T) {
	h := newTestHandlers(t)

	login := doLogin(t, h, `{"email":"admin@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, login.Code)
	cookie := sessionCookie(t, login)

	validate := func(t *testing.T, mutate func(*http.Request)) *httptest.ResponseRecorder {
		t.Helper()
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/admin/validate", nil)
		mutate(r)
		h.ValidateHandler(w, r)
		return w
	}

	t.Run("cookie", func(t *testing.T) {
		w := validate(t, func(r *http.Request) { r.AddCookie(cookie) })
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())
	})

	t.Run("bearer", func(t *testing.T) {
		w := validate(t, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+cookie.Value) })
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("no credential", func(t *testing.T) {
		w := validate(t, func(*http.Request) {})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"success":false,"message":"Not authorized"}`, w.Body.String())
	})

	t.Run("garbage cookie", func(t *testing.T) {
		w := validate(t, func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"}) })
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("logout revokes", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
		r.AddCookie(cookie)
		h.LogoutHandler(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		cleared := sessionCookie(t, w)
		assert.Empty(t, cleared.Value)
		assert.Negative(t, cleared.MaxAge)

		w = validate(t, func(r *http.Request) { r.AddCookie(cookie) })
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("logout without session", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.LogoutHandler(w, httptest.NewRequest(http.MethodPost, "/admin/logout", nil))
		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireAuth(t *testing.T) {
	h := newTestHandlers(t)

	login := doLogin(t, h, `{"email":"admin@example.com","password":"correct-horse"}`)
	cookie := sessionCookie(t, login)

	var seen string
	protected := h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := SessionFromContext(r.Context())
		require.True(t, ok)
		seen = claims.Email
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("rejects", func(t *testing.T) {
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, seen)
	})

	t.Run("allows", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
		r.AddCookie(cookie)
		protected.ServeHTTP(w, r)
		require.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "admin@example.com", seen)
	})
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("short")
	require.Error(t, err)

	hash, err := HashPassword("long-enough")
	require.NoError(t, err)
	assert.NotEqual(t, "long-enough", hash)
}
