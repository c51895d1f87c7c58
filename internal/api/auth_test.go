package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktalk/internal/auth"
)

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)
	creds := map[string]string{"email": "ada@example.com", "password": "hunter2", "name": "Ada"}

	rec := env.do(t, "", "POST", "/api/auth/register", creds)
	require.Equal(t, 201, rec.Code, rec.Body.String())
	reg := decode[session](t, rec)
	assert.Equal(t, "ada@example.com", reg.User.Email)
	assert.NotEmpty(t, reg.Token)
	assert.NotContains(t, rec.Body.String(), "hunter2")
	assert.NotContains(t, rec.Body.String(), "passwordHash")
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	rec = env.do(t, "", "POST", "/api/auth/register", creds)
	assert.Equal(t, 409, rec.Code)

	rec = env.do(t, "", "POST", "/api/auth/register", map[string]string{"email": "x@example.com"})
	assert.Equal(t, 400, rec.Code)

	rec = env.do(t, "", "POST", "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "nope"})
	assert.Equal(t, 401, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")

	rec = env.do(t, "", "POST", "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "hunter2"})
	require.Equal(t, 200, rec.Code)
	login := decode[session](t, rec)

	// bearer header
	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	me := httptest.NewRecorder()
	env.server.ServeHTTP(me, req)
	require.Equal(t, 200, me.Code)
	assert.Equal(t, reg.User.ID, decode[session](t, me).User.ID)

	// cookie
	req = httptest.NewRequest("GET", "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: login.Token})
	me = httptest.NewRecorder()
	env.server.ServeHTTP(me, req)
	assert.Equal(t, 200, me.Code)
}

func TestMeForDeletedUser(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, "ghost", "GET", "/api/auth/me", nil)
	assert.Equal(t, 401, rec.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, "", "POST", "/api/auth/logout", nil)
	require.Equal(t, 200, rec.Code)
	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.True(t, c.MaxAge < 0 || strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0"))
}
