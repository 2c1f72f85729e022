package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tradejournal/src/auth"
	"tradejournal/src/model"
	"tradejournal/src/repository"
)

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestLoginHandler(t *testing.T) {
	sessions := auth.NewSessions("secret", time.Hour, false)
	users := &mockUsers{users: map[string]*model.User{
		"trader": {ID: 42, Username: "trader", Password: hashed(t, "hunter22")},
	}}

	t.Run("form", func(t *testing.T) {
		rr := httptest.NewRecorder()
		LoginHandler(users, sessions, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `name="password"`)
	})

	t.Run("valid credentials", func(t *testing.T) {
		rr := httptest.NewRecorder()
		LoginHandler(users, sessions, nil).ServeHTTP(rr, postForm("/login", url.Values{"username": {"trader"}, "password": {"hunter22"}}))

		require.Equal(t, http.StatusSeeOther, rr.Code)
		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookies[0])
		id, err := sessions.UserID(req)
		require.NoError(t, err)
		assert.Equal(t, uint(42), id)
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := httptest.NewRecorder()
		LoginHandler(users, sessions, nil).ServeHTTP(rr, postForm("/login", url.Values{"username": {"trader"}, "password": {"nope"}}))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Empty(t, rr.Result().Cookies())
	})

	t.Run("plaintext stored password is not accepted", func(t *testing.T) {
		legacy := &mockUsers{users: map[string]*model.User{"old": {ID: 1, Username: "old", Password: "123"}}}
		rr := httptest.NewRecorder()
		LoginHandler(legacy, sessions, nil).ServeHTTP(rr, postForm("/login", url.Values{"username": {"old"}, "password": {"123"}}))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rr := httptest.NewRecorder()
		LoginHandler(users, sessions, nil).ServeHTTP(rr, postForm("/login", url.Values{"username": {"ghost"}, "password": {"x"}}))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRegisterHandler(t *testing.T) {
	t.Run("creates user with hashed password", func(t *testing.T) {
		users := &mockUsers{}
		rr := httptest.NewRecorder()

		RegisterHandler(users, nil).ServeHTTP(rr, postForm("/register", url.Values{"username": {" newbie "}, "password": {"secret1"}}))

		require.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/login", rr.Header().Get("Location"))
		require.NotNil(t, users.created)
		assert.Equal(t, "newbie", users.created.Username)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.created.Password), []byte("secret1")))
	})

	t.Run("duplicate username", func(t *testing.T) {
		users := &mockUsers{err: repository.ErrUsernameTaken}
		rr := httptest.NewRecorder()

		RegisterHandler(users, nil).ServeHTTP(rr, postForm("/register", url.Values{"username": {"trader"}, "password": {"secret1"}}))

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Contains(t, rr.Body.String(), "already taken")
	})

	t.Run("short password", func(t *testing.T) {
		users := &mockUsers{}
		rr := httptest.NewRecorder()

		RegisterHandler(users, nil).ServeHTTP(rr, postForm("/register", url.Values{"username": {"trader"}, "password": {"123"}}))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Nil(t, users.created)
	})
}

func TestLogoutHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	LogoutHandler(auth.NewSessions("secret", time.Hour, false)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/logout", nil))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	require.Len(t, rr.Result().Cookies(), 1)
	assert.Equal(t, -1, rr.Result().Cookies()[0].MaxAge)
}

func TestChangePasswordHandler(t *testing.T) {
	newRequest := func(body string) *http.Request {
		user := &model.User{ID: 42, Username: "trader", Password: hashed(t, "current1")}
		req := httptest.NewRequest(http.MethodPost, "/api/account/password", strings.NewReader(body))
		return withUser(req, user, nil)
	}

	t.Run("updates password", func(t *testing.T) {
		users := &mockUsers{}
		rr := httptest.NewRecorder()

		ChangePasswordHandler(users, nil).ServeHTTP(rr, newRequest(`{"current_password":"current1","new_password":"changed1"}`))

		require.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, users.updated)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.updated.Password), []byte("changed1")))
	})

	t.Run("wrong current password", func(t *testing.T) {
		users := &mockUsers{}
		rr := httptest.NewRecorder()

		ChangePasswordHandler(users, nil).ServeHTTP(rr, newRequest(`{"current_password":"guess","new_password":"changed1"}`))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Nil(t, users.updated)
	})

	t.Run("unknown fields", func(t *testing.T) {
		rr := httptest.NewRecorder()
		ChangePasswordHandler(&mockUsers{}, nil).ServeHTTP(rr, newRequest(`{"password":"x"}`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestCurrentUserHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	CurrentUserHandler().ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/api/me", nil), trader, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"username":"trader"`)
	assert.NotContains(t, rr.Body.String(), "password")
}
