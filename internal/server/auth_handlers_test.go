package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"zeroai/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t, false)

	status, body := env.do(t, jsonRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "ada",
		"email":    "ada@example.com",
		"password": "secret123",
	}))
	require.Equal(t, http.StatusCreated, status, string(body))
	var created models.User
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "ada", created.Username)
	assert.NotContains(t, string(body), "secret123")
	assert.NotContains(t, string(body), `"password"`)

	status, body = env.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "secret123",
	}))
	require.Equal(t, http.StatusOK, status, string(body))
	var login struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &login))
	require.NotEmpty(t, login.Token)
	assert.Equal(t, created.ID, login.User.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	status, body = env.do(t, req)
	require.Equal(t, http.StatusOK, status, string(body))
	var me models.User
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, created.ID, me.ID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t, false)
	payload := map[string]string{"username": "ada", "email": "ada@example.com", "password": "secret123"}

	status, _ := env.do(t, jsonRequest(t, http.MethodPost, "/api/auth/register", payload))
	require.Equal(t, http.StatusCreated, status)

	status, body := env.do(t, jsonRequest(t, http.MethodPost, "/api/auth/register", payload))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeDuplicateEmail, decodeError(t, body).Code)
	assert.Equal(t, 1, env.users.Count())
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t, false)
	status, _ := env.do(t, jsonRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "ada", "email": "ada@example.com", "password": "secret123",
	}))
	require.Equal(t, http.StatusCreated, status)

	status, body := env.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ghost@example.com", "password": "secret123",
	}))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, models.CodeUserNotFound, decodeError(t, body).Code)

	status, body = env.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ada@example.com", "password": "wrong-password",
	}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeAuthenticationFailure, decodeError(t, body).Code)
}

func TestMe_RequiresToken(t *testing.T) {
	env := newTestEnv(t, false)

	status, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, status)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	status, _ = env.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestGetUser(t *testing.T) {
	env := newTestEnv(t, false)
	u := env.seedUser(t, "ada")

	status, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/users/"+u.ID, nil))
	require.Equal(t, http.StatusOK, status)
	var got models.User
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "ada", got.Username)

	status, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/users/unknown", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, models.CodeUserNotFound, decodeError(t, body).Code)
}
