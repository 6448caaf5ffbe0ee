package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nexusdb/nexusdb/internal/api/handler"
	"github.com/nexusdb/nexusdb/internal/auth"
	"github.com/nexusdb/nexusdb/internal/user"
)

type mockUserRepo struct {
	createFn     func(ctx context.Context, u *user.User) error
	getByEmailFn func(ctx context.Context, email string) (*user.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u *user.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	u.ID = 1
	u.CreatedAt = time.Now().UTC()
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return nil, user.ErrNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, user.ErrNotFound
}

func newAuthHandler(repo user.Repository) *handler.AuthHandler {
	svc := auth.NewService(repo, "test-secret", time.Hour, bcrypt.MinCost)
	return handler.NewAuthHandler(svc)
}

func TestRegister_Success(t *testing.T) {
	h := newAuthHandler(&mockUserRepo{})

	body, err := json.Marshal(map[string]string{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "hunter2-hunter2",
	})
	require.NoError(t, err)

	req, w := makeRequest(http.MethodPost, "/auth/register", body, nil, nil)
	h.Register(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	env := parseEnvelope(t, w)
	data := env["data"].(map[string]any)
	assert.Equal(t, "ada@example.com", data["email"])
	assert.Equal(t, "student", data["role"])

	// Neither the password nor its hash may leak in the response.
	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.NotContains(t, w.Body.String(), "passwordHash")
}

func TestRegister_RequestedRoleIgnored(t *testing.T) {
	var stored *user.User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, u *user.User) error {
			u.ID = 7
			u.CreatedAt = time.Now().UTC()
			stored = u
			return nil
		},
	}
	h := newAuthHandler(repo)

	body, err := json.Marshal(map[string]string{
		"name":     "Mallory",
		"email":    "mallory@example.com",
		"password": "hunter2-hunter2",
		"role":     "admin",
	})
	require.NoError(t, err)

	req, w := makeRequest(http.MethodPost, "/auth/register", body, nil, nil)
	h.Register(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	env := parseEnvelope(t, w)
	assert.Equal(t, "student", env["data"].(map[string]any)["role"])

	require.NotNil(t, stored)
	assert.Equal(t, user.RoleStudent, stored.Role)
	assert.False(t, (&auth.Identity{UserID: stored.ID, Role: stored.Role}).IsAdmin())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, u *user.User) error {
			return user.ErrDuplicateEmail
		},
	}
	h := newAuthHandler(repo)

	body, err := json.Marshal(map[string]string{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "hunter2-hunter2",
	})
	require.NoError(t, err)

	req, w := makeRequest(http.MethodPost, "/auth/register", body, nil, nil)
	h.Register(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	env := parseEnvelope(t, w)
	assert.Equal(t, "DUPLICATE_EMAIL", env["error"].(map[string]any)["code"])
}

func TestRegister_ValidationError(t *testing.T) {
	h := newAuthHandler(&mockUserRepo{})

	body, err := json.Marshal(map[string]string{
		"name":     "",
		"email":    "not-an-email",
		"password": "short",
	})
	require.NoError(t, err)

	req, w := makeRequest(http.MethodPost, "/auth/register", body, nil, nil)
	h.Register(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_Success(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2-hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &mockUserRepo{
		getByEmailFn: func(ctx context.Context, email string) (*user.User, error) {
			return &user.User{ID: 42, Email: email, PasswordHash: string(hash), Role: user.RoleStudent}, nil
		},
	}
	h := newAuthHandler(repo)

	body, err := json.Marshal(map[string]string{
		"email":    "ada@example.com",
		"password": "hunter2-hunter2",
	})
	require.NoError(t, err)

	req, w := makeRequest(http.MethodPost, "/auth/login", body, nil, nil)
	h.Login(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := parseEnvelope(t, w)
	assert.NotEmpty(t, env["data"].(map[string]any)["token"])
}

func TestLogin_BadCredentials(t *testing.T) {
	h := newAuthHandler(&mockUserRepo{})

	body, err := json.Marshal(map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever",
	})
	require.NoError(t, err)

	req, w := makeRequest(http.MethodPost, "/auth/login", body, nil, nil)
	h.Login(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	env := parseEnvelope(t, w)
	assert.Equal(t, "UNAUTHORIZED", env["error"].(map[string]any)["code"])
}
