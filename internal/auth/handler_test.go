package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sacsol/sacsol-api/internal/auth"
	"github.com/sacsol/sacsol-api/internal/shared"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func newTestService(t *testing.T, repo auth.Repository) (*auth.Service, *auth.TokenStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tokens := auth.NewTokenStore(client, time.Hour)
	return auth.NewService(repo, tokens), tokens
}

func activeUser(t *testing.T) *auth.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret1"), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.User{
		ID:           7,
		Email:        "ops@sacsol.test",
		Name:         "Ops",
		PasswordHash: string(hash),
		IsActive:     true,
		Roles:        []string{auth.RoleManager},
	}
}

func TestLoginIssuesToken(t *testing.T) {
	service, tokens := newTestService(t, &stubRepo{user: activeUser(t)})

	token, identity, err := service.Login(context.Background(), "ops@sacsol.test", "supersecret1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, int64(7), identity.UserID)
	require.Equal(t, []string{auth.RoleManager}, identity.Roles)

	resolved, err := tokens.Resolve(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, identity.UserID, resolved.UserID)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	service, _ := newTestService(t, &stubRepo{user: activeUser(t)})

	_, _, err := service.Login(context.Background(), "ops@sacsol.test", "wrongpassword")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	user := activeUser(t)
	user.IsActive = false
	service, _ := newTestService(t, &stubRepo{user: user})

	_, _, err := service.Login(context.Background(), "ops@sacsol.test", "supersecret1")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	service, tokens := newTestService(t, &stubRepo{user: activeUser(t)})

	token, _, err := service.Login(context.Background(), "ops@sacsol.test", "supersecret1")
	require.NoError(t, err)
	require.NoError(t, service.Logout(context.Background(), token))

	_, err = tokens.Resolve(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestMiddlewareResolvesIdentity(t *testing.T) {
	service, tokens := newTestService(t, &stubRepo{user: activeUser(t)})
	token, _, err := service.Login(context.Background(), "ops@sacsol.test", "supersecret1")
	require.NoError(t, err)

	var got *shared.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = shared.IdentityFromContext(r.Context())
	})
	req := httptest.NewRequest(http.MethodGet, "/procurement/lpos", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()

	auth.Middleware(tokens)(next).ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, got)
	require.Equal(t, int64(7), got.UserID)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	_, tokens := newTestService(t, &stubRepo{})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	})
	req := httptest.NewRequest(http.MethodGet, "/procurement/lpos", nil)
	res := httptest.NewRecorder()

	auth.Middleware(tokens)(next).ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.True(t, strings.Contains(res.Body.String(), "Unauthorized"))
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("role present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/procurement/lpos/1/approve", nil)
		ctx := shared.ContextWithIdentity(req.Context(), &shared.Identity{UserID: 1, Roles: []string{auth.RoleManager}})
		res := httptest.NewRecorder()
		auth.RequireRole(auth.RoleManager)(next).ServeHTTP(res, req.WithContext(ctx))
		require.Equal(t, http.StatusOK, res.Code)
	})

	t.Run("superuser bypasses", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/procurement/lpos/1/approve", nil)
		ctx := shared.ContextWithIdentity(req.Context(), &shared.Identity{UserID: 1, IsSuperuser: true})
		res := httptest.NewRecorder()
		auth.RequireRole(auth.RoleManager)(next).ServeHTTP(res, req.WithContext(ctx))
		require.Equal(t, http.StatusOK, res.Code)
	})

	t.Run("role missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/procurement/lpos/1/approve", nil)
		ctx := shared.ContextWithIdentity(req.Context(), &shared.Identity{UserID: 1, Roles: []string{auth.RoleStaff}})
		res := httptest.NewRecorder()
		auth.RequireRole(auth.RoleManager)(next).ServeHTTP(res, req.WithContext(ctx))
		require.Equal(t, http.StatusForbidden, res.Code)
	})
}
