package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/auth"
	"ms-booking/internal/models"
	"ms-booking/internal/store/storetest"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestCapabilities(t *testing.T) {
	owner := &models.User{ID: 1, Role: models.RoleCustomer}
	other := &models.User{ID: 2, Role: models.RoleCustomer}
	admin := &models.User{ID: 3, Role: models.RoleAdmin}
	seller := &models.User{ID: 4, Role: models.RoleSalesman}

	assert.NoError(t, auth.RequireOwnerOrAdmin(owner, 1))
	assert.NoError(t, auth.RequireOwnerOrAdmin(admin, 1))
	assert.ErrorIs(t, auth.RequireOwnerOrAdmin(other, 1), auth.ErrForbidden)
	assert.ErrorIs(t, auth.RequireOwnerOrAdmin(nil, 1), auth.ErrUnauthenticated)

	assert.NoError(t, auth.RequireAdmin(admin))
	assert.ErrorIs(t, auth.RequireAdmin(seller), auth.ErrForbidden)

	assert.NoError(t, auth.RequireStaff(seller))
	assert.ErrorIs(t, auth.RequireStaff(owner), auth.ErrForbidden)
}

func TestJWTManager_IssueVerify(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Hour)
	token, exp, err := m.Issue(&models.User{ID: 17, Role: models.RoleCustomer})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	id, err := m.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(17), id.UserID)
	assert.NotEmpty(t, id.TokenID)

	_, err = auth.NewJWTManager("other", time.Hour).Verify(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestJWTManager_Expired(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Nanosecond)
	token, _, err := m.Issue(&models.User{ID: 1})
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = m.Verify(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestExtractTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := auth.ExtractTokenFromRequest(req)
	assert.Error(t, err)

	req.Header.Set("Authorization", "Bearer abc")
	tok, err := auth.ExtractTokenFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	req.Header.Set("Authorization", "Basic abc")
	_, err = auth.ExtractTokenFromRequest(req)
	assert.Error(t, err)
}

func TestLoginMiddlewareLogout(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	user := &models.User{Email: "Viewer@Example.com", PasswordHash: hash}
	require.NoError(t, s.Repo().CreateUser(ctx, user))

	client, _ := setupTestRedis(t)
	revoked := auth.NewRevocationList(client)
	tokens := auth.NewJWTManager("secret", time.Hour)
	login := auth.NewLoginService(s.Repo(), tokens, revoked, nil)

	_, err = login.Login(ctx, "viewer@example.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = login.Login(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	res, err := login.Login(ctx, " VIEWER@example.com ", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokens, s.Repo(), revoked, nil))
		r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			u, err := auth.UserFrom(r.Context())
			require.NoError(t, err)
			w.Write([]byte(u.Email))
		})
		r.Post("/logout", login.HandleLogout)
	})

	call := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/me", "garbage").Code)

	rec := call(http.MethodGet, "/me", res.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "viewer@example.com", rec.Body.String())

	assert.Equal(t, http.StatusNoContent, call(http.MethodPost, "/logout", res.Token).Code)
	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/me", res.Token).Code)
}

func TestRevocationList_Expires(t *testing.T) {
	client, mr := setupTestRedis(t)
	list := auth.NewRevocationList(client)
	ctx := context.Background()

	require.NoError(t, list.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))
	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(3 * time.Minute)
	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}
