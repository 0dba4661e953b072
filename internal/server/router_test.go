package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/auth"
	"ms-booking/internal/loyalty"
	"ms-booking/internal/loyalty/loyalty_api"
	"ms-booking/internal/models"
	"ms-booking/internal/server"
	"ms-booking/internal/store/storetest"
)

func newTestServer(t *testing.T) (http.Handler, *models.User) {
	st := storetest.New(t)
	hash, err := auth.HashPassword("s3cret!")
	require.NoError(t, err)
	user := &models.User{Email: "member@example.com", FullName: "Member", Role: models.RoleCustomer, PasswordHash: hash}
	require.NoError(t, st.Repo().CreateUser(context.Background(), user))

	mr := miniredis.RunT(t)
	revoked := auth.NewRevocationList(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	h := server.NewRouter(server.Deps{
		Verifier:    jwtManager,
		Users:       st.Repo(),
		Revocations: revoked,
		Login:       auth.NewLoginService(st.Repo(), jwtManager, revoked, nil),
		Loyalty:     loyalty_api.NewHandler(st, loyalty.NewEngine(nil), nil),
	})
	return h, user
}

func send(h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t)
	rec := send(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLoginThenLogout(t *testing.T) {
	h, user := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, send(h, http.MethodGet, "/api/loyalty/me", "", nil).Code)

	rec := send(h, http.MethodPost, "/api/auth/login", "", map[string]string{"email": user.Email, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = send(h, http.MethodPost, "/api/auth/login", "", map[string]string{"email": user.Email, "password": "s3cret!"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login auth.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	rec = send(h, http.MethodGet, "/api/loyalty/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, send(h, http.MethodPost, "/api/auth/logout", login.Token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, send(h, http.MethodGet, "/api/loyalty/me", login.Token, nil).Code)
}

func TestUnmountedHandlersAreNotRouted(t *testing.T) {
	h, user := newTestServer(t)
	rec := send(h, http.MethodPost, "/api/auth/login", "", map[string]string{"email": user.Email, "password": "s3cret!"})
	var login auth.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	assert.Equal(t, http.StatusNotFound, send(h, http.MethodGet, "/api/bookings/active", login.Token, nil).Code)
}
