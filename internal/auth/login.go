package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// LoginService checks passwords and issues access tokens.
type LoginService struct {
	Users   UserLoader
	Tokens  *JWTManager
	Revoked *RevocationList
	Logger  *logger.Logger
}

func NewLoginService(users UserLoader, tokens *JWTManager, revoked *RevocationList, log *logger.Logger) *LoginService {
	if log == nil {
		log = logger.NewNop()
	}
	return &LoginService{Users: users, Tokens: tokens, Revoked: revoked, Logger: log}
}

func (s *LoginService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.Users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("bad password for user %d", user.ID))
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.Tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("AUTH", fmt.Sprintf("User %d logged in", user.ID))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout revokes the token of the current request.
func (s *LoginService) Logout(ctx context.Context) error {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if s.Revoked == nil {
		return nil
	}
	return s.Revoked.Revoke(ctx, id.TokenID, id.ExpiresAt)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *LoginService) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	res, err := s.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.Logger.Error("AUTH", fmt.Sprintf("Login failed: %v", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (s *LoginService) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.Logout(r.Context()); err != nil {
		s.Logger.Error("AUTH", fmt.Sprintf("Logout failed: %v", err))
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
