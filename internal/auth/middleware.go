package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
)

// UserLoader resolves verified identities to user rows. *store.Repo satisfies it.
type UserLoader interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Revocations is consulted for every request; nil disables the check.
type Revocations interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type identityKeyType struct{}

// Middleware authenticates the bearer token and puts the matching user into the request context.
func Middleware(verifier TokenVerifier, users UserLoader, revoked Revocations, log *logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			id, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("TOKEN_REJECTED", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			if revoked != nil {
				isRevoked, err := revoked.IsRevoked(r.Context(), id.TokenID)
				if err != nil {
					log.Error("AUTH", fmt.Sprintf("Revocation check failed: %v", err))
					http.Error(w, "authentication unavailable", http.StatusServiceUnavailable)
					return
				}
				if isRevoked {
					http.Error(w, "token revoked", http.StatusUnauthorized)
					return
				}
			}

			user, err := resolveUser(r.Context(), users, id)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					log.LogSecurity("UNKNOWN_USER", fmt.Sprintf("token for unknown user %d/%s", id.UserID, id.Email))
					http.Error(w, "unknown user", http.StatusUnauthorized)
					return
				}
				log.Error("AUTH", fmt.Sprintf("Failed to load user: %v", err))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			ctx := WithUser(r.Context(), user)
			ctx = context.WithValue(ctx, identityKeyType{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveUser(ctx context.Context, users UserLoader, id *Identity) (*models.User, error) {
	if id.UserID > 0 {
		return users.GetUser(ctx, id.UserID)
	}
	return users.GetUserByEmail(ctx, id.Email)
}

// IdentityFrom returns the verified token identity of the request, if any.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKeyType{}).(*Identity)
	return id, ok
}
