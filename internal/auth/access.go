package auth

import (
	"context"
	"errors"

	"ms-booking/internal/models"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

type contextKey string

const userKey contextKey = "user"

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom returns the authenticated user placed in the context by Middleware.
func UserFrom(ctx context.Context) (*models.User, error) {
	if u, ok := ctx.Value(userKey).(*models.User); ok && u != nil {
		return u, nil
	}
	return nil, ErrUnauthenticated
}

// RequireOwnerOrAdmin is the one capability check for booking-scoped operations.
func RequireOwnerOrAdmin(u *models.User, ownerID int64) error {
	if u == nil {
		return ErrUnauthenticated
	}
	if u.ID == ownerID || u.IsAdmin() {
		return nil
	}
	return ErrForbidden
}

func RequireAdmin(u *models.User) error {
	if u == nil {
		return ErrUnauthenticated
	}
	if !u.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// RequireStaff admits ADMIN, MODERATOR and SALESMAN.
func RequireStaff(u *models.User) error {
	if u == nil {
		return ErrUnauthenticated
	}
	if !u.IsStaff() {
		return ErrForbidden
	}
	return nil
}
