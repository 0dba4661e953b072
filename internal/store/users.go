package store

import (
	"context"
	"strings"
	"time"

	"ms-booking/internal/models"
)

func (r *Repo) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = models.RoleCustomer
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NewInsert().Model(u).Exec(ctx)
	return wrap(err, "create user")
}

func (r *Repo) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := r.db.NewSelect().
		Model(&u).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "get user")
	}
	return &u, nil
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.NewSelect().
		Model(&u).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "get user by email")
	}
	return &u, nil
}
