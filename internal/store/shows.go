package store

import (
	"context"

	"ms-booking/internal/models"
)

func (r *Repo) CreateMovie(ctx context.Context, m *models.Movie) error {
	_, err := r.db.NewInsert().Model(m).Exec(ctx)
	return wrap(err, "create movie")
}

func (r *Repo) CreateTheater(ctx context.Context, t *models.Theater) error {
	_, err := r.db.NewInsert().Model(t).Exec(ctx)
	return wrap(err, "create theater")
}

func (r *Repo) CreateShow(ctx context.Context, s *models.Show) error {
	_, err := r.db.NewInsert().Model(s).Exec(ctx)
	return wrap(err, "create show")
}

// GetShow → plain read of a show row
func (r *Repo) GetShow(ctx context.Context, id int64) (*models.Show, error) {
	var show models.Show
	err := r.db.NewSelect().
		Model(&show).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "get show")
	}
	return &show, nil
}

// LockShow → select_for_update on a show row
func (r *Repo) LockShow(ctx context.Context, id int64) (*models.Show, error) {
	var show models.Show
	err := r.forUpdate(r.db.NewSelect().
		Model(&show).
		Where("id = ?", id)).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "lock show")
	}
	return &show, nil
}

func (r *Repo) UpdateShowSeats(ctx context.Context, show *models.Show) error {
	_, err := r.db.NewUpdate().
		Model(show).
		Column("available_seats").
		WherePK().
		Exec(ctx)
	return wrap(err, "update show seats")
}
