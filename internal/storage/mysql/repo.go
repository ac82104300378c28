package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ambulance_app/internal/domain"
)

const maxReasonLen = 512

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// AddFavorite saves f for its user. Saving a facility twice returns the
// original row with the new name.
func (r *Repo) AddFavorite(ctx context.Context, f domain.Favorite) (domain.Favorite, error) {
	if _, err := r.db.ExecContext(ctx, upsertFavoriteSQL, uuid.NewString(), f.UserID, f.FacilityID, f.Name); err != nil {
		return domain.Favorite{}, fmt.Errorf("upsert favorite: %w", err)
	}

	var out domain.Favorite
	row := r.db.QueryRowContext(ctx, getFavoriteSQL, f.UserID, f.FacilityID)
	if err := row.Scan(&out.ID, &out.UserID, &out.FacilityID, &out.Name, &out.CreatedAt); err != nil {
		return domain.Favorite{}, fmt.Errorf("read favorite: %w", err)
	}
	return out, nil
}

func (r *Repo) RemoveFavorite(ctx context.Context, userID, facilityID string) error {
	res, err := r.db.ExecContext(ctx, deleteFavoriteSQL, userID, facilityID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	rows, err := r.db.QueryContext(ctx, listFavoritesSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Favorite, 0, 8)
	for rows.Next() {
		var f domain.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.FacilityID, &f.Name, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return out, nil
}

// LogFetchFailure records a provider fetch that failed for origin, for
// later inspection of coverage gaps.
func (r *Repo) LogFetchFailure(ctx context.Context, origin domain.Coordinate, radiusMeters int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertFetchFailureSQL, origin.Lat, origin.Lon, radiusMeters, truncateRunes(reason, maxReasonLen))
	return err
}

// truncateRunes cuts s to at most max characters without splitting a
// UTF-8 sequence. The column is sized in characters, not bytes.
func truncateRunes(s string, max int) string {
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
