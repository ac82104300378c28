package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ambulance_app/internal/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(s rowScanner) (domain.AmbulanceRequest, error) {
	var r domain.AmbulanceRequest
	var status string
	err := s.Scan(&r.ID, &r.UserID, &r.FacilityID, &r.FacilityName,
		&r.Pickup.Lat, &r.Pickup.Lon, &r.Destination.Lat, &r.Destination.Lon,
		&r.PaymentMethod, &r.EmergencyType, &r.Distance, &r.ETAMinutes, &status,
		&r.CreatedAt, &r.UpdatedAt)
	r.Status = domain.RequestStatus(status)
	return r, err
}

// CreateRequest stores r under a fresh id and returns the stored row.
func (r *Repo) CreateRequest(ctx context.Context, req domain.AmbulanceRequest) (domain.AmbulanceRequest, error) {
	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx, insertRequestSQL,
		id, req.UserID, req.FacilityID, req.FacilityName,
		req.Pickup.Lat, req.Pickup.Lon, req.Destination.Lat, req.Destination.Lon,
		req.PaymentMethod, req.EmergencyType, req.Distance, req.ETAMinutes, string(req.Status),
	); err != nil {
		return domain.AmbulanceRequest{}, fmt.Errorf("insert request: %w", err)
	}
	return r.GetRequest(ctx, req.UserID, id)
}

func (r *Repo) GetRequest(ctx context.Context, userID, id string) (domain.AmbulanceRequest, error) {
	out, err := scanRequest(r.db.QueryRowContext(ctx, getRequestSQL, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AmbulanceRequest{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.AmbulanceRequest{}, fmt.Errorf("read request: %w", err)
	}
	return out, nil
}

func (r *Repo) ListRequests(ctx context.Context, userID string) ([]domain.AmbulanceRequest, error) {
	rows, err := r.db.QueryContext(ctx, listRequestsSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.AmbulanceRequest, 0, 8)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateRequestStatus(ctx context.Context, userID, id string, from, to domain.RequestStatus) (domain.AmbulanceRequest, error) {
	res, err := r.db.ExecContext(ctx, updateRequestStatusSQL, string(to), userID, id, string(from))
	if err != nil {
		return domain.AmbulanceRequest{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.AmbulanceRequest{}, err
	}
	if n == 0 {
		// either gone or moved on since it was read
		if _, gerr := r.GetRequest(ctx, userID, id); gerr != nil {
			return domain.AmbulanceRequest{}, gerr
		}
		return domain.AmbulanceRequest{}, domain.ErrConflict
	}
	return r.GetRequest(ctx, userID, id)
}
