package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"ambulance_app/internal/adapters/observability"
	"ambulance_app/internal/domain"
	"ambulance_app/internal/geo"
)

// NewRequest is what a user submits when asking for transport to a
// facility picked from search results.
type NewRequest struct {
	FacilityID    string
	FacilityName  string
	Destination   domain.Coordinate
	Pickup        domain.Coordinate
	PaymentMethod string
	EmergencyType string
}

type RequestService struct {
	repo     domain.RequestRepository
	speedKmh float64
}

// NewRequestService wires request storage. speedKmh feeds the ETA quoted
// at submission; a non-positive value uses geo.DefaultAverageSpeedKmh.
func NewRequestService(r domain.RequestRepository, speedKmh float64) *RequestService {
	return &RequestService{repo: r, speedKmh: speedKmh}
}

// Submit validates in, quotes distance and ETA from pickup to destination,
// and stores a pending request.
func (s *RequestService) Submit(ctx context.Context, userID string, in NewRequest) (domain.AmbulanceRequest, error) {
	req, err := s.build(userID, in)
	if err != nil {
		return domain.AmbulanceRequest{}, err
	}

	out, err := s.repo.CreateRequest(ctx, req)
	if err != nil {
		return domain.AmbulanceRequest{}, fmt.Errorf("create request: %w", err)
	}
	observability.ObserveRequest(string(domain.StatusPending))
	log.Ctx(ctx).Info().
		Str("request", out.ID).
		Str("facility", out.FacilityID).
		Str("distance", out.Distance).
		Int("eta_minutes", out.ETAMinutes).
		Msg("ambulance request submitted")
	return out, nil
}

func (s *RequestService) build(userID string, in NewRequest) (domain.AmbulanceRequest, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.AmbulanceRequest{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	facilityID := strings.TrimSpace(in.FacilityID)
	if !strings.HasPrefix(facilityID, IDPrefix+"-") {
		return domain.AmbulanceRequest{}, fmt.Errorf("%w: facility id %q is not a provider id", domain.ErrInvalidInput, facilityID)
	}
	name := strings.TrimSpace(in.FacilityName)
	if name == "" {
		return domain.AmbulanceRequest{}, fmt.Errorf("%w: facility name is required", domain.ErrInvalidInput)
	}
	if err := in.Pickup.Validate(); err != nil {
		return domain.AmbulanceRequest{}, fmt.Errorf("%w: pickup %v", domain.ErrInvalidInput, err)
	}
	if err := in.Destination.Validate(); err != nil {
		return domain.AmbulanceRequest{}, fmt.Errorf("%w: destination %v", domain.ErrInvalidInput, err)
	}
	payment := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if !slices.Contains(domain.PaymentMethods, payment) {
		return domain.AmbulanceRequest{}, fmt.Errorf("%w: payment method %q", domain.ErrInvalidInput, in.PaymentMethod)
	}
	emergency := strings.ToLower(strings.TrimSpace(in.EmergencyType))
	if emergency == "" {
		emergency = domain.EmergencyTypes[0]
	}
	if !slices.Contains(domain.EmergencyTypes, emergency) {
		return domain.AmbulanceRequest{}, fmt.Errorf("%w: emergency type %q", domain.ErrInvalidInput, in.EmergencyType)
	}

	km := geo.DistanceKm(in.Pickup, in.Destination)
	return domain.AmbulanceRequest{
		UserID:        userID,
		FacilityID:    facilityID,
		FacilityName:  name,
		Pickup:        in.Pickup,
		Destination:   in.Destination,
		PaymentMethod: payment,
		EmergencyType: emergency,
		Distance:      geo.Distance(in.Pickup.Pair(), in.Destination.Pair()),
		ETAMinutes:    geo.ETAMinutes(km, s.speedKmh),
		Status:        domain.StatusPending,
	}, nil
}

func (s *RequestService) Get(ctx context.Context, userID, id string) (domain.AmbulanceRequest, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(id) == "" {
		return domain.AmbulanceRequest{}, fmt.Errorf("%w: user id and request id are required", domain.ErrInvalidInput)
	}
	r, err := s.repo.GetRequest(ctx, userID, id)
	if err != nil {
		return domain.AmbulanceRequest{}, fmt.Errorf("get request: %w", err)
	}
	return r, nil
}

// List returns the user's requests, newest first.
func (s *RequestService) List(ctx context.Context, userID string) ([]domain.AmbulanceRequest, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	out, err := s.repo.ListRequests(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	if out == nil {
		out = []domain.AmbulanceRequest{}
	}
	return out, nil
}

// UpdateStatus moves a pending request to done, rejected or canceled.
// Any other change is ErrConflict.
func (s *RequestService) UpdateStatus(ctx context.Context, userID, id, status string) (domain.AmbulanceRequest, error) {
	next := domain.RequestStatus(strings.ToLower(strings.TrimSpace(status)))
	switch next {
	case domain.StatusPending, domain.StatusDone, domain.StatusRejected, domain.StatusCanceled:
	default:
		return domain.AmbulanceRequest{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}

	cur, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.AmbulanceRequest{}, err
	}
	if !cur.Status.CanTransition(next) {
		return domain.AmbulanceRequest{}, fmt.Errorf("%w: request is %s, cannot become %s", domain.ErrConflict, cur.Status, next)
	}

	out, err := s.repo.UpdateRequestStatus(ctx, userID, id, cur.Status, next)
	if err != nil {
		return domain.AmbulanceRequest{}, fmt.Errorf("update request status: %w", err)
	}
	observability.ObserveRequest(string(next))
	return out, nil
}
