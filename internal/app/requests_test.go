package app_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ambulance_app/internal/app"
	"ambulance_app/internal/domain"
)

type fakeRequests struct {
	mu    sync.Mutex
	items []domain.AmbulanceRequest
	err   error
}

func (f *fakeRequests) CreateRequest(ctx context.Context, r domain.AmbulanceRequest) (domain.AmbulanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.AmbulanceRequest{}, f.err
	}
	r.ID = "req-" + strconv.Itoa(len(f.items)+1)
	f.items = append(f.items, r)
	return r, nil
}

func (f *fakeRequests) GetRequest(ctx context.Context, userID, id string) (domain.AmbulanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.items {
		if r.ID == id && r.UserID == userID {
			return r, nil
		}
	}
	return domain.AmbulanceRequest{}, domain.ErrNotFound
}

func (f *fakeRequests) ListRequests(ctx context.Context, userID string) ([]domain.AmbulanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AmbulanceRequest
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].UserID == userID {
			out = append(out, f.items[i])
		}
	}
	return out, nil
}

func (f *fakeRequests) UpdateRequestStatus(ctx context.Context, userID, id string, from, to domain.RequestStatus) (domain.AmbulanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.items {
		if r.ID == id && r.UserID == userID {
			if r.Status != from {
				return domain.AmbulanceRequest{}, domain.ErrConflict
			}
			f.items[i].Status = to
			return f.items[i], nil
		}
	}
	return domain.AmbulanceRequest{}, domain.ErrNotFound
}

func validRequest() app.NewRequest {
	return app.NewRequest{
		FacilityID:    "osm-node-1",
		FacilityName:  "Nairobi Hospital",
		Destination:   domain.Coordinate{Lat: -1.2955, Lon: 36.8046},
		Pickup:        nairobi,
		PaymentMethod: "Mobile_Money",
	}
}

func TestRequests_SubmitQuotesDistanceAndETA(t *testing.T) {
	repo := &fakeRequests{}
	s := app.NewRequestService(repo, 60)

	r, err := s.Submit(context.Background(), "u1", validRequest())
	require.NoError(t, err)
	assert.Equal(t, "req-1", r.ID)
	assert.Equal(t, domain.StatusPending, r.Status)
	assert.Equal(t, "1.7", r.Distance)
	assert.Equal(t, 2, r.ETAMinutes)
	assert.Equal(t, "mobile_money", r.PaymentMethod)
	assert.Equal(t, "general", r.EmergencyType)

	slow := app.NewRequestService(repo, 20)
	r, err = slow.Submit(context.Background(), "u1", validRequest())
	require.NoError(t, err)
	assert.Equal(t, 5, r.ETAMinutes)
}

func TestRequests_SubmitValidation(t *testing.T) {
	s := app.NewRequestService(&fakeRequests{}, 60)
	mutate := []func(*app.NewRequest){
		func(r *app.NewRequest) { r.FacilityID = "place-1" },
		func(r *app.NewRequest) { r.FacilityName = " " },
		func(r *app.NewRequest) { r.Pickup = domain.Coordinate{Lat: 95} },
		func(r *app.NewRequest) { r.Destination = domain.Coordinate{Lon: 200} },
		func(r *app.NewRequest) { r.PaymentMethod = "" },
		func(r *app.NewRequest) { r.PaymentMethod = "bitcoin" },
		func(r *app.NewRequest) { r.EmergencyType = "urgent-ish" },
	}
	for i, m := range mutate {
		in := validRequest()
		m(&in)
		_, err := s.Submit(context.Background(), "u1", in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "case %d", i)
	}
	_, err := s.Submit(context.Background(), "", validRequest())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRequests_SubmitStoreError(t *testing.T) {
	s := app.NewRequestService(&fakeRequests{err: errors.New("db down")}, 60)
	_, err := s.Submit(context.Background(), "u1", validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create request")
}

func TestRequests_ListAndGetAreScopedToUser(t *testing.T) {
	s := app.NewRequestService(&fakeRequests{}, 60)
	ctx := context.Background()

	empty, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	first, err := s.Submit(ctx, "u1", validRequest())
	require.NoError(t, err)
	second, err := s.Submit(ctx, "u1", validRequest())
	require.NoError(t, err)
	_, err = s.Submit(ctx, "u2", validRequest())
	require.NoError(t, err)

	list, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	got, err := s.Get(ctx, "u1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	_, err = s.Get(ctx, "u2", first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRequests_UpdateStatus(t *testing.T) {
	s := app.NewRequestService(&fakeRequests{}, 60)
	ctx := context.Background()
	r, err := s.Submit(ctx, "u1", validRequest())
	require.NoError(t, err)

	_, err = s.UpdateStatus(ctx, "u1", r.ID, "teleported")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.UpdateStatus(ctx, "u1", r.ID, "pending")
	assert.ErrorIs(t, err, domain.ErrConflict)

	done, err := s.UpdateStatus(ctx, "u1", r.ID, " Done ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, done.Status)

	_, err = s.UpdateStatus(ctx, "u1", r.ID, "canceled")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = s.UpdateStatus(ctx, "u1", "req-404", "done")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
