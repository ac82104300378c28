package domain

import "context"

// FacilityProvider is the external geospatial search service.
type FacilityProvider interface {
	FetchFacilities(ctx context.Context, q ProviderQuery) ([]RawFacilityRecord, error)
}

type FavoritesRepository interface {
	AddFavorite(ctx context.Context, f Favorite) (Favorite, error)
	RemoveFavorite(ctx context.Context, userID, facilityID string) error
	ListFavorites(ctx context.Context, userID string) ([]Favorite, error)
}

// RequestRepository stores ambulance requests. Lookups are scoped to the
// owning user; a request of another user is ErrNotFound.
type RequestRepository interface {
	CreateRequest(ctx context.Context, r AmbulanceRequest) (AmbulanceRequest, error)
	GetRequest(ctx context.Context, userID, id string) (AmbulanceRequest, error)
	ListRequests(ctx context.Context, userID string) ([]AmbulanceRequest, error)
	// UpdateRequestStatus moves the request from one status to another and
	// returns ErrConflict if it is no longer in from.
	UpdateRequestStatus(ctx context.Context, userID, id string, from, to RequestStatus) (AmbulanceRequest, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
