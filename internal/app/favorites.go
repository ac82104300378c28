package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ambulance_app/internal/domain"
)

type FavoritesService struct {
	repo     domain.FavoritesRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

// NewFavoritesService wires the favorites store. cache may be nil.
func NewFavoritesService(r domain.FavoritesRepository, c domain.Cache, ttl time.Duration) *FavoritesService {
	return &FavoritesService{repo: r, cache: c, cacheTTL: ttl}
}

func favoritesKey(userID string) string { return "favorites:" + userID }

func (s *FavoritesService) Add(ctx context.Context, userID, facilityID, name string) (domain.Favorite, error) {
	userID, facilityID = strings.TrimSpace(userID), strings.TrimSpace(facilityID)
	if userID == "" {
		return domain.Favorite{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if !strings.HasPrefix(facilityID, IDPrefix+"-") {
		return domain.Favorite{}, fmt.Errorf("%w: facility id %q is not a provider id", domain.ErrInvalidInput, facilityID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Favorite{}, fmt.Errorf("%w: facility name is required", domain.ErrInvalidInput)
	}

	f, err := s.repo.AddFavorite(ctx, domain.Favorite{UserID: userID, FacilityID: facilityID, Name: name})
	if err != nil {
		return domain.Favorite{}, fmt.Errorf("add favorite: %w", err)
	}
	s.invalidate(ctx, userID)
	return f, nil
}

func (s *FavoritesService) Remove(ctx context.Context, userID, facilityID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(facilityID) == "" {
		return fmt.Errorf("%w: user id and facility id are required", domain.ErrInvalidInput)
	}
	if err := s.repo.RemoveFavorite(ctx, userID, facilityID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *FavoritesService) List(ctx context.Context, userID string) ([]domain.Favorite, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	key := favoritesKey(userID)
	if s.cache != nil {
		var cached []domain.Favorite
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	favs, err := s.repo.ListFavorites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	if favs == nil {
		favs = []domain.Favorite{}
	}
	if s.cache != nil && s.cacheTTL > 0 {
		_ = s.cache.Set(ctx, key, favs, int(s.cacheTTL.Seconds()))
	}
	return favs, nil
}

func (s *FavoritesService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, favoritesKey(userID)); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("favorites cache invalidation failed")
	}
}

// FacilityService is the application-facing search: the pipeline result
// with the caller's favorites flagged. The pipeline itself never sees
// favorites.
type FacilityService struct {
	search    *SearchService
	favorites *FavoritesService
}

func NewFacilityService(s *SearchService, f *FavoritesService) *FacilityService {
	return &FacilityService{search: s, favorites: f}
}

// SearchForUser settles a search and marks facilities the user has saved.
// A favorites lookup failure leaves the results unflagged.
func (s *FacilityService) SearchForUser(ctx context.Context, userID string, origin domain.Coordinate, term string) SearchResult {
	res := s.search.Settle(ctx, origin, term)
	if res.Err != nil || userID == "" || s.favorites == nil || len(res.Facilities) == 0 {
		return res
	}

	favs, err := s.favorites.List(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("favorites lookup failed; returning unflagged results")
		return res
	}
	MarkFavorites(res.Facilities, favs)
	return res
}

// MarkFavorites sets Favorite on every facility whose ID appears in favs.
func MarkFavorites(facilities []domain.RankedFacility, favs []domain.Favorite) {
	saved := make(map[string]struct{}, len(favs))
	for _, f := range favs {
		saved[f.FacilityID] = struct{}{}
	}
	for i := range facilities {
		if _, ok := saved[facilities[i].ID]; ok {
			facilities[i].Favorite = true
		}
	}
}
