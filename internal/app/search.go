package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ambulance_app/internal/adapters/observability"
	"ambulance_app/internal/domain"
	"ambulance_app/internal/geo"
)

const (
	DefaultRadiusMeters = 10_000
	DefaultMaxResults   = 5
	DefaultTimeout      = 15 * time.Second
	DefaultLang         = "en"
)

type SearchConfig struct {
	RadiusMeters int
	MaxResults   int
	Timeout      time.Duration
	Lang         string
	CacheTTL     time.Duration
	Filters      []domain.TagFilter
}

func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		RadiusMeters: DefaultRadiusMeters,
		MaxResults:   DefaultMaxResults,
		Timeout:      DefaultTimeout,
		Lang:         DefaultLang,
		Filters:      domain.MedicalFilters,
	}
}

func (c SearchConfig) withDefaults() SearchConfig {
	d := DefaultSearchConfig()
	if c.RadiusMeters <= 0 {
		c.RadiusMeters = d.RadiusMeters
	}
	if c.MaxResults <= 0 {
		c.MaxResults = d.MaxResults
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Lang == "" {
		c.Lang = d.Lang
	}
	if len(c.Filters) == 0 {
		c.Filters = d.Filters
	}
	return c
}

// SearchResult is the settled outcome of one search: either ranked
// facilities or a user-facing error message with no facilities.
type SearchResult struct {
	Generation uint64                  `json:"generation"`
	Term       string                  `json:"term"`
	Facilities []domain.RankedFacility `json:"facilities"`
	Message    string                  `json:"error,omitempty"`
	Err        error                   `json:"-"`
}

func settle(term string, facilities []domain.RankedFacility, err error) SearchResult {
	if err != nil {
		return SearchResult{Term: term, Facilities: []domain.RankedFacility{}, Message: domain.UserMessage(err), Err: err}
	}
	if facilities == nil {
		facilities = []domain.RankedFacility{}
	}
	return SearchResult{Term: term, Facilities: facilities}
}

// SearchService turns a position and a free-text term into a short,
// ranked list of nearby medical facilities.
type SearchService struct {
	provider domain.FacilityProvider
	cache    domain.Cache
	cfg      SearchConfig
}

// NewSearchService wires the pipeline. cache may be nil.
func NewSearchService(p domain.FacilityProvider, c domain.Cache, cfg SearchConfig) *SearchService {
	return &SearchService{provider: p, cache: c, cfg: cfg.withDefaults()}
}

func (s *SearchService) Config() SearchConfig { return s.cfg }

// Search validates origin, fetches provider records, and returns at most
// MaxResults facilities sorted by descending score then ascending distance.
// An empty term yields no results and no provider call.
func (s *SearchService) Search(ctx context.Context, origin domain.Coordinate, term string) (_ []domain.RankedFacility, err error) {
	defer observability.Time(ctx, "search.Search")(&err)
	start := time.Now()

	if verr := origin.Validate(); verr != nil {
		observability.ObserveSearch("invalid", time.Since(start))
		return nil, fmt.Errorf("%w: origin %v", domain.ErrInvalidInput, verr)
	}

	term = strings.TrimSpace(term)
	if term == "" {
		observability.ObserveSearch("empty", time.Since(start))
		return []domain.RankedFacility{}, nil
	}

	records, cached, err := s.fetch(ctx, origin)
	if err != nil {
		outcome := "fetch_failed"
		switch {
		case errors.Is(err, context.Canceled):
			outcome = "canceled"
		case errors.Is(err, domain.ErrTimeout):
			outcome = "timeout"
		}
		observability.ObserveSearch(outcome, time.Since(start))
		return nil, err
	}

	facilities := NormalizeFacilities(records, origin, NormalizeOptions{Lang: s.cfg.Lang})
	if cached {
		facilities = withinRadius(facilities, origin, s.cfg.RadiusMeters)
	}
	facilities = Deduplicate(facilities)
	ranked := Rank(facilities, term, s.cfg.MaxResults)

	outcome := "ok"
	if len(ranked) == 0 {
		outcome = "empty"
	}
	observability.ObserveSearch(outcome, time.Since(start))

	log.Debug().
		Str("origin", origin.String()).
		Str("term", term).
		Int("records", len(records)).
		Int("unique", len(facilities)).
		Int("results", len(ranked)).
		Msg("facility search")
	return ranked, nil
}

// Settle runs Search and folds any failure into the returned state so the
// caller is always left with a usable result.
func (s *SearchService) Settle(ctx context.Context, origin domain.Coordinate, term string) SearchResult {
	facilities, err := s.Search(ctx, origin, term)
	return settle(term, facilities, err)
}

// Warm fetches and caches provider records for origin, returning how many
// records were stored.
func (s *SearchService) Warm(ctx context.Context, origin domain.Coordinate) (int, error) {
	if err := origin.Validate(); err != nil {
		return 0, fmt.Errorf("%w: origin %v", domain.ErrInvalidInput, err)
	}
	records, err := s.fetchProvider(ctx, origin)
	if err != nil {
		return 0, err
	}
	s.store(ctx, origin, records)
	return len(records), nil
}

// fetch reports whether the records came from the cache, in which case
// they were fetched around a nearby point rather than origin itself.
func (s *SearchService) fetch(ctx context.Context, origin domain.Coordinate) ([]domain.RawFacilityRecord, bool, error) {
	key := s.cacheKey(origin)
	if s.cache != nil {
		var cached []domain.RawFacilityRecord
		if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("facility cache read failed")
		} else if ok {
			return cached, true, nil
		}
	}

	records, err := s.fetchProvider(ctx, origin)
	if err != nil {
		return nil, false, err
	}
	s.store(ctx, origin, records)
	return records, false, nil
}

// withinRadius drops facilities farther than radiusMeters from origin.
// Facilities without a known position are kept.
func withinRadius(facilities []domain.Facility, origin domain.Coordinate, radiusMeters int) []domain.Facility {
	limit := float64(radiusMeters) / 1000
	out := facilities[:0]
	for _, f := range facilities {
		if f.PositionUnknown || geo.DistanceKm(origin, f.Coordinate) <= limit {
			out = append(out, f)
		}
	}
	return out
}

// fetchProvider bounds the provider call by the configured timeout. No
// retry happens here; callers re-invoke Search.
// A search abandoned by its caller returns the bare context.Canceled error,
// not a FetchError.
func (s *SearchService) fetchProvider(parent context.Context, origin domain.Coordinate) ([]domain.RawFacilityRecord, error) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.Timeout)
	defer cancel()

	records, err := s.provider.FetchFacilities(ctx, domain.ProviderQuery{
		Origin:       origin,
		RadiusMeters: s.cfg.RadiusMeters,
		Filters:      s.cfg.Filters,
	})
	if err != nil {
		if errors.Is(parent.Err(), context.Canceled) {
			return nil, fmt.Errorf("facility fetch: %w", context.Canceled)
		}
		timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
		return nil, domain.NewFetchError(err, timeout)
	}
	return records, nil
}

func (s *SearchService) store(ctx context.Context, origin domain.Coordinate, records []domain.RawFacilityRecord) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	key := s.cacheKey(origin)
	if err := s.cache.Set(ctx, key, records, int(s.cfg.CacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("facility cache write failed")
	}
}

// cacheKey rounds the origin to three decimals (~110 m) so nearby searches
// share provider results.
func (s *SearchService) cacheKey(origin domain.Coordinate) string {
	return fmt.Sprintf("facilities:%.3f:%.3f:%d", origin.Lat, origin.Lon, s.cfg.RadiusMeters)
}
