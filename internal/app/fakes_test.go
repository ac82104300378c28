package app_test

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"ambulance_app/internal/domain"
)

// ---- fakes ----

type fakeProvider struct {
	mu      sync.Mutex
	records []domain.RawFacilityRecord
	err     error
	block   bool // wait for ctx instead of answering
	calls   int
	last    domain.ProviderQuery
}

func (p *fakeProvider) FetchFacilities(ctx context.Context, q domain.ProviderQuery) ([]domain.RawFacilityRecord, error) {
	p.mu.Lock()
	p.calls++
	p.last = q
	block, recs, err := p.block, p.records, p.err
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return recs, err
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeCache round-trips through JSON so hits behave like the Redis adapter.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	dels  []string
	err   error
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok
}

type fakeFavorites struct {
	mu    sync.Mutex
	byKey map[string]domain.Favorite
	err   error
	lists int
}

func newFakeFavorites() *fakeFavorites {
	return &fakeFavorites{byKey: map[string]domain.Favorite{}}
}

func (r *fakeFavorites) AddFavorite(ctx context.Context, f domain.Favorite) (domain.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return domain.Favorite{}, r.err
	}
	key := f.UserID + "/" + f.FacilityID
	if prev, ok := r.byKey[key]; ok {
		prev.Name = f.Name
		r.byKey[key] = prev
		return prev, nil
	}
	f.ID = "fav-" + key
	r.byKey[key] = f
	return f, nil
}

func (r *fakeFavorites) RemoveFavorite(ctx context.Context, userID, facilityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	key := userID + "/" + facilityID
	if _, ok := r.byKey[key]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byKey, key)
	return nil
}

func (r *fakeFavorites) ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.Favorite
	for _, f := range r.byKey {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FacilityID < out[j].FacilityID })
	return out, nil
}

// ---- record builders ----

func node(id int64, name string, lat, lon float64, tags ...string) domain.RawFacilityRecord {
	t := map[string]string{"amenity": "hospital"}
	if name != "" {
		t["name"] = name
	}
	for i := 0; i+1 < len(tags); i += 2 {
		t[tags[i]] = tags[i+1]
	}
	return domain.RawFacilityRecord{Type: "node", ID: id, Tags: t, Lat: &lat, Lon: &lon}
}

func way(id int64, name string, lat, lon float64) domain.RawFacilityRecord {
	return domain.RawFacilityRecord{
		Type:   "way",
		ID:     id,
		Tags:   map[string]string{"amenity": "hospital", "name": name},
		Center: &domain.Coordinate{Lat: lat, Lon: lon},
	}
}

var nairobi = domain.Coordinate{Lat: -1.2864, Lon: 36.8172}
