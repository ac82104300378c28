package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ambulance_app/internal/app"
	"ambulance_app/internal/domain"
)

// gatedSearcher echoes the term back as a single result. Terms listed in
// gates block until their channel is closed; when honorCtx is set they
// return early on cancellation.
type gatedSearcher struct {
	mu       sync.Mutex
	gates    map[string]chan struct{}
	honorCtx bool
	terms    []string
	started  chan string
	err      error
}

func newGatedSearcher() *gatedSearcher {
	return &gatedSearcher{gates: map[string]chan struct{}{}, started: make(chan string, 16)}
}

func (g *gatedSearcher) Search(ctx context.Context, origin domain.Coordinate, term string) ([]domain.RankedFacility, error) {
	g.mu.Lock()
	g.terms = append(g.terms, term)
	gate := g.gates[term]
	err := g.err
	g.mu.Unlock()
	g.started <- term

	if gate != nil {
		if g.honorCtx {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		} else {
			<-gate
		}
	}
	if err != nil {
		return nil, err
	}
	return []domain.RankedFacility{{Facility: domain.Facility{Name: term}, Score: 80, Rank: 1}}, nil
}

func (g *gatedSearcher) Terms() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.terms...)
}

func waitStarted(t *testing.T, g *gatedSearcher, want string) {
	t.Helper()
	select {
	case got := <-g.started:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("search for %q never started", want)
	}
}

func TestLiveSearch_DebounceCoalesces(t *testing.T) {
	g := newGatedSearcher()
	l := app.NewLiveSearch(g, time.Hour, nil)
	defer l.Close()

	for _, term := range []string{"h", "ho", "hos", "hospital"} {
		l.Submit(nairobi, term)
	}
	l.Flush()

	assert.Equal(t, []string{"hospital"}, g.Terms())
	assert.Equal(t, uint64(1), l.Generation())
	res := l.Results()
	assert.Equal(t, "hospital", res.Term)
	require.Len(t, res.Facilities, 1)
	assert.Equal(t, uint64(1), res.Generation)
}

func TestLiveSearch_DiscardsStaleResult(t *testing.T) {
	g := newGatedSearcher()
	slow := make(chan struct{})
	g.gates["hos"] = slow

	var mu sync.Mutex
	var settled []string
	l := app.NewLiveSearch(g, 0, func(r app.SearchResult) {
		mu.Lock()
		settled = append(settled, r.Term)
		mu.Unlock()
	})
	defer l.Close()

	l.Submit(nairobi, "hos")
	waitStarted(t, g, "hos")

	l.Submit(nairobi, "hospital")
	waitStarted(t, g, "hospital")

	close(slow)
	l.Flush()

	assert.Equal(t, "hospital", l.Results().Term)
	assert.Equal(t, uint64(2), l.Results().Generation)
	assert.Equal(t, 1, l.Stale())
	mu.Lock()
	assert.Equal(t, []string{"hospital"}, settled)
	mu.Unlock()
}

func TestLiveSearch_CancelsInFlight(t *testing.T) {
	g := newGatedSearcher()
	g.honorCtx = true
	g.gates["slow"] = make(chan struct{}) // never closed

	l := app.NewLiveSearch(g, 0, nil)
	defer l.Close()

	l.Submit(nairobi, "slow")
	waitStarted(t, g, "slow")
	l.Submit(nairobi, "fast")
	waitStarted(t, g, "fast")
	l.Flush()

	res := l.Results()
	assert.Equal(t, "fast", res.Term)
	assert.NoError(t, res.Err)
	assert.Equal(t, 1, l.Stale())
}

func TestLiveSearch_ErrorSettles(t *testing.T) {
	g := newGatedSearcher()
	g.err = domain.NewFetchError(errors.New("boom"), false)
	l := app.NewLiveSearch(g, time.Hour, nil)
	defer l.Close()

	l.Submit(nairobi, "hospital")
	l.Flush()

	res := l.Results()
	assert.ErrorIs(t, res.Err, domain.ErrFacilityFetchFailed)
	assert.Equal(t, domain.UserMessage(res.Err), res.Message)
	assert.NotNil(t, res.Facilities)
	assert.Empty(t, res.Facilities)
}

func TestLiveSearch_Close(t *testing.T) {
	g := newGatedSearcher()
	l := app.NewLiveSearch(g, time.Hour, nil)

	assert.Empty(t, l.Results().Facilities)
	l.Submit(nairobi, "hospital")
	l.Close()
	l.Submit(nairobi, "clinic")
	l.Flush()

	assert.Empty(t, g.Terms())
	assert.Zero(t, l.Generation())
}

func TestLiveSearch_CloseDoesNotPublishCanceledSearch(t *testing.T) {
	p := &fakeProvider{block: true, records: nairobiRecords()}
	svc := app.NewSearchService(p, nil, app.DefaultSearchConfig())

	var mu sync.Mutex
	var settled []app.SearchResult
	l := app.NewLiveSearch(svc, 0, func(r app.SearchResult) {
		mu.Lock()
		settled = append(settled, r)
		mu.Unlock()
	})

	l.Submit(nairobi, "hospital")
	require.Eventually(t, func() bool { return p.Calls() == 1 }, 2*time.Second, 5*time.Millisecond)
	l.Close()

	mu.Lock()
	assert.Empty(t, settled)
	mu.Unlock()
	res := l.Results()
	assert.Empty(t, res.Message)
	assert.NoError(t, res.Err)
}
