package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"ambulance_app/internal/adapters/observability"
	"ambulance_app/internal/domain"
)

const DefaultDebounce = 500 * time.Millisecond

// Searcher is the pipeline as seen by LiveSearch.
type Searcher interface {
	Search(ctx context.Context, origin domain.Coordinate, term string) ([]domain.RankedFacility, error)
}

type pendingSearch struct {
	origin domain.Coordinate
	term   string
}

// LiveSearch owns the "current results" of an interactive search box.
// Submissions are debounced; each dispatched search gets a generation
// number, and only the result of the latest generation is published.
// A newer dispatch cancels the in-flight one.
type LiveSearch struct {
	searcher Searcher
	debounce time.Duration
	onSettle func(SearchResult)

	mu      sync.Mutex
	idle    *sync.Cond
	timer   *time.Timer
	pending *pendingSearch
	gen     uint64
	cancel  context.CancelFunc
	busy    int
	stale   int
	current SearchResult
	closed  bool
}

// NewLiveSearch returns a LiveSearch. onSettle, if set, is called with each
// published result from the goroutine that ran the search.
func NewLiveSearch(s Searcher, debounce time.Duration, onSettle func(SearchResult)) *LiveSearch {
	if debounce < 0 {
		debounce = 0
	}
	l := &LiveSearch{
		searcher: s,
		debounce: debounce,
		onSettle: onSettle,
		current:  SearchResult{Facilities: []domain.RankedFacility{}},
	}
	l.idle = sync.NewCond(&l.mu)
	return l
}

// Submit schedules a search once input has been idle for the debounce
// interval. A later Submit within the interval replaces this one.
func (l *LiveSearch) Submit(origin domain.Coordinate, term string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.pending = &pendingSearch{origin: origin, term: term}
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.debounce, l.fire)
}

// Flush dispatches any debounced search immediately and blocks until no
// search is in flight.
func (l *LiveSearch) Flush() {
	l.mu.Lock()
	if l.timer != nil {
		l.timer.Stop()
	}
	if p := l.take(); p != nil {
		ctx, gen := l.begin()
		l.mu.Unlock()
		l.run(ctx, gen, p)
		l.mu.Lock()
	}
	for l.busy > 0 {
		l.idle.Wait()
	}
	l.mu.Unlock()
}

// Results returns the latest published result.
func (l *LiveSearch) Results() SearchResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Generation returns the number of searches dispatched so far.
func (l *LiveSearch) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// Stale returns how many completed searches were discarded.
func (l *LiveSearch) Stale() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stale
}

// Close drops any pending submission, cancels the in-flight search and
// waits for it to finish. Nothing is published after Close.
func (l *LiveSearch) Close() {
	l.mu.Lock()
	l.closed = true
	l.pending = nil
	if l.timer != nil {
		l.timer.Stop()
	}
	if l.cancel != nil {
		l.cancel()
	}
	for l.busy > 0 {
		l.idle.Wait()
	}
	l.mu.Unlock()
}

func (l *LiveSearch) fire() {
	l.mu.Lock()
	p := l.take()
	if p == nil {
		l.mu.Unlock()
		return
	}
	ctx, gen := l.begin()
	l.mu.Unlock()
	l.run(ctx, gen, p)
}

// take pops the pending submission. Caller holds mu.
func (l *LiveSearch) take() *pendingSearch {
	if l.closed {
		return nil
	}
	p := l.pending
	l.pending = nil
	return p
}

// begin opens a new generation and cancels the previous one. Caller holds mu.
func (l *LiveSearch) begin() (context.Context, uint64) {
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.gen++
	l.cancel = cancel
	l.busy++
	return ctx, l.gen
}

func (l *LiveSearch) run(ctx context.Context, gen uint64, p *pendingSearch) {
	facilities, err := l.searcher.Search(ctx, p.origin, p.term)
	res := settle(p.term, facilities, err)
	res.Generation = gen

	l.mu.Lock()
	if l.closed {
		l.busy--
		l.idle.Broadcast()
		l.mu.Unlock()
		return
	}
	publish := gen == l.gen
	if publish {
		l.current = res
		l.cancel()
		l.cancel = nil
	} else {
		l.stale++
		observability.ObserveStale()
		log.Debug().Uint64("generation", gen).Uint64("latest", l.gen).Msg("discarding stale search result")
	}
	cb := l.onSettle
	l.mu.Unlock()

	if publish && cb != nil {
		cb(res)
	}

	l.mu.Lock()
	l.busy--
	l.idle.Broadcast()
	l.mu.Unlock()
}
