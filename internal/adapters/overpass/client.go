package overpass

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ambulance_app/internal/adapters/observability"
	"ambulance_app/internal/domain"
)

const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

type Client struct {
	endpoint   string
	hc         *http.Client
	rl         *rate.Limiter
	maxRetries int
}

// New builds an Overpass client. rps bounds outbound calls; maxRetries is
// the number of extra attempts on 429/5xx and network errors (0 disables
// retries).
func New(endpoint string, rps, maxRetries int) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("overpass endpoint is required")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("overpass endpoint: %w", err)
	}
	if rps <= 0 {
		rps = 2
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		endpoint:   endpoint,
		hc:         &http.Client{Timeout: 30 * time.Second},
		rl:         rate.NewLimiter(rate.Limit(rps), rps),
		maxRetries: maxRetries,
	}, nil
}

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("overpass: status %d", e.Code)
	}
	return fmt.Sprintf("overpass: status %d: %s", e.Code, e.Body)
}

var ErrMalformedResponse = errors.New("overpass: malformed response")

// ---- wire types ----

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *center           `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ---- Public API ----

func (c *Client) FetchFacilities(ctx context.Context, q domain.ProviderQuery) (_ []domain.RawFacilityRecord, err error) {
	defer observability.Time(ctx, "overpass.FetchFacilities")(&err)

	var out response
	if err := c.post(ctx, BuildQuery(q), &out); err != nil {
		return nil, err
	}
	if out.Elements == nil {
		return nil, fmt.Errorf("%w: missing elements", ErrMalformedResponse)
	}

	records := make([]domain.RawFacilityRecord, 0, len(out.Elements))
	for _, el := range out.Elements {
		r := domain.RawFacilityRecord{
			Type: el.Type,
			ID:   el.ID,
			Tags: el.Tags,
			Lat:  el.Lat,
			Lon:  el.Lon,
		}
		if el.Center != nil {
			r.Center = &domain.Coordinate{Lat: el.Center.Lat, Lon: el.Center.Lon}
		}
		records = append(records, r)
	}
	return records, nil
}

// ---- Internals ----

// post sends the query as a form-encoded "data" field and decodes the JSON
// response into out. Retries (when enabled) honor Retry-After.
func (c *Client) post(ctx context.Context, query string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	body := url.Values{"data": {query}}.Encode()

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "ambulance-app/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("overpass", "interpreter", 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			var netErr net.Error
			if errors.As(err, &netErr) && i < c.maxRetries && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("overpass", "interpreter", resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
			return nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := retryAfter(resp)
			lastErr = statusError(resp)
			if wait == 0 {
				wait = backoff(i)
			}
			if i < c.maxRetries && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			return statusError(resp)
		}
	}
	return lastErr
}

// statusError reads a small error body for diagnostics and closes resp.
func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// RetryBaseDelay is the first backoff step; tests shrink it.
var RetryBaseDelay = 500 * time.Millisecond

// backoff doubles RetryBaseDelay per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * RetryBaseDelay
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
