package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ambulance_app/internal/app"
	"ambulance_app/internal/domain"
)

type recordingSearcher struct {
	mu    sync.Mutex
	terms []string
}

func (r *recordingSearcher) Search(ctx context.Context, origin domain.Coordinate, term string) ([]domain.RankedFacility, error) {
	r.mu.Lock()
	r.terms = append(r.terms, term)
	r.mu.Unlock()
	return []domain.RankedFacility{{
		Facility: domain.Facility{ID: "osm-node-1", Name: "Nairobi Hospital", Type: "hospital", Address: "Argwings Kodhek Road, Nairobi", Distance: "1.7"},
		Score:    80,
		Rank:     1,
	}}, nil
}

func sample() app.SearchResult {
	return app.SearchResult{
		Term: "hospital",
		Facilities: []domain.RankedFacility{{
			Facility: domain.Facility{ID: "osm-node-1", Name: "Nairobi Hospital", Type: "hospital", Address: "Argwings Kodhek Road, Nairobi", Distance: "1.7"},
			Score:    80,
			Rank:     1,
		}},
	}
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(sample(), 60, &buf)
	out := buf.String()

	assert.Contains(t, out, "Rank")
	assert.Contains(t, out, "Nairobi Hospital")
	assert.Contains(t, out, "1.7 km")
	assert.Contains(t, out, "  2m")
	assert.Contains(t, out, "1 facilities")
}

func TestFormatTable_EmptyAndError(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(app.SearchResult{Term: "bakery"}, 60, &buf)
	assert.Contains(t, buf.String(), "No facilities found.")

	buf.Reset()
	FormatTable(app.SearchResult{Term: "x", Message: "Unable to load nearby medical facilities. Please try again."}, 60, &buf)
	assert.Contains(t, buf.String(), "Error: Unable to load")
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(sample(), 60, &buf))

	var got jsonResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Facilities, 1)
	assert.Equal(t, "hospital", got.Term)
	assert.Equal(t, 2, got.Facilities[0].ETAMinutes)
	assert.Equal(t, "osm-node-1", got.Facilities[0].ID)
}

func TestFeed_SearchesLatestLine(t *testing.T) {
	s := &recordingSearcher{}
	var settled []app.SearchResult
	live := app.NewLiveSearch(s, time.Hour, func(r app.SearchResult) { settled = append(settled, r) })
	defer live.Close()

	err := feed(context.Background(), strings.NewReader("h\nho\n\nhospital\n"), domain.Coordinate{Lat: -1.2864, Lon: 36.8172}, live)
	require.NoError(t, err)

	assert.Equal(t, []string{"hospital"}, s.terms)
	require.Len(t, settled, 1)
	assert.Equal(t, "hospital", settled[0].Term)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "Hôpital de", truncate("Hôpital de", 10))
	assert.Equal(t, "中文中文中文中...", truncate("中文中文中文中文中文中文", 10))
}

func TestSpeedFlag(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Float64("speed", 0, "")

	assert.Equal(t, 45.0, speedFlag(cmd, 45))
	require.NoError(t, cmd.Flags().Set("speed", "80"))
	assert.Equal(t, 80.0, speedFlag(cmd, 45))
}
