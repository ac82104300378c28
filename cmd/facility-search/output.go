package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"ambulance_app/internal/app"
	"ambulance_app/internal/geo"
)

type jsonFacility struct {
	Rank       int     `json:"rank"`
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Address    string  `json:"address"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Distance   string  `json:"distance"`
	ETAMinutes int     `json:"eta_minutes"`
	Score      int     `json:"score"`
}

type jsonResult struct {
	Term       string         `json:"term"`
	Error      string         `json:"error,omitempty"`
	Facilities []jsonFacility `json:"facilities"`
}

// FormatTable writes a settled search as a human-readable table to w.
func FormatTable(res app.SearchResult, speedKmh float64, w io.Writer) {
	fmt.Fprintf(w, "Search: %q\n", res.Term)
	if res.Message != "" {
		fmt.Fprintf(w, "Error: %s\n", res.Message)
		return
	}
	if len(res.Facilities) == 0 {
		fmt.Fprintln(w, "No facilities found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-40s  %-10s  %8s  %5s  %-5s  %s\n",
		"Rank", "Name", "Type", "Distance", "ETA", "Score", "Address")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, f := range res.Facilities {
		dist := f.Distance + " km"
		if f.PositionUnknown {
			dist = "?"
		}
		fmt.Fprintf(w, "%-4d  %-40s  %-10s  %8s  %3dm  %-5d  %s\n",
			f.Rank, truncate(f.Name, 40), truncate(f.Type, 10), dist,
			geo.ETAFromDistance(f.Distance, speedKmh), f.Score, truncate(f.Address, 40))
	}
	fmt.Fprintf(w, "\n%d facilities\n", len(res.Facilities))
}

// FormatJSON writes a settled search as indented JSON to w.
func FormatJSON(res app.SearchResult, speedKmh float64, w io.Writer) error {
	out := jsonResult{Term: res.Term, Error: res.Message, Facilities: make([]jsonFacility, 0, len(res.Facilities))}
	for _, f := range res.Facilities {
		out.Facilities = append(out.Facilities, jsonFacility{
			Rank:       f.Rank,
			ID:         f.ID,
			Name:       f.Name,
			Type:       f.Type,
			Address:    f.Address,
			Lat:        f.Coordinate.Lat,
			Lon:        f.Coordinate.Lon,
			Distance:   f.Distance,
			ETAMinutes: geo.ETAFromDistance(f.Distance, speedKmh),
			Score:      f.Score,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// truncate shortens s to max characters, counting runes so multi-byte
// names are never split.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
