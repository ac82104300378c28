package domain

import "time"

// TagFilter is one (key, value) category filter sent to the provider,
// e.g. amenity=hospital.
type TagFilter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MedicalFilters are the categories queried for every search. Each filter
// is requested for both point (node) and extended (way) geometries.
var MedicalFilters = []TagFilter{
	{Key: "amenity", Value: "hospital"},
	{Key: "amenity", Value: "clinic"},
	{Key: "healthcare", Value: "centre"},
	{Key: "healthcare", Value: "clinic"},
}

type ProviderQuery struct {
	Origin       Coordinate
	RadiusMeters int
	Filters      []TagFilter
}

// RawFacilityRecord is a provider point of interest before normalization.
// Points carry Lat/Lon directly; extended shapes carry a computed Center.
type RawFacilityRecord struct {
	Type   string            `json:"type"` // node|way|relation
	ID     int64             `json:"id"`
	Tags   map[string]string `json:"tags,omitempty"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *Coordinate       `json:"center,omitempty"`
}

// Facility is the normalized record used by ranking.
type Facility struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Address    string     `json:"address"`
	Coordinate Coordinate `json:"coordinate"`
	// Distance from the search origin in km with one decimal. "0.0" may mean
	// the distance could not be computed.
	Distance string `json:"distance"`
	// PositionUnknown marks the (0, 0) placeholder used when the record
	// carried neither a point nor a center.
	PositionUnknown bool `json:"position_unknown,omitempty"`
	Favorite        bool `json:"favorite"`
}

type RankedFacility struct {
	Facility
	Score int `json:"score"`
	Rank  int `json:"rank"`
}

type Favorite struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	FacilityID string    `json:"facility_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}
