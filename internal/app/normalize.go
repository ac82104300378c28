package app

import (
	"fmt"
	"strconv"
	"strings"

	"ambulance_app/internal/domain"
	"ambulance_app/internal/geo"
)

const (
	// IDPrefix namespaces provider identifiers so they stay unique across
	// element types within one response.
	IDPrefix = "osm"

	addressUnavailable = "Address unavailable"
	defaultFacilityType = "medical"
)

/********** tag alias registries **********/

var typeAliases = []string{"amenity", "healthcare"}

var addressAliases = map[string][]string{
	"street":      {"addr:street"},
	"housenumber": {"addr:housenumber"},
	"city":        {"addr:city"},
}

// NormalizeOptions controls the unnamed-record policy. The default drops
// records without a name; KeepUnnamed assigns "Medical Facility N" instead.
type NormalizeOptions struct {
	Lang        string
	KeepUnnamed bool
}

/********** tiny helpers **********/

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(tags[k]); v != "" {
			return v
		}
	}
	return ""
}

func nameKeys(lang string) []string {
	if lang == "" {
		return []string{"name"}
	}
	return []string{"name:" + strings.ToLower(lang), "name"}
}

// PlaceholderName is the display name given to an unnamed record at
// position index (zero-based) when KeepUnnamed is set.
func PlaceholderName(index int) string {
	return fmt.Sprintf("Medical Facility %d", index+1)
}

/********** record mapper **********/

// NormalizeFacilities maps a provider batch into facilities. Unnamed
// records are filtered out before mapping unless opts.KeepUnnamed is set.
func NormalizeFacilities(records []domain.RawFacilityRecord, origin domain.Coordinate, opts NormalizeOptions) []domain.Facility {
	out := make([]domain.Facility, 0, len(records))
	for i, r := range records {
		if !opts.KeepUnnamed && firstTag(r.Tags, nameKeys(opts.Lang)...) == "" {
			continue
		}
		out = append(out, NormalizeFacility(r, i, origin, opts.Lang))
	}
	return out
}

// NormalizeFacility maps one record; index is its position in the batch.
func NormalizeFacility(r domain.RawFacilityRecord, index int, origin domain.Coordinate, lang string) domain.Facility {
	name := firstTag(r.Tags, nameKeys(lang)...)
	if name == "" {
		name = PlaceholderName(index)
	}

	kind := firstTag(r.Tags, typeAliases...)
	if kind == "" {
		kind = defaultFacilityType
	}

	coord, known := recordPosition(r)

	return domain.Facility{
		ID:              facilityID(r),
		Name:            name,
		Type:            kind,
		Address:         composeAddress(r.Tags),
		Coordinate:      coord,
		Distance:        geo.Distance(origin.Pair(), coord.Pair()),
		PositionUnknown: !known,
		Favorite:        false,
	}
}

func facilityID(r domain.RawFacilityRecord) string {
	kind := r.Type
	if kind == "" {
		kind = "node"
	}
	return IDPrefix + "-" + kind + "-" + strconv.FormatInt(r.ID, 10)
}

// recordPosition prefers the direct point, then the shape center. It falls
// back to (0, 0) and reports false.
func recordPosition(r domain.RawFacilityRecord) (domain.Coordinate, bool) {
	if r.Lat != nil && r.Lon != nil {
		return domain.Coordinate{Lat: *r.Lat, Lon: *r.Lon}, true
	}
	if r.Center != nil {
		return *r.Center, true
	}
	return domain.Coordinate{}, false
}

// composeAddress renders "{street} {housenumber}, {city}" when any part is
// tagged, dropping separators left dangling by missing parts.
func composeAddress(tags map[string]string) string {
	street := firstTag(tags, addressAliases["street"]...)
	number := firstTag(tags, addressAliases["housenumber"]...)
	city := firstTag(tags, addressAliases["city"]...)
	if street == "" && number == "" && city == "" {
		return addressUnavailable
	}

	line := strings.TrimSpace(street + " " + number)
	switch {
	case line == "":
		return city
	case city == "":
		return line
	default:
		return line + ", " + city
	}
}
