package app

import "ambulance_app/internal/domain"

// Deduplicate keeps the first facility for each display name. Names are
// compared exactly, so two branches sharing a name at different
// coordinates collapse into one entry.
func Deduplicate(in []domain.Facility) []domain.Facility {
	seen := make(map[string]struct{}, len(in))
	out := make([]domain.Facility, 0, len(in))
	for _, f := range in {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		out = append(out, f)
	}
	return out
}
