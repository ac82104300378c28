package app

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"ambulance_app/internal/domain"
	"ambulance_app/internal/geo"
)

const (
	ScoreExact        = 100
	ScoreWholeTerm    = 80
	ScoreTermWord     = 60
	ScoreTermFragment = 40
	ScoreKeywordOnly  = 20
)

var medicalKeywords = []string{"hospital", "medical", "clinic", "centre", "center"}

// RelevanceScore rates how well a facility name matches a search term.
// Stages are evaluated in order and the first match wins:
//
//	100  name equals term
//	 80  medical name containing the whole term on word boundaries
//	 60  medical name containing a term word longer than two characters
//	 40  medical name containing any three-character run of the term
//	 20  medical name with no term overlap
//	  0  anything else
//
// "Medical name" means the name contains one of medicalKeywords.
func RelevanceScore(name, term string) int {
	n := strings.ToLower(strings.TrimSpace(name))
	t := strings.ToLower(strings.TrimSpace(term))
	if n == "" || t == "" {
		return 0
	}
	if n == t {
		return ScoreExact
	}
	if !hasMedicalKeyword(n) {
		return 0
	}
	if containsWord(n, t) {
		return ScoreWholeTerm
	}
	for _, w := range strings.Fields(t) {
		if utf8.RuneCountInString(w) > 2 && strings.Contains(n, w) {
			return ScoreTermWord
		}
	}
	runes := []rune(t)
	for i := 0; i+3 <= len(runes); i++ {
		if strings.Contains(n, string(runes[i:i+3])) {
			return ScoreTermFragment
		}
	}
	return ScoreKeywordOnly
}

func hasMedicalKeyword(name string) bool {
	for _, k := range medicalKeywords {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}

// containsWord reports whether term occurs in s without touching a letter or
// digit on either side.
func containsWord(s, term string) bool {
	for from := 0; from <= len(s)-len(term); {
		i := strings.Index(s[from:], term)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(term)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if boundary(before) && boundary(after) {
			return true
		}
		from = start + 1
	}
	return false
}

// boundary reports whether r may sit next to a whole-word match. The
// utf8.RuneError returned at either end of the string counts as one.
func boundary(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// Rank scores facilities against term, drops zero scores, orders by score
// then distance, and keeps at most limit entries.
func Rank(facilities []domain.Facility, term string, limit int) []domain.RankedFacility {
	out := make([]domain.RankedFacility, 0, len(facilities))
	for _, f := range facilities {
		score := RelevanceScore(f.Name, term)
		if score <= 0 {
			continue
		}
		out = append(out, domain.RankedFacility{Facility: f, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return distanceKm(out[i].Facility) < distanceKm(out[j].Facility)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func distanceKm(f domain.Facility) float64 {
	km, ok := geo.ParseKm(f.Distance)
	if !ok {
		return 0
	}
	return km
}
