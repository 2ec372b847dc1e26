package dating

import (
	"strings"
)

// Weights are the per-attribute contributions to a compatibility score.
type Weights struct {
	Language     float64 // per shared language
	Denomination float64
	Goal         float64
	Kashrut      float64
	Shabbat      float64
	City         float64
}

func DefaultWeights() Weights {
	return Weights{
		Language:     1,
		Denomination: 3,
		Goal:         2,
		Kashrut:      1,
		Shabbat:      1,
		City:         0.5,
	}
}

// Scorer computes the symmetric attribute-overlap score of two profiles.
type Scorer struct {
	weights Weights
}

func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Score returns the weighted overlap of a and b along with the raw factors.
// A nil profile on either side scores zero.
func (s *Scorer) Score(a, b *Profile) (float64, *CompatibilityFactors) {
	factors := &CompatibilityFactors{}
	if a == nil || b == nil {
		return 0, factors
	}

	factors.SharedLanguages = countShared(a.Languages, b.Languages)
	factors.SameDenomination = sameValue(a.JudaismDirection, b.JudaismDirection)
	factors.SameGoal = a.Goal != "" && a.Goal == b.Goal
	factors.SameKashrut = sameValue(a.KashrutLevel, b.KashrutLevel)
	factors.SameShabbat = sameValue(a.ShabbatLevel, b.ShabbatLevel)
	factors.SameCity = sameValue(a.City, b.City) && sameValue(a.Country, b.Country)

	w := s.weights
	score := float64(factors.SharedLanguages) * w.Language
	if factors.SameDenomination {
		score += w.Denomination
	}
	if factors.SameGoal {
		score += w.Goal
	}
	if factors.SameKashrut {
		score += w.Kashrut
	}
	if factors.SameShabbat {
		score += w.Shabbat
	}
	if factors.SameCity {
		score += w.City
	}

	return score, factors
}

// Reason renders the strongest factor as a short human-readable line.
func (s *Scorer) Reason(factors *CompatibilityFactors, candidate *Profile) string {
	reasons := []string{}

	if factors.SameDenomination {
		reasons = append(reasons, "shares your community")
	}
	if factors.SameGoal {
		reasons = append(reasons, "is looking for the same thing")
	}
	if factors.SharedLanguages > 0 {
		reasons = append(reasons, "speaks your language")
	}
	if factors.SameCity {
		reasons = append(reasons, "lives nearby")
	}

	if len(reasons) == 0 {
		return "Recommended for you"
	}

	name := candidate.DisplayName
	if name == "" {
		name = "This person"
	}
	return name + " " + reasons[0]
}

func countShared(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	seen := make(map[string]bool, len(a))
	for _, v := range a {
		seen[normalize(v)] = true
	}

	matches := 0
	for _, v := range b {
		key := normalize(v)
		if seen[key] {
			matches++
			// count duplicates in b once
			delete(seen, key)
		}
	}
	return matches
}

func sameValue(a, b string) bool {
	a, b = normalize(a), normalize(b)
	return a != "" && a == b
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
