package dialogue

import "strings"

// specialtySynonyms maps lay terms to the canonical specialty strings the
// doctor directory uses.
var specialtySynonyms = map[string]string{
	"heart doctor":    "cardiology",
	"heart":           "cardiology",
	"skin doctor":     "dermatology",
	"skin":            "dermatology",
	"bone doctor":     "orthopedics",
	"bones":           "orthopedics",
	"brain doctor":    "neurology",
	"nerve doctor":    "neurology",
	"kids doctor":     "pediatrics",
	"children":        "pediatrics",
	"child doctor":    "pediatrics",
	"eye doctor":      "ophthalmology",
	"eyes":            "ophthalmology",
	"mental health":   "psychiatry",
	"therapist":       "psychiatry",
	"family doctor":   "general practice",
	"gp":              "general practice",
	"ear nose throat": "ent",
	"hormone doctor":  "endocrinology",
}

// practitioner-noun suffixes, longest first, so "cardiologist" reduces to a
// substring of "Cardiology".
var specialtySuffixes = []string{"icians", "ician", "ists", "ist"}

// CanonicalSpecialty reduces free text to a string suitable for substring
// matching against doctor specialties.
func CanonicalSpecialty(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	if canonical, ok := specialtySynonyms[s]; ok {
		return canonical
	}
	for phrase, canonical := range specialtySynonyms {
		if strings.Contains(s, phrase) {
			return canonical
		}
	}

	for _, suffix := range specialtySuffixes {
		if trimmed, ok := strings.CutSuffix(s, suffix); ok && len(trimmed) >= 4 {
			return trimmed
		}
	}
	return s
}

// detectSpecialty scans an utterance for a known specialty or lay synonym and
// returns its canonical form, or "" when nothing matches.
func detectSpecialty(lower string) string {
	specialties := map[string]string{
		"cardiology":           "cardiology",
		"cardiologist":         "cardiology",
		"dermatology":          "dermatology",
		"dermatologist":        "dermatology",
		"neurology":            "neurology",
		"neurologist":          "neurology",
		"orthopedics":          "orthopedics",
		"orthopedist":          "orthopedics",
		"endocrinology":        "endocrinology",
		"endocrinologist":      "endocrinology",
		"pediatrics":           "pediatrics",
		"pediatrician":         "pediatrics",
		"psychiatry":           "psychiatry",
		"psychiatrist":         "psychiatry",
		"ophthalmology":        "ophthalmology",
		"ophthalmologist":      "ophthalmology",
		"general practice":     "general practice",
		"general practitioner": "general practice",
	}
	for token, canonical := range specialties {
		if strings.Contains(lower, token) {
			return canonical
		}
	}
	// Short tokens need whole-word matches: "appointment" contains "ent".
	for _, word := range strings.Fields(strings.Trim(lower, ".,!?")) {
		if word == "ent" || word == "gp" {
			return CanonicalSpecialty(word)
		}
	}
	for phrase, canonical := range specialtySynonyms {
		if len(phrase) > 3 && strings.Contains(lower, phrase) {
			return canonical
		}
	}
	return ""
}
