package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalSpecialty(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Cardiology", "cardiology"},
		{"cardiologist", "cardiolog"}, // suffix-trimmed for substring matching
		{"heart doctor", "cardiology"},
		{"skin", "dermatology"},
		{"GP", "general practice"},
		{"pediatricians", "pediatr"},
		{"", ""},
		{"  Orthopedics  ", "orthopedics"},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, CanonicalSpecialty(tc.in))
		})
	}
}

func TestDetectSpecialty(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"i need to see a cardiologist", "cardiology"},
		{"i'd like a dermatology appointment", "dermatology"},
		{"my kid needs a pediatrician", "pediatrics"},
		{"looking for a heart doctor", "cardiology"},
		{"i need an ent", "ent"},
		// "appointment" contains "ent" but must not trigger it.
		{"i need an appointment", ""},
		{"just a checkup", ""},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, detectSpecialty(tc.in))
		})
	}
}
