package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreTiers(t *testing.T) {
	tests := []struct {
		name     string
		needle   string
		haystack string
		want     float64
	}{
		{"empty needle", "", "anything at all", 1.0},
		{"empty haystack", "rent", "", 0.0},
		{"both empty", "", "", 1.0},
		{"exact substring", "rewe", "checking rewe markt groceries", 1.0},
		{"needle within a word", "shop", "late night shopping", 1.0},
		{"word within needle", "supermarkets", "visited supermarket today", 1.0},
		{"identical", "groceries", "groceries", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.needle, tt.haystack))
		})
	}
}

func TestScoreFallsBackToRatio(t *testing.T) {
	// No substring or word containment either way, so the score comes
	// from the sequence ratio and lands strictly between 0 and 1.
	score := Score("grocery", "groceries galore")
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 1.0)
	assert.Equal(t, Ratio("grocery", "groceries galore"), score)
}

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "abc", "abc", 1.0},
		{"disjoint", "abc", "xyz", 0.0},
		{"both empty", "", "", 1.0},
		{"one empty", "abc", "", 0.0},
		// One matching block "bcd": 2*3 / (4+4).
		{"overlap", "abcd", "bcde", 0.75},
		// Blocks "itt" and "n": 2*4 / (6+7).
		{"kitten sitting", "kitten", "sitting", 8.0 / 13.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Ratio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRatioIsSymmetricInTotalSize(t *testing.T) {
	// The matched total is order-dependent in general, but repeated calls
	// must be deterministic.
	first := Ratio("weekly groceries rewe", "rewe markt koeln")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Ratio("weekly groceries rewe", "rewe markt koeln"))
	}
}
