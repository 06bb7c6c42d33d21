package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcher(t *testing.T) {
	m := NewMatcher("Pist")
	assert.True(t, m.Matches("Combat PISTOL"))
	assert.False(t, m.Matches("Rifle"))

	assert.True(t, NewMatcher("").Matches("anything"))
	assert.True(t, NewMatcher("STRASSE").Matches("Straße Sweeper"))
	assert.True(t, NewMatcher("café").Matches("Cafe\u0301 Racer"))
}

func TestMatcherTermIsFolded(t *testing.T) {
	assert.Equal(t, "strasse", NewMatcher("Straße").Term())
	assert.Equal(t, "café", NewMatcher("Cafe\u0301").Term())
	assert.Empty(t, NewMatcher("").Term())
}

func TestHighlight(t *testing.T) {
	cases := []struct {
		text string
		term string
		want []Span
	}{
		{"Pistol and pistol ammo", "pistol", []Span{{0, 6}, {11, 17}}},
		{"aaaa", "aa", []Span{{0, 2}, {2, 4}}},
		{"Rifle", "pistol", nil},
		{"Rifle", "", nil},
		{"", "x", nil},
		{"Große Tasche", "gross", []Span{{0, 5}}},
		{"Café crème", "CAFÉ", []Span{{0, 5}}},
		{"Cafe\u0301 Racer", "café", []Span{{0, 6}}},
		{"Cafe\u0301 Racer", "cafe", nil},
	}
	for _, tc := range cases {
		t.Run(tc.text+"/"+tc.term, func(t *testing.T) {
			assert.Equal(t, tc.want, NewMatcher(tc.term).Highlight(tc.text))
		})
	}
}

func TestNormalizeSearchTerm(t *testing.T) {
	assert.Equal(t, "pistol", NormalizeSearchTerm("  PiStOl \t"))
	assert.Equal(t, "", NormalizeSearchTerm("   "))
}
