package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"harakat", "كِتَاب", "كتاب"},
		{"tanween and shadda", "مُحَمَّدٌ", "محمد"},
		{"tatweel", "كتـــاب", "كتاب"},
		{"superscript alef", "هٰذا", "هذا"},
		{"plain arabic", "كتاب", "كتاب"},
		{"hamza letters kept", "أَسْئِلَة", "أسئلة"},
		{"latin untouched", "Café au lait", "Café au lait"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Fold(tc.in))
		})
	}
}

func TestFoldMatchesDiacriticFreeQuery(t *testing.T) {
	assert.Contains(t, Fold("هذا الكِتَابُ مفيد"), Fold("كتاب"))
}

func TestContainsArabic(t *testing.T) {
	assert.True(t, ContainsArabic("what is الخلية?"))
	assert.False(t, ContainsArabic("what is a cell?"))
	assert.True(t, ContainsArabic("ﻻ"))
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseSpace("  a \n\t b   c "))
}
