package retriever

import (
	"strings"
	"testing"

	"textbook-qa-be/pkg/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"photosynthesis", "plants"}, Tokenize("What is the Photosynthesis in plants? photosynthesis!"))
	assert.Equal(t, []string{"الكتاب"}, Tokenize("ما هو الكِتَاب"))
	assert.Empty(t, Tokenize("what is it?"))
}

func TestScoreArabicDiacriticsInsensitive(t *testing.T) {
	terms := Tokenize("كتاب")
	require.Equal(t, []string{"كتاب"}, terms)

	assert.Greater(t, Score(terms, "هذا كِتَاب مفيد"), 0.0)
	assert.Greater(t, Score(terms, "قرأت الكتاب"), 0.0)
	assert.Equal(t, 0.0, Score(terms, "قلم"))
}

func TestScoreWeightsAndBonuses(t *testing.T) {
	terms := []string{"cell", "membrane"}

	one := Score(terms, "the cell")
	both := Score(terms, "the cell membrane")
	far := Score(terms, "cell "+strings.Repeat("x", 300)+" membrane")

	assert.InDelta(t, 1.4, one, 1e-9)
	// cell 1.4 + membrane 1.8 + proximity 2 + all terms 3
	assert.InDelta(t, 8.2, both, 1e-9)
	assert.InDelta(t, 6.2, far, 1e-9)

	assert.Greater(t, Score([]string{"membrane"}, "membrane"), Score([]string{"cell"}, "cell"), "longer terms weigh more")
	assert.InDelta(t, 2.8, Score([]string{"cell"}, "cell cell"), 1e-9)
}

func TestWithinCountsRunes(t *testing.T) {
	text := "كتاب" + strings.Repeat("ب", 150) + "قلم"
	assert.True(t, within(text, "كتاب", "قلم", 200))
	assert.False(t, within(text, "كتاب", "قلم", 100))
}

func TestRankOrdering(t *testing.T) {
	passages := []rag.Passage{
		{Page: 5, Text: "energy"},
		{Page: 2, Text: "energy"},
		{Page: 9, Text: "nothing relevant"},
		{Page: 7, Text: "energy energy"},
	}

	got := Rank("energy", passages, 0)

	require.Len(t, got, 3)
	assert.Equal(t, []int{7, 2, 5}, []int{got[0].Page, got[1].Page, got[2].Page})
	assert.Len(t, Rank("energy", passages, 1), 1)
	assert.Nil(t, Rank("the", passages, 0))
}
