package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(n int) string {
	return fmt.Sprintf("Page body %d. Photosynthesis converts light energy into chemical energy inside the chloroplast.", n)
}

func pages(n int, sep string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = page(i + 1)
	}
	return strings.Join(parts, sep)
}

func TestSplitAcceptsNaturalWithinBounds(t *testing.T) {
	for _, count := range []int{9, 12, 30} {
		t.Run(fmt.Sprintf("%d chunks", count), func(t *testing.T) {
			res := Split(pages(count, "\f"), 10, DefaultOptions())
			assert.Equal(t, StrategyNatural, res.Strategy)
			assert.Equal(t, count, res.Raw)
			assert.Len(t, res.Chunks, count)
		})
	}
}

func TestSplitRejectsUnderSplitting(t *testing.T) {
	text := strings.Repeat("a long paragraph of textbook prose ", 200) + "\f" + strings.Repeat("more prose here ", 100)

	res := Split(text, 10, DefaultOptions())

	assert.Equal(t, StrategyFixed, res.Strategy)
	for _, c := range res.Chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 2000)
	}
}

func TestSplitRejectsOverSplitting(t *testing.T) {
	res := Split(pages(31, "\f"), 10, DefaultOptions())
	assert.Equal(t, StrategyFixed, res.Strategy)
}

func TestSplitWithoutPageCountUsesFixed(t *testing.T) {
	res := Split(pages(5, "\f"), 0, DefaultOptions())
	assert.Equal(t, StrategyFixed, res.Strategy)
}

func TestNaturalDelimiters(t *testing.T) {
	text := page(1) + "\n\n\n" + page(2) + "\nPage 3\n" + page(3) + "\nصفحة 4\n" + page(4) + "\n\n" + "same chunk"

	got := splitNatural(text)

	require.Len(t, got, 4)
	assert.Contains(t, got[3], "same chunk", "a single blank line is not a delimiter")
}

func TestFixedIsNonOverlapping(t *testing.T) {
	text := strings.Repeat("abcdefghij", 450) // 4500 runes
	opts := DefaultOptions()

	res := Split(text, 0, opts)

	require.Len(t, res.Chunks, 3)
	joined := ""
	for _, c := range res.Chunks {
		joined += c.Text
	}
	assert.Equal(t, text, joined)
	assert.Equal(t, []int{1, 2, 3}, []int{res.Chunks[0].Ordinal, res.Chunks[1].Ordinal, res.Chunks[2].Ordinal})
}

func TestAutoSkipsLeadingIndex(t *testing.T) {
	toc := "Table of Contents\n1. Cells .... 3\n2. Energy .... 9\nfiller to pass the minimum length filter"
	text := toc + "\f" + pages(9, "\f")

	res := Split(text, 10, DefaultOptions())

	assert.Equal(t, 1, res.Skipped)
	require.NotEmpty(t, res.Chunks)
	assert.Equal(t, 2, res.Chunks[0].Ordinal, "ordinals keep their page-like position")
	assert.NotContains(t, res.Chunks[0].Text, "Table of Contents")
}

func TestAutoSkipsArabicIndex(t *testing.T) {
	toc := "الفهرس\nالوحدة الأولى: الخلية ..... ٣\nالوحدة الثانية: الطاقة ..... ٩"
	text := toc + "\f" + pages(9, "\f")

	res := Split(text, 10, DefaultOptions())
	assert.Equal(t, 1, res.Skipped)
}

func TestLongFirstChunkIsNotIndex(t *testing.T) {
	first := "Contents of the cell: " + strings.Repeat("cytoplasm ribosome ", 100)
	text := first + "\f" + pages(9, "\f")

	res := Split(text, 10, DefaultOptions())
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 1, res.Chunks[0].Ordinal)
}

func TestExplicitSkipOverridesDetection(t *testing.T) {
	text := pages(10, "\f")
	skip := 3
	opts := DefaultOptions()
	opts.SkipFirst = &skip

	res := Split(text, 10, opts)

	assert.Equal(t, 3, res.Skipped)
	require.Len(t, res.Chunks, 7)
	assert.Equal(t, 4, res.Chunks[0].Ordinal)

	zero := 0
	opts.SkipFirst = &zero
	tocFirst := "Index\nshort but long enough to survive the minimum filter ok" + "\f" + pages(9, "\f")
	assert.Equal(t, 0, Split(tocFirst, 10, opts).Skipped)
}

func TestClipAndMinLength(t *testing.T) {
	long := strings.Repeat("x", 5000)
	text := strings.Join([]string{"tiny", long, page(1), page(2)}, "\f")
	opts := DefaultOptions()

	res := Split(text, 4, opts)

	require.Equal(t, StrategyNatural, res.Strategy)
	require.Len(t, res.Chunks, 3, "the short chunk is dropped")
	assert.Equal(t, 2, res.Chunks[0].Ordinal)
	assert.Equal(t, 4000, utf8.RuneCountInString(res.Chunks[0].Text))
}

func TestOrdinalsUniqueAndBounded(t *testing.T) {
	text := pages(25, "\n\n\n") + "\f" + strings.Repeat("y", 9000)

	for _, total := range []int{0, 10, 20} {
		res := Split(text, total, DefaultOptions())
		seen := map[int]bool{}
		for _, c := range res.Chunks {
			assert.False(t, seen[c.Ordinal], "duplicate ordinal %d", c.Ordinal)
			seen[c.Ordinal] = true
			assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 4000)
			assert.Equal(t, strings.Join(strings.Fields(c.Text), " "), c.Text)
		}
	}
}
