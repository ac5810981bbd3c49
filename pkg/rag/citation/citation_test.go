package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONBlock(t *testing.T) {
	out := "Photosynthesis makes glucose.\n\n[[SOURCES]]\n[{\"title\":\"Britannica\",\"url\":\"https://britannica.com/photosynthesis\"}]\n[[/SOURCES]]"

	p := Parse(out)

	assert.True(t, p.Found)
	assert.Equal(t, "Photosynthesis makes glucose.", p.Text)
	require.Len(t, p.Sources, 1)
	assert.Equal(t, Source{Kind: KindWeb, Title: "Britannica", URL: "https://britannica.com/photosynthesis"}, p.Sources[0])
}

func TestParseLineBlockAndFence(t *testing.T) {
	out := "Answer.\n[[SOURCES]]\n```\n- Khan Academy | https://khanacademy.org/cells\nhttps://example.org/a\nNot a url | ftp://x\n```\n[[/SOURCES]]\ntrailer"

	p := Parse(out)

	assert.Equal(t, "Answer.\n\ntrailer", p.Text)
	require.Len(t, p.Sources, 3)
	assert.Equal(t, "Khan Academy", p.Sources[0].Title)
	assert.Equal(t, "https://khanacademy.org/cells", p.Sources[0].URL)
	assert.Equal(t, "https://example.org/a", p.Sources[1].Title)
	assert.Equal(t, "Not a url", p.Sources[2].Title)
	assert.Empty(t, p.Sources[2].URL)
}

func TestParseUnclosedAndDuplicates(t *testing.T) {
	out := "A [[SOURCES]][{\"title\":\"x\",\"url\":\"https://a.io\"}][[/SOURCES]] B [[SOURCES]]https://A.io\nhttps://b.io"

	p := Parse(out)

	assert.Equal(t, "A  B", p.Text)
	require.Len(t, p.Sources, 2)
	assert.Equal(t, "https://b.io", p.Sources[1].URL)
}

func TestParseWithoutMarker(t *testing.T) {
	p := Parse("  plain answer  ")
	assert.False(t, p.Found)
	assert.Equal(t, "plain answer", p.Text)
	assert.Empty(t, p.Sources)
}

func TestHasSourcesSection(t *testing.T) {
	assert.True(t, HasSourcesSection("text\n\n**Sources:**\n- page 3"))
	assert.True(t, HasSourcesSection("نص\nالمصادر:\n- صفحة 3"))
	assert.False(t, HasSourcesSection("The sources of energy are many: sun, wind."))
}
