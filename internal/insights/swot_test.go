package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSWOT_JSON(t *testing.T) {
	content := `{"strengths":["close to suppliers"],"weaknesses":["rent"],"opportunities":["growth"],"threats":["floods"],"summary":"Viable."}`

	got, fromJSON := ParseSWOT(content)
	require.NotNil(t, got)
	assert.True(t, fromJSON)
	assert.Equal(t, []string{"close to suppliers"}, got.Strengths)
	assert.Equal(t, []string{"floods"}, got.Threats)
	assert.Equal(t, "Viable.", got.Summary)
}

func TestParseSWOT_JSONWrappedInProse(t *testing.T) {
	content := "Here is the analysis:\n```json\n{\n  \"strengths\": [\"a\"],\n  \"weaknesses\": [],\n  \"opportunities\": [\"c\"],\n  \"threats\": [\"d\"],\n  \"summary\": \"s\"\n}\n```\nHope this helps."

	got, fromJSON := ParseSWOT(content)
	assert.True(t, fromJSON)
	assert.Equal(t, []string{"a"}, got.Strengths)
	assert.Empty(t, got.Weaknesses)
	assert.NotNil(t, got.Weaknesses)
}

func TestParseSWOT_JSONMissingFieldFallsBack(t *testing.T) {
	content := `{"strengths":["a"],"weaknesses":["b"],"opportunities":["c"],"summary":"s"}`

	got, fromJSON := ParseSWOT(content)
	assert.False(t, fromJSON)
	// No dash bullets anywhere, so every section takes its default.
	assert.Equal(t, DefaultSWOT().Threats, got.Threats)
	assert.Equal(t, DefaultSWOT().Strengths, got.Strengths)
}

func TestParseSWOT_JSONNullArrayFallsBack(t *testing.T) {
	_, fromJSON := ParseSWOT(`{"strengths":null,"weaknesses":[],"opportunities":[],"threats":[]}`)
	assert.False(t, fromJSON)
}

func TestParseSWOT_Text(t *testing.T) {
	content := `STRENGTHS:
- Dense supplier cluster
- Rail access

WEAKNESSES:
- High rent
OPPORTUNITIES:
- Port expansion
THREATS:
- Monsoon flooding
- Labour shortages

SUMMARY:
A strong candidate overall.`

	got, fromJSON := ParseSWOT(content)
	assert.False(t, fromJSON)
	assert.Equal(t, []string{"Dense supplier cluster", "Rail access"}, got.Strengths)
	assert.Equal(t, []string{"High rent"}, got.Weaknesses)
	assert.Equal(t, []string{"Port expansion"}, got.Opportunities)
	assert.Equal(t, []string{"Monsoon flooding", "Labour shortages"}, got.Threats)
	assert.Equal(t, "A strong candidate overall.", got.Summary)
}

func TestParseSWOT_GarbageUsesDefaults(t *testing.T) {
	got, fromJSON := ParseSWOT("I cannot help with that.")
	assert.False(t, fromJSON)
	assert.Equal(t, DefaultSWOT(), *got)
}

func TestSection_StopsAtNonBulletLine(t *testing.T) {
	content := "Strengths\n- one\n\n- two\nNext heading\n- three"
	assert.Equal(t, []string{"one", "two"}, section(content, "strength"))
	assert.Nil(t, section("nothing here", "threat"))
}
