package correlate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

func TestExtractFromText_Forms(t *testing.T) {
	cases := []struct {
		text    string
		id      string
		pattern string
	}{
		{"Fix crash in parser ENG-123", "ENG-123", "identifier"},
		{"[ENG-123] fix crash", "ENG-123", "bracketed"},
		{"fix crash #ENG-123", "ENG-123", "hashtag"},
		{"ENG-123: fix crash", "ENG-123", "colon_suffixed"},
		{"see https://linear.app/acme/issue/eng-123 for context", "ENG-123", "url"},
		{"see https://linear.app/acme/issue/ENG-123/fix-crash", "ENG-123", "url"},
	}
	for _, c := range cases {
		got := ExtractFromText(c.text)
		require.Len(t, got, 1, c.text)
		assert.Equal(t, c.id, got[0].Identifier, c.text)
		assert.Equal(t, c.pattern, got[0].Pattern, c.text)
	}
}

func TestExtractFromText_NoFalsePositives(t *testing.T) {
	assert.Nil(t, ExtractFromText(""))
	assert.Empty(t, ExtractFromText("bump v1-2, see a-1 and x86-64 notes"), "lowercase and 1-letter keys do not match")
	assert.Empty(t, ExtractFromText("fix eng-123 in lowercase prose"), "bare lowercase token only counts in branches")
}

func TestExtractFromText_DedupsAcrossPatterns(t *testing.T) {
	got := ExtractFromText("[ENG-5] ENG-5: also ENG-5 and ENG-6")
	require.Len(t, got, 2)
	assert.Equal(t, "ENG-5", got[0].Identifier)
	assert.Equal(t, "bracketed", got[0].Pattern, "first matching pattern names the detection")
	assert.Equal(t, "ENG-6", got[1].Identifier)
}

func TestExtractFromBranch(t *testing.T) {
	m, ok := ExtractFromBranch("eng-123-fix-foo")
	require.True(t, ok)
	assert.Equal(t, "ENG-123", m.Identifier)

	m, ok = ExtractFromBranch("ENG/123-fix-foo")
	require.True(t, ok)
	assert.Equal(t, "ENG-123", m.Identifier)

	m, ok = ExtractFromBranch("eng-123")
	require.True(t, ok)
	assert.Equal(t, "ENG-123", m.Identifier)

	_, ok = ExtractFromBranch("main")
	assert.False(t, ok)
	_, ok = ExtractFromBranch("feature/eng-123")
	assert.False(t, ok, "identifier must lead the branch name")
	_, ok = ExtractFromBranch("eng-123abc")
	assert.False(t, ok)
}

func TestMatchArtifact_BranchBeatsTitleAndBody(t *testing.T) {
	a := domain.Artifact{
		HeadBranch: "eng-123-fix-foo",
		Title:      "Improve retry loop",
		Body:       "Closes ENG-123 and touches ENG-200",
	}
	got := MatchArtifact(a)
	require.Len(t, got, 2)

	assert.Equal(t, "ENG-123", got[0].Identifier)
	assert.Equal(t, domain.ConfidenceHigh, got[0].Confidence)
	assert.Equal(t, "branch", got[0].LinkType)

	assert.Equal(t, "ENG-200", got[1].Identifier)
	assert.Equal(t, domain.ConfidenceMedium, got[1].Confidence)
	assert.Equal(t, "body", got[1].LinkType)
}

func TestMatchArtifact_BranchOnly(t *testing.T) {
	a := domain.Artifact{HeadBranch: "eng-123-fix-foo", Title: "unrelated title"}
	got := MatchArtifact(a)
	require.Len(t, got, 1)
	assert.Equal(t, "ENG-123", got[0].Identifier)
	assert.Equal(t, domain.ConfidenceHigh, got[0].Confidence)
}

func TestMatchArtifact_TitleBeatsBody(t *testing.T) {
	a := domain.Artifact{Title: "ENG-77: polish onboarding", Body: "follow-up to ENG-77"}
	got := MatchArtifact(a)
	require.Len(t, got, 1)
	assert.Equal(t, "title", got[0].LinkType)
	assert.Equal(t, domain.ConfidenceMedium, got[0].Confidence)
}

func TestMatchArtifact_Deterministic(t *testing.T) {
	a := domain.Artifact{
		HeadBranch: "eng-1-thing",
		Title:      "[ENG-2] change",
		Body:       "relates to ENG-3",
	}
	first := MatchArtifact(a)
	second := MatchArtifact(a)
	assert.Equal(t, first, second, "pure function, same input same output")
}

func TestShouldUpgrade(t *testing.T) {
	assert.True(t, ShouldUpgrade(domain.ConfidenceMedium, domain.ConfidenceHigh))
	assert.True(t, ShouldUpgrade(domain.ConfidenceLow, domain.ConfidenceMedium))
	assert.False(t, ShouldUpgrade(domain.ConfidenceHigh, domain.ConfidenceHigh))
	assert.False(t, ShouldUpgrade(domain.ConfidenceHigh, domain.ConfidenceMedium), "never downgrade")
	assert.False(t, ShouldUpgrade(domain.ConfidenceHigh, "garbage"))
}
