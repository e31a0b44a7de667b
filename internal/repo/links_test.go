package repo

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

// The upgrade-only rule lives in the upsert's WHERE clause; its rank mapping
// is generated from Confidence.Rank, and this pins the generated SQL to it.
func TestUpsertLinkSQLRankParity(t *testing.T) {
	for _, c := range []domain.Confidence{domain.ConfidenceHigh, domain.ConfidenceMedium, domain.ConfidenceLow} {
		assert.Contains(t, upsertLinkSQL, fmt.Sprintf("WHEN '%s' THEN %d", c, c.Rank()))
	}
	assert.Contains(t, upsertLinkSQL, "ELSE 0 END")
	assert.Contains(t, upsertLinkSQL, "(CASE EXCLUDED.confidence")
	assert.Contains(t, upsertLinkSQL, "(CASE correlation_links.confidence")
	// Strict inequality: equal confidence leaves the stored link untouched.
	assert.Contains(t, upsertLinkSQL, ") > (")
}

func TestConfidenceRankSQLOrdering(t *testing.T) {
	assert.Greater(t, domain.ConfidenceHigh.Rank(), domain.ConfidenceMedium.Rank())
	assert.Greater(t, domain.ConfidenceMedium.Rank(), domain.ConfidenceLow.Rank())
	assert.Greater(t, domain.ConfidenceLow.Rank(), domain.Confidence("garbage").Rank())
}
