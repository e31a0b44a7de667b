package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

func TestLinksByWorkItem(t *testing.T) {
	links := []domain.CorrelationLink{
		{WorkItemID: 1, ArtifactID: 10, ArtifactKind: domain.KindPullRequest, LinkType: "branch", Confidence: domain.ConfidenceHigh},
		{WorkItemID: 1, ArtifactID: 11, ArtifactKind: domain.KindExternalIssue, LinkType: "body", Confidence: domain.ConfidenceMedium},
		{WorkItemID: 2, ArtifactID: 10, ArtifactKind: domain.KindPullRequest, LinkType: "title", Confidence: domain.ConfidenceMedium},
	}
	byItem := linksByWorkItem(links)

	require.Len(t, byItem, 2)
	require.Len(t, byItem[1], 2)
	require.Len(t, byItem[2], 1)
	assert.Equal(t, int64(10), byItem[1][0]["artifact_id"])
	assert.Equal(t, domain.ConfidenceHigh, byItem[1][0]["confidence"])
	assert.Equal(t, "title", byItem[2][0]["link_type"])
	assert.Empty(t, byItem[3], "unlinked items have no entry")
}

func TestLinksByWorkItemEmpty(t *testing.T) {
	assert.Empty(t, linksByWorkItem(nil))
}
