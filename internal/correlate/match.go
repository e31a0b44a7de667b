package correlate

import (
	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

// Detection is a proposed link between one artifact and one work item,
// identified by the work item's canonical identifier. Internal ids are
// resolved later by the persistence layer.
type Detection struct {
	Identifier       string
	LinkType         string
	Confidence       domain.Confidence
	DetectionPattern string
}

// MatchArtifact runs the three strategies against one artifact in priority
// order: branch name (high), title (medium), body (medium). A work item
// already claimed by a higher-priority strategy is not re-added by a lower
// one, so one artifact yields at most one detection per work item.
func MatchArtifact(a domain.Artifact) []Detection {
	var out []Detection
	seen := map[string]struct{}{}
	add := func(m Match, linkType string, conf domain.Confidence) {
		if _, ok := seen[m.Identifier]; ok {
			return
		}
		seen[m.Identifier] = struct{}{}
		out = append(out, Detection{
			Identifier:       m.Identifier,
			LinkType:         linkType,
			Confidence:       conf,
			DetectionPattern: m.Pattern,
		})
	}

	if m, ok := ExtractFromBranch(a.HeadBranch); ok {
		add(m, "branch", domain.ConfidenceHigh)
	}
	for _, m := range ExtractFromText(a.Title) {
		add(m, "title", domain.ConfidenceMedium)
	}
	for _, m := range ExtractFromText(a.Body) {
		add(m, "body", domain.ConfidenceMedium)
	}
	return out
}

// ShouldUpgrade reports whether a new detection may overwrite a stored link.
// Confidence only ever goes up.
func ShouldUpgrade(stored, incoming domain.Confidence) bool {
	return incoming.Rank() > stored.Rank()
}
