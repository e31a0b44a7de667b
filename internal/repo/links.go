package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

// confidenceRankSQL renders a confidence expression as its ordinal rank.
// Built from Confidence.Rank so the SQL ordering cannot drift from the Go
// one.
func confidenceRankSQL(expr string) string {
	return fmt.Sprintf("(CASE %s WHEN '%s' THEN %d WHEN '%s' THEN %d WHEN '%s' THEN %d ELSE 0 END)",
		expr,
		domain.ConfidenceHigh, domain.ConfidenceHigh.Rank(),
		domain.ConfidenceMedium, domain.ConfidenceMedium.Rank(),
		domain.ConfidenceLow, domain.ConfidenceLow.Rank())
}

var upsertLinkSQL = fmt.Sprintf(`
	INSERT INTO correlation_links(work_item_id, artifact_id, artifact_kind,
		link_type, confidence, detection_pattern, detected_at)
	VALUES($1,$2,$3,$4,$5,$6,$7)
	ON CONFLICT (work_item_id, artifact_id, artifact_kind) DO UPDATE SET
		link_type=EXCLUDED.link_type,
		confidence=EXCLUDED.confidence,
		detection_pattern=EXCLUDED.detection_pattern,
		detected_at=EXCLUDED.detected_at
	WHERE %s > %s
	RETURNING (xmax = 0)`,
	confidenceRankSQL("EXCLUDED.confidence"),
	confidenceRankSQL("correlation_links.confidence"))

// UpsertLink finds or creates a correlation link. An existing link is only
// overwritten when the incoming confidence strictly outranks the stored one,
// which makes repeated correlation runs idempotent and loss-free.
// Returns (created, changed).
func (r *Repository) UpsertLink(ctx context.Context, l domain.CorrelationLink) (bool, bool, error) {
	if l.DetectedAt.IsZero() {
		l.DetectedAt = time.Now().UTC()
	}
	var inserted bool
	err := r.db.Pool.QueryRow(ctx, upsertLinkSQL, l.WorkItemID, l.ArtifactID, string(l.ArtifactKind),
		l.LinkType, string(l.Confidence), l.DetectionPattern, l.DetectedAt).Scan(&inserted)
	if err == pgx.ErrNoRows {
		// Conflict and stored confidence already >= incoming: untouched.
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return inserted, true, nil
}

func (r *Repository) ListLinksForWorkItems(ctx context.Context, workItemIDs []int64) ([]domain.CorrelationLink, error) {
	if len(workItemIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, work_item_id, artifact_id, artifact_kind, link_type, confidence,
			detection_pattern, detected_at
		FROM correlation_links WHERE work_item_id = ANY($1)`, workItemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CorrelationLink
	for rows.Next() {
		var l domain.CorrelationLink
		var kind, conf string
		if err := rows.Scan(&l.ID, &l.WorkItemID, &l.ArtifactID, &kind, &l.LinkType, &conf,
			&l.DetectionPattern, &l.DetectedAt); err != nil {
			return nil, err
		}
		l.ArtifactKind = domain.ArtifactKind(kind)
		l.Confidence = domain.Confidence(conf)
		out = append(out, l)
	}
	return out, rows.Err()
}
