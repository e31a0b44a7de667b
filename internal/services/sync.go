package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/AgentEnder/slack-linear-rundown/internal/classify"
	"github.com/AgentEnder/slack-linear-rundown/internal/correlate"
	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

// runStore is the slice of the repository the tracker needs. Narrow so tests
// can fake it.
type runStore interface {
	StartSyncRun(ctx context.Context, t domain.SyncType) error
	FinishSyncRunSuccess(ctx context.Context, t domain.SyncType, metadata map[string]any) error
	FinishSyncRunFailure(ctx context.Context, t domain.SyncType, msg string) error
}

// Tracker books every sync pass into sync_runs: in_progress at the start,
// success or failed at the end. Bookkeeping failures are logged, never
// escalated; the wrapped work decides the outcome.
type Tracker struct {
	store runStore
	log   zerolog.Logger
}

func NewTracker(store runStore, log zerolog.Logger) *Tracker {
	return &Tracker{store: store, log: log}
}

// Run executes fn under sync-run bookkeeping for the given type. The metadata
// fn returns is recorded on success.
func (t *Tracker) Run(ctx context.Context, st domain.SyncType, fn func(ctx context.Context) (map[string]any, error)) error {
	if err := t.store.StartSyncRun(ctx, st); err != nil {
		t.log.Error().Err(err).Str("sync_type", string(st)).Msg("sync run start not recorded")
	}
	md, err := fn(ctx)
	if err != nil {
		if ferr := t.store.FinishSyncRunFailure(ctx, st, err.Error()); ferr != nil {
			t.log.Error().Err(ferr).Str("sync_type", string(st)).Msg("sync run failure not recorded")
		}
		return err
	}
	if ferr := t.store.FinishSyncRunSuccess(ctx, st, md); ferr != nil {
		t.log.Error().Err(ferr).Str("sync_type", string(st)).Msg("sync run success not recorded")
	}
	return nil
}

// CorrelationStats counts outcomes of one correlation pass. TotalMatches is
// every detection that resolved to a stored work item; CreatedLinks counts
// only rows newly inserted, so a rerun over the same data reports zero.
type CorrelationStats struct {
	TotalMatches int
	CreatedLinks int
}

// syncSnapshots appends the categorized view of one report run. Append-only:
// reruns on the same date add rows rather than rewrite them.
func (s *Service) syncSnapshots(ctx context.Context, userID int64, b classify.Buckets, periodStart, periodEnd time.Time) error {
	return s.runs.Run(ctx, domain.SyncWorkItems, func(ctx context.Context) (map[string]any, error) {
		date := periodEnd.Truncate(24 * time.Hour)
		var snaps []domain.Snapshot
		add := func(cat domain.Category, items []domain.WorkItem) {
			for _, it := range items {
				id, err := s.repo.UpsertWorkItem(ctx, it)
				if err != nil {
					s.log.Error().Err(err).Str("identifier", it.Identifier).Msg("work item upsert failed")
					continue
				}
				snaps = append(snaps, domain.Snapshot{
					UserID:       userID,
					EntityID:     id,
					EntityKind:   "work_item",
					SnapshotDate: date,
					PeriodStart:  periodStart,
					PeriodEnd:    periodEnd,
					Category:     cat,
					StateName:    it.StateName,
					StateType:    it.StateType,
					Priority:     it.Priority,
				})
			}
		}
		add(domain.CategoryCompleted, b.Completed)
		add(domain.CategoryStarted, b.Started)
		add(domain.CategoryUpdated, b.Updated)
		add(domain.CategoryOtherOpen, b.OtherOpen)
		if err := s.repo.InsertSnapshots(ctx, snaps); err != nil {
			return nil, err
		}
		return map[string]any{"snapshots": len(snaps)}, nil
	})
}

// syncArtifacts pulls the user's recent pull requests and cross-tracker
// issues, then correlates them against known work items. Fetch and
// correlation are tracked as separate runs so a correlation failure still
// leaves the artifact fetch marked successful.
func (s *Service) syncArtifacts(ctx context.Context, user *domain.User, since time.Time) error {
	var artifacts []domain.Artifact
	err := s.runs.Run(ctx, domain.SyncArtifacts, func(ctx context.Context) (map[string]any, error) {
		prs, err := s.scm.RecentPullRequests(ctx, user.GithubHandle, user.GithubToken, since)
		if err != nil {
			return nil, err
		}
		issues, err := s.scm.RecentIssues(ctx, user.GithubHandle, user.GithubToken, since)
		if err != nil {
			return nil, err
		}
		artifacts = append(prs, issues...)
		return map[string]any{"artifacts": len(artifacts)}, nil
	})
	if err != nil {
		return err
	}
	return s.runs.Run(ctx, domain.SyncCorrelation, func(ctx context.Context) (map[string]any, error) {
		stats, err := s.CorrelateArtifacts(ctx, artifacts)
		if err != nil {
			return nil, err
		}
		return map[string]any{"matches": stats.TotalMatches, "new_links": stats.CreatedLinks}, nil
	})
}

// CorrelateArtifacts stores each artifact and persists every detection that
// resolves to a known work item. Identifiers with no stored work item are
// logged and skipped; they never fail the batch. Database errors do.
func (s *Service) CorrelateArtifacts(ctx context.Context, artifacts []domain.Artifact) (CorrelationStats, error) {
	var stats CorrelationStats
	for _, a := range artifacts {
		id, err := s.repo.UpsertArtifact(ctx, a)
		if err != nil {
			return stats, err
		}
		a.ID = id
		for _, det := range correlate.MatchArtifact(a) {
			workItemID, ok, err := s.repo.WorkItemIDByIdentifier(ctx, det.Identifier)
			if err != nil {
				return stats, err
			}
			if !ok {
				s.log.Warn().Str("identifier", det.Identifier).Str("artifact", a.URL).Msg("matched identifier has no stored work item")
				continue
			}
			stats.TotalMatches++
			created, _, err := s.repo.UpsertLink(ctx, domain.CorrelationLink{
				WorkItemID:       workItemID,
				ArtifactID:       a.ID,
				ArtifactKind:     a.Kind,
				LinkType:         det.LinkType,
				Confidence:       det.Confidence,
				DetectionPattern: det.DetectionPattern,
			})
			if err != nil {
				return stats, err
			}
			if created {
				stats.CreatedLinks++
			}
		}
	}
	return stats, nil
}
