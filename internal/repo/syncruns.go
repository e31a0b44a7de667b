package repo

import (
	"context"
	"fmt"

	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

// StartSyncRun marks the sync type in progress and bumps total_runs. The
// counter increment runs SQL-side so concurrent runs cannot lose updates.
func (r *Repository) StartSyncRun(ctx context.Context, t domain.SyncType) error {
	if !t.Valid() {
		return fmt.Errorf("invalid sync type %q", t)
	}
	const q = `
		INSERT INTO sync_runs(sync_type, status, last_started_at, total_runs)
		VALUES($1, 'in_progress', now(), 1)
		ON CONFLICT (sync_type) DO UPDATE SET
			status='in_progress',
			last_started_at=now(),
			total_runs=sync_runs.total_runs + 1`
	_, err := r.db.Pool.Exec(ctx, q, string(t))
	return err
}

// FinishSyncRunSuccess records a completed run: timestamps updated, last
// error cleared, success counter bumped, caller metadata stored.
func (r *Repository) FinishSyncRunSuccess(ctx context.Context, t domain.SyncType, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	const q = `
		UPDATE sync_runs SET
			status='success',
			last_completed_at=now(),
			last_success_at=now(),
			last_error='',
			success_count=sync_runs.success_count + 1,
			metadata=$2
		WHERE sync_type=$1`
	_, err := r.db.Pool.Exec(ctx, q, string(t), metadata)
	return err
}

func (r *Repository) FinishSyncRunFailure(ctx context.Context, t domain.SyncType, errMsg string) error {
	const q = `
		UPDATE sync_runs SET
			status='failed',
			last_completed_at=now(),
			last_failed_at=now(),
			last_error=$2,
			failure_count=sync_runs.failure_count + 1
		WHERE sync_type=$1`
	_, err := r.db.Pool.Exec(ctx, q, string(t), errMsg)
	return err
}

func (r *Repository) ListSyncRuns(ctx context.Context) ([]domain.SyncRun, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT sync_type, status, last_started_at, last_completed_at, last_success_at,
			last_failed_at, last_error, total_runs, success_count, failure_count, metadata
		FROM sync_runs ORDER BY sync_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.SyncRun
	for rows.Next() {
		var sr domain.SyncRun
		var typ, status string
		if err := rows.Scan(&typ, &status, &sr.LastStartedAt, &sr.LastCompletedAt,
			&sr.LastSuccessAt, &sr.LastFailedAt, &sr.LastError, &sr.TotalRuns,
			&sr.SuccessCount, &sr.FailureCount, &sr.Metadata); err != nil {
			return nil, err
		}
		sr.SyncType = domain.SyncType(typ)
		sr.Status = domain.SyncStatus(status)
		out = append(out, sr)
	}
	return out, rows.Err()
}
