package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

// UpsertWorkItem writes the canonical row by external id and returns the
// internal id. Later runs overwrite volatile fields; history lives in
// snapshots, never here.
func (r *Repository) UpsertWorkItem(ctx context.Context, w domain.WorkItem) (int64, error) {
	const q = `
		INSERT INTO work_items(ext_id, identifier, title, description, state_name, state_type,
			priority, estimate, project_id, project_name, team_id, team_name, team_key,
			assignee_id, url, created_at, started_at, completed_at, canceled_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		ON CONFLICT(ext_id) DO UPDATE SET
			identifier=EXCLUDED.identifier,
			title=EXCLUDED.title,
			description=EXCLUDED.description,
			state_name=EXCLUDED.state_name,
			state_type=EXCLUDED.state_type,
			priority=EXCLUDED.priority,
			estimate=EXCLUDED.estimate,
			project_id=EXCLUDED.project_id,
			project_name=EXCLUDED.project_name,
			team_id=EXCLUDED.team_id,
			team_name=EXCLUDED.team_name,
			team_key=EXCLUDED.team_key,
			assignee_id=EXCLUDED.assignee_id,
			url=EXCLUDED.url,
			created_at=EXCLUDED.created_at,
			started_at=EXCLUDED.started_at,
			completed_at=EXCLUDED.completed_at,
			canceled_at=EXCLUDED.canceled_at,
			updated_at=EXCLUDED.updated_at
		RETURNING id`
	var id int64
	row := r.db.Pool.QueryRow(ctx, q, w.ExtID, w.Identifier, w.Title, w.Description, w.StateName,
		string(w.StateType), w.Priority, w.Estimate, w.ProjectID, w.ProjectName, w.TeamID,
		w.TeamName, w.TeamKey, w.AssigneeID, w.URL, w.CreatedAt, w.StartedAt, w.CompletedAt,
		w.CanceledAt, w.UpdatedAt)
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) UpsertArtifact(ctx context.Context, a domain.Artifact) (int64, error) {
	const q = `
		INSERT INTO artifacts(ext_id, kind, repo, number, title, body, state, author,
			head_branch, base_branch, url, additions, deletions, changed_files,
			review_state, draft, merged, created_at, updated_at, closed_at, merged_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		ON CONFLICT(ext_id) DO UPDATE SET
			repo=EXCLUDED.repo,
			number=EXCLUDED.number,
			title=EXCLUDED.title,
			body=EXCLUDED.body,
			state=EXCLUDED.state,
			author=EXCLUDED.author,
			head_branch=EXCLUDED.head_branch,
			base_branch=EXCLUDED.base_branch,
			url=EXCLUDED.url,
			additions=EXCLUDED.additions,
			deletions=EXCLUDED.deletions,
			changed_files=EXCLUDED.changed_files,
			review_state=EXCLUDED.review_state,
			draft=EXCLUDED.draft,
			merged=EXCLUDED.merged,
			created_at=EXCLUDED.created_at,
			updated_at=EXCLUDED.updated_at,
			closed_at=EXCLUDED.closed_at,
			merged_at=EXCLUDED.merged_at
		RETURNING id`
	var id int64
	row := r.db.Pool.QueryRow(ctx, q, a.ExtID, string(a.Kind), a.Repo, a.Number, a.Title, a.Body,
		a.State, a.Author, a.HeadBranch, a.BaseBranch, a.URL, a.Additions, a.Deletions,
		a.ChangedFiles, a.ReviewState, a.Draft, a.Merged, a.CreatedAt, a.UpdatedAt, a.ClosedAt,
		a.MergedAt)
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// WorkItemIDByIdentifier resolves a canonical identifier (ENG-123) to the
// internal id. The boolean is false on a miss; callers decide whether a miss
// is fatal.
func (r *Repository) WorkItemIDByIdentifier(ctx context.Context, identifier string) (int64, bool, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id FROM work_items WHERE identifier=$1 ORDER BY id LIMIT 1`, identifier).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// InsertSnapshots appends snapshot rows. Rows are never updated after
// insert; the dated copy is what keeps old reports historically accurate.
func (r *Repository) InsertSnapshots(ctx context.Context, snaps []domain.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const q = `INSERT INTO snapshots(user_id, entity_id, entity_kind, snapshot_date,
			period_start, period_end, category, state_name, state_type, priority)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	for _, s := range snaps {
		batch.Queue(q, s.UserID, s.EntityID, s.EntityKind, s.SnapshotDate, s.PeriodStart,
			s.PeriodEnd, string(s.Category), s.StateName, string(s.StateType), s.Priority)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range snaps {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LatestSnapshotDate resolves the single date the "current" view reads from.
func (r *Repository) LatestSnapshotDate(ctx context.Context, userID int64) (time.Time, bool, error) {
	var d *time.Time
	err := r.db.Pool.QueryRow(ctx,
		`SELECT MAX(snapshot_date) FROM snapshots WHERE user_id=$1`, userID).Scan(&d)
	if err != nil {
		return time.Time{}, false, err
	}
	if d == nil {
		return time.Time{}, false, nil
	}
	return *d, true, nil
}

// ItemFilters narrows the latest-view query. Zero values mean "no filter".
type ItemFilters struct {
	Category  domain.Category
	ProjectID string
	TeamID    string
	Priority  *int
	StateType domain.StateType
	Search    string
}

// SnapshotItem is one row of the latest view: the canonical work item plus
// the category and denormalized fields captured at snapshot time.
type SnapshotItem struct {
	domain.WorkItem
	Category      domain.Category
	SnapshotDate  time.Time
	SnapshotState domain.StateType
	SnapshotPrio  int
	PeriodStart   time.Time
	PeriodEnd     time.Time
}

// ListLatestView returns all entities snapshotted at the user's maximum
// snapshot date, filtered. Rows from two different dates never mix: the date
// is resolved first and pinned in the WHERE clause.
func (r *Repository) ListLatestView(ctx context.Context, userID int64, f ItemFilters) ([]SnapshotItem, error) {
	date, ok, err := r.LatestSnapshotDate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	where := []string{"s.user_id=$1", "s.snapshot_date=$2", "s.entity_kind='work_item'"}
	args := []any{userID, date}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Category != "" {
		add("s.category=$%d", string(f.Category))
	}
	if f.ProjectID != "" {
		add("w.project_id=$%d", f.ProjectID)
	}
	if f.TeamID != "" {
		add("w.team_id=$%d", f.TeamID)
	}
	if f.Priority != nil {
		add("s.priority=$%d", *f.Priority)
	}
	if f.StateType != "" {
		add("s.state_type=$%d", string(f.StateType))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(w.title ILIKE $%d OR w.description ILIKE $%d OR w.identifier ILIKE $%d)", n, n, n))
	}

	q := `SELECT w.id, w.ext_id, w.identifier, w.title, w.description, w.state_name, w.state_type,
			w.priority, w.estimate, w.project_id, w.project_name, w.team_id, w.team_name, w.team_key,
			w.assignee_id, w.url, w.created_at, w.started_at, w.completed_at, w.canceled_at, w.updated_at,
			s.category, s.snapshot_date, s.state_type, s.priority, s.period_start, s.period_end
		FROM snapshots s
		JOIN work_items w ON w.id = s.entity_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY s.category, w.priority DESC, w.identifier`

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotItem
	for rows.Next() {
		var it SnapshotItem
		var stateType, snapState, category string
		if err := rows.Scan(&it.WorkItem.ID, &it.ExtID, &it.Identifier, &it.Title, &it.Description,
			&it.StateName, &stateType, &it.WorkItem.Priority, &it.Estimate, &it.ProjectID,
			&it.ProjectName, &it.TeamID, &it.TeamName, &it.TeamKey, &it.AssigneeID, &it.URL,
			&it.CreatedAt, &it.StartedAt, &it.CompletedAt, &it.CanceledAt, &it.UpdatedAt,
			&category, &it.SnapshotDate, &snapState, &it.SnapshotPrio, &it.PeriodStart,
			&it.PeriodEnd); err != nil {
			return nil, err
		}
		it.StateType = domain.StateType(stateType)
		it.SnapshotState = domain.StateType(snapState)
		it.Category = domain.Category(category)
		out = append(out, it)
	}
	return out, rows.Err()
}

// FilterOption is one distinct project or team value available at the latest
// snapshot date, for populating the browsing UI's filter dropdowns.
type FilterOption struct {
	ID   string
	Name string
}

func (r *Repository) ListFilterOptions(ctx context.Context, userID int64) (projects, teams []FilterOption, err error) {
	date, ok, err := r.LatestSnapshotDate(ctx, userID)
	if err != nil || !ok {
		return nil, nil, err
	}
	const q = `SELECT DISTINCT w.project_id, w.project_name, w.team_id, w.team_name
		FROM snapshots s JOIN work_items w ON w.id = s.entity_id
		WHERE s.user_id=$1 AND s.snapshot_date=$2 AND s.entity_kind='work_item'`
	rows, err := r.db.Pool.Query(ctx, q, userID, date)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	projSeen := map[string]struct{}{}
	teamSeen := map[string]struct{}{}
	for rows.Next() {
		var pid, pname, tid, tname string
		if err := rows.Scan(&pid, &pname, &tid, &tname); err != nil {
			return nil, nil, err
		}
		if pid != "" {
			if _, ok := projSeen[pid]; !ok {
				projSeen[pid] = struct{}{}
				projects = append(projects, FilterOption{ID: pid, Name: pname})
			}
		}
		if tid != "" {
			if _, ok := teamSeen[tid]; !ok {
				teamSeen[tid] = struct{}{}
				teams = append(teams, FilterOption{ID: tid, Name: tname})
			}
		}
	}
	return projects, teams, rows.Err()
}
