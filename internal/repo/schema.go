package repo

import "context"

// Migrate creates the schema when missing. Statements are idempotent so a
// fresh process can always run them at startup.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id             BIGSERIAL PRIMARY KEY,
		email          TEXT NOT NULL UNIQUE,
		linear_user_id TEXT NOT NULL DEFAULT '',
		github_handle  TEXT NOT NULL DEFAULT '',
		github_token   TEXT NOT NULL DEFAULT '',
		slack_channel  TEXT NOT NULL DEFAULT '',
		active         BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS work_items (
		id           BIGSERIAL PRIMARY KEY,
		ext_id       TEXT NOT NULL UNIQUE,
		identifier   TEXT NOT NULL,
		title        TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		state_name   TEXT NOT NULL DEFAULT '',
		state_type   TEXT NOT NULL DEFAULT 'unstarted',
		priority     INT NOT NULL DEFAULT 0,
		estimate     DOUBLE PRECISION,
		project_id   TEXT NOT NULL DEFAULT '',
		project_name TEXT NOT NULL DEFAULT '',
		team_id      TEXT NOT NULL DEFAULT '',
		team_name    TEXT NOT NULL DEFAULT '',
		team_key     TEXT NOT NULL DEFAULT '',
		assignee_id  TEXT NOT NULL DEFAULT '',
		url          TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ,
		started_at   TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		canceled_at  TIMESTAMPTZ,
		updated_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_work_items_identifier ON work_items(identifier)`,
	`CREATE TABLE IF NOT EXISTS artifacts (
		id            BIGSERIAL PRIMARY KEY,
		ext_id        TEXT NOT NULL UNIQUE,
		kind          TEXT NOT NULL,
		repo          TEXT NOT NULL DEFAULT '',
		number        INT NOT NULL DEFAULT 0,
		title         TEXT NOT NULL DEFAULT '',
		body          TEXT NOT NULL DEFAULT '',
		state         TEXT NOT NULL DEFAULT 'open',
		author        TEXT NOT NULL DEFAULT '',
		head_branch   TEXT NOT NULL DEFAULT '',
		base_branch   TEXT NOT NULL DEFAULT '',
		url           TEXT NOT NULL DEFAULT '',
		additions     INT NOT NULL DEFAULT 0,
		deletions     INT NOT NULL DEFAULT 0,
		changed_files INT NOT NULL DEFAULT 0,
		review_state  TEXT NOT NULL DEFAULT '',
		draft         BOOLEAN NOT NULL DEFAULT false,
		merged        BOOLEAN NOT NULL DEFAULT false,
		created_at    TIMESTAMPTZ,
		updated_at    TIMESTAMPTZ,
		closed_at     TIMESTAMPTZ,
		merged_at     TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS correlation_links (
		id                BIGSERIAL PRIMARY KEY,
		work_item_id      BIGINT NOT NULL REFERENCES work_items(id),
		artifact_id       BIGINT NOT NULL REFERENCES artifacts(id),
		artifact_kind     TEXT NOT NULL,
		link_type         TEXT NOT NULL,
		confidence        TEXT NOT NULL,
		detection_pattern TEXT NOT NULL DEFAULT '',
		detected_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (work_item_id, artifact_id, artifact_kind)
	)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		id            BIGSERIAL PRIMARY KEY,
		user_id       BIGINT NOT NULL REFERENCES users(id),
		entity_id     BIGINT NOT NULL,
		entity_kind   TEXT NOT NULL DEFAULT 'work_item',
		snapshot_date DATE NOT NULL,
		period_start  TIMESTAMPTZ NOT NULL,
		period_end    TIMESTAMPTZ NOT NULL,
		category      TEXT NOT NULL,
		state_name    TEXT NOT NULL DEFAULT '',
		state_type    TEXT NOT NULL DEFAULT '',
		priority      INT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_user_date ON snapshots(user_id, snapshot_date)`,
	`CREATE TABLE IF NOT EXISTS cooldown_schedules (
		user_id         BIGINT PRIMARY KEY REFERENCES users(id),
		next_start_date DATE NOT NULL,
		duration_weeks  INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sync_runs (
		sync_type         TEXT PRIMARY KEY,
		status            TEXT NOT NULL DEFAULT 'in_progress',
		last_started_at   TIMESTAMPTZ,
		last_completed_at TIMESTAMPTZ,
		last_success_at   TIMESTAMPTZ,
		last_failed_at    TIMESTAMPTZ,
		last_error        TEXT NOT NULL DEFAULT '',
		total_runs        INT NOT NULL DEFAULT 0,
		success_count     INT NOT NULL DEFAULT 0,
		failure_count     INT NOT NULL DEFAULT 0,
		metadata          JSONB NOT NULL DEFAULT '{}'::jsonb
	)`,
	`CREATE TABLE IF NOT EXISTS delivery_log (
		id               BIGSERIAL PRIMARY KEY,
		attempt_id       TEXT NOT NULL DEFAULT '',
		user_id          BIGINT NOT NULL REFERENCES users(id),
		sent_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		status           TEXT NOT NULL,
		error_message    TEXT NOT NULL DEFAULT '',
		rendered_content TEXT NOT NULL DEFAULT '',
		period_start     TIMESTAMPTZ,
		period_end       TIMESTAMPTZ,
		issue_count      INT NOT NULL DEFAULT 0,
		in_cooldown      BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_log_user ON delivery_log(user_id, sent_at DESC)`,
}
