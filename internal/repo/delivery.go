package repo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

func (r *Repository) UpsertUser(ctx context.Context, u domain.User) (int64, error) {
	const q = `
		INSERT INTO users(email, linear_user_id, github_handle, github_token, slack_channel, active)
		VALUES($1,$2,$3,$4,$5,$6)
		ON CONFLICT(email) DO UPDATE SET
			linear_user_id=EXCLUDED.linear_user_id,
			github_handle=EXCLUDED.github_handle,
			github_token=EXCLUDED.github_token,
			slack_channel=EXCLUDED.slack_channel,
			active=EXCLUDED.active
		RETURNING id`
	var id int64
	err := r.db.Pool.QueryRow(ctx, q, u.Email, u.LinearUserID, u.GithubHandle, u.GithubToken,
		u.SlackChannel, u.Active).Scan(&id)
	return id, err
}

func (r *Repository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT id, email, linear_user_id, github_handle, github_token, slack_channel, active
		FROM users WHERE id=$1`
	var u domain.User
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Email, &u.LinearUserID, &u.GithubHandle,
		&u.GithubToken, &u.SlackChannel, &u.Active)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) ListActiveUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, email, linear_user_id, github_handle,
		github_token, slack_channel, active FROM users WHERE active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.LinearUserID, &u.GithubHandle, &u.GithubToken,
			&u.SlackChannel, &u.Active); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpsertCooldown replaces the user's schedule wholesale; at most one row per
// user exists.
func (r *Repository) UpsertCooldown(ctx context.Context, s domain.CooldownSchedule) error {
	const q = `
		INSERT INTO cooldown_schedules(user_id, next_start_date, duration_weeks)
		VALUES($1,$2,$3)
		ON CONFLICT(user_id) DO UPDATE SET
			next_start_date=EXCLUDED.next_start_date,
			duration_weeks=EXCLUDED.duration_weeks`
	_, err := r.db.Pool.Exec(ctx, q, s.UserID, s.NextStartDate, s.DurationWeeks)
	return err
}

// DeleteCooldown clears the schedule; the user exits cooldown on the next
// evaluation.
func (r *Repository) DeleteCooldown(ctx context.Context, userID int64) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM cooldown_schedules WHERE user_id=$1`, userID)
	return err
}

func (r *Repository) GetCooldown(ctx context.Context, userID int64) (*domain.CooldownSchedule, error) {
	var s domain.CooldownSchedule
	err := r.db.Pool.QueryRow(ctx, `SELECT user_id, next_start_date, duration_weeks
		FROM cooldown_schedules WHERE user_id=$1`, userID).
		Scan(&s.UserID, &s.NextStartDate, &s.DurationWeeks)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) InsertDelivery(ctx context.Context, d domain.DeliveryRecord) error {
	const q = `
		INSERT INTO delivery_log(attempt_id, user_id, sent_at, status, error_message,
			rendered_content, period_start, period_end, issue_count, in_cooldown)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.db.Pool.Exec(ctx, q, d.AttemptID, d.UserID, d.SentAt, string(d.Status), d.Error,
		d.Content, d.PeriodStart, d.PeriodEnd, d.IssueCount, d.InCooldown)
	return err
}

// LastDelivery returns the most recent delivery attempt for the user, used
// by the retry path to decide whether there is anything to retry.
func (r *Repository) LastDelivery(ctx context.Context, userID int64) (*domain.DeliveryRecord, error) {
	const q = `SELECT id, attempt_id, user_id, sent_at, status, error_message, rendered_content,
			period_start, period_end, issue_count, in_cooldown
		FROM delivery_log WHERE user_id=$1 ORDER BY sent_at DESC, id DESC LIMIT 1`
	var d domain.DeliveryRecord
	var status string
	err := r.db.Pool.QueryRow(ctx, q, userID).Scan(&d.ID, &d.AttemptID, &d.UserID, &d.SentAt,
		&status, &d.Error, &d.Content, &d.PeriodStart, &d.PeriodEnd, &d.IssueCount, &d.InCooldown)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.Status = domain.DeliveryStatus(status)
	return &d, nil
}
