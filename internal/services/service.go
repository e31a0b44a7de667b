/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AgentEnder/slack-linear-rundown/internal/classify"
	"github.com/AgentEnder/slack-linear-rundown/internal/config"
	"github.com/AgentEnder/slack-linear-rundown/internal/cooldown"
	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
	"github.com/AgentEnder/slack-linear-rundown/internal/repo"
)

type TrackerClient interface {
	Available() bool
	AssignedIssues(ctx context.Context, linearUserID string, updatedAfter time.Time) ([]domain.WorkItem, error)
}

type SourceControlClient interface {
	RecentPullRequests(ctx context.Context, handle, token string, since time.Time) ([]domain.Artifact, error)
	RecentIssues(ctx context.Context, handle, token string, since time.Time) ([]domain.Artifact, error)
}

type Notifier interface {
	PostMessage(ctx context.Context, channel, text string) error
}

type Summarizer interface {
	Available() bool
	Highlights(ctx context.Context, breakdown map[string][]string) (string, error)
}

type Service struct {
	cfg     config.Config
	log     zerolog.Logger
	repo    *repo.Repository
	tracker TrackerClient
	scm     SourceControlClient
	slack   Notifier
	ai      Summarizer
	runs    *Tracker

	mu       sync.Mutex
	running  bool
	previews map[int64]string

	sleep func(time.Duration) // injected for tests
}

func New(cfg config.Config, log zerolog.Logger, r *repo.Repository, tracker TrackerClient, scm SourceControlClient, slack Notifier, ai Summarizer) *Service {
	return &Service{
		cfg:      cfg,
		log:      log,
		repo:     r,
		tracker:  tracker,
		scm:      scm,
		slack:    slack,
		ai:       ai,
		runs:     NewTracker(r, log),
		previews: map[int64]string{},
		sleep:    time.Sleep,
	}
}

// TryBeginRun guards ad-hoc triggers with a process-local flag. Soft
// protection only: it does not survive a restart, and the cron path layers a
// DB advisory lock on top.
func (s *Service) TryBeginRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Service) EndRun() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// DeliverToUser runs the full per-user pipeline: fetch, cooldown filter,
// classify, best-effort snapshot + artifact sync, render, send, log.
func (s *Service) DeliverToUser(ctx context.Context, userID int64) error {
	attemptID := uuid.NewString()
	now := time.Now().UTC()
	periodEnd := now
	periodStart := now.AddDate(0, 0, -s.windowDays())
	log := s.log.With().Int64("user", userID).Str("attempt", attemptID).Logger()

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	rec := domain.DeliveryRecord{
		AttemptID:   attemptID,
		UserID:      userID,
		SentAt:      now,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}
	if user == nil || user.LinearUserID == "" || user.SlackChannel == "" {
		// Identity mapping absent: fail fast, record the skip.
		rec.Status = domain.DeliverySkipped
		rec.Error = "identity mapping missing"
		if user != nil {
			_ = s.repo.InsertDelivery(ctx, rec)
		}
		log.Warn().Msg("delivery skipped: identity mapping missing")
		return fmt.Errorf("user %d: identity mapping missing", userID)
	}
	if !s.tracker.Available() {
		rec.Status = domain.DeliverySkipped
		rec.Error = "tracker unavailable"
		_ = s.repo.InsertDelivery(ctx, rec)
		log.Warn().Msg("delivery skipped: tracker unavailable")
		return nil
	}

	// Server-side filter: open OR updated within the last 30 days. The
	// classifier assumes closed-and-stale items never reach it.
	items, err := s.tracker.AssignedIssues(ctx, user.LinearUserID, now.AddDate(0, 0, -30))
	if err != nil {
		rec.Status = domain.DeliveryFailed
		rec.Error = err.Error()
		_ = s.repo.InsertDelivery(ctx, rec)
		return fmt.Errorf("user %d: fetch work items: %w", userID, err)
	}

	sched, err := s.repo.GetCooldown(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("cooldown lookup failed; treating as inactive")
	}
	status := cooldown.GetStatus(sched, now)
	if status.InCooldown {
		items = cooldown.FilterItems(items, s.cfg.CooldownAllowList)
		log.Info().Int("week", status.WeekNumber).Int("of", status.TotalWeeks).Msg("cooldown active")
	}

	buckets := classify.Partition(items, periodStart)

	// Best-effort side channels: snapshot and artifact sync failures are
	// logged, never fatal to the report.
	if err := s.syncSnapshots(ctx, userID, buckets, periodStart, periodEnd); err != nil {
		log.Error().Err(err).Msg("snapshot sync failed")
	}
	if user.GithubHandle != "" && (user.GithubToken != "" || s.cfg.GithubToken != "") {
		if err := s.syncArtifacts(ctx, user, periodStart); err != nil {
			log.Error().Err(err).Msg("artifact sync failed")
		}
	}

	report := s.renderReport(buckets, status, periodStart, periodEnd)
	if s.ai != nil && s.ai.Available() {
		if hl, err := s.ai.Highlights(ctx, bucketTitles(buckets)); err == nil && hl != "" {
			report = "_" + slackEscape(hl) + "_\n\n" + report
		} else if err != nil {
			log.Warn().Err(err).Msg("highlights skipped")
		}
	}

	rec.Content = report
	rec.IssueCount = buckets.Total()
	rec.InCooldown = status.InCooldown

	for _, part := range chunkText(report, 3800) {
		if err := s.slack.PostMessage(ctx, user.SlackChannel, part); err != nil {
			rec.Status = domain.DeliveryFailed
			rec.Error = err.Error()
			_ = s.repo.InsertDelivery(ctx, rec)
			return fmt.Errorf("user %d: slack send: %w", userID, err)
		}
	}

	rec.Status = domain.DeliverySuccess
	if err := s.repo.InsertDelivery(ctx, rec); err != nil {
		log.Error().Err(err).Msg("delivery log write failed")
	}
	s.invalidatePreview(userID)
	log.Info().Int("issues", rec.IssueCount).Bool("cooldown", rec.InCooldown).Msg("report delivered")
	return nil
}

// DeliverToAll sends to every active user, strictly sequentially to respect
// the external rate limits. A per-user failure moves on to the next user.
func (s *Service) DeliverToAll(ctx context.Context) error {
	return s.runs.Run(ctx, domain.SyncDelivery, func(ctx context.Context) (map[string]any, error) {
		users, err := s.repo.ListActiveUsers(ctx)
		if err != nil {
			return nil, err
		}
		var sent, failed int
		for _, u := range users {
			if err := s.DeliverToUser(ctx, u.ID); err != nil {
				failed++
				s.log.Error().Err(err).Int64("user", u.ID).Msg("delivery failed; continuing batch")
				continue
			}
			sent++
		}
		return map[string]any{"users": len(users), "sent": sent, "failed": failed}, nil
	})
}

// Preview returns the rendered report without sending it, cached until the
// next successful delivery for that user.
func (s *Service) Preview(ctx context.Context, userID int64) (string, error) {
	s.mu.Lock()
	if cached, ok := s.previews[userID]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil || user.LinearUserID == "" {
		return "", fmt.Errorf("user %d: identity mapping missing", userID)
	}
	now := time.Now().UTC()
	periodStart := now.AddDate(0, 0, -s.windowDays())
	items, err := s.tracker.AssignedIssues(ctx, user.LinearUserID, now.AddDate(0, 0, -30))
	if err != nil {
		return "", err
	}
	sched, _ := s.repo.GetCooldown(ctx, userID)
	status := cooldown.GetStatus(sched, now)
	if status.InCooldown {
		items = cooldown.FilterItems(items, s.cfg.CooldownAllowList)
	}
	report := s.renderReport(classify.Partition(items, periodStart), status, periodStart, now)

	s.mu.Lock()
	s.previews[userID] = report
	s.mu.Unlock()
	return report, nil
}

func (s *Service) invalidatePreview(userID int64) {
	s.mu.Lock()
	delete(s.previews, userID)
	s.mu.Unlock()
}

func (s *Service) SyncStatus(ctx context.Context) ([]domain.SyncRun, error) {
	return s.repo.ListSyncRuns(ctx)
}

func (s *Service) windowDays() int {
	if s.cfg.ReportWindowDays > 0 {
		return s.cfg.ReportWindowDays
	}
	return 7
}

func bucketTitles(b classify.Buckets) map[string][]string {
	out := map[string][]string{}
	collect := func(key string, items []domain.WorkItem) {
		for _, it := range items {
			out[key] = append(out[key], it.Title)
		}
	}
	collect("completed", b.Completed)
	collect("started", b.Started)
	collect("updated", b.Updated)
	collect("other", b.OtherOpen)
	return out
}
