package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/AgentEnder/slack-linear-rundown/internal/config"
	"github.com/AgentEnder/slack-linear-rundown/internal/repo"
)

type service interface {
	TryBeginRun() bool
	EndRun()
	DeliverToAll(ctx context.Context) error
}

type Cron struct {
	cfg  config.Config
	log  zerolog.Logger
	svc  service
	repo *repo.Repository
	c    *cron.Cron
}

func NewCron(cfg config.Config, log zerolog.Logger, svc service, r *repo.Repository) *Cron {
	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	cr := &Cron{cfg: cfg, log: log, svc: svc, repo: r, c: c}
	if _, err := c.AddFunc(cfg.ReportCron, cr.reports); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.ReportCron).Msg("invalid report schedule")
	}
	return cr
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { cr.c.Stop() }

// reports delivers the rundown to every active user. A Postgres advisory
// lock keeps multiple instances from double-sending; the process-local run
// flag keeps the schedule from overlapping an ad-hoc admin trigger.
func (cr *Cron) reports() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	const lockKey int64 = 727272
	ok, err := cr.repo.TryAdvisoryLock(ctx, lockKey)
	if err != nil {
		cr.log.Error().Err(err).Msg("cron: lock error")
		return
	}
	if !ok {
		cr.log.Info().Msg("cron: delivery already running elsewhere")
		return
	}
	defer func() { _ = cr.repo.AdvisoryUnlock(context.Background(), lockKey) }()

	if !cr.svc.TryBeginRun() {
		cr.log.Info().Msg("cron: delivery already running in-process")
		return
	}
	defer cr.svc.EndRun()

	cr.log.Info().Msg("cron: report delivery")
	if err := cr.svc.DeliverToAll(ctx); err != nil {
		cr.log.Error().Err(err).Msg("cron: report delivery failed")
	}
}
