/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AgentEnder/slack-linear-rundown/internal/adapters/github"
	"github.com/AgentEnder/slack-linear-rundown/internal/adapters/linear"
	"github.com/AgentEnder/slack-linear-rundown/internal/adapters/openai"
	"github.com/AgentEnder/slack-linear-rundown/internal/adapters/slack"
	"github.com/AgentEnder/slack-linear-rundown/internal/config"
	httpapi "github.com/AgentEnder/slack-linear-rundown/internal/http"
	"github.com/AgentEnder/slack-linear-rundown/internal/jobs"
	"github.com/AgentEnder/slack-linear-rundown/internal/logger"
	"github.com/AgentEnder/slack-linear-rundown/internal/repo"
	"github.com/AgentEnder/slack-linear-rundown/internal/services"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := repo.MustOpen(ctx, cfg, log)
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	tracker := linear.NewClient(cfg, log)
	scm := github.NewClient(cfg, log)
	notifier := slack.NewClient(cfg, log)
	ai := openai.NewClient(cfg, log)

	repository := repo.NewRepository(db, log)
	svc := services.New(cfg, log, repository, tracker, scm, notifier, ai)

	router := httpapi.NewRouter(cfg, log, svc, repository)

	cr := jobs.NewCron(cfg, log, svc, repository)
	cr.Start()
	defer cr.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- router.Run(cfg.HTTPAddr) }()
	log.Info().Str("addr", cfg.HTTPAddr).Str("schedule", cfg.ReportCron).Msg("rundown service up")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Give in-flight deliveries a moment to write their logs.
	time.Sleep(500 * time.Millisecond)
}
