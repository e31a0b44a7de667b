/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/AgentEnder/slack-linear-rundown/internal/config"
	"github.com/AgentEnder/slack-linear-rundown/internal/repo"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc service, r *repo.Repository) *gin.Engine {
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	e := gin.New()
	e.Use(gin.Recovery())
	e.Use(func(c *gin.Context) {
		c.Next()
		log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
	})

	h := NewHandlers(cfg, log, svc, r)

	e.GET("/healthz", h.Healthz)

	api := e.Group("/api")
	api.GET("/work-items", h.WorkItems)
	api.GET("/work-items/filters", h.WorkItemFilters)
	api.GET("/report/preview/:user", h.ReportPreview)

	admin := e.Group("/admin")
	admin.POST("/send/:user", h.SendUser)
	admin.POST("/send-all", h.SendAll)
	admin.POST("/retry/:user", h.RetryUser)
	admin.GET("/sync-status", h.SyncStatus)
	admin.PUT("/users/:user", h.UpsertUser)
	admin.PUT("/users/:user/cooldown", h.PutCooldown)
	admin.DELETE("/users/:user/cooldown", h.DeleteCooldown)

	return e
}
