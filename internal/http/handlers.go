/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/AgentEnder/slack-linear-rundown/internal/config"
	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
	"github.com/AgentEnder/slack-linear-rundown/internal/repo"
)

type service interface {
	TryBeginRun() bool
	EndRun()
	DeliverToUser(ctx context.Context, userID int64) error
	DeliverToAll(ctx context.Context) error
	RetryDelivery(ctx context.Context, userID int64) error
	Preview(ctx context.Context, userID int64) (string, error)
	SyncStatus(ctx context.Context) ([]domain.SyncRun, error)
}

type Handlers struct {
	cfg  config.Config
	log  zerolog.Logger
	svc  service
	repo *repo.Repository
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc service, r *repo.Repository) *Handlers {
	return &Handlers{cfg: cfg, log: log, svc: svc, repo: r}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// WorkItems serves the latest-snapshot view with optional filters. Every row
// comes from the single most recent snapshot date for the user.
func (h *Handlers) WorkItems(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}
	f := repo.ItemFilters{
		Category:  domain.Category(c.Query("category")),
		ProjectID: c.Query("projectId"),
		TeamID:    c.Query("teamId"),
		StateType: domain.StateType(c.Query("stateType")),
		Search:    c.Query("search"),
	}
	if f.Category != "" && !f.Category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}
	if f.StateType != "" && !f.StateType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown state type"})
		return
	}
	if p := c.Query("priority"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be an integer"})
			return
		}
		f.Priority = &n
	}
	items, err := h.repo.ListLatestView(c.Request.Context(), userID, f)
	if err != nil {
		h.fail(c, err)
		return
	}
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.WorkItem.ID)
	}
	links, err := h.repo.ListLinksForWorkItems(c.Request.Context(), ids)
	if err != nil {
		h.fail(c, err)
		return
	}
	byItem := linksByWorkItem(links)
	out := make([]gin.H, 0, len(items))
	for _, it := range items {
		itemLinks := byItem[it.WorkItem.ID]
		if itemLinks == nil {
			itemLinks = []gin.H{}
		}
		out = append(out, gin.H{
			"links":         itemLinks,
			"identifier":    it.Identifier,
			"title":         it.Title,
			"url":           it.URL,
			"category":      it.Category,
			"state":         it.StateName,
			"state_type":    it.StateType,
			"priority":      it.Priority,
			"project":       gin.H{"id": it.ProjectID, "name": it.ProjectName},
			"team":          gin.H{"id": it.TeamID, "name": it.TeamName, "key": it.TeamKey},
			"snapshot_date": it.SnapshotDate.Format("2006-01-02"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "count": len(out)})
}

func (h *Handlers) WorkItemFilters(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}
	projects, teams, err := h.repo.ListFilterOptions(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"projects":   options(projects),
		"teams":      options(teams),
		"categories": []domain.Category{domain.CategoryCompleted, domain.CategoryStarted, domain.CategoryUpdated, domain.CategoryOtherOpen},
	})
}

func (h *Handlers) ReportPreview(c *gin.Context) {
	userID, ok := paramUserID(c)
	if !ok {
		return
	}
	report, err := h.svc.Preview(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "report": report})
}

// SendUser queues one delivery detached from the request context so a client
// disconnect cannot cancel a half-sent report.
func (h *Handlers) SendUser(c *gin.Context) {
	userID, ok := paramUserID(c)
	if !ok {
		return
	}
	go func() {
		if err := h.svc.DeliverToUser(context.Background(), userID); err != nil {
			h.log.Error().Err(err).Int64("user", userID).Msg("admin send failed")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "user_id": userID})
}

func (h *Handlers) SendAll(c *gin.Context) {
	if !h.svc.TryBeginRun() {
		c.JSON(http.StatusConflict, gin.H{"error": "a delivery run is already in progress"})
		return
	}
	go func() {
		defer h.svc.EndRun()
		if err := h.svc.DeliverToAll(context.Background()); err != nil {
			h.log.Error().Err(err).Msg("admin send-all failed")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handlers) RetryUser(c *gin.Context) {
	userID, ok := paramUserID(c)
	if !ok {
		return
	}
	go func() {
		if err := h.svc.RetryDelivery(context.Background(), userID); err != nil {
			h.log.Error().Err(err).Int64("user", userID).Msg("admin retry exhausted")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "user_id": userID})
}

func (h *Handlers) SyncStatus(c *gin.Context) {
	runs, err := h.svc.SyncStatus(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

type userBody struct {
	Email        string `json:"email"`
	LinearUserID string `json:"linear_user_id"`
	GithubHandle string `json:"github_handle"`
	GithubToken  string `json:"github_token"`
	SlackChannel string `json:"slack_channel"`
	Active       *bool  `json:"active"`
}

// UpsertUser creates or updates an identity mapping. A path id of 0 means
// create; otherwise the body is merged over the stored row.
func (h *Handlers) UpsertUser(c *gin.Context) {
	userID, ok := paramUserID(c)
	if !ok {
		return
	}
	var body userBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u := domain.User{Active: true}
	if userID > 0 {
		existing, err := h.repo.GetUser(c.Request.Context(), userID)
		if err != nil {
			h.fail(c, err)
			return
		}
		if existing == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
			return
		}
		u = *existing
	}
	if body.Email != "" {
		u.Email = body.Email
	}
	if body.LinearUserID != "" {
		u.LinearUserID = body.LinearUserID
	}
	if body.GithubHandle != "" {
		u.GithubHandle = body.GithubHandle
	}
	if body.GithubToken != "" {
		u.GithubToken = body.GithubToken
	}
	if body.SlackChannel != "" {
		u.SlackChannel = body.SlackChannel
	}
	if body.Active != nil {
		u.Active = *body.Active
	}
	if u.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	id, err := h.repo.UpsertUser(c.Request.Context(), u)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

type cooldownBody struct {
	StartDate     string `json:"start_date" binding:"required"` // YYYY-MM-DD
	DurationWeeks int    `json:"duration_weeks" binding:"required"`
}

func (h *Handlers) PutCooldown(c *gin.Context) {
	userID, ok := paramUserID(c)
	if !ok {
		return
	}
	var body cooldownBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := time.ParseInLocation("2006-01-02", body.StartDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	if body.DurationWeeks <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration_weeks must be positive"})
		return
	}
	sched := domain.CooldownSchedule{UserID: userID, NextStartDate: start, DurationWeeks: body.DurationWeeks}
	if err := h.repo.UpsertCooldown(c.Request.Context(), sched); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "start_date": body.StartDate, "duration_weeks": body.DurationWeeks})
}

func (h *Handlers) DeleteCooldown(c *gin.Context) {
	userID, ok := paramUserID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteCooldown(c.Request.Context(), userID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "cooldown": nil})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func paramUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user"), 10, 64)
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user must be a numeric id"})
		return 0, false
	}
	return id, true
}

func queryUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Query("user"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user query parameter is required"})
		return 0, false
	}
	return id, true
}

// linksByWorkItem groups correlated artifacts by work item for the
// latest-view response.
func linksByWorkItem(links []domain.CorrelationLink) map[int64][]gin.H {
	out := map[int64][]gin.H{}
	for _, l := range links {
		out[l.WorkItemID] = append(out[l.WorkItemID], gin.H{
			"artifact_id":   l.ArtifactID,
			"artifact_kind": l.ArtifactKind,
			"link_type":     l.LinkType,
			"confidence":    l.Confidence,
		})
	}
	return out
}

func options(in []repo.FilterOption) []gin.H {
	out := make([]gin.H, 0, len(in))
	for _, o := range in {
		out = append(out, gin.H{"id": o.ID, "name": o.Name})
	}
	return out
}
