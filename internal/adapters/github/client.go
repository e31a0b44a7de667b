/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AgentEnder/slack-linear-rundown/internal/config"
	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

type Client struct {
	baseURL string
	token   string // fallback; per-user tokens override per call
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GithubBaseURL, "/"),
		token:   cfg.GithubToken,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		log:     log,
	}
}

type searchItem struct {
	NodeID        string `json:"node_id"`
	Number        int    `json:"number"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	State         string `json:"state"`
	HTMLURL       string `json:"html_url"`
	RepositoryURL string `json:"repository_url"`
	User          struct {
		Login string `json:"login"`
	} `json:"user"`
	PullRequest *struct {
		MergedAt *string `json:"merged_at"`
	} `json:"pull_request"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	ClosedAt  *string `json:"closed_at"`
}

type pullDetail struct {
	Additions    int    `json:"additions"`
	Deletions    int    `json:"deletions"`
	ChangedFiles int    `json:"changed_files"`
	Draft        bool   `json:"draft"`
	Merged       bool   `json:"merged"`
	MergedAt     *string `json:"merged_at"`
	Head         struct {
		Ref string `json:"ref"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
}

// RecentPullRequests returns the user's PRs updated since the cutoff, with
// head branch and change stats filled in from the pulls API. A failed detail
// fetch degrades the artifact (no branch), it does not fail the batch.
func (c *Client) RecentPullRequests(ctx context.Context, handle, token string, since time.Time) ([]domain.Artifact, error) {
	items, err := c.searchIssues(ctx, token,
		fmt.Sprintf("author:%s type:pr updated:>=%s", handle, since.UTC().Format("2006-01-02")))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Artifact, 0, len(items))
	for _, it := range items {
		a := toArtifact(it, domain.KindPullRequest)
		repo := repoFromURL(it.RepositoryURL)
		a.Repo = repo
		if repo != "" {
			detail, derr := c.pull(ctx, token, repo, it.Number)
			if derr != nil {
				c.log.Warn().Err(derr).Str("repo", repo).Int("number", it.Number).Msg("github: pull detail fetch failed")
			} else {
				a.HeadBranch = detail.Head.Ref
				a.BaseBranch = detail.Base.Ref
				a.Additions = detail.Additions
				a.Deletions = detail.Deletions
				a.ChangedFiles = detail.ChangedFiles
				a.Draft = detail.Draft
				a.Merged = detail.Merged
				a.MergedAt = parseTimePtr(detail.MergedAt)
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// RecentIssues returns repo issues (not PRs) the user authored or was
// assigned, updated since the cutoff.
func (c *Client) RecentIssues(ctx context.Context, handle, token string, since time.Time) ([]domain.Artifact, error) {
	items, err := c.searchIssues(ctx, token,
		fmt.Sprintf("involves:%s type:issue updated:>=%s", handle, since.UTC().Format("2006-01-02")))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Artifact, 0, len(items))
	for _, it := range items {
		a := toArtifact(it, domain.KindExternalIssue)
		a.Repo = repoFromURL(it.RepositoryURL)
		out = append(out, a)
	}
	return out, nil
}

func toArtifact(it searchItem, kind domain.ArtifactKind) domain.Artifact {
	return domain.Artifact{
		ExtID:     it.NodeID,
		Kind:      kind,
		Number:    it.Number,
		Title:     it.Title,
		Body:      it.Body,
		State:     it.State,
		Author:    it.User.Login,
		URL:       it.HTMLURL,
		CreatedAt: parseTimePtr(&it.CreatedAt),
		UpdatedAt: parseTimePtr(&it.UpdatedAt),
		ClosedAt:  parseTimePtr(it.ClosedAt),
	}
}

func (c *Client) searchIssues(ctx context.Context, token, query string) ([]searchItem, error) {
	var out []searchItem
	page := 1
	for {
		q := url.Values{}
		q.Set("q", query)
		q.Set("per_page", "100")
		q.Set("page", fmt.Sprint(page))
		var res struct {
			TotalCount int          `json:"total_count"`
			Items      []searchItem `json:"items"`
		}
		if err := c.doJSON(ctx, token, c.baseURL+"/search/issues?"+q.Encode(), &res); err != nil {
			return nil, err
		}
		out = append(out, res.Items...)
		if len(out) >= res.TotalCount || len(res.Items) == 0 {
			break
		}
		page++
	}
	return out, nil
}

func (c *Client) pull(ctx context.Context, token, repo string, number int) (*pullDetail, error) {
	var d pullDetail
	u := fmt.Sprintf("%s/repos/%s/pulls/%d", c.baseURL, repo, number)
	if err := c.doJSON(ctx, token, u, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) doJSON(ctx context.Context, token, u string, out any) error {
	if token == "" {
		token = c.token
	}
	if token == "" {
		return errors.New("github: missing token")
	}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/vnd.github+json")
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
		} else {
			b, rerr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if rerr != nil {
				return rerr
			}
			if resp.StatusCode >= 300 {
				herr := fmt.Errorf("github api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
				if resp.StatusCode != 429 && resp.StatusCode != 403 && resp.StatusCode < 500 {
					return herr
				}
				lastErr = herr
			} else {
				return json.Unmarshal(b, out)
			}
		}
		if attempt < 2 {
			time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
		}
	}
	return lastErr
}

// repoFromURL turns https://api.github.com/repos/owner/name into owner/name.
func repoFromURL(u string) string {
	idx := strings.Index(u, "/repos/")
	if idx == -1 {
		return ""
	}
	return u[idx+len("/repos/"):]
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	for _, l := range []string{time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(l, *s); err == nil {
			tt := t.UTC()
			return &tt
		}
	}
	return nil
}
