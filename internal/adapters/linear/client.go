/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AgentEnder/slack-linear-rundown/internal/config"
	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

type Client struct {
	baseURL string
	key     string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.LinearBaseURL,
		key:     cfg.LinearAPIKey,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		log:     log,
	}
}

// Available reports whether the client has credentials at all. Missing
// credentials mean "data source unavailable", never a hard failure.
func (c *Client) Available() bool { return strings.TrimSpace(c.key) != "" }

const issuesQuery = `
query AssignedIssues($assignee: ID!, $updatedAfter: DateTimeOrDuration!, $after: String) {
  issues(
    first: 50
    after: $after
    filter: {
      assignee: { id: { eq: $assignee } }
      or: [
        { completedAt: { null: true }, canceledAt: { null: true } }
        { updatedAt: { gte: $updatedAfter } }
      ]
    }
  ) {
    pageInfo { hasNextPage endCursor }
    nodes {
      id identifier title description url priority estimate
      createdAt startedAt completedAt canceledAt updatedAt
      state { name type }
      project { id name }
      team { id name key }
      assignee { id }
    }
  }
}`

type issueNode struct {
	ID          string   `json:"id"`
	Identifier  string   `json:"identifier"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Priority    float64  `json:"priority"`
	Estimate    *float64 `json:"estimate"`
	CreatedAt   string   `json:"createdAt"`
	StartedAt   string   `json:"startedAt"`
	CompletedAt string   `json:"completedAt"`
	CanceledAt  string   `json:"canceledAt"`
	UpdatedAt   string   `json:"updatedAt"`
	State       struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"state"`
	Project *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"project"`
	Team *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Key  string `json:"key"`
	} `json:"team"`
	Assignee *struct {
		ID string `json:"id"`
	} `json:"assignee"`
}

// AssignedIssues fetches all issues assigned to the Linear user that are
// open or were updated after the cutoff (the server-side filter the
// classifier relies on), following cursor pagination to the end.
func (c *Client) AssignedIssues(ctx context.Context, linearUserID string, updatedAfter time.Time) ([]domain.WorkItem, error) {
	if !c.Available() {
		return nil, errors.New("linear: missing api key")
	}
	if linearUserID == "" {
		return nil, errors.New("linear: empty user id")
	}
	var out []domain.WorkItem
	var after *string
	for {
		vars := map[string]any{
			"assignee":     linearUserID,
			"updatedAfter": updatedAfter.UTC().Format(time.RFC3339),
		}
		if after != nil {
			vars["after"] = *after
		}
		var page struct {
			Issues struct {
				PageInfo struct {
					HasNextPage bool   `json:"hasNextPage"`
					EndCursor   string `json:"endCursor"`
				} `json:"pageInfo"`
				Nodes []issueNode `json:"nodes"`
			} `json:"issues"`
		}
		if err := c.query(ctx, issuesQuery, vars, &page); err != nil {
			return nil, err
		}
		for _, n := range page.Issues.Nodes {
			out = append(out, toWorkItem(n))
		}
		if !page.Issues.PageInfo.HasNextPage {
			break
		}
		cursor := page.Issues.PageInfo.EndCursor
		after = &cursor
	}
	return out, nil
}

func toWorkItem(n issueNode) domain.WorkItem {
	w := domain.WorkItem{
		ExtID:       n.ID,
		Identifier:  n.Identifier,
		Title:       n.Title,
		Description: n.Description,
		URL:         n.URL,
		StateName:   n.State.Name,
		StateType:   domain.StateType(n.State.Type),
		Priority:    int(n.Priority),
		Estimate:    n.Estimate,
		CreatedAt:   parseTimeUTC(n.CreatedAt),
		StartedAt:   parseTimeUTC(n.StartedAt),
		CompletedAt: parseTimeUTC(n.CompletedAt),
		CanceledAt:  parseTimeUTC(n.CanceledAt),
		UpdatedAt:   parseTimeUTC(n.UpdatedAt),
	}
	if !w.StateType.Valid() {
		// Linear also has "backlog" and "triage"; both behave as unstarted
		// for bucketing purposes.
		w.StateType = domain.StateUnstarted
	}
	if n.Project != nil {
		w.ProjectID, w.ProjectName = n.Project.ID, n.Project.Name
	}
	if n.Team != nil {
		w.TeamID, w.TeamName, w.TeamKey = n.Team.ID, n.Team.Name, n.Team.Key
	}
	if n.Assignee != nil {
		w.AssigneeID = n.Assignee.ID
	}
	return w
}

// query posts one GraphQL request and decodes data into out. Transient
// statuses are retried with a short backoff, like the other API clients.
func (c *Client) query(ctx context.Context, q string, vars map[string]any, out any) error {
	body, err := json.Marshal(map[string]any{"query": q, "variables": vars})
	if err != nil {
		return err
	}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", c.key)
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
				herr := fmt.Errorf("linear api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
				// retry on 429/5xx only
				if resp.StatusCode != 429 && resp.StatusCode < 500 {
					return herr
				}
				lastErr = herr
			} else {
				var envelope struct {
					Data   json.RawMessage `json:"data"`
					Errors []struct {
						Message string `json:"message"`
					} `json:"errors"`
				}
				if err := json.Unmarshal(b, &envelope); err != nil {
					return err
				}
				if len(envelope.Errors) > 0 {
					return fmt.Errorf("linear graphql: %s", envelope.Errors[0].Message)
				}
				return json.Unmarshal(envelope.Data, out)
			}
		}
		if attempt < 2 {
			time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
		}
	}
	return lastErr
}

func parseTimeUTC(s string) *time.Time {
	if s == "" {
		return nil
	}
	layouts := []string{time.RFC3339Nano, time.RFC3339}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			tt := t.UTC()
			return &tt
		}
	}
	return nil
}
