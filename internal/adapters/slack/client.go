/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/AgentEnder/slack-linear-rundown/internal/config"
)

type Client struct {
	token string
	http  *http.Client
	log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{token: cfg.SlackBotToken, http: &http.Client{Timeout: 10 * time.Second}, log: log}
}

// PostMessage sends mrkdwn text to a channel or DM. Slack wraps errors in a
// 200 response, so the ok field is the real status.
func (c *Client) PostMessage(ctx context.Context, channel, text string) error {
	if c.token == "" || channel == "" {
		return fmt.Errorf("slack: missing token or channel")
	}
	body := map[string]any{
		"channel":      channel,
		"text":         text,
		"mrkdwn":       true,
		"unfurl_links": false,
	}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, "https://slack.com/api/chat.postMessage", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack postMessage status=%d", resp.StatusCode)
	}
	var r struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return err
	}
	if !r.OK {
		return fmt.Errorf("slack postMessage error=%s", r.Error)
	}
	return nil
}
