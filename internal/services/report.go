/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/AgentEnder/slack-linear-rundown/internal/classify"
	"github.com/AgentEnder/slack-linear-rundown/internal/cooldown"
	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

// renderReport builds the Slack mrkdwn body for one user's rundown.
func (s *Service) renderReport(b classify.Buckets, status cooldown.Status, periodStart, periodEnd time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Your work rundown* — %s to %s\n", periodStart.Format("Jan 2"), periodEnd.Format("Jan 2"))
	if status.InCooldown {
		fmt.Fprintf(&sb, "_:palm_tree: Cooldown week %d of %d — showing allowed projects only._\n", status.WeekNumber, status.TotalWeeks)
	}
	if b.Total() == 0 {
		sb.WriteString("\nNothing assigned this period. Enjoy the quiet. :seedling:\n")
		return sb.String()
	}
	writeSection(&sb, ":white_check_mark: Completed", b.Completed)
	writeSection(&sb, ":rocket: Started", b.Started)
	writeSection(&sb, ":pencil2: Updated", b.Updated)
	writeSection(&sb, ":open_file_folder: Still open", b.OtherOpen)
	return sb.String()
}

func writeSection(sb *strings.Builder, heading string, items []domain.WorkItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n*%s (%d)*\n", heading, len(items))
	for _, it := range items {
		sb.WriteString("• " + itemLine(it) + "\n")
	}
}

// itemLine renders one item as "• <url|KEY Title> — state" with Slack's
// <url|label> link form, falling back to plain text when the item has no URL.
func itemLine(it domain.WorkItem) string {
	label := slackEscape(strings.TrimSpace(it.Identifier + " " + it.Title))
	var line string
	if it.URL != "" {
		line = fmt.Sprintf("<%s|%s>", it.URL, label)
	} else {
		line = label
	}
	if it.StateName != "" {
		line += " — " + slackEscape(it.StateName)
	}
	return line
}

// slackEscape escapes the three characters mrkdwn reserves for control
// sequences. Order matters: ampersand first.
func slackEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// chunkText splits s into pieces of at most max runes, preferring line
// boundaries and hard-splitting only lines that exceed max on their own.
func chunkText(s string, max int) []string {
	if max <= 0 {
		return []string{s}
	}
	var chunks []string
	cur := ""
	curlen := 0
	for _, ln := range strings.Split(s, "\n") {
		rl := len([]rune(ln))
		if rl > max {
			if curlen > 0 {
				chunks = append(chunks, cur)
				cur, curlen = "", 0
			}
			r := []rune(ln)
			for i := 0; i < rl; i += max {
				j := i + max
				if j > rl {
					j = rl
				}
				chunks = append(chunks, string(r[i:j]))
			}
			continue
		}
		extra := rl
		if curlen > 0 {
			extra++ // the joining newline
		}
		if curlen+extra > max {
			chunks = append(chunks, cur)
			cur, curlen = ln, rl
		} else if curlen == 0 {
			cur, curlen = ln, rl
		} else {
			cur += "\n" + ln
			curlen += extra
		}
	}
	if curlen > 0 {
		chunks = append(chunks, cur)
	}
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	return chunks
}
