package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AgentEnder/slack-linear-rundown/internal/classify"
	"github.com/AgentEnder/slack-linear-rundown/internal/cooldown"
	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

var reportPeriod = struct{ start, end time.Time }{
	start: time.Date(2025, 6, 13, 9, 0, 0, 0, time.UTC),
	end:   time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC),
}

func TestRenderReportSections(t *testing.T) {
	s := &Service{}
	b := classify.Buckets{
		Completed: []domain.WorkItem{{Identifier: "ENG-1", Title: "Ship search", StateName: "Done", URL: "https://linear.app/acme/issue/ENG-1"}},
		Started:   []domain.WorkItem{{Identifier: "ENG-2", Title: "Index rebuild", StateName: "In Progress"}},
	}
	out := s.renderReport(b, cooldown.Status{}, reportPeriod.start, reportPeriod.end)

	assert.Contains(t, out, "Jun 13 to Jun 20")
	assert.Contains(t, out, "*:white_check_mark: Completed (1)*")
	assert.Contains(t, out, "<https://linear.app/acme/issue/ENG-1|ENG-1 Ship search> — Done")
	assert.Contains(t, out, "ENG-2 Index rebuild — In Progress")
	// Empty buckets get no heading at all.
	assert.NotContains(t, out, "Updated")
	assert.NotContains(t, out, "Still open")
	assert.NotContains(t, out, "Cooldown")
}

func TestRenderReportCooldownBanner(t *testing.T) {
	s := &Service{}
	b := classify.Buckets{OtherOpen: []domain.WorkItem{{Identifier: "ENG-9", Title: "Misc chores"}}}
	out := s.renderReport(b, cooldown.Status{InCooldown: true, WeekNumber: 2, TotalWeeks: 3}, reportPeriod.start, reportPeriod.end)
	assert.Contains(t, out, "Cooldown week 2 of 3")
}

func TestRenderReportEmpty(t *testing.T) {
	s := &Service{}
	out := s.renderReport(classify.Buckets{}, cooldown.Status{}, reportPeriod.start, reportPeriod.end)
	assert.Contains(t, out, "Nothing assigned this period")
}

func TestItemLineEscapesMrkdwn(t *testing.T) {
	line := itemLine(domain.WorkItem{Identifier: "ENG-3", Title: "Handle a < b && c > d", URL: "https://linear.app/acme/issue/ENG-3"})
	assert.Equal(t, "<https://linear.app/acme/issue/ENG-3|ENG-3 Handle a &lt; b &amp;&amp; c &gt; d>", line)
}

func TestChunkTextSplitsOnLines(t *testing.T) {
	text := strings.Join([]string{"aaaa", "bbbb", "cccc"}, "\n")
	chunks := chunkText(text, 9)
	require.Equal(t, []string{"aaaa\nbbbb", "cccc"}, chunks)
}

func TestChunkTextHardSplitsLongLine(t *testing.T) {
	chunks := chunkText(strings.Repeat("x", 10), 4)
	require.Equal(t, []string{"xxxx", "xxxx", "xx"}, chunks)
}

func TestChunkTextEmpty(t *testing.T) {
	assert.Equal(t, []string{""}, chunkText("", 100))
}
