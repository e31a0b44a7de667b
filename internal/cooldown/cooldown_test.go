package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

func TestIsActive_HalfOpenInterval(t *testing.T) {
	start := time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)
	sched := &domain.CooldownSchedule{NextStartDate: start, DurationWeeks: 2}

	assert.True(t, IsActive(sched, start), "active at exact start")
	assert.True(t, IsActive(sched, start.AddDate(0, 0, 13)))
	assert.False(t, IsActive(sched, start.AddDate(0, 0, 14)), "inactive at exact end")
	assert.False(t, IsActive(sched, start.Add(-time.Second)))
	assert.False(t, IsActive(nil, start))
	assert.False(t, IsActive(&domain.CooldownSchedule{NextStartDate: start}, start), "zero weeks never active")
}

func TestGetStatus_WeekNumber(t *testing.T) {
	start := time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)
	sched := &domain.CooldownSchedule{NextStartDate: start, DurationWeeks: 3}

	st := GetStatus(sched, start)
	require.True(t, st.InCooldown)
	assert.Equal(t, 1, st.WeekNumber)
	assert.Equal(t, 3, st.TotalWeeks)

	st = GetStatus(sched, start.AddDate(0, 0, 7))
	assert.Equal(t, 2, st.WeekNumber)

	st = GetStatus(sched, start.AddDate(0, 0, 20))
	assert.Equal(t, 3, st.WeekNumber)

	st = GetStatus(sched, start.AddDate(0, 0, 21))
	assert.False(t, st.InCooldown)
	assert.Zero(t, st.WeekNumber)
}

func TestFilterItems(t *testing.T) {
	items := []domain.WorkItem{
		{Identifier: "ENG-1", ProjectName: "Misc Tasks"},
		{Identifier: "ENG-2", ProjectName: "Backend API"},
		{Identifier: "ENG-3"}, // no project
		{Identifier: "ENG-4", ProjectName: "MISC"},
		{Identifier: "ENG-5", ProjectName: "misc"},
		{Identifier: "ENG-6", ProjectName: "Misc"},
		{Identifier: "ENG-7", ProjectName: "DPE Q3"},
	}
	kept := FilterItems(items, nil)
	ids := make([]string, 0, len(kept))
	for _, it := range kept {
		ids = append(ids, it.Identifier)
	}
	assert.Equal(t, []string{"ENG-1", "ENG-3", "ENG-4", "ENG-5", "ENG-6", "ENG-7"}, ids)
}

func TestFilterItems_CustomAllowList(t *testing.T) {
	items := []domain.WorkItem{
		{Identifier: "OPS-1", ProjectName: "Ops Toil"},
		{Identifier: "OPS-2", ProjectName: "Misc"},
	}
	kept := FilterItems(items, []string{"toil"})
	require.Len(t, kept, 1)
	assert.Equal(t, "OPS-1", kept[0].Identifier)
}
