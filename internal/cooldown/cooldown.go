/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package cooldown decides whether a user's report is in a rest period and
// narrows the report to maintenance-bucket work while it is.
package cooldown

import (
	"strings"
	"time"

	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

// DefaultAllowSubstrings keeps items from catch-all project boards visible
// during cooldown.
var DefaultAllowSubstrings = []string{"misc", "dpe"}

type Status struct {
	InCooldown bool
	WeekNumber int // 1-based, only set when InCooldown
	TotalWeeks int
}

// IsActive reports whether date falls inside the schedule's half-open
// interval [start, start + 7*weeks days).
func IsActive(sched *domain.CooldownSchedule, date time.Time) bool {
	if sched == nil || sched.DurationWeeks <= 0 {
		return false
	}
	end := sched.NextStartDate.AddDate(0, 0, 7*sched.DurationWeeks)
	return !date.Before(sched.NextStartDate) && date.Before(end)
}

func GetStatus(sched *domain.CooldownSchedule, date time.Time) Status {
	if !IsActive(sched, date) {
		return Status{}
	}
	week := int(date.Sub(sched.NextStartDate).Hours()/(24*7)) + 1
	return Status{InCooldown: true, WeekNumber: week, TotalWeeks: sched.DurationWeeks}
}

// FilterItems keeps an item if it has no project, or its project name
// case-insensitively contains one of the allow substrings. Everything else
// is dropped for the duration of the cooldown.
func FilterItems(items []domain.WorkItem, allow []string) []domain.WorkItem {
	if len(allow) == 0 {
		allow = DefaultAllowSubstrings
	}
	out := make([]domain.WorkItem, 0, len(items))
	for _, it := range items {
		if it.ProjectName == "" || matchesAllow(it.ProjectName, allow) {
			out = append(out, it)
		}
	}
	return out
}

func matchesAllow(project string, allow []string) bool {
	p := strings.ToLower(project)
	for _, a := range allow {
		if a != "" && strings.Contains(p, strings.ToLower(a)) {
			return true
		}
	}
	return false
}
