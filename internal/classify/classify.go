/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package classify

import (
	"time"

	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

// Buckets holds the four mutually exclusive report buckets. Every input item
// lands in exactly one of them.
type Buckets struct {
	Completed []domain.WorkItem
	Started   []domain.WorkItem
	Updated   []domain.WorkItem
	OtherOpen []domain.WorkItem
}

func (b Buckets) Total() int {
	return len(b.Completed) + len(b.Started) + len(b.Updated) + len(b.OtherOpen)
}

// Partition buckets items by activity since windowStart. Priority order per
// item: completed, then started, then updated, then otherOpen. Items that are
// closed and untouched are expected to have been excluded by the upstream
// fetch, not here. Single pass, no side effects; nil timestamps never match.
func Partition(items []domain.WorkItem, windowStart time.Time) Buckets {
	var b Buckets
	for _, it := range items {
		switch {
		case within(it.CompletedAt, windowStart):
			b.Completed = append(b.Completed, it)
		case it.Open() && within(it.CreatedAt, windowStart):
			b.Started = append(b.Started, it)
		case it.Open() && within(it.UpdatedAt, windowStart):
			b.Updated = append(b.Updated, it)
		case it.Open():
			b.OtherOpen = append(b.OtherOpen, it)
		}
	}
	return b
}

// CategoryOf returns the bucket a single item would land in, or false for a
// closed item outside the window.
func CategoryOf(it domain.WorkItem, windowStart time.Time) (domain.Category, bool) {
	switch {
	case within(it.CompletedAt, windowStart):
		return domain.CategoryCompleted, true
	case it.Open() && within(it.CreatedAt, windowStart):
		return domain.CategoryStarted, true
	case it.Open() && within(it.UpdatedAt, windowStart):
		return domain.CategoryUpdated, true
	case it.Open():
		return domain.CategoryOtherOpen, true
	}
	return "", false
}

func within(t *time.Time, start time.Time) bool {
	return t != nil && !t.Before(start)
}
