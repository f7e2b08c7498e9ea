// Package board sorts an agent's pending callbacks into the four time columns
// of the callback board and derives overdue state, drop-to-reschedule dates and
// overdue alerts from them. Everything here is pure and depends only on the
// callbacks passed in and the supplied now.
package board

import (
	"fmt"
	"time"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/utils"
)

// BucketID identifies a board column.
type BucketID string

const (
	Today    BucketID = "today"
	ThisWeek BucketID = "thisWeek"
	NextWeek BucketID = "nextWeek"
	Later    BucketID = "later"
)

// BucketOrder is the left-to-right column order.
var BucketOrder = []BucketID{Today, ThisWeek, NextWeek, Later}

var bucketTitles = map[BucketID]string{
	Today:    "Today & Overdue",
	ThisWeek: "This Week",
	NextWeek: "Next Week",
	Later:    "Follow-up Later",
}

// Title returns the column heading shown on the board.
func (b BucketID) Title() string {
	return bucketTitles[b]
}

// Valid reports whether b names one of the four columns.
func (b BucketID) Valid() bool {
	_, ok := bucketTitles[b]
	return ok
}

// ParseBucketID validates a column ID coming from a client.
func ParseBucketID(s string) (BucketID, error) {
	b := BucketID(s)
	if !b.Valid() {
		return "", fmt.Errorf("%w: unknown board column %q", apperrors.ErrBadRequest, s)
	}
	return b, nil
}

// Windows are the half-open column boundaries for one instant.
type Windows struct {
	TodayStart  time.Time
	TodayEnd    time.Time
	WeekEnd     time.Time
	NextWeekEnd time.Time
}

// WindowsAt computes the column boundaries relative to now, midnight-aligned in now's location.
func WindowsAt(now time.Time) Windows {
	start := utils.StartOfDay(now)
	return Windows{
		TodayStart:  start,
		TodayEnd:    utils.AddDays(start, 1),
		WeekEnd:     utils.AddDays(start, 7),
		NextWeekEnd: utils.AddDays(start, 14),
	}
}

// Classify returns the single column an instant belongs to. Anything before
// the start of today is overdue and lands in Today.
func (w Windows) Classify(scheduledFor time.Time) BucketID {
	switch {
	case scheduledFor.Before(w.TodayEnd):
		return Today
	case scheduledFor.Before(w.WeekEnd):
		return ThisWeek
	case scheduledFor.Before(w.NextWeekEnd):
		return NextWeek
	default:
		return Later
	}
}

// IsOverdue reports whether scheduledFor falls on a calendar day before today.
func (w Windows) IsOverdue(scheduledFor time.Time) bool {
	return scheduledFor.Before(w.TodayStart)
}

// Classify is a convenience for WindowsAt(now).Classify(scheduledFor).
func Classify(scheduledFor, now time.Time) BucketID {
	return WindowsAt(now).Classify(scheduledFor)
}

// IsOverdue is a convenience for WindowsAt(now).IsOverdue(scheduledFor).
func IsOverdue(scheduledFor, now time.Time) bool {
	return WindowsAt(now).IsOverdue(scheduledFor)
}

// Buckets holds the pending callbacks of each column in input order.
type Buckets struct {
	Today    []model.Callback `json:"today"`
	ThisWeek []model.Callback `json:"thisWeek"`
	NextWeek []model.Callback `json:"nextWeek"`
	Later    []model.Callback `json:"later"`
}

// Get returns the callbacks of one column.
func (b Buckets) Get(id BucketID) []model.Callback {
	switch id {
	case Today:
		return b.Today
	case ThisWeek:
		return b.ThisWeek
	case NextWeek:
		return b.NextWeek
	case Later:
		return b.Later
	}
	return nil
}

// Len is the total number of callbacks across all columns.
func (b Buckets) Len() int {
	return len(b.Today) + len(b.ThisWeek) + len(b.NextWeek) + len(b.Later)
}

// Compute partitions the pending callbacks into columns. Non-pending callbacks
// are skipped. Each column keeps the relative order of the input.
func Compute(callbacks []model.Callback, now time.Time) Buckets {
	w := WindowsAt(now)
	out := Buckets{
		Today:    []model.Callback{},
		ThisWeek: []model.Callback{},
		NextWeek: []model.Callback{},
		Later:    []model.Callback{},
	}

	for _, cb := range callbacks {
		if !cb.IsPending() {
			continue
		}
		switch w.Classify(cb.ScheduledFor) {
		case Today:
			out.Today = append(out.Today, cb)
		case ThisWeek:
			out.ThisWeek = append(out.ThisWeek, cb)
		case NextWeek:
			out.NextWeek = append(out.NextWeek, cb)
		default:
			out.Later = append(out.Later, cb)
		}
	}
	return out
}

// Overdue returns the overdue subset of the Today column.
func Overdue(b Buckets, now time.Time) []model.Callback {
	w := WindowsAt(now)
	overdue := make([]model.Callback, 0)
	for _, cb := range b.Today {
		if w.IsOverdue(cb.ScheduledFor) {
			overdue = append(overdue, cb)
		}
	}
	return overdue
}
