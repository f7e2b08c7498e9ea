package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
)

func TestRescheduleOffsets(t *testing.T) {
	card := cb("card-1", at(1, 9))

	tests := []struct {
		target string
		want   time.Time
	}{
		{"today", time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"thisWeek", now.Add(3 * 24 * time.Hour)},
		{"nextWeek", now.Add(7 * 24 * time.Hour)},
		{"later", now.Add(21 * 24 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			tr, ok, err := Reschedule(card, tt.target, now)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "card-1", tr.CallbackID)
			assert.Equal(t, ThisWeek, tr.From)
			assert.Equal(t, BucketID(tt.target), tr.To)
			assert.True(t, tt.want.Equal(tr.ScheduledFor), "want %s got %s", tt.want, tr.ScheduledFor)
			assert.Equal(t, model.StatusRescheduled, tr.Status)
		})
	}
}

func TestRescheduleNextWeekIsExactlySevenDays(t *testing.T) {
	tr, ok, err := Reschedule(cb("c", at(-2, 9)), "nextWeek", now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, now.AddDate(0, 0, 7), tr.ScheduledFor)
	assert.Equal(t, Today, tr.From)
}

func TestRescheduleDropOnItselfIsNoop(t *testing.T) {
	card := cb("card-1", at(2, 9))
	tr, ok, err := Reschedule(card, "card-1", now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Transition{}, tr)
}

func TestRescheduleSameColumnStillMoves(t *testing.T) {
	overdue := cb("late", at(-3, 9))
	tr, ok, err := Reschedule(overdue, "today", now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Today, tr.From)
	assert.False(t, IsOverdue(tr.ScheduledFor, now))
}

func TestRescheduleUnknownTarget(t *testing.T) {
	_, ok, err := Reschedule(cb("card-1", at(2, 9)), "card-2", now)
	assert.False(t, ok)
	assert.True(t, apperrors.IsBadRequestError(err))
}

func TestTransitionTableCoversAllPairs(t *testing.T) {
	assert.Len(t, transitions, len(BucketOrder)*len(BucketOrder))
	for _, from := range BucketOrder {
		for _, to := range BucketOrder {
			assert.NotNil(t, transitions[transitionKey{from: from, to: to}], "%s->%s", from, to)
		}
	}
}

func TestTransitionFields(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	tr := Transition{ScheduledFor: time.Date(2024, 3, 21, 17, 0, 0, 0, wib), Status: model.StatusRescheduled}

	fields := tr.Fields()
	assert.Equal(t, time.Date(2024, 3, 21, 10, 0, 0, 0, time.UTC), fields["scheduled_for"])
	assert.Equal(t, model.StatusRescheduled, fields["status"])
}
