package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
)

// Thursday 2024-03-14 10:00 UTC.
var now = time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

func at(days int, hour int) time.Time {
	return time.Date(2024, 3, 14+days, hour, 0, 0, 0, time.UTC)
}

func cb(id string, when time.Time) model.Callback {
	return *model.NewCallback(&model.Callback{ID: id, UserID: "agent-1", ScheduledFor: when, Status: model.StatusPending})
}

func ids(list []model.Callback) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID)
	}
	return out
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		name string
		when time.Time
		want BucketID
	}{
		{"long overdue", at(-30, 9), Today},
		{"yesterday late", at(-1, 23), Today},
		{"earlier today", at(0, 1), Today},
		{"start of today", at(0, 0), Today},
		{"later today", at(0, 23), Today},
		{"start of tomorrow", at(1, 0), ThisWeek},
		{"six days out", at(6, 23), ThisWeek},
		{"week end boundary", at(7, 0), NextWeek},
		{"thirteen days out", at(13, 23), NextWeek},
		{"next week end boundary", at(14, 0), Later},
		{"far future", at(90, 12), Later},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.when, now))
		})
	}
}

func TestIsOverdue(t *testing.T) {
	assert.True(t, IsOverdue(at(-1, 23), now))
	assert.False(t, IsOverdue(at(0, 0), now), "start of today is not overdue")
	assert.False(t, IsOverdue(at(0, 8), now), "earlier today is not overdue")
	assert.False(t, IsOverdue(at(2, 8), now))
}

func TestComputePartitionsPending(t *testing.T) {
	done := cb("done", at(0, 12))
	done.Status = model.StatusCompleted
	moved := cb("moved", at(3, 12))
	moved.Status = model.StatusRescheduled

	input := []model.Callback{
		cb("overdue", at(-3, 9)),
		cb("today", at(0, 15)),
		done,
		cb("tomorrow", at(1, 9)),
		moved,
		cb("next", at(8, 9)),
		cb("later", at(20, 9)),
	}

	got := Compute(input, now)

	assert.Equal(t, []string{"overdue", "today"}, ids(got.Today))
	assert.Equal(t, []string{"tomorrow"}, ids(got.ThisWeek))
	assert.Equal(t, []string{"next"}, ids(got.NextWeek))
	assert.Equal(t, []string{"later"}, ids(got.Later))
	assert.Equal(t, 5, got.Len())
}

func TestComputeEveryPendingInExactlyOneBucket(t *testing.T) {
	input := make([]model.Callback, 0)
	for d := -5; d <= 20; d++ {
		for _, h := range []int{0, 9, 23} {
			input = append(input, *model.NewCallback(&model.Callback{ScheduledFor: at(d, h), Status: model.StatusPending}))
		}
	}

	got := Compute(input, now)
	require.Equal(t, len(input), got.Len())

	seen := make(map[string]int)
	for _, id := range BucketOrder {
		for _, c := range got.Get(id) {
			seen[c.ID]++
		}
	}
	for _, c := range input {
		assert.Equal(t, 1, seen[c.ID], c.ID)
	}
}

func TestComputeIdempotentAndOrderPreserving(t *testing.T) {
	input := []model.Callback{cb("a", at(0, 20)), cb("b", at(-2, 8)), cb("c", at(0, 11))}

	first := Compute(input, now)
	second := Compute(input, now)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a", "b", "c"}, ids(first.Today))
}

func TestComputeEmpty(t *testing.T) {
	got := Compute(nil, now)
	assert.Equal(t, 0, got.Len())
	assert.NotNil(t, got.Today)
	assert.Empty(t, Overdue(got, now))
}

func TestOverdue(t *testing.T) {
	got := Compute([]model.Callback{cb("old", at(-1, 9)), cb("now", at(0, 9)), cb("older", at(-7, 9))}, now)
	assert.Equal(t, []string{"old", "older"}, ids(Overdue(got, now)))
}

func TestComputeRespectsLocation(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	// 2024-03-14 18:00 UTC is 2024-03-15 01:00 in Jakarta.
	localNow := time.Date(2024, 3, 14, 18, 0, 0, 0, time.UTC).In(wib)
	// 2024-03-14 16:00 UTC is 23:00 on the 14th in Jakarta: yesterday, so overdue.
	got := Compute([]model.Callback{cb("x", time.Date(2024, 3, 14, 16, 0, 0, 0, time.UTC))}, localNow)

	assert.Equal(t, []string{"x"}, ids(got.Today))
	assert.Len(t, Overdue(got, localNow), 1)
}

func TestParseBucketID(t *testing.T) {
	for _, id := range BucketOrder {
		got, err := ParseBucketID(string(id))
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.NotEmpty(t, id.Title())
	}

	_, err := ParseBucketID("someday")
	assert.True(t, apperrors.IsBadRequestError(err))
	assert.Equal(t, "Today & Overdue", Today.Title())
	assert.Equal(t, "Follow-up Later", Later.Title())
}
