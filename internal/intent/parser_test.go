package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
)

// Thursday afternoon.
var now = time.Date(2024, 3, 14, 15, 42, 10, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2024, 3, 14+offset, 0, 0, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		notes    string
		create   bool
		date     time.Time
		priority model.Priority
	}{
		{"empty notes", "", false, time.Time{}, model.PriorityMedium},
		{"no trigger", "Customer not interested", false, time.Time{}, model.PriorityMedium},
		{"time phrase without trigger", "busy until next week", false, time.Time{}, model.PriorityMedium},
		{"trigger only defaults to tomorrow", "please call back", true, day(1), model.PriorityMedium},
		{"urgent", "Callback ASAP, very urgent", true, day(0), model.PriorityUrgent},
		{"immediately", "follow up immediately", true, day(0), model.PriorityUrgent},
		{"today", "try again later today", true, day(0), model.PriorityHigh},
		{"tomorrow", "Call back tomorrow", true, day(1), model.PriorityHigh},
		{"next week", "Follow up next week", true, day(7), model.PriorityMedium},
		{"this week", "reach out this week", true, day(3), model.PriorityMedium},
		{"few days", "followup in a few days", true, day(3), model.PriorityMedium},
		{"bare week", "callback in a week or two", true, day(7), model.PriorityLow},
		{"month", "contact later, maybe in a month", true, day(28), model.PriorityLow},
		{"important escalates", "important: call back next week", true, day(7), model.PriorityHigh},
		{"must call escalates default", "must call back", true, day(1), model.PriorityHigh},
		{"escalation keeps urgent", "important, call back asap", true, day(0), model.PriorityUrgent},
		{"case insensitive", "CALL BACK TOMORROW", true, day(1), model.PriorityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.notes, now)
			assert.Equal(t, tt.create, got.ShouldCreateCallback)
			assert.Equal(t, tt.priority, got.Priority)
			if !tt.create {
				assert.Nil(t, got.CallbackDate)
				return
			}
			require.NotNil(t, got.CallbackDate)
			assert.True(t, tt.date.Equal(*got.CallbackDate), "want %s got %s", tt.date, got.CallbackDate)
		})
	}
}

func TestParseFirstRuleWins(t *testing.T) {
	// "urgent" outranks "tomorrow" even though both appear.
	got := Parse("call back tomorrow, urgent", now)
	assert.Equal(t, model.PriorityUrgent, got.Priority)
	assert.Equal(t, "urgent", got.Rule)

	// "next week" contains "week" but the earlier rule applies.
	got = Parse("follow up next week", now)
	assert.Equal(t, "next_week", got.Rule)
	assert.Equal(t, model.PriorityMedium, got.Priority)

	// "today" outranks "month".
	got = Parse("call back today about the month plan", now)
	assert.Equal(t, "today", got.Rule)
}

func TestParseDeterministic(t *testing.T) {
	a := Parse("Follow up next week, important", now)
	b := Parse("Follow up next week, important", now)
	assert.Equal(t, a, b)
}

func TestParseUsesLocation(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	// 23:30 UTC on the 14th is already the 15th in Jakarta.
	late := time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC).In(wib)

	got := Parse("call back tomorrow", late)
	require.NotNil(t, got.CallbackDate)
	assert.True(t, time.Date(2024, 3, 16, 0, 0, 0, 0, wib).Equal(*got.CallbackDate), "got %s", got.CallbackDate)
}

func TestRulesOrder(t *testing.T) {
	names := make([]string, 0)
	for _, r := range Rules() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"urgent", "today", "tomorrow", "next_week", "this_week", "few_days", "week", "month"}, names)

	// Mutating the copy must not affect parsing.
	r := Rules()
	r[0].Priority = model.PriorityLow
	assert.Equal(t, model.PriorityUrgent, Parse("call back asap", now).Priority)
}
