// Package intent reads an agent's free-text call notes and decides whether a
// callback should be scheduled, when, and with what priority.
package intent

import (
	"strings"
	"time"

	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/utils"
)

// Result is the parser's decision. CallbackDate is nil when no callback is requested.
type Result struct {
	ShouldCreateCallback bool           `json:"should_create_callback"`
	CallbackDate         *time.Time     `json:"callback_date"`
	Priority             model.Priority `json:"priority"`
	// Rule names the time-phrase rule that matched, empty when the default applied.
	Rule string `json:"rule,omitempty"`
}

// Rule maps a set of time phrases to a date offset and a priority.
type Rule struct {
	Name     string
	Phrases  []string
	Days     int // offset from the start of today
	Priority model.Priority
}

// triggers are the phrases that signal the lead asked to be contacted again.
var triggers = []string{
	"call back",
	"callback",
	"follow up",
	"followup",
	"reach out",
	"contact later",
	"try again",
}

// rules are evaluated in order and the first match wins. "week" must stay
// after "next week" and "this week" since it is a substring of both.
var rules = []Rule{
	{Name: "urgent", Phrases: []string{"urgent", "asap", "immediately"}, Days: 0, Priority: model.PriorityUrgent},
	{Name: "today", Phrases: []string{"today", "later today"}, Days: 0, Priority: model.PriorityHigh},
	{Name: "tomorrow", Phrases: []string{"tomorrow"}, Days: 1, Priority: model.PriorityHigh},
	{Name: "next_week", Phrases: []string{"next week"}, Days: 7, Priority: model.PriorityMedium},
	{Name: "this_week", Phrases: []string{"this week"}, Days: 3, Priority: model.PriorityMedium},
	{Name: "few_days", Phrases: []string{"few days"}, Days: 3, Priority: model.PriorityMedium},
	{Name: "week", Phrases: []string{"week"}, Days: 7, Priority: model.PriorityLow},
	{Name: "month", Phrases: []string{"month"}, Days: 28, Priority: model.PriorityLow},
}

var escalations = []string{"important", "must call"}

const (
	defaultDays     = 1
	defaultPriority = model.PriorityMedium
)

// Rules returns a copy of the ordered time-phrase table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Parse inspects notes relative to now. Dates are midnight-aligned in now's location.
// It never fails: anything it cannot read yields "no callback".
func Parse(notes string, now time.Time) Result {
	none := Result{Priority: defaultPriority}
	if notes == "" {
		return none
	}

	lower := strings.ToLower(notes)
	if !containsAny(lower, triggers) {
		return none
	}

	days, priority, ruleName := defaultDays, defaultPriority, ""
	for _, r := range rules {
		if containsAny(lower, r.Phrases) {
			days, priority, ruleName = r.Days, r.Priority, r.Name
			break
		}
	}

	if containsAny(lower, escalations) && priority != model.PriorityUrgent {
		priority = model.PriorityHigh
	}

	date := utils.AddDays(utils.StartOfDay(now), days)
	return Result{
		ShouldCreateCallback: true,
		CallbackDate:         &date,
		Priority:             priority,
		Rule:                 ruleName,
	}
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
