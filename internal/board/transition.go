package board

import (
	"fmt"
	"time"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/utils"
)

// DateFn produces the new scheduled time for a drop at now.
type DateFn func(now time.Time) time.Time

// Reschedule offsets. These do not line up with the column windows: a card
// dropped on Next Week lands at now+7d, and one dropped on Later at now+21d.
var (
	toStartOfToday DateFn = utils.StartOfDay
	toThreeDays    DateFn = func(now time.Time) time.Time { return utils.AddDays(now, 3) }
	toOneWeek      DateFn = func(now time.Time) time.Time { return utils.AddDays(now, 7) }
	toThreeWeeks   DateFn = func(now time.Time) time.Time { return utils.AddDays(now, 21) }
)

type transitionKey struct {
	from BucketID
	to   BucketID
}

// transitions is keyed by (source column, target column). Every source
// currently shares the target's offset, dropping onto the same column included.
var transitions = buildTransitions(map[BucketID]DateFn{
	Today:    toStartOfToday,
	ThisWeek: toThreeDays,
	NextWeek: toOneWeek,
	Later:    toThreeWeeks,
})

func buildTransitions(byTarget map[BucketID]DateFn) map[transitionKey]DateFn {
	table := make(map[transitionKey]DateFn, len(BucketOrder)*len(BucketOrder))
	for _, from := range BucketOrder {
		for _, to := range BucketOrder {
			table[transitionKey{from: from, to: to}] = byTarget[to]
		}
	}
	return table
}

// Transition is the update a drop produces.
type Transition struct {
	CallbackID   string       `json:"callback_id"`
	From         BucketID     `json:"from"`
	To           BucketID     `json:"to"`
	ScheduledFor time.Time    `json:"scheduled_for"`
	Status       model.Status `json:"status"`
}

// Fields returns the column updates that persist the transition.
func (t Transition) Fields() map[string]interface{} {
	return map[string]interface{}{
		"scheduled_for": t.ScheduledFor.UTC(),
		"status":        t.Status,
	}
}

// Reschedule computes the effect of dropping cb on target, which is either a
// column ID or a card ID. It returns ok=false when the card was dropped on
// itself and nothing should be written.
func Reschedule(cb model.Callback, target string, now time.Time) (Transition, bool, error) {
	if target == cb.ID {
		return Transition{}, false, nil
	}

	to, err := ParseBucketID(target)
	if err != nil {
		return Transition{}, false, err
	}

	from := Classify(cb.ScheduledFor, now)
	dateFn, found := transitions[transitionKey{from: from, to: to}]
	if !found {
		return Transition{}, false, fmt.Errorf("%w: no transition from %s to %s", apperrors.ErrBadRequest, from, to)
	}

	return Transition{
		CallbackID:   cb.ID,
		From:         from,
		To:           to,
		ScheduledFor: dateFn(now),
		Status:       model.StatusRescheduled,
	}, true, nil
}
