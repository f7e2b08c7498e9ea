package board

import (
	"time"

	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
)

// Card is a callback with the flags the board highlights.
type Card struct {
	model.Callback
	IsOverdue bool `json:"is_overdue"`
	// IsUrgent is set for urgent priority and for any overdue card.
	IsUrgent bool `json:"is_urgent"`
}

// Column is one rendered board column.
type Column struct {
	ID    BucketID `json:"id"`
	Title string   `json:"title"`
	Count int      `json:"count"`
	Cards []Card   `json:"cards"`
}

// Snapshot is the full board for one agent at one instant.
type Snapshot struct {
	Columns      []Column  `json:"columns"`
	OverdueCount int       `json:"overdue_count"`
	Total        int       `json:"total"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// Build buckets callbacks and decorates them for display.
func Build(callbacks []model.Callback, now time.Time) Snapshot {
	w := WindowsAt(now)
	buckets := Compute(callbacks, now)

	snap := Snapshot{
		Columns:     make([]Column, 0, len(BucketOrder)),
		Total:       buckets.Len(),
		GeneratedAt: now,
	}

	for _, id := range BucketOrder {
		items := buckets.Get(id)
		col := Column{ID: id, Title: id.Title(), Count: len(items), Cards: make([]Card, 0, len(items))}
		for _, cb := range items {
			overdue := w.IsOverdue(cb.ScheduledFor)
			if overdue {
				snap.OverdueCount++
			}
			col.Cards = append(col.Cards, Card{
				Callback:  cb,
				IsOverdue: overdue,
				IsUrgent:  overdue || cb.Priority == model.PriorityUrgent,
			})
		}
		snap.Columns = append(snap.Columns, col)
	}
	return snap
}
