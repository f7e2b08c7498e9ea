package board

import (
	"fmt"
	"sync"
)

// Notifier decides when a board session should raise an overdue alert. It
// alerts only when the overdue count grows from an already non-zero count, so
// the first overdue items seen by a session never alert.
// One Notifier belongs to one session.
type Notifier struct {
	mu       sync.Mutex
	previous int
}

// Observe records the current overdue count and reports whether to alert.
func (n *Notifier) Observe(current int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	alert := current > n.previous && n.previous > 0
	n.previous = current
	return alert
}

// Previous returns the last observed count.
func (n *Notifier) Previous() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.previous
}

// AlertMessage renders the toast text for n overdue callbacks.
func AlertMessage(n int) string {
	return fmt.Sprintf("You have %d overdue callback(s)!", n)
}
