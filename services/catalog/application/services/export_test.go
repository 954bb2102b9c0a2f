package services

import "time"

// SetClock replaces the time source used to track workspace activity.
func (w *Workspaces) SetClock(now func() time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = now
}
