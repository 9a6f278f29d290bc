// Package recurrence materializes expenses from recurrence templates on
// their due dates.
package recurrence

import (
	"time"

	"github.com/Manudeeprao/expense-tracker/internal/models"
)

// NextDue returns the first date on which a template anchored at anchor
// emits again. ok is false for NONE and unknown policies.
func NextDue(policy models.RecurrencePolicy, anchor time.Time) (next time.Time, ok bool) {
	anchor = models.DateOf(anchor)
	switch policy {
	case models.RecurrenceDaily:
		return anchor.AddDate(0, 0, 1), true
	case models.RecurrenceWeekly:
		return anchor.AddDate(0, 0, 7), true
	case models.RecurrenceMonthly:
		return addMonth(anchor), true
	}
	return time.Time{}, false
}

// IsDue reports whether a template with the given policy and last emission
// date should emit on today. A zero anchor has never emitted and is due.
// DAILY is due on any day other than the anchor itself.
func IsDue(policy models.RecurrencePolicy, anchor, today time.Time) bool {
	if !policy.Valid() || policy == models.RecurrenceNone {
		return false
	}
	if anchor.IsZero() {
		return true
	}

	today = models.DateOf(today)
	if policy == models.RecurrenceDaily {
		return !models.DateOf(anchor).Equal(today)
	}

	next, _ := NextDue(policy, anchor)
	return !next.After(today)
}

// addMonth moves t one calendar month forward, clamping to the last day of
// the target month (Jan 31 -> Feb 29 in a leap year).
func addMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	firstOfNext := time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), d, 0, 0, 0, 0, t.Location())
}
