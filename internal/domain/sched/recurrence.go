package sched

import (
	"errors"
	"fmt"
	"time"

	"github.com/planloop/planloop-api/internal/domain"
)

// ErrNoRecurrence is returned when NextOccurrence is invoked for a task
// that does not repeat.
var ErrNoRecurrence = errors.New("task has no recurrence")

// NextOccurrence computes the next occurrence of a repeating task from the
// base instant, preserving the base's wall-clock time of day and location.
//
// Daily and weekly advance by 1 and 7 calendar days. Monthly advances the
// month number by one, keeping the same day of month when the target month
// has it; otherwise the day is clamped to the last day of the target month
// (Jan 31 -> Feb 28, or Feb 29 in a leap year). The clamp is computed from
// the target month's actual length, so it is correct for every month and
// for leap years.
func NextOccurrence(base time.Time, kind domain.RecurrenceKind) (time.Time, error) {
	switch kind {
	case domain.RecurrenceDaily:
		return base.AddDate(0, 0, 1), nil

	case domain.RecurrenceWeekly:
		return base.AddDate(0, 0, 7), nil

	case domain.RecurrenceMonthly:
		return nextMonth(base), nil

	case domain.RecurrenceNone:
		return time.Time{}, ErrNoRecurrence

	default:
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidRecurrence, kind)
	}
}

// nextMonth advances base by one month, clamping the day of month to the
// last valid day of the target month. AddDate is unsuitable here because it
// normalizes overflow forward (Jan 31 + 1 month = Mar 2/3) instead of
// clamping.
func nextMonth(base time.Time) time.Time {
	year, month, day := base.Date()

	targetMonth := month + 1
	targetYear := year
	if targetMonth > time.December {
		targetMonth = time.January
		targetYear++
	}

	if last := daysIn(targetYear, targetMonth); day > last {
		day = last
	}

	return time.Date(
		targetYear, targetMonth, day,
		base.Hour(), base.Minute(), base.Second(), base.Nanosecond(),
		base.Location(),
	)
}

// daysIn returns the number of days in the given month. Day 0 of the
// following month normalizes to the last day of this one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
