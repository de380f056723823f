package sched

import (
	"time"

	"github.com/planloop/planloop-api/internal/domain"
)

// Window names one of the two once-daily notification slots a subscriber
// configures.
type Window string

// The two notification windows.
const (
	WindowMorning Window = "morning"
	WindowEvening Window = "evening"
)

// WindowSet holds the per-window due decisions for one subscription at one
// tick. Both flags are true only in the degenerate case where the morning
// and evening times are configured identically.
type WindowSet struct {
	Morning bool
	Evening bool
}

// Any reports whether at least one window is due.
func (w WindowSet) Any() bool {
	return w.Morning || w.Evening
}

// DueWindows decides which of the subscription's notification windows are
// due at the tick instant now, evaluated in the notification timezone loc.
//
// A window is due iff now's hour and minute exactly equal the configured
// clock time and the window has not already been satisfied today (the
// last-sent marker is nil or records an earlier calendar date). The match
// is exact-minute: a tick that arrives even one minute late silently skips
// that day's window rather than firing retroactively.
func DueWindows(sub *domain.PushSubscription, now time.Time, loc *time.Location) WindowSet {
	local := now.In(loc)

	return WindowSet{
		Morning: sub.MorningTime.Matches(local) && !sentOn(sub.LastMorningSent, local),
		Evening: sub.EveningTime.Matches(local) && !sentOn(sub.LastEveningSent, local),
	}
}

// sentOn reports whether the last-sent marker falls on the same calendar
// date as day. The marker is date-only data, stored as midnight UTC of the
// calendar date it records, so its date is read in UTC rather than shifted
// into the notification timezone.
func sentOn(lastSent *time.Time, day time.Time) bool {
	if lastSent == nil {
		return false
	}

	y1, m1, d1 := lastSent.UTC().Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
