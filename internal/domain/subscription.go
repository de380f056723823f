package domain

import (
	"fmt"
	"time"
)

// Subscription-specific validation errors. All wrap ErrValidation.
var (
	// ErrSubscriptionEndpointEmpty is returned when a subscription's
	// delivery endpoint is empty.
	ErrSubscriptionEndpointEmpty = fmt.Errorf("%w: subscription endpoint cannot be empty", ErrValidation)

	// ErrSubscriptionOwnerEmpty is returned when a subscription's owner ID
	// is empty.
	ErrSubscriptionOwnerEmpty = fmt.Errorf("%w: subscription owner ID cannot be empty", ErrValidation)

	// ErrSubscriptionKeysEmpty is returned when either of the subscription's
	// push credential keys is empty.
	ErrSubscriptionKeysEmpty = fmt.Errorf("%w: subscription credential keys cannot be empty", ErrValidation)
)

// ClockTime is a wall-clock time of day (hour and minute) with no date or
// timezone attached. Subscriptions configure their notification windows
// with clock times interpreted in the notification timezone.
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseClockTime parses an "HH:MM" string into a ClockTime.
// Returns ErrInvalidClockTime if the string is malformed or out of range.
func ParseClockTime(s string) (ClockTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	ct := ClockTime{Hour: h, Minute: m}
	if err := ct.Validate(); err != nil {
		return ClockTime{}, err
	}
	return ct, nil
}

// Validate checks that the clock time is within the valid 24-hour range.
func (c ClockTime) Validate() error {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidClockTime, c.Hour, c.Minute)
	}
	return nil
}

// String formats the clock time as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Matches reports whether t falls on exactly this hour and minute.
func (c ClockTime) Matches(t time.Time) bool {
	return t.Hour() == c.Hour && t.Minute() == c.Minute
}

// PushSubscription represents a single push notification delivery target.
// One user may hold several subscriptions (one per device/browser). The
// endpoint is the subscription's identity and is unique across all users.
//
// LastMorningSent and LastEveningSent record the calendar date (in the
// notification timezone) on which each window was last satisfied. They are
// the idempotency guard that keeps each window to at most one dispatch per
// day; they are nil until the first successful send.
type PushSubscription struct {
	Endpoint        string     `json:"endpoint"`
	OwnerID         string     `json:"owner_id"`
	KeyP256dh       string     `json:"key_p256dh"`
	KeyAuth         string     `json:"key_auth"`
	MorningTime     ClockTime  `json:"morning_time"`
	EveningTime     ClockTime  `json:"evening_time"`
	LastMorningSent *time.Time `json:"last_morning_sent,omitempty"`
	LastEveningSent *time.Time `json:"last_evening_sent,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewPushSubscription creates a new PushSubscription for the given endpoint
// and credentials with the given window times. The last-sent markers start
// nil so both windows are eligible on the first matching tick. Returns an
// error if validation fails.
func NewPushSubscription(
	endpoint, ownerID, keyP256dh, keyAuth string,
	morning, evening ClockTime,
) (*PushSubscription, error) {
	now := time.Now().UTC()
	s := &PushSubscription{
		Endpoint:    endpoint,
		OwnerID:     ownerID,
		KeyP256dh:   keyP256dh,
		KeyAuth:     keyAuth,
		MorningTime: morning,
		EveningTime: evening,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks if the PushSubscription has valid data.
// Returns a specific validation error if any field fails validation.
func (s *PushSubscription) Validate() error {
	if s.Endpoint == "" {
		return ErrSubscriptionEndpointEmpty
	}

	if s.OwnerID == "" {
		return ErrSubscriptionOwnerEmpty
	}

	if s.KeyP256dh == "" || s.KeyAuth == "" {
		return ErrSubscriptionKeysEmpty
	}

	if err := s.MorningTime.Validate(); err != nil {
		return err
	}

	return s.EveningTime.Validate()
}
