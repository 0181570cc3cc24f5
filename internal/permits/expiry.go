package permits

import (
	"fmt"
	"math"
	"time"
)

const (
	// ExpiryWindowDays bounds how far ahead a permit counts as nearing expiry.
	ExpiryWindowDays = 10
	// ExpiryWindow is ExpiryWindowDays as a duration.
	ExpiryWindow = ExpiryWindowDays * 24 * time.Hour
)

// Urgency classifies how close a permit is to its expiry date.
type Urgency string

const (
	UrgencyExpired      Urgency = "expired"
	UrgencyExpiringSoon Urgency = "expiring_soon"
	// UrgencyUpcoming lies beyond the query window and never reaches the expiry feed.
	UrgencyUpcoming Urgency = "upcoming"
)

// ExpiryNotice is the read-time projection of a permit inside the expiry window.
type ExpiryNotice struct {
	Permit        Permit  `json:"permit"`
	DaysRemaining int     `json:"days_remaining"`
	Urgency       Urgency `json:"urgency"`
	Message       string  `json:"message"`
}

// DaysRemaining rounds the time until expiry up to whole days.
func DaysRemaining(expiry, now time.Time) int {
	return int(math.Ceil(expiry.Sub(now).Hours() / 24))
}

// Classify derives the urgency and message for a permit expiring at expiry.
func Classify(permitNumber string, expiry, now time.Time) (int, Urgency, string) {
	days := DaysRemaining(expiry, now)
	switch {
	case days <= 0:
		return days, UrgencyExpired, fmt.Sprintf("Permit %s has expired.", permitNumber)
	case days <= ExpiryWindowDays:
		return days, UrgencyExpiringSoon, fmt.Sprintf("Permit %s will expire soon, in %d day(s).", permitNumber, days)
	default:
		return days, UrgencyUpcoming, fmt.Sprintf("Permit %s is expiring in %d day(s).", permitNumber, days)
	}
}

// NewExpiryNotice projects permit at now.
func NewExpiryNotice(permit Permit, now time.Time) ExpiryNotice {
	days, urgency, message := Classify(permit.PermitNumber, permit.ExpiryDate, now)
	return ExpiryNotice{
		Permit:        permit,
		DaysRemaining: days,
		Urgency:       urgency,
		Message:       message,
	}
}
