package lifecycle

import (
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
)

// ExpiryClass buckets the days left on a lease.
type ExpiryClass string

const (
	ExpiryExpired ExpiryClass = "expired"
	ExpiryUrgent  ExpiryClass = "urgent"
	ExpiryWarning ExpiryClass = "warning"
	ExpiryHealthy ExpiryClass = "healthy"
)

// Urgency is the derived expiry view shown next to a lease.
type Urgency struct {
	DaysUntilExpiry int         `json:"days_until_expiry"`
	Class           ExpiryClass `json:"class"`
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddMonths moves t by n calendar months, clamping the day to the last day
// of the target month (Jan 31 plus one month is Feb 28).
func AddMonths(t time.Time, n int) time.Time {
	t = DateOnly(t)
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day := t.Day()
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from a to b (negative when b is earlier).
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// IsExpiredAt reports whether an ACTIVE lease has passed its end date.
func IsExpiredAt(lease *models.Lease, today time.Time) bool {
	return lease.Status == models.LeaseActive && DateOnly(lease.EndDate).Before(DateOnly(today))
}

// ExpiryUrgency classifies how close endDate is: <0 expired, 0-30 urgent,
// 31-90 warning, beyond that healthy.
func ExpiryUrgency(endDate, today time.Time) Urgency {
	days := DaysBetween(today, endDate)
	u := Urgency{DaysUntilExpiry: days}
	switch {
	case days < 0:
		u.Class = ExpiryExpired
	case days <= 30:
		u.Class = ExpiryUrgent
	case days <= 90:
		u.Class = ExpiryWarning
	default:
		u.Class = ExpiryHealthy
	}
	return u
}
