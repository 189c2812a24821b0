package inventory

import "time"

// DateOnly truncates t to midnight UTC of its calendar day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// compareExpiry orders optional expiry dates ascending with missing dates last.
// Returns -1, 0 or 1.
func compareExpiry(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return DateOnly(*a).Compare(DateOnly(*b))
}
