package service

import "time"

// DefaultDailyFineRate is the late fee per whole day past the due date,
// in currency units.
const DefaultDailyFineRate int64 = 50

// Fine computes the late fee for a loan returned (or inspected) at the
// given time. Only whole days past the due date are charged; a return
// within 24 hours of the due date costs nothing.
func Fine(dueDate, at time.Time, ratePerDay int64) int64 {
	if !at.After(dueDate) {
		return 0
	}
	lateDays := int64(at.Sub(dueDate) / (24 * time.Hour))
	return lateDays * ratePerDay
}
