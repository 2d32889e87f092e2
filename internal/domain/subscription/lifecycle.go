package subscription

import (
	"fmt"
	"time"
)

const msPerDay = int64(24 * time.Hour / time.Millisecond)

// Cancel moves a renewing subscription to cancelled. With a grace period end
// the buyer keeps access until then; without one access ends immediately.
// Cancelling an already cancelled subscription changes nothing and reports
// false.
func (s *Subscription) Cancel(now time.Time, gracePeriodEnd *time.Time) bool {
	if s.State == StateCancelled {
		return false
	}
	at := now
	s.State = StateCancelled
	s.CancelledAt = &at
	s.ActiveUntil = nil
	if gracePeriodEnd != nil {
		end := *gracePeriodEnd
		s.ActiveUntil = &end
	}
	s.UpdatedAt = now
	return true
}

// EndAccess brings the end of entitlements forward to at. It never extends
// access and is a no-op once access has lapsed.
func (s *Subscription) EndAccess(at time.Time) bool {
	if s.State != StateCancelled {
		return s.Cancel(at, nil)
	}
	if s.ActiveUntil == nil || !s.ActiveUntil.After(at) {
		return false
	}
	end := at
	s.ActiveUntil = &end
	s.UpdatedAt = at
	return true
}

// IsActive reports whether the buyer currently holds entitlements.
func (s *Subscription) IsActive(now time.Time) bool {
	switch s.State {
	case StateRenewing:
		return true
	case StateCancelled:
		return s.ActiveUntil != nil && s.ActiveUntil.After(now)
	}
	return false
}

// RemainingDays is the number of started days of grace left, rounded up.
func (s *Subscription) RemainingDays(now time.Time) int {
	if s.State != StateCancelled || s.ActiveUntil == nil || !s.ActiveUntil.After(now) {
		return 0
	}
	ms := s.ActiveUntil.Sub(now).Milliseconds()
	return int((ms + msPerDay - 1) / msPerDay)
}

// StatusLabel is the display status of the subscription at now.
func (s *Subscription) StatusLabel(now time.Time) string {
	if s.State == StateRenewing {
		return "Active"
	}
	days := s.RemainingDays(now)
	switch {
	case days == 1:
		return "Cancelled -- usable for 1 more day"
	case days > 1:
		return fmt.Sprintf("Cancelled -- usable for %d more days", days)
	}
	return "Cancelled"
}
