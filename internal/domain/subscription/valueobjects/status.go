package valueobjects

// SubscriptionStatus is the overall subscription status, recomputed on every
// save from the delivery counters and the end date.
type SubscriptionStatus string

const (
	StatusPending   SubscriptionStatus = "pending"
	StatusActive    SubscriptionStatus = "active"
	StatusPaused    SubscriptionStatus = "paused"
	StatusExpiring  SubscriptionStatus = "expiring"
	StatusExpired   SubscriptionStatus = "expired"
	StatusCompleted SubscriptionStatus = "completed"
	StatusCancelled SubscriptionStatus = "cancelled"
)

var ValidStatuses = map[SubscriptionStatus]bool{
	StatusPending:   true,
	StatusActive:    true,
	StatusPaused:    true,
	StatusExpiring:  true,
	StatusExpired:   true,
	StatusCompleted: true,
	StatusCancelled: true,
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the subscription can still change.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusExpired || s == StatusCompleted || s == StatusCancelled
}

// AcceptsDeliveries reports whether deliveries may still be fulfilled.
func (s SubscriptionStatus) AcceptsDeliveries() bool {
	return s == StatusActive || s == StatusExpiring
}

func (s SubscriptionStatus) CanTransitionTo(target SubscriptionStatus) bool {
	transitions := map[SubscriptionStatus][]SubscriptionStatus{
		StatusPending:  {StatusActive, StatusCancelled},
		StatusActive:   {StatusPaused, StatusExpiring, StatusExpired, StatusCompleted, StatusCancelled},
		StatusPaused:   {StatusActive, StatusCancelled, StatusExpired},
		StatusExpiring: {StatusActive, StatusExpired, StatusCompleted, StatusCancelled},
		// endDate extension via concession can pull an expired subscription
		// back into an active window.
		StatusExpired:   {StatusActive, StatusExpiring},
		StatusCompleted: {},
		StatusCancelled: {},
	}

	allowed, exists := transitions[s]
	if !exists {
		return false
	}

	for _, allowedStatus := range allowed {
		if allowedStatus == target {
			return true
		}
	}
	return false
}
