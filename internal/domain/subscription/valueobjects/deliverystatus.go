package valueobjects

// DeliveryStatus is the lifecycle status of one calendar day's delivery entry.
type DeliveryStatus string

const (
	DeliveryScheduled        DeliveryStatus = "scheduled"
	DeliveryReaching         DeliveryStatus = "reaching"
	DeliveryAwaitingCustomer DeliveryStatus = "awaitingCustomer"
	DeliveryDelivered        DeliveryStatus = "delivered"
	DeliveryNoResponse       DeliveryStatus = "noResponse"
	DeliveryCanceled         DeliveryStatus = "canceled"
	DeliveryPaused           DeliveryStatus = "paused"
)

var ValidDeliveryStatuses = map[DeliveryStatus]bool{
	DeliveryScheduled:        true,
	DeliveryReaching:         true,
	DeliveryAwaitingCustomer: true,
	DeliveryDelivered:        true,
	DeliveryNoResponse:       true,
	DeliveryCanceled:         true,
	DeliveryPaused:           true,
}

func (s DeliveryStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status admits no further transitions.
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryDelivered || s == DeliveryNoResponse || s == DeliveryCanceled
}

// CountsAsDelivered reports whether the status resolves the entry for
// delivery-count bookkeeping. noResponse is counted as delivered but
// recorded distinctly.
func (s DeliveryStatus) CountsAsDelivered() bool {
	return s == DeliveryDelivered || s == DeliveryNoResponse
}

// CanTransitionTo reports whether the state machine permits moving from s to target.
func (s DeliveryStatus) CanTransitionTo(target DeliveryStatus) bool {
	transitions := map[DeliveryStatus][]DeliveryStatus{
		DeliveryScheduled:        {DeliveryReaching, DeliveryCanceled, DeliveryPaused},
		DeliveryReaching:         {DeliveryDelivered, DeliveryNoResponse, DeliveryAwaitingCustomer},
		DeliveryAwaitingCustomer: {DeliveryDelivered, DeliveryCanceled},
		DeliveryPaused:           {DeliveryScheduled, DeliveryCanceled},
		DeliveryDelivered:        {},
		DeliveryNoResponse:       {},
		DeliveryCanceled:         {},
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

// LineStatus is the per-product delivery status inside one entry.
type LineStatus string

const (
	LinePending   LineStatus = "pending"
	LineDelivered LineStatus = "delivered"
	LineFailed    LineStatus = "failed"
)

func (s LineStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the line has already been resolved.
// A terminal line must never be resolved again (double-count guard).
func (s LineStatus) IsTerminal() bool {
	return s == LineDelivered || s == LineFailed
}
