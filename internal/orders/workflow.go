package orders

import "time"

var (
	purchaseFlow = []string{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered}
	serviceFlow  = []string{StatusOrderPlaced, StatusPickupScheduled, StatusInService, StatusCompleted, StatusDelivered}
)

// Workflow returns the ordered status list for kind.
func Workflow(kind Kind) []string {
	flow := purchaseFlow
	if kind.IsService() {
		flow = serviceFlow
	}
	return append([]string(nil), flow...)
}

// InitialStatus is the first status of kind's workflow.
func InitialStatus(kind Kind) string {
	return Workflow(kind)[0]
}

// NextStatus moves one step along kind's workflow. An unknown status resets
// to the first state and the terminal state wraps around to it.
func NextStatus(kind Kind, status string) string {
	flow := Workflow(kind)
	for i, s := range flow {
		if s == status {
			return flow[(i+1)%len(flow)]
		}
	}
	return flow[0]
}

// Advance returns o moved to its next status, stamped at now.
func Advance(o Order, now time.Time) Order {
	o.Status = NextStatus(o.Kind, o.Status)
	o.UpdatedAt = now
	return o
}
