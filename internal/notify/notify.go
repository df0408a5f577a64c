// Package notify publishes best-effort operational events about the
// purchase flow. Delivery is not required for correctness anywhere; every
// caller treats a publish failure as log-and-continue.
package notify

import (
	"context"
	"time"
)

// Event kinds. The two critical kinds require human reconciliation and
// are meant to be alerted on.
const (
	KindSaleReserved          = "SALE_RESERVED"
	KindCriticalUnrecoverable = "CRITICAL_UNRECOVERABLE"
	KindCompensationFailed    = "COMPENSATION_FAILED"
)

// Event is the outbound message shape.
type Event struct {
	Kind      string    `json:"kind"`
	SaleID    string    `json:"sale_id,omitempty"`
	VehicleID string    `json:"vehicle_id,omitempty"`
	Step      string    `json:"step,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher sends events to the notification channel.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, ev Event) error {
	return nil
}
