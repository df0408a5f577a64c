package sales

import "time"

// Status is the lifecycle state of a sale.
type Status string

const (
	StatusReserved      Status = "RESERVED"
	StatusCodeGenerated Status = "CODE_GENERATED"
	StatusPaid          Status = "PAID"
	StatusPickedUp      Status = "PICKED_UP"
	StatusCanceled      Status = "CANCELED"
)

func (s Status) String() string {
	return string(s)
}

// Sale represents a purchase of a single vehicle by a buyer. A sale is
// created only as the result of a successful reservation and is never
// deleted; CANCELED is a terminal state kept for audit history.
type Sale struct {
	ID      string `json:"id"`
	BuyerID string `json:"buyer_id"`
	// VehicleID is immutable once the sale exists.
	VehicleID string `json:"vehicle_id"`
	Status    Status `json:"status"`
	// PaymentCode is set exactly once, at the CODE_GENERATED transition.
	PaymentCode  string    `json:"payment_code,omitempty"`
	CancelReason string    `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}
