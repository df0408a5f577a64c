package vehicles

import "time"

// Availability is the inventory-side state of a vehicle, independent of
// any sale referencing it.
type Availability string

const (
	AvailabilityAvailable Availability = "AVAILABLE"
	AvailabilityReserved  Availability = "RESERVED"
	AvailabilitySold      Availability = "SOLD"
)

func (a Availability) String() string {
	return string(a)
}

// Vehicle represents a sellable inventory unit.
type Vehicle struct {
	ID           string       `json:"id"`
	Brand        string       `json:"brand"`
	Model        string       `json:"model"`
	Year         int          `json:"year"`
	Color        string       `json:"color"`
	Price        float64      `json:"price"`
	Availability Availability `json:"availability"`
	// SaleID references the active sale holding this vehicle. Empty while
	// the vehicle is AVAILABLE.
	SaleID    string    `json:"sale_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
