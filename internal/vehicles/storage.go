package vehicles

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a vehicle with the given ID is not found.
var ErrNotFound = errors.New("vehicle not found")

// ErrEmptyID is returned when trying to store a vehicle with an empty ID.
var ErrEmptyID = errors.New("empty vehicle ID")

// ErrUnavailable is returned when a reservation is attempted on a vehicle
// that is not AVAILABLE.
var ErrUnavailable = errors.New("vehicle not available")

// ErrInvalidTransition is returned when an availability change is attempted
// from a state that does not permit it.
var ErrInvalidTransition = errors.New("invalid availability transition")

// Storage is the main interface for the vehicle inventory layer. Besides
// plain reads and writes it exposes the three atomic availability
// operations the purchase flow depends on: each one is a check-and-set
// executed under the store's own lock, so concurrent callers serialize and
// at most one of them observes the precondition as satisfied.
type Storage interface {
	Set(vehicle *Vehicle) error
	Read(id string) (*Vehicle, error)
	GetAll() ([]*Vehicle, error)

	Reserve(vehicleID, saleID string) (*Vehicle, error)
	MarkSold(vehicleID string) (*Vehicle, error)
	Release(vehicleID string) (*Vehicle, error)
}

// LocalStorage provides an in-memory implementation for storing vehicles.
type LocalStorage struct {
	mu sync.Mutex
	m  map[string]*Vehicle
}

// NewLocalStorage instantiates a new LocalStorage for vehicles with an empty map.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		m: map[string]*Vehicle{},
	}
}

// Returns ErrEmptyID if the vehicle has an empty ID.
func (l *LocalStorage) Set(vehicle *Vehicle) error {
	if vehicle.ID == "" {
		return ErrEmptyID
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.m[vehicle.ID] = vehicle
	return nil
}

// Read retrieves a vehicle from the local storage by ID.
// Returns ErrNotFound if the vehicle is not found.
func (l *LocalStorage) Read(id string) (*Vehicle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// GetAll retrieves all vehicles from the local storage.
func (l *LocalStorage) GetAll() ([]*Vehicle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]*Vehicle, 0, len(l.m))
	for _, v := range l.m {
		cp := *v
		result = append(result, &cp)
	}
	return result, nil
}

// Reserve atomically moves a vehicle AVAILABLE -> RESERVED and links the
// sale that holds it. Exactly one of any set of concurrent callers wins;
// the rest get ErrUnavailable.
func (l *LocalStorage) Reserve(vehicleID, saleID string) (*Vehicle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.m[vehicleID]
	if !ok {
		return nil, ErrNotFound
	}
	if v.Availability != AvailabilityAvailable {
		return nil, ErrUnavailable
	}

	v.Availability = AvailabilityReserved
	v.SaleID = saleID
	v.UpdatedAt = time.Now()
	cp := *v
	return &cp, nil
}

// MarkSold atomically moves a vehicle RESERVED -> SOLD.
func (l *LocalStorage) MarkSold(vehicleID string) (*Vehicle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.m[vehicleID]
	if !ok {
		return nil, ErrNotFound
	}
	if v.Availability != AvailabilityReserved {
		return nil, ErrInvalidTransition
	}

	v.Availability = AvailabilitySold
	v.UpdatedAt = time.Now()
	cp := *v
	return &cp, nil
}

// Release atomically returns a vehicle RESERVED or SOLD -> AVAILABLE and
// clears the sale link. Callers decide when releasing a SOLD vehicle is
// permitted; the store only refuses to release an AVAILABLE one.
func (l *LocalStorage) Release(vehicleID string) (*Vehicle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.m[vehicleID]
	if !ok {
		return nil, ErrNotFound
	}
	if v.Availability == AvailabilityAvailable {
		return nil, ErrInvalidTransition
	}

	v.Availability = AvailabilityAvailable
	v.SaleID = ""
	v.UpdatedAt = time.Now()
	cp := *v
	return &cp, nil
}
