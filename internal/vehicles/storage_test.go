package vehicles

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func seedVehicle(t *testing.T, storage *LocalStorage, availability Availability) *Vehicle {
	t.Helper()
	v := &Vehicle{
		ID:           "veh-1",
		Brand:        "Fiat",
		Model:        "Argo",
		Year:         2023,
		Color:        "white",
		Price:        18500,
		Availability: availability,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := storage.Set(v); err != nil {
		t.Fatalf("failed to seed vehicle: %v", err)
	}
	return v
}

func TestReserve_HappyPath(t *testing.T) {
	storage := NewLocalStorage()
	seedVehicle(t, storage, AvailabilityAvailable)

	v, err := storage.Reserve("veh-1", "sale-1")
	assert.NoError(t, err)
	assert.Equal(t, AvailabilityReserved, v.Availability)
	assert.Equal(t, "sale-1", v.SaleID)
}

func TestReserve_NotAvailable(t *testing.T) {
	storage := NewLocalStorage()
	seedVehicle(t, storage, AvailabilityReserved)

	_, err := storage.Reserve("veh-1", "sale-2")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestReserve_NotFound(t *testing.T) {
	storage := NewLocalStorage()

	_, err := storage.Reserve("missing", "sale-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

// Two concurrent reservations of the same vehicle: exactly one wins.
func TestReserve_ConcurrentRace(t *testing.T) {
	storage := NewLocalStorage()
	seedVehicle(t, storage, AvailabilityAvailable)

	const attempts = 50
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = storage.Reserve("veh-1", "sale-race")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrUnavailable)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent reservation must succeed")

	v, err := storage.Read("veh-1")
	assert.NoError(t, err)
	assert.Equal(t, AvailabilityReserved, v.Availability)
}

func TestMarkSold_RequiresReserved(t *testing.T) {
	storage := NewLocalStorage()
	seedVehicle(t, storage, AvailabilityAvailable)

	_, err := storage.MarkSold("veh-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = storage.Reserve("veh-1", "sale-1")
	assert.NoError(t, err)

	v, err := storage.MarkSold("veh-1")
	assert.NoError(t, err)
	assert.Equal(t, AvailabilitySold, v.Availability)
}

func TestRelease_ClearsSaleLink(t *testing.T) {
	storage := NewLocalStorage()
	seedVehicle(t, storage, AvailabilityAvailable)

	_, err := storage.Reserve("veh-1", "sale-1")
	assert.NoError(t, err)

	v, err := storage.Release("veh-1")
	assert.NoError(t, err)
	assert.Equal(t, AvailabilityAvailable, v.Availability)
	assert.Empty(t, v.SaleID)
}

func TestRelease_AvailableIsRejected(t *testing.T) {
	storage := NewLocalStorage()
	seedVehicle(t, storage, AvailabilityAvailable)

	_, err := storage.Release("veh-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSet_EmptyID(t *testing.T) {
	storage := NewLocalStorage()
	err := storage.Set(&Vehicle{})
	assert.ErrorIs(t, err, ErrEmptyID)
}
