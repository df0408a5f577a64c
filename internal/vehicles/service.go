package vehicles

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service provides catalog management and the inventory-ledger operations
// the purchase flow uses. Availability writes go through this service
// only; sale lifecycle writes live elsewhere.
type Service struct {
	storage Storage
	logger  *zap.Logger
}

// NewService creates a new Service.
func NewService(storage Storage, logger *zap.Logger) *Service {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// CreateVehicleInput carries the descriptive attributes of a new vehicle.
type CreateVehicleInput struct {
	Brand string  `json:"brand"`
	Model string  `json:"model"`
	Year  int     `json:"year"`
	Color string  `json:"color"`
	Price float64 `json:"price"`
}

// UpdateVehicleInput carries a partial update; nil fields are left untouched.
type UpdateVehicleInput struct {
	Brand *string  `json:"brand"`
	Model *string  `json:"model"`
	Year  *int     `json:"year"`
	Color *string  `json:"color"`
	Price *float64 `json:"price"`
}

// CreateVehicle registers a new vehicle, always starting AVAILABLE.
func (s *Service) CreateVehicle(in CreateVehicleInput) (*Vehicle, error) {
	if in.Brand == "" || in.Model == "" {
		return nil, fmt.Errorf("brand and model are required")
	}
	if in.Year < 1900 {
		return nil, fmt.Errorf("year must be 1900 or later")
	}
	if in.Price <= 0 {
		return nil, fmt.Errorf("price must be greater than zero")
	}

	v := &Vehicle{
		ID:           uuid.NewString(),
		Brand:        in.Brand,
		Model:        in.Model,
		Year:         in.Year,
		Color:        in.Color,
		Price:        in.Price,
		Availability: AvailabilityAvailable,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.storage.Set(v); err != nil {
		s.logger.Error("failed to save vehicle", zap.String("vehicle_id", v.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to save vehicle: %w", err)
	}

	s.logger.Info("vehicle created", zap.String("vehicle_id", v.ID), zap.String("brand", v.Brand), zap.String("model", v.Model))
	return v, nil
}

// UpdateVehicle edits descriptive attributes. A vehicle that has already
// been SOLD can no longer be edited.
func (s *Service) UpdateVehicle(id string, in UpdateVehicleInput) (*Vehicle, error) {
	v, err := s.storage.Read(id)
	if err != nil {
		return nil, err
	}

	if v.Availability == AvailabilitySold {
		return nil, ErrInvalidTransition
	}

	if in.Brand != nil {
		v.Brand = *in.Brand
	}
	if in.Model != nil {
		v.Model = *in.Model
	}
	if in.Year != nil {
		v.Year = *in.Year
	}
	if in.Color != nil {
		v.Color = *in.Color
	}
	if in.Price != nil {
		if *in.Price <= 0 {
			return nil, fmt.Errorf("price must be greater than zero")
		}
		v.Price = *in.Price
	}
	v.UpdatedAt = time.Now()

	if err := s.storage.Set(v); err != nil {
		s.logger.Error("failed to update vehicle", zap.String("vehicle_id", v.ID), zap.Error(err))
		return nil, err
	}

	return v, nil
}

// GetVehicle returns the current vehicle or ErrNotFound.
func (s *Service) GetVehicle(id string) (*Vehicle, error) {
	return s.storage.Read(id)
}

// ListVehicles returns vehicles filtered by availability (empty means all),
// ordered by price ascending or descending.
func (s *Service) ListVehicles(availability Availability, order string) ([]*Vehicle, error) {
	switch availability {
	case "", AvailabilityAvailable, AvailabilityReserved, AvailabilitySold:
	default:
		return nil, fmt.Errorf("invalid availability value: '%s'", availability)
	}
	if order != "" && order != "asc" && order != "desc" {
		return nil, fmt.Errorf("invalid order value: '%s'", order)
	}

	all, err := s.storage.GetAll()
	if err != nil {
		s.logger.Error("failed to get all vehicles from storage", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve vehicles: %w", err)
	}

	filtered := make([]*Vehicle, 0, len(all))
	for _, v := range all {
		if availability != "" && v.Availability != availability {
			continue
		}
		filtered = append(filtered, v)
	}

	sort.Slice(filtered, func(i, j int) bool {
		if order == "desc" {
			return filtered[i].Price > filtered[j].Price
		}
		return filtered[i].Price < filtered[j].Price
	})

	return filtered, nil
}

// Reserve atomically holds an AVAILABLE vehicle for the given sale.
func (s *Service) Reserve(vehicleID, saleID string) error {
	_, err := s.storage.Reserve(vehicleID, saleID)
	if err != nil {
		return err
	}
	s.logger.Info("vehicle reserved", zap.String("vehicle_id", vehicleID), zap.String("sale_id", saleID))
	return nil
}

// MarkSold moves a RESERVED vehicle to SOLD.
func (s *Service) MarkSold(vehicleID string) error {
	_, err := s.storage.MarkSold(vehicleID)
	if err != nil {
		return err
	}
	s.logger.Info("vehicle sold", zap.String("vehicle_id", vehicleID))
	return nil
}

// Release returns a held vehicle to AVAILABLE. Only the cancellation and
// compensation paths call this.
func (s *Service) Release(vehicleID string) error {
	_, err := s.storage.Release(vehicleID)
	if err != nil {
		return err
	}
	s.logger.Info("vehicle released", zap.String("vehicle_id", vehicleID))
	return nil
}

// GetAll exposes the raw inventory snapshot for reconciliation scans.
func (s *Service) GetAll() ([]*Vehicle, error) {
	return s.storage.GetAll()
}
