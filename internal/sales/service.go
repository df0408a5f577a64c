package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"api_dealership/internal/notify"
	"api_dealership/internal/vehicles"
)

// ErrBuyerNotFound is returned when a reservation references a buyer the
// directory does not know.
var ErrBuyerNotFound = errors.New("buyer not found")

// InventoryLedger is the slice of the vehicle service the sale lifecycle
// depends on. Availability writes stay behind this interface; the sale
// side never mutates a vehicle directly.
type InventoryLedger interface {
	Reserve(vehicleID, saleID string) error
	MarkSold(vehicleID string) error
	Release(vehicleID string) error
	GetAll() ([]*vehicles.Vehicle, error)
}

// BuyerDirectory resolves whether a buyer id is known. Identity itself is
// handled upstream; the sale flow only checks existence.
type BuyerDirectory interface {
	Exists(ctx context.Context, buyerID string) (bool, error)
}

// Service provides the sale lifecycle operations on a Storage backend,
// coordinating availability changes through the inventory ledger.
type Service struct {
	storage  Storage
	ledger   InventoryLedger
	buyers   BuyerDirectory
	notifier notify.Publisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new Service.
func NewService(storage Storage, ledger InventoryLedger, buyers BuyerDirectory, notifier notify.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}

	return &Service{
		storage:  storage,
		ledger:   ledger,
		buyers:   buyers,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SalesMetadata summarizes a search result.
type SalesMetadata struct {
	Quantity      int `json:"quantity"`
	Reserved      int `json:"reserved"`
	CodeGenerated int `json:"code_generated"`
	Paid          int `json:"paid"`
	PickedUp      int `json:"picked_up"`
	Canceled      int `json:"canceled"`
}

// ReserveVehicle is step 1 of the purchase flow. The vehicle is held
// first, under the ledger's atomic check-and-set, and the sale record is
// written second; if that second write fails the hold is released again.
// A vehicle left held without a live sale by a crash in between is picked
// up by the reconciler.
func (s *Service) ReserveVehicle(ctx context.Context, buyerID, vehicleID string) (*Sale, error) {
	if buyerID == "" || vehicleID == "" {
		return nil, fmt.Errorf("buyer_id and vehicle_id are required")
	}

	exists, err := s.buyers.Exists(ctx, buyerID)
	if err != nil {
		s.logger.Error("error validating buyer", zap.String("buyer_id", buyerID), zap.Error(err))
		return nil, fmt.Errorf("error validating buyer")
	}
	if !exists {
		return nil, ErrBuyerNotFound
	}

	saleID := uuid.NewString()

	if err := s.ledger.Reserve(vehicleID, saleID); err != nil {
		return nil, err
	}

	sale := &Sale{
		ID:        saleID,
		BuyerID:   buyerID,
		VehicleID: vehicleID,
		Status:    StatusReserved,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
		Version:   1,
	}

	if err := s.storage.Set(sale); err != nil {
		s.logger.Error("failed to save sale, releasing vehicle", zap.String("sale_id", saleID), zap.Error(err))
		if relErr := s.ledger.Release(vehicleID); relErr != nil {
			s.logger.Error("vehicle release after failed sale write also failed",
				zap.String("vehicle_id", vehicleID),
				zap.String("sale_id", saleID),
				zap.Error(relErr),
			)
		}
		return nil, fmt.Errorf("failed to save sale: %w", err)
	}

	s.publish(ctx, notify.Event{
		Kind:      notify.KindSaleReserved,
		SaleID:    sale.ID,
		VehicleID: sale.VehicleID,
	})

	s.logger.Info("sale reserved", zap.String("sale_id", sale.ID), zap.String("buyer_id", buyerID), zap.String("vehicle_id", vehicleID))
	return sale, nil
}

// GeneratePaymentCode is step 2: derives the payment code and advances the
// sale RESERVED -> CODE_GENERATED in one compare-and-set.
func (s *Service) GeneratePaymentCode(ctx context.Context, saleID string) (*Sale, error) {
	sale, err := s.storage.Read(saleID)
	if err != nil {
		return nil, err
	}
	if err := CanTransition(sale.Status, StatusCodeGenerated); err != nil {
		return nil, err
	}

	code := PaymentCode(sale.ID, s.now())

	updated, err := s.storage.Transition(saleID, StatusReserved, StatusCodeGenerated, &TransitionExtra{PaymentCode: code})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment code generated", zap.String("sale_id", saleID), zap.String("payment_code", code))
	return updated, nil
}

// ConfirmPayment is step 3. Payment confirmation arrives as a trusted
// external event; here it advances the sale CODE_GENERATED -> PAID and
// marks the vehicle SOLD. The sale moves first so that only one
// confirmation can win the compare-and-set; a ledger failure afterwards
// leaves a PAID sale on a RESERVED vehicle, which the reconciler finishes.
func (s *Service) ConfirmPayment(ctx context.Context, saleID string) (*Sale, error) {
	sale, err := s.storage.Read(saleID)
	if err != nil {
		return nil, err
	}
	if err := CanTransition(sale.Status, StatusPaid); err != nil {
		return nil, err
	}

	updated, err := s.storage.Transition(saleID, StatusCodeGenerated, StatusPaid, nil)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.MarkSold(updated.VehicleID); err != nil {
		s.logger.Error("payment recorded but vehicle not marked sold",
			zap.String("sale_id", saleID),
			zap.String("vehicle_id", updated.VehicleID),
			zap.Error(err),
		)
		return updated, fmt.Errorf("payment recorded but vehicle not marked sold: %w", err)
	}

	s.logger.Info("payment confirmed", zap.String("sale_id", saleID), zap.String("vehicle_id", updated.VehicleID))
	return updated, nil
}

// MarkPickedUp is step 4: PAID -> PICKED_UP. No vehicle side effect.
func (s *Service) MarkPickedUp(ctx context.Context, saleID string) (*Sale, error) {
	sale, err := s.storage.Read(saleID)
	if err != nil {
		return nil, err
	}
	if err := CanTransition(sale.Status, StatusPickedUp); err != nil {
		return nil, err
	}

	updated, err := s.storage.Transition(saleID, StatusPaid, StatusPickedUp, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("vehicle picked up", zap.String("sale_id", saleID))
	return updated, nil
}

// CancelSale cancels a sale that has not been paid yet and releases its
// vehicle back to AVAILABLE. Canceling an already-CANCELED sale is
// rejected with ErrAlreadyCanceled and mutates nothing; PAID and
// PICKED_UP sales are not cancelable here at all.
func (s *Service) CancelSale(ctx context.Context, saleID, reason string) (*Sale, error) {
	sale, err := s.storage.Read(saleID)
	if err != nil {
		return nil, err
	}
	if sale.Status == StatusCanceled {
		return nil, ErrAlreadyCanceled
	}
	if !Cancelable(sale.Status) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.storage.Transition(saleID, sale.Status, StatusCanceled, &TransitionExtra{CancelReason: reason})
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Release(updated.VehicleID); err != nil {
		s.logger.Error("sale canceled but vehicle release failed",
			zap.String("sale_id", saleID),
			zap.String("vehicle_id", updated.VehicleID),
			zap.Error(err),
		)
		return updated, fmt.Errorf("%w: vehicle release failed: %v", ErrCompensationFailed, err)
	}

	s.logger.Info("sale canceled", zap.String("sale_id", saleID), zap.String("reason", reason))
	return updated, nil
}

// GetSale returns the current sale or ErrNotFound.
func (s *Service) GetSale(saleID string) (*Sale, error) {
	return s.storage.Read(saleID)
}

// SearchSales filters sales by buyer and/or status and computes summary
// metadata over the matching set.
func (s *Service) SearchSales(buyerID string, status Status) ([]*Sale, SalesMetadata, error) {
	switch status {
	case "", StatusReserved, StatusCodeGenerated, StatusPaid, StatusPickedUp, StatusCanceled:
	default:
		s.logger.Warn("invalid status filter provided", zap.String("status_filter", string(status)))
		return nil, SalesMetadata{}, fmt.Errorf("invalid status value: '%s'", status)
	}

	all, err := s.storage.GetAll()
	if err != nil {
		s.logger.Error("failed to get all sales from storage", zap.Error(err))
		return nil, SalesMetadata{}, fmt.Errorf("failed to retrieve sales: %w", err)
	}

	filtered := make([]*Sale, 0)
	metadata := SalesMetadata{}

	for _, sale := range all {
		if buyerID != "" && sale.BuyerID != buyerID {
			continue
		}
		if status != "" && sale.Status != status {
			continue
		}

		filtered = append(filtered, sale)

		metadata.Quantity++
		switch sale.Status {
		case StatusReserved:
			metadata.Reserved++
		case StatusCodeGenerated:
			metadata.CodeGenerated++
		case StatusPaid:
			metadata.Paid++
		case StatusPickedUp:
			metadata.PickedUp++
		case StatusCanceled:
			metadata.Canceled++
		}
	}

	return filtered, metadata, nil
}

// publish sends a best-effort notification. Delivery failures are logged
// and never affect the outcome of the operation that produced the event.
func (s *Service) publish(ctx context.Context, ev notify.Event) {
	ev.At = s.now()
	if err := s.notifier.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish notification", zap.String("kind", ev.Kind), zap.Error(err))
	}
}
