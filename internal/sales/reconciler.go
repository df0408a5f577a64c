package sales

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"api_dealership/internal/notify"
	"api_dealership/internal/vehicles"
)

// Reconciler repairs vehicles left behind by an interrupted two-phase
// write: a unit held RESERVED or SOLD whose backing sale is missing or
// CANCELED, or a unit still RESERVED while its sale already reached PAID.
// It is safe to run repeatedly; every repair is an idempotent
// check-and-set in the ledger.
type Reconciler struct {
	sales    Storage
	ledger   InventoryLedger
	notifier notify.Publisher
	logger   *zap.Logger
}

// NewReconciler creates a new Reconciler.
func NewReconciler(salesStorage Storage, ledger InventoryLedger, notifier notify.Publisher, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}

	return &Reconciler{
		sales:    salesStorage,
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
	}
}

// Run scans the inventory once and applies repairs. It returns the number
// of vehicles released back to AVAILABLE.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	all, err := r.ledger.GetAll()
	if err != nil {
		return 0, err
	}

	released := 0
	for _, v := range all {
		if v.Availability == vehicles.AvailabilityAvailable {
			continue
		}

		sale, err := r.readBackingSale(v.SaleID)
		if err != nil {
			r.logger.Error("reconciler could not read backing sale",
				zap.String("vehicle_id", v.ID),
				zap.String("sale_id", v.SaleID),
				zap.Error(err),
			)
			continue
		}

		live := sale != nil && sale.Status != StatusCanceled

		switch {
		case !live && v.Availability == vehicles.AvailabilityReserved:
			// Reservation that never got (or lost) its sale record.
			if err := r.ledger.Release(v.ID); err != nil {
				r.logger.Error("reconciler failed to release orphaned vehicle",
					zap.String("vehicle_id", v.ID),
					zap.Error(err),
				)
				continue
			}
			released++
			r.logger.Warn("released vehicle with no live sale",
				zap.String("vehicle_id", v.ID),
				zap.String("sale_id", v.SaleID),
			)

		case !live && v.Availability == vehicles.AvailabilitySold:
			// A sold unit without a live sale means payment was taken at
			// some point; never undone automatically.
			r.logger.Error("vehicle SOLD with no live sale; manual intervention required",
				zap.String("vehicle_id", v.ID),
				zap.String("sale_id", v.SaleID),
				zap.Error(ErrCriticalUnrecoverable),
			)
			r.publish(ctx, notify.Event{
				Kind:      notify.KindCriticalUnrecoverable,
				VehicleID: v.ID,
				SaleID:    v.SaleID,
				Reason:    "vehicle SOLD with no live sale",
			})

		case live && sale.Status == StatusPaid && v.Availability == vehicles.AvailabilityReserved:
			// ConfirmPayment recorded the sale but crashed before marking
			// the vehicle; finish the second half.
			if err := r.ledger.MarkSold(v.ID); err != nil {
				r.logger.Error("reconciler failed to finish mark-sold",
					zap.String("vehicle_id", v.ID),
					zap.String("sale_id", sale.ID),
					zap.Error(err),
				)
				continue
			}
			r.logger.Warn("finished interrupted mark-sold",
				zap.String("vehicle_id", v.ID),
				zap.String("sale_id", sale.ID),
			)
		}
	}

	return released, nil
}

func (r *Reconciler) readBackingSale(saleID string) (*Sale, error) {
	if saleID == "" {
		return nil, nil
	}
	sale, err := r.sales.Read(saleID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func (r *Reconciler) publish(ctx context.Context, ev notify.Event) {
	ev.At = time.Now()
	if err := r.notifier.Publish(ctx, ev); err != nil {
		r.logger.Warn("failed to publish notification", zap.String("kind", ev.Kind), zap.Error(err))
	}
}
