package sales

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"api_dealership/internal/notify"
)

// ErrCompensationFailed is returned when rolling back a failed purchase
// could not complete. The sale and its vehicle may disagree until an
// operator (or the reconciler) intervenes.
var ErrCompensationFailed = errors.New("compensation failed")

// ErrCriticalUnrecoverable marks a failure detected after payment was
// confirmed. Money has moved, so nothing is undone automatically.
var ErrCriticalUnrecoverable = errors.New("critical unrecoverable sale state")

// SagaStep names one stage of the purchase flow.
type SagaStep string

const (
	StepReserve     SagaStep = "RESERVE"
	StepPaymentCode SagaStep = "PAYMENT_CODE"
	StepPayment     SagaStep = "PAYMENT"
	StepPickup      SagaStep = "PICKUP"
)

// PurchaseResult is the outcome of a saga run. Sale carries the last
// known state of the sale even on failure, so callers can show the buyer
// where the purchase stopped.
type PurchaseResult struct {
	Success    bool     `json:"success"`
	Sale       *Sale    `json:"sale,omitempty"`
	FailedStep SagaStep `json:"failed_step,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// PurchaseSaga drives a sale through reserve, payment code, payment
// confirmation and pickup, compensating when a step fails before payment
// is confirmed. It owns only the sequencing; every state write happens in
// the sale service and the stores behind it.
type PurchaseSaga struct {
	sales    *Service
	notifier notify.Publisher
	logger   *zap.Logger
}

// NewPurchaseSaga creates a new PurchaseSaga.
func NewPurchaseSaga(salesService *Service, notifier notify.Publisher, logger *zap.Logger) *PurchaseSaga {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}

	return &PurchaseSaga{
		sales:    salesService,
		notifier: notifier,
		logger:   logger,
	}
}

// Execute runs the full purchase:
//  1. reserve vehicle (creates the sale)
//  2. generate payment code
//  3. confirm payment (marks vehicle SOLD)
//  4. mark picked up
//
// On failure the sale's last durable status is re-read and, when it is
// still cancelable, the sale is canceled and the vehicle released. A sale
// found PAID is never canceled automatically; that condition is reported
// as critical and left for manual reconciliation.
func (g *PurchaseSaga) Execute(ctx context.Context, buyerID, vehicleID string) PurchaseResult {
	sale, err := g.sales.ReserveVehicle(ctx, buyerID, vehicleID)
	if err != nil {
		return g.fail(ctx, nil, StepReserve, err)
	}

	// Each step result is promoted into sale only on success, so the
	// failure path always sees the last state that actually committed.
	next, err := g.sales.GeneratePaymentCode(ctx, sale.ID)
	if err != nil {
		return g.fail(ctx, sale, StepPaymentCode, err)
	}
	sale = next

	next, err = g.sales.ConfirmPayment(ctx, sale.ID)
	if err != nil {
		return g.fail(ctx, sale, StepPayment, err)
	}
	sale = next

	next, err = g.sales.MarkPickedUp(ctx, sale.ID)
	if err != nil {
		return g.fail(ctx, sale, StepPickup, err)
	}
	sale = next

	g.logger.Info("purchase saga completed",
		zap.String("sale_id", sale.ID),
		zap.String("buyer_id", buyerID),
		zap.String("vehicle_id", vehicleID),
	)
	return PurchaseResult{Success: true, Sale: sale}
}

// ExecuteUntilCode runs only the reserve and payment-code steps, for
// checkout flows split across two externally visible calls. Its
// compensation guard is looser than Execute's on purpose: only PICKED_UP
// and CANCELED block cancellation here, matching the states this partial
// flow can actually leave behind.
func (g *PurchaseSaga) ExecuteUntilCode(ctx context.Context, buyerID, vehicleID string) PurchaseResult {
	sale, err := g.sales.ReserveVehicle(ctx, buyerID, vehicleID)
	if err != nil {
		return g.failPartial(ctx, nil, StepReserve, err)
	}

	next, err := g.sales.GeneratePaymentCode(ctx, sale.ID)
	if err != nil {
		return g.failPartial(ctx, sale, StepPaymentCode, err)
	}
	sale = next

	g.logger.Info("partial purchase saga completed",
		zap.String("sale_id", sale.ID),
		zap.String("buyer_id", buyerID),
		zap.String("vehicle_id", vehicleID),
	)
	return PurchaseResult{Success: true, Sale: sale}
}

// fail handles a step failure in the full saga: re-read the durable
// status, cancel when safe, report loudly when not.
func (g *PurchaseSaga) fail(ctx context.Context, sale *Sale, step SagaStep, cause error) PurchaseResult {
	reason := cause.Error()
	result := PurchaseResult{Success: false, Sale: sale, FailedStep: step, Reason: reason}

	if sale == nil || sale.ID == "" {
		// Reservation never committed; nothing to compensate.
		return result
	}

	// The in-memory copy may be stale after a failure; decide on the last
	// durably committed status instead.
	current, err := g.sales.GetSale(sale.ID)
	if err != nil {
		g.reportCompensationFailed(ctx, sale, step, reason, fmt.Sprintf("could not read sale state: %v", err))
		return result
	}
	result.Sale = current

	switch {
	case Cancelable(current.Status):
		canceled, err := g.sales.CancelSale(ctx, current.ID, fmt.Sprintf("SAGA_FAIL: %s", reason))
		if err != nil {
			g.reportCompensationFailed(ctx, current, step, reason, err.Error())
			return result
		}
		result.Sale = canceled

	case current.Status == StatusPaid:
		g.logger.Error("payment confirmed but purchase flow failed; manual intervention required",
			zap.String("sale_id", current.ID),
			zap.String("step", string(step)),
			zap.String("reason", reason),
			zap.Error(ErrCriticalUnrecoverable),
		)
		g.publish(ctx, notify.Event{
			Kind:      notify.KindCriticalUnrecoverable,
			SaleID:    current.ID,
			VehicleID: current.VehicleID,
			Step:      string(step),
			Reason:    reason,
		})
	}

	return result
}

// failPartial is the compensation path for ExecuteUntilCode.
func (g *PurchaseSaga) failPartial(ctx context.Context, sale *Sale, step SagaStep, cause error) PurchaseResult {
	reason := cause.Error()
	result := PurchaseResult{Success: false, Sale: sale, FailedStep: step, Reason: reason}

	if sale == nil || sale.ID == "" {
		return result
	}

	current, err := g.sales.GetSale(sale.ID)
	if err != nil {
		g.reportCompensationFailed(ctx, sale, step, reason, fmt.Sprintf("could not read sale state: %v", err))
		return result
	}
	result.Sale = current

	if current.Status != StatusPickedUp && current.Status != StatusCanceled {
		canceled, err := g.sales.CancelSale(ctx, current.ID, fmt.Sprintf("SAGA_FAIL: %s", reason))
		if err != nil {
			g.reportCompensationFailed(ctx, current, step, reason, err.Error())
			return result
		}
		result.Sale = canceled
	}

	return result
}

// reportCompensationFailed records that rollback itself broke, keeping the
// original failure and the compensation failure distinct so operators can
// reconcile the two causes separately.
func (g *PurchaseSaga) reportCompensationFailed(ctx context.Context, sale *Sale, step SagaStep, originalReason, compensationReason string) {
	g.logger.Error("purchase compensation failed",
		zap.String("sale_id", sale.ID),
		zap.String("step", string(step)),
		zap.String("original_error", originalReason),
		zap.String("compensation_error", compensationReason),
		zap.Error(ErrCompensationFailed),
	)
	g.publish(ctx, notify.Event{
		Kind:      notify.KindCompensationFailed,
		SaleID:    sale.ID,
		VehicleID: sale.VehicleID,
		Step:      string(step),
		Reason:    fmt.Sprintf("original: %s; compensation: %s", originalReason, compensationReason),
	})
}

func (g *PurchaseSaga) publish(ctx context.Context, ev notify.Event) {
	ev.At = g.sales.now()
	if err := g.notifier.Publish(ctx, ev); err != nil {
		g.logger.Warn("failed to publish notification", zap.String("kind", ev.Kind), zap.Error(err))
	}
}
