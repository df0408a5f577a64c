package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"api_dealership/internal/sales"
	"api_dealership/internal/vehicles"
)

// salesHandler holds the sale service and saga and implements HTTP
// handlers for the purchase flow.
type salesHandler struct {
	salesService *sales.Service
	saga         *sales.PurchaseSaga
	reconciler   *sales.Reconciler
	logger       *zap.Logger
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(salesService *sales.Service, saga *sales.PurchaseSaga, reconciler *sales.Reconciler, logger *zap.Logger) *salesHandler {
	return &salesHandler{
		salesService: salesService,
		saga:         saga,
		reconciler:   reconciler,
		logger:       logger,
	}
}

type purchaseRequest struct {
	BuyerID   string `json:"buyer_id"`
	VehicleID string `json:"vehicle_id"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// handleReserve handles POST /sales/reserve.
func (h *salesHandler) handleReserve(ctx *gin.Context) {
	var req purchaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	sale, err := h.salesService.ReserveVehicle(ctx.Request.Context(), req.BuyerID, req.VehicleID)
	if err != nil {
		h.logger.Error("failed to reserve vehicle",
			zap.String("buyer_id", req.BuyerID),
			zap.String("vehicle_id", req.VehicleID),
			zap.Error(err),
		)
		h.writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, sale)
}

// handleGeneratePaymentCode handles POST /sales/:id/payment-code.
func (h *salesHandler) handleGeneratePaymentCode(ctx *gin.Context) {
	sale, err := h.salesService.GeneratePaymentCode(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sale)
}

// handleConfirmPayment handles POST /sales/:id/confirm-payment. Payment
// confirmation is a trusted external event delivered by the caller.
func (h *salesHandler) handleConfirmPayment(ctx *gin.Context) {
	sale, err := h.salesService.ConfirmPayment(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sale)
}

// handlePickup handles POST /sales/:id/pickup.
func (h *salesHandler) handlePickup(ctx *gin.Context) {
	sale, err := h.salesService.MarkPickedUp(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sale)
}

// handleCancel handles POST /sales/:id/cancel.
func (h *salesHandler) handleCancel(ctx *gin.Context) {
	var req cancelRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
			return
		}
	}

	sale, err := h.salesService.CancelSale(ctx.Request.Context(), ctx.Param("id"), req.Reason)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sale)
}

// handleGetSale handles GET /sales/:id.
func (h *salesHandler) handleGetSale(ctx *gin.Context) {
	sale, err := h.salesService.GetSale(ctx.Param("id"))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sale)
}

// handleSearchSales handles GET /sales with buyer and status filters.
func (h *salesHandler) handleSearchSales(ctx *gin.Context) {
	buyerID := ctx.Query("buyer_id")
	status := sales.Status(ctx.Query("status"))

	results, metadata, err := h.salesService.SearchSales(buyerID, status)
	if err != nil {
		h.logger.Error("error searching sales",
			zap.String("buyer_id_filter", buyerID),
			zap.String("status_filter", string(status)),
			zap.Error(err),
		)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"results": results, "metadata": metadata})
}

// handleCheckout handles POST /sales/checkout: the full purchase saga in
// one call.
func (h *salesHandler) handleCheckout(ctx *gin.Context) {
	var req purchaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	result := h.saga.Execute(ctx.Request.Context(), req.BuyerID, req.VehicleID)
	if !result.Success {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":       "purchase failed",
			"failed_step": result.FailedStep,
			"reason":      result.Reason,
			"sale":        result.Sale,
		})
		return
	}

	ctx.JSON(http.StatusCreated, result.Sale)
}

// handleCheckoutCode handles POST /sales/checkout-code: reserve plus
// payment code, leaving payment and pickup to later calls.
func (h *salesHandler) handleCheckoutCode(ctx *gin.Context) {
	var req purchaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	result := h.saga.ExecuteUntilCode(ctx.Request.Context(), req.BuyerID, req.VehicleID)
	if !result.Success {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":       "checkout failed",
			"failed_step": result.FailedStep,
			"reason":      result.Reason,
			"sale":        result.Sale,
		})
		return
	}

	ctx.JSON(http.StatusCreated, result.Sale)
}

// handleReconcile handles POST /admin/reconcile: one repair pass over the
// inventory.
func (h *salesHandler) handleReconcile(ctx *gin.Context) {
	released, err := h.reconciler.Run(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"released": released})
}

// writeError maps service errors onto HTTP statuses.
func (h *salesHandler) writeError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, sales.ErrNotFound) || errors.Is(err, vehicles.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, sales.ErrBuyerNotFound):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, vehicles.ErrUnavailable):
		ctx.JSON(http.StatusConflict, gin.H{"error": "vehicle not available"})
	case errors.Is(err, sales.ErrAlreadyCanceled):
		ctx.JSON(http.StatusConflict, gin.H{"error": "sale already canceled"})
	case errors.Is(err, sales.ErrInvalidTransition) || errors.Is(err, vehicles.ErrInvalidTransition):
		ctx.JSON(http.StatusConflict, gin.H{"error": "invalid status transition"})
	case errors.Is(err, sales.ErrStaleState):
		ctx.JSON(http.StatusConflict, gin.H{"error": "sale changed concurrently, retry"})
	case errors.Is(err, sales.ErrCompensationFailed):
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
