package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"api_dealership/internal/vehicles"
)

// vehiclesHandler holds the vehicle service and implements HTTP handlers
// for catalog operations.
type vehiclesHandler struct {
	vehicleService *vehicles.Service
	logger         *zap.Logger
}

// NewVehiclesHandler creates a new vehicles handler.
func NewVehiclesHandler(vehicleService *vehicles.Service, logger *zap.Logger) *vehiclesHandler {
	return &vehiclesHandler{
		vehicleService: vehicleService,
		logger:         logger,
	}
}

// handleCreateVehicle handles the POST /vehicles endpoint.
func (h *vehiclesHandler) handleCreateVehicle(ctx *gin.Context) {
	var req vehicles.CreateVehicleInput

	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	vehicle, err := h.vehicleService.CreateVehicle(req)
	if err != nil {
		h.logger.Error("failed to create vehicle", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, vehicle)
}

// handleUpdateVehicle handles the PATCH /vehicles/:id endpoint.
func (h *vehiclesHandler) handleUpdateVehicle(ctx *gin.Context) {
	vehicleID := ctx.Param("id")
	var req vehicles.UpdateVehicleInput

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	vehicle, err := h.vehicleService.UpdateVehicle(vehicleID, req)
	if err != nil {
		switch err {
		case vehicles.ErrNotFound:
			ctx.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
		case vehicles.ErrInvalidTransition:
			ctx.JSON(http.StatusConflict, gin.H{"error": "vehicle already sold"})
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	ctx.JSON(http.StatusOK, vehicle)
}

// handleGetVehicle handles the GET /vehicles/:id endpoint.
func (h *vehiclesHandler) handleGetVehicle(ctx *gin.Context) {
	vehicle, err := h.vehicleService.GetVehicle(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
		return
	}

	ctx.JSON(http.StatusOK, vehicle)
}

// handleListVehicles handles the GET /vehicles endpoint with optional
// availability filter and price ordering.
func (h *vehiclesHandler) handleListVehicles(ctx *gin.Context) {
	availability := vehicles.Availability(ctx.Query("availability"))
	order := ctx.DefaultQuery("order", "asc")

	result, err := h.vehicleService.ListVehicles(availability, order)
	if err != nil {
		h.logger.Error("error listing vehicles",
			zap.String("availability_filter", string(availability)),
			zap.String("order", order),
			zap.Error(err),
		)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"results": result})
}
