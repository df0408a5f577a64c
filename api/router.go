package api

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"api_dealership/internal/buyers"
	"api_dealership/internal/notify"
	"api_dealership/internal/sales"
	"api_dealership/internal/vehicles"
)

// InitRoutes registers all dealership endpoints on the given Gin engine
// with collaborators built from the environment: BUYERS_API_URL for the
// buyer directory and AMQP_URL (optional) for the notification channel.
func InitRoutes(e *gin.Engine) {
	buyersURL := os.Getenv("BUYERS_API_URL")
	if buyersURL == "" {
		buyersURL = "http://localhost:8080/buyers"
	}

	logger, _ := zap.NewProduction()

	var notifier notify.Publisher = notify.Nop{}
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		_, ch, err := notify.SetupConn(amqpURL)
		if err != nil {
			// Notifications are best-effort; run without them.
			logger.Warn("could not connect notification channel", zap.Error(err))
		} else {
			notifier = notify.NewAMQPPublisher(ch)
		}
	}

	buyerClient := buyers.NewClient(buyersURL, 5*time.Second)

	InitRoutes2(e, buyerClient, notifier)
}

// InitRoutes2 registers the same endpoints with explicit collaborators,
// so tests can substitute a fake buyer directory and notifier.
func InitRoutes2(e *gin.Engine, buyerDirectory sales.BuyerDirectory, notifier notify.Publisher) {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	vehicleStorage := vehicles.NewLocalStorage()
	vehicleService := vehicles.NewService(vehicleStorage, logger)

	salesStorage := sales.NewLocalStorage()
	salesService := sales.NewService(salesStorage, vehicleService, buyerDirectory, notifier, logger)
	saga := sales.NewPurchaseSaga(salesService, notifier, logger)
	reconciler := sales.NewReconciler(salesStorage, vehicleService, notifier, logger)

	vehiclesHandler := NewVehiclesHandler(vehicleService, logger)
	salesHandler := NewSalesHandler(salesService, saga, reconciler, logger)

	e.POST("/vehicles", vehiclesHandler.handleCreateVehicle)
	e.PATCH("/vehicles/:id", vehiclesHandler.handleUpdateVehicle)
	e.GET("/vehicles/:id", vehiclesHandler.handleGetVehicle)
	e.GET("/vehicles", vehiclesHandler.handleListVehicles)

	e.POST("/sales/reserve", salesHandler.handleReserve)
	e.POST("/sales/:id/payment-code", salesHandler.handleGeneratePaymentCode)
	e.POST("/sales/:id/confirm-payment", salesHandler.handleConfirmPayment)
	e.POST("/sales/:id/pickup", salesHandler.handlePickup)
	e.POST("/sales/:id/cancel", salesHandler.handleCancel)
	e.GET("/sales/:id", salesHandler.handleGetSale)
	e.GET("/sales", salesHandler.handleSearchSales)

	e.POST("/sales/checkout", salesHandler.handleCheckout)
	e.POST("/sales/checkout-code", salesHandler.handleCheckoutCode)

	e.POST("/admin/reconcile", salesHandler.handleReconcile)

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
}
