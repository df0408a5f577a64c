package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"api_dealership/api"
	"api_dealership/internal/buyers"
	"api_dealership/internal/notify"
	"api_dealership/internal/sales"
	"api_dealership/internal/vehicles"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func initRoutesTests() (*gin.Engine, *httptest.Server) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Mock buyer directory: only buyer123 exists.
	buyerMockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buyerID := r.URL.Path[len("/buyers/"):]
		switch buyerID {
		case "buyer123":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"id": "buyer123", "name": "Test Buyer 123"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Buyer not found"))
		}
	}))

	buyerClient := buyers.NewClient(buyerMockServer.URL+"/buyers", 5*time.Second)
	api.InitRoutes2(router, buyerClient, notify.Nop{})

	return router, buyerMockServer
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		buf = bytes.NewBuffer(bodyBytes)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createVehicle(t *testing.T, router *gin.Engine) vehicles.Vehicle {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/vehicles", map[string]interface{}{
		"brand": "Toyota",
		"model": "Corolla",
		"year":  2024,
		"color": "silver",
		"price": 32000.0,
	})
	assert.Equal(t, http.StatusCreated, w.Code, "Expected HTTP 201 Created for vehicle creation")

	var v vehicles.Vehicle
	err := json.Unmarshal(w.Body.Bytes(), &v)
	assert.NoError(t, err, "Expected no error unmarshalling created vehicle")
	assert.NotEmpty(t, v.ID, "Expected vehicle ID to be generated")
	return v
}

// TestPurchaseHappyPath_FullFlow walks a sale through reserve -> payment
// code -> payment -> pickup over HTTP and checks sale and vehicle state at
// each step.
func TestPurchaseHappyPath_FullFlow(t *testing.T) {
	router, buyerMockServer := initRoutesTests()
	defer buyerMockServer.Close()

	vehicle := createVehicle(t, router)
	var saleID string

	t.Run("POST_Reserve", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/sales/reserve", map[string]string{
			"buyer_id":   "buyer123",
			"vehicle_id": vehicle.ID,
		})
		assert.Equal(t, http.StatusCreated, w.Code, "Expected HTTP 201 Created for reservation")

		var sale sales.Sale
		err := json.Unmarshal(w.Body.Bytes(), &sale)
		assert.NoError(t, err)
		assert.NotEmpty(t, sale.ID)
		assert.Equal(t, sales.StatusReserved, sale.Status)
		assert.Equal(t, "buyer123", sale.BuyerID)
		assert.Equal(t, vehicle.ID, sale.VehicleID)
		assert.Equal(t, 1, sale.Version)

		saleID = sale.ID
	})

	if saleID == "" {
		t.Fatal("Sale ID was not successfully generated in POST_Reserve step.")
	}

	t.Run("GET_VehicleIsReserved", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, fmt.Sprintf("/vehicles/%s", vehicle.ID), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var v vehicles.Vehicle
		err := json.Unmarshal(w.Body.Bytes(), &v)
		assert.NoError(t, err)
		assert.Equal(t, vehicles.AvailabilityReserved, v.Availability)
		assert.Equal(t, saleID, v.SaleID)
	})

	t.Run("POST_PaymentCode", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, fmt.Sprintf("/sales/%s/payment-code", saleID), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var sale sales.Sale
		err := json.Unmarshal(w.Body.Bytes(), &sale)
		assert.NoError(t, err)
		assert.Equal(t, sales.StatusCodeGenerated, sale.Status)
		assert.NotEmpty(t, sale.PaymentCode, "Expected a payment code after CODE_GENERATED")
	})

	t.Run("POST_ConfirmPayment", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, fmt.Sprintf("/sales/%s/confirm-payment", saleID), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var sale sales.Sale
		err := json.Unmarshal(w.Body.Bytes(), &sale)
		assert.NoError(t, err)
		assert.Equal(t, sales.StatusPaid, sale.Status)

		wv := doJSON(router, http.MethodGet, fmt.Sprintf("/vehicles/%s", vehicle.ID), nil)
		var v vehicles.Vehicle
		err = json.Unmarshal(wv.Body.Bytes(), &v)
		assert.NoError(t, err)
		assert.Equal(t, vehicles.AvailabilitySold, v.Availability)
	})

	t.Run("POST_Pickup", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, fmt.Sprintf("/sales/%s/pickup", saleID), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var sale sales.Sale
		err := json.Unmarshal(w.Body.Bytes(), &sale)
		assert.NoError(t, err)
		assert.Equal(t, sales.StatusPickedUp, sale.Status)
	})

	t.Run("GET_SearchSales", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/sales?buyer_id=buyer123", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Results  []sales.Sale        `json:"results"`
			Metadata sales.SalesMetadata `json:"metadata"`
		}
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Len(t, response.Results, 1)
		assert.Equal(t, saleID, response.Results[0].ID)
		assert.Equal(t, 1, response.Metadata.Quantity)
		assert.Equal(t, 1, response.Metadata.PickedUp)
	})
}

// TestCheckout_FullSaga runs the whole purchase in one call.
func TestCheckout_FullSaga(t *testing.T) {
	router, buyerMockServer := initRoutesTests()
	defer buyerMockServer.Close()

	vehicle := createVehicle(t, router)

	w := doJSON(router, http.MethodPost, "/sales/checkout", map[string]string{
		"buyer_id":   "buyer123",
		"vehicle_id": vehicle.ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code, "Expected HTTP 201 Created for full checkout")

	var sale sales.Sale
	err := json.Unmarshal(w.Body.Bytes(), &sale)
	assert.NoError(t, err)
	assert.Equal(t, sales.StatusPickedUp, sale.Status)
	assert.NotEmpty(t, sale.PaymentCode)

	wv := doJSON(router, http.MethodGet, fmt.Sprintf("/vehicles/%s", vehicle.ID), nil)
	var v vehicles.Vehicle
	err = json.Unmarshal(wv.Body.Bytes(), &v)
	assert.NoError(t, err)
	assert.Equal(t, vehicles.AvailabilitySold, v.Availability)
}

// TestCheckoutCode_PartialSaga stops after the payment code.
func TestCheckoutCode_PartialSaga(t *testing.T) {
	router, buyerMockServer := initRoutesTests()
	defer buyerMockServer.Close()

	vehicle := createVehicle(t, router)

	w := doJSON(router, http.MethodPost, "/sales/checkout-code", map[string]string{
		"buyer_id":   "buyer123",
		"vehicle_id": vehicle.ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var sale sales.Sale
	err := json.Unmarshal(w.Body.Bytes(), &sale)
	assert.NoError(t, err)
	assert.Equal(t, sales.StatusCodeGenerated, sale.Status)
	assert.NotEmpty(t, sale.PaymentCode)

	wv := doJSON(router, http.MethodGet, fmt.Sprintf("/vehicles/%s", vehicle.ID), nil)
	var v vehicles.Vehicle
	err = json.Unmarshal(wv.Body.Bytes(), &v)
	assert.NoError(t, err)
	assert.Equal(t, vehicles.AvailabilityReserved, v.Availability)
}

func TestReserve_UnknownBuyer(t *testing.T) {
	router, buyerMockServer := initRoutesTests()
	defer buyerMockServer.Close()

	vehicle := createVehicle(t, router)

	w := doJSON(router, http.MethodPost, "/sales/reserve", map[string]string{
		"buyer_id":   "nobody",
		"vehicle_id": vehicle.ID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "Expected HTTP 400 for unknown buyer")

	wv := doJSON(router, http.MethodGet, fmt.Sprintf("/vehicles/%s", vehicle.ID), nil)
	var v vehicles.Vehicle
	err := json.Unmarshal(wv.Body.Bytes(), &v)
	assert.NoError(t, err)
	assert.Equal(t, vehicles.AvailabilityAvailable, v.Availability)
}

func TestReserve_VehicleAlreadyHeld(t *testing.T) {
	router, buyerMockServer := initRoutesTests()
	defer buyerMockServer.Close()

	vehicle := createVehicle(t, router)

	w := doJSON(router, http.MethodPost, "/sales/reserve", map[string]string{
		"buyer_id":   "buyer123",
		"vehicle_id": vehicle.ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/sales/reserve", map[string]string{
		"buyer_id":   "buyer123",
		"vehicle_id": vehicle.ID,
	})
	assert.Equal(t, http.StatusConflict, w.Code, "Expected HTTP 409 for a vehicle already held")
}

func TestCancel_Flow(t *testing.T) {
	router, buyerMockServer := initRoutesTests()
	defer buyerMockServer.Close()

	vehicle := createVehicle(t, router)

	w := doJSON(router, http.MethodPost, "/sales/reserve", map[string]string{
		"buyer_id":   "buyer123",
		"vehicle_id": vehicle.ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var sale sales.Sale
	err := json.Unmarshal(w.Body.Bytes(), &sale)
	assert.NoError(t, err)

	w = doJSON(router, http.MethodPost, fmt.Sprintf("/sales/%s/cancel", sale.ID), map[string]string{
		"reason": "changed my mind",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var canceled sales.Sale
	err = json.Unmarshal(w.Body.Bytes(), &canceled)
	assert.NoError(t, err)
	assert.Equal(t, sales.StatusCanceled, canceled.Status)
	assert.Equal(t, "changed my mind", canceled.CancelReason)

	wv := doJSON(router, http.MethodGet, fmt.Sprintf("/vehicles/%s", vehicle.ID), nil)
	var v vehicles.Vehicle
	err = json.Unmarshal(wv.Body.Bytes(), &v)
	assert.NoError(t, err)
	assert.Equal(t, vehicles.AvailabilityAvailable, v.Availability)

	// Canceling again is rejected.
	w = doJSON(router, http.MethodPost, fmt.Sprintf("/sales/%s/cancel", sale.ID), map[string]string{
		"reason": "again",
	})
	assert.Equal(t, http.StatusConflict, w.Code, "Expected HTTP 409 for double cancel")
}

func TestConfirmPayment_WrongOrder(t *testing.T) {
	router, buyerMockServer := initRoutesTests()
	defer buyerMockServer.Close()

	vehicle := createVehicle(t, router)

	w := doJSON(router, http.MethodPost, "/sales/reserve", map[string]string{
		"buyer_id":   "buyer123",
		"vehicle_id": vehicle.ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var sale sales.Sale
	err := json.Unmarshal(w.Body.Bytes(), &sale)
	assert.NoError(t, err)

	// No payment code yet.
	w = doJSON(router, http.MethodPost, fmt.Sprintf("/sales/%s/confirm-payment", sale.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code, "Expected HTTP 409 for out-of-order payment confirmation")
}

func TestGetSale_NotFound(t *testing.T) {
	router, buyerMockServer := initRoutesTests()
	defer buyerMockServer.Close()

	w := doJSON(router, http.MethodGet, "/sales/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
