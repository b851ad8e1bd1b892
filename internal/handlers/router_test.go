package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/aivodrive/internal/alerts"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/db/memdb"
	"github.com/ukydev/aivodrive/internal/events"
	"github.com/ukydev/aivodrive/internal/middleware"
	"github.com/ukydev/aivodrive/internal/models"
	"github.com/ukydev/aivodrive/internal/response"
	"github.com/ukydev/aivodrive/internal/seed"
	"github.com/ukydev/aivodrive/internal/service"
)

type apiFixture struct {
	t       *testing.T
	store   *db.Store
	handler http.Handler
}

// newAPIFixture seeds an in-memory store and serves the full router over it.
func newAPIFixture(t *testing.T, limiter *middleware.RateLimiter) *apiFixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := memdb.NewStore()
	authService := newTestAuthService(t)

	gen := alerts.NewGenerator(store, events.Noop{}, logger)
	_, err := seed.Run(context.Background(), store, authService, gen, logger)
	require.NoError(t, err)

	handler := NewRouter(RouterConfig{
		Store:        store,
		Services:     service.New(store, authService, events.Noop{}, logger),
		Auth:         authService,
		LoginLimiter: limiter,
		Logger:       logger,
		CORSOrigin:   "*",
	})
	return &apiFixture{t: t, store: store, handler: handler}
}

func (f *apiFixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(f.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

// expect asserts the status and decodes the envelope payload into out.
func (f *apiFixture) expect(w *httptest.ResponseRecorder, status int, out interface{}) envelope {
	f.t.Helper()
	require.Equal(f.t, status, w.Code, w.Body.String())
	env := decodeEnvelope(f.t, w)
	if out != nil {
		require.NoError(f.t, json.Unmarshal(env.Data, out))
	}
	return env
}

func (f *apiFixture) login(email, password string) string {
	f.t.Helper()
	var data models.LoginResponse
	f.expect(f.do(http.MethodPost, "/api/auth/login", "", models.LoginRequest{Email: email, Password: password}), http.StatusOK, &data)
	require.NotEmpty(f.t, data.Token)
	return data.Token
}

func (f *apiFixture) createVehicle(token, plate string) models.Vehicle {
	f.t.Helper()
	var v models.Vehicle
	f.expect(f.do(http.MethodPost, "/api/vehicles", token, map[string]interface{}{
		"make":         "Toyota",
		"model":        "Hiace",
		"year":         2022,
		"licensePlate": plate,
		"type":         "van",
		"fuelType":     "diesel",
		"mileage":      1000,
	}), http.StatusCreated, &v)
	return v
}

func (f *apiFixture) createDriver(token string, body map[string]interface{}) models.Driver {
	f.t.Helper()
	if _, ok := body["licenseExpiry"]; !ok {
		body["licenseExpiry"] = time.Now().AddDate(2, 0, 0).Format(time.RFC3339)
	}
	var d models.Driver
	f.expect(f.do(http.MethodPost, "/api/drivers", token, body), http.StatusCreated, &d)
	return d
}

func (f *apiFixture) createTrip(token string, v models.Vehicle, d models.Driver) models.Trip {
	f.t.Helper()
	var trip models.Trip
	f.expect(f.do(http.MethodPost, "/api/trips", token, map[string]interface{}{
		"vehicleId":         v.ID.Hex(),
		"driverId":          d.ID.Hex(),
		"origin":            map[string]interface{}{"address": "Depot, 1 Harbour Rd"},
		"destination":       map[string]interface{}{"address": "Client site, 9 Mill Lane"},
		"startTime":         time.Now().Add(time.Hour).Format(time.RFC3339),
		"estimatedDistance": 40,
		"purpose":           "delivery",
	}), http.StatusCreated, &trip)
	return trip
}

func (f *apiFixture) driver(token string, id string) models.Driver {
	f.t.Helper()
	var d models.Driver
	f.expect(f.do(http.MethodGet, "/api/drivers/"+id, token, nil), http.StatusOK, &d)
	return d
}

func TestRouter_TripLifecycleScenario(t *testing.T) {
	f := newAPIFixture(t, nil)
	admin := f.login("admin@aivodrive.com", seed.DefaultPassword)

	v := f.createVehicle(admin, "SCN-0042")
	d := f.createDriver(admin, map[string]interface{}{"name": "Scenario Driver", "licenseNumber": "SCN-LIC-42"})
	require.Equal(t, models.DriverAvailable, d.Status)

	trip := f.createTrip(admin, v, d)
	assert.Equal(t, models.TripScheduled, trip.Status)
	assert.Equal(t, models.DriverAvailable, f.driver(admin, d.ID.Hex()).Status)

	path := "/api/trips/" + trip.ID.Hex()
	f.expect(f.do(http.MethodPut, path, admin, map[string]interface{}{"status": "in_progress"}), http.StatusOK, &trip)
	assert.Equal(t, models.TripInProgress, trip.Status)
	assert.Equal(t, models.DriverOnTrip, f.driver(admin, d.ID.Hex()).Status)

	f.expect(f.do(http.MethodPut, path, admin, map[string]interface{}{"status": "completed", "actualDistance": 42}), http.StatusOK, &trip)
	assert.Equal(t, models.TripCompleted, trip.Status)
	assert.Equal(t, 42.0, trip.ActualDistance)

	after := f.driver(admin, d.ID.Hex())
	assert.Equal(t, models.DriverAvailable, after.Status)
	assert.Equal(t, 1, after.TotalTrips)
	assert.Equal(t, 42.0, after.TotalDistance)
}

func TestRouter_StartTripWithBusyDriver(t *testing.T) {
	f := newAPIFixture(t, nil)
	admin := f.login("admin@aivodrive.com", seed.DefaultPassword)

	v1 := f.createVehicle(admin, "BSY-0001")
	v2 := f.createVehicle(admin, "BSY-0002")
	d := f.createDriver(admin, map[string]interface{}{"name": "Busy Driver", "licenseNumber": "BSY-LIC-1"})

	first := f.createTrip(admin, v1, d)
	second := f.createTrip(admin, v2, d)
	f.expect(f.do(http.MethodPut, "/api/trips/"+first.ID.Hex(), admin, map[string]interface{}{"status": "in_progress"}), http.StatusOK, nil)

	env := f.expect(f.do(http.MethodPut, "/api/trips/"+second.ID.Hex(), admin, map[string]interface{}{"status": "in_progress"}), http.StatusBadRequest, nil)
	assert.False(t, env.Success)

	var unchanged models.Trip
	f.expect(f.do(http.MethodGet, "/api/trips/"+second.ID.Hex(), admin, nil), http.StatusOK, &unchanged)
	assert.Equal(t, models.TripScheduled, unchanged.Status)
	assert.Equal(t, models.DriverOnTrip, f.driver(admin, d.ID.Hex()).Status)
}

func TestRouter_DriverRoleGate(t *testing.T) {
	f := newAPIFixture(t, nil)
	admin := f.login("admin@aivodrive.com", seed.DefaultPassword)

	v := f.createVehicle(admin, "DRV-0001")
	d := f.createDriver(admin, map[string]interface{}{
		"name":          "Rita Road",
		"licenseNumber": "DRV-LIC-1",
		"email":         "rita@aivodrive.com",
		"password":      "password123",
	})
	trip := f.createTrip(admin, v, d)
	rita := f.login("rita@aivodrive.com", "password123")
	path := "/api/trips/" + trip.ID.Hex()

	// field outside the allowed set
	env := f.expect(f.do(http.MethodPut, path, rita, map[string]interface{}{
		"status":    "in_progress",
		"vehicleId": v.ID.Hex(),
	}), http.StatusBadRequest, nil)
	assert.Contains(t, env.Message, "vehicleId")

	// skipping in_progress
	f.expect(f.do(http.MethodPut, path, rita, map[string]interface{}{"status": "completed"}), http.StatusBadRequest, nil)

	// own trip lifecycle
	var got models.Trip
	f.expect(f.do(http.MethodPut, path, rita, map[string]interface{}{"status": "in_progress"}), http.StatusOK, &got)
	assert.Equal(t, models.TripInProgress, got.Status)
	f.expect(f.do(http.MethodPut, path, rita, map[string]interface{}{
		"status":         "completed",
		"actualDistance": 12.5,
		"notes":          "Delivered at the back door",
	}), http.StatusOK, &got)
	assert.Equal(t, models.TripCompleted, got.Status)

	// sees only own trips
	var trips []models.Trip
	env = f.expect(f.do(http.MethodGet, "/api/trips", rita, nil), http.StatusOK, &trips)
	require.Len(t, trips, 1)
	assert.Equal(t, trip.ID, trips[0].ID)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(1), env.Pagination.Total)

	// admin-only routes
	env = f.expect(f.do(http.MethodGet, "/api/drivers", rita, nil), http.StatusForbidden, nil)
	assert.Equal(t, "Insufficient permissions", env.Message)
	f.expect(f.do(http.MethodDelete, path, rita, nil), http.StatusForbidden, nil)
}

func TestRouter_Authentication(t *testing.T) {
	f := newAPIFixture(t, nil)

	env := f.expect(f.do(http.MethodGet, "/api/vehicles", "", nil), http.StatusUnauthorized, nil)
	assert.Equal(t, "Not authenticated, no token provided", env.Message)

	env = f.expect(f.do(http.MethodGet, "/api/vehicles", "not.a.jwt", nil), http.StatusUnauthorized, nil)
	assert.Equal(t, "Not authenticated, invalid token", env.Message)

	f.expect(f.do(http.MethodPost, "/api/auth/login", "", models.LoginRequest{
		Email:    "admin@aivodrive.com",
		Password: "wrong-password",
	}), http.StatusUnauthorized, nil)

	dispatcher := f.login("dispatcher@aivodrive.com", seed.DefaultPassword)
	f.expect(f.do(http.MethodGet, "/api/alerts", dispatcher, nil), http.StatusForbidden, nil)
	f.expect(f.do(http.MethodGet, "/api/reports/daily-summary", dispatcher, nil), http.StatusForbidden, nil)

	var vehicles []models.Vehicle
	env = f.expect(f.do(http.MethodGet, "/api/vehicles?limit=2", dispatcher, nil), http.StatusOK, &vehicles)
	assert.Len(t, vehicles, 2)
	assert.Equal(t, &response.Pagination{Page: 1, Limit: 2, Total: 5, Pages: 3}, env.Pagination)

	var profile models.User
	f.expect(f.do(http.MethodGet, "/api/auth/profile", dispatcher, nil), http.StatusOK, &profile)
	assert.Equal(t, "dispatcher@aivodrive.com", profile.Email)
	assert.Equal(t, models.RoleDispatcher, profile.Role)
}

func TestRouter_AssignmentAndDeletion(t *testing.T) {
	f := newAPIFixture(t, nil)
	admin := f.login("admin@aivodrive.com", seed.DefaultPassword)

	v := f.createVehicle(admin, "ASG-0001")
	d := f.createDriver(admin, map[string]interface{}{
		"name":            "Assigned Driver",
		"licenseNumber":   "ASG-LIC-1",
		"assignedVehicle": v.ID.Hex(),
	})
	require.NotNil(t, d.AssignedVehicle)

	env := f.expect(f.do(http.MethodDelete, "/api/vehicles/"+v.ID.Hex(), admin, nil), http.StatusBadRequest, nil)
	assert.False(t, env.Success)
	f.expect(f.do(http.MethodGet, "/api/vehicles/"+v.ID.Hex(), admin, nil), http.StatusOK, &v)
	require.NotNil(t, v.CurrentDriver)

	f.expect(f.do(http.MethodDelete, "/api/drivers/"+d.ID.Hex(), admin, nil), http.StatusOK, nil)
	f.expect(f.do(http.MethodGet, "/api/vehicles/"+v.ID.Hex(), admin, nil), http.StatusOK, &v)
	assert.Nil(t, v.CurrentDriver)

	env = f.expect(f.do(http.MethodDelete, "/api/drivers/"+d.ID.Hex(), admin, nil), http.StatusNotFound, nil)
	assert.Equal(t, "Driver not found", env.Message)

	f.expect(f.do(http.MethodDelete, "/api/vehicles/"+v.ID.Hex(), admin, nil), http.StatusOK, nil)
}

func TestRouter_ErrorTaxonomy(t *testing.T) {
	f := newAPIFixture(t, nil)
	admin := f.login("admin@aivodrive.com", seed.DefaultPassword)

	env := f.expect(f.do(http.MethodGet, "/api/vehicles/not-an-id", admin, nil), http.StatusNotFound, nil)
	assert.Equal(t, "Vehicle not found", env.Message)

	env = f.expect(f.do(http.MethodPost, "/api/vehicles", admin, map[string]interface{}{
		"make":         "Ford",
		"model":        "Transit",
		"year":         2021,
		"licensePlate": "AIV-1001",
	}), http.StatusBadRequest, nil)
	assert.Equal(t, "licensePlate already exists", env.Message)

	env = f.expect(f.do(http.MethodPost, "/api/vehicles", admin, map[string]interface{}{"make": "Ford"}), http.StatusBadRequest, nil)
	assert.Contains(t, env.Message, "model is required")

	f.expect(f.do(http.MethodPost, "/api/vehicles", admin, "{not json"), http.StatusBadRequest, nil)

	env = f.expect(f.do(http.MethodGet, "/api/nowhere", admin, nil), http.StatusNotFound, nil)
	assert.Equal(t, "Route not found", env.Message)

	f.expect(f.do(http.MethodPatch, "/api/vehicles", admin, nil), http.StatusMethodNotAllowed, nil)
}

func TestRouter_WrongMethodIs405(t *testing.T) {
	f := newAPIFixture(t, nil)
	admin := f.login("admin@aivodrive.com", seed.DefaultPassword)
	id := "507f1f77bcf86cd799439011"

	cases := []struct {
		method, path, token string
	}{
		{http.MethodGet, "/api/auth/login", ""},
		{http.MethodPatch, "/api/vehicles", admin},
		{http.MethodPatch, "/api/vehicles/" + id, admin},
		{http.MethodPost, "/api/trips/" + id, admin},
		{http.MethodPost, "/api/reports/daily-summary", admin},
		{http.MethodDelete, "/api/auth/profile", ""},
		{http.MethodPost, "/health", ""},
	}
	for _, c := range cases {
		w := f.do(c.method, c.path, c.token, nil)
		if assert.Equal(t, http.StatusMethodNotAllowed, w.Code, "%s %s", c.method, c.path) {
			assert.Equal(t, "Method not allowed", decodeEnvelope(t, w).Message)
		}
	}

	env := f.expect(f.do(http.MethodGet, "/api/vehicles/"+id+"/extra", admin, nil), http.StatusNotFound, nil)
	assert.Equal(t, "Route not found", env.Message)
	f.expect(f.do(http.MethodGet, "/api/vehicles", "", nil), http.StatusUnauthorized, nil)
}

func TestRouter_FuelTotalCostRoundTrip(t *testing.T) {
	f := newAPIFixture(t, nil)
	admin := f.login("admin@aivodrive.com", seed.DefaultPassword)
	v := f.createVehicle(admin, "FUL-0001")

	var created models.Fuel
	f.expect(f.do(http.MethodPost, "/api/fuel", admin, map[string]interface{}{
		"vehicleId":  v.ID.Hex(),
		"fuelAmount": 40,
		"fuelPrice":  1.5,
		"odometer":   1400,
	}), http.StatusCreated, &created)

	var read models.Fuel
	f.expect(f.do(http.MethodGet, "/api/fuel/"+created.ID.Hex(), admin, nil), http.StatusOK, &read)
	assert.Equal(t, 60.0, read.TotalCost)
	assert.Equal(t, 1000.0, read.PreviousOdometer)

	var report []service.VehicleEfficiency
	f.expect(f.do(http.MethodGet, "/api/fuel/efficiency-report", admin, nil), http.StatusOK, &report)
	var found bool
	for _, row := range report {
		if row.VehicleID == v.ID {
			found = true
			assert.Equal(t, 10.0, row.KmPerLiter)
		}
	}
	assert.True(t, found)
}

func TestRouter_AlertsAndReports(t *testing.T) {
	f := newAPIFixture(t, nil)
	admin := f.login("admin@aivodrive.com", seed.DefaultPassword)

	var count map[string]int64
	f.expect(f.do(http.MethodGet, "/api/alerts/unread/count", admin, nil), http.StatusOK, &count)
	require.Greater(t, count["count"], int64(0))

	var list []models.Alert
	f.expect(f.do(http.MethodGet, "/api/alerts?limit=1", admin, nil), http.StatusOK, &list)
	require.Len(t, list, 1)

	var read models.Alert
	f.expect(f.do(http.MethodPut, fmt.Sprintf("/api/alerts/%s/read", list[0].ID.Hex()), admin, nil), http.StatusOK, &read)
	assert.True(t, read.IsRead)
	assert.NotNil(t, read.ReadAt)

	var after map[string]int64
	f.expect(f.do(http.MethodGet, "/api/alerts/unread/count", admin, nil), http.StatusOK, &after)
	assert.Equal(t, count["count"]-1, after["count"])

	f.expect(f.do(http.MethodGet, "/api/reports/daily-summary?date=2024-03-01", admin, nil), http.StatusOK, nil)
	f.expect(f.do(http.MethodGet, "/api/reports/maintenance-due?days=90", admin, nil), http.StatusOK, nil)
	f.expect(f.do(http.MethodGet, "/api/reports/maintenance-due?days=0", admin, nil), http.StatusBadRequest, nil)
	f.expect(f.do(http.MethodGet, "/api/reports/fleet-performance", admin, nil), http.StatusOK, nil)
}

func TestRouter_HealthAndPreflight(t *testing.T) {
	f := newAPIFixture(t, nil)

	var status map[string]string
	w := f.do(http.MethodGet, "/health", "", nil)
	f.expect(w, http.StatusOK, &status)
	assert.Equal(t, "ok", status["status"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodOptions, "/api/trips", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_LoginRateLimit(t *testing.T) {
	f := newAPIFixture(t, middleware.NewRateLimiter(1, 2))
	creds := models.LoginRequest{Email: "admin@aivodrive.com", Password: "wrong-password"}

	f.expect(f.do(http.MethodPost, "/api/auth/login", "", creds), http.StatusUnauthorized, nil)
	f.expect(f.do(http.MethodPost, "/api/auth/login", "", creds), http.StatusUnauthorized, nil)
	w := f.do(http.MethodPost, "/api/auth/login", "", creds)
	f.expect(w, http.StatusTooManyRequests, nil)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
