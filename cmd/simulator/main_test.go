package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/aivodrive/internal/alerts"
	"github.com/ukydev/aivodrive/internal/auth"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/db/memdb"
	"github.com/ukydev/aivodrive/internal/events"
	"github.com/ukydev/aivodrive/internal/handlers"
	"github.com/ukydev/aivodrive/internal/models"
	"github.com/ukydev/aivodrive/internal/seed"
	"github.com/ukydev/aivodrive/internal/service"
)

// newTestAPI serves the real router over a seeded in-memory store.
func newTestAPI(t *testing.T) (*httptest.Server, *db.Store) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := memdb.NewStore()
	authService, err := auth.NewService("simulator-test-secret", time.Hour)
	require.NoError(t, err)

	gen := alerts.NewGenerator(store, events.Noop{}, logger)
	_, err = seed.Run(context.Background(), store, authService, gen, logger)
	require.NoError(t, err)

	srv := httptest.NewServer(handlers.NewRouter(handlers.RouterConfig{
		Store:      store,
		Services:   service.New(store, authService, events.Noop{}, logger),
		Auth:       authService,
		Logger:     logger,
		CORSOrigin: "*",
	}))
	t.Cleanup(srv.Close)
	return srv, store
}

func countTrips(t *testing.T, store *db.Store, status models.TripStatus) int64 {
	t.Helper()
	_, total, err := store.Trips.FindTrips(context.Background(), db.TripFilter{Status: status}, db.ListOptions{})
	require.NoError(t, err)
	return total
}

func TestHaversineKm(t *testing.T) {
	springfield := Location{Lat: 39.7817, Lon: -89.6501}
	peoria := Location{Lat: 40.6936, Lon: -89.5890}

	assert.InDelta(t, 101.5, haversineKm(springfield, peoria), 2)
	assert.Zero(t, haversineKm(springfield, springfield))
}

func TestPlanTripPicksDistinctStops(t *testing.T) {
	sim := &Simulator{rng: rand.New(rand.NewSource(7))}
	for i := 0; i < 20; i++ {
		plan := sim.planTrip("v", "d")
		origin := plan["origin"].(Place)
		dest := plan["destination"].(Place)
		assert.NotEqual(t, origin.Address, dest.Address)
		assert.Positive(t, plan["estimatedDistance"].(float64))
		assert.Contains(t, purposes, plan["purpose"])
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv, _ := newTestAPI(t)
	client := NewClient(srv.URL + "/api")

	err := client.Login(context.Background(), "dispatcher@aivodrive.com", "wrong-password")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.Empty(t, client.token)
}

func TestRoundCompletesTrips(t *testing.T) {
	srv, store := newTestAPI(t)
	ctx := context.Background()

	client := NewClient(srv.URL + "/api")
	require.NoError(t, client.Login(ctx, "dispatcher@aivodrive.com", seed.DefaultPassword))
	require.NotEmpty(t, client.token)

	available, err := client.availableDrivers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, available)
	before := countTrips(t, store, models.TripCompleted)

	sim := &Simulator{client: client, rng: rand.New(rand.NewSource(1)), maxTrips: 1}
	n, err := sim.Round(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, before+1, countTrips(t, store, models.TripCompleted))

	// the driver is released when the trip completes
	after, err := client.availableDrivers(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(available))
}

func TestRoundWithoutPairs(t *testing.T) {
	srv, _ := newTestAPI(t)
	ctx := context.Background()
	client := NewClient(srv.URL + "/api")
	require.NoError(t, client.Login(ctx, "dispatcher@aivodrive.com", seed.DefaultPassword))

	sim := &Simulator{client: client, rng: rand.New(rand.NewSource(1)), maxTrips: 0}
	// drain every available driver into a running trip
	drivers, err := client.availableDrivers(ctx)
	require.NoError(t, err)
	vehicles, err := client.activeVehicles(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, vehicles)
	for _, d := range drivers {
		plan := sim.planTrip(vehicles[0].ID, d.ID)
		plan["status"] = "in_progress"
		require.NoError(t, client.do(ctx, http.MethodPost, "/trips", plan, nil))
	}

	n, err := sim.Round(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRoundRequiresLogin(t *testing.T) {
	srv, _ := newTestAPI(t)
	sim := &Simulator{client: NewClient(srv.URL + "/api"), rng: rand.New(rand.NewSource(1))}

	_, err := sim.Round(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}
