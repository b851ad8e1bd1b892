package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestVehicle_CreateDefaults(t *testing.T) {
	f := newFixture(t)
	v, err := f.svc.Vehicles.Create(f.ctx, models.VehicleInput{Make: "Ford", Model: "Focus", Year: 2020, LicensePlate: " ab-123 "})
	require.NoError(t, err)
	assert.Equal(t, "AB-123", v.LicensePlate)
	assert.Equal(t, models.VehicleActive, v.Status)
	assert.Equal(t, "gasoline", v.FuelType)

	_, err = f.svc.Vehicles.Create(f.ctx, models.VehicleInput{Make: "Ford", Model: "Focus", Year: 2020, LicensePlate: "X", Status: models.VehicleMaintenance})
	assertStatus(t, http.StatusBadRequest, err)
}

func TestVehicle_UpdateCannotToggleMaintenance(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, "VH-1")
	_, err := f.svc.Vehicles.Update(f.ctx, v.ID, models.VehicleUpdate{Status: ptr(models.VehicleMaintenance)})
	assertStatus(t, http.StatusBadRequest, err)

	got, err := f.svc.Vehicles.Update(f.ctx, v.ID, models.VehicleUpdate{Mileage: ptr(1200.0), Status: ptr(models.VehicleInactive)})
	require.NoError(t, err)
	assert.Equal(t, 1200.0, got.Mileage)
	assert.Equal(t, models.VehicleInactive, f.vehicleByID(t, v.ID).Status)
}

func TestVehicle_DeleteRefusedWhileAssigned(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, "VH-1")
	d, err := f.svc.Drivers.Create(f.ctx, models.DriverInput{Name: "Ana Silva", LicenseNumber: "L-1", AssignedVehicle: &v.ID})
	require.NoError(t, err)

	assertStatus(t, http.StatusBadRequest, f.svc.Vehicles.Delete(f.ctx, v.ID))
	f.vehicleByID(t, v.ID)

	_, err = f.svc.Drivers.Update(f.ctx, d.ID, models.DriverUpdate{ClearVehicle: true})
	require.NoError(t, err)
	require.NoError(t, f.svc.Vehicles.Delete(f.ctx, v.ID))
	_, err = f.svc.Vehicles.Get(f.ctx, v.ID)
	assertStatus(t, http.StatusNotFound, err)
}

func TestVehicle_Stats(t *testing.T) {
	f := newFixture(t)
	f.vehicle(t, "VH-1")
	_, err := f.svc.Vehicles.Create(f.ctx, models.VehicleInput{Make: "Tesla", Model: "3", Year: 2023, LicensePlate: "VH-2", FuelType: "electric", Mileage: 1000})
	require.NoError(t, err)

	stats, err := f.svc.Vehicles.Stats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.ByFuelType["electric"])
	assert.Equal(t, int64(2), stats.ByStatus["active"])
	assert.Equal(t, 1000.0, stats.TotalMileage)
}

// hookedVehicles runs afterFind once, after the first lookup, and can fail
// status writes.
type hookedVehicles struct {
	db.VehicleCollection
	afterFind func()
	statusErr error
}

func (h *hookedVehicles) FindVehicleByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	v, err := h.VehicleCollection.FindVehicleByID(ctx, id)
	if hook := h.afterFind; hook != nil {
		h.afterFind = nil
		hook()
	}
	return v, err
}

func (h *hookedVehicles) SetVehicleStatus(ctx context.Context, id primitive.ObjectID, status models.VehicleStatus, from ...models.VehicleStatus) error {
	if h.statusErr != nil {
		return h.statusErr
	}
	return h.VehicleCollection.SetVehicleStatus(ctx, id, status, from...)
}

func TestVehicle_UpdateStatusGuardedAgainstMaintenance(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, "VH-1")
	hooked := &hookedVehicles{VehicleCollection: f.store.Vehicles}
	hooked.afterFind = func() { f.maintenance(t, v, models.MaintenanceInProgress) }
	f.store.Vehicles = hooked

	_, err := f.svc.Vehicles.Update(f.ctx, v.ID, models.VehicleUpdate{Status: ptr(models.VehicleInactive), Mileage: ptr(900.0)})
	assertStatus(t, http.StatusBadRequest, err)

	got := f.vehicleByID(t, v.ID)
	assert.Equal(t, models.VehicleMaintenance, got.Status)
	assert.Zero(t, got.Mileage)
}

func TestVehicle_UpdateFieldsKeepStatus(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, "VH-1")
	f.store.Vehicles = &hookedVehicles{VehicleCollection: f.store.Vehicles, statusErr: errors.New("status write not expected")}

	got, err := f.svc.Vehicles.Update(f.ctx, v.ID, models.VehicleUpdate{Notes: ptr("new tyres"), Status: ptr(models.VehicleActive)})
	require.NoError(t, err)
	assert.Equal(t, "new tyres", got.Notes)
	assert.Equal(t, models.VehicleActive, got.Status)
}
