package service

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
)

func TestDriver_CreateWithAccountAndVehicle(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, "DR-1")

	d, err := f.svc.Drivers.Create(f.ctx, models.DriverInput{
		Name:            "Ana Silva",
		Email:           "ana@example.com",
		Password:        "password123",
		LicenseNumber:   " L-1 ",
		LicenseExpiry:   time.Now().AddDate(1, 0, 0),
		AssignedVehicle: &v.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "L-1", d.LicenseNumber)
	assert.Equal(t, models.DriverAvailable, d.Status)

	user, err := f.store.Users.FindUserByEmail(f.ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDriver, user.Role)
	assert.Equal(t, "hashed:password123", user.PasswordHash)
	assert.Equal(t, user.ID, *d.User)

	got := f.vehicleByID(t, v.ID)
	require.NotNil(t, got.CurrentDriver)
	assert.Equal(t, d.VehicleRef(), *got.CurrentDriver)
}

func TestDriver_CreateEmailNeedsPassword(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Drivers.Create(f.ctx, models.DriverInput{Name: "Ana", Email: "ana@example.com", LicenseNumber: "L-1"})
	assertStatus(t, http.StatusBadRequest, err)
}

func TestDriver_CreateRollsBackOnTakenVehicle(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, "DR-1")
	_, err := f.svc.Drivers.Create(f.ctx, models.DriverInput{Name: "Ana Silva", LicenseNumber: "L-1", AssignedVehicle: &v.ID})
	require.NoError(t, err)

	_, err = f.svc.Drivers.Create(f.ctx, models.DriverInput{
		Name:            "Bo Chen",
		Email:           "bo@example.com",
		Password:        "password123",
		LicenseNumber:   "L-2",
		AssignedVehicle: &v.ID,
	})
	assertStatus(t, http.StatusBadRequest, err)
	assert.Equal(t, "Vehicle is already assigned to another driver", err.Error())

	_, total, err := f.store.Drivers.FindDrivers(f.ctx, db.DriverFilter{}, db.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	_, err = f.store.Users.FindUserByEmail(f.ctx, "bo@example.com")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestDriver_DuplicateLicence(t *testing.T) {
	f := newFixture(t)
	f.driver(t, "Ana Silva", "L-1")
	_, err := f.svc.Drivers.Create(f.ctx, models.DriverInput{Name: "Bo Chen", LicenseNumber: "L-1"})
	var dup *db.DuplicateKeyError
	require.True(t, errors.As(err, &dup))
}

func TestDriver_OnTripIsManagedByTrips(t *testing.T) {
	f := newFixture(t)
	d := f.driver(t, "Ana Silva", "L-1")
	_, err := f.svc.Drivers.Update(f.ctx, d.ID, models.DriverUpdate{Status: ptr(models.DriverOnTrip)})
	assertStatus(t, http.StatusBadRequest, err)

	f.trip(t, f.vehicle(t, "DR-1"), d, models.TripInProgress)
	_, err = f.svc.Drivers.Update(f.ctx, d.ID, models.DriverUpdate{Status: ptr(models.DriverOffDuty)})
	assertStatus(t, http.StatusBadRequest, err)
	assert.Equal(t, models.DriverOnTrip, f.driverStatus(t, d.ID))

	assertStatus(t, http.StatusBadRequest, f.svc.Drivers.Delete(f.ctx, d.ID))
}

func TestDriver_UpdateProfileAndStatus(t *testing.T) {
	f := newFixture(t)
	d := f.driver(t, "Ana Silva", "L-1")
	got, err := f.svc.Drivers.Update(f.ctx, d.ID, models.DriverUpdate{
		Name:   ptr("Ana M. Silva"),
		Status: ptr(models.DriverOnLeave),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana M. Silva", got.Name)
	assert.Equal(t, models.DriverOnLeave, f.driverStatus(t, d.ID))
}

func TestDriver_Reassign(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, "DR-1")
	w := f.vehicle(t, "DR-2")
	d, err := f.svc.Drivers.Create(f.ctx, models.DriverInput{Name: "Ana Silva", LicenseNumber: "L-1", AssignedVehicle: &v.ID})
	require.NoError(t, err)

	_, err = f.svc.Drivers.Update(f.ctx, d.ID, models.DriverUpdate{AssignedVehicle: &w.ID})
	require.NoError(t, err)
	assert.Nil(t, f.vehicleByID(t, v.ID).CurrentDriver)
	require.NotNil(t, f.vehicleByID(t, w.ID).CurrentDriver)

	_, err = f.svc.Drivers.Update(f.ctx, d.ID, models.DriverUpdate{ClearVehicle: true})
	require.NoError(t, err)
	assert.Nil(t, f.vehicleByID(t, w.ID).CurrentDriver)
	stored, err := f.store.Drivers.FindDriverByID(f.ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedVehicle)
}

func TestDriver_ReassignToTakenVehicleKeepsPrevious(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, "DR-1")
	w := f.vehicle(t, "DR-2")
	d, err := f.svc.Drivers.Create(f.ctx, models.DriverInput{Name: "Ana Silva", LicenseNumber: "L-1", AssignedVehicle: &v.ID})
	require.NoError(t, err)
	_, err = f.svc.Drivers.Create(f.ctx, models.DriverInput{Name: "Bo Chen", LicenseNumber: "L-2", AssignedVehicle: &w.ID})
	require.NoError(t, err)

	_, err = f.svc.Drivers.Update(f.ctx, d.ID, models.DriverUpdate{AssignedVehicle: &w.ID})
	assertStatus(t, http.StatusBadRequest, err)

	held := f.vehicleByID(t, v.ID)
	require.NotNil(t, held.CurrentDriver)
	assert.Equal(t, d.ID, *held.CurrentDriver)
}

func TestDriver_DeleteClearsVehicle(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, "DR-1")
	d, err := f.svc.Drivers.Create(f.ctx, models.DriverInput{
		Name:            "Ana Silva",
		Email:           "ana@example.com",
		Password:        "password123",
		LicenseNumber:   "L-1",
		AssignedVehicle: &v.ID,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Drivers.Delete(f.ctx, d.ID))
	assert.Nil(t, f.vehicleByID(t, v.ID).CurrentDriver)
	_, err = f.store.Users.FindUserByEmail(f.ctx, "ana@example.com")
	assert.ErrorIs(t, err, db.ErrNotFound)

	assertStatus(t, http.StatusNotFound, f.svc.Drivers.Delete(f.ctx, d.ID))
}

func TestDriver_Stats(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, "DR-1")
	_, err := f.svc.Drivers.Create(f.ctx, models.DriverInput{
		Name:              "Ana Silva",
		LicenseNumber:     "L-1",
		LicenseExpiry:     time.Now().AddDate(0, 0, 10),
		PerformanceRating: 4,
		AssignedVehicle:   &v.ID,
	})
	require.NoError(t, err)
	_, err = f.svc.Drivers.Create(f.ctx, models.DriverInput{
		Name:              "Bo Chen",
		LicenseNumber:     "L-2",
		LicenseExpiry:     time.Now().AddDate(1, 0, 0),
		PerformanceRating: 5,
	})
	require.NoError(t, err)

	stats, err := f.svc.Drivers.Stats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Assigned)
	assert.Equal(t, int64(1), stats.LicensesExpiring)
	assert.Equal(t, 4.5, stats.AverageRating)
}
