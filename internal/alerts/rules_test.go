package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

const day = 24 * time.Hour

func TestServiceOverdue(t *testing.T) {
	recent := models.Vehicle{ID: primitive.NewObjectID(), LastServiceDate: at(-30 * day), Status: models.VehicleActive}
	stale := models.Vehicle{ID: primitive.NewObjectID(), LastServiceDate: at(-120 * day), Status: models.VehicleActive}
	never := models.Vehicle{ID: primitive.NewObjectID(), Status: models.VehicleActive}
	retired := models.Vehicle{ID: primitive.NewObjectID(), Status: models.VehicleInactive}

	got := ServiceOverdue(Snapshot{Now: now, Vehicles: []models.Vehicle{recent, stale, never, retired}})

	require.Len(t, got, 2)
	assert.Equal(t, stale.ID, got[0].RelatedTo.ID)
	assert.Equal(t, never.ID, got[1].RelatedTo.ID)
	for _, a := range got {
		assert.Equal(t, models.AlertMaintenanceDue, a.Type)
		assert.Equal(t, models.PriorityMedium, a.Priority)
		assert.Equal(t, models.KindVehicle, a.RelatedTo.Kind)
	}
}

func TestVehicleDocuments(t *testing.T) {
	v := models.Vehicle{
		ID:                 primitive.NewObjectID(),
		RegistrationExpiry: at(10 * day),
		InsuranceExpiry:    at(-1 * day),
	}
	far := models.Vehicle{ID: primitive.NewObjectID(), RegistrationExpiry: at(90 * day)}

	got := VehicleDocuments(Snapshot{Now: now, Vehicles: []models.Vehicle{v, far}})

	require.Len(t, got, 2)
	assert.Equal(t, models.PriorityHigh, got[0].Priority)
	assert.Contains(t, got[0].Message, "registration expires")
	assert.Equal(t, models.PriorityCritical, got[1].Priority)
	assert.Contains(t, got[1].Message, "insurance expired")
}

func TestDriverLicences(t *testing.T) {
	soon := models.Driver{ID: primitive.NewObjectID(), Name: "Ana", LicenseExpiry: now.Add(45 * day)}
	later := models.Driver{ID: primitive.NewObjectID(), LicenseExpiry: now.Add(90 * day)}
	inactive := models.Driver{ID: primitive.NewObjectID(), LicenseExpiry: now.Add(-day), Status: models.DriverInactive}

	got := DriverLicences(Snapshot{Now: now, Drivers: []models.Driver{soon, later, inactive}})

	require.Len(t, got, 1)
	assert.Equal(t, soon.ID, got[0].RelatedTo.ID)
	assert.Equal(t, models.KindDriver, got[0].RelatedTo.Kind)
	assert.Equal(t, models.PriorityHigh, got[0].Priority)
}

func TestTripDelays(t *testing.T) {
	late := models.Trip{ID: primitive.NewObjectID(), Status: models.TripInProgress, StartTime: now.Add(-4 * time.Hour)}
	onTime := models.Trip{ID: primitive.NewObjectID(), Status: models.TripInProgress, StartTime: now.Add(-2 * time.Hour)}

	got := TripDelays(Snapshot{Now: now, RunningTrips: []models.Trip{late, onTime}})

	require.Len(t, got, 1)
	assert.Equal(t, late.ID, got[0].RelatedTo.ID)
	assert.Equal(t, models.AlertTripDelay, got[0].Type)
	assert.Equal(t, models.PriorityHigh, got[0].Priority)
}

func TestMaintenanceOverdue(t *testing.T) {
	past := models.Maintenance{ID: primitive.NewObjectID(), Status: models.MaintenanceScheduled, DateScheduled: at(-2 * day), Description: "Oil change"}
	future := models.Maintenance{ID: primitive.NewObjectID(), Status: models.MaintenanceScheduled, DateScheduled: at(2 * day)}
	undated := models.Maintenance{ID: primitive.NewObjectID(), Status: models.MaintenanceScheduled}

	got := MaintenanceOverdue(Snapshot{Now: now, ScheduledMaintenance: []models.Maintenance{past, future, undated}})

	require.Len(t, got, 1)
	assert.Equal(t, models.KindMaintenance, got[0].RelatedTo.Kind)
	assert.Contains(t, got[0].Message, "Oil change")
}

func TestDerive_MarksGenerated(t *testing.T) {
	got := Derive(Snapshot{Now: now, Vehicles: []models.Vehicle{{ID: primitive.NewObjectID(), Status: models.VehicleActive}}})
	require.Len(t, got, 1)
	assert.True(t, got[0].Generated)

	assert.Empty(t, Derive(Snapshot{Now: now}))
}
