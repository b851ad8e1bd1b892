package service

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ukydev/aivodrive/internal/models"
)

func TestPlanTripTransition(t *testing.T) {
	tests := []struct {
		name       string
		prev, next models.TripStatus
		want       TripEffects
	}{
		{"create scheduled", "", models.TripScheduled, TripEffects{}},
		{"create in progress", "", models.TripInProgress, TripEffects{AcquireDriver: true}},
		{"start", models.TripScheduled, models.TripInProgress, TripEffects{AcquireDriver: true}},
		{"complete", models.TripInProgress, models.TripCompleted, TripEffects{ReleaseDriver: true, CountCompletion: true}},
		{"cancel running", models.TripInProgress, models.TripCancelled, TripEffects{ReleaseDriver: true}},
		{"cancel scheduled", models.TripScheduled, models.TripCancelled, TripEffects{}},
		{"complete without start", models.TripScheduled, models.TripCompleted, TripEffects{CountCompletion: true}},
		{"unchanged", models.TripInProgress, models.TripInProgress, TripEffects{}},
		{"reopen completed", models.TripCompleted, models.TripScheduled, TripEffects{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanTripTransition(tt.prev, tt.next))
		})
	}
}

func TestDriverMayTransition(t *testing.T) {
	assert.True(t, DriverMayTransition(models.TripScheduled, models.TripInProgress))
	assert.True(t, DriverMayTransition(models.TripInProgress, models.TripCompleted))
	assert.True(t, DriverMayTransition(models.TripInProgress, models.TripInProgress))

	assert.False(t, DriverMayTransition(models.TripScheduled, models.TripCompleted))
	assert.False(t, DriverMayTransition(models.TripInProgress, models.TripCancelled))
	assert.False(t, DriverMayTransition(models.TripCompleted, models.TripInProgress))
	assert.False(t, DriverMayTransition(models.TripScheduled, models.TripCancelled))
}

func TestCheckDriverTripFields(t *testing.T) {
	assert.NoError(t, CheckDriverTripFields([]string{"status", "notes"}))
	assert.NoError(t, CheckDriverTripFields(nil))

	err := CheckDriverTripFields([]string{"status", "vehicleId", "driverId"})
	if assert.Error(t, err) {
		assert.Equal(t, http.StatusBadRequest, StatusOf(err))
		assert.Contains(t, err.Error(), "[driverId vehicleId]")
	}
}

func TestPlanMaintenanceTransition(t *testing.T) {
	tests := []struct {
		name       string
		prev, next models.MaintenanceStatus
		want       MaintenanceEffects
	}{
		{"create scheduled", "", models.MaintenanceScheduled, MaintenanceEffects{}},
		{"create in progress", "", models.MaintenanceInProgress, MaintenanceEffects{EnterMaintenance: true}},
		{"create completed", "", models.MaintenanceCompleted, MaintenanceEffects{MarkServiced: true}},
		{"start", models.MaintenanceScheduled, models.MaintenanceInProgress, MaintenanceEffects{EnterMaintenance: true}},
		{"finish", models.MaintenanceInProgress, models.MaintenanceCompleted, MaintenanceEffects{MarkServiced: true}},
		{"abort", models.MaintenanceInProgress, models.MaintenanceCancelled, MaintenanceEffects{LeaveMaintenance: true}},
		{"back to scheduled", models.MaintenanceInProgress, models.MaintenanceScheduled, MaintenanceEffects{LeaveMaintenance: true}},
		{"cancel scheduled", models.MaintenanceScheduled, models.MaintenanceCancelled, MaintenanceEffects{}},
		{"unchanged", models.MaintenanceInProgress, models.MaintenanceInProgress, MaintenanceEffects{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanMaintenanceTransition(tt.prev, tt.next))
		})
	}
}
