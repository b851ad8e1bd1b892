package service

import (
	"sort"

	"github.com/ukydev/aivodrive/internal/models"
)

// TripEffects are the driver-side writes implied by a trip status change.
type TripEffects struct {
	AcquireDriver   bool // available -> on_trip
	ReleaseDriver   bool // on_trip -> available
	CountCompletion bool // totalTrips +1, totalDistance +actualDistance
}

// PlanTripTransition maps a trip status change to driver effects. An empty
// prev means the trip is being created.
func PlanTripTransition(prev, next models.TripStatus) TripEffects {
	if prev == next {
		return TripEffects{}
	}
	return TripEffects{
		AcquireDriver:   next == models.TripInProgress,
		ReleaseDriver:   prev == models.TripInProgress,
		CountCompletion: next == models.TripCompleted,
	}
}

// DriverMayTransition reports whether a driver-role user may move a trip
// from prev to next. Leaving the status unchanged is always allowed.
func DriverMayTransition(prev, next models.TripStatus) bool {
	switch {
	case prev == next:
		return true
	case prev == models.TripScheduled && next == models.TripInProgress:
		return true
	case prev == models.TripInProgress && next == models.TripCompleted:
		return true
	default:
		return false
	}
}

// driverTripFields are the only trip fields a driver may send.
var driverTripFields = map[string]bool{
	"status":         true,
	"actualDistance": true,
	"notes":          true,
}

// CheckDriverTripFields rejects any field a driver may not update.
func CheckDriverTripFields(fields []string) error {
	var bad []string
	for _, f := range fields {
		if !driverTripFields[f] {
			bad = append(bad, f)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	return Validation("Drivers can only update status, actualDistance and notes (got %v)", bad)
}

// MaintenanceEffects are the vehicle-side writes implied by a maintenance
// status change.
type MaintenanceEffects struct {
	EnterMaintenance bool // vehicle -> maintenance
	MarkServiced     bool // lastServiceDate set, vehicle -> active
	LeaveMaintenance bool // vehicle -> active without a service
}

// PlanMaintenanceTransition maps a maintenance status change to vehicle
// effects. An empty prev means the record is being created.
func PlanMaintenanceTransition(prev, next models.MaintenanceStatus) MaintenanceEffects {
	if prev == next {
		return MaintenanceEffects{}
	}
	return MaintenanceEffects{
		EnterMaintenance: next == models.MaintenanceInProgress,
		MarkServiced:     next == models.MaintenanceCompleted,
		LeaveMaintenance: prev == models.MaintenanceInProgress && next != models.MaintenanceCompleted,
	}
}
