package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no document matches an id.
	ErrNotFound = errors.New("document not found")
	// ErrPreconditionFailed is returned when a conditional write found the
	// document in a different state than the caller expected.
	ErrPreconditionFailed = errors.New("document was modified concurrently")
)

// DuplicateKeyError reports a violated unique index.
type DuplicateKeyError struct {
	Field string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

// ListOptions selects one page of a listing. A zero Limit returns every match.
// Results are ordered by the collection's natural time key, newest first
// unless Ascending is set.
type ListOptions struct {
	Page      int64
	Limit     int64
	Ascending bool
}

// Skip is the number of documents before the requested page.
func (o ListOptions) Skip() int64 {
	if o.Limit <= 0 || o.Page <= 1 {
		return 0
	}
	return (o.Page - 1) * o.Limit
}

// VehicleFilter narrows vehicle listings.
type VehicleFilter struct {
	Status   models.VehicleStatus
	FuelType string
	Search   string
}

// DriverFilter narrows driver listings.
type DriverFilter struct {
	Status models.DriverStatus
	Search string
}

// TripFilter narrows trip listings.
type TripFilter struct {
	Status    models.TripStatus
	VehicleID *primitive.ObjectID
	DriverID  *primitive.ObjectID
	From      *time.Time
	To        *time.Time
}

// MaintenanceFilter narrows maintenance listings.
type MaintenanceFilter struct {
	Status    models.MaintenanceStatus
	VehicleID *primitive.ObjectID
	ExcludeID *primitive.ObjectID
	From      *time.Time
	To        *time.Time
}

// FuelFilter narrows fuel listings.
type FuelFilter struct {
	VehicleID *primitive.ObjectID
	DriverID  *primitive.ObjectID
	From      *time.Time
	To        *time.Time
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	Type     models.AlertType
	Priority models.Priority
	IsRead   *bool
}

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error
	FindVehicles(ctx context.Context, filter VehicleFilter, opts ListOptions) ([]models.Vehicle, int64, error)
	FindVehicleByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error)
	// UpdateVehicle writes the set fields of upd. Status and the current
	// driver are never written here.
	UpdateVehicle(ctx context.Context, id primitive.ObjectID, upd models.VehicleUpdate) error
	// SetVehicleMileage raises the mileage to at least mileage.
	SetVehicleMileage(ctx context.Context, id primitive.ObjectID, mileage float64) error
	// SetVehicleStatus changes the status; with a non-empty from list the
	// write only applies while the status is one of them.
	SetVehicleStatus(ctx context.Context, id primitive.ObjectID, status models.VehicleStatus, from ...models.VehicleStatus) error
	MarkVehicleServiced(ctx context.Context, id primitive.ObjectID, at time.Time, status models.VehicleStatus) error
	// AssignVehicleDriver sets the current driver while it is unset or
	// already equal to driverRef.
	AssignVehicleDriver(ctx context.Context, id, driverRef primitive.ObjectID) error
	// ReleaseVehicleDriver clears the current driver if it equals driverRef.
	ReleaseVehicleDriver(ctx context.Context, id, driverRef primitive.ObjectID) error
	// DeleteVehicle removes an unassigned vehicle.
	DeleteVehicle(ctx context.Context, id primitive.ObjectID) error
}

// DriverCollection defines the interface for driver data operations.
type DriverCollection interface {
	InsertDriver(ctx context.Context, driver *models.Driver) error
	FindDrivers(ctx context.Context, filter DriverFilter, opts ListOptions) ([]models.Driver, int64, error)
	FindDriverByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error)
	FindDriverByUser(ctx context.Context, userID primitive.ObjectID) (*models.Driver, error)
	// UpdateDriver writes the profile fields, leaving status, counters and
	// vehicle assignment alone.
	UpdateDriver(ctx context.Context, driver *models.Driver) error
	TransitionDriverStatus(ctx context.Context, id primitive.ObjectID, from []models.DriverStatus, to models.DriverStatus) error
	// RecordTripCompletion adds one trip and distance to the counters and,
	// when release is set, makes the driver available again.
	RecordTripCompletion(ctx context.Context, id primitive.ObjectID, distance float64, release bool) error
	SetDriverVehicle(ctx context.Context, id primitive.ObjectID, vehicleID *primitive.ObjectID) error
	DeleteDriver(ctx context.Context, id primitive.ObjectID) error
}

// TripCollection defines the interface for trip data operations.
type TripCollection interface {
	InsertTrip(ctx context.Context, trip *models.Trip) error
	FindTrips(ctx context.Context, filter TripFilter, opts ListOptions) ([]models.Trip, int64, error)
	FindTripByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error)
	// UpdateTrip replaces the trip if its stored status still equals expected.
	UpdateTrip(ctx context.Context, trip *models.Trip, expected models.TripStatus) error
	DeleteTrip(ctx context.Context, id primitive.ObjectID) error
}

// MaintenanceCollection defines the interface for maintenance data operations.
type MaintenanceCollection interface {
	InsertMaintenance(ctx context.Context, record *models.Maintenance) error
	FindMaintenance(ctx context.Context, filter MaintenanceFilter, opts ListOptions) ([]models.Maintenance, int64, error)
	FindMaintenanceByID(ctx context.Context, id primitive.ObjectID) (*models.Maintenance, error)
	// UpdateMaintenance replaces the record if its stored status still equals expected.
	UpdateMaintenance(ctx context.Context, record *models.Maintenance, expected models.MaintenanceStatus) error
	DeleteMaintenance(ctx context.Context, id primitive.ObjectID) error
}

// FuelCollection defines the interface for fuel data operations.
type FuelCollection interface {
	InsertFuel(ctx context.Context, record *models.Fuel) error
	FindFuel(ctx context.Context, filter FuelFilter, opts ListOptions) ([]models.Fuel, int64, error)
	FindFuelByID(ctx context.Context, id primitive.ObjectID) (*models.Fuel, error)
	UpdateFuel(ctx context.Context, record *models.Fuel) error
	DeleteFuel(ctx context.Context, id primitive.ObjectID) error
}

// AlertCollection defines the interface for alert data operations.
type AlertCollection interface {
	InsertAlert(ctx context.Context, alert *models.Alert) error
	InsertAlerts(ctx context.Context, alerts []models.Alert) error
	FindAlerts(ctx context.Context, filter AlertFilter, opts ListOptions) ([]models.Alert, int64, error)
	FindAlertByID(ctx context.Context, id primitive.ObjectID) (*models.Alert, error)
	UpdateAlert(ctx context.Context, alert *models.Alert) error
	MarkAlertRead(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Alert, error)
	CountUnread(ctx context.Context) (int64, error)
	// DeleteGeneratedAlerts removes every alert produced by the alert job.
	DeleteGeneratedAlerts(ctx context.Context) (int64, error)
	DeleteAlert(ctx context.Context, id primitive.ObjectID) error
}

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, user models.User) error
	DeleteUser(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id string) error
}

// Store bundles the collections behind one persistence handle.
type Store struct {
	Vehicles    VehicleCollection
	Drivers     DriverCollection
	Trips       TripCollection
	Maintenance MaintenanceCollection
	Fuel        FuelCollection
	Alerts      AlertCollection
	Users       UserCollection

	// Reset empties every collection; used by the seed job.
	Reset func(ctx context.Context) error
	// Close releases the underlying connection.
	Close func(ctx context.Context) error
	// Ping reports whether the backend is reachable.
	Ping func(ctx context.Context) error
}
