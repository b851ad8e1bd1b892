package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DriverStatus is the duty state of a driver.
type DriverStatus string

const (
	DriverAvailable DriverStatus = "available"
	DriverOnTrip    DriverStatus = "on_trip"
	DriverOnLeave   DriverStatus = "on_leave"
	DriverOffDuty   DriverStatus = "off_duty"
	DriverInactive  DriverStatus = "inactive"
)

// Driver is the operational profile of a person who drives fleet vehicles.
// User links the profile to a login account with the driver role.
type Driver struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	User              *primitive.ObjectID `bson:"user" json:"user"`
	Name              string              `bson:"name" json:"name"`
	Phone             string              `bson:"phone,omitempty" json:"phone,omitempty"`
	LicenseNumber     string              `bson:"licenseNumber" json:"licenseNumber"`
	LicenseExpiry     time.Time           `bson:"licenseExpiry" json:"licenseExpiry"`
	AssignedVehicle   *primitive.ObjectID `bson:"assignedVehicle" json:"assignedVehicle"`
	Status            DriverStatus        `bson:"status" json:"status"`
	TotalTrips        int                 `bson:"totalTrips" json:"totalTrips"`
	TotalDistance     float64             `bson:"totalDistance" json:"totalDistance"` // in kilometers
	PerformanceRating float64             `bson:"performanceRating" json:"performanceRating"`
	Notes             string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt         time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// VehicleRef is the identifier written into Vehicle.CurrentDriver for this
// driver: the linked user account when there is one, else the driver itself.
func (d *Driver) VehicleRef() primitive.ObjectID {
	if d.User != nil && !d.User.IsZero() {
		return *d.User
	}
	return d.ID
}

// DriverInput is the create payload for a driver. When Email is set a login
// account with the driver role is created and linked.
type DriverInput struct {
	Name              string              `json:"name" validate:"required,min=2,max=100"`
	Email             string              `json:"email" validate:"omitempty,email"`
	Password          string              `json:"password" validate:"omitempty,min=8"`
	Phone             string              `json:"phone" validate:"omitempty,max=30"`
	LicenseNumber     string              `json:"licenseNumber" validate:"required,max=40"`
	LicenseExpiry     time.Time           `json:"licenseExpiry" validate:"required"`
	AssignedVehicle   *primitive.ObjectID `json:"assignedVehicle"`
	Status            DriverStatus        `json:"status" validate:"omitempty,oneof=available on_leave off_duty inactive"`
	PerformanceRating float64             `json:"performanceRating" validate:"gte=0,lte=5"`
	Notes             string              `json:"notes" validate:"max=1000"`
}

// DriverUpdate is the partial update payload for a driver. ClearVehicle
// unassigns the current vehicle.
type DriverUpdate struct {
	Name              *string             `json:"name" validate:"omitempty,min=2,max=100"`
	Phone             *string             `json:"phone" validate:"omitempty,max=30"`
	LicenseNumber     *string             `json:"licenseNumber" validate:"omitempty,max=40"`
	LicenseExpiry     *time.Time          `json:"licenseExpiry"`
	AssignedVehicle   *primitive.ObjectID `json:"assignedVehicle"`
	ClearVehicle      bool                `json:"clearVehicle"`
	Status            *DriverStatus       `json:"status" validate:"omitempty,oneof=available on_leave off_duty inactive"`
	PerformanceRating *float64            `json:"performanceRating" validate:"omitempty,gte=0,lte=5"`
	Notes             *string             `json:"notes" validate:"omitempty,max=1000"`
}

// Apply copies the set profile fields of u onto d. Vehicle assignment and
// status are applied by the driver service.
func (u DriverUpdate) Apply(d *Driver) {
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.Phone != nil {
		d.Phone = *u.Phone
	}
	if u.LicenseNumber != nil {
		d.LicenseNumber = *u.LicenseNumber
	}
	if u.LicenseExpiry != nil {
		d.LicenseExpiry = *u.LicenseExpiry
	}
	if u.PerformanceRating != nil {
		d.PerformanceRating = *u.PerformanceRating
	}
	if u.Notes != nil {
		d.Notes = *u.Notes
	}
}
