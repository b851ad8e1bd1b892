package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleStatus is the operational state of a vehicle.
type VehicleStatus string

const (
	VehicleActive      VehicleStatus = "active"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleInactive    VehicleStatus = "inactive"
	VehicleAssigned    VehicleStatus = "assigned"
	VehicleAvailable   VehicleStatus = "available"
)

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Make               string              `bson:"make" json:"make"`
	Model              string              `bson:"model" json:"model"`
	Year               int                 `bson:"year" json:"year"`
	LicensePlate       string              `bson:"licensePlate" json:"licensePlate"`
	VIN                string              `bson:"vin,omitempty" json:"vin,omitempty"`
	Type               string              `bson:"type,omitempty" json:"type,omitempty"` // "car", "van", "truck", "bus"
	Status             VehicleStatus       `bson:"status" json:"status"`
	FuelType           string              `bson:"fuelType" json:"fuelType"` // "gasoline", "diesel", "electric", "hybrid"
	Mileage            float64             `bson:"mileage" json:"mileage"`   // in kilometers
	LastServiceDate    *time.Time          `bson:"lastServiceDate" json:"lastServiceDate"`
	CurrentDriver      *primitive.ObjectID `bson:"currentDriver" json:"currentDriver"`
	RegistrationExpiry *time.Time          `bson:"registrationExpiry,omitempty" json:"registrationExpiry,omitempty"`
	InsuranceExpiry    *time.Time          `bson:"insuranceExpiry,omitempty" json:"insuranceExpiry,omitempty"`
	CurrentLocation    *Location           `bson:"currentLocation,omitempty" json:"currentLocation,omitempty"`
	Notes              string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// VehicleInput is the create payload for a vehicle.
type VehicleInput struct {
	Make               string        `json:"make" validate:"required,max=50"`
	Model              string        `json:"model" validate:"required,max=50"`
	Year               int           `json:"year" validate:"required,gte=1900,lte=2100"`
	LicensePlate       string        `json:"licensePlate" validate:"required,max=20"`
	VIN                string        `json:"vin" validate:"omitempty,len=17"`
	Type               string        `json:"type" validate:"omitempty,oneof=car van truck bus motorcycle"`
	Status             VehicleStatus `json:"status" validate:"omitempty,oneof=active maintenance inactive assigned available"`
	FuelType           string        `json:"fuelType" validate:"omitempty,oneof=gasoline diesel electric hybrid"`
	Mileage            float64       `json:"mileage" validate:"gte=0"`
	LastServiceDate    *time.Time    `json:"lastServiceDate"`
	RegistrationExpiry *time.Time    `json:"registrationExpiry"`
	InsuranceExpiry    *time.Time    `json:"insuranceExpiry"`
	CurrentLocation    *Location     `json:"currentLocation"`
	Notes              string        `json:"notes" validate:"max=1000"`
}

// VehicleUpdate is the partial update payload for a vehicle. The current
// driver is owned by the driver assignment and cannot be set here.
type VehicleUpdate struct {
	Make               *string        `json:"make" validate:"omitempty,max=50"`
	Model              *string        `json:"model" validate:"omitempty,max=50"`
	Year               *int           `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	LicensePlate       *string        `json:"licensePlate" validate:"omitempty,max=20"`
	VIN                *string        `json:"vin" validate:"omitempty,len=17"`
	Type               *string        `json:"type" validate:"omitempty,oneof=car van truck bus motorcycle"`
	Status             *VehicleStatus `json:"status" validate:"omitempty,oneof=active maintenance inactive assigned available"`
	FuelType           *string        `json:"fuelType" validate:"omitempty,oneof=gasoline diesel electric hybrid"`
	Mileage            *float64       `json:"mileage" validate:"omitempty,gte=0"`
	LastServiceDate    *time.Time     `json:"lastServiceDate"`
	RegistrationExpiry *time.Time     `json:"registrationExpiry"`
	InsuranceExpiry    *time.Time     `json:"insuranceExpiry"`
	CurrentLocation    *Location      `json:"currentLocation"`
	Notes              *string        `json:"notes" validate:"omitempty,max=1000"`
}

// Apply copies the set fields of u onto v.
func (u VehicleUpdate) Apply(v *Vehicle) {
	if u.Make != nil {
		v.Make = *u.Make
	}
	if u.Model != nil {
		v.Model = *u.Model
	}
	if u.Year != nil {
		v.Year = *u.Year
	}
	if u.LicensePlate != nil {
		v.LicensePlate = *u.LicensePlate
	}
	if u.VIN != nil {
		v.VIN = *u.VIN
	}
	if u.Type != nil {
		v.Type = *u.Type
	}
	if u.Status != nil {
		v.Status = *u.Status
	}
	if u.FuelType != nil {
		v.FuelType = *u.FuelType
	}
	if u.Mileage != nil {
		v.Mileage = *u.Mileage
	}
	if u.LastServiceDate != nil {
		v.LastServiceDate = u.LastServiceDate
	}
	if u.RegistrationExpiry != nil {
		v.RegistrationExpiry = u.RegistrationExpiry
	}
	if u.InsuranceExpiry != nil {
		v.InsuranceExpiry = u.InsuranceExpiry
	}
	if u.CurrentLocation != nil {
		v.CurrentLocation = u.CurrentLocation
	}
	if u.Notes != nil {
		v.Notes = *u.Notes
	}
}
