package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fuel represents a refuelling record.
type Fuel struct {
	ID               primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	VehicleID        primitive.ObjectID  `json:"vehicleId" bson:"vehicleId"`
	DriverID         *primitive.ObjectID `json:"driverId" bson:"driverId"`
	Date             time.Time           `json:"date" bson:"date"`
	FuelAmount       float64             `json:"fuelAmount" bson:"fuelAmount"` // in liters
	FuelPrice        float64             `json:"fuelPrice" bson:"fuelPrice"`   // per liter
	TotalCost        float64             `json:"totalCost" bson:"totalCost"`
	Odometer         float64             `json:"odometer" bson:"odometer"` // in kilometers
	PreviousOdometer float64             `json:"previousOdometer" bson:"previousOdometer"`
	FuelType         string              `json:"fuelType,omitempty" bson:"fuelType,omitempty"`
	Station          string              `json:"station,omitempty" bson:"station,omitempty"`
	Notes            string              `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedBy        primitive.ObjectID  `json:"createdBy" bson:"createdBy"`
	CreatedAt        time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// Distance is the distance driven since the previous fill-up.
func (f *Fuel) Distance() float64 {
	if f.Odometer <= f.PreviousOdometer {
		return 0
	}
	return f.Odometer - f.PreviousOdometer
}

// FuelInput is the create payload for a fuel record. TotalCost and
// PreviousOdometer are derived when omitted.
type FuelInput struct {
	VehicleID        primitive.ObjectID  `json:"vehicleId" validate:"required"`
	DriverID         *primitive.ObjectID `json:"driverId"`
	Date             *time.Time          `json:"date"`
	FuelAmount       float64             `json:"fuelAmount" validate:"required,gt=0"`
	FuelPrice        float64             `json:"fuelPrice" validate:"required,gt=0"`
	TotalCost        *float64            `json:"totalCost" validate:"omitempty,gte=0"`
	Odometer         float64             `json:"odometer" validate:"gte=0"`
	PreviousOdometer *float64            `json:"previousOdometer" validate:"omitempty,gte=0"`
	FuelType         string              `json:"fuelType" validate:"omitempty,oneof=gasoline diesel electric hybrid"`
	Station          string              `json:"station" validate:"max=100"`
	Notes            string              `json:"notes" validate:"max=1000"`
}

// FuelUpdate is the partial update payload for a fuel record.
type FuelUpdate struct {
	DriverID         *primitive.ObjectID `json:"driverId"`
	Date             *time.Time          `json:"date"`
	FuelAmount       *float64            `json:"fuelAmount" validate:"omitempty,gt=0"`
	FuelPrice        *float64            `json:"fuelPrice" validate:"omitempty,gt=0"`
	TotalCost        *float64            `json:"totalCost" validate:"omitempty,gte=0"`
	Odometer         *float64            `json:"odometer" validate:"omitempty,gte=0"`
	PreviousOdometer *float64            `json:"previousOdometer" validate:"omitempty,gte=0"`
	FuelType         *string             `json:"fuelType" validate:"omitempty,oneof=gasoline diesel electric hybrid"`
	Station          *string             `json:"station" validate:"omitempty,max=100"`
	Notes            *string             `json:"notes" validate:"omitempty,max=1000"`
}

// Apply copies the set fields of u onto f and re-derives the total cost when
// amount or price changed without an explicit total.
func (u FuelUpdate) Apply(f *Fuel) {
	if u.DriverID != nil {
		f.DriverID = u.DriverID
	}
	if u.Date != nil {
		f.Date = *u.Date
	}
	if u.FuelAmount != nil {
		f.FuelAmount = *u.FuelAmount
	}
	if u.FuelPrice != nil {
		f.FuelPrice = *u.FuelPrice
	}
	if u.Odometer != nil {
		f.Odometer = *u.Odometer
	}
	if u.PreviousOdometer != nil {
		f.PreviousOdometer = *u.PreviousOdometer
	}
	if u.FuelType != nil {
		f.FuelType = *u.FuelType
	}
	if u.Station != nil {
		f.Station = *u.Station
	}
	if u.Notes != nil {
		f.Notes = *u.Notes
	}
	switch {
	case u.TotalCost != nil:
		f.TotalCost = *u.TotalCost
	case u.FuelAmount != nil || u.FuelPrice != nil:
		f.TotalCost = FuelCost(f.FuelAmount, f.FuelPrice)
	}
}

// FuelCost is the total paid for a fill-up. It is stored unrounded so that
// totalCost always equals fuelAmount * fuelPrice; rounding happens in stats.
func FuelCost(amount, price float64) float64 {
	return amount * price
}
