package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripScheduled  TripStatus = "scheduled"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
)

// IsValidTripStatus checks if a trip status is valid
func IsValidTripStatus(s TripStatus) bool {
	switch s {
	case TripScheduled, TripInProgress, TripCompleted, TripCancelled:
		return true
	default:
		return false
	}
}

// Trip represents a vehicle trip from origin to destination.
type Trip struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	VehicleID         primitive.ObjectID `json:"vehicleId" bson:"vehicleId"`
	DriverID          primitive.ObjectID `json:"driverId" bson:"driverId"`
	Origin            Place              `json:"origin" bson:"origin"`
	Destination       Place              `json:"destination" bson:"destination"`
	StartTime         time.Time          `json:"startTime" bson:"startTime"`
	EndTime           *time.Time         `json:"endTime" bson:"endTime"`
	EstimatedDistance float64            `json:"estimatedDistance" bson:"estimatedDistance"` // in kilometers
	ActualDistance    float64            `json:"actualDistance" bson:"actualDistance"`       // in kilometers
	Purpose           string             `json:"purpose,omitempty" bson:"purpose,omitempty"` // "delivery", "pickup", "service", "transfer"
	Status            TripStatus         `json:"status" bson:"status"`
	Notes             string             `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedBy         primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// TripInput is the create payload for a trip.
type TripInput struct {
	VehicleID         primitive.ObjectID `json:"vehicleId" validate:"required"`
	DriverID          primitive.ObjectID `json:"driverId" validate:"required"`
	Origin            Place              `json:"origin" validate:"required"`
	Destination       Place              `json:"destination" validate:"required"`
	StartTime         time.Time          `json:"startTime" validate:"required"`
	EstimatedDistance float64            `json:"estimatedDistance" validate:"gte=0"`
	Purpose           string             `json:"purpose" validate:"omitempty,oneof=delivery pickup service transfer other"`
	Status            TripStatus         `json:"status" validate:"omitempty,oneof=scheduled in_progress"`
	Notes             string             `json:"notes" validate:"max=1000"`
}

// TripUpdate is the partial update payload for a trip.
type TripUpdate struct {
	VehicleID         *primitive.ObjectID `json:"vehicleId"`
	DriverID          *primitive.ObjectID `json:"driverId"`
	Origin            *Place              `json:"origin"`
	Destination       *Place              `json:"destination"`
	StartTime         *time.Time          `json:"startTime"`
	EndTime           *time.Time          `json:"endTime"`
	EstimatedDistance *float64            `json:"estimatedDistance" validate:"omitempty,gte=0"`
	ActualDistance    *float64            `json:"actualDistance" validate:"omitempty,gte=0"`
	Purpose           *string             `json:"purpose" validate:"omitempty,oneof=delivery pickup service transfer other"`
	Status            *TripStatus         `json:"status" validate:"omitempty,oneof=scheduled in_progress completed cancelled"`
	Notes             *string             `json:"notes" validate:"omitempty,max=1000"`
}

// Apply copies the set descriptive fields of u onto t. References and status
// go through the trip status-sync rule instead.
func (u TripUpdate) Apply(t *Trip) {
	if u.Origin != nil {
		t.Origin = *u.Origin
	}
	if u.Destination != nil {
		t.Destination = *u.Destination
	}
	if u.StartTime != nil {
		t.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		t.EndTime = u.EndTime
	}
	if u.EstimatedDistance != nil {
		t.EstimatedDistance = *u.EstimatedDistance
	}
	if u.ActualDistance != nil {
		t.ActualDistance = *u.ActualDistance
	}
	if u.Purpose != nil {
		t.Purpose = *u.Purpose
	}
	if u.Notes != nil {
		t.Notes = *u.Notes
	}
}
