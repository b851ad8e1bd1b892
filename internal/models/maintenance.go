package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaintenanceStatus is the lifecycle state of a maintenance record.
type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "scheduled"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

// Maintenance represents a vehicle maintenance record.
type Maintenance struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	VehicleID       primitive.ObjectID `json:"vehicleId" bson:"vehicleId"`
	Type            string             `json:"type" bson:"type"` // "oil_change", "tire_rotation", "brake_service", "battery_service", "inspection", "repair", "other"
	Description     string             `json:"description" bson:"description"`
	DateScheduled   *time.Time         `json:"dateScheduled" bson:"dateScheduled"`
	DateCompleted   *time.Time         `json:"dateCompleted" bson:"dateCompleted"`
	Status          MaintenanceStatus  `json:"status" bson:"status"`
	Cost            float64            `json:"cost" bson:"cost"`
	ServiceProvider string             `json:"serviceProvider,omitempty" bson:"serviceProvider,omitempty"`
	Mileage         float64            `json:"mileage,omitempty" bson:"mileage,omitempty"` // in kilometers
	Notes           string             `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedBy       primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// MaintenanceInput is the create payload for a maintenance record.
type MaintenanceInput struct {
	VehicleID       primitive.ObjectID `json:"vehicleId" validate:"required"`
	Type            string             `json:"type" validate:"required,oneof=oil_change tire_rotation brake_service battery_service inspection repair other"`
	Description     string             `json:"description" validate:"required,max=1000"`
	DateScheduled   *time.Time         `json:"dateScheduled"`
	DateCompleted   *time.Time         `json:"dateCompleted"`
	Status          MaintenanceStatus  `json:"status" validate:"omitempty,oneof=scheduled in_progress completed cancelled"`
	Cost            float64            `json:"cost" validate:"gte=0"`
	ServiceProvider string             `json:"serviceProvider" validate:"max=100"`
	Mileage         float64            `json:"mileage" validate:"gte=0"`
	Notes           string             `json:"notes" validate:"max=1000"`
}

// MaintenanceUpdate is the partial update payload for a maintenance record.
type MaintenanceUpdate struct {
	VehicleID       *primitive.ObjectID `json:"vehicleId"`
	Type            *string             `json:"type" validate:"omitempty,oneof=oil_change tire_rotation brake_service battery_service inspection repair other"`
	Description     *string             `json:"description" validate:"omitempty,max=1000"`
	DateScheduled   *time.Time          `json:"dateScheduled"`
	DateCompleted   *time.Time          `json:"dateCompleted"`
	Status          *MaintenanceStatus  `json:"status" validate:"omitempty,oneof=scheduled in_progress completed cancelled"`
	Cost            *float64            `json:"cost" validate:"omitempty,gte=0"`
	ServiceProvider *string             `json:"serviceProvider" validate:"omitempty,max=100"`
	Mileage         *float64            `json:"mileage" validate:"omitempty,gte=0"`
	Notes           *string             `json:"notes" validate:"omitempty,max=1000"`
}

// Apply copies the set descriptive fields of u onto m.
func (u MaintenanceUpdate) Apply(m *Maintenance) {
	if u.Type != nil {
		m.Type = *u.Type
	}
	if u.Description != nil {
		m.Description = *u.Description
	}
	if u.DateScheduled != nil {
		m.DateScheduled = u.DateScheduled
	}
	if u.DateCompleted != nil {
		m.DateCompleted = u.DateCompleted
	}
	if u.Cost != nil {
		m.Cost = *u.Cost
	}
	if u.ServiceProvider != nil {
		m.ServiceProvider = *u.ServiceProvider
	}
	if u.Mileage != nil {
		m.Mileage = *u.Mileage
	}
	if u.Notes != nil {
		m.Notes = *u.Notes
	}
}
