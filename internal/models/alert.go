package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AlertType classifies alerts.
type AlertType string

const (
	AlertMaintenanceDue     AlertType = "maintenance_due"
	AlertDocumentExpiry     AlertType = "document_expiry"
	AlertTripDelay          AlertType = "trip_delay"
	AlertMaintenanceOverdue AlertType = "maintenance_overdue"
	AlertFuel               AlertType = "fuel"
	AlertSystem             AlertType = "system"
)

// Priority is the urgency of an alert.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// EntityKind names the collection an alert refers to.
type EntityKind string

const (
	KindVehicle     EntityKind = "Vehicle"
	KindDriver      EntityKind = "Driver"
	KindTrip        EntityKind = "Trip"
	KindMaintenance EntityKind = "Maintenance"
	KindUser        EntityKind = "User"
)

// Valid reports whether k is one of the known kinds.
func (k EntityKind) Valid() bool {
	switch k {
	case KindVehicle, KindDriver, KindTrip, KindMaintenance, KindUser:
		return true
	default:
		return false
	}
}

// EntityRef points at a document of a given kind.
type EntityRef struct {
	Kind EntityKind         `json:"kind" bson:"kind" validate:"required,oneof=Vehicle Driver Trip Maintenance User"`
	ID   primitive.ObjectID `json:"id" bson:"id" validate:"required"`
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s(%s)", r.Kind, r.ID.Hex())
}

// Alert is a notification shown on the dashboard.
type Alert struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Type      AlertType          `json:"type" bson:"type"`
	Title     string             `json:"title" bson:"title"`
	Message   string             `json:"message" bson:"message"`
	Priority  Priority           `json:"priority" bson:"priority"`
	IsRead    bool               `json:"isRead" bson:"isRead"`
	ReadAt    *time.Time         `json:"readAt,omitempty" bson:"readAt,omitempty"`
	RelatedTo *EntityRef         `json:"relatedTo,omitempty" bson:"relatedTo,omitempty"`
	ExpiresAt *time.Time         `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
	Generated bool               `json:"generated" bson:"generated"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// AlertInput is the create payload for a manual alert.
type AlertInput struct {
	Type      AlertType  `json:"type" validate:"required,oneof=maintenance_due document_expiry trip_delay maintenance_overdue fuel system"`
	Title     string     `json:"title" validate:"required,max=200"`
	Message   string     `json:"message" validate:"required,max=2000"`
	Priority  Priority   `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	RelatedTo *EntityRef `json:"relatedTo"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// AlertUpdate is the partial update payload for an alert.
type AlertUpdate struct {
	Title     *string    `json:"title" validate:"omitempty,max=200"`
	Message   *string    `json:"message" validate:"omitempty,max=2000"`
	Priority  *Priority  `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	IsRead    *bool      `json:"isRead"`
	ExpiresAt *time.Time `json:"expiresAt"`
}
