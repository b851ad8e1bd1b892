// Package service holds the entity services and the status-sync rules that
// keep trips, drivers, vehicles and maintenance records consistent.
package service

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/events"
	"github.com/ukydev/aivodrive/internal/metrics"
	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID primitive.ObjectID
	Role   models.Role
}

// ActorFromClaims converts verified token claims into an Actor.
func ActorFromClaims(c *models.Claims) (Actor, error) {
	if c == nil {
		return Actor{}, Unauthorized("Not authenticated")
	}
	id, err := primitive.ObjectIDFromHex(c.UserID)
	if err != nil {
		return Actor{}, Unauthorized("Invalid token subject")
	}
	return Actor{UserID: id, Role: c.Role}, nil
}

func (a Actor) IsDriver() bool { return a.Role == models.RoleDriver }

// Services bundles every entity service over one store.
type Services struct {
	Vehicles    *VehicleService
	Drivers     *DriverService
	Trips       *TripService
	Maintenance *MaintenanceService
	Fuel        *FuelService
	Alerts      *AlertService
	Reports     *ReportService
}

// Hasher hashes passwords for accounts created alongside drivers.
type Hasher interface {
	HashPassword(password string) (string, error)
}

// New wires the services. A nil publisher disables events.
func New(store *db.Store, hasher Hasher, pub events.Publisher, logger *log.Logger) *Services {
	if pub == nil {
		pub = events.Noop{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	b := base{store: store, events: pub, log: logger}
	return &Services{
		Vehicles:    &VehicleService{base: b},
		Drivers:     &DriverService{base: b, hasher: hasher},
		Trips:       &TripService{base: b},
		Maintenance: &MaintenanceService{base: b},
		Fuel:        &FuelService{base: b},
		Alerts:      &AlertService{base: b},
		Reports:     &ReportService{base: b},
	}
}

type base struct {
	store  *db.Store
	events events.Publisher
	log    *log.Logger
}

// driverProfile returns the driver document linked to a driver-role actor.
func (b base) driverProfile(ctx context.Context, actor Actor) (*models.Driver, error) {
	d, err := b.store.Drivers.FindDriverByUser(ctx, actor.UserID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, Forbidden("No driver profile is linked to this account")
	}
	return d, err
}

// transitioned records a status change in metrics and on the event bus.
func (b base) transitioned(ctx context.Context, typ events.Type, kind string, id primitive.ObjectID, from, to string) {
	metrics.Transition(kind, from, to)
	events.Emit(ctx, b.events, b.log, events.Event{
		Type:       typ,
		EntityKind: kind,
		EntityID:   id.Hex(),
		From:       from,
		To:         to,
	})
}

// undoStack collects compensating writes for a multi-document sequence.
type undoStack struct {
	steps []func(context.Context) error
	log   log.FieldLogger
}

func (u *undoStack) push(step func(context.Context) error) {
	u.steps = append(u.steps, step)
}

// run executes the compensations newest first, logging failures.
func (u *undoStack) run(ctx context.Context) {
	for i := len(u.steps) - 1; i >= 0; i-- {
		if err := u.steps[i](ctx); err != nil {
			u.log.WithError(err).Error("Compensating write failed")
		}
	}
	u.steps = nil
}

// Page is one page of a listing plus the unpaged total.
type Page[T any] struct {
	Items []T
	Total int64
	Page  int64
	Limit int64
}

func newPage[T any](items []T, total int64, opts db.ListOptions) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Page: opts.Page, Limit: opts.Limit}
}
