package alerts

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/events"
	"github.com/ukydev/aivodrive/internal/metrics"
	"github.com/ukydev/aivodrive/internal/models"
	"golang.org/x/sync/errgroup"
)

// Generator clears and re-derives generated alerts.
type Generator struct {
	store  *db.Store
	events events.Publisher
	log    *log.Logger
	now    func() time.Time
}

// Result reports one regeneration run.
type Result struct {
	Removed int64            `json:"removed"`
	Created int              `json:"created"`
	ByType  map[string]int64 `json:"byType"`
}

func NewGenerator(store *db.Store, pub events.Publisher, logger *log.Logger) *Generator {
	if pub == nil {
		pub = events.Noop{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Generator{store: store, events: pub, log: logger, now: time.Now}
}

// Snapshot loads the state the rules read, concurrently.
func (g *Generator) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Now: g.now()}
	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		snap.Vehicles, _, err = g.store.Vehicles.FindVehicles(ectx, db.VehicleFilter{}, db.ListOptions{})
		return err
	})
	eg.Go(func() (err error) {
		snap.Drivers, _, err = g.store.Drivers.FindDrivers(ectx, db.DriverFilter{}, db.ListOptions{})
		return err
	})
	eg.Go(func() (err error) {
		snap.RunningTrips, _, err = g.store.Trips.FindTrips(ectx, db.TripFilter{Status: models.TripInProgress}, db.ListOptions{})
		return err
	})
	eg.Go(func() (err error) {
		snap.ScheduledMaintenance, _, err = g.store.Maintenance.FindMaintenance(ectx, db.MaintenanceFilter{Status: models.MaintenanceScheduled}, db.ListOptions{})
		return err
	})
	if err := eg.Wait(); err != nil {
		return Snapshot{}, fmt.Errorf("load alert snapshot: %w", err)
	}
	return snap, nil
}

// Regenerate replaces every generated alert with a fresh derivation.
// Manually created alerts are kept.
func (g *Generator) Regenerate(ctx context.Context) (*Result, error) {
	snap, err := g.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	derived := Derive(snap)

	removed, err := g.store.Alerts.DeleteGeneratedAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("clear generated alerts: %w", err)
	}
	if len(derived) > 0 {
		if err := g.store.Alerts.InsertAlerts(ctx, derived); err != nil {
			return nil, fmt.Errorf("insert alerts: %w", err)
		}
	}

	res := &Result{Removed: removed, Created: len(derived), ByType: map[string]int64{}}
	for _, a := range derived {
		res.ByType[string(a.Type)]++
		metrics.AlertsGenerated.WithLabelValues(string(a.Type)).Inc()
	}
	g.log.WithFields(log.Fields{
		"removed": removed,
		"created": len(derived),
	}).Info("Alerts regenerated")
	events.Emit(ctx, g.events, g.log, events.Event{
		Type:       events.AlertsRegenerated,
		EntityKind: "alert",
		Payload:    res,
	})
	return res, nil
}
