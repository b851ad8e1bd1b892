package service

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/events"
	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaintenanceService owns maintenance records and the vehicle status and
// service date they drive.
type MaintenanceService struct {
	base
}

// MaintenanceStats summarises maintenance activity.
type MaintenanceStats struct {
	Total       int64              `json:"total"`
	ByStatus    map[string]int64   `json:"byStatus"`
	CostByType  map[string]float64 `json:"costByType"`
	TotalCost   float64            `json:"totalCost"`
	UpcomingIn7 int64              `json:"upcomingNext7Days"`
}

func (s *MaintenanceService) List(ctx context.Context, filter db.MaintenanceFilter, opts db.ListOptions) (Page[models.Maintenance], error) {
	items, total, err := s.store.Maintenance.FindMaintenance(ctx, filter, opts)
	if err != nil {
		return Page[models.Maintenance]{}, err
	}
	return newPage(items, total, opts), nil
}

func (s *MaintenanceService) Get(ctx context.Context, id primitive.ObjectID) (*models.Maintenance, error) {
	m, err := s.store.Maintenance.FindMaintenanceByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Maintenance record")
	}
	return m, nil
}

func (s *MaintenanceService) Create(ctx context.Context, actor Actor, in models.MaintenanceInput) (*models.Maintenance, error) {
	if in.Status == "" {
		in.Status = models.MaintenanceScheduled
	}
	if _, err := s.store.Vehicles.FindVehicleByID(ctx, in.VehicleID); err != nil {
		return nil, missingRef(err, "Vehicle")
	}
	m := &models.Maintenance{
		VehicleID:       in.VehicleID,
		Type:            in.Type,
		Description:     in.Description,
		DateScheduled:   in.DateScheduled,
		DateCompleted:   in.DateCompleted,
		Status:          in.Status,
		Cost:            in.Cost,
		ServiceProvider: in.ServiceProvider,
		Mileage:         in.Mileage,
		Notes:           in.Notes,
		CreatedBy:       actor.UserID,
	}
	if m.Status == models.MaintenanceCompleted && m.DateCompleted == nil {
		now := time.Now()
		m.DateCompleted = &now
	}
	if err := s.store.Maintenance.InsertMaintenance(ctx, m); err != nil {
		return nil, err
	}
	undo := &undoStack{log: s.log}
	undo.push(func(ctx context.Context) error {
		return s.store.Maintenance.DeleteMaintenance(ctx, m.ID)
	})
	if err := s.applyVehicleEffects(ctx, m, PlanMaintenanceTransition("", m.Status)); err != nil {
		undo.run(ctx)
		return nil, err
	}
	s.transitioned(ctx, events.MaintenanceStatusChanged, "maintenance", m.ID, "", string(m.Status))
	return m, nil
}

func (s *MaintenanceService) Update(ctx context.Context, id primitive.ObjectID, upd models.MaintenanceUpdate) (*models.Maintenance, error) {
	m, err := s.store.Maintenance.FindMaintenanceByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Maintenance record")
	}
	prev := m.Status
	next := prev
	if upd.Status != nil {
		next = *upd.Status
	}
	oldVehicle := m.VehicleID
	if upd.VehicleID != nil && *upd.VehicleID != oldVehicle {
		if _, err := s.store.Vehicles.FindVehicleByID(ctx, *upd.VehicleID); err != nil {
			return nil, missingRef(err, "Vehicle")
		}
		m.VehicleID = *upd.VehicleID
	}
	upd.Apply(m)
	m.Status = next
	if next == models.MaintenanceCompleted && prev != models.MaintenanceCompleted && m.DateCompleted == nil {
		now := time.Now()
		m.DateCompleted = &now
	}

	if err := s.store.Maintenance.UpdateMaintenance(ctx, m, prev); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, NotFound("Maintenance record")
		}
		return nil, err
	}

	if m.VehicleID != oldVehicle {
		// The old vehicle loses this record; the new one gains it.
		if prev == models.MaintenanceInProgress {
			if err := s.leaveMaintenance(ctx, oldVehicle, m.ID); err != nil {
				return nil, err
			}
		}
		if err := s.applyVehicleEffects(ctx, m, PlanMaintenanceTransition("", next)); err != nil {
			return nil, err
		}
	} else if err := s.applyVehicleEffects(ctx, m, PlanMaintenanceTransition(prev, next)); err != nil {
		return nil, err
	}

	if prev != next {
		s.transitioned(ctx, events.MaintenanceStatusChanged, "maintenance", m.ID, string(prev), string(next))
	}
	return m, nil
}

// Delete removes a record, returning its vehicle to service first when the
// record was in progress.
func (s *MaintenanceService) Delete(ctx context.Context, id primitive.ObjectID) error {
	m, err := s.store.Maintenance.FindMaintenanceByID(ctx, id)
	if err != nil {
		return notFound(err, "Maintenance record")
	}
	if m.Status == models.MaintenanceInProgress {
		if err := s.leaveMaintenance(ctx, m.VehicleID, m.ID); err != nil {
			return err
		}
	}
	return notFound(s.store.Maintenance.DeleteMaintenance(ctx, id), "Maintenance record")
}

func (s *MaintenanceService) Stats(ctx context.Context) (*MaintenanceStats, error) {
	items, total, err := s.store.Maintenance.FindMaintenance(ctx, db.MaintenanceFilter{}, db.ListOptions{})
	if err != nil {
		return nil, err
	}
	stats := &MaintenanceStats{Total: total, ByStatus: map[string]int64{}, CostByType: map[string]float64{}}
	now := time.Now()
	horizon := now.AddDate(0, 0, 7)
	for _, m := range items {
		stats.ByStatus[string(m.Status)]++
		if m.Status == models.MaintenanceCompleted {
			stats.TotalCost += m.Cost
			stats.CostByType[m.Type] += m.Cost
		}
		if m.Status == models.MaintenanceScheduled && m.DateScheduled != nil &&
			!m.DateScheduled.Before(now) && m.DateScheduled.Before(horizon) {
			stats.UpcomingIn7++
		}
	}
	return stats, nil
}

func (s *MaintenanceService) applyVehicleEffects(ctx context.Context, m *models.Maintenance, eff MaintenanceEffects) error {
	entry := s.log.WithField("vehicle_id", m.VehicleID.Hex())
	switch {
	case eff.EnterMaintenance:
		if err := s.store.Vehicles.SetVehicleStatus(ctx, m.VehicleID, models.VehicleMaintenance); err != nil {
			return notFound(err, "Vehicle")
		}
		entry.Info("Vehicle entered maintenance")
	case eff.MarkServiced:
		at := time.Now()
		if m.DateCompleted != nil {
			at = *m.DateCompleted
		}
		status, err := s.statusAfterMaintenance(ctx, m.VehicleID, m.ID)
		if err != nil {
			return err
		}
		if err := s.store.Vehicles.MarkVehicleServiced(ctx, m.VehicleID, at, status); err != nil {
			return notFound(err, "Vehicle")
		}
		entry.WithField("service_date", at).Info("Vehicle serviced")
	case eff.LeaveMaintenance:
		return s.leaveMaintenance(ctx, m.VehicleID, m.ID)
	}
	return nil
}

// leaveMaintenance puts a vehicle back in service unless another record still
// holds it in maintenance.
func (s *MaintenanceService) leaveMaintenance(ctx context.Context, vehicleID, recordID primitive.ObjectID) error {
	status, err := s.statusAfterMaintenance(ctx, vehicleID, recordID)
	if err != nil || status != models.VehicleActive {
		return err
	}
	err = s.store.Vehicles.SetVehicleStatus(ctx, vehicleID, models.VehicleActive, models.VehicleMaintenance)
	if errors.Is(err, db.ErrPreconditionFailed) || errors.Is(err, db.ErrNotFound) {
		s.log.WithField("vehicle_id", vehicleID.Hex()).Warn("Vehicle was not in maintenance; status left unchanged")
		return nil
	}
	if err == nil {
		s.log.WithField("vehicle_id", vehicleID.Hex()).Info("Vehicle left maintenance")
	}
	return err
}

// statusAfterMaintenance is maintenance while another in-progress record for
// the vehicle exists, else active.
func (s *MaintenanceService) statusAfterMaintenance(ctx context.Context, vehicleID, recordID primitive.ObjectID) (models.VehicleStatus, error) {
	_, others, err := s.store.Maintenance.FindMaintenance(ctx, db.MaintenanceFilter{
		Status:    models.MaintenanceInProgress,
		VehicleID: &vehicleID,
		ExcludeID: &recordID,
	}, db.ListOptions{Page: 1, Limit: 1})
	if err != nil {
		return "", err
	}
	if others > 0 {
		return models.VehicleMaintenance, nil
	}
	return models.VehicleActive, nil
}
