package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/events"
	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripService owns trips and the driver status they imply.
type TripService struct {
	base
}

// TripStats summarises the trips visible to the caller.
type TripStats struct {
	Total           int64            `json:"total"`
	ByStatus        map[string]int64 `json:"byStatus"`
	TotalDistance   float64          `json:"totalDistance"`
	AverageDistance float64          `json:"averageDistance"`
}

// List returns trips; drivers only see their own.
func (s *TripService) List(ctx context.Context, actor Actor, filter db.TripFilter, opts db.ListOptions) (Page[models.Trip], error) {
	if actor.IsDriver() {
		d, err := s.driverProfile(ctx, actor)
		if err != nil {
			return Page[models.Trip]{}, err
		}
		filter.DriverID = &d.ID
	}
	items, total, err := s.store.Trips.FindTrips(ctx, filter, opts)
	if err != nil {
		return Page[models.Trip]{}, err
	}
	return newPage(items, total, opts), nil
}

func (s *TripService) Get(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Trip, error) {
	trip, err := s.store.Trips.FindTripByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Trip")
	}
	if err := s.checkOwner(ctx, actor, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

func (s *TripService) checkOwner(ctx context.Context, actor Actor, trip *models.Trip) error {
	if !actor.IsDriver() {
		return nil
	}
	d, err := s.driverProfile(ctx, actor)
	if err != nil {
		return err
	}
	if trip.DriverID != d.ID {
		return Forbidden("You can only access your own trips")
	}
	return nil
}

// Create schedules a trip, or starts it right away when the input status is
// in_progress.
func (s *TripService) Create(ctx context.Context, actor Actor, in models.TripInput) (*models.Trip, error) {
	if in.Status == "" {
		in.Status = models.TripScheduled
	}
	if _, err := s.activeVehicle(ctx, in.VehicleID); err != nil {
		return nil, err
	}
	driver, err := s.store.Drivers.FindDriverByID(ctx, in.DriverID)
	if err != nil {
		return nil, missingRef(err, "Driver")
	}
	if driver.Status != models.DriverAvailable {
		return nil, Validation("Driver is not available (current status: %s)", driver.Status)
	}

	trip := &models.Trip{
		VehicleID:         in.VehicleID,
		DriverID:          in.DriverID,
		Origin:            in.Origin,
		Destination:       in.Destination,
		StartTime:         in.StartTime,
		EstimatedDistance: in.EstimatedDistance,
		Purpose:           in.Purpose,
		Status:            in.Status,
		Notes:             in.Notes,
		CreatedBy:         actor.UserID,
	}

	if now := time.Now(); trip.Status == models.TripInProgress && trip.StartTime.After(now) {
		trip.StartTime = now
	}

	undo := &undoStack{log: s.log}
	acquire := PlanTripTransition("", trip.Status).AcquireDriver
	if acquire {
		if err := s.acquireDriver(ctx, trip.DriverID, undo); err != nil {
			return nil, err
		}
	}
	if err := s.store.Trips.InsertTrip(ctx, trip); err != nil {
		undo.run(ctx)
		return nil, err
	}
	if acquire {
		s.driverAcquired(ctx, trip.DriverID)
	}
	s.transitioned(ctx, events.TripStatusChanged, "trip", trip.ID, "", string(trip.Status))
	return trip, nil
}

// Update applies a partial update and keeps driver status consistent with
// the trip's status. Drivers may only advance their own trips along
// scheduled -> in_progress -> completed.
func (s *TripService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, upd models.TripUpdate) (*models.Trip, error) {
	trip, err := s.store.Trips.FindTripByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Trip")
	}
	if err := s.checkOwner(ctx, actor, trip); err != nil {
		return nil, err
	}

	prev := trip.Status
	next := prev
	if upd.Status != nil {
		next = *upd.Status
	}
	if actor.IsDriver() {
		if upd.VehicleID != nil || upd.DriverID != nil || upd.Origin != nil || upd.Destination != nil ||
			upd.StartTime != nil || upd.EndTime != nil || upd.EstimatedDistance != nil || upd.Purpose != nil {
			return nil, Validation("Drivers can only update status, actualDistance and notes")
		}
		if !DriverMayTransition(prev, next) {
			return nil, Validation("Drivers cannot change trip status from %s to %s", prev, next)
		}
	}

	oldDriver := trip.DriverID
	newDriver := oldDriver
	if upd.DriverID != nil {
		newDriver = *upd.DriverID
	}
	driverChanged := newDriver != oldDriver
	vehicleChanged := upd.VehicleID != nil && *upd.VehicleID != trip.VehicleID

	upd.Apply(trip)
	trip.Status = next
	trip.DriverID = newDriver
	if upd.VehicleID != nil {
		trip.VehicleID = *upd.VehicleID
	}
	// startTime holds the actual start once a trip is running.
	if next == models.TripInProgress && prev != models.TripInProgress && upd.StartTime == nil {
		trip.StartTime = time.Now()
	}
	if next == models.TripCompleted && prev != models.TripCompleted && trip.EndTime == nil {
		now := time.Now()
		trip.EndTime = &now
	}

	eff := PlanTripTransition(prev, next)
	undo := &undoStack{log: s.log}

	// Reassignment: release the old driver before validating the new pair.
	if driverChanged && prev == models.TripInProgress {
		released, err := s.releaseDriver(ctx, oldDriver)
		if err != nil {
			return nil, err
		}
		if released {
			undo.push(func(ctx context.Context) error {
				return s.store.Drivers.TransitionDriverStatus(ctx, oldDriver,
					[]models.DriverStatus{models.DriverAvailable}, models.DriverOnTrip)
			})
		}
	}
	if vehicleChanged || (next == models.TripInProgress && (eff.AcquireDriver || driverChanged)) {
		if _, err := s.activeVehicle(ctx, trip.VehicleID); err != nil {
			undo.run(ctx)
			return nil, err
		}
	}
	acquire := next == models.TripInProgress && (eff.AcquireDriver || driverChanged)
	switch {
	case acquire:
		if err := s.acquireDriver(ctx, newDriver, undo); err != nil {
			undo.run(ctx)
			return nil, err
		}
	case driverChanged:
		d, err := s.store.Drivers.FindDriverByID(ctx, newDriver)
		if err != nil {
			undo.run(ctx)
			return nil, missingRef(err, "Driver")
		}
		if d.Status != models.DriverAvailable {
			undo.run(ctx)
			return nil, Validation("Driver is not available (current status: %s)", d.Status)
		}
	}

	if err := s.store.Trips.UpdateTrip(ctx, trip, prev); err != nil {
		undo.run(ctx)
		if errors.Is(err, db.ErrNotFound) {
			return nil, NotFound("Trip")
		}
		return nil, err
	}

	if acquire {
		s.driverAcquired(ctx, newDriver)
	}
	s.afterCommit(ctx, trip, prev, eff, driverChanged)
	if prev != next {
		s.transitioned(ctx, events.TripStatusChanged, "trip", trip.ID, string(prev), string(next))
	}
	return trip, nil
}

// afterCommit applies the driver writes that follow a committed trip write.
func (s *TripService) afterCommit(ctx context.Context, trip *models.Trip, prev models.TripStatus, eff TripEffects, driverChanged bool) {
	entry := s.log.WithFields(log.Fields{"trip_id": trip.ID.Hex(), "driver_id": trip.DriverID.Hex()})
	switch {
	case eff.CountCompletion:
		release := eff.ReleaseDriver && !driverChanged
		if err := s.store.Drivers.RecordTripCompletion(ctx, trip.DriverID, trip.ActualDistance, release); err != nil {
			entry.WithError(err).Error("Failed to record trip completion")
			return
		}
		entry.WithField("distance", trip.ActualDistance).Info("Trip completed")
		if release {
			s.transitioned(ctx, events.DriverAssignmentChanged, "driver", trip.DriverID, string(models.DriverOnTrip), string(models.DriverAvailable))
		}
	case eff.ReleaseDriver && !driverChanged:
		if _, err := s.releaseDriver(ctx, trip.DriverID); err != nil {
			entry.WithError(err).Warn("Failed to release driver")
		}
	}
}

// Delete removes a trip, releasing its driver first when it is running.
func (s *TripService) Delete(ctx context.Context, id primitive.ObjectID) error {
	trip, err := s.store.Trips.FindTripByID(ctx, id)
	if err != nil {
		return notFound(err, "Trip")
	}
	if trip.Status == models.TripInProgress {
		if _, err := s.releaseDriver(ctx, trip.DriverID); err != nil {
			return err
		}
	}
	return notFound(s.store.Trips.DeleteTrip(ctx, id), "Trip")
}

func (s *TripService) Stats(ctx context.Context, actor Actor) (*TripStats, error) {
	page, err := s.List(ctx, actor, db.TripFilter{}, db.ListOptions{})
	if err != nil {
		return nil, err
	}
	stats := &TripStats{Total: page.Total, ByStatus: map[string]int64{}}
	var completed int64
	for _, t := range page.Items {
		stats.ByStatus[string(t.Status)]++
		if t.Status == models.TripCompleted {
			stats.TotalDistance += t.ActualDistance
			completed++
		}
	}
	if completed > 0 {
		stats.AverageDistance = stats.TotalDistance / float64(completed)
	}
	return stats, nil
}

func (s *TripService) activeVehicle(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	v, err := s.store.Vehicles.FindVehicleByID(ctx, id)
	if err != nil {
		return nil, missingRef(err, "Vehicle")
	}
	if v.Status != models.VehicleActive {
		return nil, Validation("Vehicle is not active (current status: %s)", v.Status)
	}
	return v, nil
}

// acquireDriver moves a driver from available to on_trip and registers the
// reverse write on undo.
func (s *TripService) acquireDriver(ctx context.Context, id primitive.ObjectID, undo *undoStack) error {
	err := s.store.Drivers.TransitionDriverStatus(ctx, id,
		[]models.DriverStatus{models.DriverAvailable}, models.DriverOnTrip)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return Validation("Driver not found")
	case errors.Is(err, db.ErrPreconditionFailed):
		status := "unknown"
		if d, ferr := s.store.Drivers.FindDriverByID(ctx, id); ferr == nil {
			status = string(d.Status)
		}
		return Validation("Driver is not available (current status: %s)", status)
	case err != nil:
		return err
	}
	undo.push(func(ctx context.Context) error {
		return s.store.Drivers.TransitionDriverStatus(ctx, id,
			[]models.DriverStatus{models.DriverOnTrip}, models.DriverAvailable)
	})
	return nil
}

func (s *TripService) driverAcquired(ctx context.Context, id primitive.ObjectID) {
	s.log.WithField("driver_id", id.Hex()).Info("Driver is on a trip")
	s.transitioned(ctx, events.DriverAssignmentChanged, "driver", id, string(models.DriverAvailable), string(models.DriverOnTrip))
}

// releaseDriver moves a driver from on_trip back to available. A driver no
// longer on a trip is left alone and released is false.
func (s *TripService) releaseDriver(ctx context.Context, id primitive.ObjectID) (released bool, err error) {
	err = s.store.Drivers.TransitionDriverStatus(ctx, id,
		[]models.DriverStatus{models.DriverOnTrip}, models.DriverAvailable)
	if errors.Is(err, db.ErrPreconditionFailed) || errors.Is(err, db.ErrNotFound) {
		s.log.WithField("driver_id", id.Hex()).Warn("Driver was not on a trip; nothing to release")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.log.WithField("driver_id", id.Hex()).Info("Driver released")
	s.transitioned(ctx, events.DriverAssignmentChanged, "driver", id, string(models.DriverOnTrip), string(models.DriverAvailable))
	return true, nil
}
