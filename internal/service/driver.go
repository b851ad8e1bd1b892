package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/events"
	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DriverService owns driver profiles, their login accounts and the
// driver <-> vehicle assignment.
type DriverService struct {
	base
	hasher Hasher
}

// DriverStats summarises the driver pool.
type DriverStats struct {
	Total            int64            `json:"total"`
	ByStatus         map[string]int64 `json:"byStatus"`
	Assigned         int64            `json:"assigned"`
	TotalTrips       int64            `json:"totalTrips"`
	TotalDistance    float64          `json:"totalDistance"`
	AverageRating    float64          `json:"averageRating"`
	LicensesExpiring int64            `json:"licensesExpiringIn60Days"`
}

func (s *DriverService) List(ctx context.Context, filter db.DriverFilter, opts db.ListOptions) (Page[models.Driver], error) {
	items, total, err := s.store.Drivers.FindDrivers(ctx, filter, opts)
	if err != nil {
		return Page[models.Driver]{}, err
	}
	return newPage(items, total, opts), nil
}

func (s *DriverService) Get(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	d, err := s.store.Drivers.FindDriverByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Driver")
	}
	return d, nil
}

// Create adds a driver, optionally with a linked driver-role account, and
// assigns the requested vehicle.
func (s *DriverService) Create(ctx context.Context, in models.DriverInput) (*models.Driver, error) {
	if in.Status == "" {
		in.Status = models.DriverAvailable
	}
	if in.Email != "" && in.Password == "" {
		return nil, Validation("password is required when email is set")
	}
	undo := &undoStack{log: s.log}

	d := &models.Driver{
		Name:              in.Name,
		Phone:             in.Phone,
		LicenseNumber:     strings.TrimSpace(in.LicenseNumber),
		LicenseExpiry:     in.LicenseExpiry,
		Status:            in.Status,
		PerformanceRating: in.PerformanceRating,
		Notes:             in.Notes,
	}
	if in.Email != "" {
		hash, err := s.hasher.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user := &models.User{
			Name:         in.Name,
			Email:        in.Email,
			PasswordHash: hash,
			Role:         models.RoleDriver,
			Phone:        in.Phone,
			IsActive:     true,
		}
		if err := s.store.Users.InsertUser(ctx, user); err != nil {
			return nil, err
		}
		userID := user.ID
		d.User = &userID
		undo.push(func(ctx context.Context) error {
			return s.store.Users.DeleteUser(ctx, userID.Hex())
		})
	}

	if err := s.store.Drivers.InsertDriver(ctx, d); err != nil {
		undo.run(ctx)
		return nil, err
	}
	if in.AssignedVehicle != nil {
		undo.push(func(ctx context.Context) error {
			return s.store.Drivers.DeleteDriver(ctx, d.ID)
		})
		if err := s.assignVehicle(ctx, d, *in.AssignedVehicle); err != nil {
			undo.run(ctx)
			return nil, err
		}
	}
	return d, nil
}

// Update changes the profile, the duty status and the vehicle assignment.
// The on_trip status is owned by trips and cannot be set or left here.
func (s *DriverService) Update(ctx context.Context, id primitive.ObjectID, upd models.DriverUpdate) (*models.Driver, error) {
	d, err := s.store.Drivers.FindDriverByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Driver")
	}

	if upd.Status != nil && *upd.Status != d.Status {
		if d.Status == models.DriverOnTrip || *upd.Status == models.DriverOnTrip {
			return nil, Validation("Driver status on_trip is managed by trips")
		}
	}

	upd.Apply(d)
	if err := s.store.Drivers.UpdateDriver(ctx, d); err != nil {
		return nil, notFound(err, "Driver")
	}

	if upd.Status != nil && *upd.Status != d.Status {
		from := d.Status
		err := s.store.Drivers.TransitionDriverStatus(ctx, id, []models.DriverStatus{from}, *upd.Status)
		if errors.Is(err, db.ErrPreconditionFailed) {
			return nil, Validation("Driver status changed concurrently; reload and retry")
		}
		if err != nil {
			return nil, notFound(err, "Driver")
		}
		d.Status = *upd.Status
		s.transitioned(ctx, events.DriverAssignmentChanged, "driver", id, string(from), string(d.Status))
	}

	switch {
	case upd.ClearVehicle && d.AssignedVehicle != nil:
		if err := s.unassignVehicle(ctx, d); err != nil {
			return nil, err
		}
	case upd.AssignedVehicle != nil && (d.AssignedVehicle == nil || *d.AssignedVehicle != *upd.AssignedVehicle):
		if err := s.reassignVehicle(ctx, d, *upd.AssignedVehicle); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Delete unassigns the driver's vehicle, then removes the driver and its
// linked account.
func (s *DriverService) Delete(ctx context.Context, id primitive.ObjectID) error {
	d, err := s.store.Drivers.FindDriverByID(ctx, id)
	if err != nil {
		return notFound(err, "Driver")
	}
	if d.Status == models.DriverOnTrip {
		return Validation("Cannot delete a driver who is on a trip")
	}
	if d.AssignedVehicle != nil {
		if err := s.store.Vehicles.ReleaseVehicleDriver(ctx, *d.AssignedVehicle, d.VehicleRef()); err != nil {
			return err
		}
	}
	if err := s.store.Drivers.DeleteDriver(ctx, id); err != nil {
		return notFound(err, "Driver")
	}
	if d.User != nil {
		if err := s.store.Users.DeleteUser(ctx, d.User.Hex()); err != nil && !errors.Is(err, db.ErrNotFound) {
			s.log.WithError(err).WithField("user_id", d.User.Hex()).Warn("Failed to delete driver account")
		}
	}
	return nil
}

func (s *DriverService) Stats(ctx context.Context) (*DriverStats, error) {
	items, total, err := s.store.Drivers.FindDrivers(ctx, db.DriverFilter{}, db.ListOptions{})
	if err != nil {
		return nil, err
	}
	stats := &DriverStats{Total: total, ByStatus: map[string]int64{}}
	horizon := time.Now().AddDate(0, 0, 60)
	var ratingSum float64
	for _, d := range items {
		stats.ByStatus[string(d.Status)]++
		if d.AssignedVehicle != nil {
			stats.Assigned++
		}
		stats.TotalTrips += int64(d.TotalTrips)
		stats.TotalDistance += d.TotalDistance
		ratingSum += d.PerformanceRating
		if d.LicenseExpiry.Before(horizon) {
			stats.LicensesExpiring++
		}
	}
	if total > 0 {
		stats.AverageRating = ratingSum / float64(len(items))
	}
	return stats, nil
}

// assignVehicle points vehicleID's current driver at d and records the
// vehicle on d. A vehicle held by another driver is refused.
func (s *DriverService) assignVehicle(ctx context.Context, d *models.Driver, vehicleID primitive.ObjectID) error {
	err := s.store.Vehicles.AssignVehicleDriver(ctx, vehicleID, d.VehicleRef())
	switch {
	case errors.Is(err, db.ErrNotFound):
		return Validation("Vehicle not found")
	case errors.Is(err, db.ErrPreconditionFailed):
		return Validation("Vehicle is already assigned to another driver")
	case err != nil:
		return err
	}
	if err := s.store.Drivers.SetDriverVehicle(ctx, d.ID, &vehicleID); err != nil {
		if rerr := s.store.Vehicles.ReleaseVehicleDriver(ctx, vehicleID, d.VehicleRef()); rerr != nil {
			s.log.WithError(rerr).Error("Compensating vehicle release failed")
		}
		return err
	}
	d.AssignedVehicle = &vehicleID
	s.transitioned(ctx, events.DriverAssignmentChanged, "driver", d.ID, "", vehicleID.Hex())
	return nil
}

func (s *DriverService) unassignVehicle(ctx context.Context, d *models.Driver) error {
	old := *d.AssignedVehicle
	if err := s.store.Vehicles.ReleaseVehicleDriver(ctx, old, d.VehicleRef()); err != nil {
		return err
	}
	if err := s.store.Drivers.SetDriverVehicle(ctx, d.ID, nil); err != nil {
		return err
	}
	d.AssignedVehicle = nil
	s.transitioned(ctx, events.DriverAssignmentChanged, "driver", d.ID, old.Hex(), "")
	return nil
}

// reassignVehicle clears the previous vehicle before taking the new one and
// restores the previous assignment when the new vehicle cannot be taken.
func (s *DriverService) reassignVehicle(ctx context.Context, d *models.Driver, vehicleID primitive.ObjectID) error {
	previous := d.AssignedVehicle
	if previous != nil {
		if err := s.store.Vehicles.ReleaseVehicleDriver(ctx, *previous, d.VehicleRef()); err != nil {
			return err
		}
	}
	if err := s.assignVehicle(ctx, d, vehicleID); err != nil {
		if previous != nil {
			if rerr := s.store.Vehicles.AssignVehicleDriver(ctx, *previous, d.VehicleRef()); rerr != nil {
				s.log.WithError(rerr).Error("Failed to restore previous vehicle assignment")
			}
		}
		return err
	}
	return nil
}
