package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VehicleService struct {
	base
}

// VehicleStats summarises the fleet.
type VehicleStats struct {
	Total          int64            `json:"total"`
	ByStatus       map[string]int64 `json:"byStatus"`
	ByFuelType     map[string]int64 `json:"byFuelType"`
	Assigned       int64            `json:"assigned"`
	TotalMileage   float64          `json:"totalMileage"`
	AverageMileage float64          `json:"averageMileage"`
}

func (s *VehicleService) List(ctx context.Context, filter db.VehicleFilter, opts db.ListOptions) (Page[models.Vehicle], error) {
	items, total, err := s.store.Vehicles.FindVehicles(ctx, filter, opts)
	if err != nil {
		return Page[models.Vehicle]{}, err
	}
	return newPage(items, total, opts), nil
}

func (s *VehicleService) Get(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	v, err := s.store.Vehicles.FindVehicleByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Vehicle")
	}
	return v, nil
}

func (s *VehicleService) Create(ctx context.Context, in models.VehicleInput) (*models.Vehicle, error) {
	if in.Status == "" {
		in.Status = models.VehicleActive
	}
	if in.Status == models.VehicleMaintenance {
		return nil, Validation("Vehicle status maintenance is managed by maintenance records")
	}
	if in.FuelType == "" {
		in.FuelType = "gasoline"
	}
	v := &models.Vehicle{
		Make:               in.Make,
		Model:              in.Model,
		Year:               in.Year,
		LicensePlate:       strings.ToUpper(strings.TrimSpace(in.LicensePlate)),
		VIN:                in.VIN,
		Type:               in.Type,
		Status:             in.Status,
		FuelType:           in.FuelType,
		Mileage:            in.Mileage,
		LastServiceDate:    in.LastServiceDate,
		RegistrationExpiry: in.RegistrationExpiry,
		InsuranceExpiry:    in.InsuranceExpiry,
		CurrentLocation:    in.CurrentLocation,
		Notes:              in.Notes,
	}
	if err := s.store.Vehicles.InsertVehicle(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Update writes the supplied fields. A status change is applied only while
// the vehicle still has the status this request read, so a maintenance job
// that starts or ends concurrently is never overwritten. Entering or leaving
// maintenance goes through maintenance records.
func (s *VehicleService) Update(ctx context.Context, id primitive.ObjectID, upd models.VehicleUpdate) (*models.Vehicle, error) {
	v, err := s.store.Vehicles.FindVehicleByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Vehicle")
	}
	status := upd.Status
	upd.Status = nil
	if status != nil && *status == v.Status {
		status = nil
	}
	if status != nil && (v.Status == models.VehicleMaintenance || *status == models.VehicleMaintenance) {
		return nil, Validation("Vehicle status maintenance is managed by maintenance records")
	}
	if upd.LicensePlate != nil {
		plate := strings.ToUpper(strings.TrimSpace(*upd.LicensePlate))
		upd.LicensePlate = &plate
	}

	undo := &undoStack{log: s.log}
	if status != nil {
		prev := v.Status
		err := s.store.Vehicles.SetVehicleStatus(ctx, id, *status, prev)
		if errors.Is(err, db.ErrPreconditionFailed) {
			return nil, Validation("Vehicle status changed while updating; reload and retry")
		}
		if err != nil {
			return nil, notFound(err, "Vehicle")
		}
		undo.push(func(ctx context.Context) error {
			return s.store.Vehicles.SetVehicleStatus(ctx, id, prev, *status)
		})
	}
	if err := s.store.Vehicles.UpdateVehicle(ctx, id, upd); err != nil {
		undo.run(ctx)
		return nil, notFound(err, "Vehicle")
	}
	return s.Get(ctx, id)
}

// Delete refuses vehicles that still have a driver assigned.
func (s *VehicleService) Delete(ctx context.Context, id primitive.ObjectID) error {
	err := s.store.Vehicles.DeleteVehicle(ctx, id)
	if errors.Is(err, db.ErrPreconditionFailed) {
		return Validation("Cannot delete a vehicle that is assigned to a driver; unassign it first")
	}
	return notFound(err, "Vehicle")
}

func (s *VehicleService) Stats(ctx context.Context) (*VehicleStats, error) {
	items, total, err := s.store.Vehicles.FindVehicles(ctx, db.VehicleFilter{}, db.ListOptions{})
	if err != nil {
		return nil, err
	}
	stats := &VehicleStats{Total: total, ByStatus: map[string]int64{}, ByFuelType: map[string]int64{}}
	for _, v := range items {
		stats.ByStatus[string(v.Status)]++
		stats.ByFuelType[v.FuelType]++
		if v.CurrentDriver != nil {
			stats.Assigned++
		}
		stats.TotalMileage += v.Mileage
	}
	if len(items) > 0 {
		stats.AverageMileage = stats.TotalMileage / float64(len(items))
	}
	return stats, nil
}
