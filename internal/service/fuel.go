package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FuelService struct {
	base
}

// FuelStats summarises fuel purchases.
type FuelStats struct {
	Records           int64              `json:"records"`
	TotalLiters       float64            `json:"totalLiters"`
	TotalCost         float64            `json:"totalCost"`
	AveragePrice      float64            `json:"averagePricePerLiter"`
	CostByFuelType    map[string]float64 `json:"costByFuelType"`
	TotalDistance     float64            `json:"totalDistance"`
	AverageKmPerLiter float64            `json:"averageKmPerLiter"`
}

// VehicleEfficiency is one row of the efficiency report.
type VehicleEfficiency struct {
	VehicleID    primitive.ObjectID `json:"vehicleId"`
	LicensePlate string             `json:"licensePlate"`
	Make         string             `json:"make"`
	Model        string             `json:"model"`
	FuelType     string             `json:"fuelType"`
	Records      int64              `json:"records"`
	Liters       float64            `json:"liters"`
	Distance     float64            `json:"distance"`
	Cost         float64            `json:"cost"`
	KmPerLiter   float64            `json:"kmPerLiter"`
	CostPerKm    float64            `json:"costPerKm"`
}

// List returns fuel records; drivers only see their own.
func (s *FuelService) List(ctx context.Context, actor Actor, filter db.FuelFilter, opts db.ListOptions) (Page[models.Fuel], error) {
	if actor.IsDriver() {
		d, err := s.driverProfile(ctx, actor)
		if err != nil {
			return Page[models.Fuel]{}, err
		}
		filter.DriverID = &d.ID
	}
	items, total, err := s.store.Fuel.FindFuel(ctx, filter, opts)
	if err != nil {
		return Page[models.Fuel]{}, err
	}
	return newPage(items, total, opts), nil
}

func (s *FuelService) Get(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Fuel, error) {
	f, err := s.store.Fuel.FindFuelByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Fuel record")
	}
	if actor.IsDriver() {
		d, err := s.driverProfile(ctx, actor)
		if err != nil {
			return nil, err
		}
		if f.DriverID == nil || *f.DriverID != d.ID {
			return nil, Forbidden("You can only access your own fuel records")
		}
	}
	return f, nil
}

// Create records a fill-up. The total cost defaults to amount × price and the
// previous odometer to the vehicle's latest reading.
func (s *FuelService) Create(ctx context.Context, actor Actor, in models.FuelInput) (*models.Fuel, error) {
	vehicle, err := s.store.Vehicles.FindVehicleByID(ctx, in.VehicleID)
	if err != nil {
		return nil, missingRef(err, "Vehicle")
	}

	driverID := in.DriverID
	if actor.IsDriver() {
		d, err := s.driverProfile(ctx, actor)
		if err != nil {
			return nil, err
		}
		if driverID != nil && *driverID != d.ID {
			return nil, Forbidden("Drivers can only record their own fuel")
		}
		driverID = &d.ID
	} else if driverID != nil {
		if _, err := s.store.Drivers.FindDriverByID(ctx, *driverID); err != nil {
			return nil, missingRef(err, "Driver")
		}
	}

	f := &models.Fuel{
		VehicleID:  in.VehicleID,
		DriverID:   driverID,
		Date:       time.Now(),
		FuelAmount: in.FuelAmount,
		FuelPrice:  in.FuelPrice,
		Odometer:   in.Odometer,
		FuelType:   in.FuelType,
		Station:    in.Station,
		Notes:      in.Notes,
		CreatedBy:  actor.UserID,
	}
	if in.Date != nil {
		f.Date = *in.Date
	}
	if f.FuelType == "" {
		f.FuelType = vehicle.FuelType
	}
	if in.TotalCost != nil {
		f.TotalCost = *in.TotalCost
	} else {
		f.TotalCost = models.FuelCost(f.FuelAmount, f.FuelPrice)
	}
	if in.PreviousOdometer != nil {
		f.PreviousOdometer = *in.PreviousOdometer
	} else {
		prev, err := s.previousOdometer(ctx, vehicle, f.Odometer)
		if err != nil {
			return nil, err
		}
		f.PreviousOdometer = prev
	}
	if f.Odometer < f.PreviousOdometer {
		return nil, Validation("odometer (%.0f) cannot be lower than previousOdometer (%.0f)", f.Odometer, f.PreviousOdometer)
	}

	if err := s.store.Fuel.InsertFuel(ctx, f); err != nil {
		return nil, err
	}
	if f.Odometer > vehicle.Mileage {
		if err := s.store.Vehicles.SetVehicleMileage(ctx, vehicle.ID, f.Odometer); err != nil {
			s.log.WithError(err).WithField("vehicle_id", vehicle.ID.Hex()).Warn("Failed to update vehicle mileage")
		}
	}
	return f, nil
}

// previousOdometer is the odometer of the vehicle's latest fuel record, or
// the vehicle's mileage when there is none and it is not ahead of current.
func (s *FuelService) previousOdometer(ctx context.Context, vehicle *models.Vehicle, current float64) (float64, error) {
	latest, _, err := s.store.Fuel.FindFuel(ctx, db.FuelFilter{VehicleID: &vehicle.ID}, db.ListOptions{Page: 1, Limit: 1})
	if err != nil {
		return 0, err
	}
	if len(latest) > 0 {
		return latest[0].Odometer, nil
	}
	if vehicle.Mileage > 0 && vehicle.Mileage <= current {
		return vehicle.Mileage, nil
	}
	return current, nil
}

func (s *FuelService) Update(ctx context.Context, id primitive.ObjectID, upd models.FuelUpdate) (*models.Fuel, error) {
	f, err := s.store.Fuel.FindFuelByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Fuel record")
	}
	if upd.DriverID != nil {
		if _, err := s.store.Drivers.FindDriverByID(ctx, *upd.DriverID); err != nil {
			return nil, missingRef(err, "Driver")
		}
	}
	upd.Apply(f)
	if f.Odometer < f.PreviousOdometer {
		return nil, Validation("odometer (%.0f) cannot be lower than previousOdometer (%.0f)", f.Odometer, f.PreviousOdometer)
	}
	if err := s.store.Fuel.UpdateFuel(ctx, f); err != nil {
		return nil, notFound(err, "Fuel record")
	}
	return f, nil
}

func (s *FuelService) Delete(ctx context.Context, id primitive.ObjectID) error {
	return notFound(s.store.Fuel.DeleteFuel(ctx, id), "Fuel record")
}

func (s *FuelService) Stats(ctx context.Context, filter db.FuelFilter) (*FuelStats, error) {
	items, total, err := s.store.Fuel.FindFuel(ctx, filter, db.ListOptions{})
	if err != nil {
		return nil, err
	}
	stats := &FuelStats{Records: total, CostByFuelType: map[string]float64{}}
	for _, f := range items {
		stats.TotalLiters += f.FuelAmount
		stats.TotalCost += f.TotalCost
		stats.CostByFuelType[f.FuelType] += f.TotalCost
		stats.TotalDistance += f.Distance()
	}
	if stats.TotalLiters > 0 {
		stats.AveragePrice = round2(stats.TotalCost / stats.TotalLiters)
		stats.AverageKmPerLiter = round2(stats.TotalDistance / stats.TotalLiters)
	}
	stats.TotalCost = round2(stats.TotalCost)
	return stats, nil
}

// EfficiencyReport computes distance per litre and cost per kilometre for
// each vehicle with fuel records in the range.
func (s *FuelService) EfficiencyReport(ctx context.Context, from, to *time.Time) ([]VehicleEfficiency, error) {
	items, _, err := s.store.Fuel.FindFuel(ctx, db.FuelFilter{From: from, To: to}, db.ListOptions{})
	if err != nil {
		return nil, err
	}
	rows := map[primitive.ObjectID]*VehicleEfficiency{}
	for _, f := range items {
		row, ok := rows[f.VehicleID]
		if !ok {
			row = &VehicleEfficiency{VehicleID: f.VehicleID}
			rows[f.VehicleID] = row
		}
		row.Records++
		row.Liters += f.FuelAmount
		row.Distance += f.Distance()
		row.Cost += f.TotalCost
	}

	out := make([]VehicleEfficiency, 0, len(rows))
	for id, row := range rows {
		if v, err := s.store.Vehicles.FindVehicleByID(ctx, id); err == nil {
			row.LicensePlate, row.Make, row.Model, row.FuelType = v.LicensePlate, v.Make, v.Model, v.FuelType
		}
		if row.Liters > 0 {
			row.KmPerLiter = round2(row.Distance / row.Liters)
		}
		if row.Distance > 0 {
			row.CostPerKm = round2(row.Cost / row.Distance)
		}
		row.Cost = round2(row.Cost)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KmPerLiter > out[j].KmPerLiter })
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
