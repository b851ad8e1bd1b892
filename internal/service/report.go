package service

import (
	"context"
	"sort"
	"time"

	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// serviceInterval is how long a vehicle may go without a service.
const serviceInterval = 3

type ReportService struct {
	base
}

type DailySummary struct {
	Date             string           `json:"date"`
	Trips            map[string]int64 `json:"trips"`
	DistanceCovered  float64          `json:"distanceCovered"`
	FuelLiters       float64          `json:"fuelLiters"`
	FuelCost         float64          `json:"fuelCost"`
	MaintenanceDone  int64            `json:"maintenanceCompleted"`
	MaintenanceCost  float64          `json:"maintenanceCost"`
	VehiclesByStatus map[string]int64 `json:"vehiclesByStatus"`
	DriversByStatus  map[string]int64 `json:"driversByStatus"`
	UnreadAlerts     int64            `json:"unreadAlerts"`
}

// MaintenanceDueItem is a vehicle that needs a service within the window.
type MaintenanceDueItem struct {
	VehicleID       primitive.ObjectID   `json:"vehicleId"`
	LicensePlate    string               `json:"licensePlate"`
	Make            string               `json:"make"`
	Model           string               `json:"model"`
	LastServiceDate *time.Time           `json:"lastServiceDate"`
	DueDate         *time.Time           `json:"dueDate"`
	Scheduled       []models.Maintenance `json:"scheduled"`
}

type VehiclePerformance struct {
	VehicleID       primitive.ObjectID `json:"vehicleId"`
	LicensePlate    string             `json:"licensePlate"`
	Trips           int64              `json:"trips"`
	Distance        float64            `json:"distance"`
	FuelCost        float64            `json:"fuelCost"`
	MaintenanceCost float64            `json:"maintenanceCost"`
	CostPerKm       float64            `json:"costPerKm"`
}

type DriverPerformance struct {
	DriverID          primitive.ObjectID `json:"driverId"`
	Name              string             `json:"name"`
	Trips             int64              `json:"trips"`
	Distance          float64            `json:"distance"`
	PerformanceRating float64            `json:"performanceRating"`
}

type FleetPerformance struct {
	From     *time.Time           `json:"from,omitempty"`
	To       *time.Time           `json:"to,omitempty"`
	Vehicles []VehiclePerformance `json:"vehicles"`
	Drivers  []DriverPerformance  `json:"drivers"`
}

// DailySummary reports activity for the calendar day containing day.
func (s *ReportService) DailySummary(ctx context.Context, day time.Time) (*DailySummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)

	var (
		trips    []models.Trip
		fuel     []models.Fuel
		maint    []models.Maintenance
		vehicles []models.Vehicle
		drivers  []models.Driver
		unread   int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		trips, _, err = s.store.Trips.FindTrips(gctx, db.TripFilter{From: &start, To: &end}, db.ListOptions{})
		return err
	})
	g.Go(func() (err error) {
		fuel, _, err = s.store.Fuel.FindFuel(gctx, db.FuelFilter{From: &start, To: &end}, db.ListOptions{})
		return err
	})
	g.Go(func() (err error) {
		maint, _, err = s.store.Maintenance.FindMaintenance(gctx, db.MaintenanceFilter{Status: models.MaintenanceCompleted}, db.ListOptions{})
		return err
	})
	g.Go(func() (err error) {
		vehicles, _, err = s.store.Vehicles.FindVehicles(gctx, db.VehicleFilter{}, db.ListOptions{})
		return err
	})
	g.Go(func() (err error) {
		drivers, _, err = s.store.Drivers.FindDrivers(gctx, db.DriverFilter{}, db.ListOptions{})
		return err
	})
	g.Go(func() (err error) {
		unread, err = s.store.Alerts.CountUnread(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := &DailySummary{
		Date:             start.Format("2006-01-02"),
		Trips:            map[string]int64{},
		VehiclesByStatus: map[string]int64{},
		DriversByStatus:  map[string]int64{},
		UnreadAlerts:     unread,
	}
	for _, t := range trips {
		sum.Trips[string(t.Status)]++
		if t.Status == models.TripCompleted {
			sum.DistanceCovered += t.ActualDistance
		}
	}
	for _, f := range fuel {
		sum.FuelLiters += f.FuelAmount
		sum.FuelCost += f.TotalCost
	}
	for _, m := range maint {
		if m.DateCompleted != nil && !m.DateCompleted.Before(start) && !m.DateCompleted.After(end) {
			sum.MaintenanceDone++
			sum.MaintenanceCost += m.Cost
		}
	}
	for _, v := range vehicles {
		sum.VehiclesByStatus[string(v.Status)]++
	}
	for _, d := range drivers {
		sum.DriversByStatus[string(d.Status)]++
	}
	sum.FuelCost = round2(sum.FuelCost)
	return sum, nil
}

// MaintenanceDue lists vehicles whose service falls due within days, together
// with any scheduled maintenance already booked for them.
func (s *ReportService) MaintenanceDue(ctx context.Context, days int) ([]MaintenanceDueItem, error) {
	if days <= 0 {
		days = 30
	}
	var (
		vehicles  []models.Vehicle
		scheduled []models.Maintenance
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		vehicles, _, err = s.store.Vehicles.FindVehicles(gctx, db.VehicleFilter{}, db.ListOptions{})
		return err
	})
	g.Go(func() (err error) {
		scheduled, _, err = s.store.Maintenance.FindMaintenance(gctx, db.MaintenanceFilter{Status: models.MaintenanceScheduled}, db.ListOptions{Ascending: true})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byVehicle := map[primitive.ObjectID][]models.Maintenance{}
	for _, m := range scheduled {
		byVehicle[m.VehicleID] = append(byVehicle[m.VehicleID], m)
	}

	horizon := time.Now().AddDate(0, 0, days)
	out := []MaintenanceDueItem{}
	for _, v := range vehicles {
		if v.Status == models.VehicleInactive {
			continue
		}
		var due *time.Time
		if v.LastServiceDate != nil {
			d := v.LastServiceDate.AddDate(0, serviceInterval, 0)
			due = &d
		}
		booked := byVehicle[v.ID]
		if due != nil && due.After(horizon) && len(booked) == 0 {
			continue
		}
		if booked == nil {
			booked = []models.Maintenance{}
		}
		out = append(out, MaintenanceDueItem{
			VehicleID:       v.ID,
			LicensePlate:    v.LicensePlate,
			Make:            v.Make,
			Model:           v.Model,
			LastServiceDate: v.LastServiceDate,
			DueDate:         due,
			Scheduled:       booked,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		// never serviced first, then earliest due date
		if out[i].DueDate == nil || out[j].DueDate == nil {
			return out[i].DueDate == nil && out[j].DueDate != nil
		}
		return out[i].DueDate.Before(*out[j].DueDate)
	})
	return out, nil
}

// FleetPerformance aggregates trips, fuel and maintenance per vehicle and
// driver over an optional time range.
func (s *ReportService) FleetPerformance(ctx context.Context, from, to *time.Time) (*FleetPerformance, error) {
	var (
		vehicles []models.Vehicle
		drivers  []models.Driver
		trips    []models.Trip
		fuel     []models.Fuel
		maint    []models.Maintenance
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		vehicles, _, err = s.store.Vehicles.FindVehicles(gctx, db.VehicleFilter{}, db.ListOptions{})
		return err
	})
	g.Go(func() (err error) {
		drivers, _, err = s.store.Drivers.FindDrivers(gctx, db.DriverFilter{}, db.ListOptions{})
		return err
	})
	g.Go(func() (err error) {
		trips, _, err = s.store.Trips.FindTrips(gctx, db.TripFilter{Status: models.TripCompleted, From: from, To: to}, db.ListOptions{})
		return err
	})
	g.Go(func() (err error) {
		fuel, _, err = s.store.Fuel.FindFuel(gctx, db.FuelFilter{From: from, To: to}, db.ListOptions{})
		return err
	})
	g.Go(func() (err error) {
		maint, _, err = s.store.Maintenance.FindMaintenance(gctx, db.MaintenanceFilter{Status: models.MaintenanceCompleted, From: from, To: to}, db.ListOptions{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vrows := map[primitive.ObjectID]*VehiclePerformance{}
	for _, v := range vehicles {
		vrows[v.ID] = &VehiclePerformance{VehicleID: v.ID, LicensePlate: v.LicensePlate}
	}
	drows := map[primitive.ObjectID]*DriverPerformance{}
	for _, d := range drivers {
		drows[d.ID] = &DriverPerformance{DriverID: d.ID, Name: d.Name, PerformanceRating: d.PerformanceRating}
	}
	for _, t := range trips {
		if r, ok := vrows[t.VehicleID]; ok {
			r.Trips++
			r.Distance += t.ActualDistance
		}
		if r, ok := drows[t.DriverID]; ok {
			r.Trips++
			r.Distance += t.ActualDistance
		}
	}
	for _, f := range fuel {
		if r, ok := vrows[f.VehicleID]; ok {
			r.FuelCost += f.TotalCost
		}
	}
	for _, m := range maint {
		if r, ok := vrows[m.VehicleID]; ok {
			r.MaintenanceCost += m.Cost
		}
	}

	out := &FleetPerformance{From: from, To: to, Vehicles: []VehiclePerformance{}, Drivers: []DriverPerformance{}}
	for _, v := range vehicles {
		r := vrows[v.ID]
		if r.Distance > 0 {
			r.CostPerKm = round2((r.FuelCost + r.MaintenanceCost) / r.Distance)
		}
		r.FuelCost = round2(r.FuelCost)
		out.Vehicles = append(out.Vehicles, *r)
	}
	for _, d := range drivers {
		out.Drivers = append(out.Drivers, *drows[d.ID])
	}
	sort.SliceStable(out.Vehicles, func(i, j int) bool { return out.Vehicles[i].Distance > out.Vehicles[j].Distance })
	sort.SliceStable(out.Drivers, func(i, j int) bool { return out.Drivers[i].Distance > out.Drivers[j].Distance })
	return out, nil
}
