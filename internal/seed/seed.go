// Package seed loads a consistent demo data set.
package seed

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/aivodrive/internal/alerts"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultPassword is the password of every demo account.
const DefaultPassword = "password123"

// Hasher hashes demo passwords.
type Hasher interface {
	HashPassword(password string) (string, error)
}

// Summary counts what Run inserted.
type Summary struct {
	Users       int `json:"users"`
	Vehicles    int `json:"vehicles"`
	Drivers     int `json:"drivers"`
	Trips       int `json:"trips"`
	Maintenance int `json:"maintenance"`
	Fuel        int `json:"fuel"`
	Alerts      int `json:"alerts"`
}

// Run empties the store, inserts the demo data set and regenerates alerts.
func Run(ctx context.Context, store *db.Store, hasher Hasher, gen *alerts.Generator, logger *log.Logger) (*Summary, error) {
	if err := store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset store: %w", err)
	}
	s := &seeder{store: store, now: time.Now(), sum: &Summary{}}

	hash, err := hasher.HashPassword(DefaultPassword)
	if err != nil {
		return nil, err
	}
	admin, err := s.user(ctx, "Admin User", "admin@aivodrive.com", models.RoleAdmin, hash)
	if err != nil {
		return nil, err
	}
	if _, err := s.user(ctx, "Dispatch Desk", "dispatcher@aivodrive.com", models.RoleDispatcher, hash); err != nil {
		return nil, err
	}
	driverUser, err := s.user(ctx, "John Driver", "driver@aivodrive.com", models.RoleDriver, hash)
	if err != nil {
		return nil, err
	}

	vehicles := []models.Vehicle{
		{Make: "Toyota", Model: "Camry", Year: 2021, LicensePlate: "AIV-1001", Type: "car", FuelType: "hybrid", Mileage: 42150, LastServiceDate: s.daysAgo(30), RegistrationExpiry: s.daysAhead(200), InsuranceExpiry: s.daysAhead(120)},
		{Make: "Ford", Model: "Transit", Year: 2020, LicensePlate: "AIV-1002", Type: "van", FuelType: "diesel", Mileage: 88320, LastServiceDate: s.daysAgo(150), RegistrationExpiry: s.daysAhead(20), InsuranceExpiry: s.daysAhead(300)},
		{Make: "Volvo", Model: "FH16", Year: 2019, LicensePlate: "AIV-1003", Type: "truck", FuelType: "diesel", Mileage: 210400, LastServiceDate: s.daysAgo(60), RegistrationExpiry: s.daysAhead(400), InsuranceExpiry: s.daysAgo(3)},
		{Make: "Tesla", Model: "Model 3", Year: 2023, LicensePlate: "AIV-1004", Type: "car", FuelType: "electric", Mileage: 12800},
		{Make: "Mercedes", Model: "Sprinter", Year: 2022, LicensePlate: "AIV-1005", Type: "van", FuelType: "diesel", Mileage: 35600, LastServiceDate: s.daysAgo(10), RegistrationExpiry: s.daysAhead(250), InsuranceExpiry: s.daysAhead(250)},
	}
	for i := range vehicles {
		vehicles[i].Status = models.VehicleActive
		if err := store.Vehicles.InsertVehicle(ctx, &vehicles[i]); err != nil {
			return nil, fmt.Errorf("insert vehicle %s: %w", vehicles[i].LicensePlate, err)
		}
		s.sum.Vehicles++
	}

	userID := driverUser.ID
	drivers := []models.Driver{
		{User: &userID, Name: "John Driver", Phone: "+1-555-0101", LicenseNumber: "DL-100200", LicenseExpiry: *s.daysAhead(45), PerformanceRating: 4.6},
		{Name: "Maria Lopez", Phone: "+1-555-0102", LicenseNumber: "DL-100201", LicenseExpiry: *s.daysAhead(500), PerformanceRating: 4.8},
		{Name: "Kwame Mensah", Phone: "+1-555-0103", LicenseNumber: "DL-100202", LicenseExpiry: *s.daysAhead(700), PerformanceRating: 4.2},
		{Name: "Li Wei", Phone: "+1-555-0104", LicenseNumber: "DL-100203", LicenseExpiry: *s.daysAhead(365), PerformanceRating: 3.9},
	}
	for i := range drivers {
		drivers[i].Status = models.DriverAvailable
		if err := store.Drivers.InsertDriver(ctx, &drivers[i]); err != nil {
			return nil, fmt.Errorf("insert driver %s: %w", drivers[i].Name, err)
		}
		s.sum.Drivers++
	}
	// Each of the first three drivers holds the vehicle with the same index.
	for i := 0; i < 3; i++ {
		if err := s.assign(ctx, &drivers[i], vehicles[i].ID); err != nil {
			return nil, err
		}
	}

	place := func(address string, lat, lon float64) models.Place {
		return models.Place{Address: address, Coordinates: models.Location{Lat: lat, Lon: lon}}
	}
	depot := place("1 Depot Road, Springfield", 39.7817, -89.6501)
	trips := []models.Trip{
		{VehicleID: vehicles[0].ID, DriverID: drivers[0].ID, Origin: depot, Destination: place("200 Market St, Chatham", 39.6762, -89.7043), StartTime: s.now.Add(-50 * time.Hour), EstimatedDistance: 18, ActualDistance: 19.4, Purpose: "delivery", Status: models.TripCompleted},
		{VehicleID: vehicles[1].ID, DriverID: drivers[1].ID, Origin: depot, Destination: place("45 Lake Ave, Decatur", 39.8403, -88.9548), StartTime: s.now.Add(-26 * time.Hour), EstimatedDistance: 65, ActualDistance: 68.2, Purpose: "transfer", Status: models.TripCompleted},
		{VehicleID: vehicles[2].ID, DriverID: drivers[2].ID, Origin: depot, Destination: place("9 Harbor Way, Peoria", 40.6936, -89.5890), StartTime: s.now.Add(-4 * time.Hour), EstimatedDistance: 120, Purpose: "delivery", Status: models.TripInProgress},
		{VehicleID: vehicles[0].ID, DriverID: drivers[0].ID, Origin: depot, Destination: place("77 College Dr, Jacksonville", 39.7339, -90.2290), StartTime: s.now.Add(20 * time.Hour), EstimatedDistance: 55, Purpose: "pickup", Status: models.TripScheduled},
	}
	for i := range trips {
		t := &trips[i]
		t.CreatedBy = admin.ID
		if t.Status == models.TripCompleted {
			end := t.StartTime.Add(2 * time.Hour)
			t.EndTime = &end
		}
		if err := store.Trips.InsertTrip(ctx, t); err != nil {
			return nil, fmt.Errorf("insert trip: %w", err)
		}
		s.sum.Trips++
		switch t.Status {
		case models.TripCompleted:
			err = store.Drivers.RecordTripCompletion(ctx, t.DriverID, t.ActualDistance, false)
		case models.TripInProgress:
			err = store.Drivers.TransitionDriverStatus(ctx, t.DriverID, []models.DriverStatus{models.DriverAvailable}, models.DriverOnTrip)
		}
		if err != nil {
			return nil, fmt.Errorf("sync driver for trip: %w", err)
		}
	}

	maintenance := []models.Maintenance{
		{VehicleID: vehicles[3].ID, Type: "battery_service", Description: "Battery health check", DateScheduled: s.daysAgo(1), Status: models.MaintenanceInProgress, Cost: 180, ServiceProvider: "EV Care Center"},
		{VehicleID: vehicles[4].ID, Type: "oil_change", Description: "Oil and filter change", DateScheduled: s.daysAgo(11), DateCompleted: s.daysAgo(10), Status: models.MaintenanceCompleted, Cost: 95.5, ServiceProvider: "QuickLube", Mileage: 35500},
		{VehicleID: vehicles[1].ID, Type: "brake_service", Description: "Brake pad replacement", DateScheduled: s.daysAgo(5), Status: models.MaintenanceScheduled, Cost: 320, ServiceProvider: "City Fleet Garage"},
		{VehicleID: vehicles[0].ID, Type: "tire_rotation", Description: "Tire rotation", DateScheduled: s.daysAhead(14), Status: models.MaintenanceScheduled, Cost: 60},
	}
	for i := range maintenance {
		m := &maintenance[i]
		m.CreatedBy = admin.ID
		if err := store.Maintenance.InsertMaintenance(ctx, m); err != nil {
			return nil, fmt.Errorf("insert maintenance: %w", err)
		}
		s.sum.Maintenance++
		if m.Status == models.MaintenanceInProgress {
			if err := store.Vehicles.SetVehicleStatus(ctx, m.VehicleID, models.VehicleMaintenance); err != nil {
				return nil, err
			}
		}
	}

	fuel := []struct {
		vehicle, driver   int
		daysAgo           int
		amount, price     float64
		odometer, prevOdo float64
	}{
		{0, 0, 20, 38.5, 1.62, 41500, 41020},
		{0, 0, 6, 35.2, 1.58, 42100, 41500},
		{1, 1, 12, 62.0, 1.71, 87900, 87310},
		{1, 1, 2, 58.4, 1.69, 88300, 87900},
		{2, 2, 3, 240.0, 1.65, 210350, 209200},
	}
	for _, f := range fuel {
		driverID := drivers[f.driver].ID
		rec := &models.Fuel{
			VehicleID:        vehicles[f.vehicle].ID,
			DriverID:         &driverID,
			Date:             *s.daysAgo(f.daysAgo),
			FuelAmount:       f.amount,
			FuelPrice:        f.price,
			TotalCost:        models.FuelCost(f.amount, f.price),
			Odometer:         f.odometer,
			PreviousOdometer: f.prevOdo,
			FuelType:         vehicles[f.vehicle].FuelType,
			Station:          "Fleet Fuel #12",
			CreatedBy:        admin.ID,
		}
		if err := store.Fuel.InsertFuel(ctx, rec); err != nil {
			return nil, fmt.Errorf("insert fuel: %w", err)
		}
		s.sum.Fuel++
	}

	res, err := gen.Regenerate(ctx)
	if err != nil {
		return nil, err
	}
	s.sum.Alerts = res.Created

	logger.WithFields(log.Fields{
		"users":       s.sum.Users,
		"vehicles":    s.sum.Vehicles,
		"drivers":     s.sum.Drivers,
		"trips":       s.sum.Trips,
		"maintenance": s.sum.Maintenance,
		"fuel":        s.sum.Fuel,
		"alerts":      s.sum.Alerts,
	}).Info("Database seeded")
	return s.sum, nil
}

type seeder struct {
	store *db.Store
	now   time.Time
	sum   *Summary
}

func (s *seeder) daysAgo(n int) *time.Time {
	t := s.now.AddDate(0, 0, -n)
	return &t
}

func (s *seeder) daysAhead(n int) *time.Time {
	t := s.now.AddDate(0, 0, n)
	return &t
}

func (s *seeder) user(ctx context.Context, name, email string, role models.Role, hash string) (*models.User, error) {
	u := &models.User{Name: name, Email: email, PasswordHash: hash, Role: role, IsActive: true}
	if err := s.store.Users.InsertUser(ctx, u); err != nil {
		return nil, fmt.Errorf("insert user %s: %w", email, err)
	}
	s.sum.Users++
	return u, nil
}

func (s *seeder) assign(ctx context.Context, d *models.Driver, vehicleID primitive.ObjectID) error {
	if err := s.store.Vehicles.AssignVehicleDriver(ctx, vehicleID, d.VehicleRef()); err != nil {
		return fmt.Errorf("assign vehicle: %w", err)
	}
	if err := s.store.Drivers.SetDriverVehicle(ctx, d.ID, &vehicleID); err != nil {
		return fmt.Errorf("assign vehicle: %w", err)
	}
	d.AssignedVehicle = &vehicleID
	return nil
}
