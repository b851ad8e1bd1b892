// Package memdb is an in-memory implementation of the db collection
// interfaces. It honours the same conditional-write and unique-index
// semantics as the MongoDB store and backs `serve --in-memory` and tests.
package memdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory holds every collection behind one lock.
type Memory struct {
	mu          sync.RWMutex
	vehicles    map[primitive.ObjectID]models.Vehicle
	drivers     map[primitive.ObjectID]models.Driver
	trips       map[primitive.ObjectID]models.Trip
	maintenance map[primitive.ObjectID]models.Maintenance
	fuel        map[primitive.ObjectID]models.Fuel
	alerts      map[primitive.ObjectID]models.Alert
	users       map[primitive.ObjectID]models.User
}

// New returns an empty in-memory database.
func New() *Memory {
	m := &Memory{}
	m.clear()
	return m
}

func (m *Memory) clear() {
	m.vehicles = map[primitive.ObjectID]models.Vehicle{}
	m.drivers = map[primitive.ObjectID]models.Driver{}
	m.trips = map[primitive.ObjectID]models.Trip{}
	m.maintenance = map[primitive.ObjectID]models.Maintenance{}
	m.fuel = map[primitive.ObjectID]models.Fuel{}
	m.alerts = map[primitive.ObjectID]models.Alert{}
	m.users = map[primitive.ObjectID]models.User{}
}

// NewStore returns a db.Store backed by a fresh Memory.
func NewStore() *db.Store {
	return New().Store()
}

// Store exposes m through the db.Store handle.
func (m *Memory) Store() *db.Store {
	return &db.Store{
		Vehicles:    vehicles{m},
		Drivers:     drivers{m},
		Trips:       trips{m},
		Maintenance: maintenance{m},
		Fuel:        fuel{m},
		Alerts:      alerts{m},
		Users:       users{m},
		Reset: func(context.Context) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.clear()
			return nil
		},
		Close: func(context.Context) error { return nil },
		Ping:  func(context.Context) error { return nil },
	}
}

// page sorts items by key and cuts out the requested page.
func page[T any](items []T, opts db.ListOptions, key func(T) time.Time) []T {
	sort.SliceStable(items, func(i, j int) bool {
		if opts.Ascending {
			return key(items[i]).Before(key(items[j]))
		}
		return key(items[i]).After(key(items[j]))
	})
	if opts.Limit <= 0 {
		return items
	}
	start := opts.Skip()
	if start >= int64(len(items)) {
		return items[:0]
	}
	end := start + opts.Limit
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[start:end]
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func newID(id primitive.ObjectID) primitive.ObjectID {
	if id.IsZero() {
		return primitive.NewObjectID()
	}
	return id
}

func sameRef(a *primitive.ObjectID, b primitive.ObjectID) bool {
	return a != nil && *a == b
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// vehicles implements db.VehicleCollection.
type vehicles struct{ m *Memory }

func (c vehicles) InsertVehicle(_ context.Context, v *models.Vehicle) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	for _, other := range c.m.vehicles {
		if strings.EqualFold(other.LicensePlate, v.LicensePlate) {
			return &db.DuplicateKeyError{Field: "licensePlate"}
		}
	}
	v.ID = newID(v.ID)
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	c.m.vehicles[v.ID] = *v
	return nil
}

func (c vehicles) FindVehicles(_ context.Context, f db.VehicleFilter, opts db.ListOptions) ([]models.Vehicle, int64, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	out := []models.Vehicle{}
	for _, v := range c.m.vehicles {
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		if f.FuelType != "" && v.FuelType != f.FuelType {
			continue
		}
		if f.Search != "" && !containsFold(v.Make, f.Search) && !containsFold(v.Model, f.Search) && !containsFold(v.LicensePlate, f.Search) {
			continue
		}
		out = append(out, v)
	}
	total := int64(len(out))
	return page(out, opts, func(v models.Vehicle) time.Time { return v.CreatedAt }), total, nil
}

func (c vehicles) FindVehicleByID(_ context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	v, ok := c.m.vehicles[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &v, nil
}

func (c vehicles) UpdateVehicle(_ context.Context, id primitive.ObjectID, upd models.VehicleUpdate) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	v, ok := c.m.vehicles[id]
	if !ok {
		return db.ErrNotFound
	}
	if upd.LicensePlate != nil {
		for other, o := range c.m.vehicles {
			if other != id && strings.EqualFold(o.LicensePlate, *upd.LicensePlate) {
				return &db.DuplicateKeyError{Field: "licensePlate"}
			}
		}
	}
	upd.Status = nil
	upd.Apply(&v)
	v.UpdatedAt = time.Now()
	c.m.vehicles[id] = v
	return nil
}

func (c vehicles) SetVehicleMileage(_ context.Context, id primitive.ObjectID, mileage float64) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	v, ok := c.m.vehicles[id]
	if !ok {
		return db.ErrNotFound
	}
	if mileage > v.Mileage {
		v.Mileage = mileage
	}
	v.UpdatedAt = time.Now()
	c.m.vehicles[id] = v
	return nil
}

func (c vehicles) SetVehicleStatus(_ context.Context, id primitive.ObjectID, status models.VehicleStatus, from ...models.VehicleStatus) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	v, ok := c.m.vehicles[id]
	if !ok {
		return db.ErrNotFound
	}
	if len(from) > 0 && !oneOf(v.Status, from) {
		return db.ErrPreconditionFailed
	}
	v.Status = status
	v.UpdatedAt = time.Now()
	c.m.vehicles[id] = v
	return nil
}

func (c vehicles) MarkVehicleServiced(_ context.Context, id primitive.ObjectID, at time.Time, status models.VehicleStatus) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	v, ok := c.m.vehicles[id]
	if !ok {
		return db.ErrNotFound
	}
	v.LastServiceDate = &at
	v.Status = status
	v.UpdatedAt = time.Now()
	c.m.vehicles[id] = v
	return nil
}

func (c vehicles) AssignVehicleDriver(_ context.Context, id, driverRef primitive.ObjectID) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	v, ok := c.m.vehicles[id]
	if !ok {
		return db.ErrNotFound
	}
	if v.CurrentDriver != nil && *v.CurrentDriver != driverRef {
		return db.ErrPreconditionFailed
	}
	ref := driverRef
	v.CurrentDriver = &ref
	v.UpdatedAt = time.Now()
	c.m.vehicles[id] = v
	return nil
}

func (c vehicles) ReleaseVehicleDriver(_ context.Context, id, driverRef primitive.ObjectID) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	v, ok := c.m.vehicles[id]
	if !ok || !sameRef(v.CurrentDriver, driverRef) {
		return nil
	}
	v.CurrentDriver = nil
	v.UpdatedAt = time.Now()
	c.m.vehicles[id] = v
	return nil
}

func (c vehicles) DeleteVehicle(_ context.Context, id primitive.ObjectID) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	v, ok := c.m.vehicles[id]
	if !ok {
		return db.ErrNotFound
	}
	if v.CurrentDriver != nil {
		return db.ErrPreconditionFailed
	}
	delete(c.m.vehicles, id)
	return nil
}

func oneOf[T comparable](v T, set []T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// drivers implements db.DriverCollection.
type drivers struct{ m *Memory }

func (c drivers) InsertDriver(_ context.Context, d *models.Driver) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	for _, other := range c.m.drivers {
		if strings.EqualFold(other.LicenseNumber, d.LicenseNumber) {
			return &db.DuplicateKeyError{Field: "licenseNumber"}
		}
	}
	d.ID = newID(d.ID)
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	c.m.drivers[d.ID] = *d
	return nil
}

func (c drivers) FindDrivers(_ context.Context, f db.DriverFilter, opts db.ListOptions) ([]models.Driver, int64, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	out := []models.Driver{}
	for _, d := range c.m.drivers {
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.Search != "" && !containsFold(d.Name, f.Search) && !containsFold(d.LicenseNumber, f.Search) {
			continue
		}
		out = append(out, d)
	}
	total := int64(len(out))
	return page(out, opts, func(d models.Driver) time.Time { return d.CreatedAt }), total, nil
}

func (c drivers) FindDriverByID(_ context.Context, id primitive.ObjectID) (*models.Driver, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	d, ok := c.m.drivers[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &d, nil
}

func (c drivers) FindDriverByUser(_ context.Context, userID primitive.ObjectID) (*models.Driver, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	for _, d := range c.m.drivers {
		if sameRef(d.User, userID) {
			return &d, nil
		}
	}
	return nil, db.ErrNotFound
}

func (c drivers) UpdateDriver(_ context.Context, d *models.Driver) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	stored, ok := c.m.drivers[d.ID]
	if !ok {
		return db.ErrNotFound
	}
	for id, other := range c.m.drivers {
		if id != d.ID && strings.EqualFold(other.LicenseNumber, d.LicenseNumber) {
			return &db.DuplicateKeyError{Field: "licenseNumber"}
		}
	}
	d.UpdatedAt = time.Now()
	stored.Name = d.Name
	stored.Phone = d.Phone
	stored.LicenseNumber = d.LicenseNumber
	stored.LicenseExpiry = d.LicenseExpiry
	stored.PerformanceRating = d.PerformanceRating
	stored.Notes = d.Notes
	stored.UpdatedAt = d.UpdatedAt
	c.m.drivers[d.ID] = stored
	return nil
}

func (c drivers) TransitionDriverStatus(_ context.Context, id primitive.ObjectID, from []models.DriverStatus, to models.DriverStatus) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	d, ok := c.m.drivers[id]
	if !ok {
		return db.ErrNotFound
	}
	if len(from) > 0 && !oneOf(d.Status, from) {
		return db.ErrPreconditionFailed
	}
	d.Status = to
	d.UpdatedAt = time.Now()
	c.m.drivers[id] = d
	return nil
}

func (c drivers) RecordTripCompletion(_ context.Context, id primitive.ObjectID, distance float64, release bool) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	d, ok := c.m.drivers[id]
	if !ok {
		return db.ErrNotFound
	}
	d.TotalTrips++
	d.TotalDistance += distance
	if release {
		d.Status = models.DriverAvailable
	}
	d.UpdatedAt = time.Now()
	c.m.drivers[id] = d
	return nil
}

func (c drivers) SetDriverVehicle(_ context.Context, id primitive.ObjectID, vehicleID *primitive.ObjectID) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	d, ok := c.m.drivers[id]
	if !ok {
		return db.ErrNotFound
	}
	if vehicleID != nil {
		ref := *vehicleID
		d.AssignedVehicle = &ref
	} else {
		d.AssignedVehicle = nil
	}
	d.UpdatedAt = time.Now()
	c.m.drivers[id] = d
	return nil
}

func (c drivers) DeleteDriver(_ context.Context, id primitive.ObjectID) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if _, ok := c.m.drivers[id]; !ok {
		return db.ErrNotFound
	}
	delete(c.m.drivers, id)
	return nil
}

// trips implements db.TripCollection.
type trips struct{ m *Memory }

func (c trips) InsertTrip(_ context.Context, t *models.Trip) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	t.ID = newID(t.ID)
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	c.m.trips[t.ID] = *t
	return nil
}

func (c trips) FindTrips(_ context.Context, f db.TripFilter, opts db.ListOptions) ([]models.Trip, int64, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	out := []models.Trip{}
	for _, t := range c.m.trips {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.VehicleID != nil && t.VehicleID != *f.VehicleID {
			continue
		}
		if f.DriverID != nil && t.DriverID != *f.DriverID {
			continue
		}
		if !inRange(t.StartTime, f.From, f.To) {
			continue
		}
		out = append(out, t)
	}
	total := int64(len(out))
	return page(out, opts, func(t models.Trip) time.Time { return t.StartTime }), total, nil
}

func (c trips) FindTripByID(_ context.Context, id primitive.ObjectID) (*models.Trip, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	t, ok := c.m.trips[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &t, nil
}

func (c trips) UpdateTrip(_ context.Context, t *models.Trip, expected models.TripStatus) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	stored, ok := c.m.trips[t.ID]
	if !ok {
		return db.ErrNotFound
	}
	if stored.Status != expected {
		return db.ErrPreconditionFailed
	}
	t.UpdatedAt = time.Now()
	c.m.trips[t.ID] = *t
	return nil
}

func (c trips) DeleteTrip(_ context.Context, id primitive.ObjectID) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if _, ok := c.m.trips[id]; !ok {
		return db.ErrNotFound
	}
	delete(c.m.trips, id)
	return nil
}

// maintenance implements db.MaintenanceCollection.
type maintenance struct{ m *Memory }

func (c maintenance) InsertMaintenance(_ context.Context, r *models.Maintenance) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	r.ID = newID(r.ID)
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	c.m.maintenance[r.ID] = *r
	return nil
}

func (c maintenance) FindMaintenance(_ context.Context, f db.MaintenanceFilter, opts db.ListOptions) ([]models.Maintenance, int64, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	out := []models.Maintenance{}
	for _, r := range c.m.maintenance {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.VehicleID != nil && r.VehicleID != *f.VehicleID {
			continue
		}
		if f.ExcludeID != nil && r.ID == *f.ExcludeID {
			continue
		}
		if (f.From != nil || f.To != nil) && (r.DateScheduled == nil || !inRange(*r.DateScheduled, f.From, f.To)) {
			continue
		}
		out = append(out, r)
	}
	total := int64(len(out))
	return page(out, opts, func(r models.Maintenance) time.Time { return timeOrZero(r.DateScheduled) }), total, nil
}

func (c maintenance) FindMaintenanceByID(_ context.Context, id primitive.ObjectID) (*models.Maintenance, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	r, ok := c.m.maintenance[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &r, nil
}

func (c maintenance) UpdateMaintenance(_ context.Context, r *models.Maintenance, expected models.MaintenanceStatus) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	stored, ok := c.m.maintenance[r.ID]
	if !ok {
		return db.ErrNotFound
	}
	if stored.Status != expected {
		return db.ErrPreconditionFailed
	}
	r.UpdatedAt = time.Now()
	c.m.maintenance[r.ID] = *r
	return nil
}

func (c maintenance) DeleteMaintenance(_ context.Context, id primitive.ObjectID) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if _, ok := c.m.maintenance[id]; !ok {
		return db.ErrNotFound
	}
	delete(c.m.maintenance, id)
	return nil
}

// fuel implements db.FuelCollection.
type fuel struct{ m *Memory }

func (c fuel) InsertFuel(_ context.Context, r *models.Fuel) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	r.ID = newID(r.ID)
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	c.m.fuel[r.ID] = *r
	return nil
}

func (c fuel) FindFuel(_ context.Context, f db.FuelFilter, opts db.ListOptions) ([]models.Fuel, int64, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	out := []models.Fuel{}
	for _, r := range c.m.fuel {
		if f.VehicleID != nil && r.VehicleID != *f.VehicleID {
			continue
		}
		if f.DriverID != nil && !sameRef(r.DriverID, *f.DriverID) {
			continue
		}
		if !inRange(r.Date, f.From, f.To) {
			continue
		}
		out = append(out, r)
	}
	total := int64(len(out))
	return page(out, opts, func(r models.Fuel) time.Time { return r.Date }), total, nil
}

func (c fuel) FindFuelByID(_ context.Context, id primitive.ObjectID) (*models.Fuel, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	r, ok := c.m.fuel[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &r, nil
}

func (c fuel) UpdateFuel(_ context.Context, r *models.Fuel) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if _, ok := c.m.fuel[r.ID]; !ok {
		return db.ErrNotFound
	}
	r.UpdatedAt = time.Now()
	c.m.fuel[r.ID] = *r
	return nil
}

func (c fuel) DeleteFuel(_ context.Context, id primitive.ObjectID) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if _, ok := c.m.fuel[id]; !ok {
		return db.ErrNotFound
	}
	delete(c.m.fuel, id)
	return nil
}

// alerts implements db.AlertCollection.
type alerts struct{ m *Memory }

func (c alerts) InsertAlert(_ context.Context, a *models.Alert) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	a.ID = newID(a.ID)
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	c.m.alerts[a.ID] = *a
	return nil
}

func (c alerts) InsertAlerts(ctx context.Context, list []models.Alert) error {
	for i := range list {
		if err := c.InsertAlert(ctx, &list[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c alerts) FindAlerts(_ context.Context, f db.AlertFilter, opts db.ListOptions) ([]models.Alert, int64, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	out := []models.Alert{}
	for _, a := range c.m.alerts {
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if f.Priority != "" && a.Priority != f.Priority {
			continue
		}
		if f.IsRead != nil && a.IsRead != *f.IsRead {
			continue
		}
		out = append(out, a)
	}
	total := int64(len(out))
	return page(out, opts, func(a models.Alert) time.Time { return a.CreatedAt }), total, nil
}

func (c alerts) FindAlertByID(_ context.Context, id primitive.ObjectID) (*models.Alert, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	a, ok := c.m.alerts[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &a, nil
}

func (c alerts) UpdateAlert(_ context.Context, a *models.Alert) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if _, ok := c.m.alerts[a.ID]; !ok {
		return db.ErrNotFound
	}
	a.UpdatedAt = time.Now()
	c.m.alerts[a.ID] = *a
	return nil
}

func (c alerts) MarkAlertRead(_ context.Context, id primitive.ObjectID, at time.Time) (*models.Alert, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	a, ok := c.m.alerts[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	a.IsRead = true
	a.ReadAt = &at
	a.UpdatedAt = at
	c.m.alerts[id] = a
	return &a, nil
}

func (c alerts) CountUnread(_ context.Context) (int64, error) {
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	var n int64
	for _, a := range c.m.alerts {
		if !a.IsRead {
			n++
		}
	}
	return n, nil
}

func (c alerts) DeleteGeneratedAlerts(_ context.Context) (int64, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	var n int64
	for id, a := range c.m.alerts {
		if a.Generated {
			delete(c.m.alerts, id)
			n++
		}
	}
	return n, nil
}

func (c alerts) DeleteAlert(_ context.Context, id primitive.ObjectID) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if _, ok := c.m.alerts[id]; !ok {
		return db.ErrNotFound
	}
	delete(c.m.alerts, id)
	return nil
}

// users implements db.UserCollection.
type users struct{ m *Memory }

func (c users) InsertUser(_ context.Context, u *models.User) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, other := range c.m.users {
		if other.Email == u.Email {
			return &db.DuplicateKeyError{Field: "email"}
		}
	}
	u.ID = newID(u.ID)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	c.m.users[u.ID] = *u
	return nil
}

func (c users) FindUserByID(_ context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, db.ErrNotFound
	}
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	u, ok := c.m.users[oid]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &u, nil
}

func (c users) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	c.m.mu.RLock()
	defer c.m.mu.RUnlock()
	for _, u := range c.m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (c users) UpdateUser(_ context.Context, id string, u models.User) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return db.ErrNotFound
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if _, ok := c.m.users[oid]; !ok {
		return db.ErrNotFound
	}
	u.ID = oid
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for otherID, other := range c.m.users {
		if otherID != oid && other.Email == u.Email {
			return &db.DuplicateKeyError{Field: "email"}
		}
	}
	u.UpdatedAt = time.Now()
	c.m.users[oid] = u
	return nil
}

func (c users) DeleteUser(_ context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return db.ErrNotFound
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if _, ok := c.m.users[oid]; !ok {
		return db.ErrNotFound
	}
	delete(c.m.users, oid)
	return nil
}

func (c users) UpdateLastLogin(_ context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	u, ok := c.m.users[oid]
	if !ok {
		return db.ErrNotFound
	}
	now := time.Now()
	u.LastLogin = &now
	u.UpdatedAt = now
	c.m.users[oid] = u
	return nil
}
