package db

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoVehicleCollection implements VehicleCollection for MongoDB.
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

// InsertVehicle inserts a vehicle record into the collection.
func (c *MongoVehicleCollection) InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := time.Now()
	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	vehicle.CreatedAt = now
	vehicle.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, vehicle)
	return wrapWriteError(err)
}

// FindVehicles queries vehicle records from the collection.
func (c *MongoVehicleCollection) FindVehicles(ctx context.Context, filter VehicleFilter, opts ListOptions) ([]models.Vehicle, int64, error) {
	q := bson.M{}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.FuelType != "" {
		q["fuelType"] = filter.FuelType
	}
	if filter.Search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"make": rx},
			bson.M{"model": rx},
			bson.M{"licensePlate": rx},
		}
	}
	vehicles := []models.Vehicle{}
	total, err := findPage(ctx, c.Collection, q, opts, "createdAt", &vehicles)
	if err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}

// FindVehicleByID finds a vehicle by its ID.
func (c *MongoVehicleCollection) FindVehicleByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var vehicle models.Vehicle
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&vehicle); err != nil {
		return nil, wrapFindError(err)
	}
	return &vehicle, nil
}

// UpdateVehicle sets the fields present in upd.
func (c *MongoVehicleCollection) UpdateVehicle(ctx context.Context, id primitive.ObjectID, upd models.VehicleUpdate) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	set := bson.M{"updatedAt": time.Now()}
	setIf := func(key string, ok bool, v interface{}) {
		if ok {
			set[key] = v
		}
	}
	setIf("make", upd.Make != nil, upd.Make)
	setIf("model", upd.Model != nil, upd.Model)
	setIf("year", upd.Year != nil, upd.Year)
	setIf("licensePlate", upd.LicensePlate != nil, upd.LicensePlate)
	setIf("vin", upd.VIN != nil, upd.VIN)
	setIf("type", upd.Type != nil, upd.Type)
	setIf("fuelType", upd.FuelType != nil, upd.FuelType)
	setIf("mileage", upd.Mileage != nil, upd.Mileage)
	setIf("lastServiceDate", upd.LastServiceDate != nil, upd.LastServiceDate)
	setIf("registrationExpiry", upd.RegistrationExpiry != nil, upd.RegistrationExpiry)
	setIf("insuranceExpiry", upd.InsuranceExpiry != nil, upd.InsuranceExpiry)
	setIf("currentLocation", upd.CurrentLocation != nil, upd.CurrentLocation)
	setIf("notes", upd.Notes != nil, upd.Notes)

	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return wrapWriteError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetVehicleMileage raises the recorded mileage, never lowering it.
func (c *MongoVehicleCollection) SetVehicleMileage(ctx context.Context, id primitive.ObjectID, mileage float64) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$max": bson.M{"mileage": mileage},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetVehicleStatus changes a vehicle's status, optionally guarded by its current status.
func (c *MongoVehicleCollection) SetVehicleStatus(ctx context.Context, id primitive.ObjectID, status models.VehicleStatus, from ...models.VehicleStatus) error {
	q := bson.M{"_id": id}
	if len(from) > 0 {
		q["status"] = bson.M{"$in": from}
	}
	result, err := c.Collection.UpdateOne(ctx, q, bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return conditionalMiss(ctx, c.Collection, id)
	}
	return nil
}

// MarkVehicleServiced records a completed service.
func (c *MongoVehicleCollection) MarkVehicleServiced(ctx context.Context, id primitive.ObjectID, at time.Time, status models.VehicleStatus) error {
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"lastServiceDate": at,
		"status":          status,
		"updatedAt":       time.Now(),
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignVehicleDriver points the vehicle at driverRef unless another driver holds it.
func (c *MongoVehicleCollection) AssignVehicleDriver(ctx context.Context, id, driverRef primitive.ObjectID) error {
	q := bson.M{
		"_id":           id,
		"currentDriver": bson.M{"$in": bson.A{nil, driverRef}},
	}
	result, err := c.Collection.UpdateOne(ctx, q, bson.M{"$set": bson.M{"currentDriver": driverRef, "updatedAt": time.Now()}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return conditionalMiss(ctx, c.Collection, id)
	}
	return nil
}

// ReleaseVehicleDriver clears the current driver when it is driverRef.
func (c *MongoVehicleCollection) ReleaseVehicleDriver(ctx context.Context, id, driverRef primitive.ObjectID) error {
	_, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "currentDriver": driverRef},
		bson.M{"$set": bson.M{"currentDriver": nil, "updatedAt": time.Now()}},
	)
	return err
}

// DeleteVehicle deletes an unassigned vehicle by its ID.
func (c *MongoVehicleCollection) DeleteVehicle(ctx context.Context, id primitive.ObjectID) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id, "currentDriver": nil})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return conditionalMiss(ctx, c.Collection, id)
	}
	return nil
}
