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

// MongoDriverCollection implements DriverCollection for MongoDB.
type MongoDriverCollection struct {
	Collection *mongo.Collection
}

// InsertDriver inserts a driver record into the collection.
func (c *MongoDriverCollection) InsertDriver(ctx context.Context, driver *models.Driver) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := time.Now()
	if driver.ID.IsZero() {
		driver.ID = primitive.NewObjectID()
	}
	driver.CreatedAt = now
	driver.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, driver)
	return wrapWriteError(err)
}

// FindDrivers queries driver records from the collection.
func (c *MongoDriverCollection) FindDrivers(ctx context.Context, filter DriverFilter, opts ListOptions) ([]models.Driver, int64, error) {
	q := bson.M{}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.Search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"licenseNumber": rx},
		}
	}
	drivers := []models.Driver{}
	total, err := findPage(ctx, c.Collection, q, opts, "createdAt", &drivers)
	if err != nil {
		return nil, 0, err
	}
	return drivers, total, nil
}

// FindDriverByID finds a driver by its ID.
func (c *MongoDriverCollection) FindDriverByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	return c.findOne(ctx, bson.M{"_id": id})
}

// FindDriverByUser finds the driver profile linked to a user account.
func (c *MongoDriverCollection) FindDriverByUser(ctx context.Context, userID primitive.ObjectID) (*models.Driver, error) {
	return c.findOne(ctx, bson.M{"user": userID})
}

func (c *MongoDriverCollection) findOne(ctx context.Context, q bson.M) (*models.Driver, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var driver models.Driver
	if err := c.Collection.FindOne(ctx, q).Decode(&driver); err != nil {
		return nil, wrapFindError(err)
	}
	return &driver, nil
}

// UpdateDriver updates the profile fields of a driver.
func (c *MongoDriverCollection) UpdateDriver(ctx context.Context, driver *models.Driver) error {
	driver.UpdatedAt = time.Now()
	set := bson.M{
		"name":              driver.Name,
		"phone":             driver.Phone,
		"licenseNumber":     driver.LicenseNumber,
		"licenseExpiry":     driver.LicenseExpiry,
		"performanceRating": driver.PerformanceRating,
		"notes":             driver.Notes,
		"updatedAt":         driver.UpdatedAt,
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": driver.ID}, bson.M{"$set": set})
	if err != nil {
		return wrapWriteError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// TransitionDriverStatus moves a driver to status to while its status is one of from.
func (c *MongoDriverCollection) TransitionDriverStatus(ctx context.Context, id primitive.ObjectID, from []models.DriverStatus, to models.DriverStatus) error {
	q := bson.M{"_id": id}
	if len(from) > 0 {
		q["status"] = bson.M{"$in": from}
	}
	result, err := c.Collection.UpdateOne(ctx, q, bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return conditionalMiss(ctx, c.Collection, id)
	}
	return nil
}

// RecordTripCompletion increments the trip counters in a single document write.
func (c *MongoDriverCollection) RecordTripCompletion(ctx context.Context, id primitive.ObjectID, distance float64, release bool) error {
	set := bson.M{"updatedAt": time.Now()}
	if release {
		set["status"] = models.DriverAvailable
	}
	update := bson.M{
		"$inc": bson.M{"totalTrips": 1, "totalDistance": distance},
		"$set": set,
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDriverVehicle sets or clears the assigned vehicle.
func (c *MongoDriverCollection) SetDriverVehicle(ctx context.Context, id primitive.ObjectID, vehicleID *primitive.ObjectID) error {
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"assignedVehicle": vehicleID, "updatedAt": time.Now()}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDriver deletes a driver by its ID.
func (c *MongoDriverCollection) DeleteDriver(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, c.Collection, id)
}
