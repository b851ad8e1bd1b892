package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// Collection names.
const (
	CollectionVehicles    = "vehicles"
	CollectionDrivers     = "drivers"
	CollectionTrips       = "trips"
	CollectionMaintenance = "maintenances"
	CollectionFuel        = "fuels"
	CollectionAlerts      = "alerts"
	CollectionUsers       = "users"
)

// ConnectMongo connects to MongoDB at uri and verifies the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongo URI is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	// Ping to verify connection
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// DatabaseName picks the database from the URI path, falling back to def.
func DatabaseName(uri, def string) string {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil || cs.Database == "" {
		return def
	}
	return cs.Database
}

// Open connects, ensures indexes and returns a Store backed by MongoDB.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		return nil, err
	}
	database := client.Database(dbName)
	if err := EnsureIndexes(ctx, database); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.WithField("database", dbName).Info("Connected to MongoDB")
	return NewStore(client, database), nil
}

// NewStore wires the Mongo-backed collections of database into a Store.
func NewStore(client *mongo.Client, database *mongo.Database) *Store {
	return &Store{
		Vehicles:    &MongoVehicleCollection{Collection: database.Collection(CollectionVehicles)},
		Drivers:     &MongoDriverCollection{Collection: database.Collection(CollectionDrivers)},
		Trips:       &MongoTripCollection{Collection: database.Collection(CollectionTrips)},
		Maintenance: &MongoMaintenanceCollection{Collection: database.Collection(CollectionMaintenance)},
		Fuel:        &MongoFuelCollection{Collection: database.Collection(CollectionFuel)},
		Alerts:      &MongoAlertCollection{Collection: database.Collection(CollectionAlerts)},
		Users:       &MongoUserCollection{Collection: database.Collection(CollectionUsers)},
		Reset: func(ctx context.Context) error {
			for _, name := range []string{CollectionVehicles, CollectionDrivers, CollectionTrips,
				CollectionMaintenance, CollectionFuel, CollectionAlerts, CollectionUsers} {
				if _, err := database.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
					return fmt.Errorf("clear %s: %w", name, err)
				}
			}
			return nil
		},
		Close: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
	}
}

// EnsureIndexes creates the unique and lookup indexes.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	specs := map[string][]mongo.IndexModel{
		CollectionVehicles: {
			{Keys: bson.D{{Key: "licensePlate", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		CollectionDrivers: {
			{Keys: bson.D{{Key: "licenseNumber", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "user", Value: 1}}},
		},
		CollectionUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		CollectionTrips: {
			{Keys: bson.D{{Key: "driverId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "vehicleId", Value: 1}}},
		},
		CollectionMaintenance: {
			{Keys: bson.D{{Key: "vehicleId", Value: 1}, {Key: "status", Value: 1}}},
		},
		CollectionFuel: {
			{Keys: bson.D{{Key: "vehicleId", Value: 1}, {Key: "date", Value: -1}}},
		},
		CollectionAlerts: {
			{Keys: bson.D{{Key: "isRead", Value: 1}}},
			{Keys: bson.D{{Key: "generated", Value: 1}}},
		},
	}
	for name, models := range specs {
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

var dupIndexPattern = regexp.MustCompile(`index: (\w+?)_-?1`)

// wrapWriteError converts driver errors into the package's error values.
func wrapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		field := "field"
		if m := dupIndexPattern.FindStringSubmatch(err.Error()); len(m) == 2 {
			field = m[1]
		}
		return &DuplicateKeyError{Field: field, Err: err}
	}
	return err
}

// wrapFindError maps a missing document to ErrNotFound.
func wrapFindError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// conditionalMiss tells a missing document apart from one in the wrong state
// after a conditional write matched nothing.
func conditionalMiss(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID) error {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrPreconditionFailed
}

// findOptions builds the paging and ordering options for a listing.
func findOptions(opts ListOptions, sortKey string) *options.FindOptions {
	dir := -1
	if opts.Ascending {
		dir = 1
	}
	fo := options.Find().SetSort(bson.D{{Key: sortKey, Value: dir}, {Key: "_id", Value: dir}})
	if opts.Limit > 0 {
		fo.SetSkip(opts.Skip()).SetLimit(opts.Limit)
	}
	return fo
}

// timeRange adds an inclusive range on key to filter.
func timeRange(filter bson.M, key string, from, to *time.Time) {
	if from == nil && to == nil {
		return
	}
	r := bson.M{}
	if from != nil {
		r["$gte"] = *from
	}
	if to != nil {
		r["$lte"] = *to
	}
	filter[key] = r
}

// findPage runs a counted, paged query and decodes into out.
func findPage(ctx context.Context, coll *mongo.Collection, filter bson.M, opts ListOptions, sortKey string, out interface{}) (int64, error) {
	if coll == nil {
		return 0, fmt.Errorf("mongo collection is nil")
	}
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	cursor, err := coll.Find(ctx, filter, findOptions(opts, sortKey))
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return 0, err
	}
	return total, nil
}

// deleteByID removes one document or reports ErrNotFound.
func deleteByID(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID) error {
	if coll == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	result, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
