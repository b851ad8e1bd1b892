package models

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `bson:"lat" json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `bson:"lon" json:"lon" validate:"gte=-180,lte=180"`
}

// Place is a trip endpoint: a postal address plus its coordinates.
type Place struct {
	Address     string   `bson:"address" json:"address" validate:"required"`
	Coordinates Location `bson:"coordinates" json:"coordinates"`
}
