// server/internal/models/common.go
package models

// Quantity defines a unit and a numeric amount.
type Quantity struct {
	Unit  string  `bson:"unit,omitempty" json:"unit"`
	Value float64 `bson:"value,omitempty" json:"value"`
}

// GeoPoint is an optional pair of coordinates attached to a location.
type GeoPoint struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}
