package model

import (
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PhotoMetadata is the metadata subdocument stored on every GridFS photo.
// All fields are set once at ingestion and never mutated.
type PhotoMetadata struct {
	ID          primitive.ObjectID `bson:"-" json:"id"`
	ContentType string             `bson:"content_type" json:"contentType"`
	LonLat      *GeoPoint          `bson:"lonlat" json:"coordinates"`
	Name        string             `bson:"name,omitempty" json:"name,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Size        int64              `bson:"size,omitempty" json:"size,omitempty"`
}

// GeoPoint is a GeoJSON point, required by the 2dsphere index.
type GeoPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"` // [longitude, latitude]
}

func NewGeoPoint(longitude, latitude float64) *GeoPoint {
	return &GeoPoint{
		Type:        "Point",
		Coordinates: []float64{longitude, latitude},
	}
}

// Longitude returns zero when the stored coordinates array is malformed;
// search decoding reads documents this process may not have written.
func (p *GeoPoint) Longitude() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

func (p *GeoPoint) Latitude() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// MarshalJSON flattens the GeoJSON shape into the {longitude, latitude}
// object clients expect.
func (p *GeoPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Longitude float64 `json:"longitude"`
		Latitude  float64 `json:"latitude"`
	}{
		Longitude: p.Longitude(),
		Latitude:  p.Latitude(),
	})
}
