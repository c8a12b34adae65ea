package gps

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ErrNoLocation means the buffer carries no usable GPS position: either the
// EXIF block is missing entirely or one of the four required GPS sub-fields
// is absent. It is a normal outcome, not a parse fault.
var ErrNoLocation = errors.New("no geolocation data")

// Record holds the raw GPS position as it appears in EXIF: one
// degrees/minutes/seconds triple plus hemisphere reference per axis.
type Record struct {
	LatitudeDMS  [3]float64
	LatitudeRef  string // "N" or "S"
	LongitudeDMS [3]float64
	LongitudeRef string // "E" or "W"
}

// Extract parses the EXIF block of a JPEG or TIFF buffer and returns its GPS
// position. Presence of the four sub-fields is checked structurally, so a
// coordinate component of exactly zero is still a valid position.
func Extract(data []byte) (*Record, error) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		// No EXIF block at all.
		return nil, ErrNoLocation
	}

	latRef, err := refField(x, exif.GPSLatitudeRef)
	if err != nil {
		return nil, err
	}
	lat, err := dmsField(x, exif.GPSLatitude)
	if err != nil {
		return nil, err
	}
	lonRef, err := refField(x, exif.GPSLongitudeRef)
	if err != nil {
		return nil, err
	}
	lon, err := dmsField(x, exif.GPSLongitude)
	if err != nil {
		return nil, err
	}

	return &Record{
		LatitudeDMS:  lat,
		LatitudeRef:  latRef,
		LongitudeDMS: lon,
		LongitudeRef: lonRef,
	}, nil
}

func refField(x *exif.Exif, name exif.FieldName) (string, error) {
	tag, err := x.Get(name)
	if err != nil {
		return "", ErrNoLocation
	}
	ref, err := tag.StringVal()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return ref, nil
}

func dmsField(x *exif.Exif, name exif.FieldName) ([3]float64, error) {
	var dms [3]float64

	tag, err := x.Get(name)
	if err != nil {
		return dms, ErrNoLocation
	}
	if tag.Count < 3 {
		return dms, fmt.Errorf("%s holds %d rationals, want 3", name, tag.Count)
	}
	for i := 0; i < 3; i++ {
		dms[i], err = ratVal(tag, i)
		if err != nil {
			return dms, fmt.Errorf("reading %s: %w", name, err)
		}
	}
	return dms, nil
}

func ratVal(tag *tiff.Tag, i int) (float64, error) {
	num, den, err := tag.Rat2(i)
	if err != nil {
		return 0, err
	}
	if den == 0 {
		return 0, fmt.Errorf("rational %d has zero denominator", i)
	}
	return float64(num) / float64(den), nil
}
