// Package ingest validates uploaded photo bytes and writes the accepted ones
// to the store. Every stage rejects with a sentinel error carrying the exact
// reason reported to the client; the pipeline never continues past the first
// failing stage, so a rejected upload leaves no trace in the store.
package ingest

import (
	"errors"

	"geophoto/gps"
	"geophoto/model"
	"geophoto/storage"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// DefaultMaxSize caps a single upload at 500000 bytes.
const DefaultMaxSize = 500000

// DefaultName names photos uploaded without a display name or filename.
const DefaultName = "photo"

var (
	ErrNoFile   = errors.New("No file")
	ErrNotImage = errors.New("File is not JPEG")
	// ErrNoGeoTag also covers a tag that is present but unusable (hemisphere
	// reference from the wrong axis, coordinate out of range); the wire
	// contract has one reason for every file without a usable position.
	ErrNoGeoTag = errors.New("File has no geolocation tag")
	ErrTooLarge = errors.New("File too large")
)

// IsRejection reports whether err is a validation rejection, as opposed to a
// store fault.
func IsRejection(err error) bool {
	return errors.Is(err, ErrNoFile) ||
		errors.Is(err, ErrNotImage) ||
		errors.Is(err, ErrNoGeoTag) ||
		errors.Is(err, ErrTooLarge)
}

type Pipeline struct {
	Store   storage.PhotoStore
	Log     *zap.Logger
	MaxSize int64 // falls back to DefaultMaxSize when zero
}

// Ingest validates one uploaded photo and stores it. Stages in order: bytes
// present, size limit, format sniff (JPEG or TIFF by magic number), GPS
// extraction, coordinate normalization. Returns the store-assigned id.
func (p *Pipeline) Ingest(data []byte, name, description string) (string, error) {
	if len(data) == 0 {
		return "", ErrNoFile
	}

	maxSize := p.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}
	if int64(len(data)) > maxSize {
		return "", ErrTooLarge
	}

	mime := mimetype.Detect(data)
	if !mime.Is("image/jpeg") && !mime.Is("image/tiff") {
		p.Log.Debug("upload rejected", zap.String("detected_type", mime.String()))
		return "", ErrNotImage
	}

	record, err := gps.Extract(data)
	if err != nil {
		if errors.Is(err, gps.ErrNoLocation) {
			return "", ErrNoGeoTag
		}
		return "", err
	}

	latitude, err := gps.Latitude(record.LatitudeDMS, record.LatitudeRef)
	if err != nil {
		p.Log.Warn("unusable latitude in EXIF", zap.Error(err))
		return "", ErrNoGeoTag
	}
	longitude, err := gps.Longitude(record.LongitudeDMS, record.LongitudeRef)
	if err != nil {
		p.Log.Warn("unusable longitude in EXIF", zap.Error(err))
		return "", ErrNoGeoTag
	}

	if name == "" {
		name = DefaultName
	}

	meta := model.PhotoMetadata{
		ContentType: mime.String(),
		LonLat:      model.NewGeoPoint(longitude, latitude),
		Name:        name,
		Description: description,
		Size:        int64(len(data)),
	}

	id, err := p.Store.SavePhoto(data, meta)
	if err != nil {
		return "", err
	}

	p.Log.Info("photo ingested",
		zap.String("id", id),
		zap.String("content_type", meta.ContentType),
		zap.Float64("latitude", latitude),
		zap.Float64("longitude", longitude))
	return id, nil
}
