// Package query translates the two search modes over stored photo metadata
// into store lookups.
package query

import (
	"errors"

	"geophoto/model"
	"geophoto/storage"

	"go.uber.org/zap"
)

var (
	// ErrNoSelector means neither a text query nor a coordinate pair was given.
	ErrNoSelector = errors.New("no search selector")
	// ErrAmbiguous means both selectors were given; a request picks one mode.
	ErrAmbiguous = errors.New("specify either text or coordinates, not both")
)

// Params carries at most one selector. Longitude and Latitude are pointers so
// that a zero coordinate is distinguishable from an absent one.
type Params struct {
	Text      string
	Longitude *float64
	Latitude  *float64
}

type Service struct {
	Store storage.PhotoStore
	Log   *zap.Logger
}

// Search runs the single mode selected by params and returns the matching
// metadata records: text matches unordered (store relevance), proximity
// matches nearest first.
func (s *Service) Search(params Params) ([]model.PhotoMetadata, error) {
	hasText := params.Text != ""
	hasPoint := params.Longitude != nil && params.Latitude != nil

	switch {
	case hasText && hasPoint:
		return nil, ErrAmbiguous
	case hasText:
		s.Log.Debug("text search", zap.String("query", params.Text))
		return s.Store.SearchPhotosByText(params.Text)
	case hasPoint:
		s.Log.Debug("proximity search",
			zap.Float64("longitude", *params.Longitude),
			zap.Float64("latitude", *params.Latitude))
		return s.Store.SearchPhotosByLocation(*params.Longitude, *params.Latitude)
	default:
		return nil, ErrNoSelector
	}
}
