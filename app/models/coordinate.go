package models

import (
	"errors"
	"fmt"
	"math"
)

// ErrCoordinateOutOfRange is returned for coordinates outside the WGS84 bounds.
var ErrCoordinateOutOfRange = errors.New("coordinate out of range")

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Validate checks -90 <= lat <= 90 and -180 <= lng <= 180.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return fmt.Errorf("%w: not a number", ErrCoordinateOutOfRange)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: lat %.6f", ErrCoordinateOutOfRange, c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: lng %.6f", ErrCoordinateOutOfRange, c.Lng)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// LocationSource records which resolver stage produced a coordinate.
type LocationSource string

const (
	LocationSourceEXIF        LocationSource = "EXIF"
	LocationSourceTextGeocode LocationSource = "TEXT_GEOCODE"
	LocationSourceDeviceGPS   LocationSource = "DEVICE_GPS"
	LocationSourceManual      LocationSource = "MANUAL"
)

// AllLocationSources lists every source in resolver precedence order.
var AllLocationSources = []LocationSource{
	LocationSourceEXIF,
	LocationSourceTextGeocode,
	LocationSourceDeviceGPS,
	LocationSourceManual,
}

func (s LocationSource) IsValid() bool {
	switch s {
	case LocationSourceEXIF, LocationSourceTextGeocode, LocationSourceDeviceGPS, LocationSourceManual:
		return true
	}
	return false
}
