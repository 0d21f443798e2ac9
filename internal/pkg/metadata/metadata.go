// Package metadata reads the embedded geotag and capture time of an image.
package metadata

import (
	"bytes"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"

	"github.com/trashmap/trashmap-api/app/models"
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// Result is what Extract found. Either field may be nil.
type Result struct {
	Coordinate *models.Coordinate
	CapturedAt *time.Time
}

// HasCoordinate reports whether a geotag was found.
func (r Result) HasCoordinate() bool {
	return r.Coordinate != nil
}

// Extract parses the EXIF block of image. A missing, corrupt or out of range
// geotag yields a nil Coordinate; it is never an error.
func Extract(image []byte) (res Result) {
	if len(image) == 0 {
		return Result{}
	}

	// goexif can panic on truncated IFDs
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("[Metadata] EXIF decoder panicked, treating as no metadata: %v", r)
			res = Result{}
		}
	}()

	x, err := exif.Decode(bytes.NewReader(image))
	if err != nil {
		log.Debugf("[Metadata] No EXIF data: %v", err)
		return Result{}
	}

	if t, err := x.DateTime(); err == nil && !t.IsZero() {
		res.CapturedAt = &t
	}

	lat, okLat := readAngle(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	lng, okLng := readAngle(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	if !okLat || !okLng {
		return res
	}

	c := models.Coordinate{Lat: lat, Lng: lng}
	if err := c.Validate(); err != nil {
		log.Warnf("[Metadata] Ignoring geotag %s: %v", c, err)
		return res
	}
	// Cameras without a fix often write 0/0.
	if lat == 0 && lng == 0 {
		return res
	}
	res.Coordinate = &c
	return res
}

// readAngle converts a GPS rational triple (or a single decimal value) plus
// its hemisphere reference into signed decimal degrees.
func readAngle(x *exif.Exif, field, refField exif.FieldName) (float64, bool) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, false
	}

	n := int(tag.Count)
	if n > 3 {
		n = 3
	}
	parts := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return 0, false
		}
		parts = append(parts, float64(num)/float64(den))
	}

	ref := ""
	if refTag, err := x.Get(refField); err == nil {
		if s, err := refTag.StringVal(); err == nil {
			ref = s
		}
	}

	switch len(parts) {
	case 3:
		return DMSToDecimal(parts[0], parts[1], parts[2], ref), true
	case 2:
		return DMSToDecimal(parts[0], parts[1], 0, ref), true
	case 1:
		return ApplyHemisphere(parts[0], ref), true
	default:
		return 0, false
	}
}

// DMSToDecimal returns deg + min/60 + sec/3600, negated for S and W.
func DMSToDecimal(deg, min, sec float64, ref string) float64 {
	return ApplyHemisphere(deg+min/60+sec/3600, ref)
}

// ApplyHemisphere signs a decimal degree value. Values that are already
// negative are left alone so decimal-native inputs pass through unchanged.
func ApplyHemisphere(dd float64, ref string) float64 {
	if dd < 0 {
		return dd
	}
	if isNegativeRef(ref) {
		return -dd
	}
	return dd
}

func isNegativeRef(ref string) bool {
	ref = strings.ToUpper(strings.Trim(ref, " \x00\""))
	return strings.HasPrefix(ref, "S") || strings.HasPrefix(ref, "W")
}
