// Package authority maps a coordinate to the authority responsible for it.
package authority

import (
	"context"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/internal/pkg/geocoding"
)

// Lookup reverse-geocodes a coordinate and picks the matching contact.
type Lookup struct {
	reverse   geocoding.ReverseGeocoder
	directory *Directory
}

// NewLookup builds a lookup. reverse may be nil, in which case every lookup
// yields the default contact.
func NewLookup(reverse geocoding.ReverseGeocoder, directory *Directory) *Lookup {
	return &Lookup{reverse: reverse, directory: directory}
}

// Lookup never fails: any reverse geocoding problem degrades to the default
// contact with a nil jurisdiction.
func (l *Lookup) Lookup(ctx context.Context, c models.Coordinate) (models.AuthorityContact, *models.Jurisdiction) {
	if l.reverse == nil {
		return l.directory.Default(), nil
	}

	addr, err := l.reverse.Reverse(ctx, c)
	if err != nil {
		log.Warnf("[Authority] Reverse geocoding %s failed, using default contact: %v", c, err)
		return l.directory.Default(), nil
	}

	j := addr.Jurisdiction()
	return l.directory.ContactFor(j), j
}

// Directory exposes the loaded contacts.
func (l *Lookup) Directory() *Directory {
	return l.directory
}
