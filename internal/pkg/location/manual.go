package location

import (
	"errors"
	"sync"

	"github.com/trashmap/trashmap-api/app/models"
)

// ErrAlreadySupplied is returned by a second Supply call.
var ErrAlreadySupplied = errors.New("manual location already supplied")

// ManualPick carries a map-selected coordinate into a running resolution.
// The first valid Supply wins.
type ManualPick struct {
	mu    sync.Mutex
	coord *models.Coordinate
	done  chan struct{}
}

func NewManualPick() *ManualPick {
	return &ManualPick{done: make(chan struct{})}
}

// ManualPickAt returns a pick that is already supplied.
func ManualPickAt(c models.Coordinate) (*ManualPick, error) {
	p := NewManualPick()
	if err := p.Supply(c); err != nil {
		return nil, err
	}
	return p, nil
}

// Supply records the coordinate and wakes a waiting resolver.
func (p *ManualPick) Supply(c models.Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.coord != nil {
		return ErrAlreadySupplied
	}
	p.coord = &c
	close(p.done)
	return nil
}

// Coordinate returns the supplied coordinate. It is safe on a nil pick.
func (p *ManualPick) Coordinate() (models.Coordinate, bool) {
	if p == nil {
		return models.Coordinate{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.coord == nil {
		return models.Coordinate{}, false
	}
	return *p.coord, true
}

// Done is closed once a coordinate has been supplied. A nil pick returns a
// nil channel, which never fires.
func (p *ManualPick) Done() <-chan struct{} {
	if p == nil {
		return nil
	}
	return p.done
}
