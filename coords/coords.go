// Package coords finds the coordinates of stops.
//
// Three sources exist: the bulk marker feed, which returns every stop of a city in one
// document, the per-stop search against the secondary geocoding site, and a local CSV
// file of manual coordinates.
package coords

import (
	"context"

	"github.com/jamespfennell/mzkbb"
)

// Source looks up the coordinate of a stop by its exact name.
//
// A false result means the name is unknown to the source. Errors are reserved for hard
// failures that should abort the run.
type Source interface {
	Lookup(ctx context.Context, name string) (mzkbb.Coordinate, bool, error)
}

// Chain consults each source in turn and returns the first match.
type Chain []Source

func (c Chain) Lookup(ctx context.Context, name string) (mzkbb.Coordinate, bool, error) {
	for _, source := range c {
		coordinate, ok, err := source.Lookup(ctx, name)
		if err != nil {
			return mzkbb.Coordinate{}, false, err
		}
		if ok {
			return coordinate, true, nil
		}
	}
	return mzkbb.Coordinate{}, false, nil
}

// Map is a source backed by an in-memory name to coordinate mapping.
type Map map[string]mzkbb.Coordinate

func (m Map) Lookup(_ context.Context, name string) (mzkbb.Coordinate, bool, error) {
	coordinate, ok := m[name]
	return coordinate, ok, nil
}
