// Package warnings contains the soft failures encountered while scraping.
//
// A warning never stops a run. Each one is logged and the affected record is either
// skipped or emitted with placeholder values.
package warnings

import (
	"fmt"
	"strings"

	"github.com/jamespfennell/mzkbb/constants"
)

type Warning interface {
	File() constants.File
	Error() string
}

type MarkerMissingCoordinates struct {
	Name string
	Lat  string
	Lng  string
}

func (w MarkerMissingCoordinates) File() constants.File {
	return constants.StopsFile
}

func (w MarkerMissingCoordinates) Error() string {
	return fmt.Sprintf("skipping marker %q because of missing GPS data (lat=%q, lng=%q)", w.Name, w.Lat, w.Lng)
}

type GeocodeNotFound struct {
	StopName string
	Query    string
}

func (w GeocodeNotFound) File() constants.File {
	return constants.StopsFile
}

func (w GeocodeNotFound) Error() string {
	return fmt.Sprintf("no search results for stop %q (query %q)", w.StopName, w.Query)
}

type MultiplePlatforms struct {
	StopName  string
	Platforms []string
}

func (w MultiplePlatforms) File() constants.File {
	return constants.StopsFile
}

func (w MultiplePlatforms) Error() string {
	return fmt.Sprintf("stop %q has %d platforms [%s], using the first one",
		w.StopName, len(w.Platforms), strings.Join(w.Platforms, "; "))
}

type StopUnmatched struct {
	StopId   string
	StopName string
	Dropped  bool
}

func (w StopUnmatched) File() constants.File {
	return constants.StopsFile
}

func (w StopUnmatched) Error() string {
	if w.Dropped {
		return fmt.Sprintf("skipping stop %s %q because no coordinate matches its name", w.StopId, w.StopName)
	}
	return fmt.Sprintf("stop %s %q has no matching coordinate, using placeholder", w.StopId, w.StopName)
}

type DuplicateStop struct {
	StopId   string
	Location string
}

func (w DuplicateStop) File() constants.File {
	return constants.StopsFile
}

func (w DuplicateStop) Error() string {
	return fmt.Sprintf("stop %s already listed, ignoring it in location %q", w.StopId, w.Location)
}

type CoordinateRowMissingColumns struct {
	Row         int
	MissingKeys []string
}

func (w CoordinateRowMissingColumns) File() constants.File {
	return constants.StopsFile
}

func (w CoordinateRowMissingColumns) Error() string {
	return fmt.Sprintf("skipping coordinate row %d because of missing columns %s", w.Row, w.MissingKeys)
}
