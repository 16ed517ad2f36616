// Package mzkbb contains the data model for the GTFS reference data scraped from the
// MZK Bielsko-Biała timetable site.
package mzkbb

import "errors"

// ErrUnexpectedMarkup is returned when a page does not have the structure the scraper
// relies on. It always aborts the run.
var ErrUnexpectedMarkup = errors.New("unexpected page markup")

// Agency corresponds to a single row in the agency.txt file.
//
// The scraper has a single agency, which is defined in the configuration.
type Agency struct {
	Id       string
	Name     string
	Url      string
	Timezone string
	Language *string
	Phone    *string
	FareUrl  *string
}

// Location is a city district listed on the operator's location index page.
type Location struct {
	Name string
	Url  string
}

// Stop corresponds to a single row in the stops.txt file.
type Stop struct {
	Id          string
	Name        string
	Url         string
	Description *string
	Lattitude   *float64
	Longitude   *float64
	ZoneId      *string
}

// SetCoordinate populates the stop's latitude and longitude.
func (stop *Stop) SetCoordinate(c Coordinate) {
	lat, lon := c.Latitude, c.Longitude
	stop.Lattitude = &lat
	stop.Longitude = &lon
}

// Coordinate returns the stop's coordinate, if it has been set.
func (stop *Stop) Coordinate() (Coordinate, bool) {
	if stop.Lattitude == nil || stop.Longitude == nil {
		return Coordinate{}, false
	}
	return Coordinate{Latitude: *stop.Lattitude, Longitude: *stop.Longitude}, true
}

// Route corresponds to a single row in the routes.txt file.
//
// The operator's pages only provide a short code, so Id and ShortName are always equal.
type Route struct {
	Id          string
	AgencyId    string
	ShortName   string
	LongName    *string
	Description *string
	Type        RouteType
	Url         *string
}

// Coordinate is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// ZeroCoordinate is the placeholder used for stops that could not be geocoded.
var ZeroCoordinate = Coordinate{}

type RouteType int32

const (
	Tram       RouteType = 0
	Subway     RouteType = 1
	Rail       RouteType = 2
	Bus        RouteType = 3
	Ferry      RouteType = 4
	CableTram  RouteType = 5
	AerialLift RouteType = 6
	Funicular  RouteType = 7
	TrolleyBus RouteType = 11
	Monorail   RouteType = 12

	UnknownRouteType RouteType = 10000
)

func NewRouteType(i int) (RouteType, bool) {
	var t RouteType
	switch i {
	case 0:
		t = Tram
	case 1:
		t = Subway
	case 2:
		t = Rail
	case 3:
		t = Bus
	case 4:
		t = Ferry
	case 5:
		t = CableTram
	case 6:
		t = AerialLift
	case 7:
		t = Funicular
	case 11:
		t = TrolleyBus
	case 12:
		t = Monorail
	default:
		return UnknownRouteType, false
	}
	return t, true
}

func (t RouteType) String() string {
	switch t {
	case Tram:
		return "TRAM"
	case Subway:
		return "SUBWAY"
	case Rail:
		return "RAIL"
	case Bus:
		return "BUS"
	case Ferry:
		return "FERRY"
	case CableTram:
		return "CABLE_TRAM"
	case AerialLift:
		return "AERIAL_LIFT"
	case Funicular:
		return "FUNICULAR"
	case TrolleyBus:
		return "TROLLEY_BUS"
	case Monorail:
		return "MONORAIL"
	}
	return "UNKNOWN"
}
