package csv

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/jamespfennell/mzkbb"
)

// The column orders of the three tables. stops.txt repeats the stop name in the
// stop_code column.
var (
	AgencyFields = []string{"agency_id", "agency_name", "agency_url", "agency_timezone", "agency_lang", "agency_phone", "agency_fare_url"}
	StopFields   = []string{"stop_id", "stop_code", "stop_name", "stop_desc", "stop_lat", "stop_lon", "zone_id", "stop_url"}
	RouteFields  = []string{"route_id", "agency_id", "route_short_name", "route_long_name", "route_desc", "route_type", "route_url"}
)

type WriteOptions struct {
	// OmitHeader skips the header row.
	OmitHeader bool
}

type agencyRow struct {
	Id       string `csv:"agency_id"`
	Name     string `csv:"agency_name"`
	Url      string `csv:"agency_url"`
	Timezone string `csv:"agency_timezone"`
	Language string `csv:"agency_lang"`
	Phone    string `csv:"agency_phone"`
	FareUrl  string `csv:"agency_fare_url"`
}

type stopRow struct {
	Id          string `csv:"stop_id"`
	Code        string `csv:"stop_code"`
	Name        string `csv:"stop_name"`
	Description string `csv:"stop_desc"`
	Lattitude   string `csv:"stop_lat"`
	Longitude   string `csv:"stop_lon"`
	ZoneId      string `csv:"zone_id"`
	Url         string `csv:"stop_url"`
}

type routeRow struct {
	Id          string `csv:"route_id"`
	AgencyId    string `csv:"agency_id"`
	ShortName   string `csv:"route_short_name"`
	LongName    string `csv:"route_long_name"`
	Description string `csv:"route_desc"`
	Type        string `csv:"route_type"`
	Url         string `csv:"route_url"`
}

func WriteAgencies(w io.Writer, agencies []mzkbb.Agency, opts WriteOptions) error {
	rows := make([]agencyRow, 0, len(agencies))
	for _, a := range agencies {
		rows = append(rows, agencyRow{
			Id:       a.Id,
			Name:     a.Name,
			Url:      a.Url,
			Timezone: a.Timezone,
			Language: unPtr(a.Language),
			Phone:    unPtr(a.Phone),
			FareUrl:  unPtr(a.FareUrl),
		})
	}
	return write(w, rows, len(rows), AgencyFields, opts)
}

func WriteStops(w io.Writer, stops []mzkbb.Stop, opts WriteOptions) error {
	rows := make([]stopRow, 0, len(stops))
	for _, s := range stops {
		rows = append(rows, stopRow{
			Id:          s.Id,
			Code:        s.Name,
			Name:        s.Name,
			Description: unPtr(s.Description),
			Lattitude:   formatFloat(s.Lattitude),
			Longitude:   formatFloat(s.Longitude),
			ZoneId:      unPtr(s.ZoneId),
			Url:         s.Url,
		})
	}
	return write(w, rows, len(rows), StopFields, opts)
}

func WriteRoutes(w io.Writer, routes []mzkbb.Route, opts WriteOptions) error {
	rows := make([]routeRow, 0, len(routes))
	for _, r := range routes {
		var routeType string
		if r.Type != mzkbb.UnknownRouteType {
			routeType = strconv.Itoa(int(r.Type))
		}
		rows = append(rows, routeRow{
			Id:          r.Id,
			AgencyId:    r.AgencyId,
			ShortName:   r.ShortName,
			LongName:    unPtr(r.LongName),
			Description: unPtr(r.Description),
			Type:        routeType,
			Url:         unPtr(r.Url),
		})
	}
	return write(w, rows, len(rows), RouteFields, opts)
}

func write(w io.Writer, rows any, n int, header []string, opts WriteOptions) error {
	if n == 0 {
		if opts.OmitHeader {
			return nil
		}
		cw := csv.NewWriter(w)
		cw.Write(header)
		cw.Flush()
		return cw.Error()
	}
	if opts.OmitHeader {
		return gocsv.MarshalWithoutHeaders(rows, w)
	}
	return gocsv.Marshal(rows, w)
}

func unPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
