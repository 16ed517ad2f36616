package coords

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jamespfennell/mzkbb"
	"github.com/jamespfennell/mzkbb/constants"
	"github.com/jamespfennell/mzkbb/csv"
	"github.com/jamespfennell/mzkbb/warnings"
	"github.com/rs/zerolog"
)

// LoadFile reads a coordinate file, such as a stops.txt written by an earlier run.
func LoadFile(path string, logger zerolog.Logger) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	m, err := ParseFile(f, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return m, nil
}

// ParseFile reads stop_name, stop_lat and stop_lon columns into a coordinate map.
//
// Rows with missing values or the zero placeholder are skipped, so that a previous
// run's gaps are not carried over as real coordinates.
func ParseFile(r io.ReadCloser, logger zerolog.Logger) (Map, error) {
	file, err := csv.New(constants.StopsFile, r)
	if err != nil {
		return nil, err
	}
	name := file.RequiredColumn("stop_name")
	lat := file.RequiredColumn("stop_lat")
	lon := file.RequiredColumn("stop_lon")
	if missing := file.MissingRequiredColumns(); len(missing) > 0 {
		file.Close()
		return nil, fmt.Errorf("missing required columns %s", missing)
	}
	m := Map{}
	for file.NextRow() {
		n, rawLat, rawLon := name.Read(), lat.Read(), lon.Read()
		if missingKeys := file.MissingRowKeys(); len(missingKeys) > 0 {
			logger.Warn().Err(warnings.CoordinateRowMissingColumns{Row: file.RowNumber(), MissingKeys: missingKeys}).Msg("invalid coordinate row")
			continue
		}
		latitude, err := strconv.ParseFloat(rawLat, 64)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("row %d: invalid stop_lat: %w", file.RowNumber(), err)
		}
		longitude, err := strconv.ParseFloat(rawLon, 64)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("row %d: invalid stop_lon: %w", file.RowNumber(), err)
		}
		c := mzkbb.Coordinate{Latitude: latitude, Longitude: longitude}
		if c == mzkbb.ZeroCoordinate {
			logger.Debug().Str("name", n).Msg("skipping placeholder coordinate")
			continue
		}
		if _, ok := m[n]; !ok {
			m[n] = c
		}
	}
	if err := file.Close(); err != nil {
		return nil, err
	}
	return m, nil
}
