package coords

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/jamespfennell/mzkbb"
	"github.com/jamespfennell/mzkbb/fetch"
	"github.com/jamespfennell/mzkbb/warnings"
	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
)

type markerFeed struct {
	Markers []marker `xml:"marker"`
}

type marker struct {
	Name string `xml:"name,attr"`
	Lat  string `xml:"lat,attr"`
	Lng  string `xml:"lng,attr"`
}

// ParseMarkers parses the bulk marker feed into a mapping from stop name to coordinate.
//
// Markers without GPS data are skipped with a warning. Names are HTML-unescaped because
// the feed encodes named entities inside its attributes.
func ParseMarkers(r io.Reader, logger zerolog.Logger) (map[string]mzkbb.Coordinate, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel
	d.Entity = xml.HTMLEntity
	var feed markerFeed
	if err := d.Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to parse marker feed: %w", err)
	}
	result := map[string]mzkbb.Coordinate{}
	for _, m := range feed.Markers {
		name := strings.TrimSpace(html.UnescapeString(m.Name))
		lat, lng := strings.TrimSpace(m.Lat), strings.TrimSpace(m.Lng)
		if lat == "" || lng == "" {
			logger.Warn().Err(warnings.MarkerMissingCoordinates{Name: name, Lat: lat, Lng: lng}).Msg("incomplete marker")
			continue
		}
		latitude, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude of marker %q: %w", name, err)
		}
		longitude, err := strconv.ParseFloat(lng, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude of marker %q: %w", name, err)
		}
		if _, ok := result[name]; ok {
			logger.Debug().Str("name", name).Msg("ignoring duplicate marker")
			continue
		}
		result[name] = mzkbb.Coordinate{Latitude: latitude, Longitude: longitude}
	}
	logger.Info().Int("markers", len(result)).Msg("parsed marker feed")
	return result, nil
}

// MarkerSource downloads the marker feed on first use and answers every lookup from it.
type MarkerSource struct {
	Fetcher fetch.Fetcher
	Url     string
	Logger  zerolog.Logger

	markers Map
}

func (s *MarkerSource) Lookup(ctx context.Context, name string) (mzkbb.Coordinate, bool, error) {
	if s.markers == nil {
		page, err := s.Fetcher.Fetch(ctx, s.Url)
		if err != nil {
			return mzkbb.Coordinate{}, false, err
		}
		markers, err := ParseMarkers(page.Raw(), s.Logger)
		if err != nil {
			return mzkbb.Coordinate{}, false, err
		}
		s.markers = markers
	}
	return s.markers.Lookup(ctx, name)
}
