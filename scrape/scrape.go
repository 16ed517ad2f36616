// Package scrape runs the scraping pipeline: it walks the operator's location and route
// index pages and turns them into GTFS agency, stop and route records.
package scrape

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"regexp"

	"github.com/jamespfennell/mzkbb"
	"github.com/jamespfennell/mzkbb/assemble"
	"github.com/jamespfennell/mzkbb/config"
	"github.com/jamespfennell/mzkbb/coords"
	"github.com/jamespfennell/mzkbb/fetch"
	"github.com/jamespfennell/mzkbb/pages"
	"github.com/jamespfennell/mzkbb/warnings"
	"github.com/rs/zerolog"
)

// Scraper fetches pages one at a time; it is not safe for concurrent use.
type Scraper struct {
	config   *config.Config
	fetcher  fetch.Fetcher
	logger   zerolog.Logger
	base     *url.URL
	patterns pages.Patterns

	// Source is used to geocode stops. If nil, it is built from the configuration
	// the first time stops are scraped.
	Source coords.Source
}

// New returns a scraper for the given configuration, which must be valid.
func New(cfg *config.Config, fetcher fetch.Fetcher, logger zerolog.Logger) (*Scraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	base, err := cfg.BaseUrl()
	if err != nil {
		return nil, err
	}
	return &Scraper{
		config:  cfg,
		fetcher: fetcher,
		logger:  logger,
		base:    base,
		patterns: pages.Patterns{
			Location: regexp.MustCompile(cfg.Site.LocationHref),
			Stop:     regexp.MustCompile(cfg.Site.StopHref),
			StopId:   regexp.MustCompile(cfg.Site.StopId),
		},
	}, nil
}

// NewSource builds the coordinate source described by the configuration.
//
// When a coordinate file is configured alongside the markers or search strategy, the
// file is consulted first.
func NewSource(cfg *config.Config, fetcher fetch.Fetcher, logger zerolog.Logger) (coords.Source, error) {
	if err := cfg.ValidateCoordinates(); err != nil {
		return nil, err
	}
	var file coords.Source
	if cfg.Coordinates.File != "" {
		m, err := coords.LoadFile(cfg.Coordinates.File, logger)
		if err != nil {
			return nil, err
		}
		logger.Info().Int("stops", len(m)).Str("file", cfg.Coordinates.File).Msg("loaded coordinate file")
		file = m
	}
	var primary coords.Source
	switch cfg.Coordinates.Strategy {
	case config.Markers:
		primary = &coords.MarkerSource{Fetcher: fetcher, Url: cfg.MarkersUrl(), Logger: logger}
	case config.Search:
		primary = &coords.SearchSource{Fetcher: fetcher, Url: cfg.Coordinates.SearchUrl, Logger: logger}
	case config.File:
		return file, nil
	}
	if file == nil {
		return primary, nil
	}
	return coords.Chain{file, primary}, nil
}

func (s *Scraper) Agencies() []mzkbb.Agency {
	return []mzkbb.Agency{s.config.AgencyRecord()}
}

// Locations returns the locations listed on the location index page.
func (s *Scraper) Locations(ctx context.Context) ([]mzkbb.Location, error) {
	page, err := s.page(ctx, s.config.Site.LocationsPath)
	if err != nil {
		return nil, err
	}
	r, err := page.HTML()
	if err != nil {
		return nil, err
	}
	var locations []mzkbb.Location
	for location, err := range pages.Locations(r, s.base, s.patterns) {
		if err != nil {
			return nil, fmt.Errorf("failed to list locations on %s: %w", page.Url, err)
		}
		locations = append(locations, location)
	}
	if len(locations) == 0 {
		return nil, fmt.Errorf("%w: no locations found on %s", mzkbb.ErrUnexpectedMarkup, page.Url)
	}
	s.logger.Info().Int("locations", len(locations)).Msg("listed locations")
	return locations, nil
}

// Stops lists the stops of every location and adds their coordinates.
//
// A stop listed under several locations is emitted once, for the first location.
func (s *Scraper) Stops(ctx context.Context) ([]mzkbb.Stop, assemble.Report, error) {
	if s.Source == nil {
		source, err := NewSource(s.config, s.fetcher, s.logger)
		if err != nil {
			return nil, assemble.Report{}, err
		}
		s.Source = source
	}
	policy, err := assemble.ParsePolicy(s.config.Coordinates.Unmatched)
	if err != nil {
		return nil, assemble.Report{}, err
	}
	locations, err := s.Locations(ctx)
	if err != nil {
		return nil, assemble.Report{}, err
	}
	assembler := assemble.Assembler{Source: s.Source, Policy: policy, Logger: s.logger}
	stops, report, err := assembler.Assemble(ctx, s.listStops(ctx, locations))
	if err != nil {
		return nil, report, err
	}
	s.logger.Info().
		Int("stops", len(stops)).
		Int("matched", report.Matched).
		Int("unmatched", report.Unmatched).
		Int("dropped", report.Dropped).
		Msg("assembled stops")
	return stops, report, nil
}

func (s *Scraper) listStops(ctx context.Context, locations []mzkbb.Location) iter.Seq2[mzkbb.Stop, error] {
	return func(yield func(mzkbb.Stop, error) bool) {
		seen := map[string]bool{}
		for _, location := range locations {
			page, err := s.fetcher.Fetch(ctx, location.Url)
			if err != nil {
				yield(mzkbb.Stop{}, err)
				return
			}
			r, err := page.HTML()
			if err != nil {
				yield(mzkbb.Stop{}, err)
				return
			}
			n := 0
			for stop, err := range pages.Stops(r, s.base, s.patterns) {
				if err != nil {
					yield(mzkbb.Stop{}, fmt.Errorf("failed to list stops of %s: %w", location.Name, err))
					return
				}
				if seen[stop.Id] {
					s.logger.Debug().Err(warnings.DuplicateStop{StopId: stop.Id, Location: location.Name}).Send()
					continue
				}
				seen[stop.Id] = true
				n += 1
				if !yield(stop, nil) {
					return
				}
			}
			s.logger.Debug().Str("location", location.Name).Int("stops", n).Msg("listed stops")
		}
	}
}

// Routes returns the routes listed on the route index page.
func (s *Scraper) Routes(ctx context.Context) ([]mzkbb.Route, error) {
	page, err := s.page(ctx, s.config.Site.RoutesPath)
	if err != nil {
		return nil, err
	}
	r, err := page.HTML()
	if err != nil {
		return nil, err
	}
	routeType, _ := mzkbb.NewRouteType(s.config.Routes.Type)
	var routes []mzkbb.Route
	for route, err := range pages.Routes(r) {
		if err != nil {
			return nil, fmt.Errorf("failed to list routes on %s: %w", page.Url, err)
		}
		route.AgencyId = s.config.Agency.Id
		route.Type = routeType
		routes = append(routes, route)
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("%w: no routes found on %s", mzkbb.ErrUnexpectedMarkup, page.Url)
	}
	s.logger.Info().Int("routes", len(routes)).Msg("listed routes")
	return routes, nil
}

func (s *Scraper) page(ctx context.Context, path string) (*fetch.Page, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid page path %q: %w", path, err)
	}
	return s.fetcher.Fetch(ctx, s.base.ResolveReference(u).String())
}
