// Package config contains the scraper configuration.
//
// The defaults describe the MZK Bielsko-Biała site; a YAML file passed with --config
// is applied on top of them.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/jamespfennell/mzkbb"
	"github.com/jamespfennell/mzkbb/assemble"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYaml []byte

type Config struct {
	Agency      Agency      `yaml:"agency"`
	Site        Site        `yaml:"site"`
	Routes      Routes      `yaml:"routes"`
	Coordinates Coordinates `yaml:"coordinates"`
	HTTP        HTTP        `yaml:"http"`
}

type Agency struct {
	Id       string `yaml:"id"`
	Name     string `yaml:"name"`
	Url      string `yaml:"url"`
	Timezone string `yaml:"timezone"`
	Language string `yaml:"language"`
	Phone    string `yaml:"phone"`
	FareUrl  string `yaml:"fare_url"`
}

type Site struct {
	BaseUrl       string `yaml:"base_url"`
	LocationsPath string `yaml:"locations_path"`
	RoutesPath    string `yaml:"routes_path"`
	LocationHref  string `yaml:"location_href"`
	StopHref      string `yaml:"stop_href"`
	StopId        string `yaml:"stop_id"`
	Encoding      string `yaml:"encoding"`
}

type Routes struct {
	Type int `yaml:"type"`
}

type Strategy string

const (
	Markers Strategy = "markers"
	Search  Strategy = "search"
	File    Strategy = "file"
)

type Coordinates struct {
	Strategy   Strategy `yaml:"strategy"`
	City       string   `yaml:"city"`
	MarkersUrl string   `yaml:"markers_url"`
	SearchUrl  string   `yaml:"search_url"`
	File       string   `yaml:"file"`
	Unmatched  string   `yaml:"unmatched"`
}

type HTTP struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	Interval  time.Duration `yaml:"interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	c, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("invalid default configuration: %s", err))
	}
	return c
}

// Parse applies the YAML overrides on top of the defaults. The result is not validated.
func Parse(overrides []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(defaultYaml, c); err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if err := yaml.Unmarshal(overrides, c); err != nil {
			return nil, fmt.Errorf("failed to parse configuration: %w", err)
		}
	}
	return c, nil
}

// Load reads the configuration file at path, or returns the defaults if path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return Parse(b)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Agency.Id == "" || c.Agency.Name == "" || c.Agency.Url == "" || c.Agency.Timezone == "" {
		errs = append(errs, errors.New("agency id, name, url and timezone are required"))
	}
	if _, err := time.LoadLocation(c.Agency.Timezone); c.Agency.Timezone != "" && err != nil {
		errs = append(errs, fmt.Errorf("agency timezone: %w", err))
	}
	if _, err := c.BaseUrl(); err != nil {
		errs = append(errs, err)
	}
	for _, p := range []struct {
		name    string
		pattern string
	}{
		{"site.location_href", c.Site.LocationHref},
		{"site.stop_href", c.Site.StopHref},
		{"site.stop_id", c.Site.StopId},
	} {
		re, err := regexp.Compile(p.pattern)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
			continue
		}
		if p.name == "site.stop_id" && re.NumSubexp() != 1 {
			errs = append(errs, fmt.Errorf("%s must have exactly one capturing group", p.name))
		}
	}
	if _, ok := mzkbb.NewRouteType(c.Routes.Type); !ok {
		errs = append(errs, fmt.Errorf("routes.type %d is not a GTFS route type", c.Routes.Type))
	}
	if c.HTTP.Timeout < 0 || c.HTTP.Interval < 0 {
		errs = append(errs, errors.New("http timeout and interval must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateCoordinates checks the settings only needed when scraping stops.
func (c *Config) ValidateCoordinates() error {
	var errs []error
	switch c.Coordinates.Strategy {
	case Markers:
		if c.Coordinates.MarkersUrl == "" {
			errs = append(errs, errors.New("coordinates.markers_url is required for the markers strategy"))
		}
	case Search:
		if !strings.Contains(c.Coordinates.SearchUrl, "{query}") {
			errs = append(errs, errors.New("coordinates.search_url must contain {query} for the search strategy"))
		}
	case File:
		if c.Coordinates.File == "" {
			errs = append(errs, errors.New("coordinates.file is required for the file strategy"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown coordinates.strategy %q", c.Coordinates.Strategy))
	}
	if _, err := assemble.ParsePolicy(c.Coordinates.Unmatched); err != nil {
		errs = append(errs, fmt.Errorf("coordinates.unmatched: %w", err))
	}
	return errors.Join(errs...)
}

// BaseUrl returns the parsed site base URL that relative links are resolved against.
func (c *Config) BaseUrl() (*url.URL, error) {
	u, err := url.Parse(c.Site.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("site.base_url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("site.base_url %q is not absolute", c.Site.BaseUrl)
	}
	return u, nil
}

// MarkersUrl returns the marker feed URL for the configured city.
func (c *Config) MarkersUrl() string {
	return strings.ReplaceAll(c.Coordinates.MarkersUrl, "{city}", url.QueryEscape(c.Coordinates.City))
}

// AgencyRecord returns the agency singleton.
func (c *Config) AgencyRecord() mzkbb.Agency {
	return mzkbb.Agency{
		Id:       c.Agency.Id,
		Name:     c.Agency.Name,
		Url:      c.Agency.Url,
		Timezone: c.Agency.Timezone,
		Language: optional(c.Agency.Language),
		Phone:    optional(c.Agency.Phone),
		FareUrl:  optional(c.Agency.FareUrl),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
