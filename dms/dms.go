// Package dms converts degrees/minutes/seconds coordinates to signed decimal degrees.
package dms

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidFormat is returned when a string is not of the form D°M'S" H.
var ErrInvalidFormat = errors.New("invalid DMS coordinate format")

// Convert returns degrees + minutes/60 + seconds/3600, negated when the direction is S or W.
//
// The direction is case-insensitive. An empty direction is treated as N/E.
func Convert(degrees, minutes, seconds int, direction string) float64 {
	v := float64(degrees) + float64(minutes)/60 + float64(seconds)/3600
	switch strings.ToUpper(direction) {
	case "S", "W":
		return -v
	}
	return v
}

// Seconds are closed either by a double quote or by two single quotes, both of which
// appear on the geocoding site.
var dmsRegex = regexp.MustCompile(`^\s*(\d+)\s*°\s*(\d+)\s*'\s*(\d+)\s*(?:"|'')\s*([NSEWnsew])\s*$`)

// Component is a single parsed DMS value.
type Component struct {
	Degrees   int
	Minutes   int
	Seconds   int
	Direction string
}

// Decimal returns the signed decimal degrees for the component.
func (c Component) Decimal() float64 {
	return Convert(c.Degrees, c.Minutes, c.Seconds, c.Direction)
}

// IsLatitude reports whether the component's hemisphere is N or S.
func (c Component) IsLatitude() bool {
	d := strings.ToUpper(c.Direction)
	return d == "N" || d == "S"
}

// ParseComponent parses a string like 49°50'6" N.
func ParseComponent(s string) (Component, error) {
	groups := dmsRegex.FindStringSubmatch(s)
	if groups == nil {
		return Component{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	var parts [3]int
	for i := range parts {
		v, err := strconv.Atoi(groups[i+1])
		if err != nil {
			return Component{}, fmt.Errorf("%w: %q: %w", ErrInvalidFormat, s, err)
		}
		parts[i] = v
	}
	return Component{
		Degrees:   parts[0],
		Minutes:   parts[1],
		Seconds:   parts[2],
		Direction: groups[4],
	}, nil
}

// Parse parses a string like 49°50'6" N into signed decimal degrees.
func Parse(s string) (float64, error) {
	c, err := ParseComponent(s)
	if err != nil {
		return 0, err
	}
	return c.Decimal(), nil
}

// ParsePair parses two comma separated DMS values into a latitude and a longitude.
//
// The hemisphere letter of each value decides which axis it belongs to, so both
// "lat, lon" and "lon, lat" orderings are accepted.
func ParsePair(s string) (lat, lon float64, err error) {
	raw := strings.Split(s, ",")
	if len(raw) != 2 {
		return 0, 0, fmt.Errorf("%w: expected two comma separated values in %q", ErrInvalidFormat, s)
	}
	first, err := ParseComponent(raw[0])
	if err != nil {
		return 0, 0, err
	}
	second, err := ParseComponent(raw[1])
	if err != nil {
		return 0, 0, err
	}
	if first.IsLatitude() == second.IsLatitude() {
		return 0, 0, fmt.Errorf("%w: both values of %q are on the same axis", ErrInvalidFormat, s)
	}
	if !first.IsLatitude() {
		first, second = second, first
	}
	return first.Decimal(), second.Decimal(), nil
}
