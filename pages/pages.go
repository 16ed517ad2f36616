// Package pages extracts locations, stops and routes from the operator's timetable pages.
//
// The site is a set of generated HTML pages without classes or ids; the listers rely
// on link targets and on the styled text (font) elements that wrap every name.
package pages

import (
	"fmt"
	"html"
	"io"
	"iter"
	"net/url"
	"regexp"
	"strings"

	"github.com/jamespfennell/mzkbb"
	"github.com/jamespfennell/mzkbb/extract"
)

// Patterns are the link target patterns of the site.
type Patterns struct {
	// Location matches links to a location page.
	Location *regexp.Regexp
	// Stop selects links to a stop page.
	Stop *regexp.Regexp
	// StopId must match every selected stop link; its only group is the stop id.
	StopId *regexp.Regexp
}

var DefaultPatterns = Patterns{
	Location: regexp.MustCompile(`^m_\d+\.htm$`),
	Stop:     regexp.MustCompile(`^p_`),
	StopId:   regexp.MustCompile(`^p_(\d+)_m\.htm$`),
}

// IdError is returned when a stop link does not have the expected form.
type IdError struct {
	Href    string
	Pattern string
}

func (e *IdError) Error() string {
	return fmt.Sprintf("stop link %q does not match %s", e.Href, e.Pattern)
}

func (e *IdError) Unwrap() error {
	return mzkbb.ErrUnexpectedMarkup
}

// Locations yields the locations linked from the location index page.
func Locations(r io.Reader, base *url.URL, patterns Patterns) iter.Seq2[mzkbb.Location, error] {
	return func(yield func(mzkbb.Location, error) bool) {
		for a, err := range extract.Select(r, extract.Attr("a", "href", patterns.Location)) {
			if err != nil {
				yield(mzkbb.Location{}, err)
				return
			}
			href, _ := a.Attr("href")
			name, err := fontText(a, href)
			if err != nil {
				yield(mzkbb.Location{}, err)
				return
			}
			u, err := resolve(base, href)
			if err != nil {
				yield(mzkbb.Location{}, err)
				return
			}
			if !yield(mzkbb.Location{Name: strings.TrimSpace(name), Url: u}, nil) {
				return
			}
		}
	}
}

// Stops yields the stops linked from a location page.
//
// Stops only carry their identity here; coordinates are added by the assembler.
func Stops(r io.Reader, base *url.URL, patterns Patterns) iter.Seq2[mzkbb.Stop, error] {
	return func(yield func(mzkbb.Stop, error) bool) {
		for a, err := range extract.Select(r, extract.Attr("a", "href", patterns.Stop)) {
			if err != nil {
				yield(mzkbb.Stop{}, err)
				return
			}
			href, _ := a.Attr("href")
			id, err := StopId(href, patterns.StopId)
			if err != nil {
				yield(mzkbb.Stop{}, err)
				return
			}
			name, err := fontText(a, href)
			if err != nil {
				yield(mzkbb.Stop{}, err)
				return
			}
			u, err := resolve(base, href)
			if err != nil {
				yield(mzkbb.Stop{}, err)
				return
			}
			stop := mzkbb.Stop{
				Id:   id,
				Name: CleanStopName(name),
				Url:  u,
			}
			if !yield(stop, nil) {
				return
			}
		}
	}
}

// Routes yields the routes listed on the route index page.
//
// Route rows are the table rows with exactly five cells; the short code is the styled
// text of the second cell. Rows of any other shape are headers or decoration.
func Routes(r io.Reader) iter.Seq2[mzkbb.Route, error] {
	return func(yield func(mzkbb.Route, error) bool) {
		for row, err := range extract.Select(r, extract.Tag("tr")) {
			if err != nil {
				yield(mzkbb.Route{}, err)
				return
			}
			cells := row.Children("td")
			if len(cells) != 5 {
				continue
			}
			font, ok := cells[1].First("font")
			if !ok {
				yield(mzkbb.Route{}, fmt.Errorf("%w: route row %q has no styled text in its second cell",
					mzkbb.ErrUnexpectedMarkup, strings.Join(strings.Fields(row.Text()), " ")))
				return
			}
			code := strings.TrimSpace(font.Text())
			if !yield(mzkbb.Route{Id: code, ShortName: code}, nil) {
				return
			}
		}
	}
}

// StopId extracts the stop id from a stop link target like p_272_m.htm.
func StopId(href string, pattern *regexp.Regexp) (string, error) {
	groups := pattern.FindStringSubmatch(href)
	if len(groups) != 2 || groups[1] == "" {
		return "", &IdError{Href: href, Pattern: pattern.String()}
	}
	return groups[1], nil
}

// CleanStopName decodes the raw stop name and removes the platform or direction
// annotation that follows the first non-breaking space.
func CleanStopName(raw string) string {
	name := html.UnescapeString(raw)
	if i := strings.IndexRune(name, '\u00a0'); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

func fontText(a extract.Element, href string) (string, error) {
	font, ok := a.First("font")
	if !ok {
		return "", fmt.Errorf("%w: link %q has no styled text", mzkbb.ErrUnexpectedMarkup, href)
	}
	return font.Text(), nil
}

func resolve(base *url.URL, href string) (string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: invalid link %q: %w", mzkbb.ErrUnexpectedMarkup, href, err)
	}
	return base.ResolveReference(u).String(), nil
}
