package coords

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jamespfennell/mzkbb"
	"github.com/jamespfennell/mzkbb/dms"
	"github.com/jamespfennell/mzkbb/extract"
	"github.com/jamespfennell/mzkbb/fetch"
	"github.com/jamespfennell/mzkbb/warnings"
	"github.com/rs/zerolog"
)

// SearchSource geocodes one stop at a time using the free-text search of the secondary
// site.
//
// It always reports a match: a stop that cannot be found gets the zero placeholder,
// so that no stop is left without coordinates when this source is in use.
type SearchSource struct {
	Fetcher fetch.Fetcher
	// Url contains {query}, which is replaced by the query-escaped stop name.
	Url    string
	Logger zerolog.Logger
}

func (s *SearchSource) Lookup(ctx context.Context, name string) (mzkbb.Coordinate, bool, error) {
	query := url.QueryEscape(name)
	results, err := s.fetch(ctx, strings.ReplaceAll(s.Url, "{query}", query))
	if err != nil {
		return mzkbb.Coordinate{}, false, err
	}
	link, ok := firstResult(results)
	if !ok {
		s.Logger.Error().Err(warnings.GeocodeNotFound{StopName: name, Query: query}).Msg("geocoding failed")
		return mzkbb.ZeroCoordinate, true, nil
	}
	detail, err := s.follow(ctx, results, link)
	if err != nil {
		return mzkbb.Coordinate{}, false, err
	}
	platforms := platformLinks(detail.root)
	switch {
	case len(platforms) > 1:
		var names []string
		for _, p := range platforms {
			names = append(names, p.name)
		}
		s.Logger.Warn().Err(warnings.MultiplePlatforms{StopName: name, Platforms: names}).Msg("ambiguous stop")
		detail, err = s.follow(ctx, detail, platforms[0].href)
	case len(platforms) == 1 && !hasPeronInfo(detail.root):
		detail, err = s.follow(ctx, detail, platforms[0].href)
	}
	if err != nil {
		return mzkbb.Coordinate{}, false, err
	}
	coordinate, err := parsePeronInfo(detail.root)
	if err != nil {
		return mzkbb.Coordinate{}, false, fmt.Errorf("stop %q (%s): %w", name, detail.url, err)
	}
	s.Logger.Debug().
		Str("stop", name).
		Float64("lat", coordinate.Latitude).
		Float64("lon", coordinate.Longitude).
		Msg("geocoded stop")
	return coordinate, true, nil
}

type document struct {
	url  *url.URL
	root *goquery.Selection
}

func (s *SearchSource) fetch(ctx context.Context, rawUrl string) (document, error) {
	page, err := s.Fetcher.Fetch(ctx, rawUrl)
	if err != nil {
		return document{}, err
	}
	u, err := url.Parse(page.Url)
	if err != nil {
		return document{}, err
	}
	r, err := page.HTML()
	if err != nil {
		return document{}, err
	}
	root, err := extract.Parse(r)
	if err != nil {
		return document{}, fmt.Errorf("failed to parse %s: %w", page.Url, err)
	}
	return document{url: u, root: root.Selection()}, nil
}

func (s *SearchSource) follow(ctx context.Context, from document, href string) (document, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return document{}, fmt.Errorf("%w: invalid link %q: %w", mzkbb.ErrUnexpectedMarkup, href, err)
	}
	return s.fetch(ctx, from.url.ResolveReference(ref).String())
}

func firstResult(results document) (string, bool) {
	href, ok := results.root.Find("ul.links a[href]").First().Attr("href")
	if !ok {
		href, ok = results.root.Find(".links a[href], #links a[href]").First().Attr("href")
	}
	return href, ok && strings.TrimSpace(href) != ""
}

type platform struct {
	name string
	href string
}

func platformLinks(root *goquery.Selection) []platform {
	var platforms []platform
	root.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		text := strings.Join(strings.Fields(a.Text()), " ")
		if !strings.HasPrefix(strings.ToLower(text), "peron") {
			return
		}
		href, _ := a.Attr("href")
		platforms = append(platforms, platform{name: text, href: href})
	})
	return platforms
}

func hasPeronInfo(root *goquery.Selection) bool {
	return root.Find("#peron-info").Length() > 0
}

// parsePeronInfo reads the DMS coordinate pair from the platform info block, e.g.
// "Współrzędne: 49°49'40" N, 19°2'41" E".
func parsePeronInfo(root *goquery.Selection) (mzkbb.Coordinate, error) {
	info := root.Find("#peron-info").First()
	if info.Length() == 0 {
		return mzkbb.Coordinate{}, fmt.Errorf("%w: no peron-info block", mzkbb.ErrUnexpectedMarkup)
	}
	for _, line := range strings.Split(info.Text(), "\n") {
		if !strings.Contains(line, "°") {
			continue
		}
		if i := strings.LastIndex(line, ":"); i >= 0 {
			line = line[i+1:]
		}
		lat, lon, err := dms.ParsePair(line)
		if err != nil {
			return mzkbb.Coordinate{}, err
		}
		return mzkbb.Coordinate{Latitude: lat, Longitude: lon}, nil
	}
	return mzkbb.Coordinate{}, fmt.Errorf("%w: no coordinate in peron-info block %q",
		mzkbb.ErrUnexpectedMarkup, strings.TrimSpace(info.Text()))
}
