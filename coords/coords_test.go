package coords

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jamespfennell/mzkbb"
	"github.com/jamespfennell/mzkbb/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	searchUrl = "http://geo.invalid/szukaj?q={query}"
	geoHost   = "http://geo.invalid"
)

var approx = cmpopts.EquateApprox(0, 1e-4)

func TestParseMarkers(t *testing.T) {
	logger, logs := testutil.Logger()
	f, err := os.Open("testdata/markers.xml")
	require.NoError(t, err)
	defer f.Close()

	markers, err := ParseMarkers(f, logger)
	require.NoError(t, err)

	expected := map[string]mzkbb.Coordinate{
		"3 Maja/Dworzec": {Latitude: 49.8279341851486, Longitude: 19.0446281433105},
		"Os. Złote Łany": {Latitude: 49.8117, Longitude: 19.0159},
		"Plac Chrobrego": {Latitude: 49.8222, Longitude: 19.0447},
	}
	if diff := cmp.Diff(expected, markers); diff != "" {
		t.Errorf("ParseMarkers() diff (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, testutil.CountLevel(logs, zerolog.WarnLevel))
	require.Contains(t, logs.String(), "Bystra Krzywa")
}

func TestParseMarkersInvalid(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		content string
	}{
		{"not xml", "<markers><marker name="},
		{"bad latitude", `<markers><marker name="a" lat="north" lng="19.0"/></markers>`},
		{"bad longitude", `<markers><marker name="a" lat="49.0" lng="east"/></markers>`},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := ParseMarkers(strings.NewReader(tc.content), zerolog.Nop())
			require.Error(t, err)
		})
	}
}

func TestParseMarkersHTMLEntity(t *testing.T) {
	markers, err := ParseMarkers(strings.NewReader(`<markers><marker name="Cygański Las &ndash; pętla" lat="49.79" lng="19.05"/></markers>`), zerolog.Nop())
	require.NoError(t, err)
	require.Contains(t, markers, "Cygański Las – pętla")
}

func TestMarkerSource(t *testing.T) {
	fetcher := testutil.NewFetcher().AddFile(t, "http://geo.invalid/markers.xml", "testdata/markers.xml")
	source := &MarkerSource{Fetcher: fetcher, Url: "http://geo.invalid/markers.xml", Logger: zerolog.Nop()}

	c, ok, err := source.Lookup(context.Background(), "3 Maja/Dworzec")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, mzkbb.Coordinate{Latitude: 49.8279341851486, Longitude: 19.0446281433105}, c)

	_, ok, err = source.Lookup(context.Background(), "3 maja/dworzec")
	require.NoError(t, err)
	require.False(t, ok, "lookups are case sensitive")

	_, ok, err = source.Lookup(context.Background(), "Bystra Krzywa")
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, []string{"http://geo.invalid/markers.xml"}, fetcher.Requested, "the feed is fetched once")
}

func TestMarkerSourceFetchError(t *testing.T) {
	source := &MarkerSource{Fetcher: testutil.NewFetcher(), Url: "http://geo.invalid/markers.xml", Logger: zerolog.Nop()}
	_, _, err := source.Lookup(context.Background(), "3 Maja/Dworzec")
	require.Error(t, err)
}

func TestSearchSource(t *testing.T) {
	for _, tc := range []struct {
		desc          string
		name          string
		pages         map[string]string
		expected      mzkbb.Coordinate
		expectedWarns int
		expectedErrs  int
		requested     []string
	}{
		{
			desc: "multiple platforms",
			name: "3 Maja/Dworzec",
			pages: map[string]string{
				"http://geo.invalid/szukaj?q=3+Maja%2FDworzec":        "testdata/search.htm",
				"http://geo.invalid/przystanek/3-maja-dworzec":         "testdata/stop_platforms.htm",
				"http://geo.invalid/przystanek/3-maja-dworzec/peron-1": "testdata/peron.htm",
			},
			expected:      mzkbb.Coordinate{Latitude: 49.8278, Longitude: 19.0444},
			expectedWarns: 1,
			requested: []string{
				"http://geo.invalid/szukaj?q=3+Maja%2FDworzec",
				"http://geo.invalid/przystanek/3-maja-dworzec",
				"http://geo.invalid/przystanek/3-maja-dworzec/peron-1",
			},
		},
		{
			desc: "single stop page",
			name: "Plac Chrobrego",
			pages: map[string]string{
				"http://geo.invalid/szukaj?q=Plac+Chrobrego":   "testdata/search.htm",
				"http://geo.invalid/przystanek/3-maja-dworzec": "testdata/stop_single.htm",
			},
			expected: mzkbb.Coordinate{Latitude: 49.8222, Longitude: 19.0447},
			requested: []string{
				"http://geo.invalid/szukaj?q=Plac+Chrobrego",
				"http://geo.invalid/przystanek/3-maja-dworzec",
			},
		},
		{
			desc: "no results",
			name: "Nowhere",
			pages: map[string]string{
				"http://geo.invalid/szukaj?q=Nowhere": "testdata/search_empty.htm",
			},
			expected:     mzkbb.ZeroCoordinate,
			expectedErrs: 1,
			requested:    []string{"http://geo.invalid/szukaj?q=Nowhere"},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			fetcher := testutil.NewFetcher()
			for url, path := range tc.pages {
				fetcher.AddFile(t, url, path)
			}
			logger, logs := testutil.Logger()
			source := &SearchSource{Fetcher: fetcher, Url: searchUrl, Logger: logger}

			c, ok, err := source.Lookup(context.Background(), tc.name)
			require.NoError(t, err)
			require.True(t, ok, "the search source always reports a coordinate")
			if diff := cmp.Diff(tc.expected, c, approx); diff != "" {
				t.Errorf("Lookup() diff (-want +got):\n%s", diff)
			}
			require.Equal(t, tc.requested, fetcher.Requested)
			require.Equal(t, tc.expectedWarns, testutil.CountLevel(logs, zerolog.WarnLevel))
			require.Equal(t, tc.expectedErrs, testutil.CountLevel(logs, zerolog.ErrorLevel))
		})
	}
}

func TestSearchSourceMultiplePlatformsWarning(t *testing.T) {
	fetcher := testutil.NewFetcher().
		AddFile(t, "http://geo.invalid/szukaj?q=3+Maja%2FDworzec", "testdata/search.htm").
		AddFile(t, "http://geo.invalid/przystanek/3-maja-dworzec", "testdata/stop_platforms.htm").
		AddFile(t, "http://geo.invalid/przystanek/3-maja-dworzec/peron-1", "testdata/peron.htm")
	logger, logs := testutil.Logger()
	source := &SearchSource{Fetcher: fetcher, Url: searchUrl, Logger: logger}
	_, _, err := source.Lookup(context.Background(), "3 Maja/Dworzec")
	require.NoError(t, err)
	require.Contains(t, logs.String(), "Peron 1; Peron 2")
}

func TestSearchSourceBadPeronInfo(t *testing.T) {
	fetcher := testutil.NewFetcher().
		AddFile(t, "http://geo.invalid/szukaj?q=3+Maja", "testdata/search.htm").
		Add("http://geo.invalid/przystanek/3-maja-dworzec", `<div id="peron-info">Współrzędne: 49.8278, 19.0444</div>`)
	source := &SearchSource{Fetcher: fetcher, Url: searchUrl, Logger: zerolog.Nop()}
	_, _, err := source.Lookup(context.Background(), "3 Maja")
	require.True(t, errors.Is(err, mzkbb.ErrUnexpectedMarkup), "got %v", err)
}

func TestSearchSourceFetchError(t *testing.T) {
	fetcher := testutil.NewFetcher().AddFile(t, "http://geo.invalid/szukaj?q=3+Maja", "testdata/search.htm")
	source := &SearchSource{Fetcher: fetcher, Url: searchUrl, Logger: zerolog.Nop()}
	_, _, err := source.Lookup(context.Background(), "3 Maja")
	require.Error(t, err)
}

func TestParseFile(t *testing.T) {
	content := "stop_id,stop_code,stop_name,stop_desc,stop_lat,stop_lon,zone_id,stop_url\n" +
		"272,3 Maja/Dworzec,3 Maja/Dworzec,,49.8279341851486,19.0446281433105,,\n" +
		"17,Bystra,Bystra,,0,0,,\n" +
		"5,Plac Chrobrego,Plac Chrobrego,,,19.0447,,\n"
	logger, logs := testutil.Logger()
	m, err := ParseFile(io.NopCloser(strings.NewReader(content)), logger)
	require.NoError(t, err)
	require.Equal(t, Map{
		"3 Maja/Dworzec": {Latitude: 49.8279341851486, Longitude: 19.0446281433105},
	}, m)
	require.Equal(t, 1, testutil.CountLevel(logs, zerolog.WarnLevel))
}

func TestParseFileErrors(t *testing.T) {
	for _, content := range []string{
		"stop_name,stop_lat\nBystra,49.8\n",
		"stop_name,stop_lat,stop_lon\nBystra,north,19.1\n",
		"stop_name,stop_lat,stop_lon\nBystra,49.8,east\n",
	} {
		_, err := ParseFile(io.NopCloser(strings.NewReader(content)), zerolog.Nop())
		require.Error(t, err, content)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stops.txt")
	require.NoError(t, os.WriteFile(path, []byte("stop_name,stop_lat,stop_lon\nBystra,49.77,19.11\n"), 0644))
	m, err := LoadFile(path, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, Map{"Bystra": {Latitude: 49.77, Longitude: 19.11}}, m)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.txt"), zerolog.Nop())
	require.Error(t, err)
}

func TestChain(t *testing.T) {
	chain := Chain{
		Map{"Bystra": {Latitude: 1, Longitude: 2}},
		Map{"Bystra": {Latitude: 3, Longitude: 4}, "Wapienica": {Latitude: 5, Longitude: 6}},
	}
	for _, tc := range []struct {
		name     string
		expected mzkbb.Coordinate
		ok       bool
	}{
		{"Bystra", mzkbb.Coordinate{Latitude: 1, Longitude: 2}, true},
		{"Wapienica", mzkbb.Coordinate{Latitude: 5, Longitude: 6}, true},
		{"Mikuszowice", mzkbb.Coordinate{}, false},
	} {
		c, ok, err := chain.Lookup(context.Background(), tc.name)
		require.NoError(t, err)
		require.Equal(t, tc.ok, ok, tc.name)
		require.Equal(t, tc.expected, c, tc.name)
	}

	failing := Chain{&MarkerSource{Fetcher: testutil.NewFetcher(), Url: geoHost, Logger: zerolog.Nop()}}
	_, _, err := failing.Lookup(context.Background(), "Bystra")
	require.Error(t, err)
}
