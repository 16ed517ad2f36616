package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/jamespfennell/mzkbb/assemble"
	"github.com/jamespfennell/mzkbb/config"
	"github.com/jamespfennell/mzkbb/constants"
	"github.com/jamespfennell/mzkbb/csv"
	"github.com/jamespfennell/mzkbb/fetch"
	"github.com/jamespfennell/mzkbb/scrape"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:                   "mzkbb",
		Usage:                  "scrape GTFS reference data from the MZK Bielsko-Biała timetable site",
		UseShortOptionHandling: true,
		Commands: []*cli.Command{
			{
				Name:  "agencies",
				Usage: "write agency.txt",
				Flags: commonFlags(outputFlag()),
				Action: func(c *cli.Context) error {
					s, err := newScraper(c)
					if err != nil {
						return err
					}
					agencies := s.Agencies()
					err = writeOutput(c.String("output"), func(w io.Writer) error {
						return csv.WriteAgencies(w, agencies, writeOptions(c))
					})
					if err != nil {
						return err
					}
					summary(constants.AgencyFile, len(agencies), c.String("output"), nil)
					return nil
				},
			},
			{
				Name:  "stops",
				Usage: "write stops.txt",
				Flags: commonFlags(append([]cli.Flag{outputFlag()}, coordinateFlags()...)...),
				Action: func(c *cli.Context) error {
					s, err := newScraper(c)
					if err != nil {
						return err
					}
					stops, report, err := s.Stops(c.Context)
					if err != nil {
						return fmt.Errorf("failed to scrape stops: %w", err)
					}
					err = writeOutput(c.String("output"), func(w io.Writer) error {
						return csv.WriteStops(w, stops, writeOptions(c))
					})
					if err != nil {
						return err
					}
					summary(constants.StopsFile, len(stops), c.String("output"), &report)
					return nil
				},
			},
			{
				Name:  "routes",
				Usage: "write routes.txt",
				Flags: commonFlags(outputFlag()),
				Action: func(c *cli.Context) error {
					s, err := newScraper(c)
					if err != nil {
						return err
					}
					routes, err := s.Routes(c.Context)
					if err != nil {
						return fmt.Errorf("failed to scrape routes: %w", err)
					}
					err = writeOutput(c.String("output"), func(w io.Writer) error {
						return csv.WriteRoutes(w, routes, writeOptions(c))
					})
					if err != nil {
						return err
					}
					summary(constants.RoutesFile, len(routes), c.String("output"), nil)
					return nil
				},
			},
			{
				Name:  "all",
				Usage: "write agency.txt, stops.txt and routes.txt into a directory",
				Flags: commonFlags(append([]cli.Flag{
					&cli.StringFlag{
						Name:  "output-dir",
						Usage: "directory the files are written to",
						Value: ".",
					},
				}, coordinateFlags()...)...),
				Action: func(c *cli.Context) error {
					s, err := newScraper(c)
					if err != nil {
						return err
					}
					// Everything is scraped before anything is written, so that a failed
					// run does not leave a partial feed behind.
					routes, err := s.Routes(c.Context)
					if err != nil {
						return fmt.Errorf("failed to scrape routes: %w", err)
					}
					stops, report, err := s.Stops(c.Context)
					if err != nil {
						return fmt.Errorf("failed to scrape stops: %w", err)
					}
					dir := c.String("output-dir")
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return fmt.Errorf("failed to create directory %s: %w", dir, err)
					}
					agencies := s.Agencies()
					opts := writeOptions(c)
					for _, f := range []struct {
						file  constants.File
						n     int
						write func(io.Writer) error
						rep   *assemble.Report
					}{
						{constants.AgencyFile, len(agencies), func(w io.Writer) error { return csv.WriteAgencies(w, agencies, opts) }, nil},
						{constants.StopsFile, len(stops), func(w io.Writer) error { return csv.WriteStops(w, stops, opts) }, &report},
						{constants.RoutesFile, len(routes), func(w io.Writer) error { return csv.WriteRoutes(w, routes, opts) }, nil},
					} {
						path := filepath.Join(dir, string(f.file))
						if err := writeOutput(path, f.write); err != nil {
							return err
						}
						summary(f.file, f.n, path, f.rep)
					}
					return nil
				},
			},
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func commonFlags(flags ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "log more; repeat for more detail",
			Count:   new(int),
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "YAML file applied on top of the built-in configuration",
		},
		&cli.BoolFlag{
			Name:  "no-header",
			Usage: "omit the CSV header row",
		},
	}, flags...)
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "file to write to; standard output if empty",
	}
}

func coordinateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "coordinates",
			Usage: "coordinate strategy: markers, search, file",
		},
		&cli.StringFlag{
			Name:  "coordinates-file",
			Usage: "CSV file with stop_name, stop_lat and stop_lon columns",
		},
		&cli.StringFlag{
			Name:  "unmatched",
			Usage: "what to do with stops without coordinates: drop, zero",
		},
	}
}

func newLogger(verbosity int) zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case verbosity >= 3:
		level = zerolog.TraceLevel
	case verbosity == 2:
		level = zerolog.DebugLevel
	case verbosity == 1:
		level = zerolog.InfoLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func newScraper(c *cli.Context) (*scrape.Scraper, error) {
	logger := newLogger(c.Count("verbose"))
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("coordinates") {
		cfg.Coordinates.Strategy = config.Strategy(c.String("coordinates"))
	}
	if c.IsSet("coordinates-file") {
		cfg.Coordinates.File = c.String("coordinates-file")
	}
	if c.IsSet("unmatched") {
		cfg.Coordinates.Unmatched = c.String("unmatched")
	}
	fetcher, err := fetch.NewHTTPFetcher(fetch.Options{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTP.Timeout,
		Interval:  cfg.HTTP.Interval,
		Encoding:  cfg.Site.Encoding,
	}, logger)
	if err != nil {
		return nil, err
	}
	return scrape.New(cfg, fetcher, logger)
}

func writeOptions(c *cli.Context) csv.WriteOptions {
	return csv.WriteOptions{OmitHeader: c.Bool("no-header")}
}

func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return f.Close()
}

func summary(file constants.File, n int, path string, report *assemble.Report) {
	if path == "" {
		path = "standard output"
	}
	fmt.Fprintf(os.Stderr, "%s %s rows to %s",
		color.GreenString("Wrote %d", n),
		color.CyanString(string(file)),
		path,
	)
	if report != nil && report.Unmatched > 0 {
		fmt.Fprint(os.Stderr, color.YellowString(" (%d without coordinates, %d dropped)", report.Unmatched, report.Dropped))
	}
	fmt.Fprintln(os.Stderr)
}
