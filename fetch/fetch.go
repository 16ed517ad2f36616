// Package fetch downloads the operator's pages.
//
// Requests are strictly sequential and paced: the source sites are small and are not
// built for burst traffic. There is no retry; a failed request fails the run.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"
)

// Page is a downloaded document.
type Page struct {
	Url         string
	Body        []byte
	ContentType string
	// Encoding overrides the encoding detected from the content type and meta tags.
	Encoding encoding.Encoding
}

// HTML returns a reader of the page body converted to UTF-8.
func (p *Page) HTML() (io.Reader, error) {
	if p.Encoding != nil {
		return transform.NewReader(bytes.NewReader(p.Body), p.Encoding.NewDecoder()), nil
	}
	r, err := charset.NewReader(bytes.NewReader(p.Body), p.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", p.Url, err)
	}
	return r, nil
}

// Raw returns a reader of the unmodified page body.
func (p *Page) Raw() io.Reader {
	return bytes.NewReader(p.Body)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

type Options struct {
	UserAgent string
	Timeout   time.Duration
	// Interval is the minimum time between the start of two requests.
	Interval time.Duration
	// Encoding is a WHATWG encoding label like iso-8859-2. Empty means detect.
	Encoding string
}

type HTTPFetcher struct {
	client   *resty.Client
	limiter  *rate.Limiter
	encoding encoding.Encoding
	logger   zerolog.Logger
}

func NewHTTPFetcher(opts Options, logger zerolog.Logger) (*HTTPFetcher, error) {
	var enc encoding.Encoding
	if opts.Encoding != "" {
		var err error
		enc, err = htmlindex.Get(opts.Encoding)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q: %w", opts.Encoding, err)
		}
	}
	client := resty.New()
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	return &HTTPFetcher{
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		encoding: enc,
		logger:   logger,
	}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	f.logger.Debug().Str("url", url).Msg("fetching page")
	start := time.Now()
	res, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %s", url, res.Status())
	}
	f.logger.Trace().
		Str("url", url).
		Int("bytes", len(res.Body())).
		Dur("duration", time.Since(start)).
		Msg("fetched page")
	return &Page{
		Url:         res.RawResponse.Request.URL.String(),
		Body:        res.Body(),
		ContentType: res.Header().Get("Content-Type"),
		Encoding:    f.encoding,
	}, nil
}
