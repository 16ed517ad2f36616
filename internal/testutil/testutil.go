package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamespfennell/mzkbb/fetch"
	"github.com/rs/zerolog"
)

// Fetcher serves pages from memory.
type Fetcher struct {
	Pages map[string][]byte
	// Requested records every URL that was fetched, in order.
	Requested []string
}

func NewFetcher() *Fetcher {
	return &Fetcher{Pages: map[string][]byte{}}
}

// Add registers the content of a page.
func (f *Fetcher) Add(url, content string) *Fetcher {
	f.Pages[url] = []byte(content)
	return f
}

// AddFile registers a page with the content of a file, usually under testdata/.
func (f *Fetcher) AddFile(t testing.TB, url, path string) *Fetcher {
	t.Helper()
	f.Pages[url] = MustRead(t, path)
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*fetch.Page, error) {
	f.Requested = append(f.Requested, url)
	b, ok := f.Pages[url]
	if !ok {
		return nil, fmt.Errorf("failed to fetch %s: unexpected status 404 Not Found", url)
	}
	return &fetch.Page{
		Url:         url,
		Body:        b,
		ContentType: "text/html; charset=utf-8",
	}, nil
}

func MustRead(t testing.TB, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.FromSlash(path))
	if err != nil {
		t.Fatalf("failed to read file %s: %s", path, err)
	}
	return b
}

// Logger returns a logger that writes JSON lines to the returned buffer, so tests can
// assert on the warnings emitted.
func Logger() (zerolog.Logger, *bytes.Buffer) {
	var b bytes.Buffer
	return zerolog.New(&b).Level(zerolog.TraceLevel), &b
}

// CountLevel returns the number of log lines at the given level.
func CountLevel(b *bytes.Buffer, level zerolog.Level) int {
	return bytes.Count(b.Bytes(), []byte(fmt.Sprintf(`"level":%q`, level.String())))
}
