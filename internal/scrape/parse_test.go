package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatentPage(t *testing.T) {
	f, err := os.Open("testdata/US9049437B2.html")
	require.NoError(t, err)
	defer f.Close()

	entry, err := ParsePatentPage(f)
	require.NoError(t, err)

	assert.Equal(t, []string{"Jane Q. Doe", "José García"}, entry.Inventors)
	assert.Equal(t, []string{"Example Electronics Co., Ltd."}, entry.Assignees)
	assert.Equal(t, "Method and apparatus for video encoding", entry.Title)
	assert.Equal(t, "2015-06-02", entry.PublicationDate)
}

func TestParsePatentPage_MetaInventorFallback(t *testing.T) {
	page := `<html><head>
		<meta name="DC.contributor" content="Kim  Min-su" scheme="inventor">
		<meta name="DC.contributor" content="Acme" scheme="assignee">
	</head><body><span itemprop="title"> Decoder </span></body></html>`

	entry, err := ParsePatentPage(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, []string{"Kim Min-su"}, entry.Inventors)
	assert.Equal(t, "Decoder", entry.Title)
}

func TestParsePatentPage_NoInventors(t *testing.T) {
	entry, err := ParsePatentPage(strings.NewReader("<html><body><p>Not found</p></body></html>"))
	require.NoError(t, err)
	assert.NotNil(t, entry.Inventors)
	assert.Empty(t, entry.Inventors)
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "José", CleanName("José"))
	assert.Equal(t, "A B", CleanName("  A \n\t B "))
	assert.Equal(t, "", CleanName("   "))
}

type stubPages struct {
	urls []string
	page *Page
	err  error
}

func (s *stubPages) FetchPage(ctx context.Context, rawURL string) (*Page, error) {
	s.urls = append(s.urls, rawURL)
	return s.page, s.err
}

func TestGooglePatents_URL(t *testing.T) {
	g := NewGooglePatents(&stubPages{}, "")
	assert.Equal(t, "https://patents.google.com/patent/US9049437B2/en", g.URL("US9049437B2"))

	g = NewGooglePatents(&stubPages{}, "http://localhost:8080/patent")
	assert.Equal(t, "http://localhost:8080/patent/EP1234567/en", g.URL("EP1234567"))
}

func TestGooglePatents_Lookup(t *testing.T) {
	pages := &stubPages{page: &Page{
		HTML:     `<html><body><dd itemprop="inventor">Ann Lee</dd></body></html>`,
		FinalURL: "https://patents.google.com/patent/US1/en",
	}}
	g := NewGooglePatents(pages, "")
	fixed := time.Date(2022, 2, 4, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	entry, err := g.Lookup(context.Background(), "US1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann Lee"}, entry.Inventors)
	assert.Equal(t, "https://patents.google.com/patent/US1/en", entry.SourceURL)
	assert.Equal(t, fixed, entry.FetchedAt)
	assert.Equal(t, []string{"https://patents.google.com/patent/US1/en"}, pages.urls)
}

func TestGooglePatents_LookupError(t *testing.T) {
	boom := errors.New("fetch: connection refused")
	g := NewGooglePatents(&stubPages{err: boom}, "")

	_, err := g.Lookup(context.Background(), "US1")
	assert.ErrorIs(t, err, boom)
}

func TestGooglePatents_OverHTTP(t *testing.T) {
	body, err := os.ReadFile("testdata/US9049437B2.html")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/patent/US9049437B2/en" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", "")
	g := NewGooglePatents(fetcher, server.URL+"/patent/")

	entry, err := g.Lookup(context.Background(), "US9049437B2")
	require.NoError(t, err)
	assert.Len(t, entry.Inventors, 2)

	_, err = g.Lookup(context.Background(), "US0000000")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}
