package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/hevcstat/internal/cache"
)

func feed(n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>HEVC Advance</title>`)
	for i := range n {
		fmt.Fprintf(&b, `<item><title>Story %d</title><link>https://news.example/%d</link>`+
			`<pubDate>Fri, 04 Feb 2022 10:%02d:00 GMT</pubDate>`+
			`<source url="https://pub.example">Publisher %d</source></item>`, i, i, i%60, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestParse(t *testing.T) {
	entries, err := Parse(strings.NewReader(feed(2)), 30)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Story 0", entries[0].Title)
	assert.Equal(t, "https://news.example/0", entries[0].Link)
	assert.Equal(t, "Publisher 0", entries[0].Source)
	assert.True(t, time.Date(2022, 2, 4, 10, 0, 0, 0, time.UTC).Equal(entries[0].Published))
	assert.Equal(t, "Story 1", entries[1].Title)
}

func TestParse_Limit(t *testing.T) {
	entries, err := Parse(strings.NewReader(feed(45)), 30)
	require.NoError(t, err)
	require.Len(t, entries, 30)
	assert.Equal(t, "Story 29", entries[29].Title)
}

func TestParse_BadDateKeepsEntry(t *testing.T) {
	doc := `<rss><channel><item><title>T</title><pubDate>yesterday</pubDate></item></channel></rss>`
	entries, err := Parse(strings.NewReader(doc), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Published.IsZero())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse(strings.NewReader(""), 30)
	assert.Error(t, err)
}

func TestClient_Latest(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = fmt.Fprint(w, feed(40))
	}))
	defer server.Close()

	c := NewClient(Options{FeedURL: server.URL + "/rss/search"}, nil)
	entries, err := c.Latest(context.Background(), "HEVC Advance")
	require.NoError(t, err)
	assert.Len(t, entries, DefaultLimit)
	assert.Equal(t, "HEVC Advance", gotQuery)
}

func TestClient_UpstreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(Options{FeedURL: server.URL}, nil)
	_, err := c.Latest(context.Background(), "HEVC")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamStatus))
	assert.Contains(t, err.Error(), "503")
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = fmt.Fprint(w, feed(1))
	}))
	defer server.Close()

	c := NewClient(Options{FeedURL: server.URL, Timeout: 20 * time.Millisecond}, nil)
	_, err := c.Latest(context.Background(), "HEVC")
	assert.Error(t, err)
}

func TestClient_Cache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, feed(3))
	}))
	defer server.Close()

	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	c := NewClient(Options{FeedURL: server.URL, Cache: mem, CacheTTL: time.Minute}, nil)

	for range 3 {
		entries, err := c.Latest(context.Background(), "HEVC")
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	}
	assert.Equal(t, int32(1), hits.Load())

	_, err := c.Latest(context.Background(), "VVC")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_FeedURL(t *testing.T) {
	c := NewClient(Options{FeedURL: "https://news.google.com/rss/search"}, nil)
	assert.Equal(t, "https://news.google.com/rss/search?ceid=US%3Aen&gl=US&hl=en-US&q=HEVC+Advance", c.FeedURL("HEVC Advance"))

	c = NewClient(Options{FeedURL: "https://feeds.example/x?a=1"}, nil)
	assert.True(t, strings.HasPrefix(c.FeedURL("q"), "https://feeds.example/x?a=1&"))
}

func TestParse_Atom(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>HEVC</title>
  <entry>
    <title>Pool adds licensors</title>
    <link href="https://news.example/atom/1"/>
    <author><name>Wire Service</name></author>
    <updated>2022-02-04T10:00:00Z</updated>
  </entry>
</feed>`
	entries, err := Parse(strings.NewReader(doc), 30)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Pool adds licensors", entries[0].Title)
	assert.Equal(t, "https://news.example/atom/1", entries[0].Link)
	assert.Equal(t, "Wire Service", entries[0].Source)
	assert.True(t, time.Date(2022, 2, 4, 10, 0, 0, 0, time.UTC).Equal(entries[0].Published))
}
