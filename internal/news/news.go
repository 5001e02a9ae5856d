// Package news fetches the latest headlines for the dashboard news panel
// from an RSS search feed.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"
	"go.uber.org/zap"

	"github.com/ppiankov/hevcstat/internal/cache"
)

// DefaultLimit caps the entries returned by Latest
const DefaultLimit = 30

// ErrUpstreamStatus is returned when the feed answers with a non-200 status
var ErrUpstreamStatus = errors.New("news feed returned non-200 status")

// Entry is one news item
type Entry struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Source    string    `json:"source"`
	Published time.Time `json:"published,omitzero"`
}

// Client queries the feed
type Client struct {
	httpClient *http.Client
	feedURL    string
	userAgent  string
	limit      int
	cache      cache.Cache
	ttl        time.Duration
	logger     *zap.Logger
}

// Options configures a Client
type Options struct {
	FeedURL   string
	UserAgent string
	Timeout   time.Duration
	Limit     int
	Cache     cache.Cache // Optional; results are cached per query for CacheTTL
	CacheTTL  time.Duration
}

// NewClient creates a news client
func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		feedURL:    opts.FeedURL,
		userAgent:  opts.UserAgent,
		limit:      opts.Limit,
		cache:      opts.Cache,
		ttl:        opts.CacheTTL,
		logger:     logger,
	}
}

// FeedURL returns the feed URL for query
func (c *Client) FeedURL(query string) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("hl", "en-US")
	v.Set("gl", "US")
	v.Set("ceid", "US:en")

	sep := "?"
	if strings.Contains(c.feedURL, "?") {
		sep = "&"
	}
	return c.feedURL + sep + v.Encode()
}

// Latest returns up to the configured limit of entries for query, in feed order
func (c *Client) Latest(ctx context.Context, query string) ([]Entry, error) {
	key := cache.Key("news", query)
	if c.cache != nil {
		if data, ok := c.cache.Get(key); ok {
			var entries []Entry
			if err := json.Unmarshal(data, &entries); err == nil {
				return entries, nil
			}
		}
	}

	entries, err := c.fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if data, err := json.Marshal(entries); err == nil {
			if err := c.cache.Set(key, data, c.ttl); err != nil {
				c.logger.Warn("cache news", zap.Error(err))
			}
		}
	}
	return entries, nil
}

func (c *Client) fetch(ctx context.Context, query string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FeedURL(query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d %s", ErrUpstreamStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	entries, err := Parse(resp.Body, c.limit)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("news fetched", zap.String("query", query), zap.Int("entries", len(entries)))
	return entries, nil
}

// feedTranslator keeps the RSS <source> title, which the generic item drops
type feedTranslator struct {
	gofeed.DefaultRSSTranslator
}

func (t *feedTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	out, err := t.DefaultRSSTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}
	src, ok := feed.(*rss.Feed)
	if !ok {
		return out, nil
	}
	for i, it := range src.Items {
		if i >= len(out.Items) || it.Source == nil {
			continue
		}
		if out.Items[i].Custom == nil {
			out.Items[i].Custom = make(map[string]string)
		}
		out.Items[i].Custom["source"] = it.Source.Title
	}
	return out, nil
}

// Parse reads an RSS or Atom document and returns at most limit entries in
// document order. A non-positive limit returns every entry.
func Parse(r io.Reader, limit int) ([]Entry, error) {
	parser := gofeed.NewParser()
	parser.RSSTranslator = &feedTranslator{}

	doc, err := parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := doc.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		e := Entry{
			Title: strings.TrimSpace(it.Title),
			Link:  strings.TrimSpace(it.Link),
		}
		if it.Custom != nil {
			e.Source = strings.TrimSpace(it.Custom["source"])
		}
		if e.Source == "" && len(it.Authors) > 0 && it.Authors[0] != nil {
			e.Source = strings.TrimSpace(it.Authors[0].Name)
		}
		switch {
		case it.PublishedParsed != nil:
			e.Published = it.PublishedParsed.UTC()
		case it.UpdatedParsed != nil:
			e.Published = it.UpdatedParsed.UTC()
		}
		entries = append(entries, e)
	}
	return entries, nil
}
