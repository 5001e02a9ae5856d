package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/hevcstat/internal/model"
)

// DefaultBaseURL is the Google Patents patent page prefix
const DefaultBaseURL = "https://patents.google.com/patent/"

// GooglePatents looks patents up on Google Patents
type GooglePatents struct {
	pages   PageFetcher
	baseURL string
	now     func() time.Time
}

// NewGooglePatents creates a source that fetches pages through pages.
// An empty baseURL selects DefaultBaseURL.
func NewGooglePatents(pages PageFetcher, baseURL string) *GooglePatents {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GooglePatents{
		pages:   pages,
		baseURL: strings.TrimRight(baseURL, "/") + "/",
		now:     time.Now,
	}
}

// URL returns the English page URL for a patent ID
func (g *GooglePatents) URL(id string) string {
	return g.baseURL + url.PathEscape(id) + "/en"
}

// Lookup fetches and parses the page for id
func (g *GooglePatents) Lookup(ctx context.Context, id string) (model.MetadataEntry, error) {
	page, err := g.pages.FetchPage(ctx, g.URL(id))
	if err != nil {
		return model.MetadataEntry{}, err
	}

	entry, err := ParsePatentPage(strings.NewReader(page.HTML))
	if err != nil {
		return model.MetadataEntry{}, fmt.Errorf("%s: %w", id, err)
	}
	entry.SourceURL = page.FinalURL
	entry.FetchedAt = g.now().UTC()
	return entry, nil
}
