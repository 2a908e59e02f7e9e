package rssfeeds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"contentpilot/types"
)

// Source is one feed entry considered as research material
type Source struct {
	ID          string
	Title       string
	URL         string
	PublishedAt time.Time
	Summary     string
	Categories  []string

	// Filled by extraction
	Text            string
	Excerpt         string
	ExtractionError string
}

// FetchFeed retrieves and parses an RSS/Atom feed. Entries without a link are
// useless as sources and skipped; at most maxCount sources are returned when
// maxCount is positive.
func FetchFeed(ctx context.Context, feedURL string, maxCount int) ([]*Source, error) {
	feed, err := gofeed.NewParser().ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	var sources []*Source
	for _, item := range feed.Items {
		if maxCount > 0 && len(sources) == maxCount {
			break
		}
		if item.Link == "" {
			continue
		}
		sources = append(sources, newSource(item))
	}
	return sources, nil
}

func newSource(item *gofeed.Item) *Source {
	src := &Source{
		ID:         item.GUID,
		Title:      strings.TrimSpace(item.Title),
		URL:        item.Link,
		Summary:    firstNonEmpty(item.Description, item.Content),
		Categories: append([]string(nil), item.Categories...),
	}
	if src.ID == "" {
		src.ID = types.GenerateID(item.Link)
	}
	switch {
	case item.PublishedParsed != nil:
		src.PublishedAt = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		src.PublishedAt = *item.UpdatedParsed
	}
	return src
}
