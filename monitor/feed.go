package monitor

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"sitewatch/sitemap"
)

// fetchFeedCandidates reads an RSS or Atom feed and maps its items onto the
// same candidate entry shape sitemap URL sets produce. Used for sites that
// publish a feed instead of (or before) a sitemap. gofeed detects and
// normalizes both formats.
func fetchFeedCandidates(ctx context.Context, feedURL, userAgent string) ([]sitemap.Entry, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]sitemap.Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		entry := sitemap.Entry{
			Loc:   item.Link,
			Title: item.Title,
		}
		if item.Published != "" {
			entry.PubDate = item.Published
		} else if item.Updated != "" {
			entry.PubDate = item.Updated
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
