package monitor

import (
	"context"
	"log"
	"time"

	"sitewatch/articles"
	"sitewatch/config"
	"sitewatch/extract"
	"sitewatch/sitemap"
)

// Summary reports what happened for one site during a run.
type Summary struct {
	Site      string
	Attempted int  // candidates handed to the extractor
	Succeeded int  // articles in the batch
	Failed    int  // candidates dropped after errors or retry exhaustion
	Skipped   int  // candidates beyond the per-site article limit
	Truncated bool // sitemap expansion hit the URL cap
	Error     string
}

// runSite resolves one site's candidates and extracts articles from them.
// Individual candidate failures never abort the site; a failure to resolve
// any candidates at all is recorded on the summary and yields an empty
// batch. Cancellation between candidates keeps the partial batch.
func runSite(ctx context.Context, site *config.Site, fetch *config.FetchConfig) (articles.Table, Summary) {
	summary := Summary{Site: site.Name}

	client := NewClient(site.Interval(), fetch.Timeout(), fetch.UserAgent, fetch.Retry)
	extractor := extract.NewExtractor(client, fetch.FetchPages)

	entries, truncated, err := resolveCandidates(ctx, site, fetch, client)
	if err != nil {
		log.Printf("ERROR: Failed to resolve candidates for %s: %v", site.Name, err)
		summary.Error = err.Error()
		return nil, summary
	}
	summary.Truncated = truncated

	if site.MaxArticles > 0 && len(entries) > site.MaxArticles {
		summary.Skipped = len(entries) - site.MaxArticles
		entries = entries[:site.MaxArticles]
	}

	batch := make(articles.Table, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			log.Printf("WARN: Run cancelled, keeping partial batch for %s (%d articles)", site.Name, len(batch))
			break
		}

		summary.Attempted++
		article, err := extractor.Extract(ctx, entry)
		if err != nil {
			summary.Failed++
			log.Printf("WARN: Skipping %s: %v", entry.Loc, err)
			continue
		}

		article.Source = site.Name
		article.IsOwnSite = site.IsOwnSite
		batch = append(batch, article)
		summary.Succeeded++
	}

	return batch, summary
}

// resolveCandidates produces the site's candidate entries: from its feed if
// one is configured, otherwise from its sitemap, autodiscovering the sitemap
// location when the config leaves it blank.
func resolveCandidates(ctx context.Context, site *config.Site, fetch *config.FetchConfig, client *Client) ([]sitemap.Entry, bool, error) {
	if site.Feed != "" {
		entries, err := fetchFeedCandidates(ctx, site.Feed, fetch.UserAgent)
		return entries, false, err
	}

	sitemapURL := site.SitemapURL(time.Now())
	if sitemapURL == "" {
		located, err := sitemap.Locate(ctx, client, site.URL)
		if err != nil {
			return nil, false, err
		}
		sitemapURL = located
	}

	resolver := sitemap.NewResolver(client, fetch.MaxDepth, fetch.MaxURLs)
	res, err := resolver.Resolve(ctx, sitemapURL)
	if err != nil {
		return nil, false, err
	}
	for _, ferr := range res.Failed {
		log.Printf("WARN: %s: partial sitemap for %s: %v", site.Name, sitemapURL, ferr)
	}
	return res.Entries, res.Truncated, nil
}
