// Package extract turns candidate page URLs and their sitemap metadata into
// article records.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sitewatch/articles"
	"sitewatch/sitemap"
)

// ExtractionError indicates a candidate URL that cannot be parsed as an
// absolute URL. The candidate is dropped; the run continues.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Fetcher downloads a page body. Implementations own timeouts and retries.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

var titleCaser = cases.Title(language.Und)

// Extractor derives article records from sitemap entries. When fetchPages is
// enabled the page itself is fetched and its metadata fills whatever the
// sitemap entry did not carry; otherwise extraction is purely offline.
type Extractor struct {
	fetcher    Fetcher
	fetchPages bool
}

// NewExtractor creates an extractor. fetcher may be nil when fetchPages is
// false.
func NewExtractor(fetcher Fetcher, fetchPages bool) *Extractor {
	return &Extractor{fetcher: fetcher, fetchPages: fetchPages}
}

// Extract builds an article from a sitemap entry. Missing or unparseable
// metadata degrades to absent fields; the only hard failures are a malformed
// URL and, when page fetching is on, an exhausted page fetch.
func (e *Extractor) Extract(ctx context.Context, entry sitemap.Entry) (articles.Article, error) {
	u, err := url.Parse(entry.Loc)
	if err != nil {
		return articles.Article{}, &ExtractionError{URL: entry.Loc, Err: err}
	}
	if !u.IsAbs() || u.Host == "" {
		return articles.Article{}, &ExtractionError{URL: entry.Loc, Err: fmt.Errorf("not an absolute URL")}
	}

	article := articles.Article{
		URL:           entry.Loc,
		Title:         entry.Title,
		Section:       sectionFromPath(u.Path),
		PublishedDate: parseDate(entry.PubDate, entry.LastMod),
		Timestamp:     time.Now(),
	}

	if e.fetchPages {
		if err := e.fillFromPage(ctx, &article); err != nil {
			return articles.Article{}, err
		}
	}

	if article.Title == "" {
		article.Title = slugTitle(u.Path)
	}

	return article, nil
}

// fillFromPage fetches the article page and fills whatever metadata the
// sitemap entry left empty: title, description, and publication date. Inline
// sitemap metadata keeps precedence over the page's own.
func (e *Extractor) fillFromPage(ctx context.Context, article *articles.Article) error {
	data, err := e.fetcher.Fetch(ctx, article.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch page %s: %w", article.URL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		// Not HTML; fall back to the slug title.
		return nil
	}

	if article.Title == "" {
		if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
			article.Title = title
		} else if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
			article.Title = strings.TrimSpace(og)
		}
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		article.Description = strings.TrimSpace(desc)
	} else if desc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		article.Description = strings.TrimSpace(desc)
	}

	if article.PublishedDate == nil {
		if raw, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok {
			article.PublishedDate = parseDate(raw)
		}
	}

	return nil
}

// sectionFromPath returns the first non-empty path segment when the path has
// more than the article slug, empty otherwise.
func sectionFromPath(path string) string {
	segments := splitPath(path)
	if len(segments) < 2 {
		return ""
	}
	return segments[0]
}

// slugTitle derives a readable title from the URL's last path segment:
// separators become spaces, words get capitalized.
func slugTitle(path string) string {
	segments := splitPath(path)
	if len(segments) == 0 {
		return ""
	}

	slug := segments[len(segments)-1]
	slug = strings.TrimSuffix(slug, ".html")
	slug = strings.TrimSuffix(slug, ".htm")
	slug = strings.ReplaceAll(slug, "-", " ")
	slug = strings.ReplaceAll(slug, "_", " ")
	return titleCaser.String(strings.TrimSpace(slug))
}

func splitPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// parseDate returns the first candidate string that parses as a date. Bad
// dates are a soft failure: the field stays absent.
func parseDate(candidates ...string) *time.Time {
	for _, raw := range candidates {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return &t
		}
	}
	return nil
}
