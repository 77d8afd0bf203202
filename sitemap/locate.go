package sitemap

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
)

// Well-known sitemap locations, in order of how often news publishers
// actually use them.
var commonPaths = []string{
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/sitemap.xml",
	"/sitemap_news.xml",
	"/sitemap-news.xml",
	"/sitemaps/sitemap.xml",
	"/sitemaps/sitemap_index.xml",
	"/sitemap/sitemap.xml",
}

// Locate discovers the sitemap URL for a site that did not configure one.
// It checks the robots.txt Sitemap directive first, then probes well-known
// paths, accepting the first response that looks like sitemap XML.
func Locate(ctx context.Context, fetcher Fetcher, baseURL string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil || !base.IsAbs() {
		return "", fmt.Errorf("invalid base url %q", baseURL)
	}

	if loc := fromRobots(ctx, fetcher, base); loc != "" {
		log.Printf("INFO: Found sitemap for %s in robots.txt: %s", base.Host, loc)
		return loc, nil
	}

	for _, path := range commonPaths {
		candidate := base.ResolveReference(&url.URL{Path: path}).String()
		data, err := fetcher.Fetch(ctx, candidate)
		if err != nil {
			continue
		}
		if looksLikeSitemap(data) {
			log.Printf("INFO: Found sitemap for %s at %s", base.Host, candidate)
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no sitemap found for %s", baseURL)
}

// fromRobots returns the first Sitemap directive in the site's robots.txt,
// or empty if there is none.
func fromRobots(ctx context.Context, fetcher Fetcher, base *url.URL) string {
	robotsURL := base.ResolveReference(&url.URL{Path: "/robots.txt"}).String()
	data, err := fetcher.Fetch(ctx, robotsURL)
	if err != nil {
		return ""
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) < len("sitemap:") || !strings.EqualFold(line[:len("sitemap:")], "sitemap:") {
			continue
		}
		loc := strings.TrimSpace(line[len("sitemap:"):])
		if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
			return loc
		}
	}
	return ""
}

// looksLikeSitemap sniffs the first bytes of a response for sitemap XML.
func looksLikeSitemap(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	s := strings.ToLower(string(head))
	return strings.Contains(s, "<urlset") || strings.Contains(s, "<sitemapindex") || strings.Contains(s, "<?xml")
}
