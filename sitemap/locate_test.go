package sitemap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate_FromRobots(t *testing.T) {
	fetcher := &mapFetcher{docs: map[string]string{
		"http://a.test/robots.txt": "User-agent: *\nDisallow: /admin\nSitemap: http://a.test/custom/sitemap.xml\n",
	}}

	loc, err := Locate(context.Background(), fetcher, "http://a.test")
	require.NoError(t, err)
	assert.Equal(t, "http://a.test/custom/sitemap.xml", loc)
}

func TestLocate_RobotsCaseInsensitive(t *testing.T) {
	fetcher := &mapFetcher{docs: map[string]string{
		"http://a.test/robots.txt": "sitemap: http://a.test/s.xml\n",
	}}

	loc, err := Locate(context.Background(), fetcher, "http://a.test")
	require.NoError(t, err)
	assert.Equal(t, "http://a.test/s.xml", loc)
}

func TestLocate_CommonPathFallback(t *testing.T) {
	fetcher := &mapFetcher{docs: map[string]string{
		"http://a.test/sitemap.xml": urlsetDoc("http://a.test/p/1"),
	}}

	loc, err := Locate(context.Background(), fetcher, "http://a.test")
	require.NoError(t, err)
	assert.Equal(t, "http://a.test/sitemap.xml", loc)
}

// The index variant ranks above the plain sitemap when both exist.
func TestLocate_PrefersIndexPath(t *testing.T) {
	fetcher := &mapFetcher{docs: map[string]string{
		"http://a.test/sitemap_index.xml": indexDoc("http://a.test/child.xml"),
		"http://a.test/sitemap.xml":       urlsetDoc("http://a.test/p/1"),
	}}

	loc, err := Locate(context.Background(), fetcher, "http://a.test")
	require.NoError(t, err)
	assert.Equal(t, "http://a.test/sitemap_index.xml", loc)
}

func TestLocate_NothingFound(t *testing.T) {
	fetcher := &mapFetcher{docs: map[string]string{}}

	_, err := Locate(context.Background(), fetcher, "http://a.test")
	assert.Error(t, err)
}

func TestLocate_InvalidBaseURL(t *testing.T) {
	fetcher := &mapFetcher{docs: map[string]string{}}

	_, err := Locate(context.Background(), fetcher, "not a url")
	assert.Error(t, err)
}
