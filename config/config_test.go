package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
sites:
  - name: El País
    sitemap: https://elpais.com/sitemaps/{year}/{month}/sitemap_0.xml
    max_articles: 100
    rate_limit: 2s
  - name: Mi Sitio
    url: https://misitio.example
    is_own_site: true
output: data/salida.csv
concurrency: 3
fetch:
  timeout_sec: 20
  max_depth: 2
  fetch_pages: true
  retry:
    max_attempts: 4
    initial_delay_ms: 250
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Sites, 2)
	assert.Equal(t, "El País", cfg.Sites[0].Name)
	assert.Equal(t, 100, cfg.Sites[0].MaxArticles)
	assert.Equal(t, 2*time.Second, cfg.Sites[0].Interval())
	assert.True(t, cfg.Sites[1].IsOwnSite)

	assert.Equal(t, "data/salida.csv", cfg.Output)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 20*time.Second, cfg.Fetch.Timeout())
	assert.Equal(t, 2, cfg.Fetch.MaxDepth)
	assert.True(t, cfg.Fetch.FetchPages)
	assert.Equal(t, 4, cfg.Fetch.Retry.MaxAttempts)
	assert.Equal(t, 250, cfg.Fetch.Retry.InitialDelayMs)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
sites:
  - name: Diario Test
    sitemap: https://a.test/sitemap.xml
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/articles.csv", cfg.Output)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultMaxArticles, cfg.Sites[0].MaxArticles)
	assert.Equal(t, DefaultRateLimit, cfg.Sites[0].Interval())
	assert.Equal(t, time.Duration(DefaultTimeoutSec)*time.Second, cfg.Fetch.Timeout())
	assert.Equal(t, DefaultMaxDepth, cfg.Fetch.MaxDepth)
	assert.Equal(t, DefaultMaxURLs, cfg.Fetch.MaxURLs)
	assert.NotEmpty(t, cfg.Fetch.UserAgent)
	assert.Equal(t, 3, cfg.Fetch.Retry.MaxAttempts)
	assert.Equal(t, 2.0, cfg.Fetch.Retry.BackoffMultiplier)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "sites: [\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{
			name: "no sites",
			body: "sites: []",
			want: ErrNoSites,
		},
		{
			name: "site without name",
			body: "sites:\n  - sitemap: https://a.test/sitemap.xml",
			want: ErrSiteMissingName,
		},
		{
			name: "site without any source",
			body: "sites:\n  - name: Diario Test",
			want: ErrSiteMissingSource,
		},
		{
			name: "bad rate limit",
			body: "sites:\n  - name: Diario Test\n    sitemap: https://a.test/s.xml\n    rate_limit: rapidito",
			want: ErrInvalidRateLimit,
		},
		{
			name: "negative max articles",
			body: "sites:\n  - name: Diario Test\n    sitemap: https://a.test/s.xml\n    max_articles: -1",
			want: ErrInvalidMaxArticles,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSite_SitemapURL(t *testing.T) {
	site := Site{Sitemap: "https://elpais.com/sitemaps/{year}/{month}/sitemap_0.xml"}
	now := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "https://elpais.com/sitemaps/2024/03/sitemap_0.xml", site.SitemapURL(now))

	plain := Site{Sitemap: "https://a.test/sitemap.xml"}
	assert.Equal(t, "https://a.test/sitemap.xml", plain.SitemapURL(now))
}

func TestRetryPolicy_Delay(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:       5,
		InitialDelayMs:    500,
		MaxDelayMs:        3000,
		BackoffMultiplier: 2.0,
	}

	assert.Equal(t, 500*time.Millisecond, policy.Delay(1))
	assert.Equal(t, 1000*time.Millisecond, policy.Delay(2))
	assert.Equal(t, 2000*time.Millisecond, policy.Delay(3))
	assert.Equal(t, 3000*time.Millisecond, policy.Delay(4))
	assert.Equal(t, 3000*time.Millisecond, policy.Delay(5))
}
