// Package config loads and validates the site list and pipeline settings
// from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrNoSites            = errors.New("at least one site is required")
	ErrSiteMissingName    = errors.New("site name is required")
	ErrSiteMissingSource  = errors.New("site needs a sitemap, a feed, or a base url for autodiscovery")
	ErrInvalidRateLimit   = errors.New("rate_limit must be a valid duration")
	ErrInvalidMaxArticles = errors.New("max_articles must be non-negative")
	ErrInvalidMaxAttempts = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidBackoff     = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout     = errors.New("fetch.timeout_sec must be at least 1")
)

// Defaults applied by Load when the file leaves a field unset.
const (
	DefaultMaxArticles = 50
	DefaultRateLimit   = 1 * time.Second
	DefaultTimeoutSec  = 15
	DefaultMaxDepth    = 3
	DefaultMaxURLs     = 2000
	DefaultConcurrency = 5
)

// Site describes one monitored website. Immutable during a run.
type Site struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Sitemap     string `yaml:"sitemap"`
	Feed        string `yaml:"feed"`
	IsOwnSite   bool   `yaml:"is_own_site"`
	MaxArticles int    `yaml:"max_articles"`
	RateLimit   string `yaml:"rate_limit"`

	rateLimit time.Duration
}

// Interval returns the politeness interval between consecutive requests to
// this site.
func (s *Site) Interval() time.Duration {
	if s.rateLimit > 0 {
		return s.rateLimit
	}
	if s.RateLimit != "" {
		if d, err := time.ParseDuration(s.RateLimit); err == nil && d > 0 {
			return d
		}
	}
	return DefaultRateLimit
}

// SitemapURL returns the configured sitemap URL with {year} and {month}
// placeholders expanded for the given time. Some publishers (El País style)
// only expose monthly sitemap archives.
func (s *Site) SitemapURL(now time.Time) string {
	u := s.Sitemap
	u = strings.ReplaceAll(u, "{year}", fmt.Sprintf("%04d", now.Year()))
	u = strings.ReplaceAll(u, "{month}", fmt.Sprintf("%02d", int(now.Month())))
	return u
}

// RetryPolicy defines backoff behavior for transient fetch failures.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
}

// Delay returns how long to wait after the given attempt (1-based) before
// retrying. Exponential backoff capped at MaxDelayMs.
func (r *RetryPolicy) Delay(attempt int) time.Duration {
	delay := float64(r.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delay *= r.BackoffMultiplier
	}
	if r.MaxDelayMs > 0 && delay > float64(r.MaxDelayMs) {
		delay = float64(r.MaxDelayMs)
	}
	return time.Duration(delay) * time.Millisecond
}

// FetchConfig holds the network settings shared by every site.
type FetchConfig struct {
	TimeoutSec int         `yaml:"timeout_sec"`
	MaxDepth   int         `yaml:"max_depth"`
	MaxURLs    int         `yaml:"max_urls"`
	FetchPages bool        `yaml:"fetch_pages"`
	UserAgent  string      `yaml:"user_agent"`
	Retry      RetryPolicy `yaml:"retry"`
}

// Timeout returns the per-request timeout.
func (f *FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSec) * time.Second
}

// Config is the root of the YAML configuration file.
type Config struct {
	Sites       []Site      `yaml:"sites"`
	Output      string      `yaml:"output"`
	Concurrency int         `yaml:"concurrency"`
	Fetch       FetchConfig `yaml:"fetch"`
}

// Load reads, parses, and validates a configuration file, applying defaults
// for unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Output == "" {
		c.Output = "data/articles.csv"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Fetch.TimeoutSec <= 0 {
		c.Fetch.TimeoutSec = DefaultTimeoutSec
	}
	if c.Fetch.MaxDepth <= 0 {
		c.Fetch.MaxDepth = DefaultMaxDepth
	}
	if c.Fetch.MaxURLs <= 0 {
		c.Fetch.MaxURLs = DefaultMaxURLs
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}
	if c.Fetch.Retry.MaxAttempts <= 0 {
		c.Fetch.Retry.MaxAttempts = 3
	}
	if c.Fetch.Retry.InitialDelayMs <= 0 {
		c.Fetch.Retry.InitialDelayMs = 500
	}
	if c.Fetch.Retry.MaxDelayMs <= 0 {
		c.Fetch.Retry.MaxDelayMs = 30000
	}
	if c.Fetch.Retry.BackoffMultiplier < 1.0 {
		c.Fetch.Retry.BackoffMultiplier = 2.0
	}

	for i := range c.Sites {
		site := &c.Sites[i]
		if site.MaxArticles == 0 {
			site.MaxArticles = DefaultMaxArticles
		}
		if site.RateLimit != "" {
			if d, err := time.ParseDuration(site.RateLimit); err == nil {
				site.rateLimit = d
			}
		}
	}
}

// Validate checks the configuration for fatal problems. Any error here
// aborts the run before a single fetch is issued.
func (c *Config) Validate() error {
	if len(c.Sites) == 0 {
		return ErrNoSites
	}

	for i := range c.Sites {
		site := &c.Sites[i]
		if site.Name == "" {
			return fmt.Errorf("site %d: %w", i, ErrSiteMissingName)
		}
		if site.Sitemap == "" && site.Feed == "" && site.URL == "" {
			return fmt.Errorf("site %q: %w", site.Name, ErrSiteMissingSource)
		}
		if site.RateLimit != "" && site.rateLimit == 0 {
			if _, err := time.ParseDuration(site.RateLimit); err != nil {
				return fmt.Errorf("site %q: %w: %q", site.Name, ErrInvalidRateLimit, site.RateLimit)
			}
		}
		if site.MaxArticles < 0 {
			return fmt.Errorf("site %q: %w", site.Name, ErrInvalidMaxArticles)
		}
	}

	if c.Fetch.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if c.Fetch.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoff
	}
	if c.Fetch.TimeoutSec <= 0 {
		return ErrInvalidTimeout
	}

	return nil
}
