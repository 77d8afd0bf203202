package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"sitewatch/articles"
	"sitewatch/config"
	"sitewatch/monitor"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an int from environment variable or returns default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool parses a bool from environment variable or returns default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration parses a duration from environment variable or returns default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("SITEWATCH_CONFIG", "sites.yaml"), "Path to site configuration file (SITEWATCH_CONFIG)")
	output := flag.String("output", getEnv("SITEWATCH_OUTPUT", ""), "Override output CSV path (SITEWATCH_OUTPUT)")
	limit := flag.Int("limit", getEnvInt("SITEWATCH_LIMIT", 0), "Override per-site article limit (SITEWATCH_LIMIT)")
	concurrency := flag.Int("concurrency", getEnvInt("SITEWATCH_CONCURRENCY", 0), "Override number of sites fetched in parallel (SITEWATCH_CONCURRENCY)")
	timeout := flag.Duration("timeout", getEnvDuration("SITEWATCH_TIMEOUT", 0), "Override per-request timeout, e.g. 30s (SITEWATCH_TIMEOUT)")
	fetchPages := flag.Bool("fetch-pages", getEnvBool("SITEWATCH_FETCH_PAGES", false), "Fetch article pages for titles and descriptions (SITEWATCH_FETCH_PAGES)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}

	if *output != "" {
		cfg.Output = *output
	}
	if *limit > 0 {
		for i := range cfg.Sites {
			cfg.Sites[i].MaxArticles = *limit
		}
	}
	if *concurrency > 0 {
		cfg.Concurrency = *concurrency
	}
	if *timeout > 0 {
		// Rounded up so sub-second values do not disable the timeout.
		cfg.Fetch.TimeoutSec = int((*timeout + time.Second - 1) / time.Second)
	}
	if *fetchPages {
		cfg.Fetch.FetchPages = true
	}

	store, err := articles.NewStore(cfg.Output)
	if err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}

	// SIGINT/SIGTERM cancel between fetches; the partial batch still merges.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("INFO: Monitoring %d sites, writing to %s", len(cfg.Sites), store.Path())

	m := monitor.New(cfg, store)
	report, err := m.Run(ctx)
	if err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}

	for _, s := range report.Sites {
		if s.Error != "" {
			log.Printf("WARN: %s produced no articles: %s", s.Site, s.Error)
		}
	}
}
