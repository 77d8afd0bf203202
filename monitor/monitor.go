// Package monitor orchestrates a discovery run: per-site fetch scheduling,
// extraction, and the final deduplicated merge into the article store.
package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitewatch/articles"
	"sitewatch/config"
)

// Report summarizes a completed run.
type Report struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Sites     []Summary
	Added     int // rows the merge actually added
	Total     int // rows in the store after the merge
}

// Monitor runs the discovery pipeline over the configured sites.
type Monitor struct {
	cfg   *config.Config
	store *articles.Store
}

// New creates a monitor for the given configuration and store.
func New(cfg *config.Config, store *articles.Store) *Monitor {
	return &Monitor{cfg: cfg, store: store}
}

// Run fetches every configured site, bounded by the configured concurrency,
// and merges the combined batch into the store exactly once at the end.
// Sites run in parallel since they target different origins; politeness
// within a site is the per-site client's job. Per-URL failures are reported
// in the summaries, not returned as errors; only a store failure is fatal.
func (m *Monitor) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
	}

	log.Printf("INFO: Starting run %s over %d sites", report.RunID, len(m.cfg.Sites))

	batches := make([]articles.Table, len(m.cfg.Sites))
	summaries := make([]Summary, len(m.cfg.Sites))

	sem := make(chan struct{}, m.cfg.Concurrency)
	var wg sync.WaitGroup

	for i := range m.cfg.Sites {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			site := &m.cfg.Sites[i]
			batch, summary := runSite(ctx, site, &m.cfg.Fetch)
			batches[i] = batch
			summaries[i] = summary

			log.Printf("INFO: %s: %d succeeded, %d failed, %d skipped (attempted %d)",
				site.Name, summary.Succeeded, summary.Failed, summary.Skipped, summary.Attempted)
		}(i)
	}

	wg.Wait()
	report.Sites = summaries

	// Single merge at the run boundary. Everything before this point only
	// reads; a run that dies earlier leaves the stored table untouched.
	combined := articles.Table{}
	for _, batch := range batches {
		combined = append(combined, batch...)
	}

	added, err := m.store.MergeAndSave(combined)
	if err != nil {
		return nil, fmt.Errorf("failed to merge run results: %w", err)
	}
	report.Added = added

	table, err := m.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to reload store: %w", err)
	}
	report.Total = len(table)
	report.Duration = time.Since(report.StartedAt)

	log.Printf("INFO: Run %s complete in %v: %d new articles, %d total",
		report.RunID, report.Duration.Round(time.Millisecond), report.Added, report.Total)

	return report, nil
}
