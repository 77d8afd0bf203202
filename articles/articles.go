// Package articles defines the persisted article record, the first-seen-wins
// merge, and the CSV-backed table store.
package articles

import "time"

// Article is the unit of persistence. URL is the unique key across the
// stored table.
type Article struct {
	URL           string
	Title         string
	Section       string
	Description   string
	PublishedDate *time.Time // nil when the source date was absent or unparseable
	Source        string
	IsOwnSite     bool
	Timestamp     time.Time // when the pipeline run processed this article
}

// Table is an ordered collection of articles as read from or written to the
// store.
type Table []Article

// URLSet returns the set of URLs present in the table.
func (t Table) URLSet() map[string]bool {
	set := make(map[string]bool, len(t))
	for i := range t {
		set[t[i].URL] = true
	}
	return set
}

// Merge combines a run's batch into the existing table. Rows already present
// keep their stored fields untouched (first-seen-wins); new rows are
// appended in batch order. Merging an empty batch returns the existing table
// unchanged, and merging the same batch twice is the same as merging it
// once.
func Merge(existing Table, batch Table) Table {
	if len(batch) == 0 {
		return existing
	}

	seen := existing.URLSet()
	merged := make(Table, len(existing), len(existing)+len(batch))
	copy(merged, existing)

	for i := range batch {
		if seen[batch[i].URL] {
			continue
		}
		seen[batch[i].URL] = true
		merged = append(merged, batch[i])
	}

	return merged
}
