package sitemap

import (
	"context"
	"log"
)

// Fetcher downloads a URL and returns its body. The caller-supplied
// implementation owns timeouts, politeness delays, and retries; the resolver
// never retries on its own.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Resolver expands a root sitemap URL into a flat list of page entries,
// following sitemap indexes up to MaxDepth levels and collecting at most
// MaxURLs entries across the whole expansion.
type Resolver struct {
	fetcher  Fetcher
	maxDepth int
	maxURLs  int
}

// NewResolver creates a resolver with the given limits. Non-positive limits
// disable the corresponding cap.
func NewResolver(fetcher Fetcher, maxDepth, maxURLs int) *Resolver {
	return &Resolver{fetcher: fetcher, maxDepth: maxDepth, maxURLs: maxURLs}
}

// Result is the outcome of one resolution.
type Result struct {
	Entries   []Entry
	Truncated bool    // MaxURLs reached before the tree was exhausted
	Failed    []error // per-child failures that were skipped
}

type workItem struct {
	url   string
	depth int
}

// Resolve expands the sitemap tree rooted at rootURL. Entries come back in
// depth-first document order, each unique page URL exactly once. A failure
// on the root document is returned as the error; failures on child sitemaps
// are recorded in Result.Failed and their siblings still resolve.
func (r *Resolver) Resolve(ctx context.Context, rootURL string) (*Result, error) {
	res := &Result{}
	visited := map[string]bool{rootURL: true}
	seen := make(map[string]bool)

	// Explicit stack rather than recursion: depth and URL caps apply
	// uniformly, and cyclic index references cannot blow the stack.
	stack := []workItem{{url: rootURL, depth: 0}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return res, nil
		}
		if r.maxURLs > 0 && len(res.Entries) >= r.maxURLs {
			res.Truncated = true
			return res, nil
		}

		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		data, err := r.fetcher.Fetch(ctx, item.url)
		if err != nil {
			if item.depth == 0 {
				return nil, &FetchError{URL: item.url, Err: err}
			}
			log.Printf("WARN: Skipping sitemap %s: %v", item.url, err)
			res.Failed = append(res.Failed, &FetchError{URL: item.url, Err: err})
			continue
		}

		node, err := parse(item.url, data)
		if err != nil {
			if item.depth == 0 {
				return nil, err
			}
			log.Printf("WARN: Skipping sitemap %s: %v", item.url, err)
			res.Failed = append(res.Failed, err)
			continue
		}

		if node.isIndex() {
			if item.depth >= r.maxDepth && r.maxDepth > 0 {
				log.Printf("WARN: Max sitemap depth %d reached at %s, not descending", r.maxDepth, item.url)
				continue
			}
			// Push in reverse so children pop in document order.
			for i := len(node.children) - 1; i >= 0; i-- {
				child := node.children[i]
				if visited[child] {
					continue
				}
				visited[child] = true
				stack = append(stack, workItem{url: child, depth: item.depth + 1})
			}
			continue
		}

		for i, entry := range node.entries {
			if seen[entry.Loc] {
				continue
			}
			seen[entry.Loc] = true
			res.Entries = append(res.Entries, entry)
			if r.maxURLs > 0 && len(res.Entries) >= r.maxURLs {
				// Truncated unless this was the final entry of the final
				// document.
				res.Truncated = len(stack) > 0 || i < len(node.entries)-1
				return res, nil
			}
		}
	}

	return res, nil
}
