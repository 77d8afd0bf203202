// Package sitemap resolves XML sitemaps, expanding sitemap indexes into a
// flat list of candidate page URLs.
package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Entry is a single page URL taken from a sitemap URL set, together with any
// inline metadata the sitemap carried. Entries are transient; they exist only
// during resolution.
type Entry struct {
	Loc     string // page URL
	LastMod string // raw <lastmod> value, empty if absent
	Title   string // Google News extension <news:title>, empty if absent
	PubDate string // Google News extension <news:publication_date>, empty if absent
}

// FetchError indicates a network or HTTP failure while downloading a
// sitemap. These are transient: the client fetching on behalf of the
// resolver applies the retry policy before one surfaces here.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status code %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FormatError indicates a document whose root element is neither
// <sitemapindex> nor <urlset>. Fatal for that document, not for the site.
type FormatError struct {
	URL  string
	Root string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("parse %s: unrecognized sitemap root element %q", e.URL, e.Root)
}

// XML document shapes. encoding/xml matches by local name, so the sitemap
// and Google News namespaces both resolve without explicit ns handling.

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc     string    `xml:"loc"`
	LastMod string    `xml:"lastmod"`
	News    *newsMeta `xml:"news"`
}

type newsMeta struct {
	Title           string `xml:"title"`
	PublicationDate string `xml:"publication_date"`
}

type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []sitemapRef `xml:"sitemap"`
}

type sitemapRef struct {
	Loc string `xml:"loc"`
}

// node is the decoded form of one sitemap document: either an index
// (children set) or a URL set (entries set).
type node struct {
	children []string
	entries  []Entry
}

func (n *node) isIndex() bool { return n.children != nil }

// parse decodes a sitemap document, classifying it by its root element.
func parse(url string, data []byte) (*node, error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("malformed XML: %w", err)}
	}

	switch root {
	case "sitemapindex":
		var idx sitemapIndex
		if err := xml.Unmarshal(data, &idx); err != nil {
			return nil, &FetchError{URL: url, Err: fmt.Errorf("malformed XML: %w", err)}
		}
		children := make([]string, 0, len(idx.Sitemaps))
		for _, ref := range idx.Sitemaps {
			if loc := trimLoc(ref.Loc); loc != "" {
				children = append(children, loc)
			}
		}
		return &node{children: children}, nil

	case "urlset":
		var set urlSet
		if err := xml.Unmarshal(data, &set); err != nil {
			return nil, &FetchError{URL: url, Err: fmt.Errorf("malformed XML: %w", err)}
		}
		entries := make([]Entry, 0, len(set.URLs))
		for _, u := range set.URLs {
			loc := trimLoc(u.Loc)
			if loc == "" {
				continue
			}
			entry := Entry{Loc: loc, LastMod: trimLoc(u.LastMod)}
			if u.News != nil {
				entry.Title = trimLoc(u.News.Title)
				entry.PubDate = trimLoc(u.News.PublicationDate)
			}
			entries = append(entries, entry)
		}
		return &node{entries: entries}, nil

	default:
		return nil, &FormatError{URL: url, Root: root}
	}
}

// rootElement returns the local name of the document's root element.
func rootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", fmt.Errorf("no root element")
		}
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

func trimLoc(s string) string {
	return strings.TrimSpace(s)
}
