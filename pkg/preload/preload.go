// Package preload extracts the static assets a generated HTML page
// references so they can be advertised to clients as preloadable.
//
// Extraction is a pure function of the artifact's content: artifacts are
// immutable once generated, so results are cached by artifact path with no
// content-based invalidation, only capacity-bounded LRU eviction.
package preload

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/html"
)

// SharedUIAsset is the shared header bundle advertised for every artifact,
// independent of the parsed document.
const SharedUIAsset = "/shared-dist/header.umd.js"

// DefaultCacheSize bounds the preload cache when no size is configured.
const DefaultCacheSize = 256

// Descriptor advertises one resource the client should fetch early.
type Descriptor struct {
	URL string `json:"url"`
	Rel string `json:"rel"`
	As  string `json:"as"`
}

// Extractor parses generated HTML artifacts and caches the resulting
// descriptor lists keyed by absolute artifact path.
//
// Two requests racing on a cold key may both parse the same file and both
// store the same result; extraction is pure, so the redundant work is
// harmless.
//
// NOTE: forced regeneration of an artifact does not invalidate its cached
// list; if regeneration changes the page's asset references the cached list
// goes stale until evicted.
type Extractor struct {
	docsRoot string
	cache    *lru.Cache[string, []Descriptor]
	exclude  []string
}

// Config configures an Extractor.
type Config struct {
	// DocsRoot is the artifact root directory; relative asset references are
	// rewritten as /docs/ paths below it.
	DocsRoot string

	// CacheSize bounds the number of cached artifact entries.
	// Zero uses DefaultCacheSize.
	CacheSize int

	// Exclude lists doublestar globs; a descriptor whose URL path matches
	// any of them is dropped (source maps, vendored fixtures).
	Exclude []string
}

// NewExtractor creates an extractor.
func NewExtractor(cfg Config) (*Extractor, error) {
	if strings.TrimSpace(cfg.DocsRoot) == "" {
		return nil, fmt.Errorf("docs root is required")
	}
	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []Descriptor](size)
	if err != nil {
		return nil, fmt.Errorf("create preload cache: %w", err)
	}

	return &Extractor{
		docsRoot: filepath.Clean(cfg.DocsRoot),
		cache:    cache,
		exclude:  cfg.Exclude,
	}, nil
}

// Extract returns the ordered preload descriptors for the HTML artifact at
// artifactPath: qualifying stylesheet links first, then scripts, then the
// fixed shared-UI entry. Results are read through the cache.
func (e *Extractor) Extract(artifactPath string) ([]Descriptor, error) {
	if cached, ok := e.cache.Get(artifactPath); ok {
		return cached, nil
	}

	f, err := os.Open(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse artifact html: %w", err)
	}

	var styles, scripts []Descriptor
	walk(doc, func(n *html.Node) {
		switch n.Data {
		case "link":
			href := attr(n, "href")
			if href == "" || !isStylesheetHref(href) {
				return
			}
			if u, ok := e.rewrite(href, artifactPath); ok {
				styles = append(styles, Descriptor{URL: u, Rel: "preload", As: "style"})
			}
		case "script":
			src := attr(n, "src")
			if src == "" {
				return
			}
			if u, ok := e.rewrite(src, artifactPath); ok {
				scripts = append(scripts, Descriptor{URL: u, Rel: "preload", As: "script"})
			}
		}
	})

	out := make([]Descriptor, 0, len(styles)+len(scripts)+1)
	out = append(out, styles...)
	out = append(out, scripts...)
	out = append(out, Descriptor{URL: SharedUIAsset, Rel: "preload", As: "script"})

	e.cache.Add(artifactPath, out)
	return out, nil
}

// Len returns the number of cached artifact entries.
func (e *Extractor) Len() int {
	return e.cache.Len()
}

// rewrite classifies a reference and maps it to the URL to advertise.
// Root-relative references pass through, relative references become /docs/
// paths, external references are dropped.
func (e *Extractor) rewrite(ref, artifactPath string) (string, bool) {
	// Protocol-relative and absolute URLs point off-origin.
	if strings.HasPrefix(ref, "//") {
		return "", false
	}
	if u, err := url.Parse(ref); err != nil || u.Scheme != "" {
		return "", false
	}

	var out string
	if strings.HasPrefix(ref, "/") {
		out = ref
	} else {
		rel, err := filepath.Rel(e.docsRoot, filepath.Join(filepath.Dir(artifactPath), filepath.FromSlash(ref)))
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", false
		}
		out = "/docs/" + filepath.ToSlash(rel)
	}

	if e.excluded(out) {
		return "", false
	}
	return out, true
}

func (e *Extractor) excluded(urlPath string) bool {
	trimmed := strings.TrimPrefix(urlPath, "/")
	for _, pattern := range e.exclude {
		if ok, _ := doublestar.Match(pattern, trimmed); ok {
			return true
		}
	}
	return false
}

// isStylesheetHref reports whether the href's path component ends in .css,
// with any query string stripped before the check.
func isStylesheetHref(href string) bool {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	return strings.HasSuffix(path.Clean(href), ".css")
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func walk(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}
