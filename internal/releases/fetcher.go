// SPDX-License-Identifier: MPL-2.0

package releases

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"dotnetup/internal/store"
	"dotnetup/internal/testutil"

	"github.com/charmbracelet/log"
)

// maxDocumentBytes bounds a metadata document read (10 MB). The real
// releases-index is under 100 KB; the bound guards against a misconfigured
// URL pointing at something enormous.
const maxDocumentBytes = 10 << 20

// probeTimeout bounds the connectivity probe. The probe answers "are we
// online at all", so a slow network counts as offline rather than stalling
// the fast path.
const probeTimeout = 3 * time.Second

// probeMemo is how long a probe result is trusted before re-checking.
const probeMemo = 30 * time.Second

type (
	// Fetcher retrieves metadata documents. The engine depends on this
	// interface; tests substitute canned documents.
	Fetcher interface {
		// Fetch returns the document at rawURL, serving from cache while
		// fresh. The second result reports whether the bytes came from cache.
		Fetch(ctx context.Context, rawURL string) ([]byte, bool, error)
		// Online reports whether the network looks reachable. The result is
		// memoized briefly so repeated fast-path checks stay cheap.
		Online(ctx context.Context) bool
	}

	// cachedDocument is the persisted shape of one fetched document.
	cachedDocument struct {
		URL       string    `json:"url"`
		FetchedAt time.Time `json:"fetched_at"`
		Body      []byte    `json:"body"`
	}

	// CachedFetcher is the production Fetcher: HTTP GET with a memory and
	// on-disk cache. Stale cache entries are refreshed; when refresh fails
	// the stale copy is served anyway, because old metadata beats none.
	CachedFetcher struct {
		httpClient *http.Client
		store      store.Store
		ttl        time.Duration
		clock      testutil.Clock
		logger     *log.Logger
		probeURL   string

		mu          sync.Mutex
		memory      map[string]cachedDocument
		probeResult bool
		probedAt    time.Time
	}

	// FetcherOption configures a CachedFetcher.
	FetcherOption func(*CachedFetcher)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *CachedFetcher) { f.httpClient = c }
}

// WithTTL sets the cache freshness window.
func WithTTL(ttl time.Duration) FetcherOption {
	return func(f *CachedFetcher) { f.ttl = ttl }
}

// WithClock replaces the wall clock, letting tests expire cache entries
// without sleeping.
func WithClock(clock testutil.Clock) FetcherOption {
	return func(f *CachedFetcher) { f.clock = clock }
}

// WithFetcherLogger sets the logger used for cache diagnostics.
func WithFetcherLogger(logger *log.Logger) FetcherOption {
	return func(f *CachedFetcher) { f.logger = logger }
}

// WithProbeURL sets the endpoint the connectivity probe contacts.
func WithProbeURL(rawURL string) FetcherOption {
	return func(f *CachedFetcher) { f.probeURL = rawURL }
}

// NewCachedFetcher returns a fetcher persisting documents into st.
func NewCachedFetcher(st store.Store, opts ...FetcherOption) *CachedFetcher {
	f := &CachedFetcher{
		httpClient: http.DefaultClient,
		store:      st,
		ttl:        30 * time.Minute,
		clock:      testutil.RealClock{},
		logger:     log.Default(),
		memory:     make(map[string]cachedDocument),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// cacheKey namespaces fetched documents inside the shared store.
func cacheKey(rawURL string) string { return "metadata/" + rawURL }

// Fetch implements Fetcher.
func (f *CachedFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, bool, error) {
	if doc, ok := f.lookup(rawURL); ok {
		if f.clock.Since(doc.FetchedAt) < f.ttl {
			return doc.Body, true, nil
		}
		// Stale: try a refresh, fall back to the stale copy on failure.
		body, err := f.download(ctx, rawURL)
		if err != nil {
			f.logger.Warn("metadata refresh failed, serving stale cache",
				"url", rawURL, "age", f.clock.Since(doc.FetchedAt).Round(time.Second), "error", err)
			return doc.Body, true, nil
		}
		f.remember(rawURL, body)
		return body, false, nil
	}

	body, err := f.download(ctx, rawURL)
	if err != nil {
		return nil, false, err
	}
	f.remember(rawURL, body)
	return body, false, nil
}

// Online implements Fetcher.
func (f *CachedFetcher) Online(ctx context.Context) bool {
	f.mu.Lock()
	if !f.probedAt.IsZero() && f.clock.Since(f.probedAt) < probeMemo {
		result := f.probeResult
		f.mu.Unlock()
		return result
	}
	f.mu.Unlock()

	result := f.probe(ctx)

	f.mu.Lock()
	f.probeResult = result
	f.probedAt = f.clock.Now()
	f.mu.Unlock()
	return result
}

// probe issues a cheap HEAD request against the probe URL.
func (f *CachedFetcher) probe(ctx context.Context) bool {
	target := f.probeURL
	if target == "" {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, target, http.NoBody)
	if err != nil {
		return false
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	// Any response at all means the network is up; a 4xx/5xx still proves
	// connectivity.
	return true
}

// lookup reads the memory cache first, then the persistent store.
func (f *CachedFetcher) lookup(rawURL string) (cachedDocument, bool) {
	f.mu.Lock()
	doc, ok := f.memory[rawURL]
	f.mu.Unlock()
	if ok {
		return doc, true
	}

	found, err := f.store.Get(cacheKey(rawURL), &doc)
	if err != nil {
		f.logger.Debug("metadata cache read failed", "url", rawURL, "error", err)
		return cachedDocument{}, false
	}
	if !found {
		return cachedDocument{}, false
	}

	f.mu.Lock()
	f.memory[rawURL] = doc
	f.mu.Unlock()
	return doc, true
}

// remember stores a freshly downloaded document in both cache layers.
func (f *CachedFetcher) remember(rawURL string, body []byte) {
	doc := cachedDocument{URL: rawURL, FetchedAt: f.clock.Now(), Body: body}

	f.mu.Lock()
	f.memory[rawURL] = doc
	f.mu.Unlock()

	if err := f.store.Set(cacheKey(rawURL), doc); err != nil {
		// A broken disk cache degrades to memory-only; not worth failing the
		// fetch over.
		f.logger.Debug("metadata cache write failed", "url", rawURL, "error", err)
	}
}

// download performs the actual GET.
func (f *CachedFetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("fetching metadata: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return body, nil
}
