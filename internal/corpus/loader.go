package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scholiast/scholia/internal/cache"
	"github.com/scholiast/scholia/internal/model"
	"github.com/scholiast/scholia/internal/util"
	"github.com/scholiast/scholia/internal/worker"
)

const manifestFile = "manifest.json"

// Loader builds a Corpus from local files and remote pages. Remote
// fetches go through robots.txt checks, per-host rate limiting, and an
// optional byte cache so repeated loads stay off the network.
type Loader struct {
	cfg     model.CorpusConfig
	client  *http.Client
	robots  *util.RobotsChecker
	limiter *worker.Limiter
	store   cache.Cache
}

// NewLoader creates a loader. store may be nil to disable caching of
// fetched pages.
func NewLoader(cfg model.CorpusConfig, store cache.Cache) *Loader {
	if cfg.LoadConcurrency <= 0 {
		cfg.LoadConcurrency = 4
	}

	client := &http.Client{
		Timeout: cfg.FetchTimeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}

	if pruner, ok := store.(cache.Pruner); ok {
		// Best effort; stale entries also fall out on read
		_, _ = pruner.Prune()
	}

	return &Loader{
		cfg:     cfg,
		client:  client,
		robots:  util.NewRobotsChecker(cfg.UserAgent, client),
		limiter: worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		store:   store,
	}
}

// manifestEntry describes one corpus document in manifest.json. Either
// File (relative to the corpus dir) or URL must be set.
type manifestEntry struct {
	ID         string `json:"id,omitempty"`
	Title      string `json:"title"`
	Author     string `json:"author,omitempty"`
	Translator string `json:"translator,omitempty"`
	Edition    string `json:"edition,omitempty"`
	File       string `json:"file,omitempty"`
	URL        string `json:"url,omitempty"`
}

// LoadDir reads every document under dir. A manifest.json provides
// metadata and remote sources; bare .txt, .md, and .html files load
// with metadata derived from an "Author - Title" filename.
func (l *Loader) LoadDir(ctx context.Context, dir string) (*Corpus, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}

	c := New()
	var remote []manifestEntry
	covered := make(map[string]bool)

	manifest, err := readManifest(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}
	for _, entry := range manifest {
		switch {
		case entry.File != "":
			covered[entry.File] = true
			doc, err := l.loadFile(filepath.Join(dir, entry.File), entry)
			if err != nil {
				return nil, err
			}
			c.Add(doc)
		case entry.URL != "":
			remote = append(remote, entry)
		default:
			return nil, fmt.Errorf("manifest entry %q has neither file nor url", entry.Title)
		}
	}

	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || name == manifestFile || covered[name] || strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".txt" && ext != ".md" && ext != ".html" {
			continue
		}
		author, title := parseFileMeta(strings.TrimSuffix(name, filepath.Ext(name)))
		doc, err := l.loadFile(filepath.Join(dir, name), manifestEntry{Author: author, Title: title})
		if err != nil {
			return nil, err
		}
		c.Add(doc)
	}

	if len(remote) > 0 {
		if err := l.fetchAll(ctx, c, remote); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// LoadURLs fetches the given pages into a fresh corpus.
func (l *Loader) LoadURLs(ctx context.Context, urls []string) (*Corpus, error) {
	c := New()
	entries := make([]manifestEntry, len(urls))
	for i, u := range urls {
		entries[i] = manifestEntry{URL: u}
	}
	if err := l.fetchAll(ctx, c, entries); err != nil {
		return nil, err
	}
	return c, nil
}

// fetchAll fetches remote entries concurrently. The first failure
// cancels the rest.
func (l *Loader) fetchAll(ctx context.Context, c *Corpus, entries []manifestEntry) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.LoadConcurrency)

	docs := make([]*Document, len(entries))
	for i, entry := range entries {
		g.Go(func() error {
			doc, err := l.fetchDocument(ctx, entry.URL)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", entry.URL, err)
			}
			applyMeta(doc, entry)
			docs[i] = doc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, doc := range docs {
		doc.Rechunk(l.cfg.ChunkWords)
		c.Add(doc)
	}
	return nil
}

// fetchDocument retrieves one page and reduces it to a document. The
// byte cache is consulted before robots.txt and the rate limiter so
// cached loads make no requests at all.
func (l *Loader) fetchDocument(ctx context.Context, rawURL string) (*Document, error) {
	key := cache.Key("corpus", rawURL)

	var body []byte
	if l.store != nil {
		if data, found := l.store.Get(key); found {
			body = data
		}
	}

	if body == nil {
		allowed, delay, err := l.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("robots.txt disallows fetching %s", rawURL)
		}
		if err := l.limiter.WaitWithDelay(ctx, rawURL, delay); err != nil {
			return nil, err
		}

		body, err = l.fetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if l.store != nil {
			_ = l.store.Set(key, body, 0)
		}
	}

	title, text, err := ExtractText(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	if text == "" {
		return nil, fmt.Errorf("no readable text at %s", rawURL)
	}
	if title == "" {
		title = titleFromURL(rawURL)
	}

	doc := &Document{
		ID:        DeriveID(idFromURL(rawURL)),
		Title:     title,
		URL:       rawURL,
		Text:      text,
		FetchedAt: time.Now(),
	}
	if author, ok := authorFromTitle(title); ok {
		doc.Author = author
	}
	return doc, nil
}

// fetch performs the HTTP request with the configured headers and body
// size limit.
func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", l.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// loadFile reads one local file into a document. HTML files are reduced
// to readable prose the same way fetched pages are.
func (l *Loader) loadFile(path string, meta manifestEntry) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}

	text := string(data)
	pageTitle := ""
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".html" || ext == ".htm" {
		pageTitle, text, err = ExtractText(text)
		if err != nil {
			return nil, fmt.Errorf("parse document %s: %w", path, err)
		}
	}

	title := meta.Title
	if title == "" {
		title = pageTitle
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	id := meta.ID
	if id == "" {
		id = DeriveID(title)
	}

	doc := &Document{
		ID:         id,
		Title:      title,
		Author:     meta.Author,
		Translator: meta.Translator,
		Edition:    meta.Edition,
		Text:       text,
	}
	if doc.Author == "" {
		if author, ok := KnownAuthor(title); ok {
			doc.Author = author
		}
	}
	doc.Rechunk(l.cfg.ChunkWords)
	return doc, nil
}

// readManifest parses manifest.json. A missing file is not an error.
func readManifest(path string) ([]manifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var entries []manifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return entries, nil
}

// applyMeta overlays non-empty manifest metadata onto a fetched
// document.
func applyMeta(doc *Document, meta manifestEntry) {
	if meta.ID != "" {
		doc.ID = meta.ID
	}
	if meta.Title != "" {
		doc.Title = meta.Title
	}
	if meta.Author != "" {
		doc.Author = meta.Author
	}
	if meta.Translator != "" {
		doc.Translator = meta.Translator
	}
	if meta.Edition != "" {
		doc.Edition = meta.Edition
	}
	if doc.Author == "" {
		if author, ok := authorFromTitle(doc.Title); ok {
			doc.Author = author
		}
	}
}

// parseFileMeta splits an "Author - Title" filename stem.
func parseFileMeta(stem string) (string, string) {
	stem = strings.ReplaceAll(stem, "_", " ")
	if author, title, found := strings.Cut(stem, " - "); found {
		return strings.TrimSpace(author), strings.TrimSpace(title)
	}
	return "", strings.TrimSpace(stem)
}

// authorFromTitle tries the whole page title and then its separator
// segments against the known-works table. Page titles often carry site
// suffixes like "Republic - Wikisource".
func authorFromTitle(title string) (string, bool) {
	if author, ok := KnownAuthor(title); ok {
		return author, true
	}
	for _, sep := range []string{" - ", " | ", ": "} {
		for _, part := range strings.Split(title, sep) {
			if author, ok := KnownAuthor(part); ok {
				return author, true
			}
		}
	}
	return "", false
}

// titleFromURL de-slugs the last path segment for pages without a
// usable <title>.
func titleFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")
	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}
	return last
}

// idFromURL builds a stable identifier from host and path.
func idFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Host + " " + strings.Trim(parsed.Path, "/")
}
