package corpus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scholiast/scholia/internal/cache"
	"github.com/scholiast/scholia/internal/model"
)

func testCorpusConfig() model.CorpusConfig {
	return model.CorpusConfig{
		UserAgent:         "ScholiaTest/1.0",
		FetchTimeout:      5 * time.Second,
		MaxBodyBytes:      1 << 20,
		RequestsPerSecond: 100,
		Burst:             10,
		LoadConcurrency:   2,
		ChunkWords:        50,
	}
}

func TestLoader_LoadDir(t *testing.T) {
	dir := t.TempDir()

	manifest := `[{"id": "republic", "title": "Republic", "author": "Plato",
		"translator": "Benjamin Jowett", "file": "republic.txt"}]`
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "republic.txt"),
		[]byte("Behold! human beings living in an underground den."), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Meditations.txt"),
		[]byte("Begin the morning by saying to thyself."), 0644); err != nil {
		t.Fatal(err)
	}
	// Non-text files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.pdf"), []byte("binary"), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(testCorpusConfig(), nil)
	c, err := loader.LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if c.Len() != 2 {
		t.Fatalf("expected 2 documents, got %d", c.Len())
	}

	rep, ok := c.Get("republic")
	if !ok {
		t.Fatal("expected manifest document republic")
	}
	if rep.Author != "Plato" || rep.Translator != "Benjamin Jowett" {
		t.Errorf("expected manifest metadata, got author=%q translator=%q", rep.Author, rep.Translator)
	}
	if len(rep.Chunks) == 0 {
		t.Error("expected chunks to be populated")
	}

	med, ok := c.Get("meditations")
	if !ok {
		t.Fatal("expected bare file document meditations")
	}
	// Author comes from the known-works table when the filename has none.
	if med.Author != "Marcus Aurelius" {
		t.Errorf("expected backfilled author Marcus Aurelius, got %q", med.Author)
	}
}

func TestLoader_LoadDirAuthorTitleFilename(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Seneca - On Anger.txt"),
		[]byte("We are mad not only individually but nationally."), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(testCorpusConfig(), nil)
	c, err := loader.LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	doc, ok := c.Get("on-anger")
	if !ok {
		t.Fatalf("expected document on-anger, have %d documents", c.Len())
	}
	if doc.Author != "Seneca" || doc.Title != "On Anger" {
		t.Errorf("expected filename metadata, got author=%q title=%q", doc.Author, doc.Title)
	}
}

func TestLoader_LoadDirHTML(t *testing.T) {
	dir := t.TempDir()
	page := `<html><head><title>The Apology</title><style>p{}</style></head>
<body><nav>site menu</nav><p>How you, O Athenians, have been affected by my accusers, I cannot tell.</p></body></html>`
	if err := os.WriteFile(filepath.Join(dir, "Plato - Apology.html"), []byte(page), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(testCorpusConfig(), nil)
	c, err := loader.LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	doc, ok := c.Get("apology")
	if !ok {
		t.Fatalf("expected document apology, have %d documents", c.Len())
	}
	if doc.Author != "Plato" {
		t.Errorf("expected author from filename, got %q", doc.Author)
	}
	if !strings.Contains(doc.Text, "O Athenians") {
		t.Errorf("expected extracted prose, got %q", doc.Text)
	}
	if strings.Contains(doc.Text, "site menu") {
		t.Error("expected navigation to be stripped")
	}
}

func TestLoader_LoadURLs(t *testing.T) {
	var pageRequests int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow:\n"))
	})
	mux.HandleFunc("/wiki/The_Republic", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pageRequests, 1)
		w.Write([]byte(`<html><head><title>The Republic</title></head>
<body><p>Behold! human beings living in an underground den.</p></body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := cache.NewBoundedCache(10, time.Hour)
	loader := NewLoader(testCorpusConfig(), store)

	pageURL := server.URL + "/wiki/The_Republic"
	c, err := loader.LoadURLs(context.Background(), []string{pageURL})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 document, got %d", c.Len())
	}

	doc := c.Documents()[0]
	if doc.Title != "The Republic" {
		t.Errorf("expected page title, got %q", doc.Title)
	}
	if doc.Author != "Plato" {
		t.Errorf("expected author from known-works table, got %q", doc.Author)
	}
	if !strings.Contains(doc.Text, "underground den") {
		t.Errorf("expected extracted text, got %q", doc.Text)
	}
	if len(doc.Chunks) == 0 {
		t.Error("expected chunks to be populated")
	}

	// Second load is served from the cache without touching the server.
	if _, err := loader.LoadURLs(context.Background(), []string{pageURL}); err != nil {
		t.Fatalf("expected no error on cached load, got %v", err)
	}
	if got := atomic.LoadInt32(&pageRequests); got != 1 {
		t.Errorf("expected 1 page request, got %d", got)
	}
}

func TestLoader_RobotsDisallowed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	})
	mux.HandleFunc("/private/text", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>secret</p></body></html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	loader := NewLoader(testCorpusConfig(), nil)
	_, err := loader.LoadURLs(context.Background(), []string{server.URL + "/private/text"})
	if err == nil {
		t.Fatal("expected error for disallowed URL")
	}
	if !strings.Contains(err.Error(), "robots.txt") {
		t.Errorf("expected robots.txt error, got %v", err)
	}
}

func TestLoader_MissingDir(t *testing.T) {
	loader := NewLoader(testCorpusConfig(), nil)
	if _, err := loader.LoadDir(context.Background(), "/nonexistent/corpus"); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
