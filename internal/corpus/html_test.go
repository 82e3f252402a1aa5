package corpus

import (
	"strings"
	"testing"
)

func TestExtractText(t *testing.T) {
	page := `<html>
<head><title>The Republic</title><script>var x = 1;</script></head>
<body>
  <nav><a href="/">Home</a></nav>
  <h1>Book VII</h1>
  <p>Behold! human beings living in an underground den.</p>
  <p>The den has a mouth open towards the light.</p>
  <footer>Site footer</footer>
</body>
</html>`

	title, text, err := ExtractText(page)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if title != "The Republic" {
		t.Errorf("expected title 'The Republic', got %q", title)
	}
	if !strings.Contains(text, "underground den") {
		t.Errorf("expected paragraph text, got %q", text)
	}
	if !strings.Contains(text, "Book VII") {
		t.Errorf("expected heading text, got %q", text)
	}
	if strings.Contains(text, "Home") || strings.Contains(text, "Site footer") {
		t.Errorf("expected nav and footer to be skipped, got %q", text)
	}
	if strings.Contains(text, "var x") {
		t.Errorf("expected script content to be skipped, got %q", text)
	}

	paragraphs := strings.Split(text, "\n\n")
	if len(paragraphs) != 3 {
		t.Errorf("expected 3 paragraphs, got %d: %q", len(paragraphs), text)
	}
}

func TestExtractText_NestedBlocks(t *testing.T) {
	page := `<html><body><blockquote><p>Know thyself.</p></blockquote></body></html>`

	_, text, err := ExtractText(page)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := strings.Count(text, "Know thyself."); got != 1 {
		t.Errorf("expected nested block text exactly once, got %d in %q", got, text)
	}
}

func TestExtractText_NoContent(t *testing.T) {
	title, text, err := ExtractText("<html><body></body></html>")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if title != "" || text != "" {
		t.Errorf("expected empty results, got title=%q text=%q", title, text)
	}
}
