package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.yaml")
	data := `
books:
  - title: Dune
    author: Frank Herbert
    isbn: "9780441013593"
    year: 1965
    category: Science Fiction
    copies: 3
  - title: Emma
    author: Jane Austen
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	entries, err := loadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}

	dune := entries[0].book()
	if dune.ISBN == nil || *dune.ISBN != "9780441013593" || dune.TotalCopies != 3 || dune.PublicationYear != 1965 {
		t.Fatalf("unexpected book: %+v", dune)
	}
	emma := entries[1].book()
	if emma.ISBN != nil {
		t.Fatalf("blank isbn should stay nil, got %q", *emma.ISBN)
	}
	if emma.TotalCopies != 1 {
		t.Fatalf("missing copies should default to 1, got %d", emma.TotalCopies)
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	if _, err := loadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("books: [unclosed"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadCatalog(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("The Fellowship of the Ring", 10); got != "The Fel..." {
		t.Fatalf("got %q", got)
	}
	if got := truncateString("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncateString("Émile ou De l'éducation", 8); got != "Émile..." {
		t.Fatalf("got %q", got)
	}
	if got := truncateString("Straße", 6); got != "Straße" {
		t.Fatalf("got %q", got)
	}
}
