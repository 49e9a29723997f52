package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"bookflow/library"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// catalogEntry is one title in the import file.
type catalogEntry struct {
	Title     string `yaml:"title"`
	Author    string `yaml:"author"`
	ISBN      string `yaml:"isbn"`
	Publisher string `yaml:"publisher"`
	Year      int    `yaml:"year"`
	Category  string `yaml:"category"`
	Copies    int    `yaml:"copies"`
}

type catalog struct {
	Books []catalogEntry `yaml:"books"`
}

func (e catalogEntry) book() *library.Book {
	b := &library.Book{
		Title:           e.Title,
		Author:          e.Author,
		Publisher:       e.Publisher,
		PublicationYear: e.Year,
		Category:        e.Category,
		TotalCopies:     e.Copies,
	}
	if e.Copies == 0 {
		b.TotalCopies = 1
	}
	if e.ISBN != "" {
		isbn := e.ISBN
		b.ISBN = &isbn
	}
	return b
}

func loadCatalog(path string) ([]catalogEntry, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c catalog
	if err := yaml.Unmarshal(buf, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return c.Books, nil
}

func main() {
	var (
		cfgPath, catalogPath string
		fresh                bool
	)
	cmd := &cobra.Command{
		Use:          "import_books",
		Short:        "Bulk-add titles from a YAML catalog",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfgPath, catalogPath, fresh)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config.yaml")
	cmd.Flags().StringVarP(&catalogPath, "catalog", "f", "books.yaml", "YAML catalog to import")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "remove an existing SQLite database first")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, cfgPath, catalogPath string, fresh bool) error {
	ctx := cmd.Context()
	cfg, err := library.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	cfg.Seed = false
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	if fresh {
		if cfg.Database.Driver == "mysql" {
			return errors.New("--fresh only applies to SQLite databases")
		}
		fmt.Println("Cleaning up existing database files...")
		for _, file := range []string{cfg.Database.Path, cfg.Database.Path + "-shm", cfg.Database.Path + "-wal"} {
			if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
				fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
			}
		}
	}

	entries, err := loadCatalog(catalogPath)
	if err != nil {
		return err
	}

	manager, err := library.NewLibraryManager(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer manager.Close()

	fmt.Printf("Importing %d titles from %s...\n", len(entries), catalogPath)
	var imported, skipped, failed int
	for _, e := range entries {
		fmt.Printf("Importing: %s by %s... ", e.Title, e.Author)
		id, err := manager.AddBook(ctx, e.book())
		switch {
		case errors.Is(err, library.ErrConstraintViolation):
			fmt.Println("SKIPPED - ISBN already in catalog")
			skipped++
		case err != nil:
			fmt.Printf("ERROR - %v\n", err)
			failed++
		default:
			fmt.Printf("SUCCESS (ID: %d)\n", id)
			imported++
		}
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Imported: %d  Skipped: %d  Errors: %d\n", imported, skipped, failed)

	if imported > 0 {
		books, err := manager.ListBooks(ctx)
		if err != nil {
			return err
		}
		fmt.Println("\nCatalog:")
		fmt.Printf("%-5s %-50s %-30s %s\n", "ID", "Title", "Author", "Copies")
		fmt.Println(strings.Repeat("-", 95))
		for _, b := range books {
			fmt.Printf("%-5d %-50s %-30s %d\n", b.ID, truncateString(b.Title, 50), truncateString(b.Author, 30), b.TotalCopies)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d titles failed to import", failed)
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
