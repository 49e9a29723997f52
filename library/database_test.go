package library

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tempDB(t *testing.T) *Database {
	t.Helper()
	cfg := DefaultConfig().Database
	cfg.Path = filepath.Join(t.TempDir(), "test.db")
	db, err := NewDatabase(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func addBook(t *testing.T, db *Database, title, author string, copies int) int64 {
	t.Helper()
	id, err := db.AddBook(context.Background(), &Book{Title: title, Author: author, TotalCopies: copies})
	if err != nil {
		t.Fatalf("add book %q: %v", title, err)
	}
	return id
}

func addMember(t *testing.T, db *Database, name, email string, tier MembershipType) int64 {
	t.Helper()
	id, err := db.AddMember(context.Background(), &Member{Name: name, Email: email, MembershipType: tier})
	if err != nil {
		t.Fatalf("add member %q: %v", name, err)
	}
	return id
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig().Database
	cfg.Path = filepath.Join(t.TempDir(), "nested", "lib.db")

	db, err := NewDatabase(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.AddBook(ctx, &Book{Title: "Dune", Author: "Frank Herbert", TotalCopies: 1}); err != nil {
		t.Fatalf("add book: %v", err)
	}
	db.Close()

	db, err = NewDatabase(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	n, err := db.TotalBooks(ctx)
	if err != nil {
		t.Fatalf("total books: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1 book after reopen, got %d", n)
	}
}

func TestAddBookStartsFullyAvailable(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)

	id, err := db.AddBook(ctx, &Book{Title: "  Dune ", Author: "Frank Herbert", ISBN: strPtr("9780441013593"),
		TotalCopies: 4, AvailableCopies: 1})
	if err != nil {
		t.Fatalf("add book: %v", err)
	}
	b, err := db.GetBook(ctx, id)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if b.Title != "Dune" {
		t.Fatalf("title not trimmed: %q", b.Title)
	}
	if b.AvailableCopies != 4 || b.TotalCopies != 4 {
		t.Fatalf("want 4/4 copies, got %d/%d", b.AvailableCopies, b.TotalCopies)
	}
	if b.ISBN == nil || *b.ISBN != "9780441013593" {
		t.Fatalf("isbn not stored: %v", b.ISBN)
	}
}

func TestAddBookValidation(t *testing.T) {
	db := tempDB(t)
	cases := map[string]*Book{
		"no title":        {Author: "A", TotalCopies: 1},
		"no author":       {Title: "T", TotalCopies: 1},
		"negative copies": {Title: "T", Author: "A", TotalCopies: -1},
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := db.AddBook(context.Background(), b); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("want ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestDuplicateISBN(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	if _, err := db.AddBook(ctx, &Book{Title: "A", Author: "X", ISBN: strPtr("123"), TotalCopies: 1}); err != nil {
		t.Fatalf("first: %v", err)
	}
	_, err := db.AddBook(ctx, &Book{Title: "B", Author: "Y", ISBN: strPtr("123"), TotalCopies: 1})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("want ErrConstraintViolation, got %v", err)
	}

	// Empty ISBNs are stored as NULL and never collide.
	for _, title := range []string{"C", "D"} {
		if _, err := db.AddBook(ctx, &Book{Title: title, Author: "Z", ISBN: strPtr(" "), TotalCopies: 1}); err != nil {
			t.Fatalf("blank isbn %s: %v", title, err)
		}
	}
}

func TestGetMissing(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	if _, err := db.GetBook(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("book: want ErrNotFound, got %v", err)
	}
	if _, err := db.GetMember(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("member: want ErrNotFound, got %v", err)
	}
	if _, err := db.GetLoan(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("loan: want ErrNotFound, got %v", err)
	}
	if _, err := db.GetLoanByRef(ctx, "01J9A6S0000000000000000001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("loan ref: want ErrNotFound, got %v", err)
	}
	if err := db.SetMemberStatus(ctx, 42, MemberSuspended); !errors.Is(err, ErrNotFound) {
		t.Fatalf("status: want ErrNotFound, got %v", err)
	}
}

func TestListBooksOrderedByTitle(t *testing.T) {
	db := tempDB(t)
	addBook(t, db, "Zen", "A", 1)
	addBook(t, db, "Alpha", "B", 1)
	addBook(t, db, "Middle", "C", 1)

	books, err := db.ListBooks(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var titles []string
	for _, b := range books {
		titles = append(titles, b.Title)
	}
	want := []string{"Alpha", "Middle", "Zen"}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("want %v, got %v", want, titles)
		}
	}
}

func TestSearchBooks(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	addBook(t, db, "The Go Programming Language", "Alan Donovan", 1)
	addBook(t, db, "Concurrency in Go", "Katherine Cox-Buday", 1)
	addBook(t, db, "100% Pure", "Someone_Else", 1)
	if _, err := db.AddBook(ctx, &Book{Title: "Other", Author: "Nobody", ISBN: strPtr("978-X"), TotalCopies: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	addBook(t, db, "Émile ou De l'éducation", "Jean-Jacques Rousseau", 1)

	tests := []struct {
		q    string
		want int
	}{
		{"go", 2},
		{"DONOVAN", 1},
		{"978-x", 1},
		{"%", 1},
		{"_", 1},
		{"émile", 1},
		{"ÉMILE", 1},
		{"Émile", 1},
		{"L'ÉDUCATION", 1},
		{"rousseau", 1},
		{"   ", 0},
		{"missing", 0},
	}
	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			res, err := db.SearchBooks(ctx, tt.q)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(res) != tt.want {
				t.Fatalf("search %q: want %d results, got %d", tt.q, tt.want, len(res))
			}
		})
	}
}

func TestMemberLifecycle(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)

	id := addMember(t, db, "Alice", " Alice@Example.COM ", "")
	m, err := db.GetMemberByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("by email: %v", err)
	}
	if m.ID != id || m.MembershipType != MembershipBasic || m.Status != MemberActive {
		t.Fatalf("unexpected member: %+v", m)
	}

	if _, err := db.AddMember(ctx, &Member{Name: "Other", Email: "alice@example.com"}); !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("duplicate email: want ErrConstraintViolation, got %v", err)
	}
	if _, err := db.AddMember(ctx, &Member{Name: "Bad", Email: "nope"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad email: want ErrInvalidArgument, got %v", err)
	}

	if err := db.SetMemberStatus(ctx, id, MemberSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if err := db.SetMemberStatus(ctx, id, "Banned"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad status: want ErrInvalidArgument, got %v", err)
	}
	m.Phone = "555-0199"
	m.MembershipType = MembershipPremium
	if err := db.UpdateMember(ctx, m); err != nil {
		t.Fatalf("update: %v", err)
	}
	m, _ = db.GetMember(ctx, id)
	if m.Status != MemberSuspended || m.Phone != "555-0199" || m.MembershipType != MembershipPremium {
		t.Fatalf("unexpected member after update: %+v", m)
	}
}

func TestUpdateBookRecomputesAvailability(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	bookID := addBook(t, db, "Dune", "Frank Herbert", 3)
	memberID := addMember(t, db, "Alice", "alice@example.com", MembershipBasic)

	l := newTestLedger(db, fixedClock{day(2024, 10, 1)})
	if _, err := l.IssueLoan(ctx, IssueRequest{BookID: bookID, MemberID: memberID}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	b, _ := db.GetBook(ctx, bookID)
	b.TotalCopies = 5
	b.AvailableCopies = 5
	if err := db.UpdateBook(ctx, b); err != nil {
		t.Fatalf("update: %v", err)
	}
	b, _ = db.GetBook(ctx, bookID)
	if b.TotalCopies != 5 || b.AvailableCopies != 4 {
		t.Fatalf("want 4/5 after update, got %d/%d", b.AvailableCopies, b.TotalCopies)
	}

	b.TotalCopies = 0
	if err := db.UpdateBook(ctx, b); !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("shrink below loans: want ErrConstraintViolation, got %v", err)
	}
}

func TestDeleteBook(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	bookID := addBook(t, db, "Dune", "Frank Herbert", 1)
	memberID := addMember(t, db, "Alice", "alice@example.com", MembershipBasic)

	l := newTestLedger(db, fixedClock{day(2024, 10, 1)})
	loan, err := l.IssueLoan(ctx, IssueRequest{BookID: bookID, MemberID: memberID})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := db.DeleteBook(ctx, bookID); !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("delete on loan: want ErrConstraintViolation, got %v", err)
	}
	if _, err := l.ReturnLoan(ctx, loan.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	if err := db.DeleteBook(ctx, bookID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.GetBook(ctx, bookID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
	if _, err := db.GetLoan(ctx, loan.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("closed loan should be removed with the book, got %v", err)
	}
	if err := db.DeleteBook(ctx, bookID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
}

func TestListLoansFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	b1 := addBook(t, db, "Dune", "Frank Herbert", 2)
	b2 := addBook(t, db, "Emma", "Jane Austen", 2)
	alice := addMember(t, db, "Alice", "alice@example.com", MembershipBasic)
	bob := addMember(t, db, "Bob", "bob@example.com", MembershipBasic)

	l := newTestLedger(db, fixedClock{day(2024, 10, 20)})
	first, err := l.IssueLoan(ctx, IssueRequest{BookID: b1, MemberID: alice, IssueDate: day(2024, 10, 1)})
	if err != nil {
		t.Fatalf("issue 1: %v", err)
	}
	second, err := l.IssueLoan(ctx, IssueRequest{BookID: b2, MemberID: bob, IssueDate: day(2024, 10, 10)})
	if err != nil {
		t.Fatalf("issue 2: %v", err)
	}
	if _, err := l.ReturnLoan(ctx, first.ID); err != nil {
		t.Fatalf("return: %v", err)
	}

	all, err := db.ListLoans(ctx, LoanFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("want newest issue first, got %v", all)
	}
	if all[0].BookTitle != "Emma" || all[0].MemberName != "Bob" {
		t.Fatalf("joined names missing: %+v", all[0])
	}

	open, _ := db.ListLoans(ctx, LoanFilter{OpenOnly: true})
	if len(open) != 1 || open[0].ID != second.ID {
		t.Fatalf("open only: %v", open)
	}
	mine, _ := db.ListLoans(ctx, LoanFilter{MemberID: alice})
	if len(mine) != 1 || mine[0].ID != first.ID {
		t.Fatalf("member filter: %v", mine)
	}
	byBook, _ := db.ListLoans(ctx, LoanFilter{BookID: b2})
	if len(byBook) != 1 || byBook[0].BookID != b2 {
		t.Fatalf("book filter: %v", byBook)
	}
}

func TestListOverdueLoans(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	bookID := addBook(t, db, "Dune", "Frank Herbert", 3)
	memberID := addMember(t, db, "Alice", "alice@example.com", MembershipPremium)

	l := newTestLedger(db, fixedClock{day(2024, 10, 1)})
	for _, due := range []time.Time{day(2024, 10, 5), day(2024, 10, 3), day(2024, 10, 30)} {
		if _, err := l.IssueLoan(ctx, IssueRequest{BookID: bookID, MemberID: memberID, DueDate: due}); err != nil {
			t.Fatalf("issue: %v", err)
		}
	}

	overdue, err := db.ListOverdueLoans(ctx, day(2024, 10, 10))
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(overdue) != 2 {
		t.Fatalf("want 2 overdue, got %d", len(overdue))
	}
	if !overdue[0].DueDate.Equal(day(2024, 10, 3)) {
		t.Fatalf("want earliest due first, got %s", overdue[0].DueDate)
	}

	// Due today is not overdue yet.
	overdue, _ = db.ListOverdueLoans(ctx, day(2024, 10, 3))
	if len(overdue) != 0 {
		t.Fatalf("want 0 overdue on the due date, got %d", len(overdue))
	}
}

func TestStatsEmptyAndPopulated(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)

	s, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if *s != (Stats{}) {
		t.Fatalf("want zero stats on empty store, got %+v", s)
	}

	bookID := addBook(t, db, "Dune", "Frank Herbert", 3)
	addBook(t, db, "Emma", "Jane Austen", 2)
	memberID := addMember(t, db, "Alice", "alice@example.com", MembershipBasic)
	l := newTestLedger(db, fixedClock{day(2024, 10, 1)})
	if _, err := l.IssueLoan(ctx, IssueRequest{BookID: bookID, MemberID: memberID}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	s, err = db.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := Stats{TotalBooks: 2, AvailableCopies: 4, TotalMembers: 1, ActiveLoans: 1}
	if *s != want {
		t.Fatalf("want %+v, got %+v", want, *s)
	}
	if n, _ := db.AvailableCopies(ctx); n != 4 {
		t.Fatalf("available copies: want 4, got %d", n)
	}
	if n, _ := db.ActiveLoans(ctx); n != 1 {
		t.Fatalf("active loans: want 1, got %d", n)
	}
}

func TestClosedDatabaseIsStorageUnavailable(t *testing.T) {
	db := tempDB(t)
	db.Close()
	_, err := db.TotalBooks(context.Background())
	if err == nil {
		t.Fatal("expected error from closed database")
	}
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("want ErrStorageUnavailable, got %v", err)
	}
}
