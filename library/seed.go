package library

import (
	"context"
	"fmt"
	"time"
)

type seedBook struct {
	title, author, isbn, publisher, category string
	year, total, available                   int
}

type seedMember struct {
	name, email, phone string
	membership         MembershipType
	registered         string
}

var sampleBooks = []seedBook{
	{"The Great Gatsby", "F. Scott Fitzgerald", "9780743273565", "Scribner", "Fiction", 1925, 3, 3},
	{"To Kill a Mockingbird", "Harper Lee", "9780061120084", "Harper Perennial", "Fiction", 1960, 2, 2},
	{"1984", "George Orwell", "9780451524935", "Signet Classic", "Science Fiction", 1949, 4, 4},
	{"Pride and Prejudice", "Jane Austen", "9780141439518", "Penguin Classics", "Fiction", 1813, 2, 2},
	{"The Catcher in the Rye", "J.D. Salinger", "9780316769488", "Little, Brown", "Fiction", 1951, 3, 2},
	{"A Brief History of Time", "Stephen Hawking", "9780553380163", "Bantam", "Science", 1988, 2, 2},
	{"Sapiens", "Yuval Noah Harari", "9780062316097", "Harper", "History", 2015, 3, 3},
}

var sampleMembers = []seedMember{
	{"John Smith", "john.smith@email.com", "555-0101", MembershipPremium, "2024-01-15"},
	{"Emma Johnson", "emma.j@email.com", "555-0102", MembershipBasic, "2024-02-20"},
	{"Michael Brown", "michael.b@email.com", "555-0103", MembershipStudent, "2024-03-10"},
	{"Sarah Davis", "sarah.d@email.com", "555-0104", MembershipBasic, "2024-04-05"},
}

// The one sample loan accounts for the copy of "The Catcher in the Rye"
// that is seeded as already lent out.
var sampleLoan = struct {
	bookIndex, memberIndex int
	ref, issued, due       string
}{4, 0, "01J9A6S0000000000000000000", "2024-10-01", "2024-10-15"}

// Seed inserts the sample catalog, members and loan in one transaction,
// only when the books table is empty. It reports whether it inserted
// anything.
func (d *Database) Seed(ctx context.Context) (bool, error) {
	seeded := false
	err := d.RunInTx(ctx, nil, func(ctx context.Context, tx DBTX) error {
		var n int
		if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM books`); err != nil {
			return fmt.Errorf("count books: %w", err)
		}
		if n > 0 {
			return nil
		}

		bookIDs := make([]int64, len(sampleBooks))
		for i, b := range sampleBooks {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO books(title, author, isbn, publisher, publication_year, category, total_copies, available_copies)
                 VALUES(?,?,?,?,?,?,?,?)`,
				b.title, b.author, b.isbn, b.publisher, b.year, b.category, b.total, b.available)
			if err != nil {
				return fmt.Errorf("seed book %q: %w", b.title, err)
			}
			if bookIDs[i], err = res.LastInsertId(); err != nil {
				return err
			}
		}

		memberIDs := make([]int64, len(sampleMembers))
		for i, m := range sampleMembers {
			registered, err := time.Parse(DateLayout, m.registered)
			if err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO users(name, email, phone, address, membership_type, registration_date, status)
                 VALUES(?,?,?,?,?,?,?)`,
				m.name, m.email, m.phone, "", m.membership, registered, MemberActive)
			if err != nil {
				return fmt.Errorf("seed member %q: %w", m.name, err)
			}
			if memberIDs[i], err = res.LastInsertId(); err != nil {
				return err
			}
		}

		issued, _ := time.Parse(DateLayout, sampleLoan.issued)
		due, _ := time.Parse(DateLayout, sampleLoan.due)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO loans(ref, book_id, user_id, issue_date, due_date, status, fine) VALUES(?,?,?,?,?,?,0)`,
			sampleLoan.ref, bookIDs[sampleLoan.bookIndex], memberIDs[sampleLoan.memberIndex], issued, due, LoanActive)
		if err != nil {
			return fmt.Errorf("seed loan: %w", err)
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if seeded {
		d.logger.Info("sample data inserted", "books", len(sampleBooks), "members", len(sampleMembers), "loans", 1)
	}
	return seeded, nil
}
