package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx so query helpers run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Database is the record store for books, members, loans and reservations.
type Database struct {
	db      *sqlx.DB
	dialect dialect
	logger  *slog.Logger
}

// NewDatabase opens (or creates) the configured database, applies schema
// migrations and verifies the connection.
func NewDatabase(ctx context.Context, cfg DatabaseConfig, logger *slog.Logger) (*Database, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.DataSourceName()
	if err != nil {
		return nil, err
	}

	// Ensure directory exists so first-run succeeds.
	if d.driver == sqliteDialect.driver && cfg.DSN == "" {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	db, err := sqlx.Open(d.sqlName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	if d.driver == mysqlDialect.driver {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", d.driver, classify(err))
	}

	database := &Database{db: db, dialect: d, logger: logger}
	if err := database.applyMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

func (d *Database) applyMigrations(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, d.dialect.metaTable); err != nil {
		return fmt.Errorf("create meta: %w", classify(err))
	}

	var current int
	_ = d.db.GetContext(ctx, &current, `SELECT value FROM meta WHERE name='schema_version'`)
	if current >= schemaVersion {
		return nil
	}

	err := d.RunInTx(ctx, nil, func(ctx context.Context, tx DBTX) error {
		for _, stmt := range d.dialect.schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration: %w", err)
			}
		}
		_, err := tx.ExecContext(ctx, d.dialect.upsertMeta, "schema_version", fmt.Sprint(schemaVersion))
		return err
	})
	if err != nil {
		return err
	}
	d.logger.Info("schema migrated", "driver", d.dialect.driver, "from", current, "to", schemaVersion)
	return nil
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// RunInTx runs fn in a transaction: COMMIT when fn returns nil, ROLLBACK
// otherwise. Returned errors are classified.
func (d *Database) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := d.db.BeginTxx(ctx, opts)
	if err != nil {
		return classify(err)
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return classify(err)
	}
	return classify(tx.Commit())
}

// ReadOnly runs fn in a read-only transaction.
func (d *Database) ReadOnly(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	return d.RunInTx(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

const bookColumns = `id, title, author, isbn, publisher, publication_year, category, total_copies, available_copies, created_at`

// AddBook inserts a new title. Every copy starts on the shelf, so
// AvailableCopies is set to TotalCopies regardless of the input.
func (d *Database) AddBook(ctx context.Context, b *Book) (int64, error) {
	if err := validateBook(b); err != nil {
		return 0, err
	}
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO books(title, author, isbn, publisher, publication_year, category, total_copies, available_copies)
         VALUES(?,?,?,?,?,?,?,?)`,
		b.Title, b.Author, normalizeISBN(b.ISBN), b.Publisher, b.PublicationYear, b.Category, b.TotalCopies, b.TotalCopies)
	if err != nil {
		return 0, fmt.Errorf("add book: %w", classify(err))
	}
	return res.LastInsertId()
}

func (d *Database) GetBook(ctx context.Context, id int64) (*Book, error) {
	return getBook(ctx, d.db, id, "")
}

func getBook(ctx context.Context, q DBTX, id int64, lockSuffix string) (*Book, error) {
	var b Book
	err := q.GetContext(ctx, &b, `SELECT `+bookColumns+` FROM books WHERE id=?`+lockSuffix, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get book %d: %w", id, classify(err))
	}
	return &b, nil
}

// ListBooks returns the catalog ordered by title.
func (d *Database) ListBooks(ctx context.Context) ([]*Book, error) {
	books := []*Book{}
	if err := d.db.SelectContext(ctx, &books, `SELECT `+bookColumns+` FROM books ORDER BY title, id`); err != nil {
		return nil, fmt.Errorf("list books: %w", classify(err))
	}
	return books, nil
}

// SearchBooks matches q case-insensitively as a substring of title, author
// or isbn. A blank query matches nothing.
func (d *Database) SearchBooks(ctx context.Context, q string) ([]*Book, error) {
	books := []*Book{}
	q = strings.TrimSpace(q)
	if q == "" {
		return books, nil
	}
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	err := d.db.SelectContext(ctx, &books,
		`SELECT `+bookColumns+` FROM books
         WHERE LOWER(title) LIKE ? ESCAPE '!'
            OR LOWER(author) LIKE ? ESCAPE '!'
            OR LOWER(COALESCE(isbn, '')) LIKE ? ESCAPE '!'
         ORDER BY title, id`,
		pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", classify(err))
	}
	return books, nil
}

// UpdateBook edits a title's metadata and copy count. AvailableCopies is
// recomputed from the active loans; the input value is ignored.
func (d *Database) UpdateBook(ctx context.Context, b *Book) error {
	if err := validateBook(b); err != nil {
		return err
	}
	return d.RunInTx(ctx, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := getBook(ctx, tx, b.ID, d.dialect.lockSuffix); err != nil {
			return err
		}
		active, err := countActiveLoansForBook(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		if b.TotalCopies < active {
			return fmt.Errorf("%w: book %d has %d copies on loan, cannot set total to %d",
				ErrConstraintViolation, b.ID, active, b.TotalCopies)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE books SET title=?, author=?, isbn=?, publisher=?, publication_year=?, category=?,
                 total_copies=?, available_copies=?
             WHERE id=?`,
			b.Title, b.Author, normalizeISBN(b.ISBN), b.Publisher, b.PublicationYear, b.Category,
			b.TotalCopies, b.TotalCopies-active, b.ID)
		if err != nil {
			return fmt.Errorf("update book %d: %w", b.ID, err)
		}
		return nil
	})
}

// DeleteBook removes a title with no copies on loan, together with its
// closed loan history and reservations.
func (d *Database) DeleteBook(ctx context.Context, id int64) error {
	return d.RunInTx(ctx, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := getBook(ctx, tx, id, d.dialect.lockSuffix); err != nil {
			return err
		}
		active, err := countActiveLoansForBook(ctx, tx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("%w: book %d has %d copies on loan", ErrConstraintViolation, id, active)
		}
		for _, stmt := range []string{
			`DELETE FROM reservations WHERE book_id=?`,
			`DELETE FROM loans WHERE book_id=?`,
			`DELETE FROM books WHERE id=?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("delete book %d: %w", id, err)
			}
		}
		return nil
	})
}

func countActiveLoansForBook(ctx context.Context, q DBTX, bookID int64) (int, error) {
	var n int
	if err := q.GetContext(ctx, &n, `SELECT COUNT(*) FROM loans WHERE book_id=? AND status<>?`, bookID, LoanReturned); err != nil {
		return 0, fmt.Errorf("count loans for book %d: %w", bookID, err)
	}
	return n, nil
}

func validateBook(b *Book) error {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	return checkStruct(b)
}

func normalizeISBN(isbn *string) *string {
	if isbn == nil {
		return nil
	}
	s := strings.TrimSpace(*isbn)
	if s == "" {
		return nil
	}
	return &s
}

// escapeLike makes % and _ in user input match literally under ESCAPE '!'.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

const memberColumns = `id, name, email, phone, address, membership_type, registration_date, status`

// AddMember registers a member. Zero MembershipType, Status and
// RegistrationDate default to Basic, Active and today.
func (d *Database) AddMember(ctx context.Context, m *Member) (int64, error) {
	if err := validateMember(m); err != nil {
		return 0, err
	}
	if m.Status == "" {
		m.Status = MemberActive
	}
	if m.RegistrationDate.IsZero() {
		m.RegistrationDate = time.Now()
	}
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO users(name, email, phone, address, membership_type, registration_date, status)
         VALUES(?,?,?,?,?,?,?)`,
		m.Name, m.Email, m.Phone, m.Address, m.MembershipType, Day(m.RegistrationDate), m.Status)
	if err != nil {
		return 0, fmt.Errorf("add member: %w", classify(err))
	}
	return res.LastInsertId()
}

func (d *Database) GetMember(ctx context.Context, id int64) (*Member, error) {
	return getMember(ctx, d.db, id, "")
}

func getMember(ctx context.Context, q DBTX, id int64, lockSuffix string) (*Member, error) {
	var m Member
	err := q.GetContext(ctx, &m, `SELECT `+memberColumns+` FROM users WHERE id=?`+lockSuffix, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get member %d: %w", id, classify(err))
	}
	return &m, nil
}

func (d *Database) GetMemberByEmail(ctx context.Context, email string) (*Member, error) {
	var m Member
	email = strings.ToLower(strings.TrimSpace(email))
	err := d.db.GetContext(ctx, &m, `SELECT `+memberColumns+` FROM users WHERE email=?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %q: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get member %q: %w", email, classify(err))
	}
	return &m, nil
}

// ListMembers returns all members ordered by name.
func (d *Database) ListMembers(ctx context.Context) ([]*Member, error) {
	members := []*Member{}
	if err := d.db.SelectContext(ctx, &members, `SELECT `+memberColumns+` FROM users ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("list members: %w", classify(err))
	}
	return members, nil
}

// UpdateMember edits contact details and membership tier.
func (d *Database) UpdateMember(ctx context.Context, m *Member) error {
	if err := validateMember(m); err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx,
		`UPDATE users SET name=?, email=?, phone=?, address=?, membership_type=? WHERE id=?`,
		m.Name, m.Email, m.Phone, m.Address, m.MembershipType, m.ID)
	if err != nil {
		return fmt.Errorf("update member %d: %w", m.ID, classify(err))
	}
	return expectOneRow(res, fmt.Sprintf("member %d", m.ID))
}

func (d *Database) SetMemberStatus(ctx context.Context, id int64, status MemberStatus) error {
	if _, err := ParseMemberStatus(string(status)); err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx, `UPDATE users SET status=? WHERE id=?`, status, id)
	if err != nil {
		return fmt.Errorf("set member %d status: %w", id, classify(err))
	}
	return expectOneRow(res, fmt.Sprintf("member %d", id))
}

func validateMember(m *Member) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	if m.MembershipType == "" {
		m.MembershipType = MembershipBasic
	}
	return checkStruct(m)
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

const loanSelect = `SELECT l.id, l.ref, l.book_id, l.user_id, l.issue_date, l.due_date, l.return_date,
        l.status, l.fine, b.title AS book_title, u.name AS member_name
    FROM loans l
    JOIN books b ON b.id = l.book_id
    JOIN users u ON u.id = l.user_id`

func (d *Database) GetLoan(ctx context.Context, id int64) (*Loan, error) {
	return getLoan(ctx, d.db, `l.id=?`, id)
}

// GetLoanByRef looks a loan up by its ULID reference.
func (d *Database) GetLoanByRef(ctx context.Context, ref string) (*Loan, error) {
	return getLoan(ctx, d.db, `l.ref=?`, strings.ToUpper(strings.TrimSpace(ref)))
}

func getLoan(ctx context.Context, q DBTX, where string, arg any) (*Loan, error) {
	var l Loan
	err := q.GetContext(ctx, &l, loanSelect+` WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get loan %v: %w", arg, classify(err))
	}
	return &l, nil
}

// ListLoans returns loans newest first.
func (d *Database) ListLoans(ctx context.Context, f LoanFilter) ([]*Loan, error) {
	var (
		where []string
		args  []any
	)
	if f.MemberID > 0 {
		where = append(where, `l.user_id=?`)
		args = append(args, f.MemberID)
	}
	if f.BookID > 0 {
		where = append(where, `l.book_id=?`)
		args = append(args, f.BookID)
	}
	if f.OpenOnly {
		where = append(where, `l.status<>?`)
		args = append(args, LoanReturned)
	}
	query := loanSelect
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY l.issue_date DESC, l.id DESC`

	loans := []*Loan{}
	if err := d.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, fmt.Errorf("list loans: %w", classify(err))
	}
	return loans, nil
}

// ListOverdueLoans returns unreturned loans due before today, oldest due
// date first.
func (d *Database) ListOverdueLoans(ctx context.Context, today time.Time) ([]*Loan, error) {
	loans := []*Loan{}
	err := d.db.SelectContext(ctx, &loans,
		loanSelect+` WHERE l.status<>? AND l.due_date<? ORDER BY l.due_date, l.id`,
		LoanReturned, Day(today))
	if err != nil {
		return nil, fmt.Errorf("list overdue loans: %w", classify(err))
	}
	return loans, nil
}

// CountActiveLoans counts a member's unreturned loans.
func (d *Database) CountActiveLoans(ctx context.Context, memberID int64) (int, error) {
	return countActiveLoansForMember(ctx, d.db, memberID)
}

func countActiveLoansForMember(ctx context.Context, q DBTX, memberID int64) (int, error) {
	var n int
	if err := q.GetContext(ctx, &n, `SELECT COUNT(*) FROM loans WHERE user_id=? AND status<>?`, memberID, LoanReturned); err != nil {
		return 0, fmt.Errorf("count loans for member %d: %w", memberID, classify(err))
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Reservations
// ---------------------------------------------------------------------------

const reservationSelect = `SELECT r.id, r.book_id, r.user_id, r.reservation_date, r.status,
        u.name AS member_name, b.title AS book_title
    FROM reservations r
    JOIN users u ON u.id = r.user_id
    JOIN books b ON b.id = r.book_id`

// ListReservations returns the active queue for a book, oldest first.
func (d *Database) ListReservations(ctx context.Context, bookID int64) ([]*Reservation, error) {
	res := []*Reservation{}
	err := d.db.SelectContext(ctx, &res,
		reservationSelect+` WHERE r.book_id=? AND r.status=? ORDER BY r.reservation_date, r.id`,
		bookID, ReservationActive)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", classify(err))
	}
	return res, nil
}

// ListMemberReservations returns a member's active reservations.
func (d *Database) ListMemberReservations(ctx context.Context, memberID int64) ([]*Reservation, error) {
	res := []*Reservation{}
	err := d.db.SelectContext(ctx, &res,
		reservationSelect+` WHERE r.user_id=? AND r.status=? ORDER BY r.reservation_date, r.id`,
		memberID, ReservationActive)
	if err != nil {
		return nil, fmt.Errorf("list member reservations: %w", classify(err))
	}
	return res, nil
}

func getReservation(ctx context.Context, q DBTX, id int64) (*Reservation, error) {
	var r Reservation
	err := q.GetContext(ctx, &r, reservationSelect+` WHERE r.id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reservation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %d: %w", id, err)
	}
	return &r, nil
}

// ---------------------------------------------------------------------------
// Statistics
// ---------------------------------------------------------------------------

const (
	totalBooksQuery      = `SELECT COUNT(*) FROM books`
	availableCopiesQuery = `SELECT COALESCE(SUM(available_copies), 0) FROM books`
	totalMembersQuery    = `SELECT COUNT(*) FROM users`
	activeLoansQuery     = `SELECT COUNT(*) FROM loans WHERE status='Active'`
)

func (d *Database) TotalBooks(ctx context.Context) (int, error) {
	return d.count(ctx, totalBooksQuery)
}

// AvailableCopies sums the shelf copies of every title.
func (d *Database) AvailableCopies(ctx context.Context) (int, error) {
	return d.count(ctx, availableCopiesQuery)
}

func (d *Database) TotalMembers(ctx context.Context) (int, error) {
	return d.count(ctx, totalMembersQuery)
}

func (d *Database) ActiveLoans(ctx context.Context) (int, error) {
	return d.count(ctx, activeLoansQuery)
}

// Stats reads all counters from one snapshot.
func (d *Database) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := d.ReadOnly(ctx, func(ctx context.Context, tx DBTX) error {
		for _, c := range []struct {
			dst   *int
			query string
		}{
			{&s.TotalBooks, totalBooksQuery},
			{&s.AvailableCopies, availableCopiesQuery},
			{&s.TotalMembers, totalMembersQuery},
			{&s.ActiveLoans, activeLoansQuery},
		} {
			if err := tx.GetContext(ctx, c.dst, c.query); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &s, nil
}

func (d *Database) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := d.db.GetContext(ctx, &n, query); err != nil {
		return 0, fmt.Errorf("count: %w", classify(err))
	}
	return n, nil
}
