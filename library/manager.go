package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// LibraryManager is a thin façade over the Database and Ledger, keeping CLI
// code simple.
type LibraryManager struct {
	db     *Database
	ledger *Ledger
	cfg    Config
	clock  Clock
	logger *slog.Logger
}

// NewLibraryManager opens the configured database and, when cfg.Seed is
// set, loads the sample catalog into an empty store.
func NewLibraryManager(ctx context.Context, cfg *Config, logger *slog.Logger) (*LibraryManager, error) {
	db, err := NewDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Seed {
		if _, err := db.Seed(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	return &LibraryManager{
		db:     db,
		ledger: NewLedger(db, cfg.Loans, logger),
		cfg:    *cfg,
		clock:  realClock{},
		logger: logger,
	}, nil
}

// SetClock replaces the wall clock; tests use it to pin "today".
func (lm *LibraryManager) SetClock(c Clock) {
	lm.clock = c
	lm.ledger.clock = c
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

func (lm *LibraryManager) Today() time.Time { return Day(lm.clock.Now()) }

// ------------------ Book helpers ------------------

func (lm *LibraryManager) AddBook(ctx context.Context, b *Book) (int64, error) {
	return lm.db.AddBook(ctx, b)
}

func (lm *LibraryManager) GetBook(ctx context.Context, id int64) (*Book, error) {
	return lm.db.GetBook(ctx, id)
}

func (lm *LibraryManager) ListBooks(ctx context.Context) ([]*Book, error) {
	return lm.db.ListBooks(ctx)
}

func (lm *LibraryManager) SearchBooks(ctx context.Context, q string) ([]*Book, error) {
	return lm.db.SearchBooks(ctx, q)
}

func (lm *LibraryManager) UpdateBook(ctx context.Context, b *Book) error {
	return lm.db.UpdateBook(ctx, b)
}

func (lm *LibraryManager) DeleteBook(ctx context.Context, id int64) error {
	return lm.db.DeleteBook(ctx, id)
}

// ------------------ Member helpers ------------------

func (lm *LibraryManager) AddMember(ctx context.Context, m *Member) (int64, error) {
	if m.RegistrationDate.IsZero() {
		m.RegistrationDate = lm.Today()
	}
	return lm.db.AddMember(ctx, m)
}

func (lm *LibraryManager) GetMember(ctx context.Context, id int64) (*Member, error) {
	return lm.db.GetMember(ctx, id)
}

// FindMember resolves a numeric id or an email address.
func (lm *LibraryManager) FindMember(ctx context.Context, key string) (*Member, error) {
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		return lm.db.GetMember(ctx, id)
	}
	return lm.db.GetMemberByEmail(ctx, key)
}

func (lm *LibraryManager) ListMembers(ctx context.Context) ([]*Member, error) {
	return lm.db.ListMembers(ctx)
}

func (lm *LibraryManager) UpdateMember(ctx context.Context, m *Member) error {
	return lm.db.UpdateMember(ctx, m)
}

func (lm *LibraryManager) SetMemberStatus(ctx context.Context, id int64, status MemberStatus) error {
	if err := lm.db.SetMemberStatus(ctx, id, status); err != nil {
		return err
	}
	lm.logger.Info("member status changed", "member_id", id, "status", status)
	return nil
}

// ------------------ Circulation ------------------

// IssueLoan lends bookID to memberID for the configured loan period.
func (lm *LibraryManager) IssueLoan(ctx context.Context, bookID, memberID int64) (*Loan, error) {
	return lm.ledger.IssueLoan(ctx, IssueRequest{BookID: bookID, MemberID: memberID})
}

// IssueLoanWith lends with explicit dates.
func (lm *LibraryManager) IssueLoanWith(ctx context.Context, req IssueRequest) (*Loan, error) {
	return lm.ledger.IssueLoan(ctx, req)
}

func (lm *LibraryManager) ReturnLoan(ctx context.Context, loanID int64) (*Loan, error) {
	return lm.ledger.ReturnLoan(ctx, loanID)
}

func (lm *LibraryManager) GetLoan(ctx context.Context, id int64) (*Loan, error) {
	return lm.db.GetLoan(ctx, id)
}

// GetLoanByKey accepts either a numeric loan id or a loan ref.
func (lm *LibraryManager) GetLoanByKey(ctx context.Context, key string) (*Loan, error) {
	key = strings.TrimSpace(key)
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		return lm.db.GetLoan(ctx, id)
	}
	return lm.db.GetLoanByRef(ctx, key)
}

func (lm *LibraryManager) ListLoans(ctx context.Context, f LoanFilter) ([]*Loan, error) {
	return lm.db.ListLoans(ctx, f)
}

func (lm *LibraryManager) ListOverdueLoans(ctx context.Context) ([]*Loan, error) {
	return lm.db.ListOverdueLoans(ctx, lm.Today())
}

func (lm *LibraryManager) CountActiveLoans(ctx context.Context, memberID int64) (int, error) {
	return lm.db.CountActiveLoans(ctx, memberID)
}

// AssessFine is the fine owed on a loan today. Returned loans report the
// amount frozen at return.
func (lm *LibraryManager) AssessFine(l *Loan) Cents {
	if l.Status == LoanReturned {
		return l.Fine
	}
	return Fine(l, lm.cfg.Loans.FinePerDay, lm.Today())
}

// LoanSummary is the derived view of a loan as of today.
type LoanSummary struct {
	Status      LoanStatus `json:"status"`
	DaysOverdue int        `json:"days_overdue"`
	Duration    int        `json:"duration_days"`
	Fine        Cents      `json:"fine"`
}

func (lm *LibraryManager) Summarize(l *Loan) LoanSummary {
	today := lm.Today()
	return LoanSummary{
		Status:      DisplayStatus(l, today),
		DaysOverdue: DaysOverdue(l, today),
		Duration:    LoanDuration(l, today),
		Fine:        lm.AssessFine(l),
	}
}

// ------------------ Reservation helpers ------------------

func (lm *LibraryManager) ReserveBook(ctx context.Context, bookID, memberID int64) (*Reservation, error) {
	return lm.ledger.PlaceReservation(ctx, bookID, memberID)
}

func (lm *LibraryManager) CancelReservation(ctx context.Context, id int64) error {
	return lm.ledger.CancelReservation(ctx, id)
}

func (lm *LibraryManager) GetReservations(ctx context.Context, bookID int64) ([]*Reservation, error) {
	return lm.db.ListReservations(ctx, bookID)
}

func (lm *LibraryManager) GetMemberReservations(ctx context.Context, memberID int64) ([]*Reservation, error) {
	return lm.db.ListMemberReservations(ctx, memberID)
}

// ------------------ Statistics ------------------

func (lm *LibraryManager) TotalBooks(ctx context.Context) (int, error) { return lm.db.TotalBooks(ctx) }

func (lm *LibraryManager) AvailableCopies(ctx context.Context) (int, error) {
	return lm.db.AvailableCopies(ctx)
}

func (lm *LibraryManager) TotalMembers(ctx context.Context) (int, error) {
	return lm.db.TotalMembers(ctx)
}

func (lm *LibraryManager) ActiveLoans(ctx context.Context) (int, error) { return lm.db.ActiveLoans(ctx) }

func (lm *LibraryManager) Stats(ctx context.Context) (*Stats, error) { return lm.db.Stats(ctx) }

// ------------------ Access ------------------

// RequiresPassphrase reports whether mutating commands are protected.
func (lm *LibraryManager) RequiresPassphrase() bool { return lm.cfg.Admin.PasswordHash != "" }

// Authenticate checks the librarian passphrase against the configured
// bcrypt hash. With no hash configured every caller is accepted.
func (lm *LibraryManager) Authenticate(passphrase string) error {
	if !lm.RequiresPassphrase() {
		return nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(lm.cfg.Admin.PasswordHash), []byte(passphrase))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		lm.logger.Warn("librarian authentication failed")
		return ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return nil
}

// HashPassphrase produces a value for admin.password_hash.
func HashPassphrase(passphrase string) (string, error) {
	if len(passphrase) < 8 {
		return "", fmt.Errorf("%w: passphrase must be at least 8 characters", ErrInvalidArgument)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
