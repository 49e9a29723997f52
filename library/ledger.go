package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// IDGen issues external loan references.
type IDGen interface {
	New(t time.Time) (string, error)
}

type ulidGen struct{}

func (ulidGen) New(t time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(t), ulid.DefaultEntropy())
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Ledger is the only writer of loan rows and of books.available_copies.
// Each operation is a single transaction: on any failure nothing changes.
type Ledger struct {
	db     *Database
	policy LoanConfig
	clock  Clock
	ids    IDGen
	logger *slog.Logger
}

func NewLedger(db *Database, policy LoanConfig, logger *slog.Logger) *Ledger {
	return &Ledger{db: db, policy: policy, clock: realClock{}, ids: ulidGen{}, logger: logger}
}

// IssueRequest describes a new loan. A zero IssueDate means today and a
// zero DueDate means IssueDate plus the configured loan period.
type IssueRequest struct {
	BookID    int64
	MemberID  int64
	IssueDate time.Time
	DueDate   time.Time
}

// IssueLoan lends one copy of a book. Issue dates may be backdated but not
// set in the future. It fails with ErrUnavailable when no
// copy is on the shelf, ErrMemberNotActive for suspended or inactive
// members and, when the limit is enforced, ErrBorrowLimitReached.
func (l *Ledger) IssueLoan(ctx context.Context, req IssueRequest) (*Loan, error) {
	issue := req.IssueDate
	if issue.IsZero() {
		issue = l.clock.Now()
	}
	issue = Day(issue)
	if today := Day(l.clock.Now()); issue.After(today) {
		return nil, fmt.Errorf("issue loan: %w: issue date %s is after today %s",
			ErrInvalidArgument, issue.Format(DateLayout), today.Format(DateLayout))
	}
	due := req.DueDate
	if due.IsZero() {
		due = issue.AddDate(0, 0, l.policy.PeriodDays)
	}
	due = Day(due)
	if due.Before(issue) {
		return nil, fmt.Errorf("issue loan: %w: due date %s is before issue date %s",
			ErrInvalidArgument, due.Format(DateLayout), issue.Format(DateLayout))
	}
	ref, err := l.ids.New(l.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("issue loan: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.policy.TxTimeout)
	defer cancel()

	var (
		loan      *Loan
		available int
	)
	err = l.db.RunInTx(ctx, nil, func(ctx context.Context, tx DBTX) error {
		book, err := getBook(ctx, tx, req.BookID, l.db.dialect.lockSuffix)
		if err != nil {
			return err
		}
		if !book.IsAvailable() {
			return fmt.Errorf("%w: %q", ErrUnavailable, book.Title)
		}
		// Locked so the member's loan count holds until commit.
		member, err := getMember(ctx, tx, req.MemberID, l.db.dialect.lockSuffix)
		if err != nil {
			return err
		}
		if !member.IsActive() {
			return fmt.Errorf("%w: %s is %s", ErrMemberNotActive, member.Name, member.Status)
		}
		if l.policy.EnforceBorrowLimit {
			open, err := countActiveLoansForMember(ctx, tx, member.ID)
			if err != nil {
				return err
			}
			if limit := member.MembershipType.BorrowLimit(); open >= limit {
				return fmt.Errorf("%w: %s has %d of %d loans", ErrBorrowLimitReached, member.Name, open, limit)
			}
		}

		// The WHERE clause makes the decrement safe even if another writer
		// got in between the read above and this statement.
		res, err := tx.ExecContext(ctx,
			`UPDATE books SET available_copies = available_copies - 1 WHERE id=? AND available_copies > 0`, book.ID)
		if err != nil {
			return fmt.Errorf("decrement copies: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return fmt.Errorf("%w: %q", ErrUnavailable, book.Title)
		}

		res, err = tx.ExecContext(ctx,
			`INSERT INTO loans(ref, book_id, user_id, issue_date, due_date, status, fine) VALUES(?,?,?,?,?,?,0)`,
			ref, book.ID, member.ID, issue, due, LoanActive)
		if err != nil {
			return fmt.Errorf("insert loan: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE reservations SET status=? WHERE book_id=? AND user_id=? AND status=?`,
			ReservationFulfilled, book.ID, member.ID, ReservationActive); err != nil {
			return fmt.Errorf("fulfil reservation: %w", err)
		}

		loan = &Loan{
			ID:         id,
			Ref:        ref,
			BookID:     book.ID,
			MemberID:   member.ID,
			IssueDate:  issue,
			DueDate:    due,
			Status:     LoanActive,
			BookTitle:  book.Title,
			MemberName: member.Name,
		}
		available = book.AvailableCopies - 1
		return nil
	})
	if err != nil {
		err = timeoutAware(ctx, err)
		l.logger.Warn("issue loan failed", "book_id", req.BookID, "member_id", req.MemberID, "error", err)
		return nil, fmt.Errorf("issue loan: %w", err)
	}
	l.logger.Info("loan issued", "loan_id", loan.ID, "ref", loan.Ref, "book_id", loan.BookID,
		"member_id", loan.MemberID, "due", loan.DueDate.Format(DateLayout), "available", available)
	return loan, nil
}

// ReturnLoan closes a loan dated today, freezes the overdue fine on the
// loan row and puts the copy back on the shelf. A second return of the same
// loan fails with ErrAlreadyReturned and changes nothing.
func (l *Ledger) ReturnLoan(ctx context.Context, loanID int64) (*Loan, error) {
	today := Day(l.clock.Now())

	ctx, cancel := context.WithTimeout(ctx, l.policy.TxTimeout)
	defer cancel()

	var loan *Loan
	err := l.db.RunInTx(ctx, nil, func(ctx context.Context, tx DBTX) error {
		var err error
		loan, err = getLoan(ctx, tx, `l.id=?`+l.db.dialect.lockSuffix, loanID)
		if err != nil {
			return err
		}
		if loan.Status == LoanReturned {
			return fmt.Errorf("%w: loan %d", ErrAlreadyReturned, loanID)
		}
		fine := Fine(loan, l.policy.FinePerDay, today)

		res, err := tx.ExecContext(ctx,
			`UPDATE loans SET status=?, return_date=?, fine=? WHERE id=? AND status<>?`,
			LoanReturned, today, fine, loanID, LoanReturned)
		if err != nil {
			return fmt.Errorf("close loan: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return fmt.Errorf("%w: loan %d", ErrAlreadyReturned, loanID)
		}

		res, err = tx.ExecContext(ctx,
			`UPDATE books SET available_copies = available_copies + 1 WHERE id=? AND available_copies < total_copies`,
			loan.BookID)
		if err != nil {
			return fmt.Errorf("increment copies: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return fmt.Errorf("%w: book %d already has every copy on the shelf", ErrConstraintViolation, loan.BookID)
		}

		loan.Status = LoanReturned
		loan.ReturnDate = &today
		loan.Fine = fine
		return nil
	})
	if err != nil {
		err = timeoutAware(ctx, err)
		l.logger.Warn("return loan failed", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf("return loan: %w", err)
	}
	l.logger.Info("loan returned", "loan_id", loan.ID, "book_id", loan.BookID,
		"member_id", loan.MemberID, "fine", loan.Fine.String())
	return loan, nil
}

// PlaceReservation queues a member for a title. A member may hold one
// active reservation per book and may not reserve a book they have on loan.
func (l *Ledger) PlaceReservation(ctx context.Context, bookID, memberID int64) (*Reservation, error) {
	today := Day(l.clock.Now())

	ctx, cancel := context.WithTimeout(ctx, l.policy.TxTimeout)
	defer cancel()

	var r *Reservation
	err := l.db.RunInTx(ctx, nil, func(ctx context.Context, tx DBTX) error {
		book, err := getBook(ctx, tx, bookID, "")
		if err != nil {
			return err
		}
		member, err := getMember(ctx, tx, memberID, "")
		if err != nil {
			return err
		}
		if !member.IsActive() {
			return fmt.Errorf("%w: %s is %s", ErrMemberNotActive, member.Name, member.Status)
		}

		var n int
		if err := tx.GetContext(ctx, &n,
			`SELECT COUNT(*) FROM reservations WHERE book_id=? AND user_id=? AND status=?`,
			bookID, memberID, ReservationActive); err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s already has a reservation for %q", ErrConstraintViolation, member.Name, book.Title)
		}
		if err := tx.GetContext(ctx, &n,
			`SELECT COUNT(*) FROM loans WHERE book_id=? AND user_id=? AND status<>?`,
			bookID, memberID, LoanReturned); err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s already has %q on loan", ErrConstraintViolation, member.Name, book.Title)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO reservations(book_id, user_id, reservation_date, status) VALUES(?,?,?,?)`,
			bookID, memberID, today, ReservationActive)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		r = &Reservation{
			ID:              id,
			BookID:          bookID,
			MemberID:        memberID,
			ReservationDate: today,
			Status:          ReservationActive,
			MemberName:      member.Name,
			BookTitle:       book.Title,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("place reservation: %w", timeoutAware(ctx, err))
	}
	l.logger.Info("reservation placed", "reservation_id", r.ID, "book_id", bookID, "member_id", memberID)
	return r, nil
}

// CancelReservation withdraws an active reservation.
func (l *Ledger) CancelReservation(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, l.policy.TxTimeout)
	defer cancel()

	err := l.db.RunInTx(ctx, nil, func(ctx context.Context, tx DBTX) error {
		r, err := getReservation(ctx, tx, id)
		if err != nil {
			return err
		}
		if r.Status != ReservationActive {
			return fmt.Errorf("%w: reservation %d is %s", ErrInvalidArgument, id, r.Status)
		}
		_, err = tx.ExecContext(ctx, `UPDATE reservations SET status=? WHERE id=?`, ReservationCancelled, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("cancel reservation: %w", timeoutAware(ctx, err))
	}
	l.logger.Info("reservation cancelled", "reservation_id", id)
	return nil
}

// timeoutAware reports driver interrupts caused by our own deadline as
// ErrTimeout.
func timeoutAware(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
