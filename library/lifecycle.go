package library

import (
	"fmt"
	"time"
)

// DateLayout is the civil date format used for input and display.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date. All loan dates are
// compared as Days.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q, expected YYYY-MM-DD", ErrInvalidArgument, s)
	}
	return t, nil
}

func daysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// IsOverdue reports whether an unreturned loan is past its due date.
// A returned loan is never overdue.
func IsOverdue(l *Loan, today time.Time) bool {
	if l.Status == LoanReturned {
		return false
	}
	return Day(today).After(Day(l.DueDate))
}

func DaysOverdue(l *Loan, today time.Time) int {
	if !IsOverdue(l, today) {
		return 0
	}
	return daysBetween(l.DueDate, today)
}

// Fine is the penalty accrued so far. It is always derived; see
// Ledger.ReturnLoan for the amount frozen at return time.
func Fine(l *Loan, perDay Cents, today time.Time) Cents {
	return Cents(DaysOverdue(l, today)) * perDay
}

// LoanDuration counts days from issue to return, or to today while open.
func LoanDuration(l *Loan, today time.Time) int {
	end := today
	if l.ReturnDate != nil {
		end = *l.ReturnDate
	}
	return daysBetween(l.IssueDate, end)
}

// DisplayStatus is the stored status with Overdue derived on read.
func DisplayStatus(l *Loan, today time.Time) LoanStatus {
	if IsOverdue(l, today) {
		return LoanOverdue
	}
	return l.Status
}
