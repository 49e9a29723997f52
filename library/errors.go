package library

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when an id or key does not resolve to a row.
	ErrNotFound = errors.New("not found")

	// ErrConstraintViolation covers uniqueness, foreign-key and copy-count
	// violations.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrUnavailable is returned when a book has no copy left to lend.
	ErrUnavailable = errors.New("no copies available")

	// ErrAlreadyReturned is returned when a loan is closed twice.
	ErrAlreadyReturned = errors.New("loan already returned")

	// ErrStorageUnavailable wraps connection and transport failures.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrBusy is returned when the store refused a lock within its wait limit.
	ErrBusy = errors.New("storage busy")

	// ErrTimeout is returned when an operation exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrMemberNotActive is returned when a suspended or inactive member
	// tries to borrow or reserve.
	ErrMemberNotActive = errors.New("member is not active")

	// ErrBorrowLimitReached is returned when a member already holds as many
	// loans as their tier allows.
	ErrBorrowLimitReached = errors.New("borrowing limit reached")

	// ErrInvalidArgument is returned for malformed input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnauthorized is returned when the librarian passphrase is wrong.
	ErrUnauthorized = errors.New("unauthorized")
)

// MySQL server error numbers we classify.
const (
	mysqlDupEntry        = 1062
	mysqlBadNull         = 1048
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
	mysqlCheckViolated   = 3819
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// classify maps driver errors onto the package taxonomy. Errors already in
// the taxonomy pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrNotFound, ErrConstraintViolation, ErrUnavailable, ErrAlreadyReturned,
		ErrStorageUnavailable, ErrBusy, ErrTimeout, ErrMemberNotActive,
		ErrBorrowLimitReached, ErrInvalidArgument, ErrUnauthorized,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone), errors.Is(err, mysql.ErrInvalidConn):
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	case strings.Contains(err.Error(), "sql: database is closed"):
		// database/sql does not export this one.
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrConstraint:
			return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%w: %w", ErrBusy, err)
		case sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrNotADB, sqlite3.ErrCorrupt:
			return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		return err
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlDupEntry, mysqlBadNull, mysqlRowIsReferenced, mysqlNoReferencedRow, mysqlCheckViolated:
			return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
		case mysqlLockWaitTimeout, mysqlDeadlock:
			return fmt.Errorf("%w: %w", ErrBusy, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return err
}
