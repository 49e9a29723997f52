package library

import "fmt"

type MembershipType string

const (
	MembershipBasic   MembershipType = "Basic"
	MembershipPremium MembershipType = "Premium"
	MembershipStudent MembershipType = "Student"
)

// BorrowLimit is the number of simultaneous active loans the tier allows.
func (t MembershipType) BorrowLimit() int {
	switch t {
	case MembershipPremium:
		return 10
	case MembershipStudent:
		return 5
	default:
		return 3
	}
}

func ParseMembershipType(s string) (MembershipType, error) {
	switch t := MembershipType(s); t {
	case MembershipBasic, MembershipPremium, MembershipStudent:
		return t, nil
	}
	return "", fmt.Errorf("%w: membership type %q", ErrInvalidArgument, s)
}

func (t *MembershipType) Scan(src any) error {
	s, err := scanText(src)
	if err != nil {
		return err
	}
	v, err := ParseMembershipType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type MemberStatus string

const (
	MemberActive    MemberStatus = "Active"
	MemberSuspended MemberStatus = "Suspended"
	MemberInactive  MemberStatus = "Inactive"
)

func ParseMemberStatus(s string) (MemberStatus, error) {
	switch st := MemberStatus(s); st {
	case MemberActive, MemberSuspended, MemberInactive:
		return st, nil
	}
	return "", fmt.Errorf("%w: member status %q", ErrInvalidArgument, s)
}

func (st *MemberStatus) Scan(src any) error {
	s, err := scanText(src)
	if err != nil {
		return err
	}
	v, err := ParseMemberStatus(s)
	if err != nil {
		return err
	}
	*st = v
	return nil
}

// LoanStatus as stored. Overdue is accepted when reading rows written by
// other tools, but this package only ever writes Active and Returned.
type LoanStatus string

const (
	LoanActive   LoanStatus = "Active"
	LoanReturned LoanStatus = "Returned"
	LoanOverdue  LoanStatus = "Overdue"
)

func ParseLoanStatus(s string) (LoanStatus, error) {
	switch st := LoanStatus(s); st {
	case LoanActive, LoanReturned, LoanOverdue:
		return st, nil
	}
	return "", fmt.Errorf("%w: loan status %q", ErrInvalidArgument, s)
}

func (st *LoanStatus) Scan(src any) error {
	s, err := scanText(src)
	if err != nil {
		return err
	}
	v, err := ParseLoanStatus(s)
	if err != nil {
		return err
	}
	*st = v
	return nil
}

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "Active"
	ReservationFulfilled ReservationStatus = "Fulfilled"
	ReservationCancelled ReservationStatus = "Cancelled"
)

func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch st := ReservationStatus(s); st {
	case ReservationActive, ReservationFulfilled, ReservationCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: reservation status %q", ErrInvalidArgument, s)
}

func (st *ReservationStatus) Scan(src any) error {
	s, err := scanText(src)
	if err != nil {
		return err
	}
	v, err := ParseReservationStatus(s)
	if err != nil {
		return err
	}
	*st = v
	return nil
}

func scanText(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("unsupported column type %T", src)
}
