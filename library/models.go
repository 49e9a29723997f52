package library

import (
	"fmt"
	"time"
)

// Book is a catalog title together with its copy counts.
// AvailableCopies always equals TotalCopies minus the number of Active loans.
type Book struct {
	ID              int64     `db:"id" json:"id"`
	Title           string    `db:"title" json:"title" validate:"required,max=255"`
	Author          string    `db:"author" json:"author" validate:"required,max=255"`
	ISBN            *string   `db:"isbn" json:"isbn,omitempty"`
	Publisher       string    `db:"publisher" json:"publisher"`
	PublicationYear int       `db:"publication_year" json:"publication_year" validate:"gte=0"`
	Category        string    `db:"category" json:"category"`
	TotalCopies     int       `db:"total_copies" json:"total_copies" validate:"gte=0"`
	AvailableCopies int       `db:"available_copies" json:"available_copies"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// IsAvailable reports whether at least one copy can be lent.
func (b *Book) IsAvailable() bool { return b.AvailableCopies > 0 }

// BorrowedCopies is the number of copies currently out on loan.
func (b *Book) BorrowedCopies() int { return b.TotalCopies - b.AvailableCopies }

func (b *Book) String() string {
	return fmt.Sprintf("%s by %s (%d) - %d/%d available",
		b.Title, b.Author, b.PublicationYear, b.AvailableCopies, b.TotalCopies)
}

// Member is a registered borrower. The table is named users.
type Member struct {
	ID               int64          `db:"id" json:"id"`
	Name             string         `db:"name" json:"name" validate:"required,max=255"`
	Email            string         `db:"email" json:"email" validate:"required,email"`
	Phone            string         `db:"phone" json:"phone"`
	Address          string         `db:"address" json:"address"`
	MembershipType   MembershipType `db:"membership_type" json:"membership_type" validate:"oneof=Basic Premium Student"`
	RegistrationDate time.Time      `db:"registration_date" json:"registration_date"`
	Status           MemberStatus   `db:"status" json:"status" validate:"omitempty,oneof=Active Suspended Inactive"`
}

func (m *Member) IsActive() bool { return m.Status == MemberActive }

// MembershipDays counts whole days since registration.
func (m *Member) MembershipDays(today time.Time) int {
	return daysBetween(m.RegistrationDate, today)
}

func (m *Member) String() string {
	return fmt.Sprintf("%s (%s) - %s", m.Name, m.Email, m.MembershipType)
}

// Loan is one copy of a book lent to a member.
// BookTitle and MemberName are filled by list queries only.
type Loan struct {
	ID         int64      `db:"id" json:"id"`
	Ref        string     `db:"ref" json:"ref"`
	BookID     int64      `db:"book_id" json:"book_id"`
	MemberID   int64      `db:"user_id" json:"member_id"`
	IssueDate  time.Time  `db:"issue_date" json:"issue_date"`
	DueDate    time.Time  `db:"due_date" json:"due_date"`
	ReturnDate *time.Time `db:"return_date" json:"return_date,omitempty"`
	Status     LoanStatus `db:"status" json:"status"`
	Fine       Cents      `db:"fine" json:"fine"`
	BookTitle  string     `db:"book_title" json:"book_title,omitempty"`
	MemberName string     `db:"member_name" json:"member_name,omitempty"`
}

func (l *Loan) String() string {
	return fmt.Sprintf("Loan #%d: %s -> %s (Due: %s, Status: %s)",
		l.ID, l.BookTitle, l.MemberName, l.DueDate.Format(DateLayout), l.Status)
}

// Reservation is a member's place in the queue for a title.
type Reservation struct {
	ID              int64             `db:"id" json:"id"`
	BookID          int64             `db:"book_id" json:"book_id"`
	MemberID        int64             `db:"user_id" json:"member_id"`
	ReservationDate time.Time         `db:"reservation_date" json:"reservation_date"`
	Status          ReservationStatus `db:"status" json:"status"`
	MemberName      string            `db:"member_name" json:"member_name,omitempty"`
	BookTitle       string            `db:"book_title" json:"book_title,omitempty"`
}

// Stats are the dashboard counters.
type Stats struct {
	TotalBooks      int `db:"total_books" json:"total_books"`
	AvailableCopies int `db:"available_copies" json:"available_copies"`
	TotalMembers    int `db:"total_members" json:"total_members"`
	ActiveLoans     int `db:"active_loans" json:"active_loans"`
}

// LoanFilter narrows ListLoans. Zero values mean "any".
type LoanFilter struct {
	MemberID int64
	BookID   int64
	OpenOnly bool
}

// Cents is a monetary amount in hundredths.
type Cents int64

func (c Cents) String() string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
