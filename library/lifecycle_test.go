package library

import (
	"testing"
	"time"
)

func TestLoanLifecycle(t *testing.T) {
	returned := day(2024, 10, 18)
	tests := []struct {
		name         string
		loan         Loan
		today        time.Time
		overdue      bool
		daysOverdue  int
		fine         Cents
		duration     int
		displayState LoanStatus
	}{
		{
			name:         "before due date",
			loan:         Loan{IssueDate: day(2024, 10, 1), DueDate: day(2024, 10, 15), Status: LoanActive},
			today:        day(2024, 10, 10),
			duration:     9,
			displayState: LoanActive,
		},
		{
			name:         "on due date",
			loan:         Loan{IssueDate: day(2024, 10, 1), DueDate: day(2024, 10, 15), Status: LoanActive},
			today:        day(2024, 10, 15),
			duration:     14,
			displayState: LoanActive,
		},
		{
			name:         "three days late",
			loan:         Loan{IssueDate: day(2024, 10, 1), DueDate: day(2024, 10, 15), Status: LoanActive},
			today:        time.Date(2024, 10, 18, 23, 59, 0, 0, time.UTC),
			overdue:      true,
			daysOverdue:  3,
			fine:         150,
			duration:     17,
			displayState: LoanOverdue,
		},
		{
			name:         "stored overdue status",
			loan:         Loan{IssueDate: day(2024, 10, 1), DueDate: day(2024, 10, 15), Status: LoanOverdue},
			today:        day(2024, 10, 16),
			overdue:      true,
			daysOverdue:  1,
			fine:         50,
			duration:     15,
			displayState: LoanOverdue,
		},
		{
			name: "returned late is never overdue",
			loan: Loan{IssueDate: day(2024, 10, 1), DueDate: day(2024, 10, 15), Status: LoanReturned,
				ReturnDate: &returned},
			today:        day(2024, 11, 30),
			duration:     17,
			displayState: LoanReturned,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tt.loan
			if got := IsOverdue(&l, tt.today); got != tt.overdue {
				t.Fatalf("IsOverdue = %v, want %v", got, tt.overdue)
			}
			if got := DaysOverdue(&l, tt.today); got != tt.daysOverdue {
				t.Fatalf("DaysOverdue = %d, want %d", got, tt.daysOverdue)
			}
			if got := Fine(&l, 50, tt.today); got != tt.fine {
				t.Fatalf("Fine = %s, want %s", got, tt.fine)
			}
			if got := LoanDuration(&l, tt.today); got != tt.duration {
				t.Fatalf("LoanDuration = %d, want %d", got, tt.duration)
			}
			if got := DisplayStatus(&l, tt.today); got != tt.displayState {
				t.Fatalf("DisplayStatus = %s, want %s", got, tt.displayState)
			}
		})
	}
}

func TestDayIgnoresClockTime(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	got := Day(time.Date(2024, 3, 10, 23, 30, 0, 0, loc))
	if !got.Equal(day(2024, 3, 10)) {
		t.Fatalf("Day kept the local calendar date wrong: %s", got)
	}
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2024-02-29")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !d.Equal(day(2024, 2, 29)) {
		t.Fatalf("got %s", d)
	}
	for _, bad := range []string{"", "2024-13-01", "10/01/2024"} {
		if _, err := ParseDay(bad); err == nil {
			t.Fatalf("ParseDay(%q) should fail", bad)
		}
	}
}

func TestMemberAndBookHelpers(t *testing.T) {
	m := &Member{MembershipType: MembershipStudent, Status: MemberActive, RegistrationDate: day(2024, 1, 15)}
	if !m.IsActive() {
		t.Fatal("active member reported inactive")
	}
	if got := m.MembershipDays(day(2024, 2, 14)); got != 30 {
		t.Fatalf("MembershipDays = %d, want 30", got)
	}
	limits := map[MembershipType]int{MembershipBasic: 3, MembershipPremium: 10, MembershipStudent: 5}
	for tier, want := range limits {
		if got := tier.BorrowLimit(); got != want {
			t.Fatalf("%s limit = %d, want %d", tier, got, want)
		}
	}

	b := &Book{TotalCopies: 3, AvailableCopies: 0}
	if b.IsAvailable() || b.BorrowedCopies() != 3 {
		t.Fatalf("book helpers wrong: available=%v borrowed=%d", b.IsAvailable(), b.BorrowedCopies())
	}
}

func TestCentsString(t *testing.T) {
	for c, want := range map[Cents]string{0: "0.00", 5: "0.05", 250: "2.50", 123456: "1234.56", -75: "-0.75"} {
		if got := c.String(); got != want {
			t.Fatalf("Cents(%d) = %q, want %q", int64(c), got, want)
		}
	}
}

func TestEnumScanRejectsUnknown(t *testing.T) {
	var st LoanStatus
	if err := st.Scan([]byte("Returned")); err != nil || st != LoanReturned {
		t.Fatalf("scan Returned: %v %q", err, st)
	}
	if err := st.Scan("Lost"); err == nil {
		t.Fatal("unknown loan status accepted")
	}
	var mt MembershipType
	if err := mt.Scan(42); err == nil {
		t.Fatal("non-text membership type accepted")
	}
	if _, err := ParseReservationStatus("Fulfilled"); err != nil {
		t.Fatalf("parse reservation status: %v", err)
	}
}
