package main

import (
	"fmt"
	"strconv"
	"strings"

	"bookflow/library"

	"github.com/spf13/cobra"
)

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s ID %q", library.ErrInvalidArgument, what, s)
	}
	return id, nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// ------------------ init / stats / hash ------------------

func (a *app) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the schema and, unless seed is off, load sample data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the library already migrated the schema and, with
			// seed enabled, loaded the sample data.
			s, err := a.mgr.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Database ready (%s): %d books, %d members, %d active loans.\n",
				a.cfg.Database.Driver, s.TotalBooks, s.TotalMembers, s.ActiveLoans)
			return nil
		},
	}
}

func (a *app) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show library counters",
		Args:  cobra.NoArgs,
		RunE:  a.handleStats,
	}
}

func (a *app) handleStats(cmd *cobra.Command, args []string) error {
	s, err := a.mgr.Stats(cmd.Context())
	if err != nil {
		return err
	}
	return a.emit(s, func() {
		fmt.Printf("%-20s %d\n", "Total books:", s.TotalBooks)
		fmt.Printf("%-20s %d\n", "Available copies:", s.AvailableCopies)
		fmt.Printf("%-20s %d\n", "Total members:", s.TotalMembers)
		fmt.Printf("%-20s %d\n", "Active loans:", s.ActiveLoans)
	})
}

func (a *app) hashCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "hash",
		Short:       "Print a bcrypt hash of a librarian passphrase for admin.password_hash",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotNoDB: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := readPassword("New passphrase: ")
			if err != nil {
				return err
			}
			if stdinIsTerminal() {
				again, err := readPassword("Repeat passphrase: ")
				if err != nil {
					return err
				}
				if again != pass {
					return fmt.Errorf("%w: passphrases do not match", library.ErrInvalidArgument)
				}
			}
			h, err := library.HashPassphrase(pass)
			if err != nil {
				return err
			}
			fmt.Println(h)
			return nil
		},
	}
}

// ------------------ books ------------------

func (a *app) booksCommand() *cobra.Command {
	books := &cobra.Command{Use: "books", Short: "Manage the catalog"}

	books.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every title",
		Args:  cobra.NoArgs,
		RunE:  a.handleListBooks,
	})
	books.AddCommand(&cobra.Command{
		Use:   "search <text>",
		Short: "Find titles by title, author or ISBN",
		Args:  cobra.MinimumNArgs(1),
		RunE:  a.handleSearchBooks,
	})
	books.AddCommand(&cobra.Command{
		Use:   "show <book-id>",
		Short: "Show a title with its loans and reservation queue",
		Args:  cobra.ExactArgs(1),
		RunE:  a.handleShowBook,
	})

	add := mutating(&cobra.Command{
		Use:   "add",
		Short: "Add a title",
		Args:  cobra.NoArgs,
		RunE:  a.handleAddBook,
	})
	bookFlags(add)
	_ = add.MarkFlagRequired("title")
	_ = add.MarkFlagRequired("author")
	books.AddCommand(add)

	update := mutating(&cobra.Command{
		Use:   "update <book-id>",
		Short: "Edit a title; only the flags given are changed",
		Args:  cobra.ExactArgs(1),
		RunE:  a.handleUpdateBook,
	})
	bookFlags(update)
	books.AddCommand(update)

	books.AddCommand(mutating(&cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete a title with no copies on loan",
		Args:  cobra.ExactArgs(1),
		RunE:  a.handleDeleteBook,
	}))
	return books
}

func bookFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("title", "", "title")
	f.String("author", "", "author")
	f.String("isbn", "", "ISBN (optional, unique)")
	f.String("publisher", "", "publisher")
	f.Int("year", 0, "publication year")
	f.String("category", "", "category")
	f.Int("copies", 1, "total copies")
}

// applyBookFlags copies the flags the user set onto b.
func applyBookFlags(cmd *cobra.Command, b *library.Book) {
	f := cmd.Flags()
	if f.Changed("title") {
		b.Title, _ = f.GetString("title")
	}
	if f.Changed("author") {
		b.Author, _ = f.GetString("author")
	}
	if f.Changed("isbn") {
		isbn, _ := f.GetString("isbn")
		b.ISBN = &isbn
	}
	if f.Changed("publisher") {
		b.Publisher, _ = f.GetString("publisher")
	}
	if f.Changed("year") {
		b.PublicationYear, _ = f.GetInt("year")
	}
	if f.Changed("category") {
		b.Category, _ = f.GetString("category")
	}
	if f.Changed("copies") {
		b.TotalCopies, _ = f.GetInt("copies")
	}
}

func (a *app) printBooks(books []*library.Book) {
	if len(books) == 0 {
		fmt.Println("No books found.")
		return
	}
	fmt.Printf("%-5s %-30s %-22s %-6s %-16s %-10s %s\n", "ID", "Title", "Author", "Year", "Category", "Available", "ISBN")
	fmt.Println(strings.Repeat("-", 110))
	for _, b := range books {
		isbn := ""
		if b.ISBN != nil {
			isbn = *b.ISBN
		}
		fmt.Printf("%-5d %-30s %-22s %-6d %-16s %-10s %s\n",
			b.ID,
			truncateString(b.Title, 30),
			truncateString(b.Author, 22),
			b.PublicationYear,
			truncateString(b.Category, 16),
			fmt.Sprintf("%d/%d", b.AvailableCopies, b.TotalCopies),
			isbn)
	}
}

func (a *app) handleListBooks(cmd *cobra.Command, args []string) error {
	books, err := a.mgr.ListBooks(cmd.Context())
	if err != nil {
		return err
	}
	return a.emit(books, func() { a.printBooks(books) })
}

func (a *app) handleSearchBooks(cmd *cobra.Command, args []string) error {
	books, err := a.mgr.SearchBooks(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	return a.emit(books, func() { a.printBooks(books) })
}

func (a *app) handleShowBook(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0], "book")
	if err != nil {
		return err
	}
	book, err := a.mgr.GetBook(ctx, id)
	if err != nil {
		return err
	}
	loans, err := a.mgr.ListLoans(ctx, library.LoanFilter{BookID: id, OpenOnly: true})
	if err != nil {
		return err
	}
	queue, err := a.mgr.GetReservations(ctx, id)
	if err != nil {
		return err
	}
	view := struct {
		*library.Book
		Loans        []*library.Loan        `json:"open_loans"`
		Reservations []*library.Reservation `json:"reservations"`
	}{book, loans, queue}

	return a.emit(view, func() {
		fmt.Println(book)
		fmt.Printf("Available: %s (%d of %d on the shelf, %d on loan)\n",
			yesNo(book.IsAvailable()), book.AvailableCopies, book.TotalCopies, book.BorrowedCopies())
		if book.Category != "" || book.Publisher != "" {
			fmt.Printf("Category: %s | Publisher: %s\n", book.Category, book.Publisher)
		}
		if len(loans) > 0 {
			fmt.Println("\nOn loan to:")
			a.printLoans(loans)
		}
		if len(queue) > 0 {
			fmt.Println("\nReservation queue:")
			for i, r := range queue {
				fmt.Printf("  %d. %s (member %d) since %s\n", i+1, r.MemberName, r.MemberID,
					r.ReservationDate.Format(library.DateLayout))
			}
		}
	})
}

func (a *app) handleAddBook(cmd *cobra.Command, args []string) error {
	b := &library.Book{TotalCopies: 1}
	applyBookFlags(cmd, b)
	id, err := a.mgr.AddBook(cmd.Context(), b)
	if err != nil {
		return err
	}
	fmt.Printf("Added book %q with ID %d.\n", b.Title, id)
	return nil
}

func (a *app) handleUpdateBook(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0], "book")
	if err != nil {
		return err
	}
	b, err := a.mgr.GetBook(ctx, id)
	if err != nil {
		return err
	}
	applyBookFlags(cmd, b)
	if err := a.mgr.UpdateBook(ctx, b); err != nil {
		return err
	}
	fmt.Printf("Updated book %d.\n", id)
	return nil
}

func (a *app) handleDeleteBook(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "book")
	if err != nil {
		return err
	}
	if err := a.mgr.DeleteBook(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("Deleted book %d.\n", id)
	return nil
}

// ------------------ members ------------------

func (a *app) membersCommand() *cobra.Command {
	members := &cobra.Command{Use: "members", Short: "Manage members"}

	members.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List members",
		Args:  cobra.NoArgs,
		RunE:  a.handleListMembers,
	})
	members.AddCommand(&cobra.Command{
		Use:   "show <member-id|email>",
		Short: "Show a member with their loans and reservations",
		Args:  cobra.ExactArgs(1),
		RunE:  a.handleShowMember,
	})

	add := mutating(&cobra.Command{
		Use:   "add",
		Short: "Register a member",
		Args:  cobra.NoArgs,
		RunE:  a.handleAddMember,
	})
	f := add.Flags()
	f.String("name", "", "full name")
	f.String("email", "", "email address (unique)")
	f.String("phone", "", "phone number")
	f.String("address", "", "postal address")
	f.String("type", string(library.MembershipBasic), "membership type: Basic, Premium or Student")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("email")
	members.AddCommand(add)

	update := mutating(&cobra.Command{
		Use:   "update <member-id>",
		Short: "Edit contact details or membership type; only the flags given are changed",
		Args:  cobra.ExactArgs(1),
		RunE:  a.handleUpdateMember,
	})
	uf := update.Flags()
	uf.String("name", "", "full name")
	uf.String("email", "", "email address (unique)")
	uf.String("phone", "", "phone number")
	uf.String("address", "", "postal address")
	uf.String("type", "", "membership type: Basic, Premium or Student")
	members.AddCommand(update)

	members.AddCommand(mutating(&cobra.Command{
		Use:   "status <member-id> <Active|Suspended|Inactive>",
		Short: "Change a member's status",
		Args:  cobra.ExactArgs(2),
		RunE:  a.handleMemberStatus,
	}))
	return members
}

func (a *app) handleListMembers(cmd *cobra.Command, args []string) error {
	members, err := a.mgr.ListMembers(cmd.Context())
	if err != nil {
		return err
	}
	return a.emit(members, func() {
		if len(members) == 0 {
			fmt.Println("No members registered.")
			return
		}
		fmt.Printf("%-5s %-25s %-28s %-14s %-10s %-10s %s\n", "ID", "Name", "Email", "Phone", "Type", "Status", "Since")
		fmt.Println(strings.Repeat("-", 110))
		for _, m := range members {
			fmt.Printf("%-5d %-25s %-28s %-14s %-10s %-10s %s\n",
				m.ID,
				truncateString(m.Name, 25),
				truncateString(m.Email, 28),
				truncateString(m.Phone, 14),
				m.MembershipType,
				m.Status,
				m.RegistrationDate.Format(library.DateLayout))
		}
	})
}

func (a *app) handleShowMember(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	m, err := a.mgr.FindMember(ctx, args[0])
	if err != nil {
		return err
	}
	loans, err := a.mgr.ListLoans(ctx, library.LoanFilter{MemberID: m.ID, OpenOnly: true})
	if err != nil {
		return err
	}
	reservations, err := a.mgr.GetMemberReservations(ctx, m.ID)
	if err != nil {
		return err
	}
	open, err := a.mgr.CountActiveLoans(ctx, m.ID)
	if err != nil {
		return err
	}
	today := a.mgr.Today()
	view := struct {
		*library.Member
		MembershipDays int                    `json:"membership_days"`
		BorrowLimit    int                    `json:"borrow_limit"`
		Loans          []*library.Loan        `json:"open_loans"`
		Reservations   []*library.Reservation `json:"reservations"`
	}{m, m.MembershipDays(today), m.MembershipType.BorrowLimit(), loans, reservations}

	return a.emit(view, func() {
		fmt.Println(m)
		fmt.Printf("Status: %s | Member for %d days | Loans: %d of %d\n",
			m.Status, view.MembershipDays, open, view.BorrowLimit)
		if m.Phone != "" || m.Address != "" {
			fmt.Printf("Phone: %s | Address: %s\n", m.Phone, m.Address)
		}
		if len(loans) > 0 {
			fmt.Println("\nOpen loans:")
			a.printLoans(loans)
		}
		if len(reservations) > 0 {
			fmt.Println("\nReservations:")
			for _, r := range reservations {
				fmt.Printf("  #%d %s since %s\n", r.ID, r.BookTitle, r.ReservationDate.Format(library.DateLayout))
			}
		}
	})
}

func (a *app) handleAddMember(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	m := &library.Member{}
	m.Name, _ = f.GetString("name")
	m.Email, _ = f.GetString("email")
	m.Phone, _ = f.GetString("phone")
	m.Address, _ = f.GetString("address")
	tier, _ := f.GetString("type")
	t, err := library.ParseMembershipType(tier)
	if err != nil {
		return err
	}
	m.MembershipType = t

	id, err := a.mgr.AddMember(cmd.Context(), m)
	if err != nil {
		return err
	}
	fmt.Printf("Registered %s with member ID %d.\n", m.Name, id)
	return nil
}

func (a *app) handleUpdateMember(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0], "member")
	if err != nil {
		return err
	}
	m, err := a.mgr.GetMember(ctx, id)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	for flag, dst := range map[string]*string{"name": &m.Name, "email": &m.Email, "phone": &m.Phone, "address": &m.Address} {
		if f.Changed(flag) {
			*dst, _ = f.GetString(flag)
		}
	}
	if f.Changed("type") {
		tier, _ := f.GetString("type")
		if m.MembershipType, err = library.ParseMembershipType(tier); err != nil {
			return err
		}
	}
	if err := a.mgr.UpdateMember(ctx, m); err != nil {
		return err
	}
	fmt.Printf("Updated member %d.\n", id)
	return nil
}

func (a *app) handleMemberStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "member")
	if err != nil {
		return err
	}
	status, err := library.ParseMemberStatus(args[1])
	if err != nil {
		return err
	}
	if err := a.mgr.SetMemberStatus(cmd.Context(), id, status); err != nil {
		return err
	}
	fmt.Printf("Member %d is now %s.\n", id, status)
	return nil
}

// ------------------ loans ------------------

func (a *app) loansCommand() *cobra.Command {
	loans := &cobra.Command{Use: "loans", Short: "Issue, return and list loans"}

	issue := mutating(&cobra.Command{
		Use:   "issue",
		Short: "Lend a copy of a book to a member",
		Args:  cobra.NoArgs,
		RunE:  a.handleIssueLoan,
	})
	issue.Flags().Int64("book", 0, "book ID")
	issue.Flags().Int64("member", 0, "member ID")
	issue.Flags().String("issued", "", "issue date YYYY-MM-DD (default today)")
	issue.Flags().String("due", "", "due date YYYY-MM-DD (default issue date plus the loan period)")
	_ = issue.MarkFlagRequired("book")
	_ = issue.MarkFlagRequired("member")
	loans.AddCommand(issue)

	loans.AddCommand(mutating(&cobra.Command{
		Use:   "return <loan-id|ref>",
		Short: "Return a loan and assess any fine",
		Args:  cobra.ExactArgs(1),
		RunE:  a.handleReturnLoan,
	}))

	list := &cobra.Command{
		Use:   "list",
		Short: "List loans, newest first",
		Args:  cobra.NoArgs,
		RunE:  a.handleListLoans,
	}
	list.Flags().Int64("member", 0, "only this member's loans")
	list.Flags().Int64("book", 0, "only loans of this book")
	list.Flags().Bool("open", false, "only loans not yet returned")
	loans.AddCommand(list)

	loans.AddCommand(&cobra.Command{
		Use:   "overdue",
		Short: "List loans past their due date",
		Args:  cobra.NoArgs,
		RunE:  a.handleOverdueLoans,
	})
	loans.AddCommand(&cobra.Command{
		Use:   "show <loan-id|ref>",
		Short: "Show one loan with its fine",
		Args:  cobra.ExactArgs(1),
		RunE:  a.handleShowLoan,
	})
	return loans
}

func (a *app) printLoans(loans []*library.Loan) {
	if len(loans) == 0 {
		fmt.Println("No loans found.")
		return
	}
	fmt.Printf("%-5s %-28s %-20s %-11s %-11s %-11s %-9s %s\n",
		"ID", "Book", "Member", "Issued", "Due", "Returned", "Status", "Fine")
	fmt.Println(strings.Repeat("-", 112))
	for _, l := range loans {
		returned := "-"
		if l.ReturnDate != nil {
			returned = l.ReturnDate.Format(library.DateLayout)
		}
		s := a.mgr.Summarize(l)
		fmt.Printf("%-5d %-28s %-20s %-11s %-11s %-11s %-9s %s\n",
			l.ID,
			truncateString(l.BookTitle, 28),
			truncateString(l.MemberName, 20),
			l.IssueDate.Format(library.DateLayout),
			l.DueDate.Format(library.DateLayout),
			returned,
			s.Status,
			s.Fine)
	}
}

type loanView struct {
	*library.Loan
	Summary library.LoanSummary `json:"summary"`
}

func (a *app) views(loans []*library.Loan) []loanView {
	out := make([]loanView, 0, len(loans))
	for _, l := range loans {
		out = append(out, loanView{l, a.mgr.Summarize(l)})
	}
	return out
}

func (a *app) handleIssueLoan(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	req := library.IssueRequest{}
	req.BookID, _ = f.GetInt64("book")
	req.MemberID, _ = f.GetInt64("member")
	if s, _ := f.GetString("issued"); s != "" {
		d, err := library.ParseDay(s)
		if err != nil {
			return err
		}
		req.IssueDate = d
	}
	if s, _ := f.GetString("due"); s != "" {
		d, err := library.ParseDay(s)
		if err != nil {
			return err
		}
		req.DueDate = d
	}

	loan, err := a.mgr.IssueLoanWith(cmd.Context(), req)
	if err != nil {
		return err
	}
	return a.emit(loan, func() {
		fmt.Printf("Loan %d issued: %q to %s, due %s.\n",
			loan.ID, loan.BookTitle, loan.MemberName, loan.DueDate.Format(library.DateLayout))
		fmt.Printf("Reference: %s\n", loan.Ref)
	})
}

func (a *app) handleReturnLoan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	loan, err := a.mgr.GetLoanByKey(ctx, args[0])
	if err != nil {
		return err
	}
	returned, err := a.mgr.ReturnLoan(ctx, loan.ID)
	if err != nil {
		return err
	}
	return a.emit(returned, func() {
		fmt.Printf("Loan %d returned: %q from %s.\n", returned.ID, returned.BookTitle, returned.MemberName)
		if returned.Fine > 0 {
			fmt.Printf("Overdue fine: %s\n", returned.Fine)
		} else {
			fmt.Println("Returned on time, no fine.")
		}
	})
}

func (a *app) handleListLoans(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	var filter library.LoanFilter
	filter.MemberID, _ = f.GetInt64("member")
	filter.BookID, _ = f.GetInt64("book")
	filter.OpenOnly, _ = f.GetBool("open")

	loans, err := a.mgr.ListLoans(cmd.Context(), filter)
	if err != nil {
		return err
	}
	return a.emit(a.views(loans), func() { a.printLoans(loans) })
}

func (a *app) handleOverdueLoans(cmd *cobra.Command, args []string) error {
	loans, err := a.mgr.ListOverdueLoans(cmd.Context())
	if err != nil {
		return err
	}
	return a.emit(a.views(loans), func() {
		if len(loans) == 0 {
			fmt.Println("No overdue loans.")
			return
		}
		a.printLoans(loans)
	})
}

func (a *app) handleShowLoan(cmd *cobra.Command, args []string) error {
	loan, err := a.mgr.GetLoanByKey(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	s := a.mgr.Summarize(loan)
	return a.emit(loanView{loan, s}, func() {
		fmt.Println(loan)
		fmt.Printf("Reference: %s\n", loan.Ref)
		fmt.Printf("Issued %s, due %s, %d days on loan\n",
			loan.IssueDate.Format(library.DateLayout), loan.DueDate.Format(library.DateLayout), s.Duration)
		if loan.ReturnDate != nil {
			fmt.Printf("Returned %s, fine %s\n", loan.ReturnDate.Format(library.DateLayout), s.Fine)
		} else if s.DaysOverdue > 0 {
			fmt.Printf("Overdue by %d days, fine so far %s\n", s.DaysOverdue, s.Fine)
		}
	})
}

// ------------------ reservations ------------------

func (a *app) reservationsCommand() *cobra.Command {
	res := &cobra.Command{Use: "reservations", Short: "Manage the reservation queue"}

	place := mutating(&cobra.Command{
		Use:   "place",
		Short: "Reserve a book for a member",
		Args:  cobra.NoArgs,
		RunE:  a.handleReserve,
	})
	place.Flags().Int64("book", 0, "book ID")
	place.Flags().Int64("member", 0, "member ID")
	_ = place.MarkFlagRequired("book")
	_ = place.MarkFlagRequired("member")
	res.AddCommand(place)

	res.AddCommand(mutating(&cobra.Command{
		Use:   "cancel <reservation-id>",
		Short: "Cancel an active reservation",
		Args:  cobra.ExactArgs(1),
		RunE:  a.handleCancelReservation,
	}))

	list := &cobra.Command{
		Use:   "list",
		Short: "List active reservations for a book or a member",
		Args:  cobra.NoArgs,
		RunE:  a.handleListReservations,
	}
	list.Flags().Int64("book", 0, "book ID")
	list.Flags().Int64("member", 0, "member ID")
	list.MarkFlagsOneRequired("book", "member")
	list.MarkFlagsMutuallyExclusive("book", "member")
	res.AddCommand(list)
	return res
}

func (a *app) handleReserve(cmd *cobra.Command, args []string) error {
	bookID, _ := cmd.Flags().GetInt64("book")
	memberID, _ := cmd.Flags().GetInt64("member")
	r, err := a.mgr.ReserveBook(cmd.Context(), bookID, memberID)
	if err != nil {
		return err
	}
	return a.emit(r, func() {
		fmt.Printf("Reservation %d placed: %q for %s.\n", r.ID, r.BookTitle, r.MemberName)
	})
}

func (a *app) handleCancelReservation(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "reservation")
	if err != nil {
		return err
	}
	if err := a.mgr.CancelReservation(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("Reservation %d cancelled.\n", id)
	return nil
}

func (a *app) handleListReservations(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	bookID, _ := cmd.Flags().GetInt64("book")
	memberID, _ := cmd.Flags().GetInt64("member")

	var (
		list []*library.Reservation
		err  error
	)
	if bookID > 0 {
		list, err = a.mgr.GetReservations(ctx, bookID)
	} else {
		list, err = a.mgr.GetMemberReservations(ctx, memberID)
	}
	if err != nil {
		return err
	}
	return a.emit(list, func() {
		if len(list) == 0 {
			fmt.Println("No active reservations.")
			return
		}
		fmt.Printf("%-5s %-4s %-30s %-25s %s\n", "ID", "#", "Book", "Member", "Since")
		fmt.Println(strings.Repeat("-", 80))
		for i, r := range list {
			fmt.Printf("%-5d %-4d %-30s %-25s %s\n",
				r.ID, i+1,
				truncateString(r.BookTitle, 30),
				truncateString(r.MemberName, 25),
				r.ReservationDate.Format(library.DateLayout))
		}
	})
}
