// internal/circulation/domain.go
package circulation

import (
	"time"

	"librarydesk/internal/domain"

	"github.com/google/uuid"
)

// MissingBookPolicy decides what happens to a book reported missing.
type MissingBookPolicy string

const (
	// RetireMissing keeps a missing book unavailable until it is deleted.
	RetireMissing MissingBookPolicy = "retire"
	// RestockMissing makes a missing book available again once its fine is paid off.
	RestockMissing MissingBookPolicy = "restock"
)

// Journal paging bounds for Events.
const (
	DefaultEventBatch = 100
	MaxEventBatch     = 1000
)

// Policy holds the loan and fine parameters of the ledger.
type Policy struct {
	LoanPeriodDays int
	LateFeePerDay  int
	MissingFine    int
	MissingBooks   MissingBookPolicy
}

// DefaultPolicy is a seven-day loan, two units per late day and a flat 500
// for a lost book.
func DefaultPolicy() Policy {
	return Policy{
		LoanPeriodDays: 7,
		LateFeePerDay:  2,
		MissingFine:    500,
		MissingBooks:   RetireMissing,
	}
}

// Clock supplies the current time.
type Clock func() time.Time

// BorrowResult is returned by Borrow.
type BorrowResult struct {
	domain.BorrowRecord
	StudentID     string `json:"student_id"`
	BorrowedCount int    `json:"borrowed_count"`
}

// Payment is returned by PayFine.
type Payment struct {
	StudentID     string `json:"student_id"`
	Paid          int    `json:"paid"`
	RemainingFine int    `json:"remaining_fine"`
}

// FineTotal is one student's outstanding balance.
type FineTotal struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	TotalFine   int    `json:"total_fine"`
}

// StudentFines lists the records that make up a student's balance.
type StudentFines struct {
	FineTotal
	Records []domain.BorrowRecord `json:"fined_books"`
}

// IssuedBook is a book currently out on loan.
type IssuedBook struct {
	domain.BorrowRecord
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
}

// StudentBooks is a student's whole borrowed-book list.
type StudentBooks struct {
	StudentID     string                `json:"student_id"`
	StudentName   string                `json:"student_name"`
	BorrowedBooks []domain.BorrowRecord `json:"borrowed_books"`
}

// Journal event types.
const (
	EventBookBorrowed      = "BookBorrowed"
	EventBookReturned      = "BookReturned"
	EventBookMarkedMissing = "BookMarkedMissing"
	EventFinePaid          = "FinePaid"
)

// BookBorrowedEvent is journaled when a book is issued.
type BookBorrowedEvent struct {
	RecordID    uuid.UUID `json:"record_id"`
	BookID      string    `json:"book_id"`
	LibrarianID string    `json:"librarian_id"`
	IssuedOn    string    `json:"issued_on"`
	DueOn       string    `json:"due_on"`
}

// BookReturnedEvent is journaled when a book comes back.
type BookReturnedEvent struct {
	RecordID   uuid.UUID `json:"record_id"`
	BookID     string    `json:"book_id"`
	DueOn      string    `json:"due_on"`
	ReturnedOn string    `json:"returned_on"`
	Fine       int       `json:"fine"`
}

// BookMarkedMissingEvent is journaled when a borrowed book is reported lost.
type BookMarkedMissingEvent struct {
	RecordID uuid.UUID `json:"record_id"`
	BookID   string    `json:"book_id"`
	Fine     int       `json:"fine"`
}

// FinePaidEvent is journaled for each payment.
type FinePaidEvent struct {
	Amount      int          `json:"amount"`
	Remaining   int          `json:"remaining"`
	Allocations []Allocation `json:"allocations"`
}

// Allocation is the part of a payment applied to one record.
type Allocation struct {
	RecordID uuid.UUID `json:"record_id"`
	BookID   string    `json:"book_id"`
	Amount   int       `json:"amount"`
}
