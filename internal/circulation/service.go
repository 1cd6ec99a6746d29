// internal/circulation/service.go
package circulation

import (
	"context"

	"librarydesk/internal/domain"
	"librarydesk/internal/journal"
)

// Service defines the borrow ledger.
type Service interface {
	Borrow(ctx context.Context, studentID, bookID, librarianID string) (*BorrowResult, error)
	Return(ctx context.Context, studentID, bookID string) (*domain.BorrowRecord, error)
	MarkMissing(ctx context.Context, studentID, bookID string) (*domain.BorrowRecord, error)
	PayFine(ctx context.Context, studentID string, amount int) (*Payment, error)

	TotalFine(ctx context.Context, studentID string) (*FineTotal, error)
	FineTotals(ctx context.Context) ([]FineTotal, error)
	StudentsWithFines(ctx context.Context) ([]StudentFines, error)
	IssuedBooks(ctx context.Context) ([]IssuedBook, error)
	StudentsBooks(ctx context.Context) ([]StudentBooks, error)
	History(ctx context.Context, studentID string) ([]journal.Event, error)
	Events(ctx context.Context, afterID int64, limit int) ([]journal.Event, error)
}
