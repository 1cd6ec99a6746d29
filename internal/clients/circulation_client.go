// internal/clients/circulation_client.go
package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"librarydesk/internal/circulation"
	"librarydesk/internal/domain"
	"librarydesk/internal/journal"
)

type loanRequest struct {
	StudentID   string `json:"student_id"`
	BookID      string `json:"book_id"`
	LibrarianID string `json:"librarian_id,omitempty"`
}

func (c *Client) Borrow(ctx context.Context, studentID, bookID, librarianID string) (*circulation.BorrowResult, error) {
	var result circulation.BorrowResult
	req := loanRequest{StudentID: studentID, BookID: bookID, LibrarianID: librarianID}
	if err := c.do(ctx, http.MethodPost, "/borrow_book", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Return(ctx context.Context, studentID, bookID string) (*domain.BorrowRecord, error) {
	var rec domain.BorrowRecord
	req := loanRequest{StudentID: studentID, BookID: bookID}
	if err := c.do(ctx, http.MethodPut, "/return_book", req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) MarkMissing(ctx context.Context, studentID, bookID string) (*domain.BorrowRecord, error) {
	var rec domain.BorrowRecord
	req := loanRequest{StudentID: studentID, BookID: bookID}
	if err := c.do(ctx, http.MethodPut, "/missing_book", req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) PayFine(ctx context.Context, studentID string, amount int) (*circulation.Payment, error) {
	var payment circulation.Payment
	req := struct {
		Amount int `json:"amount"`
	}{Amount: amount}
	if err := c.do(ctx, http.MethodPut, "/pay_fine/"+url.PathEscape(studentID), req, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (c *Client) Fine(ctx context.Context, studentID string) (*circulation.FineTotal, error) {
	var total circulation.FineTotal
	if err := c.do(ctx, http.MethodGet, "/fines/"+url.PathEscape(studentID), nil, &total); err != nil {
		return nil, err
	}
	return &total, nil
}

func (c *Client) Fines(ctx context.Context) ([]circulation.FineTotal, error) {
	var out []circulation.FineTotal
	if err := c.do(ctx, http.MethodGet, "/fines", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StudentsFines(ctx context.Context) ([]circulation.StudentFines, error) {
	var out []circulation.StudentFines
	if err := c.do(ctx, http.MethodGet, "/students_fines", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) IssuedBooks(ctx context.Context) ([]circulation.IssuedBook, error) {
	var out []circulation.IssuedBook
	if err := c.do(ctx, http.MethodGet, "/issued_books", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StudentsBooks(ctx context.Context) ([]circulation.StudentBooks, error) {
	var out []circulation.StudentBooks
	if err := c.do(ctx, http.MethodGet, "/students_books", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) History(ctx context.Context, studentID string) ([]journal.Event, error) {
	var out []journal.Event
	if err := c.do(ctx, http.MethodGet, "/history/"+url.PathEscape(studentID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Events pages the ledger journal across every student.
func (c *Client) Events(ctx context.Context, after int64, limit int) ([]journal.Event, error) {
	q := url.Values{}
	q.Set("after", strconv.FormatInt(after, 10))
	q.Set("limit", strconv.Itoa(limit))
	var out []journal.Event
	if err := c.do(ctx, http.MethodGet, "/ledger_events?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
