// internal/domain/domain.go
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a borrow record.
type Status string

const (
	StatusBorrowed Status = "Borrowed"
	StatusReturned Status = "Returned"
	StatusMissing  Status = "Missing"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusReturned || s == StatusMissing
}

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate truncates t to midnight in its own location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Timestamp is a wall-clock instant serialized as "YYYY-MM-DD HH:MM:SS".
type Timestamp struct {
	time.Time
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.Format(timestampLayout))
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.ParseInLocation(timestampLayout, s, time.Local)
	if err != nil {
		return err
	}
	ts.Time = t
	return nil
}

// BorrowRecord is one loan of a book to a student. It is owned by the
// student's borrowed-book list.
type BorrowRecord struct {
	ID              uuid.UUID `json:"record_id"`
	BookID          string    `json:"book_id"`
	BookName        string    `json:"book_name"`
	IssuedBy        string    `json:"issued_by"`
	DateOfIssuing   Date      `json:"date_of_issuing"`
	DateOfReturning Date      `json:"date_of_returning"`
	Fine            int       `json:"fine"`
	Status          Status    `json:"status"`
}

// Credential holds a student's membership password hash.
type Credential struct {
	PasswordHash string
	Salt         string
}

// Student is a library member together with their ordered borrow history.
type Student struct {
	ID            string         `json:"student_id"`
	Name          string         `json:"student_name"`
	LibrarianID   string         `json:"librarian_id,omitempty"`
	InTime        *Timestamp     `json:"in_time"`
	OutTime       *Timestamp     `json:"out_time"`
	BorrowedBooks []BorrowRecord `json:"borrowed_books"`
	Credential    *Credential    `json:"-"`
}

// TotalFine sums the fine across every record in the borrowed-book list.
func (s *Student) TotalFine() int {
	total := 0
	for _, r := range s.BorrowedBooks {
		total += r.Fine
	}
	return total
}

// Clone returns a deep copy that is safe to hand out of a store transaction.
func (s *Student) Clone() Student {
	c := *s
	c.BorrowedBooks = make([]BorrowRecord, len(s.BorrowedBooks))
	copy(c.BorrowedBooks, s.BorrowedBooks)
	if s.InTime != nil {
		in := *s.InTime
		c.InTime = &in
	}
	if s.OutTime != nil {
		out := *s.OutTime
		c.OutTime = &out
	}
	if s.Credential != nil {
		cred := *s.Credential
		c.Credential = &cred
	}
	return c
}

// Book is a catalogued title with a single copy.
type Book struct {
	ID        string `json:"book_id"`
	Name      string `json:"book_name"`
	Available bool   `json:"available"`
}

// Librarian is a member of staff who issues books.
type Librarian struct {
	ID    string `json:"librarian_id"`
	Name  string `json:"librarian_name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// DefaultLibrarianRole is assigned when a librarian is added without a role.
const DefaultLibrarianRole = "librarian"
