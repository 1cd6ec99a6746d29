// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"librarydesk/internal/domain"
	"librarydesk/internal/store"
)

// service implements the Service interface.
type service struct {
	store  *store.Store
	logger *slog.Logger
}

// NewService creates a new catalog service instance.
func NewService(st *store.Store, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: st, logger: logger}
}

// AddBook catalogues a new, available book.
func (s *service) AddBook(ctx context.Context, id, name string) (*domain.Book, error) {
	id, name = strings.TrimSpace(id), strings.TrimSpace(name)
	if id == "" || name == "" {
		return nil, domain.Errorf(domain.ErrValidation, "book_id and book_name are required")
	}

	book := domain.Book{ID: id, Name: name, Available: true}
	if err := s.store.Update(func(tx *store.Tx) error {
		return tx.AddBook(book)
	}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "book added", "book_id", id)
	return &book, nil
}

// GetBook retrieves a book by its ID.
func (s *service) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	var book domain.Book
	err := s.store.View(func(tx *store.Tx) error {
		b, err := tx.Book(id)
		if err != nil {
			return err
		}
		book = *b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// RemoveBook deletes a book that nobody currently holds.
func (s *service) RemoveBook(ctx context.Context, id string) error {
	if err := s.store.Update(func(tx *store.Tx) error {
		return tx.RemoveBook(id)
	}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "book removed", "book_id", id)
	return nil
}

// AvailableBooks lists books that may be borrowed right now.
func (s *service) AvailableBooks(ctx context.Context) ([]domain.Book, error) {
	books := []domain.Book{}
	err := s.store.View(func(tx *store.Tx) error {
		tx.Books(func(b *domain.Book) {
			if b.Available {
				books = append(books, *b)
			}
		})
		return nil
	})
	return books, err
}

// Enquiry answers whether a book is on the shelf.
func (s *service) Enquiry(ctx context.Context, id string) (*Enquiry, error) {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Book %s - %s is available", book.ID, book.Name)
	if !book.Available {
		msg = fmt.Sprintf("Book %s - %s is NOT available", book.ID, book.Name)
	}
	return &Enquiry{BookID: book.ID, Available: book.Available, Message: msg}, nil
}

// Status reports a book and, when it is on loan, the holder and due date.
func (s *service) Status(ctx context.Context, id string) (*BookStatus, error) {
	var status BookStatus
	err := s.store.View(func(tx *store.Tx) error {
		b, err := tx.Book(id)
		if err != nil {
			return err
		}
		status = BookStatus{BookID: b.ID, BookName: b.Name, Available: b.Available}
		tx.Students(func(st *domain.Student) {
			if status.HeldBy != "" {
				return
			}
			for _, r := range st.BorrowedBooks {
				if r.BookID == id && r.Status == domain.StatusBorrowed {
					status.HeldBy = st.ID
					status.DueOn = r.DateOfReturning.Format(time.DateOnly)
					return
				}
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// AddLibrarian registers a librarian.
func (s *service) AddLibrarian(ctx context.Context, l domain.Librarian) (*domain.Librarian, error) {
	l.ID, l.Name = strings.TrimSpace(l.ID), strings.TrimSpace(l.Name)
	if l.ID == "" || l.Name == "" {
		return nil, domain.Errorf(domain.ErrValidation, "librarian_id and librarian_name are required")
	}
	if l.Role == "" {
		l.Role = domain.DefaultLibrarianRole
	}

	if err := s.store.Update(func(tx *store.Tx) error {
		return tx.AddLibrarian(l)
	}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "librarian added", "librarian_id", l.ID)
	return &l, nil
}

// RemoveLibrarian deletes a librarian. Records they issued keep their id.
func (s *service) RemoveLibrarian(ctx context.Context, id string) error {
	if err := s.store.Update(func(tx *store.Tx) error {
		return tx.RemoveLibrarian(id)
	}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "librarian removed", "librarian_id", id)
	return nil
}

// ListLibrarians returns every librarian in registration order.
func (s *service) ListLibrarians(ctx context.Context) ([]domain.Librarian, error) {
	out := []domain.Librarian{}
	err := s.store.View(func(tx *store.Tx) error {
		tx.Librarians(func(l *domain.Librarian) {
			out = append(out, *l)
		})
		return nil
	})
	return out, err
}
