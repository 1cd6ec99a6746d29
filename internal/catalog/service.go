// internal/catalog/service.go
package catalog

import (
	"context"

	"librarydesk/internal/domain"
)

// Service defines the catalog of books and librarians.
type Service interface {
	AddBook(ctx context.Context, id, name string) (*domain.Book, error)
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	RemoveBook(ctx context.Context, id string) error
	AvailableBooks(ctx context.Context) ([]domain.Book, error)
	Enquiry(ctx context.Context, id string) (*Enquiry, error)
	Status(ctx context.Context, id string) (*BookStatus, error)

	AddLibrarian(ctx context.Context, l domain.Librarian) (*domain.Librarian, error)
	RemoveLibrarian(ctx context.Context, id string) error
	ListLibrarians(ctx context.Context) ([]domain.Librarian, error)
}
