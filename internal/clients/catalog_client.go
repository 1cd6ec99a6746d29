// internal/clients/catalog_client.go
package clients

import (
	"context"
	"net/http"
	"net/url"

	"librarydesk/internal/catalog"
	"librarydesk/internal/domain"
)

func (c *Client) AddBook(ctx context.Context, id, name string) (*domain.Book, error) {
	req := struct {
		BookID   string `json:"book_id"`
		BookName string `json:"book_name"`
	}{BookID: id, BookName: name}

	var book domain.Book
	if err := c.do(ctx, http.MethodPost, "/add_book", req, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *Client) DeleteBook(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/delete_book/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Enquiry(ctx context.Context, id string) (*catalog.Enquiry, error) {
	var enq catalog.Enquiry
	if err := c.do(ctx, http.MethodGet, "/book_enquiry/"+url.PathEscape(id), nil, &enq); err != nil {
		return nil, err
	}
	return &enq, nil
}

func (c *Client) BookStatus(ctx context.Context, id string) (*catalog.BookStatus, error) {
	var status catalog.BookStatus
	if err := c.do(ctx, http.MethodGet, "/book_status/"+url.PathEscape(id), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) AvailableBooks(ctx context.Context) ([]domain.Book, error) {
	var books []domain.Book
	if err := c.do(ctx, http.MethodGet, "/available_books", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) AddLibrarian(ctx context.Context, l domain.Librarian) (*domain.Librarian, error) {
	var out domain.Librarian
	if err := c.do(ctx, http.MethodPost, "/add_librarian", l, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveLibrarian(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/remove_librarian/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListLibrarians(ctx context.Context) ([]domain.Librarian, error) {
	var out []domain.Librarian
	if err := c.do(ctx, http.MethodGet, "/list_librarians", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
