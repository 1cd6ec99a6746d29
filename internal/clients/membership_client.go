// internal/clients/membership_client.go
package clients

import (
	"context"
	"net/http"
	"net/url"

	"librarydesk/internal/domain"
	"librarydesk/internal/membership"
)

func (c *Client) RegisterStudent(ctx context.Context, reg membership.Registration) (*domain.Student, error) {
	var student domain.Student
	if err := c.do(ctx, http.MethodPost, "/register_student", reg, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

func (c *Client) Entry(ctx context.Context, req membership.EntryRequest) (*domain.Student, error) {
	var student domain.Student
	if err := c.do(ctx, http.MethodPost, "/student_entry", req, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

func (c *Client) Exit(ctx context.Context, id string) (*domain.Student, error) {
	var student domain.Student
	if err := c.do(ctx, http.MethodPut, "/student_exit/"+url.PathEscape(id), nil, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

func (c *Client) RemoveStudent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/remove_student/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Members(ctx context.Context) ([]domain.Student, error) {
	var out []domain.Student
	if err := c.do(ctx, http.MethodGet, "/members", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LibraryEntries(ctx context.Context) ([]domain.Student, error) {
	var out []domain.Student
	if err := c.do(ctx, http.MethodGet, "/library_entries", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
