// internal/membership/service.go
package membership

import (
	"context"

	"librarydesk/internal/access"
	"librarydesk/internal/domain"
)

// Service defines the interface for student membership.
type Service interface {
	Register(ctx context.Context, req Registration) (*domain.Student, error)
	Get(ctx context.Context, id string) (*domain.Student, error)
	Entry(ctx context.Context, req EntryRequest) (*domain.Student, error)
	Exit(ctx context.Context, id string) (*domain.Student, error)
	Remove(ctx context.Context, id string, caller access.Role) error
	Members(ctx context.Context) ([]domain.Student, error)
	Entries(ctx context.Context) ([]domain.Student, error)
}
