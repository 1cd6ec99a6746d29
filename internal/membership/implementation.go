// internal/membership/implementation.go
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"librarydesk/internal/access"
	"librarydesk/internal/domain"
	"librarydesk/internal/store"

	"golang.org/x/time/rate"
)

// service implements the Service interface.
type service struct {
	store       *store.Store
	rateLimiter *rate.Limiter
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures the membership service.
type Option func(*service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *service) { s.logger = l }
}

// WithRateLimit allows perMinute registrations and password checks, with
// bursts of the same size.
func WithRateLimit(perMinute int) Option {
	return func(s *service) {
		if perMinute > 0 {
			s.rateLimiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
		}
	}
}

// NewService creates a new membership service instance.
func NewService(st *store.Store, opts ...Option) Service {
	s := &service{
		store:       st,
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 60),
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) allow() error {
	if !s.rateLimiter.Allow() {
		return domain.Errorf(domain.ErrRateLimited, "rate limit exceeded, try again later")
	}
	return nil
}

// Register creates a new student with an empty borrowed-book list.
func (s *service) Register(ctx context.Context, req Registration) (*domain.Student, error) {
	req.StudentID, req.StudentName = strings.TrimSpace(req.StudentID), strings.TrimSpace(req.StudentName)
	if req.StudentID == "" || req.StudentName == "" {
		return nil, domain.Errorf(domain.ErrValidation, "student_id and student_name are required")
	}
	if err := s.allow(); err != nil {
		return nil, err
	}

	student := domain.Student{ID: req.StudentID, Name: req.StudentName}
	if req.Password != "" {
		cred, err := newCredential(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		student.Credential = cred
	}

	var out domain.Student
	err := s.store.Update(func(tx *store.Tx) error {
		if err := tx.AddStudent(student); err != nil {
			return err
		}
		st, err := tx.Student(student.ID)
		if err != nil {
			return err
		}
		out = st.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "student registered", "student_id", out.ID, "password", out.Credential != nil)
	return &out, nil
}

// Get retrieves a student by ID.
func (s *service) Get(ctx context.Context, id string) (*domain.Student, error) {
	var out domain.Student
	err := s.store.View(func(tx *store.Tx) error {
		st, err := tx.Student(id)
		if err != nil {
			return err
		}
		out = st.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Entry stamps a visit's in_time and clears its out_time. An unknown
// student who gives a name is registered on the spot as a walk-in.
func (s *service) Entry(ctx context.Context, req EntryRequest) (*domain.Student, error) {
	req.StudentID, req.StudentName = strings.TrimSpace(req.StudentID), strings.TrimSpace(req.StudentName)
	if req.StudentID == "" {
		return nil, domain.Errorf(domain.ErrValidation, "student_id is required")
	}

	// Password checks run outside the write lock.
	existing, err := s.Get(ctx, req.StudentID)
	walkIn := false
	switch {
	case err == nil:
		if err := s.checkPassword(existing, req.Password); err != nil {
			return nil, err
		}
	case errors.Is(err, domain.ErrNotFound) && req.StudentName != "":
		if err := s.allow(); err != nil {
			return nil, err
		}
		walkIn = true
	default:
		return nil, err
	}

	var out domain.Student
	err = s.store.Update(func(tx *store.Tx) error {
		st, err := tx.Student(req.StudentID)
		switch {
		case err == nil && walkIn && st.Credential != nil:
			// Registered with a password after we looked.
			return domain.Errorf(domain.ErrForbidden, "wrong password")
		case err != nil && walkIn:
			if err := tx.AddStudent(domain.Student{ID: req.StudentID, Name: req.StudentName}); err != nil {
				return err
			}
			if st, err = tx.Student(req.StudentID); err != nil {
				return err
			}
		case err != nil:
			return err
		}
		st.InTime = &domain.Timestamp{Time: s.now()}
		st.OutTime = nil
		if req.LibrarianID != "" {
			st.LibrarianID = req.LibrarianID
		}
		out = st.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "student entered", "student_id", out.ID, "walk_in", walkIn)
	return &out, nil
}

func (s *service) checkPassword(st *domain.Student, password string) error {
	if st.Credential == nil {
		return nil
	}
	if err := s.allow(); err != nil {
		return err
	}
	ok, err := matches(st.Credential, password)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return domain.Errorf(domain.ErrForbidden, "wrong password")
	}
	return nil
}

// Exit stamps out_time on the current visit.
func (s *service) Exit(ctx context.Context, id string) (*domain.Student, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.Errorf(domain.ErrValidation, "student_id is required")
	}

	var out domain.Student
	err := s.store.Update(func(tx *store.Tx) error {
		st, err := tx.Student(id)
		if err != nil {
			return err
		}
		if st.InTime == nil {
			return domain.Errorf(domain.ErrValidation, "student %s has not entered the library", id)
		}
		st.OutTime = &domain.Timestamp{Time: s.now()}
		out = st.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "student exited", "student_id", id)
	return &out, nil
}

// Remove deletes a student. A student who still owes a fine can only be
// removed by an admin, and nobody can remove a student holding a book.
func (s *service) Remove(ctx context.Context, id string, caller access.Role) error {
	var waived int
	err := s.store.Update(func(tx *store.Tx) error {
		st, err := tx.Student(id)
		if err != nil {
			return err
		}
		if total := st.TotalFine(); total > 0 {
			if caller < access.RoleAdmin {
				return domain.Errorf(domain.ErrOutstandingFine, "student %s has an outstanding fine of %d", id, total)
			}
			waived = total
		}
		return tx.RemoveStudent(id)
	})
	if err != nil {
		return err
	}

	if waived > 0 {
		s.logger.WarnContext(ctx, "student removed with outstanding fine", "student_id", id, "fine", waived)
	} else {
		s.logger.InfoContext(ctx, "student removed", "student_id", id)
	}
	return nil
}

// Members lists every registered student.
func (s *service) Members(ctx context.Context) ([]domain.Student, error) {
	return s.list(func(*domain.Student) bool { return true })
}

// Entries lists students who have entered the library.
func (s *service) Entries(ctx context.Context) ([]domain.Student, error) {
	return s.list(func(st *domain.Student) bool { return st.InTime != nil })
}

func (s *service) list(keep func(*domain.Student) bool) ([]domain.Student, error) {
	out := []domain.Student{}
	err := s.store.View(func(tx *store.Tx) error {
		tx.Students(func(st *domain.Student) {
			if keep(st) {
				out = append(out, st.Clone())
			}
		})
		return nil
	})
	return out, err
}
