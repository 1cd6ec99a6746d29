// internal/circulation/implementation.go
package circulation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"librarydesk/internal/domain"
	"librarydesk/internal/journal"
	"librarydesk/internal/store"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const aggregateType = "student"

// service implements the Service interface.
type service struct {
	store   *store.Store
	journal *journal.Journal
	policy  Policy
	now     Clock
	logger  *slog.Logger
	tracer  trace.Tracer
	meters  metric.MeterProvider
	metrics *ledgerMetrics
}

// Option configures the ledger.
type Option func(*service)

// WithClock replaces time.Now.
func WithClock(c Clock) Option {
	return func(s *service) { s.now = c }
}

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(s *service) { s.policy = p }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *service) { s.logger = l }
}

// WithMeterProvider sets where ledger counters are recorded; the global
// provider is used otherwise.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *service) { s.meters = mp }
}

// NewService creates a new borrow ledger over st, journaling to j.
func NewService(st *store.Store, j *journal.Journal, opts ...Option) Service {
	s := &service{
		store:   st,
		journal: j,
		policy:  DefaultPolicy(),
		now:     time.Now,
		logger:  slog.Default(),
		tracer:  otel.Tracer("librarydesk/circulation"),
		meters:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newLedgerMetrics(s.meters)
	return s
}

func (s *service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// record appends one event to the student's stream. It runs inside the
// store's write lock, so the version read here cannot move underneath us.
func (s *service) record(ctx context.Context, studentID, eventType string, recordID uuid.UUID, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	version := s.journal.CurrentVersion(ctx, studentID)
	event := journal.Event{
		EventType: eventType,
		EventData: payload,
		Metadata:  eventMetadata(ctx, recordID),
	}
	if err := s.journal.AppendEvents(ctx, studentID, aggregateType, version, []journal.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// eventMetadata ties an event to the borrow record it touched and to the
// HTTP request that caused it.
func eventMetadata(ctx context.Context, recordID uuid.UUID) map[string]string {
	md := make(map[string]string, 2)
	if recordID != uuid.Nil {
		md["record_id"] = recordID.String()
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		md["request_id"] = reqID
	}
	if len(md) == 0 {
		return nil
	}
	return md
}

// Borrow issues bookID to studentID on behalf of librarianID.
func (s *service) Borrow(ctx context.Context, studentID, bookID, librarianID string) (result *BorrowResult, err error) {
	ctx, span := s.startSpan(ctx, "ledger.borrow",
		attribute.String("student.id", studentID),
		attribute.String("book.id", bookID),
		attribute.String("librarian.id", librarianID),
	)
	defer func() { endSpan(span, err) }()

	err = s.store.Update(func(tx *store.Tx) error {
		student, err := tx.Student(studentID)
		if err != nil {
			return err
		}
		book, err := tx.Book(bookID)
		if err != nil || !book.Available {
			return domain.Errorf(domain.ErrUnavailable, "book %s not available", bookID)
		}
		if _, err := tx.Librarian(librarianID); err != nil {
			return err
		}

		issued := s.now()
		rec := domain.BorrowRecord{
			ID:              uuid.New(),
			BookID:          book.ID,
			BookName:        book.Name,
			IssuedBy:        librarianID,
			DateOfIssuing:   domain.NewDate(issued),
			DateOfReturning: domain.NewDate(issued.AddDate(0, 0, s.policy.LoanPeriodDays)),
			Fine:            0,
			Status:          domain.StatusBorrowed,
		}

		if err := s.record(ctx, studentID, EventBookBorrowed, rec.ID, BookBorrowedEvent{
			RecordID:    rec.ID,
			BookID:      rec.BookID,
			LibrarianID: librarianID,
			IssuedOn:    rec.DateOfIssuing.Format(time.DateOnly),
			DueOn:       rec.DateOfReturning.Format(time.DateOnly),
		}); err != nil {
			return err
		}

		student.BorrowedBooks = append(student.BorrowedBooks, rec)
		book.Available = false

		result = &BorrowResult{
			BorrowRecord:  rec,
			StudentID:     studentID,
			BorrowedCount: len(student.BorrowedBooks),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.borrows.Add(ctx, 1)
	s.logger.InfoContext(ctx, "book borrowed",
		"student_id", studentID,
		"book_id", bookID,
		"librarian_id", librarianID,
		"due", result.DateOfReturning.Format(time.DateOnly),
	)
	return result, nil
}

// Return closes the student's first open loan of bookID and assesses any
// late fine.
func (s *service) Return(ctx context.Context, studentID, bookID string) (rec *domain.BorrowRecord, err error) {
	ctx, span := s.startSpan(ctx, "ledger.return",
		attribute.String("student.id", studentID),
		attribute.String("book.id", bookID),
	)
	defer func() { endSpan(span, err) }()

	err = s.store.Update(func(tx *store.Tx) error {
		student, err := tx.Student(studentID)
		if err != nil {
			return err
		}
		idx := firstBorrowed(student.BorrowedBooks, bookID)
		if idx < 0 {
			return domain.Errorf(domain.ErrNotFound, "book %s not found in student's borrowed list", bookID)
		}

		r := &student.BorrowedBooks[idx]
		returned := s.now()
		fine := LateFine(r.DateOfReturning.Time, returned, s.policy.LateFeePerDay)
		returnedOn := domain.NewDate(returned.In(r.DateOfReturning.Location()))

		if err := s.record(ctx, studentID, EventBookReturned, r.ID, BookReturnedEvent{
			RecordID:   r.ID,
			BookID:     r.BookID,
			DueOn:      r.DateOfReturning.Format(time.DateOnly),
			ReturnedOn: returnedOn.Format(time.DateOnly),
			Fine:       fine,
		}); err != nil {
			return err
		}

		r.Fine = fine
		r.Status = domain.StatusReturned
		r.DateOfReturning = returnedOn

		if book, err := tx.Book(bookID); err == nil {
			book.Available = true
		}

		out := *r
		rec = &out
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.returns.Add(ctx, 1)
	if rec.Fine > 0 {
		s.metrics.finesAssessed.Add(ctx, int64(rec.Fine), metric.WithAttributes(attribute.String("reason", "late")))
	}
	s.logger.InfoContext(ctx, "book returned",
		"student_id", studentID,
		"book_id", bookID,
		"fine", rec.Fine,
	)
	return rec, nil
}

// MarkMissing closes the student's first open loan of bookID as lost.
func (s *service) MarkMissing(ctx context.Context, studentID, bookID string) (rec *domain.BorrowRecord, err error) {
	ctx, span := s.startSpan(ctx, "ledger.mark_missing",
		attribute.String("student.id", studentID),
		attribute.String("book.id", bookID),
	)
	defer func() { endSpan(span, err) }()

	err = s.store.Update(func(tx *store.Tx) error {
		student, err := tx.Student(studentID)
		if err != nil {
			return err
		}
		idx := firstBorrowed(student.BorrowedBooks, bookID)
		if idx < 0 {
			return domain.Errorf(domain.ErrNotFound, "book %s not found in student's borrowed list", bookID)
		}

		r := &student.BorrowedBooks[idx]
		if err := s.record(ctx, studentID, EventBookMarkedMissing, r.ID, BookMarkedMissingEvent{
			RecordID: r.ID,
			BookID:   r.BookID,
			Fine:     s.policy.MissingFine,
		}); err != nil {
			return err
		}

		r.Fine = s.policy.MissingFine
		r.Status = domain.StatusMissing

		if book, err := tx.Book(bookID); err == nil {
			book.Available = false
		}

		out := *r
		rec = &out
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.missing.Add(ctx, 1)
	s.metrics.finesAssessed.Add(ctx, int64(rec.Fine), metric.WithAttributes(attribute.String("reason", "missing")))
	s.logger.WarnContext(ctx, "book marked missing",
		"student_id", studentID,
		"book_id", bookID,
		"fine", rec.Fine,
	)
	return rec, nil
}

// PayFine applies amount to the student's fines in borrowed-list order.
func (s *service) PayFine(ctx context.Context, studentID string, amount int) (p *Payment, err error) {
	ctx, span := s.startSpan(ctx, "ledger.pay_fine",
		attribute.String("student.id", studentID),
		attribute.Int("amount", amount),
	)
	defer func() { endSpan(span, err) }()

	err = s.store.Update(func(tx *store.Tx) error {
		student, err := tx.Student(studentID)
		if err != nil {
			return err
		}
		total := student.TotalFine()
		if amount <= 0 {
			return domain.Errorf(domain.ErrInvalidAmount, "amount must be a positive integer")
		}
		if amount > total {
			return domain.Errorf(domain.ErrInvalidAmount, "amount %d exceeds outstanding fine %d", amount, total)
		}

		taken := allocatePayment(student.BorrowedBooks, amount)
		var allocations []Allocation
		for i, n := range taken {
			if n > 0 {
				r := student.BorrowedBooks[i]
				allocations = append(allocations, Allocation{RecordID: r.ID, BookID: r.BookID, Amount: n})
			}
		}

		if err := s.record(ctx, studentID, EventFinePaid, uuid.Nil, FinePaidEvent{
			Amount:      amount,
			Remaining:   total - amount,
			Allocations: allocations,
		}); err != nil {
			return err
		}

		for i, n := range taken {
			if n == 0 {
				continue
			}
			r := &student.BorrowedBooks[i]
			r.Fine -= n
			if r.Fine == 0 && r.Status == domain.StatusMissing {
				s.restock(tx, r.BookID)
			}
		}

		p = &Payment{StudentID: studentID, Paid: amount, RemainingFine: total - amount}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.finesPaid.Add(ctx, int64(p.Paid))
	s.logger.InfoContext(ctx, "fine paid",
		"student_id", studentID,
		"paid", p.Paid,
		"remaining", p.RemainingFine,
	)
	return p, nil
}

// restock returns a settled missing book to the pool under RestockMissing.
func (s *service) restock(tx *store.Tx, bookID string) {
	if s.policy.MissingBooks != RestockMissing {
		return
	}
	book, err := tx.Book(bookID)
	if err != nil || tx.BookBorrowed(bookID) {
		return
	}
	book.Available = true
}

// TotalFine returns the student's outstanding balance.
func (s *service) TotalFine(ctx context.Context, studentID string) (*FineTotal, error) {
	var ft *FineTotal
	err := s.store.View(func(tx *store.Tx) error {
		student, err := tx.Student(studentID)
		if err != nil {
			return err
		}
		ft = &FineTotal{StudentID: student.ID, StudentName: student.Name, TotalFine: student.TotalFine()}
		return nil
	})
	return ft, err
}

// FineTotals lists every student who owes something.
func (s *service) FineTotals(ctx context.Context) ([]FineTotal, error) {
	totals := []FineTotal{}
	err := s.store.View(func(tx *store.Tx) error {
		tx.Students(func(st *domain.Student) {
			if total := st.TotalFine(); total > 0 {
				totals = append(totals, FineTotal{StudentID: st.ID, StudentName: st.Name, TotalFine: total})
			}
		})
		return nil
	})
	return totals, err
}

// StudentsWithFines lists students with Returned or Missing records that
// still carry a fine. Open loans never count, however overdue.
func (s *service) StudentsWithFines(ctx context.Context) ([]StudentFines, error) {
	out := []StudentFines{}
	err := s.store.View(func(tx *store.Tx) error {
		tx.Students(func(st *domain.Student) {
			records := finedRecords(st.BorrowedBooks)
			if len(records) == 0 {
				return
			}
			total := 0
			for _, r := range records {
				total += r.Fine
			}
			out = append(out, StudentFines{
				FineTotal: FineTotal{StudentID: st.ID, StudentName: st.Name, TotalFine: total},
				Records:   records,
			})
		})
		return nil
	})
	return out, err
}

// IssuedBooks lists every open loan.
func (s *service) IssuedBooks(ctx context.Context) ([]IssuedBook, error) {
	out := []IssuedBook{}
	err := s.store.View(func(tx *store.Tx) error {
		tx.Students(func(st *domain.Student) {
			for _, r := range st.BorrowedBooks {
				if r.Status == domain.StatusBorrowed {
					out = append(out, IssuedBook{BorrowRecord: r, StudentID: st.ID, StudentName: st.Name})
				}
			}
		})
		return nil
	})
	return out, err
}

// StudentsBooks lists every student that has borrowed anything.
func (s *service) StudentsBooks(ctx context.Context) ([]StudentBooks, error) {
	out := []StudentBooks{}
	err := s.store.View(func(tx *store.Tx) error {
		tx.Students(func(st *domain.Student) {
			if len(st.BorrowedBooks) == 0 {
				return
			}
			c := st.Clone()
			out = append(out, StudentBooks{StudentID: c.ID, StudentName: c.Name, BorrowedBooks: c.BorrowedBooks})
		})
		return nil
	})
	return out, err
}

// History returns the student's journaled ledger events.
func (s *service) History(ctx context.Context, studentID string) ([]journal.Event, error) {
	err := s.store.View(func(tx *store.Tx) error {
		_, err := tx.Student(studentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.journal.LoadEvents(ctx, studentID, 0, 0)
}

// Events pages through every student's journaled events in append order,
// returning up to limit events with ID greater than afterID.
func (s *service) Events(ctx context.Context, afterID int64, limit int) ([]journal.Event, error) {
	if afterID < 0 {
		return nil, domain.Errorf(domain.ErrValidation, "after must not be negative")
	}
	if limit < 1 || limit > MaxEventBatch {
		return nil, domain.Errorf(domain.ErrValidation, "limit must be between 1 and %d", MaxEventBatch)
	}
	return s.journal.StreamEvents(ctx, afterID, limit)
}
