// internal/drill/experiments.go
package drill

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"librarydesk/internal/catalog"
	"librarydesk/internal/circulation"
	"librarydesk/internal/clients"
	"librarydesk/internal/domain"
)

// Desk is the part of the API the drills exercise. *clients.Client satisfies it.
type Desk interface {
	Borrow(ctx context.Context, studentID, bookID, librarianID string) (*circulation.BorrowResult, error)
	Return(ctx context.Context, studentID, bookID string) (*domain.BorrowRecord, error)
	BookStatus(ctx context.Context, id string) (*catalog.BookStatus, error)
	IssuedBooks(ctx context.Context) ([]circulation.IssuedBook, error)
	Fines(ctx context.Context) ([]circulation.FineTotal, error)
}

var _ Desk = (*clients.Client)(nil)

// Standard is the drill suite run by cmd/drill against a seeded desk.
func Standard(desk Desk) []Experiment {
	students := []string{"S001", "S002", "S003", "S004", "S005", "S006", "S007", "S008", "S009", "S010"}
	return []Experiment{
		ConcurrentBorrowRace(desk, "B105", "L002", students),
		BorrowReturnChurn(desk, "B106", "L001", students[:5], 5),
	}
}

// ConcurrentBorrowRace has every student grab the same book at once.
func ConcurrentBorrowRace(desk Desk, bookID, librarianID string, students []string) Experiment {
	return Experiment{
		Name:       "concurrent-borrow-race",
		Hypothesis: "The desk never issues one book twice when borrows race",
		SteadyState: []Probe{
			doubleIssuedProbe(desk),
			availabilityProbe(desk, bookID),
		},
		Method: []Action{{
			Name: "concurrent-borrows",
			Execute: func(ctx context.Context) error {
				var (
					wg   sync.WaitGroup
					mu   sync.Mutex
					errs []error
				)
				for _, id := range students {
					wg.Add(1)
					go func(id string) {
						defer wg.Done()
						if _, err := desk.Borrow(ctx, id, bookID, librarianID); err != nil && !expectedRefusal(err) {
							mu.Lock()
							errs = append(errs, err)
							mu.Unlock()
						}
					}(id)
				}
				wg.Wait()
				if len(errs) > 0 {
					return fmt.Errorf("%d unexpected borrow failures, first: %w", len(errs), errs[0])
				}
				return nil
			},
		}},
		Rollback: []Action{returnHolder(desk, bookID)},
		Validation: []Assertion{
			{
				Probe:     "double_issued_books",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "No book should be on loan twice",
			},
			{
				Probe:     "availability_mismatch",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "Availability should match the open loans after rollback",
			},
		},
	}
}

// BorrowReturnChurn has students borrow and return one book in parallel loops.
func BorrowReturnChurn(desk Desk, bookID, librarianID string, students []string, rounds int) Experiment {
	return Experiment{
		Name:       "borrow-return-churn",
		Hypothesis: "Availability tracks open loans and fines stay non-negative under churn",
		SteadyState: []Probe{
			doubleIssuedProbe(desk),
			availabilityProbe(desk, bookID),
			negativeFinesProbe(desk),
		},
		Method:   churnActions(desk, bookID, librarianID, students, rounds),
		Rollback: []Action{returnHolder(desk, bookID)},
		Validation: []Assertion{
			{
				Probe:     "negative_fines",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "No student should owe a negative fine",
			},
			{
				Probe:     "availability_mismatch",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "The book should be available once the churn stops",
			},
		},
	}
}

func churnActions(desk Desk, bookID, librarianID string, students []string, rounds int) []Action {
	actions := make([]Action, 0, len(students))
	for _, id := range students {
		actions = append(actions, Action{
			Name: "churn-" + id,
			Execute: func(ctx context.Context) error {
				for i := 0; i < rounds; i++ {
					if _, err := desk.Borrow(ctx, id, bookID, librarianID); err != nil {
						if expectedRefusal(err) {
							continue
						}
						return err
					}
					if _, err := desk.Return(ctx, id, bookID); err != nil {
						return err
					}
				}
				return nil
			},
		})
	}
	return actions
}

func returnHolder(desk Desk, bookID string) Action {
	return Action{
		Name: "return-" + bookID,
		Execute: func(ctx context.Context) error {
			status, err := desk.BookStatus(ctx, bookID)
			if err != nil {
				return err
			}
			if status.HeldBy == "" {
				return nil
			}
			_, err = desk.Return(ctx, status.HeldBy, bookID)
			return err
		},
	}
}

func doubleIssuedProbe(desk Desk) Probe {
	return Probe{
		Name: "double_issued_books",
		Query: func(ctx context.Context) (float64, error) {
			issued, err := desk.IssuedBooks(ctx)
			if err != nil {
				return 0, err
			}
			seen := make(map[string]int)
			doubled := 0
			for _, ib := range issued {
				seen[ib.BookID]++
				if seen[ib.BookID] == 2 {
					doubled++
				}
			}
			return float64(doubled), nil
		},
		Threshold: Threshold{Operator: "==", Value: 0},
	}
}

// availabilityProbe reads one book's status, which is computed atomically on
// the server, and counts 1 when the availability flag disagrees with the
// presence of an open loan.
func availabilityProbe(desk Desk, bookID string) Probe {
	return Probe{
		Name: "availability_mismatch",
		Query: func(ctx context.Context) (float64, error) {
			status, err := desk.BookStatus(ctx, bookID)
			if err != nil {
				return 0, err
			}
			if status.Available == (status.HeldBy != "") {
				return 1, nil
			}
			return 0, nil
		},
		Threshold: Threshold{Operator: "==", Value: 0},
	}
}

func negativeFinesProbe(desk Desk) Probe {
	return Probe{
		Name: "negative_fines",
		Query: func(ctx context.Context) (float64, error) {
			totals, err := desk.Fines(ctx)
			if err != nil {
				return 0, err
			}
			negative := 0
			for _, t := range totals {
				if t.TotalFine < 0 {
					negative++
				}
			}
			return float64(negative), nil
		},
		Threshold: Threshold{Operator: "==", Value: 0},
	}
}

// expectedRefusal is the 400 a losing borrower gets.
func expectedRefusal(err error) bool {
	return clients.StatusCode(err) == http.StatusBadRequest
}
