package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"librarydesk/internal/access"
	"librarydesk/internal/catalog"
	"librarydesk/internal/circulation"
	"librarydesk/internal/clients"
	"librarydesk/internal/domain"
	"librarydesk/internal/journal"
	"librarydesk/internal/membership"
	"librarydesk/internal/seed"
	"librarydesk/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminToken = "test-admin"
	staffToken = "test-staff"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) AdvanceDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, n)
}

type testEnv struct {
	srv   *httptest.Server
	clock *clock
	anon  *clients.Client
	staff *clients.Client
	admin *clients.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.New()
	require.NoError(t, seed.Load(st))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := &clock{now: time.Date(2025, time.March, 3, 10, 30, 0, 0, time.UTC)}

	svcs := Services{
		Catalog: catalog.NewService(st, logger),
		Membership: membership.NewService(st,
			membership.WithClock(clk.Now),
			membership.WithLogger(logger),
		),
		Circulation: circulation.NewService(st, journal.New(),
			circulation.WithClock(clk.Now),
			circulation.WithLogger(logger),
		),
	}
	guard := access.NewGuard(access.StaticResolver{AdminToken: adminToken, StaffToken: staffToken}, "")

	srv := httptest.NewServer(NewRouter(svcs, guard, logger))
	t.Cleanup(srv.Close)

	return &testEnv{
		srv:   srv,
		clock: clk,
		anon:  clients.NewClient(srv.URL),
		staff: clients.NewClient(srv.URL, clients.WithToken(staffToken)),
		admin: clients.NewClient(srv.URL, clients.WithToken(adminToken)),
	}
}

func TestCheckoutFlow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	result, err := env.staff.Borrow(ctx, "S001", "B101", "L001")
	require.NoError(t, err)
	assert.Equal(t, 1, result.BorrowedCount)
	assert.Equal(t, domain.StatusBorrowed, result.Status)
	assert.Equal(t, "2025-03-10", result.DateOfReturning.Format(time.DateOnly))

	enq, err := env.anon.Enquiry(ctx, "B101")
	require.NoError(t, err)
	assert.False(t, enq.Available)

	status, err := env.anon.BookStatus(ctx, "B101")
	require.NoError(t, err)
	assert.Equal(t, "S001", status.HeldBy)

	env.clock.AdvanceDays(10)

	rec, err := env.staff.Return(ctx, "S001", "B101")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReturned, rec.Status)
	assert.Equal(t, 6, rec.Fine)

	enq, err = env.anon.Enquiry(ctx, "B101")
	require.NoError(t, err)
	assert.True(t, enq.Available)

	total, err := env.anon.Fine(ctx, "S001")
	require.NoError(t, err)
	assert.Equal(t, 6, total.TotalFine)

	payment, err := env.staff.PayFine(ctx, "S001", 4)
	require.NoError(t, err)
	assert.Equal(t, 2, payment.RemainingFine)

	_, err = env.staff.PayFine(ctx, "S001", 5)
	assert.Equal(t, http.StatusBadRequest, clients.StatusCode(err))

	history, err := env.staff.History(ctx, "S001")
	require.NoError(t, err)
	var types []string
	for _, e := range history {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{
		circulation.EventBookBorrowed,
		circulation.EventBookReturned,
		circulation.EventFinePaid,
	}, types)
}

func TestConcurrentBorrowPreventsDoubleBooking(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	students := []string{"S001", "S002", "S003", "S004", "S005", "S006", "S007", "S008", "S009", "S010"}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for _, id := range students {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := env.staff.Borrow(ctx, id, "B105", "L002")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if clients.StatusCode(err) == http.StatusBadRequest {
				rejected++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, len(students)-1, rejected)

	issued, err := env.staff.IssuedBooks(ctx)
	require.NoError(t, err)
	require.Len(t, issued, 1)
	assert.Equal(t, "B105", issued[0].BookID)
}

func TestRoleEnforcement(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	tests := []struct {
		name   string
		client *clients.Client
		call   func(*clients.Client) error
		want   int
	}{
		{"anonymous borrow", env.anon, func(c *clients.Client) error {
			_, err := c.Borrow(ctx, "S001", "B101", "L001")
			return err
		}, http.StatusUnauthorized},
		{"bad token", clients.NewClient(env.srv.URL, clients.WithToken("nope")), func(c *clients.Client) error {
			_, err := c.Members(ctx)
			return err
		}, http.StatusUnauthorized},
		{"staff deletes book", env.staff, func(c *clients.Client) error {
			return c.DeleteBook(ctx, "B110")
		}, http.StatusForbidden},
		{"staff adds librarian", env.staff, func(c *clients.Client) error {
			_, err := c.AddLibrarian(ctx, domain.Librarian{ID: "L009", Name: "Usha"})
			return err
		}, http.StatusForbidden},
		{"anonymous enquiry", env.anon, func(c *clients.Client) error {
			_, err := c.Enquiry(ctx, "B101")
			return err
		}, 0},
		{"admin deletes book", env.admin, func(c *clients.Client) error {
			return c.DeleteBook(ctx, "B110")
		}, 0},
		{"admin uses staff route", env.admin, func(c *clients.Client) error {
			_, err := c.ListLibrarians(ctx)
			return err
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(tt.client)
			if tt.want == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, clients.StatusCode(err))
		})
	}
}

func TestRemoveStudentWithFine(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.staff.Borrow(ctx, "S002", "B102", "L001")
	require.NoError(t, err)
	env.clock.AdvanceDays(8)
	_, err = env.staff.Return(ctx, "S002", "B102")
	require.NoError(t, err)

	err = env.staff.RemoveStudent(ctx, "S002")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, clients.StatusCode(err))
	assert.Contains(t, err.Error(), "outstanding fine of 2")

	require.NoError(t, env.admin.RemoveStudent(ctx, "S002"))
	assert.Equal(t, http.StatusNotFound, clients.StatusCode(env.admin.RemoveStudent(ctx, "S002")))
}

func TestMissingBook(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.staff.Borrow(ctx, "S003", "B104", "L003")
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, clients.StatusCode(env.admin.DeleteBook(ctx, "B104")))

	rec, err := env.staff.MarkMissing(ctx, "S003", "B104")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMissing, rec.Status)
	assert.Equal(t, 500, rec.Fine)

	available, err := env.anon.AvailableBooks(ctx)
	require.NoError(t, err)
	for _, b := range available {
		assert.NotEqual(t, "B104", b.ID)
	}

	fines, err := env.staff.StudentsFines(ctx)
	require.NoError(t, err)
	require.Len(t, fines, 1)
	assert.Equal(t, "S003", fines[0].StudentID)
	assert.Equal(t, 500, fines[0].TotalFine)

	require.NoError(t, env.admin.DeleteBook(ctx, "B104"))
}

func TestEntryAndExit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	s, err := env.anon.Entry(ctx, membership.EntryRequest{StudentID: "S004", LibrarianID: "L001"})
	require.NoError(t, err)
	require.NotNil(t, s.InTime)
	assert.Equal(t, "2025-03-03 10:30:00", s.InTime.Format(time.DateTime))

	s, err = env.anon.Exit(ctx, "S004")
	require.NoError(t, err)
	assert.NotNil(t, s.OutTime)

	entries, err := env.staff.LibraryEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "S004", entries[0].ID)

	_, err = env.anon.Exit(ctx, "S404")
	assert.Equal(t, http.StatusNotFound, clients.StatusCode(err))
}

func TestRegisterAndBorrow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	s, err := env.staff.RegisterStudent(ctx, membership.Registration{StudentID: "S011", StudentName: "Divya"})
	require.NoError(t, err)
	assert.Empty(t, s.BorrowedBooks)

	book, err := env.staff.AddBook(ctx, "B111", "Compilers")
	require.NoError(t, err)
	assert.True(t, book.Available)

	_, err = env.staff.Borrow(ctx, "S011", "B111", "L001")
	require.NoError(t, err)

	books, err := env.staff.StudentsBooks(ctx)
	require.NoError(t, err)
	var found bool
	for _, sb := range books {
		if sb.StudentID == "S011" {
			found = true
			require.Len(t, sb.BorrowedBooks, 1)
			assert.Equal(t, "Compilers", sb.BorrowedBooks[0].BookName)
		}
	}
	assert.True(t, found)
}

func TestMalformedRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		want    int
		message string
	}{
		{"bad json", http.MethodPost, "/borrow_book", `{"student_id":`, http.StatusBadRequest, "invalid JSON body"},
		{"missing fields", http.MethodPost, "/borrow_book", `{"student_id":"S001"}`, http.StatusBadRequest, "missing required field(s): book_id, librarian_id"},
		{"unknown route", http.MethodGet, "/nowhere", "", http.StatusNotFound, "route not found"},
		{"wrong method", http.MethodGet, "/borrow_book", "", http.StatusMethodNotAllowed, "method not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, env.srv.URL+tt.path, bytes.NewBufferString(tt.body))
			require.NoError(t, err)
			req.Header.Set(access.DefaultHeader, staffToken)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.want, resp.StatusCode)
			var body struct {
				Message string `json:"message"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Contains(t, body.Message, tt.message)
		})
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(fmt.Sprintf("%s/healthz", env.srv.URL))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

// send issues a raw request for routes and body shapes the typed client
// does not cover.
func (env *testEnv) send(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, env.srv.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(access.DefaultHeader, token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestDeclineAlias(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.send(t, http.MethodDelete, "/decline/S005", "", "").StatusCode)

	resp := env.send(t, http.MethodDelete, "/decline/S005", staffToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "student S005 removed", body.Message)

	members, err := env.staff.Members(ctx)
	require.NoError(t, err)
	for _, m := range members {
		assert.NotEqual(t, "S005", m.ID)
	}
	assert.Equal(t, http.StatusNotFound, env.send(t, http.MethodDelete, "/decline/S005", staffToken, "").StatusCode)
}

func TestExitWithBody(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	resp := env.send(t, http.MethodPut, "/student_exit", "", `{"student_id":"S006"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err := env.anon.Entry(ctx, membership.EntryRequest{StudentID: "S006"})
	require.NoError(t, err)

	resp = env.send(t, http.MethodPut, "/student_exit", "", `{"student_id":"S006"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var student domain.Student
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&student))
	assert.Equal(t, "S006", student.ID)
	require.NotNil(t, student.OutTime)

	entries, err := env.staff.LibraryEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotNil(t, entries[0].OutTime)

	resp = env.send(t, http.MethodPut, "/student_exit", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReturnReportingMissing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.staff.Borrow(ctx, "S007", "B107", "L002")
	require.NoError(t, err)

	resp := env.send(t, http.MethodPut, "/return_book", staffToken, `{"student_id":"S007","book_id":"B107","missing":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec domain.BorrowRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, domain.StatusMissing, rec.Status)
	assert.Equal(t, 500, rec.Fine)

	status, err := env.anon.BookStatus(ctx, "B107")
	require.NoError(t, err)
	assert.False(t, status.Available)
	assert.Empty(t, status.HeldBy)

	total, err := env.anon.Fine(ctx, "S007")
	require.NoError(t, err)
	assert.Equal(t, 500, total.TotalFine)

	resp = env.send(t, http.MethodPut, "/return_book", staffToken, `{"student_id":"S007","book_id":"B107","missing":true}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRemoveStudentHoldingBook(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.staff.Borrow(ctx, "S008", "B108", "L001")
	require.NoError(t, err)

	for _, c := range []*clients.Client{env.staff, env.admin} {
		err = c.RemoveStudent(ctx, "S008")
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, clients.StatusCode(err))
		assert.Contains(t, err.Error(), "student S008 holds borrowed books")
	}

	status, err := env.anon.BookStatus(ctx, "B108")
	require.NoError(t, err)
	assert.Equal(t, "S008", status.HeldBy)

	_, err = env.staff.Return(ctx, "S008", "B108")
	require.NoError(t, err)
	require.NoError(t, env.staff.RemoveStudent(ctx, "S008"))

	_, err = env.staff.Borrow(ctx, "S009", "B108", "L001")
	assert.NoError(t, err)
}

func TestLedgerEvents(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	borrowed, err := env.staff.Borrow(ctx, "S001", "B101", "L001")
	require.NoError(t, err)
	_, err = env.staff.Return(ctx, "S001", "B101")
	require.NoError(t, err)

	events, err := env.staff.Events(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, borrowed.ID.String(), e.Metadata["record_id"])
		assert.NotEmpty(t, e.Metadata["request_id"])
	}
	assert.NotEqual(t, events[0].Metadata["request_id"], events[1].Metadata["request_id"])

	events, err = env.staff.Events(ctx, events[1].ID, 10)
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = env.anon.Events(ctx, 0, 10)
	assert.Equal(t, http.StatusUnauthorized, clients.StatusCode(err))
	assert.Equal(t, http.StatusBadRequest, env.send(t, http.MethodGet, "/ledger_events?limit=lots", staffToken, "").StatusCode)
}
