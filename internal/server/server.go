// internal/server/server.go
package server

import (
	"log/slog"
	"net/http"

	"librarydesk/internal/access"
	"librarydesk/internal/catalog"
	"librarydesk/internal/circulation"
	"librarydesk/internal/httpx"
	"librarydesk/internal/membership"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services are the operations exposed over HTTP.
type Services struct {
	Catalog     catalog.Service
	Membership  membership.Service
	Circulation circulation.Service
}

// NewRouter binds every route to its handler and minimum role.
func NewRouter(svcs Services, guard *access.Guard, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	books := catalog.NewHandler(svcs.Catalog)
	members := membership.NewHandler(svcs.Membership)
	ledger := circulation.NewHandler(svcs.Circulation)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteMessage(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Open desk.
	r.Group(func(r chi.Router) {
		r.Use(guard.Require(access.RoleNone))
		r.Post("/student_entry", members.HandleEntry)
		r.Put("/student_exit", members.HandleExit)
		r.Put("/student_exit/{id}", members.HandleExit)
		r.Get("/book_enquiry/{id}", books.HandleEnquiry)
		r.Get("/book_status/{id}", books.HandleStatus)
		r.Get("/available_books", books.HandleAvailableBooks)
		r.Get("/fines/{id}", ledger.HandleStudentFine)
	})

	r.Group(func(r chi.Router) {
		r.Use(guard.Require(access.RoleStaff))

		r.Post("/borrow_book", ledger.HandleBorrow)
		r.Put("/return_book", ledger.HandleReturn)
		r.Put("/missing_book", ledger.HandleMissing)
		r.Put("/pay_fine/{id}", ledger.HandlePayFine)
		r.Get("/fines", ledger.HandleFines)
		r.Get("/students_fines", ledger.HandleStudentsFines)
		r.Get("/students_books", ledger.HandleStudentsBooks)
		r.Get("/issued_books", ledger.HandleIssuedBooks)
		r.Get("/history/{id}", ledger.HandleHistory)
		r.Get("/ledger_events", ledger.HandleEvents)

		r.Post("/register_student", members.HandleRegister)
		r.Get("/library_entries", members.HandleEntries)
		r.Get("/members", members.HandleMembers)
		r.Delete("/remove_student/{id}", members.HandleRemove)
		r.Delete("/decline/{id}", members.HandleRemove)

		r.Post("/add_book", books.HandleAddBook)
		r.Get("/list_librarians", books.HandleListLibrarians)
	})

	r.Group(func(r chi.Router) {
		r.Use(guard.Require(access.RoleAdmin))
		r.Delete("/delete_book/{id}", books.HandleDeleteBook)
		r.Post("/add_librarian", books.HandleAddLibrarian)
		r.Delete("/remove_librarian/{id}", books.HandleRemoveLibrarian)
	})

	return r
}
