// internal/circulation/handler.go
package circulation

import (
	"net/http"

	"librarydesk/internal/httpx"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type loanRequest struct {
	StudentID   string `json:"student_id"`
	BookID      string `json:"book_id"`
	LibrarianID string `json:"librarian_id"`
	Missing     bool   `json:"missing"`
}

func (h *Handler) HandleBorrow(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := httpx.RequireFields("student_id", req.StudentID, "book_id", req.BookID, "librarian_id", req.LibrarianID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	result, err := h.service.Borrow(r.Context(), req.StudentID, req.BookID, req.LibrarianID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, result)
}

// HandleReturn also accepts {"missing": true} to report the book lost.
func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := httpx.RequireFields("student_id", req.StudentID, "book_id", req.BookID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if req.Missing {
		h.markMissing(w, r, req)
		return
	}

	rec, err := h.service.Return(r.Context(), req.StudentID, req.BookID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) HandleMissing(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := httpx.RequireFields("student_id", req.StudentID, "book_id", req.BookID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.markMissing(w, r, req)
}

func (h *Handler) markMissing(w http.ResponseWriter, r *http.Request, req loanRequest) {
	rec, err := h.service.MarkMissing(r.Context(), req.StudentID, req.BookID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) HandlePayFine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int `json:"amount"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	payment, err := h.service.PayFine(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, payment)
}

func (h *Handler) HandleStudentFine(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.TotalFine(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, total)
}

func (h *Handler) HandleFines(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.FineTotals(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, totals)
}

func (h *Handler) HandleStudentsFines(w http.ResponseWriter, r *http.Request) {
	fines, err := h.service.StudentsWithFines(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, fines)
}

func (h *Handler) HandleIssuedBooks(w http.ResponseWriter, r *http.Request) {
	issued, err := h.service.IssuedBooks(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, issued)
}

func (h *Handler) HandleStudentsBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.StudentsBooks(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, books)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, events)
}

// HandleEvents pages the ledger journal with ?after=<event id>&limit=<n>.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	after, err := httpx.QueryInt(r, "after", 0)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	limit, err := httpx.QueryInt(r, "limit", DefaultEventBatch)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	events, err := h.service.Events(r.Context(), int64(after), limit)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, events)
}
